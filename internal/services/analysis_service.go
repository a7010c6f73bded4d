package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/watcherai/glassbox-gateway/internal/cache"
	"github.com/watcherai/glassbox-gateway/internal/engine"
	"github.com/watcherai/glassbox-gateway/internal/metrics"
	"github.com/watcherai/glassbox-gateway/internal/models"
	"github.com/watcherai/glassbox-gateway/internal/normalize"
	"github.com/watcherai/glassbox-gateway/internal/repo"
	"github.com/watcherai/glassbox-gateway/internal/utils"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
	previewLength       = 50
)

// Backend is the outbound surface of the glassbox analysis backend.
type Backend interface {
	Submit(ctx context.Context, prompt, output string) (json.RawMessage, error)
	FetchByID(ctx context.Context, id string) (json.RawMessage, error)
	ListHistory(ctx context.Context, limit, offset int) (repo.HistoryPage, error)
	Health(ctx context.Context) (repo.HealthPayload, error)
}

// AnalysisService implements the inbound operations offered to presentation code.
type AnalysisService struct {
	logger          *slog.Logger
	backend         Backend
	adapter         *engine.Adapter
	persistsResults bool
	fetches         singleflight.Group
	latencies       *utils.LatencyTracker
}

// NewAnalysisService constructs the service facade. persistsResults declares whether the
// backend can return earlier analyses by id.
func NewAnalysisService(logger *slog.Logger, backend Backend, adapter *engine.Adapter, persistsResults bool) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	if adapter == nil {
		adapter = engine.NewAdapter(engine.WithLogger(logger))
	}
	return &AnalysisService{
		logger:          logger,
		backend:         backend,
		adapter:         adapter,
		persistsResults: persistsResults,
		latencies:       utils.NewLatencyTracker(1024),
	}
}

// Analyze submits a prompt and output, adapts the response, and stores it in results.
// The returned id is readable from results as soon as Analyze returns.
func (s *AnalysisService) Analyze(ctx context.Context, results *cache.ResultCache, prompt, output string) (id string, err error) {
	defer s.observe("analyze", time.Now(), &err)

	if strings.TrimSpace(prompt) == "" || strings.TrimSpace(output) == "" {
		return "", utils.NewKindError("analyze", utils.KindInvalidInput, http.StatusBadRequest, "prompt and output are required", nil)
	}
	if results == nil {
		return "", utils.NewAppError("analyze", "result cache not configured", nil)
	}

	raw, err := s.backend.Submit(ctx, prompt, output)
	if err != nil {
		return "", err
	}
	result, err := s.adapt(raw, engine.Meta{Prompt: prompt, Output: output})
	if err != nil {
		return "", err
	}
	if err := results.Put(ctx, result.ID, result); err != nil {
		return "", fmt.Errorf("cache analysis: %w", err)
	}

	s.logger.Info("analysis stored",
		slog.String("id", result.ID),
		slog.String("risk", string(result.RiskLevel)),
		slog.Int("components", len(result.Components)),
	)
	return result.ID, nil
}

// GetResult returns the analysis stored under id, consulting the backend on a cache
// miss only when it persists results. Fetched results are returned but not cached.
func (s *AnalysisService) GetResult(ctx context.Context, results *cache.ResultCache, id string) (result models.CanonicalResult, err error) {
	defer s.observe("get_result", time.Now(), &err)

	if strings.TrimSpace(id) == "" {
		return models.CanonicalResult{}, utils.NewKindError("get result", utils.KindInvalidInput, http.StatusBadRequest, "id is required", nil)
	}
	if results != nil {
		cached, found, err := results.Get(ctx, id)
		if err != nil {
			return models.CanonicalResult{}, err
		}
		metrics.ObserveCacheLookup(found)
		if found {
			return cached, nil
		}
	}
	if !s.persistsResults {
		return models.CanonicalResult{}, utils.NewKindError("get result", utils.KindNotFound, http.StatusNotFound, fmt.Sprintf("analysis %s not found", id), nil)
	}

	// The shared fetch outlives any single caller; each caller stops waiting on its own ctx.
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.fetches.DoChan(id, func() (any, error) {
		raw, err := s.backend.FetchByID(fetchCtx, id)
		if err != nil {
			return nil, err
		}
		return s.adapt(raw, engine.Meta{ID: id})
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return models.CanonicalResult{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return models.CanonicalResult{}, res.Err
	}
	if res.Shared {
		s.logger.Debug("collapsed concurrent fetch", slog.String("id", id))
	}
	result = res.Val.(models.CanonicalResult)
	if result.ID != id {
		s.logger.Warn("backend returned a different analysis",
			slog.String("requested", id),
			slog.String("returned", result.ID),
		)
		return models.CanonicalResult{}, utils.NewKindError("get result", utils.KindNotFound, http.StatusNotFound, fmt.Sprintf("analysis %s not found", id), nil)
	}
	return result, nil
}

// GetHistory lists past analyses. A non-positive limit means the default page size;
// larger limits are capped.
func (s *AnalysisService) GetHistory(ctx context.Context, limit, offset int) (items []models.HistoryItem, err error) {
	defer s.observe("get_history", time.Now(), &err)

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	page, err := s.backend.ListHistory(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items = make([]models.HistoryItem, 0, len(page.Items))
	for _, rec := range page.Items {
		items = append(items, models.HistoryItem{
			ID:            rec.ID,
			Timestamp:     normalizeTimestamp(rec.Timestamp),
			PromptPreview: preview(rec.Prompt),
			OutputPreview: preview(rec.Output),
			RiskLevel:     normalize.RiskLevel(rec.RiskLevel, nil),
			Confidence:    normalize.Clamp01(rec.Confidence),
		})
	}
	return items, nil
}

// CheckHealth reports backend reachability.
func (s *AnalysisService) CheckHealth(ctx context.Context) (health models.HealthStatus, err error) {
	defer s.observe("check_health", time.Now(), &err)

	payload, err := s.backend.Health(ctx)
	if err != nil {
		return models.HealthStatus{}, err
	}
	return models.HealthStatus{
		Status:            payload.Status,
		UpstreamConnected: payload.UpstreamConnected,
		StoreConnected:    payload.StoreConnected,
	}, nil
}

// LatencyP95 returns the current p95 operation latency.
func (s *AnalysisService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func (s *AnalysisService) adapt(raw json.RawMessage, meta engine.Meta) (models.CanonicalResult, error) {
	result, err := s.adapter.Adapt(raw, meta)
	if err != nil {
		s.logger.Error("adapt glassbox payload failed", slog.Any("error", err))
		return models.CanonicalResult{}, err
	}
	metrics.ObserveAdaptation(string(result.SchemaVersion), len(result.DanglingConnections()))
	return result, nil
}

func (s *AnalysisService) observe(op string, start time.Time, err *error) {
	duration := time.Since(start)
	if *err != nil {
		metrics.ObserveOperation(op, duration, metrics.OutcomeError)
		s.logger.Warn("operation failed",
			slog.String("operation", op),
			slog.String("kind", string(utils.KindOf(*err))),
			slog.Any("error", *err),
		)
		return
	}
	s.latencies.Observe(duration)
	metrics.ObserveOperation(op, duration, metrics.OutcomeSuccess)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("operation latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	return string([]rune(text)[:previewLength]) + "..."
}

func normalizeTimestamp(ts string) string {
	parsed, err := utils.ParseTimestamp(ts)
	if err != nil {
		return ts
	}
	return utils.FormatTimestamp(parsed)
}
