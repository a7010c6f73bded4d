package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/watcherai/glassbox-gateway/internal/models"
	"github.com/watcherai/glassbox-gateway/internal/normalize"
	"github.com/watcherai/glassbox-gateway/internal/utils"
)

// IDGenerator mints an identifier for results whose payload carries none.
type IDGenerator func() string

// Meta carries what the caller knows about the submission that produced a payload.
// Values present in the payload itself take precedence.
type Meta struct {
	ID     string
	Prompt string
	Output string
}

// Adapter converts raw glassbox payloads of any known wire-schema version into
// CanonicalResult records.
type Adapter struct {
	logger *slog.Logger
	newID  IDGenerator
	now    func() time.Time
	rules  *RuleEngine
}

// Option customises an Adapter.
type Option func(*Adapter)

// WithLogger sets the adapter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithIDGenerator sets the collaborator used when neither payload nor caller supplies an id.
func WithIDGenerator(gen IDGenerator) Option {
	return func(a *Adapter) {
		if gen != nil {
			a.newID = gen
		}
	}
}

// WithClock overrides the time source for payloads without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}

// WithRules sets the rule engine that fills missing recommendations.
func WithRules(rules *RuleEngine) Option {
	return func(a *Adapter) {
		if rules != nil {
			a.rules = rules
		}
	}
}

// NewAdapter constructs an Adapter with defaults for every collaborator.
func NewAdapter(opts ...Option) *Adapter {
	a := &Adapter{
		logger: slog.Default(),
		newID:  NewAnalysisID,
		now:    time.Now,
		rules:  DefaultRuleEngine(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Detect reports which wire-schema version raw matches, checking discriminating
// top-level fields in order: request_id, key_components, components, heads.
func Detect(raw []byte) (models.SchemaVersion, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return "", schemaMismatch("payload is not a JSON object", err)
	}

	switch {
	case present(fields["request_id"]):
		return models.SchemaEnvelope, nil
	case isArray(fields["key_components"]):
		return models.SchemaKeyed, nil
	case isArray(fields["components"]):
		return models.SchemaFlat, nil
	case isObject(fields["heads"]):
		return models.SchemaLegacy, nil
	default:
		return "", schemaMismatch("payload matches no known wire schema", nil)
	}
}

// Adapt detects the wire-schema version of raw and maps it to a CanonicalResult.
// It fails with a schema-mismatch error rather than guessing at an unknown shape.
func (a *Adapter) Adapt(raw []byte, meta Meta) (models.CanonicalResult, error) {
	version, err := Detect(raw)
	if err != nil {
		return models.CanonicalResult{}, err
	}

	var result models.CanonicalResult
	switch version {
	case models.SchemaEnvelope:
		var p envelopePayload
		if err := decodeStrict(raw, &p); err != nil {
			return models.CanonicalResult{}, err
		}
		result = a.fromEnvelope(p, meta)
	case models.SchemaKeyed:
		var p keyedPayload
		if err := decodeStrict(raw, &p); err != nil {
			return models.CanonicalResult{}, err
		}
		result = a.fromKeyed(p, meta)
	case models.SchemaFlat:
		var p flatPayload
		if err := decodeStrict(raw, &p); err != nil {
			return models.CanonicalResult{}, err
		}
		result = a.fromFlat(p, meta)
	case models.SchemaLegacy:
		var p legacyPayload
		if err := decodeStrict(raw, &p); err != nil {
			return models.CanonicalResult{}, err
		}
		result = a.fromLegacy(p, meta)
	}

	if dangling := result.DanglingConnections(); len(dangling) > 0 {
		a.logger.Warn("connections reference components missing from result",
			slog.String("id", result.ID),
			slog.String("schema", string(version)),
			slog.Int("dangling", len(dangling)),
		)
	}
	a.logger.Debug("adapted glassbox payload", slog.String("id", result.ID), slog.String("schema", string(version)))
	return result, nil
}

// finish applies the policies shared by every variant once the variant-specific
// fields have been mapped.
func (a *Adapter) finish(res models.CanonicalResult, meta Meta, payloadID string, ts time.Time, rawRisk string, analyzed int) models.CanonicalResult {
	res.ID = firstNonEmpty(payloadID, meta.ID)
	if res.ID == "" {
		res.ID = a.newID()
	}
	res.Prompt = firstNonEmpty(res.Prompt, meta.Prompt)
	res.Output = firstNonEmpty(res.Output, meta.Output)
	if ts.IsZero() {
		ts = a.now()
	}
	res.Timestamp = utils.FormatTimestamp(ts)

	res.Concerns = normalize.EnsureConcerns(res.Concerns)
	res.RiskLevel = normalize.RiskLevel(rawRisk, res.Concerns)
	res.Confidence = normalize.Clamp01(res.Confidence)
	res.Complexity = normalize.Clamp01(res.Complexity)
	res.AnalysisTimeMs = normalize.NonNegative(res.AnalysisTimeMs)

	res.ComponentCount = len(res.Components)
	if analyzed > 0 {
		res.ComponentCount = analyzed
	}
	if res.Components == nil {
		res.Components = []models.Component{}
	}
	if res.Connections == nil {
		res.Connections = []models.Connection{}
	}
	if res.Recommendation == "" {
		res.Recommendation = a.rules.Recommend(res.RiskLevel, res.Concerns)
	}
	return res
}

func decodeStrict(raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return schemaMismatch("payload fields have unexpected types", err)
	}
	return nil
}

func schemaMismatch(msg string, err error) error {
	return utils.NewKindError("adapt payload", utils.KindSchemaMismatch, 0, msg, err)
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func explanation(summary, detailed string) string {
	switch {
	case summary != "" && detailed != "":
		return fmt.Sprintf("%s\n\n%s", summary, detailed)
	case summary != "":
		return summary
	default:
		return detailed
	}
}
