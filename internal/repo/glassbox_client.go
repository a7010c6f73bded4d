package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/watcherai/glassbox-gateway/internal/utils"
)

const defaultErrorMessage = "An error occurred"

// Endpoints holds the backend paths, relative to the base URL.
type Endpoints struct {
	Analyze  string
	Analysis string
	History  string
	Health   string
}

// DefaultEndpoints returns the paths served by the glassbox backend.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Analyze:  "/api/analyze",
		Analysis: "/analysis",
		History:  "/history",
		Health:   "/health",
	}
}

// HistoryRecord is one backend history entry. Older backends name the id "id" and
// the model output "output"; both spellings are accepted.
type HistoryRecord struct {
	ID         string  `json:"id"`
	Timestamp  string  `json:"timestamp"`
	Prompt     string  `json:"prompt"`
	Output     string  `json:"output"`
	RiskLevel  string  `json:"risk_level"`
	Confidence float64 `json:"confidence"`
}

// UnmarshalJSON accepts both the request_id/response and the id/output spellings.
func (r *HistoryRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		RequestID  string  `json:"request_id"`
		ID         string  `json:"id"`
		Timestamp  any     `json:"timestamp"`
		Prompt     string  `json:"prompt"`
		Response   string  `json:"response"`
		Output     string  `json:"output"`
		RiskLevel  string  `json:"risk_level"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = HistoryRecord{
		ID:         firstNonEmpty(raw.RequestID, raw.ID),
		Timestamp:  timestampString(raw.Timestamp),
		Prompt:     raw.Prompt,
		Output:     firstNonEmpty(raw.Response, raw.Output),
		RiskLevel:  raw.RiskLevel,
		Confidence: raw.Confidence,
	}
	return nil
}

// HistoryPage is one page of backend history.
type HistoryPage struct {
	Items []HistoryRecord `json:"items"`
	Total int             `json:"total"`
}

// HealthPayload is the backend health report.
type HealthPayload struct {
	Status            string
	UpstreamConnected bool
	StoreConnected    bool
}

// GlassboxClient is the single point of contact with the glassbox analysis backend.
// Each operation makes exactly one outbound call and never retries.
type GlassboxClient struct {
	baseURL      string
	endpoints    Endpoints
	requestField string
	httpClient   *http.Client
}

// NewGlassboxClient constructs a client targeting the configured backend. requestField
// names the body field carrying the model output: "output" (default) or "response".
func NewGlassboxClient(baseURL string, endpoints Endpoints, requestField string, timeout time.Duration) *GlassboxClient {
	if requestField == "" {
		requestField = "output"
	}
	defaults := DefaultEndpoints()
	endpoints.Analyze = firstNonEmpty(endpoints.Analyze, defaults.Analyze)
	endpoints.Analysis = firstNonEmpty(endpoints.Analysis, defaults.Analysis)
	endpoints.History = firstNonEmpty(endpoints.History, defaults.History)
	endpoints.Health = firstNonEmpty(endpoints.Health, defaults.Health)
	return &GlassboxClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		endpoints:    endpoints,
		requestField: requestField,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Submit posts a prompt and the model's output for analysis and returns the raw payload.
func (c *GlassboxClient) Submit(ctx context.Context, prompt, output string) (json.RawMessage, error) {
	const op = "submit analysis"
	payload := map[string]string{
		"prompt":       prompt,
		c.requestField: output,
	}
	data, err := c.do(ctx, op, http.MethodPost, c.resolvePath(c.endpoints.Analyze), payload)
	if err != nil {
		return nil, err
	}
	return rawJSON(op, data)
}

// FetchByID retrieves a previously persisted analysis payload.
func (c *GlassboxClient) FetchByID(ctx context.Context, id string) (json.RawMessage, error) {
	const op = "fetch analysis"
	endpoint := c.resolvePath(path.Join(c.endpoints.Analysis, url.PathEscape(id)))
	data, err := c.do(ctx, op, http.MethodGet, endpoint, nil)
	if err != nil {
		if utils.StatusOf(err) == http.StatusNotFound {
			return nil, utils.NewKindError(op, utils.KindNotFound, http.StatusNotFound, fmt.Sprintf("analysis %s not found", id), err)
		}
		return nil, err
	}
	return rawJSON(op, data)
}

// ListHistory retrieves one page of past analyses.
func (c *GlassboxClient) ListHistory(ctx context.Context, limit, offset int) (HistoryPage, error) {
	const op = "list history"
	endpoint := c.resolvePath(c.endpoints.History)
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	endpoint += "?" + query.Encode()

	data, err := c.do(ctx, op, http.MethodGet, endpoint, nil)
	if err != nil {
		return HistoryPage{}, err
	}
	var page HistoryPage
	if err := json.Unmarshal(data, &page); err != nil {
		return HistoryPage{}, malformed(op, err)
	}
	if page.Items == nil {
		page.Items = []HistoryRecord{}
	}
	return page, nil
}

// Health reports backend reachability.
func (c *GlassboxClient) Health(ctx context.Context) (HealthPayload, error) {
	const op = "check health"
	data, err := c.do(ctx, op, http.MethodGet, c.resolvePath(c.endpoints.Health), nil)
	if err != nil {
		return HealthPayload{}, err
	}
	var raw struct {
		Status            string `json:"status"`
		GlassboxConnected *bool  `json:"glassbox_connected"`
		UpstreamConnected *bool  `json:"upstream_connected"`
		DatabaseConnected *bool  `json:"database_connected"`
		StoreConnected    *bool  `json:"store_connected"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return HealthPayload{}, malformed(op, err)
	}
	return HealthPayload{
		Status:            raw.Status,
		UpstreamConnected: firstBool(raw.UpstreamConnected, raw.GlassboxConnected),
		StoreConnected:    firstBool(raw.StoreConnected, raw.DatabaseConnected),
	}, nil
}

func (c *GlassboxClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *GlassboxClient) do(ctx context.Context, op, method, endpoint string, payload any) ([]byte, error) {
	if c == nil || endpoint == "" {
		return nil, utils.NewKindError(op, utils.KindTransport, http.StatusBadGateway, "glassbox base URL not configured", nil)
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, utils.NewAppError(op, "marshal payload", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, utils.NewAppError(op, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(op, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, utils.NewKindError(op, utils.KindBackend, resp.StatusCode, backendMessage(data), nil)
	}
	return data, nil
}

func transportError(op string, err error) error {
	status := http.StatusBadGateway
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		status = http.StatusGatewayTimeout
	}
	return utils.NewKindError(op, utils.KindTransport, status, "glassbox backend unreachable", err)
}

func malformed(op string, err error) error {
	return utils.NewKindError(op, utils.KindTransport, http.StatusBadGateway, "malformed response body", err)
}

func rawJSON(op string, data []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return nil, malformed(op, errors.New("invalid JSON"))
	}
	return json.RawMessage(trimmed), nil
}

// backendMessage extracts the human-facing message from an error body.
func backendMessage(data []byte) string {
	var body struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return defaultErrorMessage
	}
	detail := ""
	switch d := body.Detail.(type) {
	case string:
		detail = d
	case nil:
	default:
		if encoded, err := json.Marshal(d); err == nil {
			detail = string(encoded)
		}
	}
	if msg := firstNonEmpty(detail, body.Message, body.Error); msg != "" {
		return msg
	}
	return defaultErrorMessage
}

func timestampString(v any) string {
	switch ts := v.(type) {
	case string:
		return ts
	case float64:
		return utils.FormatTimestamp(utils.FromUnixNumber(ts))
	default:
		return ""
	}
}

func firstBool(values ...*bool) bool {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
