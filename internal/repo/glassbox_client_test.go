package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/watcherai/glassbox-gateway/internal/utils"
)

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestSubmitPostsPromptAndOutput(t *testing.T) {
	client := NewGlassboxClient("https://glassbox.example.com/base", Endpoints{}, "", time.Second)
	client.httpClient = newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost || req.URL.Path != "/base/api/analyze" {
			t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["prompt"] != "Where is the Eiffel Tower?" || body["output"] != "Paris" {
			t.Fatalf("unexpected body %v", body)
		}
		return jsonResponse(http.StatusOK, ` {"key_components": []} `), nil
	}))

	raw, err := client.Submit(context.Background(), "Where is the Eiffel Tower?", "Paris")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if string(raw) != `{"key_components": []}` {
		t.Fatalf("unexpected payload %s", raw)
	}
}

func TestSubmitUsesConfiguredRequestField(t *testing.T) {
	client := NewGlassboxClient("https://glassbox.example.com", Endpoints{}, "response", time.Second)
	client.httpClient = newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		data, _ := io.ReadAll(req.Body)
		if !bytes.Contains(data, []byte(`"response":"Paris"`)) {
			t.Fatalf("expected response field, got %s", data)
		}
		return jsonResponse(http.StatusOK, `{}`), nil
	}))
	if _, err := client.Submit(context.Background(), "p", "Paris"); err != nil {
		t.Fatalf("submit: %v", err)
	}
}

func TestBackendErrorMessage(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"detail": "model overloaded"}`, "model overloaded"},
		{`{"message": "bad prompt"}`, "bad prompt"},
		{`{"error": "boom"}`, "boom"},
		{`{}`, "An error occurred"},
		{`<html>oops</html>`, "An error occurred"},
	}
	for _, tc := range cases {
		client := NewGlassboxClient("https://glassbox.example.com", Endpoints{}, "", time.Second)
		client.httpClient = newTestClient(roundTripFunc(func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusServiceUnavailable, tc.body), nil
		}))

		_, err := client.Submit(context.Background(), "p", "o")
		if !errors.Is(err, utils.ErrBackend) {
			t.Fatalf("expected backend error, got %v", err)
		}
		var appErr *utils.AppError
		if !errors.As(err, &appErr) {
			t.Fatalf("expected AppError, got %T", err)
		}
		if appErr.Status != http.StatusServiceUnavailable || appErr.Msg != tc.want {
			t.Fatalf("expected status 503 and %q, got %d %q", tc.want, appErr.Status, appErr.Msg)
		}
	}
}

func TestFetchByIDNotFound(t *testing.T) {
	client := NewGlassboxClient("https://glassbox.example.com", Endpoints{}, "", time.Second)
	client.httpClient = newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/analysis/a1" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		return jsonResponse(http.StatusNotFound, `{"detail": "Analysis not found"}`), nil
	}))

	_, err := client.FetchByID(context.Background(), "a1")
	if !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if utils.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", utils.StatusOf(err))
	}
}

func TestTransportFailures(t *testing.T) {
	client := NewGlassboxClient("https://glassbox.example.com", Endpoints{}, "", time.Second)
	client.httpClient = newTestClient(roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}))
	_, err := client.Health(context.Background())
	if !errors.Is(err, utils.ErrTransport) || utils.StatusOf(err) != http.StatusBadGateway {
		t.Fatalf("expected transport 502, got %v", err)
	}

	client.httpClient = newTestClient(roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `not json`), nil
	}))
	if _, err := client.Submit(context.Background(), "p", "o"); !errors.Is(err, utils.ErrTransport) {
		t.Fatalf("expected malformed body to be a transport failure, got %v", err)
	}
}

func TestTransportTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewGlassboxClient(srv.URL, Endpoints{}, "", 50*time.Millisecond)
	_, err := client.Health(context.Background())
	if !errors.Is(err, utils.ErrTransport) || utils.StatusOf(err) != http.StatusGatewayTimeout {
		t.Fatalf("expected transport 504, got %v", err)
	}
}

func TestListHistoryAcceptsBothSpellings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/history" || r.URL.Query().Get("limit") != "5" || r.URL.Query().Get("offset") != "10" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": [
			{"request_id": "a1", "timestamp": "2024-01-02T15:04:05Z", "prompt": "p1", "response": "r1", "risk_level": "low", "confidence": 0.9},
			{"id": "a2", "timestamp": 1704207845, "prompt": "p2", "output": "r2", "risk_level": "high", "confidence": 0.2}
		], "total": 2}`))
	}))
	defer srv.Close()

	client := NewGlassboxClient(srv.URL, Endpoints{}, "", time.Second)
	page, err := client.ListHistory(context.Background(), 5, 10)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Items[0].ID != "a1" || page.Items[0].Output != "r1" {
		t.Fatalf("unexpected first item %+v", page.Items[0])
	}
	if page.Items[1].ID != "a2" || page.Items[1].Output != "r2" || page.Items[1].Timestamp != "2024-01-02T15:04:05Z" {
		t.Fatalf("unexpected second item %+v", page.Items[1])
	}
}

func TestHealthAcceptsBothSpellings(t *testing.T) {
	cases := []struct {
		body string
		want HealthPayload
	}{
		{
			body: `{"status": "healthy", "glassbox_connected": true, "database_connected": false}`,
			want: HealthPayload{Status: "healthy", UpstreamConnected: true},
		},
		{
			body: `{"status": "degraded", "upstream_connected": false, "store_connected": true}`,
			want: HealthPayload{Status: "degraded", StoreConnected: true},
		},
	}
	for _, tc := range cases {
		client := NewGlassboxClient("https://glassbox.example.com", Endpoints{}, "", time.Second)
		client.httpClient = newTestClient(roundTripFunc(func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, tc.body), nil
		}))
		got, err := client.Health(context.Background())
		if err != nil {
			t.Fatalf("health: %v", err)
		}
		if got != tc.want {
			t.Fatalf("expected %+v, got %+v", tc.want, got)
		}
	}
}

func TestUnconfiguredBaseURL(t *testing.T) {
	client := NewGlassboxClient("", Endpoints{}, "", time.Second)
	if _, err := client.Submit(context.Background(), "p", "o"); !errors.Is(err, utils.ErrTransport) {
		t.Fatalf("expected transport error without base URL, got %v", err)
	}
}
