package engine

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/watcherai/glassbox-gateway/internal/models"
	"github.com/watcherai/glassbox-gateway/internal/utils"
)

var fixedNow = time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)

func newTestAdapter(ids ...string) *Adapter {
	next := 0
	return NewAdapter(
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			if next < len(ids) {
				next++
				return ids[next-1]
			}
			return "generated"
		}),
	)
}

func TestAdaptKeyedSingleComponent(t *testing.T) {
	raw := []byte(`{
		"summary": {"confidence": 0.91, "risk_level": "low", "complexity": 0.2},
		"explanation": {"short": "Paris is recalled directly."},
		"key_components": [{"id": "L1H5", "importance": 0.82, "label": "location encoder"}],
		"information_flow": {"edges": []},
		"risk_assessment": {"level": "low", "factors": []},
		"metadata": {"analysis_time_ms": 42, "model_analyzed": "gpt2"}
	}`)

	res, err := newTestAdapter().Adapt(raw, Meta{ID: "a1", Prompt: "Where is the Eiffel Tower?", Output: "Paris"})
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}

	wantComponents := []models.Component{{Layer: 1, SubUnit: 5, Token: "L1H5", Importance: 0.82, Label: "location encoder"}}
	if diff := cmp.Diff(wantComponents, res.Components); diff != "" {
		t.Fatalf("components mismatch (-want +got):\n%s", diff)
	}
	wantConcerns := []models.Concern{{Severity: models.SeverityBenign, Message: "no significant concerns detected"}}
	if diff := cmp.Diff(wantConcerns, res.Concerns); diff != "" {
		t.Fatalf("concerns mismatch (-want +got):\n%s", diff)
	}
	if res.ID != "a1" || res.Prompt != "Where is the Eiffel Tower?" || res.Output != "Paris" {
		t.Fatalf("caller metadata not applied: %+v", res)
	}
	if res.RiskLevel != models.RiskLow || res.ComponentCount != 1 {
		t.Fatalf("unexpected risk %q or count %d", res.RiskLevel, res.ComponentCount)
	}
	if res.SchemaVersion != models.SchemaKeyed {
		t.Fatalf("expected keyed schema, got %q", res.SchemaVersion)
	}
	if res.Connections == nil || len(res.Connections) != 0 {
		t.Fatalf("expected empty non-nil connections, got %#v", res.Connections)
	}
	if res.Timestamp != "2024-01-02T15:04:05Z" {
		t.Fatalf("expected clock timestamp, got %q", res.Timestamp)
	}
}

func TestAdaptIsShapeIndependent(t *testing.T) {
	payloads := map[models.SchemaVersion]string{
		models.SchemaEnvelope: `{
			"request_id": "a1",
			"timestamp": "2024-01-02T15:04:05Z",
			"prompt": "Where is the Eiffel Tower?",
			"response": "Paris",
			"summary": {"confidence": 0.87, "risk_level": "medium", "complexity": 0.4},
			"explanation": {"short": "Located the answer.", "detailed": "Layer 1 retrieves the city."},
			"heads": [
				{"layer": 1, "head": 5, "importance": 0.82, "label": "location encoder"},
				{"layer": 3, "head": null, "importance": 0.4, "role": "copy"}
			],
			"edges": [{"source": {"layer": 1, "head": 5}, "target": {"layer": 3, "head": null}, "strength": "strong"}],
			"flow_summary": "location flows to output",
			"concerns": [{"type": "warning", "message": "hallucination risk"}],
			"recommendation": "Double-check the answer.",
			"metadata": {"analysis_time_ms": 120, "model_analyzed": "gpt2", "num_heads_analyzed": 2}
		}`,
		models.SchemaKeyed: `{
			"summary": {"confidence": 0.87, "risk_level": "medium", "complexity": 0.4},
			"explanation": {"short": "Located the answer.", "detailed": "Layer 1 retrieves the city."},
			"key_components": [
				{"id": "L1H5", "importance": 0.82, "label": "location encoder"},
				{"id": "L3H0", "importance": 0.4, "description": "copy"}
			],
			"information_flow": {"summary": "location flows to output", "edges": [{"from": "L1H5", "to": "L3H0", "strength": "strong"}]},
			"risk_assessment": {"level": "medium", "factors": ["moderate_hallucination_risk"], "recommendation": "Double-check the answer."},
			"metadata": {"analysis_time_ms": 120, "model_analyzed": "gpt2", "num_heads_analyzed": 2}
		}`,
		models.SchemaFlat: `{
			"confidence": 0.87,
			"risk_level": "medium",
			"complexity": 0.4,
			"explanation": "Located the answer.",
			"explanation_detail": "Layer 1 retrieves the city.",
			"components": [
				{"id": "L1H5", "importance": 0.82, "label": "location encoder"},
				{"id": "L3H0", "importance": 0.4, "role": "copy"}
			],
			"connections": [{"from": "L1H5", "to": "L3H0", "strength": "strong"}],
			"flow_summary": "location flows to output",
			"risk_factors": ["moderate_hallucination_risk"],
			"recommendation": "Double-check the answer.",
			"analysis_time_ms": 120,
			"model": "gpt2",
			"num_heads": 2
		}`,
		models.SchemaLegacy: `{
			"confidence": 0.87,
			"risk": "medium",
			"complexity": 0.4,
			"summary": "Located the answer.",
			"details": "Layer 1 retrieves the city.",
			"heads": {
				"L3HNone": {"score": 0.4, "description": "copy"},
				"L1H5": {"score": 0.82, "description": "location encoder"}
			},
			"flows": [{"src": "L1H5", "dst": "L3HNone", "strength": "strong"}],
			"flow_description": "location flows to output",
			"warnings": ["moderate_hallucination_risk"],
			"advice": "Double-check the answer.",
			"elapsed_ms": 120,
			"model_name": "gpt2"
		}`,
	}

	want := models.CanonicalResult{
		ID:             "a1",
		Timestamp:      "2024-01-02T15:04:05Z",
		Prompt:         "Where is the Eiffel Tower?",
		Output:         "Paris",
		Confidence:     0.87,
		RiskLevel:      models.RiskMedium,
		Complexity:     0.4,
		ComponentCount: 2,
		Explanation:    "Located the answer.\n\nLayer 1 retrieves the city.",
		Components: []models.Component{
			{Layer: 1, SubUnit: 5, Token: "L1H5", Importance: 0.82, Label: "location encoder"},
			{Layer: 3, SubUnit: 0, Token: "L3H0", Importance: 0.4, Label: "copy"},
		},
		Connections:    []models.Connection{{From: "L1H5", To: "L3H0", Weight: 0.9}},
		FlowSummary:    "location flows to output",
		Concerns:       []models.Concern{{Severity: models.SeverityCaution, Message: "hallucination risk"}},
		AnalysisTimeMs: 120,
		ModelAnalyzed:  "gpt2",
		Recommendation: "Double-check the answer.",
	}

	meta := Meta{ID: "a1", Prompt: "Where is the Eiffel Tower?", Output: "Paris"}
	for version, raw := range payloads {
		t.Run(string(version), func(t *testing.T) {
			got, err := newTestAdapter().Adapt([]byte(raw), meta)
			if err != nil {
				t.Fatalf("adapt: %v", err)
			}
			if got.SchemaVersion != version {
				t.Fatalf("expected schema %q, got %q", version, got.SchemaVersion)
			}
			if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(models.CanonicalResult{}, "SchemaVersion")); diff != "" {
				t.Fatalf("canonical result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAdaptRejectsUnknownShapes(t *testing.T) {
	cases := map[string]string{
		"not json":        `not json`,
		"array":           `[1, 2, 3]`,
		"scalar":          `42`,
		"no discriminant": `{"confidence": 0.5}`,
		"components type": `{"components": "L1H5"}`,
		"field types":     `{"key_components": [{"id": "L1H5", "importance": "high"}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newTestAdapter().Adapt([]byte(raw), Meta{})
			if !errors.Is(err, utils.ErrSchemaMismatch) {
				t.Fatalf("expected schema mismatch, got %v", err)
			}
		})
	}
}

func TestDetectOrder(t *testing.T) {
	cases := []struct {
		raw  string
		want models.SchemaVersion
	}{
		{`{"request_id": "x", "key_components": []}`, models.SchemaEnvelope},
		{`{"key_components": [], "components": []}`, models.SchemaKeyed},
		{`{"components": [], "heads": {}}`, models.SchemaFlat},
		{`{"heads": {}}`, models.SchemaLegacy},
	}
	for _, tc := range cases {
		got, err := Detect([]byte(tc.raw))
		if err != nil {
			t.Fatalf("detect %s: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("detect %s: expected %q, got %q", tc.raw, tc.want, got)
		}
	}
}

func TestAdaptFillsGapsFromPolicy(t *testing.T) {
	raw := []byte(`{
		"confidence": 1.7,
		"risk_level": "unknown",
		"complexity": -0.2,
		"components": [
			{"id": "L2H1", "importance": 0.5},
			{"id": "L2H1", "importance": 0.9, "label": "duplicate"}
		],
		"connections": [{"from": "L2H1", "to": "L9H9", "weight": 0.25}],
		"risk_factors": ["high_uncertainty", "low_attention_entropy"],
		"analysis_time_ms": -5
	}`)

	res, err := newTestAdapter("analysis_fresh").Adapt(raw, Meta{})
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	if res.ID != "analysis_fresh" {
		t.Fatalf("expected generated id, got %q", res.ID)
	}
	if res.Confidence != 1 || res.Complexity != 0 || res.AnalysisTimeMs != 0 {
		t.Fatalf("expected clamped numbers, got %+v", res)
	}
	if len(res.Components) != 1 || res.Components[0].Label != "" || res.Components[0].Importance != 0.5 {
		t.Fatalf("expected first occurrence kept, got %+v", res.Components)
	}
	if len(res.Connections) != 1 || res.Connections[0].Weight != 0.25 {
		t.Fatalf("expected dangling connection kept with explicit weight, got %+v", res.Connections)
	}
	if len(res.DanglingConnections()) != 1 {
		t.Fatalf("expected one dangling connection")
	}
	wantConcerns := []models.Concern{
		{Severity: models.SeveritySevere, Message: "uncertainty"},
		{Severity: models.SeverityBenign, Message: "attention entropy"},
	}
	if diff := cmp.Diff(wantConcerns, res.Concerns); diff != "" {
		t.Fatalf("concerns mismatch (-want +got):\n%s", diff)
	}
	if res.RiskLevel != models.RiskHigh {
		t.Fatalf("expected risk derived from concerns, got %q", res.RiskLevel)
	}
	if res.Recommendation != "Verify the output independently before use." {
		t.Fatalf("expected rule recommendation, got %q", res.Recommendation)
	}
}

func TestAdaptExplanationJoining(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`{"heads": {}, "summary": "short only"}`, "short only"},
		{`{"heads": {}, "details": "detail only"}`, "detail only"},
		{`{"heads": {}}`, ""},
	}
	for _, tc := range cases {
		res, err := newTestAdapter().Adapt([]byte(tc.raw), Meta{ID: "x"})
		if err != nil {
			t.Fatalf("adapt: %v", err)
		}
		if res.Explanation != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, res.Explanation)
		}
	}
}

func TestAdaptEnvelopeNumericTimestamp(t *testing.T) {
	raw := []byte(`{"request_id": "env-1", "timestamp": 1704207845, "heads": []}`)
	res, err := newTestAdapter().Adapt(raw, Meta{ID: "caller"})
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	if res.ID != "env-1" {
		t.Fatalf("payload id should win over caller id, got %q", res.ID)
	}
	if !strings.HasPrefix(res.Timestamp, "2024-01-02T15:04:05") {
		t.Fatalf("unexpected timestamp %q", res.Timestamp)
	}
}

func TestNewAnalysisID(t *testing.T) {
	a, b := NewAnalysisID(), NewAnalysisID()
	if !strings.HasPrefix(a, "analysis_") || a == b {
		t.Fatalf("expected distinct prefixed ids, got %q and %q", a, b)
	}
}
