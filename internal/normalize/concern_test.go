package normalize

import (
	"testing"

	"github.com/watcherai/glassbox-gateway/internal/models"
)

func TestClassifyFactor(t *testing.T) {
	cases := []struct {
		factor string
		want   models.Concern
	}{
		{"moderate_hallucination_risk", models.Concern{Severity: models.SeverityCaution, Message: "hallucination risk"}},
		{"high_factual_uncertainty", models.Concern{Severity: models.SeveritySevere, Message: "factual uncertainty"}},
		{"severe-bias_detected", models.Concern{Severity: models.SeveritySevere, Message: "bias detected"}},
		{"low_confidence_spread", models.Concern{Severity: models.SeverityBenign, Message: "confidence spread"}},
		{"pattern_copying", models.Concern{Severity: models.SeverityBenign, Message: "pattern copying"}},
		{"moderate_but_high_variance", models.Concern{Severity: models.SeveritySevere, Message: "but high variance"}},
		{"moderate", models.Concern{Severity: models.SeverityCaution, Message: "moderate"}},
		{"highlight_dependency", models.Concern{Severity: models.SeverityBenign, Message: "highlight dependency"}},
		{"highrisk", models.Concern{Severity: models.SeverityBenign, Message: "highrisk"}},
		{"severerisk_output", models.Concern{Severity: models.SeverityBenign, Message: "severerisk output"}},
	}
	for _, tc := range cases {
		if got := ClassifyFactor(tc.factor); got != tc.want {
			t.Fatalf("ClassifyFactor(%q) = %+v, want %+v", tc.factor, got, tc.want)
		}
	}
}

func TestNormalizeConcernTypeNames(t *testing.T) {
	cases := map[string]models.Severity{
		"safe":      models.SeverityBenign,
		"warning":   models.SeverityCaution,
		"danger":    models.SeveritySevere,
		"Caution":   models.SeverityCaution,
		"critical":  models.SeveritySevere,
		"high_risk": models.SeveritySevere,
		"mystery":   models.SeverityBenign,
	}
	for kind, want := range cases {
		got := NormalizeConcern(kind, "  Possible fabrication ")
		if got.Severity != want {
			t.Fatalf("NormalizeConcern(%q) severity = %q, want %q", kind, got.Severity, want)
		}
		if got.Message != "Possible fabrication" {
			t.Fatalf("expected message pass-through, got %q", got.Message)
		}
	}
}

func TestEnsureConcerns(t *testing.T) {
	got := EnsureConcerns(nil)
	if len(got) != 1 || got[0].Severity != models.SeverityBenign || got[0].Message != NoConcernsMessage {
		t.Fatalf("unexpected synthetic concern: %+v", got)
	}
	existing := []models.Concern{{Severity: models.SeverityCaution, Message: "x"}}
	if got := EnsureConcerns(existing); len(got) != 1 || got[0] != existing[0] {
		t.Fatalf("expected existing concerns untouched, got %+v", got)
	}
}

func TestRiskLevel(t *testing.T) {
	if RiskLevel("HIGH", nil) != models.RiskHigh {
		t.Fatalf("expected explicit level respected")
	}
	severe := []models.Concern{{Severity: models.SeverityCaution}, {Severity: models.SeveritySevere}}
	if RiskLevel("", severe) != models.RiskHigh {
		t.Fatalf("expected derived high level")
	}
	if RiskLevel("unknown", []models.Concern{{Severity: models.SeverityCaution}}) != models.RiskMedium {
		t.Fatalf("expected derived medium level")
	}
	if RiskLevel("", nil) != models.RiskLow {
		t.Fatalf("expected derived low level")
	}
}

func TestClamp01(t *testing.T) {
	if Clamp01(1.7) != 1 || Clamp01(-0.2) != 0 || Clamp01(0.42) != 0.42 {
		t.Fatalf("unexpected clamp results")
	}
}
