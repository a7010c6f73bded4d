package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/watcherai/glassbox-gateway/internal/models"
)

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, models.CanonicalResult{
		ID:             "analysis_1",
		Timestamp:      "2024-01-02T15:04:05Z",
		Confidence:     0.91,
		RiskLevel:      models.RiskLow,
		ModelAnalyzed:  "gpt2",
		Components:     []models.Component{{Layer: 1, SubUnit: 5, Token: "L1H5", Importance: 0.82, Label: "location encoder"}},
		Concerns:       []models.Concern{{Severity: models.SeverityBenign, Message: "no significant concerns detected"}},
		Recommendation: "Output appears reliable.",
	})

	out := buf.String()
	for _, want := range []string{
		"Analysis analysis_1",
		"Risk: low  Confidence: 91%",
		"L1H5",
		"location encoder",
		"[BENIGN] no significant concerns detected",
		"Recommendation: Output appears reliable.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
