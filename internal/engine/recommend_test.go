package engine

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/watcherai/glassbox-gateway/internal/models"
)

func TestRuleEngineRecommendFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte(`rules:
  - id: hallucination
    match:
      severity: caution
      message_contains: ["hallucination"]
    recommendation: "Cross-check facts against a trusted source."
`), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	engine, err := NewRuleEngine(path, slog.New(slog.NewTextHandler(os.Stdout, nil)))
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	concerns := []models.Concern{{Severity: models.SeverityCaution, Message: "hallucination risk"}}
	if got := engine.Recommend(models.RiskMedium, concerns); got != "Cross-check facts against a trusted source." {
		t.Fatalf("unexpected recommendation %q", got)
	}

	benign := []models.Concern{{Severity: models.SeverityBenign, Message: "no significant concerns detected"}}
	if got := engine.Recommend(models.RiskLow, benign); got != "Output appears reliable." {
		t.Fatalf("expected built-in fallback, got %q", got)
	}
}

func TestRuleEngineNoFile(t *testing.T) {
	engine, err := NewRuleEngine("non-existent", nil)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got := engine.Recommend(models.RiskHigh, nil); got != "Verify the output independently before use." {
		t.Fatalf("unexpected default recommendation %q", got)
	}
}

func TestRuleEngineInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("rules: [unterminated"), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	if _, err := NewRuleEngine(path, nil); err == nil {
		t.Fatalf("expected parse error")
	}
}
