package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/watcherai/glassbox-gateway/internal/models"
)

// RuleEngine supplies a recommendation when a payload carries none.
type RuleEngine struct {
	rules  []Rule
	logger *slog.Logger
}

// Rule represents a single recommendation rule.
type Rule struct {
	ID             string    `yaml:"id"`
	Match          RuleMatch `yaml:"match"`
	Recommendation string    `yaml:"recommendation"`
}

// RuleMatch defines optional attributes for rule matching. Empty attributes match anything.
type RuleMatch struct {
	RiskLevel       string   `yaml:"risk_level"`
	Severity        string   `yaml:"severity"`
	MessageContains []string `yaml:"message_contains"`
}

// RuleConfigFile is the YAML root structure.
type RuleConfigFile struct {
	Rules []Rule `yaml:"rules"`
}

var defaultRules = []Rule{
	{ID: "high-risk", Match: RuleMatch{RiskLevel: string(models.RiskHigh)}, Recommendation: "Verify the output independently before use."},
	{ID: "medium-risk", Match: RuleMatch{RiskLevel: string(models.RiskMedium)}, Recommendation: "Review the output before relying on it."},
	{ID: "low-risk", Match: RuleMatch{}, Recommendation: "Output appears reliable."},
}

// DefaultRuleEngine returns the built-in rule table keyed on risk level.
func DefaultRuleEngine() *RuleEngine {
	return &RuleEngine{rules: defaultRules, logger: slog.Default()}
}

// NewRuleEngine loads rules from the provided path. An empty path or a missing file
// yields the built-in rules; the built-in rules also back any file whose rules do not match.
func NewRuleEngine(path string, logger *slog.Logger) (*RuleEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	engine := &RuleEngine{rules: defaultRules, logger: logger}
	if path == "" {
		return engine, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("recommendation rules not found, using defaults", slog.String("path", path))
			return engine, nil
		}
		return nil, fmt.Errorf("read rules: %w", err)
	}
	var cfg RuleConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	engine.rules = append(append([]Rule(nil), cfg.Rules...), defaultRules...)
	return engine, nil
}

// Recommend returns the recommendation of the first rule matching the result's risk
// level and concerns.
func (e *RuleEngine) Recommend(risk models.RiskLevel, concerns []models.Concern) string {
	if e == nil {
		return ""
	}
	for _, rule := range e.rules {
		if rule.Match.RiskLevel != "" && !strings.EqualFold(rule.Match.RiskLevel, string(risk)) {
			continue
		}
		if rule.Match.Severity != "" && !hasSeverity(rule.Match.Severity, concerns) {
			continue
		}
		if len(rule.Match.MessageContains) > 0 && !messagesContain(rule.Match.MessageContains, concerns) {
			continue
		}
		e.logger.Debug("recommendation rule matched", slog.String("rule", rule.ID))
		return rule.Recommendation
	}
	return ""
}

func hasSeverity(severity string, concerns []models.Concern) bool {
	for _, c := range concerns {
		if strings.EqualFold(string(c.Severity), severity) {
			return true
		}
	}
	return false
}

func messagesContain(needles []string, concerns []models.Concern) bool {
	for _, c := range concerns {
		msg := strings.ToLower(c.Message)
		for _, needle := range needles {
			if strings.Contains(msg, strings.ToLower(needle)) {
				return true
			}
		}
	}
	return false
}
