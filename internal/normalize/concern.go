package normalize

import (
	"strings"
	"unicode"

	"github.com/watcherai/glassbox-gateway/internal/models"
)

// NoConcernsMessage is the message of the synthetic concern added to results without any.
const NoConcernsMessage = "no significant concerns detected"

var severityPrefixes = map[string]struct{}{
	"low":      {},
	"moderate": {},
	"high":     {},
	"severe":   {},
}

// ClassifyFactor turns a snake-case risk factor such as "moderate_hallucination_risk"
// into a Concern. A "high" or "severe" marker wins over "moderate"; anything else is benign.
func ClassifyFactor(factor string) models.Concern {
	parts := splitFactor(factor)
	return models.Concern{
		Severity: severityOf(parts),
		Message:  factorMessage(parts),
	}
}

// NormalizeConcern passes a structured concern through, normalizing only its type name.
func NormalizeConcern(kind, message string) models.Concern {
	return models.Concern{
		Severity: normalizeSeverity(kind),
		Message:  strings.TrimSpace(message),
	}
}

// EnsureConcerns returns concerns, or a single benign concern when it is empty.
func EnsureConcerns(concerns []models.Concern) []models.Concern {
	if len(concerns) > 0 {
		return concerns
	}
	return []models.Concern{{Severity: models.SeverityBenign, Message: NoConcernsMessage}}
}

func normalizeSeverity(kind string) models.Severity {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "safe", "benign", "info", "low", "none":
		return models.SeverityBenign
	case "warning", "warn", "caution", "moderate", "medium":
		return models.SeverityCaution
	case "danger", "severe", "high", "critical", "error":
		return models.SeveritySevere
	default:
		return severityOf(splitFactor(kind))
	}
}

func severityOf(parts []string) models.Severity {
	caution := false
	for _, p := range parts {
		switch p {
		case "high", "severe":
			return models.SeveritySevere
		case "moderate":
			caution = true
		}
	}
	if caution {
		return models.SeverityCaution
	}
	return models.SeverityBenign
}

func factorMessage(parts []string) string {
	if len(parts) > 1 {
		if _, ok := severityPrefixes[parts[0]]; ok {
			parts = parts[1:]
		}
	}
	return strings.Join(parts, " ")
}

func splitFactor(factor string) []string {
	return strings.FieldsFunc(strings.ToLower(factor), func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
}
