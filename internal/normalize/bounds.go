package normalize

import (
	"math"
	"strings"

	"github.com/watcherai/glassbox-gateway/internal/models"
)

// Clamp01 bounds v to [0,1]; NaN becomes 0.
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// NonNegative bounds v below by zero; NaN becomes 0.
func NonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

// RiskLevel normalizes a wire risk level. Unknown or empty levels are derived from
// the concerns: any severe concern is high, any caution is medium, otherwise low.
func RiskLevel(level string, concerns []models.Concern) models.RiskLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "low":
		return models.RiskLow
	case "medium", "moderate":
		return models.RiskMedium
	case "high":
		return models.RiskHigh
	}
	risk := models.RiskLow
	for _, c := range concerns {
		switch c.Severity {
		case models.SeveritySevere:
			return models.RiskHigh
		case models.SeverityCaution:
			risk = models.RiskMedium
		}
	}
	return risk
}
