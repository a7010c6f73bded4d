package normalize

import "strings"

// Strength weights on the ordinal scale used for information-flow edges.
const (
	WeakWeight   = 0.3
	MediumWeight = 0.6
	StrongWeight = 0.9

	// FallbackWeight applies to any category outside weak/medium/strong.
	FallbackWeight = WeakWeight
)

// Quantize maps a qualitative strength category to its numeric weight.
func Quantize(category string) float64 {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "strong":
		return StrongWeight
	case "medium":
		return MediumWeight
	case "weak":
		return WeakWeight
	default:
		return FallbackWeight
	}
}
