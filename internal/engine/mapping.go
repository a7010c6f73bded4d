package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/watcherai/glassbox-gateway/internal/models"
	"github.com/watcherai/glassbox-gateway/internal/normalize"
)

func (a *Adapter) fromEnvelope(p envelopePayload, meta Meta) models.CanonicalResult {
	var components componentSet
	for _, h := range p.Heads {
		components.add(h.Layer, indexOrMissing(h.Head), h.Importance, firstNonEmpty(h.Label, h.Role))
	}

	connections := make([]models.Connection, 0, len(p.Edges))
	for _, e := range p.Edges {
		connections = append(connections, models.Connection{
			From:   normalize.Encode(e.Source.Layer, indexOrMissing(e.Source.Head)),
			To:     normalize.Encode(e.Target.Layer, indexOrMissing(e.Target.Head)),
			Weight: normalize.Quantize(e.Strength),
		})
	}

	concerns := make([]models.Concern, 0, len(p.Concerns))
	for _, c := range p.Concerns {
		concerns = append(concerns, normalize.NormalizeConcern(c.Type, c.Message))
	}

	res := models.CanonicalResult{
		Prompt:         p.Prompt,
		Output:         p.Response,
		Confidence:     p.Summary.Confidence,
		Complexity:     p.Summary.Complexity,
		Explanation:    explanation(p.Explanation.Short, p.Explanation.Detailed),
		Components:     components.list,
		Connections:    connections,
		FlowSummary:    p.FlowSummary,
		Concerns:       concerns,
		AnalysisTimeMs: p.Metadata.AnalysisTimeMs,
		ModelAnalyzed:  p.Metadata.ModelAnalyzed,
		Recommendation: p.Recommendation,
		SchemaVersion:  models.SchemaEnvelope,
	}
	return a.finish(res, meta, p.RequestID, p.Timestamp.Time, p.Summary.RiskLevel, p.Metadata.NumHeadsAnalyzed)
}

func (a *Adapter) fromKeyed(p keyedPayload, meta Meta) models.CanonicalResult {
	var components componentSet
	for _, c := range p.KeyComponents {
		components.addToken(c.ID, c.Importance, firstNonEmpty(c.Label, c.Description))
	}

	connections := make([]models.Connection, 0, len(p.InformationFlow.Edges))
	for _, e := range p.InformationFlow.Edges {
		connections = append(connections, models.Connection{
			From:   canonicalToken(e.From),
			To:     canonicalToken(e.To),
			Weight: normalize.Quantize(e.Strength),
		})
	}

	res := models.CanonicalResult{
		Confidence:     p.Summary.Confidence,
		Complexity:     p.Summary.Complexity,
		Explanation:    explanation(p.Explanation.Short, p.Explanation.Detailed),
		Components:     components.list,
		Connections:    connections,
		FlowSummary:    p.InformationFlow.Summary,
		Concerns:       classifyFactors(p.RiskAssessment.Factors),
		AnalysisTimeMs: p.Metadata.AnalysisTimeMs,
		ModelAnalyzed:  p.Metadata.ModelAnalyzed,
		Recommendation: p.RiskAssessment.Recommendation,
		SchemaVersion:  models.SchemaKeyed,
	}
	risk := firstNonEmpty(p.Summary.RiskLevel, p.RiskAssessment.Level)
	return a.finish(res, meta, "", time.Time{}, risk, p.Metadata.NumHeadsAnalyzed)
}

func (a *Adapter) fromFlat(p flatPayload, meta Meta) models.CanonicalResult {
	var components componentSet
	for _, c := range p.Components {
		components.addToken(c.ID, c.Importance, firstNonEmpty(c.Label, c.Role))
	}

	connections := make([]models.Connection, 0, len(p.Connections))
	for _, c := range p.Connections {
		weight := normalize.Quantize(c.Strength)
		if c.Weight != nil {
			weight = normalize.Clamp01(*c.Weight)
		}
		connections = append(connections, models.Connection{
			From:   canonicalToken(c.From),
			To:     canonicalToken(c.To),
			Weight: weight,
		})
	}

	res := models.CanonicalResult{
		Confidence:     p.Confidence,
		Complexity:     p.Complexity,
		Explanation:    explanation(p.Explanation, p.ExplanationDetail),
		Components:     components.list,
		Connections:    connections,
		FlowSummary:    p.FlowSummary,
		Concerns:       classifyFactors(p.RiskFactors),
		AnalysisTimeMs: p.AnalysisTimeMs,
		ModelAnalyzed:  p.Model,
		Recommendation: p.Recommendation,
		SchemaVersion:  models.SchemaFlat,
	}
	return a.finish(res, meta, "", time.Time{}, p.RiskLevel, p.NumHeads)
}

func (a *Adapter) fromLegacy(p legacyPayload, meta Meta) models.CanonicalResult {
	tokens := make([]string, 0, len(p.Heads))
	for token := range p.Heads {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		li, hi := normalize.Decode(tokens[i])
		lj, hj := normalize.Decode(tokens[j])
		if li != lj {
			return li < lj
		}
		if hi != hj {
			return hi < hj
		}
		return tokens[i] < tokens[j]
	})

	var components componentSet
	for _, token := range tokens {
		head := p.Heads[token]
		components.addToken(token, head.Score, head.Description)
	}

	connections := make([]models.Connection, 0, len(p.Flows))
	for _, f := range p.Flows {
		connections = append(connections, models.Connection{
			From:   canonicalToken(f.Src),
			To:     canonicalToken(f.Dst),
			Weight: normalize.Quantize(f.Strength),
		})
	}

	res := models.CanonicalResult{
		Confidence:     p.Confidence,
		Complexity:     p.Complexity,
		Explanation:    explanation(p.Summary, p.Details),
		Components:     components.list,
		Connections:    connections,
		FlowSummary:    p.FlowDescription,
		Concerns:       classifyFactors(p.Warnings),
		AnalysisTimeMs: p.ElapsedMs,
		ModelAnalyzed:  p.ModelName,
		Recommendation: p.Advice,
		SchemaVersion:  models.SchemaLegacy,
	}
	return a.finish(res, meta, "", time.Time{}, p.Risk, 0)
}

// componentSet accumulates components in order, keeping the first occurrence of each token.
type componentSet struct {
	seen map[string]struct{}
	list []models.Component
}

func (s *componentSet) add(layer, subUnit int, importance float64, label string) {
	token := normalize.Encode(layer, subUnit)
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, dup := s.seen[token]; dup {
		return
	}
	s.seen[token] = struct{}{}
	layer, subUnit = normalize.Decode(token)
	s.list = append(s.list, models.Component{
		Layer:      layer,
		SubUnit:    subUnit,
		Token:      token,
		Importance: normalize.Clamp01(importance),
		Label:      strings.TrimSpace(label),
	})
}

func (s *componentSet) addToken(token string, importance float64, label string) {
	layer, subUnit := normalize.Decode(token)
	s.add(layer, subUnit, importance, label)
}

// canonicalToken re-renders a wire token so that differently spelled ids of the
// same component (for example "L3HNone" and "L3H0") compare equal.
func canonicalToken(token string) string {
	return normalize.Encode(normalize.Decode(token))
}

func classifyFactors(factors []string) []models.Concern {
	concerns := make([]models.Concern, 0, len(factors))
	for _, f := range factors {
		if strings.TrimSpace(f) == "" {
			continue
		}
		concerns = append(concerns, normalize.ClassifyFactor(f))
	}
	return concerns
}

func indexOrMissing(v *int) int {
	if v == nil || *v < 0 {
		return normalize.MissingIndex
	}
	return *v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
