package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/watcherai/glassbox-gateway/internal/utils"
)

// envelopePayload is the persisted record returned by backends that store results
// (discriminated by a top-level request_id).
type envelopePayload struct {
	RequestID      string              `json:"request_id"`
	Timestamp      flexTime            `json:"timestamp"`
	Prompt         string              `json:"prompt"`
	Response       string              `json:"response"`
	Summary        summaryBlock        `json:"summary"`
	Explanation    explainBlock        `json:"explanation"`
	Heads          []envelopeHead      `json:"heads"`
	Edges          []envelopeEdge      `json:"edges"`
	FlowSummary    string              `json:"flow_summary"`
	Concerns       []structuredConcern `json:"concerns"`
	Recommendation string              `json:"recommendation"`
	Metadata       metadataBlock       `json:"metadata"`
}

type headRef struct {
	Layer int  `json:"layer"`
	Head  *int `json:"head"`
}

type envelopeHead struct {
	Layer      int     `json:"layer"`
	Head       *int    `json:"head"`
	Importance float64 `json:"importance"`
	Label      string  `json:"label"`
	Role       string  `json:"role"`
}

type envelopeEdge struct {
	Source   headRef `json:"source"`
	Target   headRef `json:"target"`
	Strength string  `json:"strength"`
}

type structuredConcern struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// keyedPayload is the live backend shape (discriminated by key_components).
type keyedPayload struct {
	Summary         summaryBlock     `json:"summary"`
	Explanation     explainBlock     `json:"explanation"`
	KeyComponents   []keyedComponent `json:"key_components"`
	InformationFlow keyedFlow        `json:"information_flow"`
	RiskAssessment  riskAssessment   `json:"risk_assessment"`
	Metadata        metadataBlock    `json:"metadata"`
}

type keyedComponent struct {
	ID          string  `json:"id"`
	Importance  float64 `json:"importance"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
}

type keyedFlow struct {
	Summary string      `json:"summary"`
	Edges   []keyedEdge `json:"edges"`
}

type keyedEdge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Strength string `json:"strength"`
}

type riskAssessment struct {
	Level          string   `json:"level"`
	Factors        []string `json:"factors"`
	Recommendation string   `json:"recommendation"`
}

// flatPayload predates the nested summary blocks (discriminated by a components array).
type flatPayload struct {
	Confidence        float64          `json:"confidence"`
	RiskLevel         string           `json:"risk_level"`
	Complexity        float64          `json:"complexity"`
	Explanation       string           `json:"explanation"`
	ExplanationDetail string           `json:"explanation_detail"`
	Components        []flatComponent  `json:"components"`
	Connections       []flatConnection `json:"connections"`
	FlowSummary       string           `json:"flow_summary"`
	RiskFactors       []string         `json:"risk_factors"`
	Recommendation    string           `json:"recommendation"`
	AnalysisTimeMs    float64          `json:"analysis_time_ms"`
	Model             string           `json:"model"`
	NumHeads          int              `json:"num_heads"`
}

type flatComponent struct {
	ID         string  `json:"id"`
	Importance float64 `json:"importance"`
	Label      string  `json:"label"`
	Role       string  `json:"role"`
}

type flatConnection struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Weight   *float64 `json:"weight"`
	Strength string   `json:"strength"`
}

// legacyPayload is the earliest shape, with heads keyed by token (discriminated by a heads object).
type legacyPayload struct {
	Confidence      float64               `json:"confidence"`
	Risk            string                `json:"risk"`
	Complexity      float64               `json:"complexity"`
	Summary         string                `json:"summary"`
	Details         string                `json:"details"`
	Heads           map[string]legacyHead `json:"heads"`
	Flows           []legacyFlow          `json:"flows"`
	FlowDescription string                `json:"flow_description"`
	Warnings        []string              `json:"warnings"`
	Advice          string                `json:"advice"`
	ElapsedMs       float64               `json:"elapsed_ms"`
	ModelName       string                `json:"model_name"`
}

type legacyHead struct {
	Score       float64 `json:"score"`
	Description string  `json:"description"`
}

type legacyFlow struct {
	Src      string `json:"src"`
	Dst      string `json:"dst"`
	Strength string `json:"strength"`
}

type summaryBlock struct {
	Confidence  float64 `json:"confidence"`
	RiskLevel   string  `json:"risk_level"`
	PatternType string  `json:"pattern_type"`
	Complexity  float64 `json:"complexity"`
}

type explainBlock struct {
	Short         string `json:"short"`
	Detailed      string `json:"detailed"`
	ReasoningType string `json:"reasoning_type"`
}

type metadataBlock struct {
	AnalysisTimeMs   float64 `json:"analysis_time_ms"`
	ModelAnalyzed    string  `json:"model_analyzed"`
	NumHeadsAnalyzed int     `json:"num_heads_analyzed"`
	NumEdges         int     `json:"num_edges"`
}

// flexTime accepts a timestamp encoded either as a string or as a unix number.
// Unreadable values leave it zero so the adapter clock is used instead.
type flexTime struct {
	time.Time
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	if t, err := utils.ParseTimestamp(s); err == nil {
		f.Time = t
	}
	return nil
}
