package models

// RiskLevel is the overall risk classification of an analysed output.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Severity categorises a single concern.
type Severity string

const (
	SeverityBenign  Severity = "benign"
	SeverityCaution Severity = "caution"
	SeveritySevere  Severity = "severe"
)

// SchemaVersion names the wire shape a result was adapted from.
type SchemaVersion string

const (
	SchemaLegacy   SchemaVersion = "legacy"
	SchemaFlat     SchemaVersion = "flat"
	SchemaKeyed    SchemaVersion = "keyed"
	SchemaEnvelope SchemaVersion = "envelope"
)

// Component is one analysed unit of the inspected model, identified by layer and sub-unit.
type Component struct {
	Layer      int     `json:"layer"`
	SubUnit    int     `json:"subUnit"`
	Token      string  `json:"token"`
	Importance float64 `json:"importance"`
	Label      string  `json:"label"`
}

// Connection is a weighted directed information-flow edge between two component tokens.
type Connection struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Weight float64 `json:"weight"`
}

// Concern is a categorised risk note attached to a result.
type Concern struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// CanonicalResult is the version-independent analysis record handed to callers.
// It is created once when a wire payload is adapted and never mutated afterwards.
type CanonicalResult struct {
	ID             string        `json:"id"`
	Timestamp      string        `json:"timestamp"`
	Prompt         string        `json:"prompt"`
	Output         string        `json:"output"`
	Confidence     float64       `json:"confidence"`
	RiskLevel      RiskLevel     `json:"riskLevel"`
	Complexity     float64       `json:"complexity"`
	ComponentCount int           `json:"componentCount"`
	Explanation    string        `json:"explanation"`
	Components     []Component   `json:"components"`
	Connections    []Connection  `json:"connections"`
	FlowSummary    string        `json:"flowSummary"`
	Concerns       []Concern     `json:"concerns"`
	AnalysisTimeMs float64       `json:"analysisTimeMs"`
	ModelAnalyzed  string        `json:"modelAnalyzed"`
	Recommendation string        `json:"recommendation"`
	SchemaVersion  SchemaVersion `json:"schemaVersion"`
}

// DanglingConnections returns the connections whose endpoints are missing from Components.
func (r CanonicalResult) DanglingConnections() []Connection {
	known := make(map[string]struct{}, len(r.Components))
	for _, c := range r.Components {
		known[c.Token] = struct{}{}
	}
	var dangling []Connection
	for _, conn := range r.Connections {
		_, fromOK := known[conn.From]
		_, toOK := known[conn.To]
		if !fromOK || !toOK {
			dangling = append(dangling, conn)
		}
	}
	return dangling
}
