package models

// HistoryItem is an abbreviated record of a past analysis.
type HistoryItem struct {
	ID            string    `json:"id"`
	Timestamp     string    `json:"timestamp"`
	PromptPreview string    `json:"promptPreview"`
	OutputPreview string    `json:"outputPreview"`
	RiskLevel     RiskLevel `json:"riskLevel"`
	Confidence    float64   `json:"confidence"`
}

// HealthStatus reports backend reachability.
type HealthStatus struct {
	Status            string `json:"status"`
	UpstreamConnected bool   `json:"upstreamConnected"`
	StoreConnected    bool   `json:"storeConnected"`
}
