package server

// HealthResponse reports server liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ModelInfo describes one landmark model the server can run.
type ModelInfo struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Present bool   `json:"present"`
}

// ModelsResponse lists available landmark models.
type ModelsResponse struct {
	Models []ModelInfo `json:"models"`
	Count  int         `json:"count"`
}

// AlignResult is the JSON summary of one aligned frame.
type AlignResult struct {
	ContentKind string     `json:"content_kind"`
	Confidence  float64    `json:"confidence"`
	Passes      int        `json:"passes,omitempty"`
	StopReason  string     `json:"stop_reason,omitempty"`
	FinalScore  float64    `json:"final_score,omitempty"`
	Converged   bool       `json:"converged"`
	Matrix      [6]float64 `json:"matrix"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
}

// AlignResponse wraps an alignment result or an error.
type AlignResponse struct {
	Success bool        `json:"success"`
	Result  AlignResult `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}
