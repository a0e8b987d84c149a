package workflows

type ReviewRunInput struct {
	RunID       int64  `json:"run_id"`
	FolderPath  string `json:"folder_path"`
	Name        string `json:"name,omitempty"`
	StyleSample string `json:"style_sample,omitempty"`
	// MaxConcurrent bounds the AnalyzePaper activities in flight.
	MaxConcurrent int `json:"max_concurrent"`
}

type ReviewProgress struct {
	RunID    int64             `json:"run_id"`
	Stage    string            `json:"stage"`
	Status   string            `json:"status"`
	Total    int               `json:"total"`
	Analyzed int               `json:"analyzed"`
	Degraded int               `json:"degraded"`
	PerPaper map[string]string `json:"per_paper_status"`
	Error    string            `json:"error,omitempty"`
}
