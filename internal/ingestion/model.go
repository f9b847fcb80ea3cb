package ingestion

// Status is the lifecycle state of an ingestion.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Record is the externally visible state of one ingestion.
type Record struct {
	ID      string `json:"id"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Embedding is the mock vector produced for a completed ingestion. Its ID
// matches the Record ID.
type Embedding struct {
	ID       string         `json:"id"`
	Vector   []float32      `json:"embedding"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FileInfo describes the uploaded file handed to the simulator.
type FileInfo struct {
	Name     string
	MimeType string
	Size     int64
}
