package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is an uploaded source file (a standard, an amendment, a
// product catalog) awaiting extraction into passages.
type Document struct {
	ID           string         `json:"id"`
	Filename     string         `json:"filename"`
	MimeType     string         `json:"mime_type"`
	StoragePath  string         `json:"storage_path"`
	Source       string         `json:"source"`
	Priority     int            `json:"priority"`
	PassageCount int            `json:"passage_count,omitempty"`
	Status       DocumentStatus `json:"status"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
