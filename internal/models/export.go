package models

import "time"

// ViewMode selects between per-student summaries and per-record detail.
type ViewMode string

const (
	ViewSummary ViewMode = "summary"
	ViewDetail  ViewMode = "detail"
)

// Valid reports whether m is a known view mode.
func (m ViewMode) Valid() bool {
	return m == ViewSummary || m == ViewDetail
}

// ExportFormat enumerates server-side export formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportRequest asks the server to render and store an export.
type ExportRequest struct {
	View   ViewMode     `json:"view" validate:"required,oneof=summary detail"`
	Format ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
	Term   string       `json:"term"`
}

// ExportResult points at a stored export.
type ExportResult struct {
	FileName  string    `json:"file_name"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
