package domain

import "time"

// Format identifies a rendering of a filtered view.
type Format string

// Output formats supported by the export pipeline.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportArtifact captures a stored rendering of a view.
type ExportArtifact struct {
	ID          string    `json:"id"`
	Format      Format    `json:"format"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	URL         string    `json:"url,omitempty"`
	Rows        int       `json:"rows"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExportRecord tracks an export request and its resulting artifacts.
type ExportRecord struct {
	ID          string           `json:"id"`
	Filter      ExportFilter     `json:"filter"`
	Formats     []Format         `json:"formats"`
	Status      ExportStatus     `json:"status"`
	Error       string           `json:"error,omitempty"`
	Artifacts   []ExportArtifact `json:"artifacts,omitempty"`
	RequestedBy string           `json:"requested_by,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// ExportFilter is the serialized filter selection an export was taken under.
// It mirrors core.FilterState without importing it to keep domain leaf-free.
type ExportFilter struct {
	Search     string   `json:"search,omitempty"`
	Contagious *bool    `json:"contagious,omitempty"`
	Chronic    *bool    `json:"chronic,omitempty"`
	Categories []string `json:"categories,omitempty"`
	MaxRows    int      `json:"max_rows,omitempty"`
}

// Clone deep-copies the record so snapshots never alias worker-owned state.
func (r ExportRecord) Clone() ExportRecord {
	dup := r
	dup.Formats = append([]Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]ExportArtifact(nil), r.Artifacts...)
	}
	if r.Filter.Contagious != nil {
		v := *r.Filter.Contagious
		dup.Filter.Contagious = &v
	}
	if r.Filter.Chronic != nil {
		v := *r.Filter.Chronic
		dup.Filter.Chronic = &v
	}
	if len(r.Filter.Categories) > 0 {
		dup.Filter.Categories = append([]string(nil), r.Filter.Categories...)
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		dup.CompletedAt = &t
	}
	return dup
}
