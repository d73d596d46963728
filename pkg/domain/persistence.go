package domain

import "context"

// Snapshot captures a point-in-time clone of the persisted state. Stores
// serialize each field as an independent JSON bucket.
type Snapshot struct {
	Diseases []Disease      `json:"diseases"`
	Exports  []ExportRecord `json:"exports"`
}

// Clone deep-copies the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{}
	if s.Diseases != nil {
		out.Diseases = append([]Disease(nil), Catalog(s.Diseases).Clone()...)
	}
	if s.Exports != nil {
		out.Exports = make([]ExportRecord, len(s.Exports))
		for i, rec := range s.Exports {
			out.Exports[i] = rec.Clone()
		}
	}
	return out
}

// PersistentStore persists the catalog snapshot and the export history across
// restarts. Implementations must be safe for concurrent use.
type PersistentStore interface {
	// SaveCatalog replaces the persisted catalog snapshot.
	SaveCatalog(ctx context.Context, diseases []Disease) error
	// LoadCatalog returns the persisted catalog, or an empty slice when no
	// snapshot exists yet.
	LoadCatalog(ctx context.Context) ([]Disease, error)
	// RecordExport appends or updates an export record keyed by its ID.
	RecordExport(ctx context.Context, record ExportRecord) error
	// ListExports returns export records ordered by creation time.
	ListExports(ctx context.Context) ([]ExportRecord, error)
	// Close releases any underlying resources.
	Close() error
}
