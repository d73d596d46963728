package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"pathodex/pkg/domain"
)

// Service exposes the catalog, filter, and summary operations to the HTTP
// adapters, persisting catalog snapshots and export history through the
// configured store.
type Service struct {
	mu      sync.RWMutex
	catalog domain.Catalog

	store   domain.PersistentStore
	metrics MetricsRecorder
	tracer  Tracer
	logger  *zap.Logger
}

// Options carries optional service dependencies. Nil fields are replaced with
// no-op implementations.
type Options struct {
	Metrics MetricsRecorder
	Tracer  Tracer
	Logger  *zap.Logger
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
		logger:  logger,
	}
}

// Store returns the underlying persistence implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

func (s *Service) observe(ctx context.Context, operation string, fn func(context.Context) error) error {
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operation)
	}
	started := time.Now()
	err := fn(ctx)
	if s.metrics != nil {
		s.metrics.Observe(ctx, operation, err == nil, time.Since(started))
	}
	if span != nil {
		span.End(err)
	}
	return err
}

// LoadCatalog installs the catalog and persists it as the current snapshot.
func (s *Service) LoadCatalog(ctx context.Context, catalog domain.Catalog) error {
	return s.observe(ctx, "load_catalog", func(ctx context.Context) error {
		clone := catalog.Clone()
		s.mu.Lock()
		s.catalog = clone
		s.mu.Unlock()
		if s.store == nil {
			return nil
		}
		if err := s.store.SaveCatalog(ctx, clone); err != nil {
			return fmt.Errorf("persist catalog snapshot: %w", err)
		}
		s.logger.Info("catalog loaded", zap.Int("diseases", len(clone)))
		return nil
	})
}

// Rehydrate restores the catalog from the persisted snapshot. It returns the
// number of records restored.
func (s *Service) Rehydrate(ctx context.Context) (int, error) {
	var restored int
	err := s.observe(ctx, "rehydrate_catalog", func(ctx context.Context) error {
		if s.store == nil {
			return fmt.Errorf("no persistent store configured")
		}
		diseases, err := s.store.LoadCatalog(ctx)
		if err != nil {
			return fmt.Errorf("load catalog snapshot: %w", err)
		}
		s.mu.Lock()
		s.catalog = domain.Catalog(diseases).Clone()
		restored = len(s.catalog)
		s.mu.Unlock()
		s.logger.Info("catalog rehydrated", zap.Int("diseases", restored))
		return nil
	})
	return restored, err
}

// Catalog returns a deep copy of the full catalog.
func (s *Service) Catalog() domain.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Clone()
}

// Categories returns the distinct category tags of the catalog.
func (s *Service) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Categories()
}

// Filter evaluates the filter state against the catalog.
func (s *Service) Filter(ctx context.Context, state FilterState) (View, error) {
	var view View
	err := s.observe(ctx, "filter", func(context.Context) error {
		if err := state.Validate(); err != nil {
			return err
		}
		s.mu.RLock()
		catalog := s.catalog
		s.mu.RUnlock()
		view = ApplyFilters(catalog, state)
		return nil
	})
	return view, err
}

// Summary computes aggregates over the filtered view.
func (s *Service) Summary(ctx context.Context, state FilterState) (Summary, error) {
	var summary Summary
	err := s.observe(ctx, "summary", func(ctx context.Context) error {
		view, err := s.Filter(ctx, state)
		if err != nil {
			return err
		}
		summary = Summarize(view)
		return nil
	})
	return summary, err
}

// Get looks a disease up by its code.
func (s *Service) Get(code string) (domain.Disease, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.catalog {
		if d.Code == code {
			return d.Clone(), true
		}
	}
	return domain.Disease{}, false
}

// RecordExport persists an export record for the audit history.
func (s *Service) RecordExport(ctx context.Context, record domain.ExportRecord) error {
	return s.observe(ctx, "record_export", func(ctx context.Context) error {
		if s.store == nil {
			return nil
		}
		return s.store.RecordExport(ctx, record)
	})
}

// ListExports returns persisted export records.
func (s *Service) ListExports(ctx context.Context) ([]domain.ExportRecord, error) {
	var records []domain.ExportRecord
	err := s.observe(ctx, "list_exports", func(ctx context.Context) error {
		if s.store == nil {
			return nil
		}
		var err error
		records, err = s.store.ListExports(ctx)
		return err
	})
	return records, err
}
