package core

import (
	"bytes"
	"context"
	"testing"
	"time"

	"pathodex/internal/infra/persistence/memory"
	"pathodex/pkg/domain"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := NewService(store, Options{})
	if err := svc.LoadCatalog(context.Background(), sampleCatalog()); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return svc, store
}

func TestServiceLoadCatalogPersistsSnapshot(t *testing.T) {
	svc, store := newTestService(t)

	persisted, err := store.LoadCatalog(context.Background())
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(persisted) != len(svc.Catalog()) {
		t.Fatalf("expected %d persisted records, got %d", len(svc.Catalog()), len(persisted))
	}
}

func TestServiceRehydrateRestoresCatalog(t *testing.T) {
	_, store := newTestService(t)

	fresh := NewService(store, Options{})
	restored, err := fresh.Rehydrate(context.Background())
	if err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	if restored != 4 {
		t.Fatalf("expected 4 restored records, got %d", restored)
	}
	if got := len(fresh.Catalog()); got != 4 {
		t.Fatalf("expected rehydrated catalog of 4, got %d", got)
	}
}

func TestServiceGet(t *testing.T) {
	svc, _ := newTestService(t)

	d, ok := svc.Get("D002")
	if !ok || d.Name != "Diabetes" {
		t.Fatalf("expected D002 Diabetes, got %+v (ok=%v)", d, ok)
	}
	if _, ok := svc.Get("D999"); ok {
		t.Fatalf("expected miss for unknown code")
	}
}

func TestServiceCategoriesFirstSeenOrder(t *testing.T) {
	svc, _ := newTestService(t)
	got := svc.Categories()
	want := []string{"Respiratory", "Metabolic", "Neurological"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestServiceFilterRejectsInvalidState(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Filter(context.Background(), FilterState{MaxRows: -5}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestServiceSummaryUsesFilteredView(t *testing.T) {
	svc, _ := newTestService(t)
	summary, err := svc.Summary(context.Background(), FilterState{Contagious: boolPtr(true)})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Total != 2 || summary.Contagious != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestServiceRecordAndListExports(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	record := domain.ExportRecord{
		ID:        "exp-1",
		Status:    domain.ExportStatusQueued,
		Formats:   []domain.Format{domain.FormatCSV},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := svc.RecordExport(ctx, record); err != nil {
		t.Fatalf("record export: %v", err)
	}

	records, err := svc.ListExports(ctx)
	if err != nil {
		t.Fatalf("list exports: %v", err)
	}
	if len(records) != 1 || records[0].ID != "exp-1" {
		t.Fatalf("expected the recorded export, got %+v", records)
	}
}

func TestServiceObservabilitySeams(t *testing.T) {
	metrics := NewExpvarMetricsRecorder("")
	var traceLog bytes.Buffer
	tracer := NewJSONTracer(&traceLog)

	store := memory.NewStore()
	svc := NewService(store, Options{Metrics: metrics, Tracer: tracer})
	if err := svc.LoadCatalog(context.Background(), sampleCatalog()); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if _, err := svc.Filter(context.Background(), FilterState{}); err != nil {
		t.Fatalf("filter: %v", err)
	}
	if _, err := svc.Filter(context.Background(), FilterState{MaxRows: -1}); err == nil {
		t.Fatalf("expected filter validation error")
	}

	snapshot := metrics.Snapshot()
	if snapshot.Results["filter"]["success"] != 1 || snapshot.Results["filter"]["error"] != 1 {
		t.Fatalf("unexpected metric counts: %+v", snapshot.Results)
	}
	if snapshot.Results["load_catalog"]["success"] != 1 {
		t.Fatalf("expected load_catalog success, got %+v", snapshot.Results)
	}

	entries := tracer.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 trace entries, got %d", len(entries))
	}
	var sawError bool
	for _, entry := range entries {
		if entry.Operation == "filter" && entry.Status == "error" && entry.Error != "" {
			sawError = true
		}
	}
	if !sawError {
		t.Fatalf("expected an error span for the invalid filter, got %+v", entries)
	}
	if traceLog.Len() == 0 {
		t.Fatalf("expected trace log output")
	}
}
