// Package explorer adapts the filter/aggregate engine to HTTP: the JSON API,
// the embedded UI, synchronous CSV downloads, and the asynchronous export
// worker.
package explorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pathodex/internal/blob"
	"pathodex/internal/core"
	"pathodex/internal/ingest"
	"pathodex/pkg/domain"
)

// ViewSource evaluates filter states against the catalog.
type ViewSource interface {
	Filter(ctx context.Context, state core.FilterState) (core.View, error)
}

// ExportRecorder persists export records for the audit history.
type ExportRecorder interface {
	RecordExport(ctx context.Context, record domain.ExportRecord) error
}

// ExportInput represents an enqueue request for the worker.
type ExportInput struct {
	Filter      core.FilterState
	Formats     []domain.Format
	RequestedBy string
	Reason      string
}

// ExportScheduler queues export requests and exposes status.
type ExportScheduler interface {
	EnqueueExport(ctx context.Context, input ExportInput) (domain.ExportRecord, error)
	GetExport(id string) (domain.ExportRecord, bool)
}

// Worker executes exports asynchronously, rendering each requested format and
// storing the artifacts in the blob store.
type Worker struct {
	source   ViewSource
	store    blob.Store
	recorder ExportRecorder
	logger   *zap.Logger

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*domain.ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type exportTask struct {
	id    string
	input ExportInput
}

type renderedArtifact struct {
	artifact domain.ExportArtifact
	payload  []byte
}

const exportQueueDepth = 32

// NewWorker constructs an export worker. The recorder and logger may be nil.
func NewWorker(source ViewSource, store blob.Store, recorder ExportRecorder, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		source:   source,
		store:    store,
		recorder: recorder,
		logger:   logger,
		queue:    make(chan exportTask, exportQueueDepth),
		jobs:     make(map[string]*domain.ExportRecord),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

// EnqueueExport schedules an export job and returns the queued record.
func (w *Worker) EnqueueExport(ctx context.Context, input ExportInput) (domain.ExportRecord, error) {
	if w.source == nil {
		return domain.ExportRecord{}, fmt.Errorf("export source not configured")
	}
	if err := input.Filter.Validate(); err != nil {
		return domain.ExportRecord{}, err
	}

	formats := input.Formats
	if len(formats) == 0 {
		formats = []domain.Format{domain.FormatCSV, domain.FormatJSON}
	}
	uniq := make([]domain.Format, 0, len(formats))
	seen := make(map[domain.Format]struct{})
	for _, format := range formats {
		if _, duplicate := seen[format]; duplicate {
			continue
		}
		switch format {
		case domain.FormatCSV, domain.FormatJSON, domain.FormatHTML:
		default:
			return domain.ExportRecord{}, fmt.Errorf("unsupported export format %s", format)
		}
		uniq = append(uniq, format)
		seen[format] = struct{}{}
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	record := domain.ExportRecord{
		ID:          id,
		Filter:      input.Filter.ExportFilter(),
		Formats:     uniq,
		Status:      domain.ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	snapshot := record.Clone()
	w.mu.Unlock()

	// Persist the queued state before the task is visible to the worker. The
	// worker only sees the task after the channel send, so its running and
	// terminal persists always land after this one.
	w.persist(ctx, snapshot)

	select {
	case w.queue <- exportTask{id: id, input: input}:
	default:
		w.mu.Lock()
		delete(w.jobs, id)
		w.mu.Unlock()
		snapshot.Status = domain.ExportStatusFailed
		snapshot.Error = "export queue full"
		snapshot.UpdatedAt = time.Now().UTC()
		w.persist(ctx, snapshot)
		return domain.ExportRecord{}, fmt.Errorf("export queue full")
	}

	return snapshot, nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (domain.ExportRecord, bool) {
	w.mu.RLock()
	record, ok := w.jobs[id]
	if !ok {
		w.mu.RUnlock()
		return domain.ExportRecord{}, false
	}
	snapshot := record.Clone()
	w.mu.RUnlock()
	return snapshot, true
}

func (w *Worker) process(task exportTask) {
	w.updateStatus(task.id, domain.ExportStatusRunning, "")

	view, err := w.source.Filter(w.ctx, task.input.Filter)
	if err != nil {
		w.fail(task.id, fmt.Sprintf("filter failed: %v", err))
		return
	}

	record, ok := w.GetExport(task.id)
	if !ok {
		return
	}

	artifacts := make([]domain.ExportArtifact, 0, len(record.Formats))
	for _, format := range record.Formats {
		rendered, err := materialize(format, view)
		if err != nil {
			w.fail(task.id, err.Error())
			return
		}
		if w.store != nil {
			key := fmt.Sprintf("exports/%s/%s.%s", task.id, rendered.artifact.ID, format)
			info, err := w.store.Put(w.ctx, key, bytes.NewReader(rendered.payload), blob.PutOptions{
				ContentType: rendered.artifact.ContentType,
				Metadata:    map[string]string{"export": task.id, "format": string(format)},
			})
			if err != nil {
				w.fail(task.id, fmt.Sprintf("store artifact failed: %v", err))
				return
			}
			rendered.artifact.URL = info.URL
			if url, err := w.store.PresignURL(w.ctx, key, blob.SignedURLOptions{}); err == nil && url != "" {
				rendered.artifact.URL = url
			}
		}
		artifacts = append(artifacts, rendered.artifact)
	}

	w.complete(task.id, artifacts)
}

func (w *Worker) updateStatus(id string, status domain.ExportStatus, message string) {
	now := time.Now().UTC()
	var snapshot domain.ExportRecord
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = now
		snapshot = record.Clone()
	}
	w.mu.Unlock()
	if snapshot.ID != "" {
		w.persist(w.ctx, snapshot)
	}
}

func (w *Worker) complete(id string, artifacts []domain.ExportArtifact) {
	now := time.Now().UTC()
	var snapshot domain.ExportRecord
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = domain.ExportStatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
		snapshot = record.Clone()
	}
	w.mu.Unlock()
	if snapshot.ID != "" {
		w.persist(w.ctx, snapshot)
	}
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	var snapshot domain.ExportRecord
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = domain.ExportStatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
		snapshot = record.Clone()
	}
	w.mu.Unlock()
	w.logger.Warn("export failed", zap.String("id", id), zap.String("reason", reason))
	if snapshot.ID != "" {
		w.persist(w.ctx, snapshot)
	}
}

// persist records the snapshot in the audit history; failures are logged, not
// propagated, so persistence outages never break in-flight exports.
func (w *Worker) persist(ctx context.Context, record domain.ExportRecord) {
	if w.recorder == nil {
		return
	}
	if err := w.recorder.RecordExport(ctx, record); err != nil {
		w.logger.Warn("persist export record", zap.String("id", record.ID), zap.Error(err))
	}
}

func materialize(format domain.Format, view core.View) (renderedArtifact, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	switch format {
	case domain.FormatJSON:
		payload, err := json.Marshal(view)
		if err != nil {
			return renderedArtifact{}, fmt.Errorf("marshal json: %w", err)
		}
		return renderedArtifact{
			artifact: domain.ExportArtifact{
				ID:          id,
				Format:      domain.FormatJSON,
				ContentType: "application/json",
				SizeBytes:   int64(len(payload)),
				Rows:        len(view.Diseases),
				CreatedAt:   now,
			},
			payload: payload,
		}, nil
	case domain.FormatCSV:
		buf := &bytes.Buffer{}
		if err := ingest.Write(buf, view.Diseases); err != nil {
			return renderedArtifact{}, fmt.Errorf("render csv: %w", err)
		}
		payload := buf.Bytes()
		return renderedArtifact{
			artifact: domain.ExportArtifact{
				ID:          id,
				Format:      domain.FormatCSV,
				ContentType: "text/csv",
				SizeBytes:   int64(len(payload)),
				Rows:        len(view.Diseases),
				CreatedAt:   now,
			},
			payload: payload,
		}, nil
	case domain.FormatHTML:
		payload := buildHTML(view)
		return renderedArtifact{
			artifact: domain.ExportArtifact{
				ID:          id,
				Format:      domain.FormatHTML,
				ContentType: "text/html",
				SizeBytes:   int64(len(payload)),
				Rows:        len(view.Diseases),
				CreatedAt:   now,
			},
			payload: payload,
		}, nil
	default:
		return renderedArtifact{}, fmt.Errorf("unsupported export format %s", format)
	}
}

func buildHTML(view core.View) []byte {
	buf := &strings.Builder{}
	buf.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>Disease Export</title></head><body><table>")
	buf.WriteString("<thead><tr>")
	for _, column := range ingest.Columns {
		buf.WriteString("<th>")
		buf.WriteString(template.HTMLEscapeString(column))
		buf.WriteString("</th>")
	}
	buf.WriteString("</tr></thead><tbody>")
	for _, d := range view.Diseases {
		buf.WriteString("<tr>")
		cells := []string{
			d.Code,
			d.Name,
			strings.Join(d.Symptoms, ", "),
			strings.Join(d.Treatments, ", "),
			d.Category,
			yesNo(d.Contagious),
			yesNo(d.Chronic),
		}
		for _, cell := range cells {
			buf.WriteString("<td>")
			buf.WriteString(template.HTMLEscapeString(cell))
			buf.WriteString("</td>")
		}
		buf.WriteString("</tr>")
	}
	buf.WriteString("</tbody></table></body></html>")
	return []byte(buf.String())
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
