// Package ingest reads and writes the fixed-schema disease CSV. The loader
// and writer share one column order so an exported view re-parses into an
// equivalent record sequence.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"pathodex/pkg/domain"
)

// Columns is the canonical header, in load and export order.
var Columns = []string{"Disease_Code", "Name", "Symptoms", "Treatments", "Category", "Contagious", "Chronic"}

// legacyColumns is the header of source files that predate the Category tag.
var legacyColumns = []string{"Disease_Code", "Name", "Symptoms", "Treatments", "Contagious", "Chronic"}

const listSeparator = ","

// Result reports what a load produced.
type Result struct {
	Catalog domain.Catalog
	Skipped int
}

// Load parses the CSV stream. Malformed rows are skipped with a warning and
// do not abort the load.
func Load(r io.Reader, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return Result{}, fmt.Errorf("empty input: header row required")
	}
	if err != nil {
		return Result{}, fmt.Errorf("read header: %w", err)
	}
	hasCategory, err := matchHeader(header)
	if err != nil {
		return Result{}, err
	}

	result := Result{Catalog: domain.Catalog{}}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Skipped++
			logger.Warn("skipping malformed row", zap.Int("line", line), zap.Error(err))
			continue
		}
		disease, err := parseRow(row, hasCategory)
		if err != nil {
			result.Skipped++
			logger.Warn("skipping malformed row", zap.Int("line", line), zap.Error(err))
			continue
		}
		result.Catalog = append(result.Catalog, disease)
	}
	return result, nil
}

// LoadFile opens and parses a CSV file.
func LoadFile(path string, logger *zap.Logger) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f, logger)
}

func matchHeader(header []string) (hasCategory bool, err error) {
	if headerEqual(header, Columns) {
		return true, nil
	}
	if headerEqual(header, legacyColumns) {
		return false, nil
	}
	return false, fmt.Errorf("unexpected header %v", header)
}

func headerEqual(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if !strings.EqualFold(strings.TrimSpace(got[i]), want[i]) {
			return false
		}
	}
	return true
}

func parseRow(row []string, hasCategory bool) (domain.Disease, error) {
	want := len(legacyColumns)
	if hasCategory {
		want = len(Columns)
	}
	if len(row) != want {
		return domain.Disease{}, fmt.Errorf("expected %d fields, got %d", want, len(row))
	}

	d := domain.Disease{
		Code:       strings.TrimSpace(row[0]),
		Name:       strings.TrimSpace(row[1]),
		Symptoms:   splitList(row[2]),
		Treatments: splitList(row[3]),
		Category:   domain.CategoryUncategorized,
	}
	idx := 4
	if hasCategory {
		if category := strings.TrimSpace(row[4]); category != "" {
			d.Category = category
		}
		idx = 5
	}
	if d.Name == "" {
		return domain.Disease{}, fmt.Errorf("name must not be empty")
	}

	contagious, err := parseBool(row[idx])
	if err != nil {
		return domain.Disease{}, fmt.Errorf("contagious: %w", err)
	}
	chronic, err := parseBool(row[idx+1])
	if err != nil {
		return domain.Disease{}, fmt.Errorf("chronic: %w", err)
	}
	d.Contagious = contagious
	d.Chronic = chronic
	return d, nil
}

func splitList(field string) []string {
	var out []string
	for _, part := range strings.Split(field, listSeparator) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseBool(field string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", field)
	}
}

// Write serializes records using the canonical column order. An empty catalog
// produces a header-only document.
func Write(w io.Writer, catalog domain.Catalog) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return err
	}
	for _, d := range catalog {
		record := []string{
			d.Code,
			d.Name,
			strings.Join(d.Symptoms, listSeparator+" "),
			strings.Join(d.Treatments, listSeparator+" "),
			d.Category,
			formatBool(d.Contagious),
			formatBool(d.Chronic),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
