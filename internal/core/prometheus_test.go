package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}

	ctx := context.Background()
	rec.Observe(ctx, "filter", true, 5*time.Millisecond)
	rec.Observe(ctx, "filter", false, time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond) // ignored

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	var resultTotal float64
	var sawDurations bool
	for _, family := range families {
		switch family.GetName() {
		case "pathodex_operation_results_total":
			for _, metric := range family.GetMetric() {
				resultTotal += metric.GetCounter().GetValue()
			}
		case "pathodex_operation_duration_seconds":
			sawDurations = true
		}
	}
	if resultTotal != 2 {
		t.Fatalf("expected 2 observed results, got %v", resultTotal)
	}
	if !sawDurations {
		t.Fatalf("expected the duration histogram to be registered")
	}
}

func TestPrometheusMetricsRecorderDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
