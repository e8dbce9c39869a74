package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestJobMetricsRecordsOutcomes(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)

	m.ObserveDuration("sweep-expired", 150*time.Millisecond)
	m.IncSuccess("sweep-expired")
	m.IncFailure("sync-stock")
	m.IncSuccess("")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	byName := map[string]*dto.MetricFamily{}
	for _, family := range families {
		byName[family.GetName()] = family
	}

	success := byName["inventory_job_success"]
	if success == nil {
		t.Fatal("missing success counter family")
	}
	labels := map[string]float64{}
	for _, metric := range success.GetMetric() {
		labels[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
	}
	if labels["sweep-expired"] != 1 {
		t.Fatalf("unexpected success counts: %v", labels)
	}
	if labels["unknown"] != 1 {
		t.Fatalf("empty job name should count as unknown: %v", labels)
	}

	if byName["inventory_job_failure"] == nil {
		t.Fatal("missing failure counter family")
	}
	if byName["inventory_job_duration_seconds"] == nil {
		t.Fatal("missing duration histogram family")
	}
}

func TestJobMetricsNilSafe(t *testing.T) {
	t.Parallel()

	var m *JobMetrics
	m.ObserveDuration("x", time.Second)
	m.IncSuccess("x")
	m.IncFailure("x")

	empty := NewJobMetrics(nil)
	empty.IncSuccess("x")
}
