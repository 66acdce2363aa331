package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestGatewayMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewGatewayMetrics(reg)
	op := "cart.add"
	metrics.ObserveDuration(op, 250*time.Millisecond)
	metrics.IncResponse(op, 200)
	metrics.IncResponse(op, 200)
	metrics.IncResponse(op, 409)
	metrics.IncTransportFailure(op)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "gateway_requests_total", map[string]string{"operation": op, "status": "200"}); err != nil {
		t.Fatalf("fetch 200: %v", err)
	} else if got != 2 {
		t.Fatalf("expected 200 count=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "gateway_requests_total", map[string]string{"operation": op, "status": "409"}); err != nil {
		t.Fatalf("fetch 409: %v", err)
	} else if got != 1 {
		t.Fatalf("expected 409 count=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "gateway_transport_failures_total", map[string]string{"operation": op}); err != nil {
		t.Fatalf("fetch failures: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failures=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "gateway_request_duration_seconds", "operation", op); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestGatewayMetricsNilSafe(t *testing.T) {
	var metrics *GatewayMetrics
	metrics.ObserveDuration("x", time.Second)
	metrics.IncResponse("x", 200)
	metrics.IncTransportFailure("x")

	unregistered := NewGatewayMetrics(nil)
	unregistered.IncResponse("", 500)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), map[string]string{label: value}) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
