package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := New(registry)

	if m.Operations == nil || m.HTTPRequests == nil || m.TxRetries == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.Operations.WithLabelValues("disburse_loan", "success").Inc()
	m.CustomersOpened.Inc()

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}

	if got := testutil.ToFloat64(m.Operations.WithLabelValues("disburse_loan", "success")); got != 1 {
		t.Fatalf("expected counter to be 1, got %v", got)
	}
}

func TestNewWithSeparateRegistries(t *testing.T) {
	// Two instances must not collide when registered on their own registries.
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}
