package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geoshape/extension/internal/navigation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordStepCountsModesAndDistance(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	ctx := context.Background()
	_ = c.RecordStep(ctx, navigation.Step{Mode: navigation.ModeDirect, Distance: 10})
	_ = c.RecordStep(ctx, navigation.Step{Mode: navigation.ModeIntercept, Distance: 2.5})
	_ = c.RecordStep(ctx, navigation.Step{Mode: navigation.ModeDirect, Distance: 1, Arrived: true})

	if got := testutil.ToFloat64(c.Steps.WithLabelValues("direct")); got != 2 {
		t.Fatalf("navigation_steps_total{mode=direct} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.Steps.WithLabelValues("intercept")); got != 1 {
		t.Fatalf("navigation_steps_total{mode=intercept} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.DistanceKm); got != 13.5 {
		t.Fatalf("navigation_distance_km_total = %v, want 13.5", got)
	}
	if got := testutil.ToFloat64(c.Arrivals); got != 1 {
		t.Fatalf("navigation_arrivals_total = %v, want 1", got)
	}
}

func TestObserveTick(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	c.ObserveTick(0.002, 120, 4, 3)
	c.ObserveTick(0.001, 180, 4, 2)

	if got := histogramSampleCount(t, reg, "navigation_tick_duration_seconds"); got != 2 {
		t.Fatalf("navigation_tick_duration_seconds sample_count = %d, want 2", got)
	}
	if got := testutil.ToFloat64(c.SimSeconds); got != 180 {
		t.Fatalf("simulation_time_seconds = %v, want 180", got)
	}
	if got := testutil.ToFloat64(c.CachedRoutes); got != 2 {
		t.Fatalf("navigation_cached_routes = %v, want 2", got)
	}
}

func TestNewCollectorReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	second, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}

	second.Arrivals.Inc()
	if got := testutil.ToFloat64(first.Arrivals); got != 1 {
		t.Fatalf("shared arrivals counter = %v, want 1", got)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	if err := c.RecordStep(context.Background(), navigation.Step{}); err != nil {
		t.Fatalf("RecordStep on nil collector: %v", err)
	}
	c.ObserveTick(1, 1, 1, 1)
}

func TestMetricsHandlerExposesNavigationMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	_ = c.RecordStep(context.Background(), navigation.Step{Mode: navigation.ModeFallback, Distance: 3})
	c.ObserveTick(0.01, 60, 7, 1)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		`navigation_steps_total{mode="fallback"} 1`,
		"navigation_distance_km_total 3",
		"navigation_tick_duration_seconds",
		"simulation_entities 7",
		"simulation_time_seconds 60",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output:\n%s", metric, body)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name || mf.GetType() != dto.MetricType_HISTOGRAM {
			continue
		}
		for _, m := range mf.Metric {
			if h := m.GetHistogram(); h != nil {
				return h.GetSampleCount()
			}
		}
	}
	return 0
}
