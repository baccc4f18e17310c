// Package observability exposes navigation metrics to Prometheus.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/geoshape/extension/internal/navigation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics of a simulation run. It records
// navigation steps and can be passed to the navigator as a Recorder.
type Collector struct {
	gatherer prometheus.Gatherer

	Steps         *prometheus.CounterVec
	DistanceKm    prometheus.Counter
	Arrivals      prometheus.Counter
	TickDurations prometheus.Histogram

	Entities     prometheus.Gauge
	CachedRoutes prometheus.Gauge
	SimSeconds   prometheus.Gauge
}

var _ navigation.Recorder = (*Collector)(nil)

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "navigation_steps_total",
		Help: "Movement steps written, labeled by navigation mode.",
	}, []string{"mode"}), "navigation_steps_total")
	if err != nil {
		return nil, err
	}
	distance, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "navigation_distance_km_total",
		Help: "Great-circle distance travelled by all entities, in kilometres.",
	}), "navigation_distance_km_total")
	if err != nil {
		return nil, err
	}
	arrivals, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "navigation_arrivals_total",
		Help: "Steps that ended on the aim point.",
	}), "navigation_arrivals_total")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "navigation_tick_duration_seconds",
		Help:    "Wall time spent advancing every entity once.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}), "navigation_tick_duration_seconds")
	if err != nil {
		return nil, err
	}
	entities, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simulation_entities",
		Help: "Entities in the store.",
	}), "simulation_entities")
	if err != nil {
		return nil, err
	}
	routes, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "navigation_cached_routes",
		Help: "Active routes held in the arc cache.",
	}), "navigation_cached_routes")
	if err != nil {
		return nil, err
	}
	simSeconds, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simulation_time_seconds",
		Help: "Simulated time elapsed since the scenario started.",
	}), "simulation_time_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:      gatherer,
		Steps:         steps,
		DistanceKm:    distance,
		Arrivals:      arrivals,
		TickDurations: durations,
		Entities:      entities,
		CachedRoutes:  routes,
		SimSeconds:    simSeconds,
	}, nil
}

// RecordStep counts a written step.
func (c *Collector) RecordStep(_ context.Context, step navigation.Step) error {
	if c == nil {
		return nil
	}
	c.Steps.WithLabelValues(step.Mode.String()).Inc()
	if step.Distance > 0 {
		c.DistanceKm.Add(step.Distance)
	}
	if step.Arrived {
		c.Arrivals.Inc()
	}
	return nil
}

// ObserveTick records the cost of one tick and the state after it.
func (c *Collector) ObserveTick(wallSeconds, simSeconds float64, entities, cachedRoutes int) {
	if c == nil {
		return
	}
	c.TickDurations.Observe(wallSeconds)
	c.SimSeconds.Set(simSeconds)
	c.Entities.Set(float64(entities))
	c.CachedRoutes.Set(float64(cachedRoutes))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
