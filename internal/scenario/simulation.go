package scenario

import (
	"time"

	"github.com/geoshape/extension/internal/cache"
	"github.com/geoshape/extension/internal/geo"
	"github.com/geoshape/extension/internal/navigation"
	"github.com/geoshape/extension/internal/observability"
	"github.com/rs/zerolog"
)

// Simulation advances every entity on each clock tick.
type Simulation struct {
	nav     *navigation.Navigator
	store   *cache.EntityStore
	metrics *observability.Collector
	log     zerolog.Logger
	start   time.Time

	steps    int
	arrivals int
	idle     bool
}

// NewSimulation creates a simulation whose clock starts at start. metrics
// may be nil.
func NewSimulation(nav *navigation.Navigator, store *cache.EntityStore, metrics *observability.Collector, log zerolog.Logger, start time.Time) *Simulation {
	return &Simulation{nav: nav, store: store, metrics: metrics, log: log, start: start}
}

// OnTick is a timectrl listener.
func (s *Simulation) OnTick(now time.Time, dt time.Duration) {
	began := time.Now()
	steps := s.nav.Tick(dt)
	s.metrics.ObserveTick(time.Since(began).Seconds(), now.Sub(s.start).Seconds(), s.store.Len(), s.nav.CachedRoutes())

	s.steps += len(steps)
	s.idle = len(steps) == 0
	for _, step := range steps {
		if !step.Arrived {
			continue
		}
		s.arrivals++
		s.log.Info().
			Uint32("entity", uint32(step.Entity)).
			Uint32("goal", uint32(step.Goal)).
			Str("mode", step.Mode.String()).
			Dur("simTime", now.Sub(s.start)).
			Float64("lat", step.LatLon.Lat).
			Float64("lon", step.LatLon.Lon).
			Msg("Entity arrived")
	}
	s.log.Debug().Int("steps", len(steps)).Time("simNow", now).Msg("Tick")
}

// Idle reports whether the last tick moved nothing. Once idle, later ticks
// cannot move anything either until the store changes.
func (s *Simulation) Idle() bool {
	return s.idle
}

// Stats returns the steps written and arrivals seen so far.
func (s *Simulation) Stats() (steps, arrivals int) {
	return s.steps, s.arrivals
}

// Position is the reported state of one entity.
type Position struct {
	ID     uint32
	LatLon geo.LatLon
}

// Positions returns every entity's geographic position, sorted by id.
func (s *Simulation) Positions() []Position {
	proj := s.nav.Projection()
	ids := s.store.Entities()
	out := make([]Position, 0, len(ids))
	for _, id := range ids {
		pos, ok := s.store.Position(id)
		if !ok {
			continue
		}
		out = append(out, Position{ID: uint32(id), LatLon: proj.ToGeographic(pos)})
	}
	return out
}
