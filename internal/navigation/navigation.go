// Package navigation moves host entities towards their goals along great
// circles, intercepting goals that move on their own.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/geoshape/extension/internal/geo"
	"github.com/geoshape/extension/internal/intercept"
)

var (
	ErrUnknownEntity       = errors.New("unknown entity")
	ErrNoGoal              = errors.New("entity has no goal")
	ErrGoalWithoutPosition = errors.New("goal has no position")
	ErrInvalidSpeed        = errors.New("entity speed must be positive")
	ErrNegativeElapsed     = errors.New("elapsed time must not be negative")
	// ErrNoActiveRoute is returned by Route when the entity has not moved yet.
	ErrNoActiveRoute = errors.New("entity has no active route")
	// ErrNotIntercepting is returned by Intercept when the goal is static or
	// is itself chasing the entity.
	ErrNotIntercepting = errors.New("goal is pursued directly")
)

// EntityID identifies an entity in the host's store.
type EntityID uint32

// Store gives access to the host-owned entity state. Lookups report false
// when the entity (or the requested component) does not exist.
type Store interface {
	Entities() []EntityID
	Position(id EntityID) (geo.Position2D, bool)
	// Speed in km/h.
	Speed(id EntityID) (float64, bool)
	Goal(id EntityID) (EntityID, bool)
	CanMove(id EntityID) bool
	SetPosition(id EntityID, pos geo.Position2D)
	SetHeading(id EntityID, heading geo.Vec2)
}

// Mode is the strategy used to pick the point an entity flies towards.
type Mode int

const (
	// ModeDirect flies at the goal's current position.
	ModeDirect Mode = iota
	// ModeIntercept flies at the predicted rendezvous with a moving goal.
	ModeIntercept
	// ModeFallback flies at a moving goal's current position because no
	// rendezvous could be predicted.
	ModeFallback
)

func (m Mode) String() string {
	switch m {
	case ModeDirect:
		return "direct"
	case ModeIntercept:
		return "intercept"
	case ModeFallback:
		return "fallback"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// HeadingMode selects how the written heading is derived from the route.
type HeadingMode string

const (
	// HeadingBearing uses the exact direction of travel.
	HeadingBearing HeadingMode = "bearing"
	// HeadingFiniteDifference steps one kilometre ahead in map space, like
	// older hosts did.
	HeadingFiniteDifference HeadingMode = "finite-difference"
)

// ParseHeadingMode converts a configuration value to a HeadingMode.
func ParseHeadingMode(s string) (HeadingMode, error) {
	switch HeadingMode(strings.ToLower(strings.TrimSpace(s))) {
	case HeadingBearing, "":
		return HeadingBearing, nil
	case HeadingFiniteDifference:
		return HeadingFiniteDifference, nil
	default:
		return "", fmt.Errorf("unknown heading mode %q", s)
	}
}

// Step describes one movement of one entity.
type Step struct {
	Entity  EntityID
	Goal    EntityID
	Mode    Mode
	Elapsed time.Duration
	// From is the projected position before the step.
	From     geo.Position2D
	Position geo.Position2D
	LatLon   geo.LatLon
	Heading  geo.Vec2
	// Distance travelled in km.
	Distance float64
	// Remaining km to the aim point after the step.
	Remaining float64
	Arrived   bool
	CacheHit  bool
	// Interception is set in ModeIntercept.
	Interception *intercept.Solution
}

// Recorder receives every step that wrote a new position.
type Recorder interface {
	RecordStep(ctx context.Context, step Step) error
}

// DefaultArcCacheSize bounds the number of active routes kept between ticks.
const DefaultArcCacheSize = 1024

// Navigator advances entities of a Store along great circles. It is safe for
// concurrent use; calls are serialized.
type Navigator struct {
	mu sync.Mutex

	store   Store
	sphere  geo.Sphere
	proj    geo.Projection
	heading HeadingMode

	solverOpts []intercept.SolverOption
	solver     *intercept.Solver

	cacheSize int
	arcs      *ArcCache

	logger    *slog.Logger
	recorders []Recorder
	metrics   *instruments
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithSphere overrides the planet, default geo.Earth.
func WithSphere(s geo.Sphere) Option {
	return func(n *Navigator) { n.sphere = s }
}

// WithProjection overrides the host map projection.
func WithProjection(p geo.Projection) Option {
	return func(n *Navigator) { n.proj = p }
}

// WithHeadingMode selects how headings are computed.
func WithHeadingMode(m HeadingMode) Option {
	return func(n *Navigator) { n.heading = m }
}

// WithSolverOptions configures the interception solver.
func WithSolverOptions(opts ...intercept.SolverOption) Option {
	return func(n *Navigator) { n.solverOpts = append(n.solverOpts, opts...) }
}

// WithArcCacheSize bounds the route cache.
func WithArcCacheSize(size int) Option {
	return func(n *Navigator) { n.cacheSize = size }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(n *Navigator) { n.logger = l }
}

// WithRecorder adds a step recorder.
func WithRecorder(r Recorder) Option {
	return func(n *Navigator) { n.recorders = append(n.recorders, r) }
}

// New creates a Navigator over store.
func New(store Store, opts ...Option) (*Navigator, error) {
	n := &Navigator{
		store:     store,
		sphere:    geo.Earth,
		proj:      geo.DefaultProjection,
		heading:   HeadingBearing,
		cacheSize: DefaultArcCacheSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}

	n.solver = intercept.NewSolver(n.sphere, n.solverOpts...)

	arcs, err := NewArcCache(n.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating arc cache: %w", err)
	}
	n.arcs = arcs

	n.metrics, err = newInstruments()
	if err != nil {
		return nil, err
	}

	return n, nil
}

// Projection returns the map projection used for host positions.
func (n *Navigator) Projection() geo.Projection {
	return n.proj
}

// Sphere returns the planet the navigator works on.
func (n *Navigator) Sphere() geo.Sphere {
	return n.sphere
}

// Forget drops the cached route of id. Call it when the entity is removed or
// its goal is reassigned by the host.
func (n *Navigator) Forget(id EntityID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.arcs.Invalidate(id)
}

// Reset drops every cached route.
func (n *Navigator) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.arcs.Purge()
}

// CachedRoutes returns the number of routes currently cached.
func (n *Navigator) CachedRoutes() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.arcs.Len()
}
