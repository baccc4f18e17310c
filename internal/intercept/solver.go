package intercept

import (
	"errors"
	"fmt"
	"math"

	"github.com/geoshape/extension/internal/geo"
	"github.com/geoshape/extension/internal/greatcircle"
)

var (
	// ErrNonPositiveSpeed is returned when the pursuer cannot move.
	ErrNonPositiveSpeed = errors.New("pursuer speed must be positive")
	// ErrMissingRoute is returned when a moving target has no route.
	ErrMissingRoute = errors.New("moving target has no route")
	// ErrUnreachable is returned when the target stays out of reach for the
	// whole search horizon, e.g. it flees faster than the pursuer flies.
	ErrUnreachable = fmt.Errorf("%w: target cannot be reached within the search horizon", ErrNoBracket)
)

// Pursuer is the entity trying to reach the target.
type Pursuer struct {
	Position geo.Vec3
	Speed    float64 // distance units per hour
}

// Target is an entity moving at constant speed along Route. A nil Route is
// only valid for a stationary target.
type Target struct {
	Position geo.Vec3
	Speed    float64
	Route    *greatcircle.Arc
}

// Solution describes the predicted rendezvous.
type Solution struct {
	// Point is where the target will be when the pursuer arrives.
	Point geo.Vec3
	// Time is the time to rendezvous in hours.
	Time float64
	// TargetTravel is the distance the target covers before the rendezvous.
	TargetTravel float64
	Iterations   int
}

// Solver predicts interception points on a sphere.
type Solver struct {
	sphere  geo.Sphere
	cfg     BisectConfig
	horizon float64
}

// SolverOption configures a Solver.
type SolverOption func(*Solver)

// WithTolerance sets the distance tolerance of the rendezvous point.
func WithTolerance(tolerance float64) SolverOption {
	return func(s *Solver) {
		s.cfg.Tolerance = tolerance
	}
}

// WithMaxIterations caps the bisection iterations.
func WithMaxIterations(n int) SolverOption {
	return func(s *Solver) {
		s.cfg.MaxIterations = n
	}
}

// WithHorizon limits how far ahead, in hours, the solver looks. Zero keeps
// the default of half a circumference at the pursuer's speed.
func WithHorizon(hours float64) SolverOption {
	return func(s *Solver) {
		s.horizon = hours
	}
}

// NewSolver creates a Solver on the given sphere.
func NewSolver(sphere geo.Sphere, opts ...SolverOption) *Solver {
	s := &Solver{
		sphere: sphere,
		cfg:    DefaultBisectConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve predicts where the pursuer meets the target, assuming neither
// changes course or speed. It finds the root of
//
//	f(t) = distance(target at t, pursuer) - pursuerSpeed*t
//
// on [0, πR/pursuerSpeed]. The distance tolerance is converted to a time
// tolerance at the pursuer's speed.
func (s *Solver) Solve(p Pursuer, t Target) (Solution, error) {
	if !(p.Speed > 0) {
		return Solution{}, ErrNonPositiveSpeed
	}
	if t.Speed != 0 && t.Route == nil {
		return Solution{}, ErrMissingRoute
	}

	targetAt := func(hours float64) geo.Vec3 {
		if t.Speed == 0 {
			return t.Position
		}
		return t.Route.Advance(t.Position, t.Speed*hours)
	}

	f := func(hours float64) float64 {
		return s.sphere.Distance(targetAt(hours), p.Position) - p.Speed*hours
	}

	upper := s.sphere.HalfCircumference() / p.Speed
	limited := s.horizon > 0 && s.horizon < upper
	if limited {
		upper = s.horizon
	}

	cfg := s.cfg
	cfg.Tolerance = s.cfg.Tolerance / p.Speed

	root, err := Bisect(f, 0, upper, cfg)
	if err != nil {
		if limited && errors.Is(err, ErrNoBracket) && f(upper) > 0 {
			return Solution{}, ErrUnreachable
		}
		return Solution{}, err
	}

	travel := t.Speed * root.X
	return Solution{
		Point:        targetAt(root.X),
		Time:         root.X,
		TargetTravel: travel,
		Iterations:   root.Iterations,
	}, nil
}

// Tolerance returns the distance tolerance of the rendezvous point.
func (s *Solver) Tolerance() float64 {
	return s.cfg.Tolerance
}

// IterationBound returns the most bisection iterations an unlimited-horizon
// solve can take. The time bracket and time tolerance both scale with
// 1/speed, so the bound depends only on the sphere and the tolerance.
func (s *Solver) IterationBound() int {
	if !(s.cfg.Tolerance > 0) {
		return 0
	}
	return int(math.Ceil(math.Log2(s.sphere.HalfCircumference() / s.cfg.Tolerance)))
}
