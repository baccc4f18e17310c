// Package intercept finds where a pursuer can meet a target that keeps
// following its own great circle.
package intercept

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

var (
	// ErrNoBracket is returned when bisection cannot even be attempted:
	// the function does not change sign between the bounds.
	ErrNoBracket = errors.New("no sign change between bounds")
	// ErrInvalidBounds is returned when the lower bound exceeds the upper bound.
	ErrInvalidBounds = fmt.Errorf("%w: lower bound above upper bound", ErrNoBracket)
	// ErrNoSolution is returned when the iteration cap is reached before the
	// bracket shrinks below the tolerance.
	ErrNoSolution = errors.New("no solution found within iteration limit")
)

// DefaultTolerance and DefaultMaxIterations match the host's historical solver.
const (
	DefaultTolerance     = 0.1
	DefaultMaxIterations = 100
)

// BisectConfig bounds a bisection run.
type BisectConfig struct {
	// Tolerance is the maximum distance between the returned root and the true root.
	Tolerance float64
	// MaxIterations caps the number of function evaluations after the bounds.
	MaxIterations int
}

// DefaultBisectConfig returns the defaults.
func DefaultBisectConfig() BisectConfig {
	return BisectConfig{Tolerance: DefaultTolerance, MaxIterations: DefaultMaxIterations}
}

// Root is the outcome of a successful bisection.
type Root[F constraints.Float] struct {
	X          F
	Iterations int
}

// Bisect finds x in [lower, upper] with f(x) = 0 for a continuous f whose sign
// differs at the two bounds. It halves the bracket until its half-width is
// within cfg.Tolerance or f hits zero exactly, so the number of iterations is
// at most ceil(log2((upper-lower)/tolerance)).
func Bisect[F constraints.Float](f func(F) F, lower, upper F, cfg BisectConfig) (Root[F], error) {
	if lower > upper {
		return Root[F]{}, ErrInvalidBounds
	}
	tolerance := F(cfg.Tolerance)

	fLower, fUpper := f(lower), f(upper)
	switch {
	case isNaN(fLower) || isNaN(fUpper):
		return Root[F]{}, fmt.Errorf("%w: function is NaN at a bound", ErrNoBracket)
	case fLower == 0:
		return Root[F]{X: lower}, nil
	case fUpper == 0:
		return Root[F]{X: upper}, nil
	case (fLower > 0) == (fUpper > 0):
		return Root[F]{}, ErrNoBracket
	}

	for i := 0; ; i++ {
		midpoint := lower + (upper-lower)/2
		if (upper-lower)/2 <= tolerance {
			return Root[F]{X: midpoint, Iterations: i}, nil
		}
		if i >= cfg.MaxIterations {
			return Root[F]{}, ErrNoSolution
		}

		value := f(midpoint)
		switch {
		case isNaN(value):
			return Root[F]{}, fmt.Errorf("%w: function is NaN at %v", ErrNoSolution, midpoint)
		case value == 0:
			return Root[F]{X: midpoint, Iterations: i + 1}, nil
		case (value > 0) == (fLower > 0):
			lower, fLower = midpoint, value
		default:
			upper = midpoint
		}
	}
}

func isNaN[F constraints.Float](v F) bool {
	return math.IsNaN(float64(v))
}
