package intercept

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBisect_LinearFunction(t *testing.T) {
	f := func(x float64) float64 { return 3 - x }

	root, err := Bisect(f, 0, 10, BisectConfig{Tolerance: 1e-6, MaxIterations: 100})

	require.NoError(t, err)
	assert.InDelta(t, 3.0, root.X, 1e-6)
}

func TestBisect_IterationBound(t *testing.T) {
	tests := []struct {
		name         string
		f            func(float64) float64
		lower, upper float64
		tolerance    float64
		root         float64
	}{
		{"cubic", func(x float64) float64 { return x*x*x - 2 }, 0, 4, 1e-3, math.Cbrt(2)},
		{"decreasing", func(x float64) float64 { return math.Exp(-x) - 0.25 }, 0, 10, 0.1, math.Log(4)},
		{"wide bracket", func(x float64) float64 { return x - 12345.678 }, -1e6, 1e6, 0.01, 12345.678},
		{"tolerance wider than bracket", func(x float64) float64 { return x - 0.3 }, 0, 1, 2, 0.3},
		{"sqrt", func(x float64) float64 { return x*x - 2 }, 1, 2, 1e-9, math.Sqrt2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Bisect(tt.f, tt.lower, tt.upper, BisectConfig{Tolerance: tt.tolerance, MaxIterations: 200})
			require.NoError(t, err)

			bound := int(math.Ceil(math.Log2((tt.upper - tt.lower) / tt.tolerance)))
			if bound < 0 {
				bound = 0
			}
			assert.LessOrEqual(t, root.Iterations, bound)
			assert.InDelta(t, tt.root, root.X, tt.tolerance)
		})
	}
}

func TestBisect_ExactRootAtMidpoint(t *testing.T) {
	calls := 0
	f := func(x float64) float64 {
		calls++
		return x - 5
	}

	root, err := Bisect(f, 0, 10, BisectConfig{Tolerance: 1e-9, MaxIterations: 100})

	require.NoError(t, err)
	assert.Equal(t, 5.0, root.X)
	assert.Equal(t, 1, root.Iterations)
	assert.Equal(t, 3, calls)
}

func TestBisect_RootAtBound(t *testing.T) {
	f := func(x float64) float64 { return x }

	root, err := Bisect(f, 0, 10, DefaultBisectConfig())
	require.NoError(t, err)
	assert.Equal(t, 0.0, root.X)

	root, err = Bisect(func(x float64) float64 { return x - 10 }, 0, 10, DefaultBisectConfig())
	require.NoError(t, err)
	assert.Equal(t, 10.0, root.X)
}

func TestBisect_NoSignChange(t *testing.T) {
	f := func(x float64) float64 { return x*x + 1 }

	_, err := Bisect(f, -1, 1, DefaultBisectConfig())

	assert.ErrorIs(t, err, ErrNoBracket)
	assert.False(t, errors.Is(err, ErrNoSolution))
}

func TestBisect_InvalidBounds(t *testing.T) {
	_, err := Bisect(func(x float64) float64 { return x }, 10, -10, DefaultBisectConfig())

	assert.ErrorIs(t, err, ErrInvalidBounds)
	assert.ErrorIs(t, err, ErrNoBracket)
}

func TestBisect_IterationCapReached(t *testing.T) {
	f := func(x float64) float64 { return x - math.Pi }

	_, err := Bisect(f, 0, 1000, BisectConfig{Tolerance: 1e-12, MaxIterations: 5})

	assert.ErrorIs(t, err, ErrNoSolution)
	assert.False(t, errors.Is(err, ErrNoBracket))
}

func TestBisect_NaNAtBound(t *testing.T) {
	f := func(x float64) float64 {
		if x == 0 {
			return math.NaN()
		}
		return x
	}

	_, err := Bisect(f, 0, 1, DefaultBisectConfig())

	assert.ErrorIs(t, err, ErrNoBracket)
}

func TestBisect_NaNAtMidpoint(t *testing.T) {
	f := func(x float64) float64 {
		if x > 0.4 && x < 0.6 {
			return math.NaN()
		}
		return x - 0.75
	}

	_, err := Bisect(f, 0, 1, BisectConfig{Tolerance: 1e-6, MaxIterations: 100})

	assert.ErrorIs(t, err, ErrNoSolution)
}

func TestBisect_Float32(t *testing.T) {
	f := func(x float32) float32 { return x*x - 9 }

	root, err := Bisect(f, float32(0), float32(10), BisectConfig{Tolerance: 1e-3, MaxIterations: 100})

	require.NoError(t, err)
	assert.InDelta(t, 3.0, float64(root.X), 1e-3)
}
