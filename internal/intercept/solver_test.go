package intercept

import (
	"math"
	"testing"

	"github.com/geoshape/extension/internal/geo"
	"github.com/geoshape/extension/internal/greatcircle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normal(lat, lon float64) geo.Vec3 {
	return geo.GeographicToNormal(geo.LatLon{Lat: lat, Lon: lon})
}

func route(t *testing.T, from, to geo.Vec3) *greatcircle.Arc {
	t.Helper()
	a, err := greatcircle.New(from, to, geo.Earth)
	require.NoError(t, err)
	return a
}

// tenDegrees is the surface distance spanned by ten degrees of arc.
var tenDegrees = 10 * math.Pi / 180 * geo.EarthRadiusKm

func TestSolve_StaticTargetIsDirectPursuit(t *testing.T) {
	s := NewSolver(geo.Earth)
	target := normal(0, 10)

	sol, err := s.Solve(Pursuer{Position: normal(0, 0), Speed: 900}, Target{Position: target})

	require.NoError(t, err)
	assert.InDelta(t, tenDegrees/900, sol.Time, 0.1/900)
	assert.Equal(t, target, sol.Point)
	assert.Zero(t, sol.TargetTravel)
}

func TestSolve_TargetAlreadyReached(t *testing.T) {
	s := NewSolver(geo.Earth)
	p := normal(20, 20)

	sol, err := s.Solve(
		Pursuer{Position: p, Speed: 500},
		Target{Position: p, Speed: 200, Route: route(t, p, normal(30, 40))},
	)

	require.NoError(t, err)
	assert.Zero(t, sol.Time)
	assert.Zero(t, sol.Iterations)
}

func TestSolve_MovingTargets(t *testing.T) {
	tests := []struct {
		name        string
		targetGoal  geo.Vec3
		pursuer     float64
		target      float64
		wantTime    float64
		wantLonDegs float64
	}{
		{
			name:        "fleeing along line of sight",
			targetGoal:  normal(0, 90),
			pursuer:     900,
			target:      300,
			wantTime:    tenDegrees / 600,
			wantLonDegs: 15,
		},
		{
			name:        "head on",
			targetGoal:  normal(0, -90),
			pursuer:     900,
			target:      300,
			wantTime:    tenDegrees / 1200,
			wantLonDegs: 7.5,
		},
		{
			name:        "equal speeds head on",
			targetGoal:  normal(0, -90),
			pursuer:     400,
			target:      400,
			wantTime:    tenDegrees / 800,
			wantLonDegs: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSolver(geo.Earth)
			start := normal(0, 10)

			sol, err := s.Solve(
				Pursuer{Position: normal(0, 0), Speed: tt.pursuer},
				Target{Position: start, Speed: tt.target, Route: route(t, start, tt.targetGoal)},
			)
			require.NoError(t, err)

			assert.InDelta(t, tt.wantTime, sol.Time, 1e-3)
			got := geo.NormalToGeographic(sol.Point)
			assert.InDelta(t, 0.0, got.Lat, 1e-6)
			assert.InDelta(t, tt.wantLonDegs, got.Lon, 0.01)
			assert.InDelta(t, tt.target*sol.Time, sol.TargetTravel, 1e-9)
		})
	}
}

func TestSolve_CrossingTargetMeetsAtEqualTravelTimes(t *testing.T) {
	s := NewSolver(geo.Earth)
	pursuer := Pursuer{Position: normal(48.8, 2.3), Speed: 850}
	start := normal(40.4, -3.7)
	target := Target{Position: start, Speed: 400, Route: route(t, start, normal(52.5, 13.4))}

	sol, err := s.Solve(pursuer, target)
	require.NoError(t, err)

	// the pursuer covers the distance to the rendezvous in the same time
	flown := geo.Earth.Distance(pursuer.Position, sol.Point)
	assert.InDelta(t, pursuer.Speed*sol.Time, flown, 0.5)
	assert.LessOrEqual(t, sol.Iterations, s.IterationBound())
}

func TestSolve_FasterTargetCaughtOnTheFarSide(t *testing.T) {
	s := NewSolver(geo.Earth)
	pursuer := Pursuer{Position: normal(0, 0), Speed: 300}
	start := normal(0, 10)
	target := Target{Position: start, Speed: 900, Route: route(t, start, normal(0, 90))}

	sol, err := s.Solve(pursuer, target)
	require.NoError(t, err)

	// the target laps around the globe and comes back within reach
	flown := geo.Earth.Distance(pursuer.Position, sol.Point)
	assert.InDelta(t, pursuer.Speed*sol.Time, flown, 1.0)
	assert.Greater(t, sol.TargetTravel, tenDegrees)
}

func TestSolve_UnreachableWithinHorizon(t *testing.T) {
	s := NewSolver(geo.Earth, WithHorizon(5))
	start := normal(0, 10)

	_, err := s.Solve(
		Pursuer{Position: normal(0, 0), Speed: 300},
		Target{Position: start, Speed: 900, Route: route(t, start, normal(0, 90))},
	)

	assert.ErrorIs(t, err, ErrUnreachable)
	assert.ErrorIs(t, err, ErrNoBracket)
}

func TestSolve_HorizonWideEnough(t *testing.T) {
	s := NewSolver(geo.Earth, WithHorizon(10))

	sol, err := s.Solve(Pursuer{Position: normal(0, 0), Speed: 900}, Target{Position: normal(0, 10)})

	require.NoError(t, err)
	assert.InDelta(t, tenDegrees/900, sol.Time, 1e-3)
}

func TestSolve_InvalidInput(t *testing.T) {
	s := NewSolver(geo.Earth)
	start := normal(0, 10)

	tests := []struct {
		name    string
		pursuer Pursuer
		target  Target
		wantErr error
	}{
		{"zero pursuer speed", Pursuer{Position: normal(0, 0)}, Target{Position: start}, ErrNonPositiveSpeed},
		{"negative pursuer speed", Pursuer{Position: normal(0, 0), Speed: -10}, Target{Position: start}, ErrNonPositiveSpeed},
		{"NaN pursuer speed", Pursuer{Position: normal(0, 0), Speed: math.NaN()}, Target{Position: start}, ErrNonPositiveSpeed},
		{"moving target without route", Pursuer{Position: normal(0, 0), Speed: 100}, Target{Position: start, Speed: 50}, ErrMissingRoute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Solve(tt.pursuer, tt.target)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSolve_IterationCap(t *testing.T) {
	s := NewSolver(geo.Earth, WithMaxIterations(2))

	_, err := s.Solve(Pursuer{Position: normal(0, 0), Speed: 900}, Target{Position: normal(0, 10)})

	assert.ErrorIs(t, err, ErrNoSolution)
}

func TestSolve_ToleranceControlsPrecision(t *testing.T) {
	coarse := NewSolver(geo.Earth, WithTolerance(50))
	fine := NewSolver(geo.Earth, WithTolerance(0.001))
	pursuer := Pursuer{Position: normal(0, 0), Speed: 900}
	target := Target{Position: normal(0, 10)}

	c, err := coarse.Solve(pursuer, target)
	require.NoError(t, err)
	f, err := fine.Solve(pursuer, target)
	require.NoError(t, err)

	assert.Less(t, c.Iterations, f.Iterations)
	assert.InDelta(t, tenDegrees/900, c.Time, 50.0/900)
	assert.InDelta(t, tenDegrees/900, f.Time, 0.001/900)
}

func TestIterationBound(t *testing.T) {
	s := NewSolver(geo.Earth)
	want := int(math.Ceil(math.Log2(math.Pi * geo.EarthRadiusKm / DefaultTolerance)))

	assert.Equal(t, want, s.IterationBound())
	assert.Zero(t, NewSolver(geo.Earth, WithTolerance(0)).IterationBound())
}
