package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolyline_Valid(t *testing.T) {
	input := "[[100.5,200.25],[300.75,400.5],[500,600]]"
	poly, err := ParsePolyline(input)

	require.NoError(t, err)
	require.Len(t, poly, 3)
	assert.Equal(t, 100.5, poly[0].X)
	assert.Equal(t, 200.25, poly[0].Y)
	assert.Equal(t, 500.0, poly[2].X)
	assert.Equal(t, 600.0, poly[2].Y)
}

func TestParsePolyline_InvalidJSON(t *testing.T) {
	_, err := ParsePolyline("not valid json")
	require.Error(t, err)
}

func TestParsePolyline_TooFewPoints(t *testing.T) {
	_, err := ParsePolyline("[[100,200]]")
	require.Error(t, err)
}

func TestParsePolyline_InsufficientCoordinates(t *testing.T) {
	_, err := ParsePolyline("[[100],[200,300]]")
	require.Error(t, err)
}

func TestPathLength_EquatorLegs(t *testing.T) {
	proj := DefaultProjection
	poly := []Position2D{
		proj.ToProjected(LatLon{Lat: 0, Lon: 0}),
		proj.ToProjected(LatLon{Lat: 0, Lon: 30}),
		proj.ToProjected(LatLon{Lat: 0, Lon: 90}),
	}

	got := Earth.PathLength(proj, poly)

	assert.InDelta(t, math.Pi/2*EarthRadiusKm, got, 1e-6)
}

func TestPathLength_SinglePointIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Earth.PathLength(DefaultProjection, []Position2D{{X: 1, Y: 2}}))
}
