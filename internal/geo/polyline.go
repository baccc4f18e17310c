package geo

import (
	"encoding/json"
	"fmt"
)

// ParsePolyline parses a JSON array of projected coordinates sent by the host.
// Input format: "[[x1,y1],[x2,y2],...]"
func ParsePolyline(input string) ([]Position2D, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse polyline JSON: %w", err)
	}

	if len(coords) < 2 {
		return nil, fmt.Errorf("polyline must have at least 2 points, got %d", len(coords))
	}

	polyline := make([]Position2D, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		polyline[i] = Position2D{X: coord[0], Y: coord[1]}
	}

	return polyline, nil
}

// PathLength returns the great-circle length of a polyline given in projected
// coordinates, summing each leg along the sphere.
func (s Sphere) PathLength(proj Projection, polyline []Position2D) float64 {
	var total float64
	for i := 1; i < len(polyline); i++ {
		a := proj.ToNormal(proj.Clamp(polyline[i-1]))
		b := proj.ToNormal(proj.Clamp(polyline[i]))
		total += s.Distance(a, b)
	}
	return total
}
