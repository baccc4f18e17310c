// Package greatcircle represents directed shortest-path routes on the sphere
// and answers position and heading queries along them.
package greatcircle

import (
	"errors"
	"math"

	"github.com/geoshape/extension/internal/geo"
)

var (
	// ErrDegenerateArc is returned when the endpoints are equal or antipodal,
	// leaving the arc's plane undefined.
	ErrDegenerateArc = errors.New("degenerate great circle arc: endpoints are identical or antipodal")
	// ErrUndefinedBearing is returned when the bearing is asked for at a pole
	// or at a point where the route's direction vanishes.
	ErrUndefinedBearing = errors.New("bearing undefined at this position")
)

// degenerateEpsilon bounds |start × end| below which the arc plane is
// considered undefined. Roughly 6 mm on the default sphere.
const degenerateEpsilon = 1e-9

// Arc is a directed route between two points on the sphere. Arcs are
// immutable; a new one is built when the destination changes.
type Arc struct {
	start  geo.Vec3
	end    geo.Vec3
	plane  geo.Vec3
	sphere geo.Sphere
}

// New builds the arc from start to end. Both are normalized first.
func New(start, end geo.Vec3, sphere geo.Sphere) (*Arc, error) {
	start = start.Normalize()
	end = end.Normalize()
	plane := start.Cross(end)
	if start.IsNaN() || end.IsNaN() || plane.Norm() < degenerateEpsilon {
		return nil, ErrDegenerateArc
	}
	return &Arc{
		start:  start,
		end:    end,
		plane:  plane.Normalize(),
		sphere: sphere,
	}, nil
}

// Start returns the departure point.
func (a *Arc) Start() geo.Vec3 { return a.start }

// End returns the destination point.
func (a *Arc) End() geo.Vec3 { return a.end }

// PlaneNormal returns the unit normal of the plane containing the great circle.
func (a *Arc) PlaneNormal() geo.Vec3 { return a.plane }

// Length returns the surface distance from start to end.
func (a *Arc) Length() float64 {
	return a.sphere.Distance(a.start, a.end)
}

// Advance returns the point reached after travelling distance along the
// arc's great circle from from. from need not be the start; any point on (or
// projected onto) the same circle works. Distances beyond the end, or beyond
// a full lap, keep following the circle.
func (a *Arc) Advance(from geo.Vec3, distance float64) geo.Vec3 {
	angle := a.sphere.AngleFromDistance(distance)
	direction := a.plane.Cross(from).Normalize()
	return from.Normalize().Scale(math.Cos(angle)).Add(direction.Scale(math.Sin(angle)))
}

// Remaining returns the distance still to travel from position to the end.
func (a *Arc) Remaining(position geo.Vec3) float64 {
	return a.sphere.Distance(position, a.end)
}

// Sample returns steps+1 points evenly spaced along the arc, start and end included.
func (a *Arc) Sample(steps int) []geo.Vec3 {
	if steps < 1 {
		steps = 1
	}
	length := a.Length()
	points := make([]geo.Vec3, 0, steps+1)
	for i := 0; i <= steps; i++ {
		points = append(points, a.Advance(a.start, length*float64(i)/float64(steps)))
	}
	return points
}

// BearingAt returns the sine and cosine of the direction of travel at
// position, measured clockwise from true north.
func (a *Arc) BearingAt(position geo.Vec3) (sin, cos float64, err error) {
	position = position.Normalize()
	east := geo.NorthPole.Cross(position)
	if east.Norm() < degenerateEpsilon {
		return 0, 0, ErrUndefinedBearing
	}
	east = east.Normalize()
	north := position.Cross(east)

	direction := a.plane.Cross(position)
	if direction.Norm() < degenerateEpsilon {
		return 0, 0, ErrUndefinedBearing
	}
	direction = direction.Normalize()

	sin, cos = direction.Dot(east), direction.Dot(north)
	n := math.Hypot(sin, cos)
	return sin / n, cos / n, nil
}

// Bearing returns the direction of travel at position in radians clockwise
// from true north, in [0, 2π).
func (a *Arc) Bearing(position geo.Vec3) (float64, error) {
	sin, cos, err := a.BearingAt(position)
	if err != nil {
		return 0, err
	}
	b := math.Atan2(sin, cos)
	if b < 0 {
		b += 2 * math.Pi
	}
	return b, nil
}

// HeadingAt returns the exact direction of travel at position expressed in
// projected map space. East maps to +X and north to +Y; the longitude axis is
// stretched by 1/cos(lat) because the projection keeps meridians parallel.
func (a *Arc) HeadingAt(proj geo.Projection, position geo.Vec3) (geo.Vec2, error) {
	sin, cos, err := a.BearingAt(position)
	if err != nil {
		return geo.Vec2{}, err
	}
	lat := geo.NormalToGeographic(position).Lat * math.Pi / 180
	return geo.Vec2{
		X: sin * proj.UnitsPerDegreeLon / math.Cos(lat),
		Y: cos * proj.UnitsPerDegreeLat,
	}.Normalize(), nil
}

// FiniteDifferenceHeading approximates the direction of travel at position by
// stepping one distance unit ahead and taking the planar difference in
// projected space. Kept for parity with hosts that expect the legacy heading;
// its error grows near the poles and across the antimeridian.
func (a *Arc) FiniteDifferenceHeading(proj geo.Projection, position geo.Vec3) geo.Vec2 {
	here := proj.FromNormal(position)
	ahead := proj.FromNormal(a.Advance(position, 1))
	return geo.Vec2{X: ahead.X - here.X, Y: ahead.Y - here.Y}.Normalize()
}
