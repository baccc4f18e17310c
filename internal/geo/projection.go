package geo

// Projection maps the host's projected map space to geographic coordinates.
//
// This is a linear estimate matching the host map, not a real map projection:
// an origin offset moves (0, 0) to null island and each axis gets its own
// scale factor. It is never exact at high latitude and must not be replaced
// with a conformal or equal-area projection.
type Projection struct {
	// Origin is the projected position of latitude 0, longitude 0.
	Origin Position2D
	// UnitsPerDegreeLon is the horizontal map distance covered by one degree of longitude.
	UnitsPerDegreeLon float64
	// UnitsPerDegreeLat is the vertical map distance covered by one degree of latitude.
	UnitsPerDegreeLat float64
}

// DefaultProjection matches the stock strategic map: all longitudes span the
// playable width while only ~140 degrees of latitude are visible.
var DefaultProjection = NewProjection(Position2D{X: 897, Y: 464}, 1794, 5.327)

// NewProjection builds a projection from the map's playable width.
func NewProjection(origin Position2D, playableWidth, unitsPerDegreeLat float64) Projection {
	return Projection{
		Origin:            origin,
		UnitsPerDegreeLon: playableWidth / 360,
		UnitsPerDegreeLat: unitsPerDegreeLat,
	}
}

// ToGeographic converts a projected position to latitude/longitude. Values are
// passed through without range checks.
func (p Projection) ToGeographic(pos Position2D) LatLon {
	return LatLon{
		Lat: (pos.Y - p.Origin.Y) / p.UnitsPerDegreeLat,
		Lon: (pos.X - p.Origin.X) / p.UnitsPerDegreeLon,
	}
}

// ToProjected converts latitude/longitude to a projected position.
func (p Projection) ToProjected(c LatLon) Position2D {
	return Position2D{
		X: c.Lon*p.UnitsPerDegreeLon + p.Origin.X,
		Y: c.Lat*p.UnitsPerDegreeLat + p.Origin.Y,
	}
}

// ToNormal converts a projected position to a unit normal.
func (p Projection) ToNormal(pos Position2D) Vec3 {
	return GeographicToNormal(p.ToGeographic(pos))
}

// FromNormal converts a unit normal to a projected position.
func (p Projection) FromNormal(n Vec3) Position2D {
	return p.ToProjected(NormalToGeographic(n))
}

// Clamp limits a projected position to the poles. Hosts can report positions
// past the top of the map; those are pinned to the pole's latitude.
func (p Projection) Clamp(pos Position2D) Position2D {
	c := p.ToGeographic(pos)
	switch {
	case c.Lat > 90:
		pos.Y = p.ToProjected(LatLon{Lat: 90}).Y
	case c.Lat < -90:
		pos.Y = p.ToProjected(LatLon{Lat: -90}).Y
	}
	return pos
}
