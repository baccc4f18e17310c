package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// EarthRadiusKm is the mean planetary radius. Every distance in this module is
// expressed in kilometres against this radius unless a Sphere says otherwise.
const EarthRadiusKm = 6371.0

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// NorthPole is the unit normal of the north pole.
var NorthPole = Vec3{Z: 1}

// LatLon is a geographic coordinate in degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Position2D is a point in the host's projected map space.
type Position2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func degToRad(degrees float64) float64 { return degrees * math.Pi / 180 }
func radToDeg(radians float64) float64 { return radians * 180 / math.Pi }

// GeographicToNormal converts a latitude/longitude pair to a unit normal.
func GeographicToNormal(c LatLon) Vec3 {
	lat := degToRad(c.Lat)
	lon := degToRad(c.Lon)
	return Vec3{
		X: math.Cos(lat) * math.Cos(lon),
		Y: math.Cos(lat) * math.Sin(lon),
		Z: math.Sin(lat),
	}
}

// NormalToGeographic converts a unit normal back to latitude/longitude.
func NormalToGeographic(n Vec3) LatLon {
	lat := math.Atan2(n.Z, math.Hypot(n.X, n.Y))
	lon := math.Atan2(n.Y, n.X)
	return LatLon{Lat: radToDeg(lat), Lon: radToDeg(lon)}
}

// CentralAngle returns the angle in radians subtended at the planet's centre
// by a and b. Stable near 0 and near π, unlike acos of the dot product.
func CentralAngle(a, b Vec3) float64 {
	return math.Atan2(a.Cross(b).Norm(), a.Dot(b))
}

// Sphere carries the radius shared by every distance/angle conversion.
type Sphere struct {
	Radius float64
}

// Earth is the default sphere.
var Earth = Sphere{Radius: EarthRadiusKm}

// Distance returns the great-circle surface distance between two normals.
func (s Sphere) Distance(a, b Vec3) float64 {
	return s.Radius * CentralAngle(a, b)
}

// AngleFromDistance converts a surface distance to a central angle in radians.
func (s Sphere) AngleFromDistance(d float64) float64 {
	return d / s.Radius
}

// HalfCircumference is the longest possible great-circle distance.
func (s Sphere) HalfCircumference() float64 {
	return math.Pi * s.Radius
}

// Destination returns the point reached after travelling distance along the
// initial bearing (radians clockwise from true north) from origin.
// The bearing is undefined at the poles and the result is NaN there.
func (s Sphere) Destination(origin Vec3, bearing, distance float64) Vec3 {
	east := NorthPole.Cross(origin)
	if east.Norm() == 0 {
		nan := math.NaN()
		return Vec3{nan, nan, nan}
	}
	east = east.Normalize()
	north := origin.Cross(east)
	direction := north.Scale(math.Cos(bearing)).Add(east.Scale(math.Sin(bearing)))

	angle := s.AngleFromDistance(distance)
	return origin.Normalize().Scale(math.Cos(angle)).Add(direction.Normalize().Scale(math.Sin(angle)))
}

// Position2DFromString parses a "x,y" string sent by the host into a Position2D.
func Position2DFromString(coords string) (Position2D, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return Position2D{}, ErrInvalidCoordinates
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return Position2D{}, ErrInvalidCoordinates
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return Position2D{}, ErrInvalidCoordinates
	}
	return Position2D{X: x, Y: y}, nil
}

// PointFromLatLon creates an EPSG:4326 point (X = longitude, Y = latitude).
func PointFromLatLon(c LatLon) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: c.Lon, Y: c.Lat},
		Type: geom.DimXY,
	})
}

// Coords3857From4326 creates a web-mercator point from a longitude and latitude
func Coords3857From4326(
	longitude float64,
	latitude float64,
) (
	point geom.Point,
	err error,
) {
	if math.Abs(latitude) >= 90 || math.IsNaN(latitude) || math.IsNaN(longitude) {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	point = geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: x, Y: y},
			Type: geom.DimXY,
		},
	)
	return point, nil
}

// LineStringFromNormals builds an EPSG:4326 line string through the given normals.
func LineStringFromNormals(normals []Vec3) (geom.LineString, error) {
	if len(normals) < 2 {
		return geom.LineString{}, ErrInvalidCoordinates
	}
	flat := make([]float64, 0, len(normals)*2)
	for _, n := range normals {
		c := NormalToGeographic(n)
		flat = append(flat, c.Lon, c.Lat)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY)), nil
}
