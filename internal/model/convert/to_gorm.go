// Package convert provides functions to convert core journal records to GORM models
package convert

import (
	"encoding/json"

	"github.com/geoshape/extension/internal/geo"
	"github.com/geoshape/extension/internal/model"
	"github.com/geoshape/extension/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// mercator converts a geographic coordinate to an EPSG:3857 point.
// Coordinates web mercator cannot represent become an empty point.
func mercator(lat, lon float64) geom.Point {
	p, err := geo.Coords3857From4326(lon, lat)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXY)
	}
	return p
}

func toJSON(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// CoreToStep converts a core.StepRecord to a GORM model.Step.
func CoreToStep(s core.StepRecord, sessionID uint) model.Step {
	return model.Step{
		ID:             s.ID,
		Time:           s.Time,
		SessionID:      sessionID,
		Entity:         s.Entity,
		Goal:           s.Goal,
		Mode:           s.Mode,
		ElapsedSeconds: s.Elapsed.Seconds(),
		Position:       mercator(s.Latitude, s.Longitude),
		ProjectedX:     s.Position.X,
		ProjectedY:     s.Position.Y,
		HeadingX:       s.HeadingX,
		HeadingY:       s.HeadingY,
		DistanceKm:     s.DistanceKm,
		RemainingKm:    s.RemainingKm,
		Arrived:        s.Arrived,
		CacheHit:       s.CacheHit,
		Details: toJSON(map[string]any{
			"from": s.From,
			"lat":  s.Latitude,
			"lon":  s.Longitude,
		}),
	}
}

// CoreToInterception converts a core.InterceptionRecord to a GORM model.Interception.
func CoreToInterception(i core.InterceptionRecord, sessionID uint) model.Interception {
	return model.Interception{
		ID:             i.ID,
		Time:           i.Time,
		SessionID:      sessionID,
		Entity:         i.Entity,
		Goal:           i.Goal,
		Point:          mercator(i.Latitude, i.Longitude),
		Hours:          i.Hours,
		TargetTravelKm: i.TargetTravelKm,
		Iterations:     i.Iterations,
		Details: toJSON(map[string]any{
			"point": i.Point,
			"lat":   i.Latitude,
			"lon":   i.Longitude,
		}),
	}
}
