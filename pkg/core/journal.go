// Package core holds the journal records shared by every storage backend.
package core

import "time"

// Position2D is a point in the host's projected map units.
type Position2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// StepRecord is one navigation step that moved an entity.
type StepRecord struct {
	ID        uint          `json:"-"`
	Time      time.Time     `json:"time"`
	Entity    uint32        `json:"entity"`
	Goal      uint32        `json:"goal"`
	Mode      string        `json:"mode"`
	Elapsed   time.Duration `json:"elapsed"`
	From      Position2D    `json:"from"`
	Position  Position2D    `json:"position"`
	Latitude  float64       `json:"lat"`
	Longitude float64       `json:"lon"`
	HeadingX  float64       `json:"headingX"`
	HeadingY  float64       `json:"headingY"`
	// DistanceKm travelled during the step.
	DistanceKm float64 `json:"distanceKm"`
	// RemainingKm to the aim point after the step.
	RemainingKm float64 `json:"remainingKm"`
	Arrived     bool    `json:"arrived"`
	CacheHit    bool    `json:"cacheHit"`
}

// InterceptionRecord is a predicted rendezvous computed during a step.
type InterceptionRecord struct {
	ID             uint       `json:"-"`
	Time           time.Time  `json:"time"`
	Entity         uint32     `json:"entity"`
	Goal           uint32     `json:"goal"`
	Point          Position2D `json:"point"`
	Latitude       float64    `json:"lat"`
	Longitude      float64    `json:"lon"`
	Hours          float64    `json:"hours"`
	TargetTravelKm float64    `json:"targetTravelKm"`
	Iterations     int        `json:"iterations"`
}
