package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the journal schema
var DatabaseModels = []interface{}{
	&Session{},
	&Step{},
	&Interception{},
}

// Session is one run of the extension. Every journal row references the session that wrote it.
type Session struct {
	gorm.Model
	StartTime        time.Time      `json:"startTime" gorm:"index:idx_session_start"`
	ExtensionVersion string         `json:"extensionVersion" gorm:"size:64"`
	Backend          string         `json:"backend" gorm:"size:32"`
	Settings         datatypes.JSON `json:"settings"`
	Steps            []Step
	Interceptions    []Interception
}

func (*Session) TableName() string {
	return "sessions"
}

// Step is a single movement of an entity along its great-circle route.
// Position is stored in EPSG:3857.
type Step struct {
	ID             uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time           time.Time  `json:"time" gorm:"index:idx_step_time"`
	SessionID      uint       `json:"sessionId" gorm:"index:idx_step_session_id"`
	Session        Session    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Entity         uint32     `json:"entity" gorm:"index:idx_step_entity"`
	Goal           uint32     `json:"goal"`
	Mode           string     `json:"mode" gorm:"size:16"`
	ElapsedSeconds float64    `json:"elapsedSeconds"`
	Position       geom.Point `json:"position"`
	ProjectedX     float64    `json:"projectedX"`
	ProjectedY     float64    `json:"projectedY"`
	HeadingX       float64    `json:"headingX"`
	HeadingY       float64    `json:"headingY"`
	DistanceKm     float64    `json:"distanceKm"`
	RemainingKm    float64    `json:"remainingKm"`
	Arrived        bool       `json:"arrived" gorm:"default:false"`
	CacheHit       bool       `json:"cacheHit" gorm:"default:false"`
	// Details holds the pre-step position and geographic coordinates.
	Details datatypes.JSON `json:"details"`
}

func (*Step) TableName() string {
	return "navigation_steps"
}

// Interception is a predicted rendezvous between a pursuer and its goal.
type Interception struct {
	ID             uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time           time.Time  `json:"time" gorm:"index:idx_interception_time"`
	SessionID      uint       `json:"sessionId" gorm:"index:idx_interception_session_id"`
	Session        Session    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Entity         uint32     `json:"entity" gorm:"index:idx_interception_entity"`
	Goal           uint32     `json:"goal"`
	Point          geom.Point `json:"point"`
	Hours          float64    `json:"hours"`
	TargetTravelKm float64    `json:"targetTravelKm"`
	Iterations     int        `json:"iterations"`
	// Details holds the projected and geographic rendezvous point.
	Details datatypes.JSON `json:"details"`
}

func (*Interception) TableName() string {
	return "interceptions"
}
