// Package storage defines the movement journal. The journal is diagnostic:
// navigation never reads it back.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/geoshape/extension/internal/geo"
	"github.com/geoshape/extension/internal/navigation"
	"github.com/geoshape/extension/pkg/core"
)

// Backend is the interface all journal implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	RecordStep(s *core.StepRecord) error
	RecordInterception(i *core.InterceptionRecord) error
}

// Exportable is an optional interface for backends that write a file when closed.
type Exportable interface {
	ExportedFilePath() string
}

// StepRecorder feeds navigation steps into a Backend.
type StepRecorder struct {
	mu      sync.RWMutex
	backend Backend
	proj    geo.Projection
	now     func() time.Time
}

var _ navigation.Recorder = (*StepRecorder)(nil)

// NewStepRecorder creates a recorder writing to backend. proj converts
// predicted interception points back to map units.
func NewStepRecorder(backend Backend, proj geo.Projection) *StepRecorder {
	return &StepRecorder{backend: backend, proj: proj, now: time.Now}
}

// RecordStep journals the step, and the predicted rendezvous when the step was an interception.
func (r *StepRecorder) RecordStep(_ context.Context, step navigation.Step) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := r.now()

	rec := StepToRecord(step, now)
	if err := r.backend.RecordStep(&rec); err != nil {
		return fmt.Errorf("recording step of entity %d: %w", step.Entity, err)
	}

	if step.Mode != navigation.ModeIntercept || step.Interception == nil {
		return nil
	}
	ir := InterceptionToRecord(step, r.proj, now)
	if err := r.backend.RecordInterception(&ir); err != nil {
		return fmt.Errorf("recording interception of entity %d: %w", step.Entity, err)
	}
	return nil
}

// Backend returns the journal currently written to.
func (r *StepRecorder) Backend() Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.backend
}

// Swap replaces the journal and returns the previous one. Steps recorded
// concurrently land entirely in one of the two.
func (r *StepRecorder) Swap(backend Backend) Backend {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.backend
	r.backend = backend
	return old
}

// StepToRecord converts a navigation step to its journal record.
func StepToRecord(step navigation.Step, at time.Time) core.StepRecord {
	return core.StepRecord{
		Time:        at,
		Entity:      uint32(step.Entity),
		Goal:        uint32(step.Goal),
		Mode:        step.Mode.String(),
		Elapsed:     step.Elapsed,
		From:        core.Position2D{X: step.From.X, Y: step.From.Y},
		Position:    core.Position2D{X: step.Position.X, Y: step.Position.Y},
		Latitude:    step.LatLon.Lat,
		Longitude:   step.LatLon.Lon,
		HeadingX:    step.Heading.X,
		HeadingY:    step.Heading.Y,
		DistanceKm:  step.Distance,
		RemainingKm: step.Remaining,
		Arrived:     step.Arrived,
		CacheHit:    step.CacheHit,
	}
}

// InterceptionToRecord converts the interception solution of step to its
// journal record. step.Interception must be set.
func InterceptionToRecord(step navigation.Step, proj geo.Projection, at time.Time) core.InterceptionRecord {
	sol := step.Interception
	point := proj.FromNormal(sol.Point)
	c := geo.NormalToGeographic(sol.Point)
	return core.InterceptionRecord{
		Time:           at,
		Entity:         uint32(step.Entity),
		Goal:           uint32(step.Goal),
		Point:          core.Position2D{X: point.X, Y: point.Y},
		Latitude:       c.Lat,
		Longitude:      c.Lon,
		Hours:          sol.Time,
		TargetTravelKm: sol.TargetTravel,
		Iterations:     sol.Iterations,
	}
}
