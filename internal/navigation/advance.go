package navigation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/geoshape/extension/internal/geo"
	"github.com/geoshape/extension/internal/greatcircle"
	"github.com/geoshape/extension/internal/intercept"
)

// arrivalDistance is the remaining distance, in km, below which an entity is
// considered to sit on its aim point.
const arrivalDistance = 1e-6

var errArrived = errors.New("already at aim point")

// AdvancePosition moves id towards its goal for elapsed time, writes the new
// position and heading to the store and returns what happened. On error the
// store is left untouched.
func (n *Navigator) AdvancePosition(id EntityID, elapsed time.Duration) (Step, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	step, err := n.advance(id, elapsed)
	n.metrics.recordStep(step, err)
	if err != nil {
		return Step{}, err
	}
	if step.Distance > 0 || step.From != step.Position {
		n.record(step)
	}
	return step, nil
}

// Tick advances every movable entity that has a goal. Entities that cannot
// move this tick are skipped and logged; the others are returned in store order.
func (n *Navigator) Tick(elapsed time.Duration) []Step {
	ids := n.store.Entities()
	steps := make([]Step, 0, len(ids))
	for _, id := range ids {
		if !n.store.CanMove(id) {
			continue
		}
		if _, ok := n.store.Goal(id); !ok {
			continue
		}
		step, err := n.AdvancePosition(id, elapsed)
		if err != nil {
			n.logger.Debug("Skipping entity", "entity", id, "error", err)
			continue
		}
		steps = append(steps, step)
	}
	return steps
}

func (n *Navigator) advance(id EntityID, elapsed time.Duration) (Step, error) {
	if elapsed < 0 {
		return Step{Entity: id}, ErrNegativeElapsed
	}
	pos, ok := n.store.Position(id)
	if !ok {
		return Step{Entity: id}, fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	goal, ok := n.store.Goal(id)
	if !ok {
		return Step{Entity: id}, fmt.Errorf("%w: %d", ErrNoGoal, id)
	}
	step := Step{Entity: id, Goal: goal, Elapsed: elapsed, From: pos, Position: pos}

	goalPos, ok := n.store.Position(goal)
	if !ok {
		return step, fmt.Errorf("%w: %d chasing %d", ErrGoalWithoutPosition, id, goal)
	}
	speed, _ := n.store.Speed(id)
	if !(speed > 0) || math.IsInf(speed, 0) {
		return step, fmt.Errorf("%w: %d has speed %v", ErrInvalidSpeed, id, speed)
	}

	current := n.proj.ToNormal(pos)
	p := n.plan(id, goal, current, n.proj.ToNormal(goalPos), speed)
	step.Mode, step.Interception = p.mode, p.solution

	arc, hit, err := n.arcFor(ArcKey{Pursuer: id, Goal: goal}, p, current)
	step.CacheHit = hit
	if errors.Is(err, errArrived) {
		step.Arrived = true
		step.LatLon = n.proj.ToGeographic(pos)
		return step, nil
	}
	if err != nil {
		return step, fmt.Errorf("routing %d to %d: %w", id, goal, err)
	}

	distance := speed * elapsed.Hours()
	remaining := arc.Remaining(current)
	next := arc.Advance(current, distance)
	if distance >= remaining {
		next, distance = arc.End(), remaining
		step.Arrived = true
	}

	step.Distance = distance
	step.Remaining = remaining - distance
	step.Position = n.proj.FromNormal(next)
	step.LatLon = geo.NormalToGeographic(next)
	step.Heading = n.headingAt(arc, next)

	n.store.SetPosition(id, step.Position)
	n.store.SetHeading(id, step.Heading)
	return step, nil
}

type plan struct {
	aim           geo.Vec3
	mode          Mode
	goalTarget    EntityID
	hasGoalTarget bool
	solution      *intercept.Solution
}

// plan picks the point id flies towards: a predicted rendezvous when the goal
// moves on its own, otherwise the goal itself.
func (n *Navigator) plan(id, goal EntityID, current, goalNormal geo.Vec3, speed float64) plan {
	p := plan{aim: goalNormal, mode: ModeDirect}
	p.goalTarget, p.hasGoalTarget = n.store.Goal(goal)

	// a goal chasing us back is met head on; predicting both sides would never settle
	if !n.store.CanMove(goal) || (p.hasGoalTarget && p.goalTarget == id) {
		return p
	}

	sol, err := n.solver.Solve(
		intercept.Pursuer{Position: current, Speed: speed},
		n.targetOf(goal, goalNormal),
	)
	if err != nil || !(sol.Time > 0) {
		n.logger.Debug("No interception solution, pursuing goal directly",
			"entity", id, "goal", goal, "error", err)
		p.mode = ModeFallback
		return p
	}

	p.aim, p.mode, p.solution = sol.Point, ModeIntercept, &sol
	return p
}

// targetOf describes goal as an interception target. A goal without a speed
// or a destination, or one already standing on its destination, is treated
// as stationary.
func (n *Navigator) targetOf(goal EntityID, position geo.Vec3) intercept.Target {
	t := intercept.Target{Position: position}

	speed, _ := n.store.Speed(goal)
	if !(speed > 0) || math.IsInf(speed, 0) {
		return t
	}

	if arc, ok := n.arcs.Active(goal); ok && math.Abs(arc.PlaneNormal().Dot(position)) <= onCircleEpsilon {
		if arc.Remaining(position) <= arrivalDistance {
			return t
		}
		t.Speed, t.Route = speed, arc
		return t
	}

	next, ok := n.store.Goal(goal)
	if !ok {
		return t
	}
	nextPos, ok := n.store.Position(next)
	if !ok {
		return t
	}
	route, err := greatcircle.New(position, n.proj.ToNormal(nextPos), n.sphere)
	if err != nil || route.Length() <= arrivalDistance {
		return t
	}
	t.Speed, t.Route = speed, route
	return t
}

// arcFor returns the route towards p.aim, reusing the cached one while the
// goal keeps its own target and the aim has not moved beyond tolerance.
func (n *Navigator) arcFor(key ArcKey, p plan, current geo.Vec3) (*greatcircle.Arc, bool, error) {
	if e, ok := n.arcs.Get(key); ok &&
		e.reusable(n.sphere, current, p.aim, p.goalTarget, p.hasGoalTarget, n.solver.Tolerance()) {
		if e.Arc.Remaining(current) <= arrivalDistance {
			n.arcs.Invalidate(key.Pursuer)
			return nil, true, errArrived
		}
		return e.Arc, true, nil
	}

	arc, err := greatcircle.New(current, p.aim, n.sphere)
	if err != nil {
		if errors.Is(err, greatcircle.ErrDegenerateArc) && geo.CentralAngle(current, p.aim) < math.Pi/2 {
			n.arcs.Invalidate(key.Pursuer)
			return nil, false, errArrived
		}
		return nil, false, err
	}
	if arc.Length() <= arrivalDistance {
		n.arcs.Invalidate(key.Pursuer)
		return nil, false, errArrived
	}

	n.arcs.Put(key, ArcEntry{Arc: arc, GoalTarget: p.goalTarget, HasGoalTarget: p.hasGoalTarget})
	return arc, false, nil
}

func (n *Navigator) headingAt(arc *greatcircle.Arc, position geo.Vec3) geo.Vec2 {
	if n.heading != HeadingFiniteDifference {
		if h, err := arc.HeadingAt(n.proj, position); err == nil {
			return h
		}
	}
	return arc.FiniteDifferenceHeading(n.proj, position)
}

func (n *Navigator) record(step Step) {
	for _, r := range n.recorders {
		if err := r.RecordStep(context.Background(), step); err != nil {
			n.logger.Warn("Failed to record step", "entity", step.Entity, "error", err)
		}
	}
}
