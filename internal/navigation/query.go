package navigation

import (
	"fmt"

	"github.com/geoshape/extension/internal/geo"
	"github.com/geoshape/extension/internal/greatcircle"
	"github.com/geoshape/extension/internal/intercept"
)

// Route returns the rest of id's active route as steps+1 projected points,
// from its current position to the aim point.
func (n *Navigator) Route(id EntityID, steps int) ([]geo.Position2D, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	pos, ok := n.store.Position(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	active, ok := n.arcs.Active(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoActiveRoute, id)
	}

	rest, err := greatcircle.New(n.proj.ToNormal(pos), active.End(), n.sphere)
	if err != nil {
		// sitting on the aim point
		return []geo.Position2D{pos}, nil
	}

	points := rest.Sample(steps)
	out := make([]geo.Position2D, len(points))
	for i, p := range points {
		out[i] = n.proj.FromNormal(p)
	}
	return out, nil
}

// Intercept predicts where id would meet its goal if neither changed course,
// without moving anything.
func (n *Navigator) Intercept(id EntityID) (intercept.Solution, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	pos, ok := n.store.Position(id)
	if !ok {
		return intercept.Solution{}, fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	goal, ok := n.store.Goal(id)
	if !ok {
		return intercept.Solution{}, fmt.Errorf("%w: %d", ErrNoGoal, id)
	}
	goalPos, ok := n.store.Position(goal)
	if !ok {
		return intercept.Solution{}, fmt.Errorf("%w: %d chasing %d", ErrGoalWithoutPosition, id, goal)
	}
	speed, _ := n.store.Speed(id)
	if !(speed > 0) {
		return intercept.Solution{}, fmt.Errorf("%w: %d has speed %v", ErrInvalidSpeed, id, speed)
	}
	if back, ok := n.store.Goal(goal); !n.store.CanMove(goal) || (ok && back == id) {
		return intercept.Solution{}, fmt.Errorf("%w: %d chasing %d", ErrNotIntercepting, id, goal)
	}

	goalNormal := n.proj.ToNormal(goalPos)
	sol, err := n.solver.Solve(
		intercept.Pursuer{Position: n.proj.ToNormal(pos), Speed: speed},
		n.targetOf(goal, goalNormal),
	)
	if err != nil {
		return intercept.Solution{}, fmt.Errorf("predicting %d meeting %d: %w", id, goal, err)
	}
	return sol, nil
}
