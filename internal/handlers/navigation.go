package handlers

import (
	"fmt"
	"time"

	"github.com/geoshape/extension/internal/cache"
	"github.com/geoshape/extension/internal/dispatcher"
	"github.com/geoshape/extension/internal/geo"
	"github.com/geoshape/extension/internal/navigation"
	"github.com/geoshape/extension/internal/util"
)

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// HandleVersion returns the extension version and build date.
func (s *Service) HandleVersion(e dispatcher.Event) (any, error) {
	return []string{s.deps.ExtensionVersion, s.deps.BuildDate}, nil
}

// HandleLog writes a host log line: [functionName, message, level?].
func (s *Service) HandleLog(e dispatcher.Event) (any, error) {
	args := util.CleanArgs(e.Args)
	if len(args) < 2 {
		return nil, argError(CmdLog, "expected at least 2 arguments, got %d", len(args))
	}
	level := "INFO"
	if len(args) > 2 && args[2] != "" {
		level = args[2]
	}
	s.writeLog(args[0], args[1], level)
	return nil, nil
}

// HandleEntity upserts an entity: [id, "x,y", speedKph, goalId|"", canMove, "hx,hy"?].
func (s *Service) HandleEntity(e dispatcher.Event) (any, error) {
	args := util.CleanArgs(e.Args)
	if len(args) < 5 {
		return nil, argError(CmdEntity, "expected 5 arguments, got %d", len(args))
	}

	id, err := s.entityID(CmdEntity, args[0])
	if err != nil {
		return nil, err
	}
	pos, err := s.position(CmdEntity, args[1])
	if err != nil {
		return nil, err
	}
	speed, err := util.ParseFloat(args[2])
	if err != nil || speed < 0 {
		return nil, argError(CmdEntity, "speed %q", args[2])
	}
	canMove, err := util.ParseBool(args[4])
	if err != nil {
		return nil, argError(CmdEntity, "%v", err)
	}

	entity := cache.Entity{
		ID:       id,
		Position: pos,
		Speed:    speed,
		CanMove:  canMove,
	}
	if args[3] != "" {
		goal, err := s.entityID(CmdEntity, args[3])
		if err != nil {
			return nil, err
		}
		entity.Goal = goal
		entity.HasGoal = true
	}
	if len(args) > 5 && args[5] != "" {
		h, err := geo.Position2DFromString(args[5])
		if err != nil {
			return nil, argError(CmdEntity, "heading %q", args[5])
		}
		entity.Heading = geo.Vec2{X: h.X, Y: h.Y}
	}

	if s.deps.Store.Upsert(entity) {
		s.deps.Navigator.Forget(id)
	}
	return nil, nil
}

// HandleRemove forgets an entity and its cached routes: [id].
func (s *Service) HandleRemove(e dispatcher.Event) (any, error) {
	args := util.CleanArgs(e.Args)
	if len(args) < 1 {
		return nil, argError(CmdRemove, "expected 1 argument, got %d", len(args))
	}
	id, err := s.entityID(CmdRemove, args[0])
	if err != nil {
		return nil, err
	}

	s.deps.Navigator.Forget(id)
	if !s.deps.Store.Remove(id) {
		return nil, fmt.Errorf("%w: %d", navigation.ErrUnknownEntity, id)
	}
	return nil, nil
}

// HandleAdvance moves one entity: [id, elapsedSeconds] -> [x, y, headingX, headingY].
func (s *Service) HandleAdvance(e dispatcher.Event) (any, error) {
	args := util.CleanArgs(e.Args)
	if len(args) < 2 {
		return nil, argError(CmdAdvance, "expected 2 arguments, got %d", len(args))
	}
	id, err := s.entityID(CmdAdvance, args[0])
	if err != nil {
		return nil, err
	}
	seconds, err := s.elapsed(CmdAdvance, args[1])
	if err != nil {
		return nil, err
	}

	step, err := s.deps.Navigator.AdvancePosition(id, secondsToDuration(seconds))
	if err != nil {
		return nil, err
	}
	return []float64{step.Position.X, step.Position.Y, step.Heading.X, step.Heading.Y}, nil
}

// HandleTick moves every movable entity with a goal: [elapsedSeconds] -> [[id, x, y, hx, hy], ...].
func (s *Service) HandleTick(e dispatcher.Event) (any, error) {
	args := util.CleanArgs(e.Args)
	if len(args) < 1 {
		return nil, argError(CmdTick, "expected 1 argument, got %d", len(args))
	}
	seconds, err := s.elapsed(CmdTick, args[0])
	if err != nil {
		return nil, err
	}
	if seconds < 0 {
		return nil, fmt.Errorf("%w: %v", navigation.ErrNegativeElapsed, seconds)
	}

	steps := s.deps.Navigator.Tick(secondsToDuration(seconds))
	out := make([][]any, 0, len(steps))
	for _, step := range steps {
		out = append(out, []any{
			uint32(step.Entity),
			step.Position.X,
			step.Position.Y,
			step.Heading.X,
			step.Heading.Y,
		})
	}
	return out, nil
}

// HandleDistance returns the great-circle distance in km between two projected points.
func (s *Service) HandleDistance(e dispatcher.Event) (any, error) {
	args := util.CleanArgs(e.Args)
	if len(args) < 2 {
		return nil, argError(CmdDistance, "expected 2 arguments, got %d", len(args))
	}
	a, err := s.position(CmdDistance, args[0])
	if err != nil {
		return nil, err
	}
	b, err := s.position(CmdDistance, args[1])
	if err != nil {
		return nil, err
	}

	proj := s.deps.Navigator.Projection()
	return s.deps.Navigator.Sphere().Distance(proj.ToNormal(a), proj.ToNormal(b)), nil
}

// HandleRoute samples the rest of an entity's route: [id, steps?] -> [[x, y], ...].
func (s *Service) HandleRoute(e dispatcher.Event) (any, error) {
	args := util.CleanArgs(e.Args)
	if len(args) < 1 {
		return nil, argError(CmdRoute, "expected at least 1 argument, got %d", len(args))
	}
	id, err := s.entityID(CmdRoute, args[0])
	if err != nil {
		return nil, err
	}
	steps := s.deps.RouteSteps
	if len(args) > 1 && args[1] != "" {
		n, err := util.ParseUint32(args[1])
		if err != nil || n == 0 {
			return nil, argError(CmdRoute, "steps %q", args[1])
		}
		steps = int(n)
	}

	points, err := s.deps.Navigator.Route(id, steps)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(points))
	for i, p := range points {
		out[i] = []float64{p.X, p.Y}
	}
	return out, nil
}

// HandleIntercept predicts the rendezvous of an entity with its goal: [id] -> [x, y, hours].
func (s *Service) HandleIntercept(e dispatcher.Event) (any, error) {
	args := util.CleanArgs(e.Args)
	if len(args) < 1 {
		return nil, argError(CmdIntercept, "expected 1 argument, got %d", len(args))
	}
	id, err := s.entityID(CmdIntercept, args[0])
	if err != nil {
		return nil, err
	}

	sol, err := s.deps.Navigator.Intercept(id)
	if err != nil {
		return nil, err
	}
	p := s.deps.Navigator.Projection().FromNormal(sol.Point)
	return []float64{p.X, p.Y, sol.Time}, nil
}

// HandleReset clears every entity and cached route.
func (s *Service) HandleReset(e dispatcher.Event) (any, error) {
	s.deps.Store.Reset()
	s.deps.Navigator.Reset()
	s.writeLog(CmdReset, "Navigation state cleared", "INFO")
	return nil, nil
}
