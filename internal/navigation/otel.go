package navigation

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/geoshape/extension/internal/navigation"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type instruments struct {
	ticks      metric.Int64Counter
	outcomes   metric.Int64Counter
	lookups    metric.Int64Counter
	iterations metric.Int64Histogram
}

// newInstruments uses the global OTel meter (no-op if not configured).
func newInstruments() (*instruments, error) {
	m := meter()
	i := &instruments{}

	var err error
	i.ticks, err = m.Int64Counter(
		"navigation.ticks",
		metric.WithDescription("Entity movement steps by mode and result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	i.outcomes, err = m.Int64Counter(
		"navigation.intercept.outcomes",
		metric.WithDescription("Interception predictions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating intercept outcome counter: %w", err)
	}

	i.lookups, err = m.Int64Counter(
		"navigation.arc_cache.lookups",
		metric.WithDescription("Route cache lookups by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating arc cache counter: %w", err)
	}

	i.iterations, err = m.Int64Histogram(
		"navigation.intercept.iterations",
		metric.WithDescription("Bisection iterations per interception prediction"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating iterations histogram: %w", err)
	}

	return i, nil
}

func (i *instruments) recordStep(step Step, err error) {
	ctx := context.Background()

	result := "moved"
	switch {
	case err != nil:
		result = errorKind(err)
	case step.Arrived:
		result = "arrived"
	}
	i.ticks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", step.Mode.String()),
		attribute.String("result", result),
	))
	if err != nil {
		return
	}

	switch step.Mode {
	case ModeIntercept:
		i.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "solved")))
		if step.Interception != nil {
			i.iterations.Record(ctx, int64(step.Interception.Iterations))
		}
	case ModeFallback:
		i.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "fallback")))
	}

	hit := "miss"
	if step.CacheHit {
		hit = "hit"
	}
	i.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", hit)))
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnknownEntity):
		return "unknown_entity"
	case errors.Is(err, ErrNoGoal):
		return "no_goal"
	case errors.Is(err, ErrGoalWithoutPosition):
		return "goal_without_position"
	case errors.Is(err, ErrInvalidSpeed):
		return "invalid_speed"
	default:
		return "error"
	}
}
