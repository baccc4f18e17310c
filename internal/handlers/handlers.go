// Package handlers implements the host commands on top of the navigator.
package handlers

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/geoshape/extension/internal/cache"
	"github.com/geoshape/extension/internal/dispatcher"
	"github.com/geoshape/extension/internal/geo"
	"github.com/geoshape/extension/internal/logging"
	"github.com/geoshape/extension/internal/navigation"
	"github.com/geoshape/extension/internal/util"
)

// Commands understood by the extension.
const (
	CmdVersion   = ":VERSION:"
	CmdLog       = ":LOG:"
	CmdEntity    = ":NAV:ENTITY:"
	CmdRemove    = ":NAV:REMOVE:"
	CmdAdvance   = ":NAV:ADVANCE:"
	CmdTick      = ":NAV:TICK:"
	CmdDistance  = ":NAV:DISTANCE:"
	CmdRoute     = ":NAV:ROUTE:"
	CmdIntercept = ":NAV:INTERCEPT:"
	CmdReset     = ":NAV:RESET:"
)

// DefaultRouteSteps is used by :NAV:ROUTE: when the host sends no step count.
const DefaultRouteSteps = 100

// ErrArguments is returned when a command receives malformed arguments.
var ErrArguments = errors.New("invalid arguments")

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Navigator        *navigation.Navigator
	Store            *cache.EntityStore
	LogManager       *logging.SlogManager
	ExtensionVersion string
	BuildDate        string
	RouteSteps       int
}

// Service provides handler methods for host commands
type Service struct {
	deps         Dependencies
	writeLogFunc func(functionName, data, level string)
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.RouteSteps <= 0 {
		deps.RouteSteps = DefaultRouteSteps
	}
	s := &Service{deps: deps}
	// Default writeLog function uses the logging manager
	s.writeLogFunc = func(functionName, data, level string) {
		if deps.LogManager != nil {
			deps.LogManager.WriteLog(functionName, data, level)
		}
	}
	return s
}

// Register adds every command to d.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	d.Register(CmdVersion, s.HandleVersion)
	d.Register(CmdLog, s.HandleLog, dispatcher.Buffered(1000))
	d.Register(CmdEntity, s.HandleEntity)
	d.Register(CmdRemove, s.HandleRemove, dispatcher.Logged())
	d.Register(CmdAdvance, s.HandleAdvance)
	d.Register(CmdTick, s.HandleTick, dispatcher.Logged())
	d.Register(CmdDistance, s.HandleDistance)
	d.Register(CmdRoute, s.HandleRoute, dispatcher.Logged())
	d.Register(CmdIntercept, s.HandleIntercept, dispatcher.Logged())
	d.Register(CmdReset, s.HandleReset, dispatcher.Logged())
}

func (s *Service) writeLog(functionName, data, level string) {
	s.writeLogFunc(functionName, data, level)
}

func argError(command string, format string, a ...any) error {
	return fmt.Errorf("%w: %s %s", ErrArguments, command, fmt.Sprintf(format, a...))
}

func (s *Service) entityID(command, arg string) (navigation.EntityID, error) {
	id, err := util.ParseUint32(arg)
	if err != nil {
		return 0, argError(command, "%v", err)
	}
	return navigation.EntityID(id), nil
}

// position parses a projected "x,y" argument and clamps it to the poles.
func (s *Service) position(command, arg string) (geo.Position2D, error) {
	pos, err := geo.Position2DFromString(arg)
	if err != nil {
		return geo.Position2D{}, argError(command, "position %q: %v", arg, err)
	}
	return s.deps.Navigator.Projection().Clamp(pos), nil
}

// maxElapsedSeconds is the longest span a time.Duration can hold.
const maxElapsedSeconds = math.MaxInt64 / float64(time.Second)

func (s *Service) elapsed(command, arg string) (float64, error) {
	seconds, err := util.ParseFloat(arg)
	if err != nil {
		return 0, argError(command, "elapsed: %v", err)
	}
	if math.IsNaN(seconds) || math.Abs(seconds) >= maxElapsedSeconds {
		return 0, argError(command, "elapsed %q out of range", arg)
	}
	return seconds, nil
}
