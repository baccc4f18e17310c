// Package scenario loads simulator scenarios and runs them against the
// navigator.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/geoshape/extension/internal/cache"
	"github.com/geoshape/extension/internal/geo"
	"github.com/geoshape/extension/internal/navigation"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/viper"
)

// ErrInvalid is returned for scenarios that cannot be run.
var ErrInvalid = errors.New("invalid scenario")

// Entity is the starting state of one scenario entity.
type Entity struct {
	ID       uint32  `mapstructure:"id"`
	Name     string  `mapstructure:"name"`
	Lat      float64 `mapstructure:"lat"`
	Lon      float64 `mapstructure:"lon"`
	SpeedKph float64 `mapstructure:"speedKph"`
	// Goal is the id of the entity this one moves towards, if any.
	Goal    *uint32 `mapstructure:"goal"`
	CanMove bool    `mapstructure:"canMove"`
}

// Scenario describes a simulator run.
type Scenario struct {
	Name string `mapstructure:"name"`
	// Start is an RFC 3339 timestamp for the simulated clock.
	Start    string        `mapstructure:"start"`
	Tick     time.Duration `mapstructure:"tick"`
	Duration time.Duration `mapstructure:"duration"`
	Entities []Entity      `mapstructure:"entities"`
}

// Load reads a scenario file. JSON, YAML and TOML are accepted, optionally
// zstd-compressed with a trailing ".zst".
func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening scenario: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	name := path
	if strings.HasSuffix(path, ".zst") {
		zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(0))
		if err != nil {
			return nil, fmt.Errorf("decompressing scenario: %w", err)
		}
		defer zr.Close()
		r = zr
		name = strings.TrimSuffix(path, ".zst")
	}

	sc, err := Read(r, strings.TrimPrefix(filepath.Ext(name), "."))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Read decodes a scenario in the given format ("json" when empty) and
// validates it.
func Read(r io.Reader, format string) (*Scenario, error) {
	if format == "" {
		format = "json"
	}

	v := viper.New()
	v.SetConfigType(format)
	v.SetDefault("tick", "1s")
	v.SetDefault("duration", "0s")
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}

	var sc Scenario
	if err := v.Unmarshal(&sc); err != nil {
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the scenario can be run.
func (s *Scenario) Validate() error {
	if s.Tick <= 0 {
		return fmt.Errorf("%w: tick must be positive, got %v", ErrInvalid, s.Tick)
	}
	if s.Duration < 0 {
		return fmt.Errorf("%w: negative duration %v", ErrInvalid, s.Duration)
	}
	if _, err := s.StartTime(); err != nil {
		return fmt.Errorf("%w: start: %v", ErrInvalid, err)
	}
	if len(s.Entities) == 0 {
		return fmt.Errorf("%w: no entities", ErrInvalid)
	}

	ids := make(map[uint32]bool, len(s.Entities))
	for _, e := range s.Entities {
		if ids[e.ID] {
			return fmt.Errorf("%w: duplicate entity %d", ErrInvalid, e.ID)
		}
		ids[e.ID] = true
	}
	for _, e := range s.Entities {
		switch {
		case e.Lat < -90 || e.Lat > 90:
			return fmt.Errorf("%w: entity %d latitude %v", ErrInvalid, e.ID, e.Lat)
		case e.SpeedKph < 0:
			return fmt.Errorf("%w: entity %d speed %v", ErrInvalid, e.ID, e.SpeedKph)
		case e.Goal != nil && *e.Goal == e.ID:
			return fmt.Errorf("%w: entity %d chases itself", ErrInvalid, e.ID)
		case e.Goal != nil && !ids[*e.Goal]:
			return fmt.Errorf("%w: entity %d chases unknown entity %d", ErrInvalid, e.ID, *e.Goal)
		}
	}
	return nil
}

// StartTime returns the simulated start, the Unix epoch when unset.
func (s *Scenario) StartTime() (time.Time, error) {
	if s.Start == "" {
		return time.Unix(0, 0).UTC(), nil
	}
	return time.Parse(time.RFC3339, s.Start)
}

// Apply loads the entities into store, projecting their coordinates with proj.
func (s *Scenario) Apply(store *cache.EntityStore, proj geo.Projection) {
	for _, e := range s.Entities {
		entity := cache.Entity{
			ID:       navigation.EntityID(e.ID),
			Position: proj.ToProjected(geo.LatLon{Lat: e.Lat, Lon: e.Lon}),
			Speed:    e.SpeedKph,
			CanMove:  e.CanMove,
		}
		if e.Goal != nil {
			entity.Goal = navigation.EntityID(*e.Goal)
			entity.HasGoal = true
		}
		store.Upsert(entity)
	}
}
