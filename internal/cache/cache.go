package cache

import (
	"slices"
	"sync"

	"github.com/geoshape/extension/internal/geo"
	"github.com/geoshape/extension/internal/navigation"
)

// Entity mirrors the host's view of a navigable entity.
type Entity struct {
	ID       navigation.EntityID `json:"id"`
	Position geo.Position2D      `json:"position"`
	Heading  geo.Vec2            `json:"heading"`
	// Speed in km/h.
	Speed   float64             `json:"speed"`
	Goal    navigation.EntityID `json:"goal"`
	HasGoal bool                `json:"hasGoal"`
	CanMove bool                `json:"canMove"`
}

// EntityStore keeps the entity state pushed by the host between ticks so the
// navigator can read it without calling back into the game.
// Latency in these calls is critical, every tick reads each entity several times.
type EntityStore struct {
	mu       sync.RWMutex
	entities map[navigation.EntityID]Entity
}

var _ navigation.Store = (*EntityStore)(nil)

func NewEntityStore() *EntityStore {
	return &EntityStore{
		entities: make(map[navigation.EntityID]Entity),
	}
}

// Upsert adds or replaces e, keeping the last written heading when the host
// does not send one. It reports whether the entity's goal changed.
func (s *EntityStore) Upsert(e Entity) (goalChanged bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, existed := s.entities[e.ID]
	if existed && e.Heading == (geo.Vec2{}) {
		e.Heading = old.Heading
	}
	s.entities[e.ID] = e
	return existed && (old.HasGoal != e.HasGoal || old.Goal != e.Goal)
}

// Remove forgets id and reports whether it was known.
func (s *EntityStore) Remove(id navigation.EntityID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entities[id]
	delete(s.entities, id)
	return ok
}

func (s *EntityStore) Get(id navigation.EntityID) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	return e, ok
}

func (s *EntityStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

func (s *EntityStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = make(map[navigation.EntityID]Entity)
}

// Entities returns all ids in ascending order.
func (s *EntityStore) Entities() []navigation.EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]navigation.EntityID, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *EntityStore) Position(id navigation.EntityID) (geo.Position2D, bool) {
	e, ok := s.Get(id)
	return e.Position, ok
}

func (s *EntityStore) Speed(id navigation.EntityID) (float64, bool) {
	e, ok := s.Get(id)
	return e.Speed, ok
}

func (s *EntityStore) Goal(id navigation.EntityID) (navigation.EntityID, bool) {
	e, ok := s.Get(id)
	if !ok || !e.HasGoal {
		return 0, false
	}
	return e.Goal, true
}

func (s *EntityStore) CanMove(id navigation.EntityID) bool {
	e, ok := s.Get(id)
	return ok && e.CanMove
}

func (s *EntityStore) SetPosition(id navigation.EntityID, pos geo.Position2D) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[id]; ok {
		e.Position = pos
		s.entities[id] = e
	}
}

func (s *EntityStore) SetHeading(id navigation.EntityID, heading geo.Vec2) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[id]; ok {
		e.Heading = heading
		s.entities[id] = e
	}
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
