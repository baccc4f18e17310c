package navigation

import (
	"math"

	"github.com/geoshape/extension/internal/geo"
	"github.com/geoshape/extension/internal/greatcircle"
	lru "github.com/hashicorp/golang-lru/v2"
)

// onCircleEpsilon bounds |plane · position| for a position still considered
// to lie on a cached route's great circle.
const onCircleEpsilon = 1e-7

// ArcKey identifies a pursuer chasing one specific goal.
type ArcKey struct {
	Pursuer EntityID
	Goal    EntityID
}

// ArcEntry is a cached route together with the state it was built from.
type ArcEntry struct {
	Arc *greatcircle.Arc
	// GoalTarget is the goal's own goal when the route was built.
	GoalTarget    EntityID
	HasGoalTarget bool
}

// ArcCache keeps at most one active route per pursuer, bounded in size.
// It is not safe for concurrent use on its own; Navigator serializes access.
type ArcCache struct {
	arcs      *lru.Cache[ArcKey, ArcEntry]
	byPursuer map[EntityID]ArcKey
}

// NewArcCache creates a cache holding at most size routes.
func NewArcCache(size int) (*ArcCache, error) {
	c := &ArcCache{byPursuer: make(map[EntityID]ArcKey)}
	arcs, err := lru.NewWithEvict(size, func(key ArcKey, _ ArcEntry) {
		if c.byPursuer[key.Pursuer] == key {
			delete(c.byPursuer, key.Pursuer)
		}
	})
	if err != nil {
		return nil, err
	}
	c.arcs = arcs
	return c, nil
}

// Get returns the route cached for key.
func (c *ArcCache) Get(key ArcKey) (ArcEntry, bool) {
	return c.arcs.Get(key)
}

// Put stores the route for key, replacing any route the pursuer had towards
// another goal.
func (c *ArcCache) Put(key ArcKey, e ArcEntry) {
	if old, ok := c.byPursuer[key.Pursuer]; ok && old != key {
		c.arcs.Remove(old)
	}
	c.byPursuer[key.Pursuer] = key
	c.arcs.Add(key, e)
}

// Active returns the route the pursuer currently follows, whatever its goal.
func (c *ArcCache) Active(pursuer EntityID) (*greatcircle.Arc, bool) {
	key, ok := c.byPursuer[pursuer]
	if !ok {
		return nil, false
	}
	e, ok := c.arcs.Peek(key)
	if !ok {
		return nil, false
	}
	return e.Arc, true
}

// Invalidate removes the pursuer's route.
func (c *ArcCache) Invalidate(pursuer EntityID) {
	if key, ok := c.byPursuer[pursuer]; ok {
		c.arcs.Remove(key)
		delete(c.byPursuer, pursuer)
	}
}

// Len returns the number of cached routes.
func (c *ArcCache) Len() int {
	return c.arcs.Len()
}

// Purge removes every route.
func (c *ArcCache) Purge() {
	c.arcs.Purge()
	clear(c.byPursuer)
}

// reusable reports whether e can keep serving a pursuer at position aiming
// at aim while its goal follows goalTarget.
func (e ArcEntry) reusable(sphere geo.Sphere, position, aim geo.Vec3, goalTarget EntityID, hasGoalTarget bool, tolerance float64) bool {
	if e.HasGoalTarget != hasGoalTarget || (hasGoalTarget && e.GoalTarget != goalTarget) {
		return false
	}
	if math.Abs(e.Arc.PlaneNormal().Dot(position.Normalize())) > onCircleEpsilon {
		return false
	}
	return sphere.Distance(e.Arc.End(), aim) <= tolerance
}
