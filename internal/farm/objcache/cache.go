// Package objcache remembers every entity seen during the current run.
//
// Insertion is add-if-absent: the first sighting of an entity id fixes its
// position for the rest of the run, so a scanned candidate stays a stable
// pathing target even if the entity later moves.
package objcache

import (
	"sort"

	"hoardfarm.ai/internal/geom"
)

type Object struct {
	ID     uint32
	DataID uint32
	Pos    geom.Vec3
}

type Cache struct {
	byID map[uint32]Object
}

func New() *Cache {
	return &Cache{byID: map[uint32]Object{}}
}

// Refresh adds every object not seen before and returns how many were new.
func (c *Cache) Refresh(objs []Object) int {
	added := 0
	for _, o := range objs {
		if _, ok := c.byID[o.ID]; ok {
			continue
		}
		c.byID[o.ID] = o
		added++
	}
	return added
}

// FindKind returns the lowest-id object with the given template id.
func (c *Cache) FindKind(dataID uint32) (Object, bool) {
	var (
		best  Object
		found bool
	)
	for _, o := range c.byID {
		if o.DataID != dataID {
			continue
		}
		if !found || o.ID < best.ID {
			best = o
			found = true
		}
	}
	return best, found
}

// Objects returns a snapshot ordered by id.
func (c *Cache) Objects() []Object {
	out := make([]Object, 0, len(c.byID))
	for _, o := range c.byID {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Cache) Reset() {
	clear(c.byID)
}
