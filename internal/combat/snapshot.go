package combat

import (
	"github.com/annel0/spellduel/internal/entity"
	"github.com/annel0/spellduel/internal/vec"
)

// EntityState состояние сущности в снимке
type EntityState struct {
	Handle    uint64        `json:"handle"`
	Archetype string        `json:"archetype"`
	Side      entity.Side   `json:"side"`
	Position  vec.Vec2      `json:"position"`
	Heading   float64       `json:"heading"`
	Health    int           `json:"health,omitempty"`
	Line      entity.LineID `json:"line,omitempty"`
	Index     int           `json:"index,omitempty"`
	Great     bool          `json:"great,omitempty"`
}

// Snapshot снимок состояния дуэли только для чтения (наблюдатели, реплей)
type Snapshot struct {
	Tick     uint64        `json:"tick"`
	ActiveA  int           `json:"active_a"`
	ActiveB  int           `json:"active_b"`
	Entities []EntityState `json:"entities"`
}

// Snapshot собирает снимок в порядке слотов пула
func (c *Core) Snapshot() Snapshot {
	s := Snapshot{
		Tick:     c.sched.Now(),
		ActiveA:  c.sides.Count(entity.SideA),
		ActiveB:  c.sides.Count(entity.SideB),
		Entities: make([]EntityState, 0, c.pool.ActiveCount()),
	}
	c.pool.Each(func(e *entity.Entity) {
		if !e.Alive {
			return
		}
		s.Entities = append(s.Entities, EntityState{
			Handle:    e.Handle.Uint64(),
			Archetype: e.Archetype.ID,
			Side:      e.Side,
			Position:  e.Position,
			Heading:   e.Heading,
			Health:    e.Health,
			Line:      e.Link.Line,
			Index:     e.Link.Index,
			Great:     e.Great,
		})
	})
	return s
}
