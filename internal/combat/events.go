package combat

import (
	"github.com/annel0/spellduel/internal/entity"
	"github.com/annel0/spellduel/internal/vec"
)

// Типы боевых событий
const (
	EventSpellcardActivated = "spellcard.activated"
	EventEntityDied         = "entity.died"
	EventChainEffect        = "chain.effect"
	EventRevengeSpawned     = "revenge.spawned"
	EventWaveSpawned        = "wave.spawned"
	EventExtraAttack        = "extra_attack"
)

// EventTypes все типы событий ядра
var EventTypes = []string{
	EventSpellcardActivated,
	EventEntityDied,
	EventChainEffect,
	EventRevengeSpawned,
	EventWaveSpawned,
	EventExtraAttack,
}

// Event боевое событие. Заполняются только поля, относящиеся к типу.
type Event struct {
	Type      string        `json:"type"`
	Tick      uint64        `json:"tick"`
	Handle    uint64        `json:"handle,omitempty"`
	Archetype string        `json:"archetype,omitempty"`
	Side      entity.Side   `json:"side"`
	Attacker  entity.Side   `json:"attacker"`
	Cause     *Cause        `json:"cause,omitempty"`
	Position  vec.Vec2      `json:"position"`
	Line      entity.LineID `json:"line,omitempty"`
	Index     int           `json:"index,omitempty"`
	Radius    float64       `json:"radius,omitempty"`
	Spellcard string        `json:"spellcard,omitempty"`
	Count     int           `json:"count,omitempty"`
}

func (c *Core) publish(ev Event) {
	if c.publisher == nil {
		return
	}
	ev.Tick = c.sched.Now()
	c.publisher.Publish(ev)
}
