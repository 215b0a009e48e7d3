package combat

import (
	"github.com/annel0/spellduel/internal/behavior"
	"github.com/annel0/spellduel/internal/entity"
	"github.com/annel0/spellduel/internal/logging"
	"github.com/annel0/spellduel/internal/vec"
)

// ApplyDamage наносит урон от стороны attacker.
// Сторона может повредить только сущности, принадлежащие ей самой
// (сущности в её арене). attacker == SideNone означает урон от окружения.
func (c *Core) ApplyDamage(h entity.Handle, amount int, attacker entity.Side) Outcome {
	e, ok := c.pool.Get(h)
	if !ok || !e.Alive || !e.Damageable() || amount <= 0 {
		return OutcomeIgnored
	}
	if !c.sameSide(e, attacker) {
		return OutcomeIgnored
	}

	e.Health -= amount
	if e.Health > 0 {
		return OutcomeSurvived
	}
	c.die(e, attacker, CauseDamage)
	return OutcomeDied
}

// Clear убирает сущность. forced — таймаут или очистка области без
// атрибуции: цепочки, ответный спавн и доп. атака не срабатывают.
// Иначе смерть приписывается source с проверкой правила стороны.
func (c *Core) Clear(h entity.Handle, forced bool, source entity.Side) Outcome {
	e, ok := c.pool.Get(h)
	if !ok || !e.Alive {
		return OutcomeIgnored
	}
	if forced {
		c.die(e, entity.SideNone, CauseForced)
		return OutcomeDied
	}
	if !c.sameSide(e, source) {
		return OutcomeIgnored
	}
	c.die(e, source, CauseClear)
	return OutcomeDied
}

func (c *Core) sameSide(e *entity.Entity, attacker entity.Side) bool {
	if attacker == entity.SideNone || attacker == e.Side {
		return true
	}
	c.stats.SideViolations++
	logging.Debug("🚫 Сторона %s не может атаковать %s (сторона %s)", attacker, e.Handle, e.Side)
	return false
}

// die единственный путь смерти. Сущность снимается со всех реестров до
// любых побочных эффектов, которые могут снова занять слот пула.
func (c *Core) die(e *entity.Entity, attacker entity.Side, cause Cause) {
	e.Alive = false

	h := e.Handle
	pos := e.Position
	side := e.Side
	link := e.Link
	kind := e.Archetype.Kind
	archetype := e.Archetype.ID
	extra := e.ExtraAttack

	c.lines.Deregister(h)
	c.sides.Deregister(h)

	if attacker != entity.SideNone {
		if link.Linked() {
			c.triggerChain(pos, attacker, link)
		}
		if kind == entity.KindEnemy {
			c.spawnRevenge(side, pos)
		}
		if extra {
			c.extraAttack(attacker, pos)
		}
	}

	c.stats.Deaths++
	c.observer.EntityDied(cause, side)
	c.publish(Event{
		Type:      EventEntityDied,
		Handle:    h.Uint64(),
		Archetype: archetype,
		Side:      side,
		Attacker:  attacker,
		Cause:     &cause,
		Position:  pos,
		Line:      link.Line,
		Index:     link.Index,
	})

	c.pool.Release(h)
}

// triggerChain планирует убийство следующего звена линии.
// Замыкание хранит только значения: позицию, сторону убийцы, линию и индекс.
func (c *Core) triggerChain(pos vec.Vec2, killer entity.Side, link entity.LineLink) {
	line, index := link.Line, link.Index
	c.Schedule(c.cfg.ChainDelaySeconds, func() {
		c.publish(Event{
			Type:     EventChainEffect,
			Attacker: killer,
			Position: pos,
			Line:     line,
			Index:    index,
			Radius:   c.cfg.ChainEffectRadius,
		})

		next, ok := c.lines.FindNext(line, index)
		if !ok {
			return
		}
		e, ok := c.pool.Get(next)
		if !ok || !e.Alive {
			return
		}
		c.stats.ChainLinks++
		c.observer.ChainLink()
		c.die(e, killer, CauseChain)
	})
}

// spawnRevenge создаёт ответную сущность на стороне соперника владельца
// жертвы в зеркальной точке его арены. Сверх лимита стороны молча пропускается.
func (c *Core) spawnRevenge(victimSide entity.Side, pos vec.Vec2) {
	rc := c.cfg.Revenge
	if !rc.Enabled || victimSide == entity.SideNone {
		return
	}
	side := victimSide.Opposite()
	if rc.MaxPerSide > 0 && c.sides.Count(side) >= rc.MaxPerSide {
		c.stats.RevengeRejected++
		c.observer.RevengeRejected(side)
		return
	}

	at := c.mirror(pos, victimSide, side)
	heading := 0.0
	if target, ok := c.TargetPosition(side); ok {
		heading = target.Sub(at).Angle()
	}
	params := behavior.Params{Kind: behavior.KindLinear, Speed: rc.Speed}
	e, err := c.spawn(rc.Archetype, side, side, behavior.Pose{Position: at, Heading: heading}, &params)
	if err != nil {
		logging.Debug("⚠️ Ответный спавн пропущен: %v", err)
		return
	}

	c.stats.RevengeSpawned++
	c.observer.RevengeSpawned(side)
	c.publish(Event{
		Type:      EventRevengeSpawned,
		Handle:    e.Handle.Uint64(),
		Archetype: rc.Archetype,
		Side:      side,
		Position:  at,
	})
}

func (c *Core) extraAttack(side entity.Side, pos vec.Vec2) {
	if c.trigger != nil {
		c.trigger.ExtraAttack(side, pos)
	}
	c.publish(Event{Type: EventExtraAttack, Side: side, Attacker: side, Position: pos})
}
