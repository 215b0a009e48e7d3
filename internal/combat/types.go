package combat

import (
	"fmt"

	"github.com/annel0/spellduel/internal/entity"
	"github.com/annel0/spellduel/internal/vec"
)

// Outcome результат нанесения урона
type Outcome uint8

const (
	OutcomeSurvived Outcome = iota
	OutcomeDied
	// OutcomeIgnored: устаревший Handle, сущность уже мертва, архетип без
	// здоровья, нарушение правила стороны или неположительный урон
	OutcomeIgnored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSurvived:
		return "survived"
	case OutcomeDied:
		return "died"
	default:
		return "ignored"
	}
}

// Cause причина смерти сущности
type Cause uint8

const (
	CauseDamage Cause = iota
	CauseChain
	CauseClear
	CauseForced
	CauseExpired
	CausePathEnd
)

func (c Cause) String() string {
	switch c {
	case CauseDamage:
		return "damage"
	case CauseChain:
		return "chain"
	case CauseClear:
		return "clear"
	case CauseForced:
		return "forced"
	case CauseExpired:
		return "expired"
	case CausePathEnd:
		return "path_end"
	default:
		return "unknown"
	}
}

// MarshalText причина в событиях пишется строкой
func (c Cause) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText обратная операция к MarshalText
func (c *Cause) UnmarshalText(text []byte) error {
	for v := CauseDamage; v <= CausePathEnd; v++ {
		if v.String() == string(text) {
			*c = v
			return nil
		}
	}
	return fmt.Errorf("неизвестная причина смерти %q", text)
}

// TargetProvider текущая позиция цели (игрока) стороны
type TargetProvider interface {
	TargetPosition(side entity.Side) (vec.Vec2, bool)
}

// AttackTrigger получает уведомление о дополнительной атаке
type AttackTrigger interface {
	ExtraAttack(side entity.Side, position vec.Vec2)
}

// Publisher принимает боевые события. Вызывается из тика, не должен блокировать.
type Publisher interface {
	Publish(ev Event)
}

// Observer счётчики боевого ядра (метрики)
type Observer interface {
	EntitySpawned(kind entity.Kind, side entity.Side)
	EntityDied(cause Cause, side entity.Side)
	ChainLink()
	RevengeSpawned(side entity.Side)
	RevengeRejected(side entity.Side)
	SpellcardActivated(name string)
	WaveSpawned(side entity.Side, size int)
}

// StaticTargets цели сторон, задаваемые извне (отладка, тесты)
type StaticTargets map[entity.Side]vec.Vec2

// TargetPosition реализует TargetProvider
func (t StaticTargets) TargetPosition(side entity.Side) (vec.Vec2, bool) {
	p, ok := t[side]
	return p, ok
}

type noopObserver struct{}

func (noopObserver) EntitySpawned(entity.Kind, entity.Side) {}
func (noopObserver) EntityDied(Cause, entity.Side)          {}
func (noopObserver) ChainLink()                             {}
func (noopObserver) RevengeSpawned(entity.Side)             {}
func (noopObserver) RevengeRejected(entity.Side)            {}
func (noopObserver) SpellcardActivated(string)              {}
func (noopObserver) WaveSpawned(entity.Side, int)           {}
