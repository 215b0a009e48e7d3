package eventbus

import (
	"context"

	"github.com/annel0/spellduel/internal/combat"
	"github.com/annel0/spellduel/internal/logging"
)

// CombatPublisher переводит боевые события в Envelope и публикует в шину
type CombatPublisher struct {
	bus     EventBus
	source  string
	matchID string
}

// NewCombatPublisher создаёт публикатор для одной дуэли
func NewCombatPublisher(bus EventBus, source, matchID string) *CombatPublisher {
	return &CombatPublisher{bus: bus, source: source, matchID: matchID}
}

// MatchID идентификатор дуэли
func (p *CombatPublisher) MatchID() string { return p.matchID }

// Publish реализует combat.Publisher. Ошибки шины не прерывают тик.
func (p *CombatPublisher) Publish(ev combat.Event) {
	env, err := NewEnvelope(p.source, ev.Type, ev)
	if err != nil {
		logging.Error("❌ EventBus: %v", err)
		return
	}
	env.MatchID = p.matchID
	env.Tick = ev.Tick
	env.Priority = priorityOf(ev.Type)

	if err := p.bus.Publish(context.Background(), env); err != nil {
		logging.Warn("⚠️ EventBus: событие %s не опубликовано: %v", ev.Type, err)
	}
}

// priorityOf косметические эффекты можно терять, активации и волны нет
func priorityOf(eventType string) int {
	switch eventType {
	case combat.EventChainEffect:
		return PriorityLow
	case combat.EventSpellcardActivated, combat.EventWaveSpawned, combat.EventExtraAttack:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}
