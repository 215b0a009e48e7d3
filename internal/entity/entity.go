package entity

import (
	"github.com/annel0/spellduel/internal/behavior"
	"github.com/annel0/spellduel/internal/vec"
)

// Entity пулируемая сущность: враг, снаряд или заглушка эффекта
type Entity struct {
	Handle    Handle
	Archetype *Archetype

	Position vec.Vec2
	Heading  float64 // Радианы
	Side     Side

	TargetSide Side // Чью цель отслеживает поведение

	Health    int
	MaxHealth int
	Alive     bool

	Link LineLink

	Behavior    behavior.State
	HasBehavior bool

	Age         float64 // Секунды с момента активации
	Great       bool
	ExtraAttack bool

	active bool
}

// Active true пока сущность не возвращена в пул
func (e *Entity) Active() bool { return e.active }

// Damageable true если архетип имеет здоровье
func (e *Entity) Damageable() bool {
	return e.Archetype != nil && e.Archetype.Damageable()
}

// Pose текущая поза сущности
func (e *Entity) Pose() behavior.Pose {
	return behavior.Pose{Position: e.Position, Heading: e.Heading}
}

// SetPose устанавливает позицию и направление
func (e *Entity) SetPose(p behavior.Pose) {
	e.Position = p.Position
	e.Heading = p.Heading
}

// Expired true если у архетипа задано время жизни и оно истекло
func (e *Entity) Expired() bool {
	return e.Archetype != nil && e.Archetype.Lifetime > 0 && e.Age >= e.Archetype.Lifetime
}

// reset возвращает переходное состояние к значениям архетипа
func (e *Entity) reset(h Handle, a *Archetype) {
	*e = Entity{
		Handle:    h,
		Archetype: a,
		Health:    a.MaxHealth,
		MaxHealth: a.MaxHealth,
	}
}
