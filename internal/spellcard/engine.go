package spellcard

import (
	"github.com/annel0/spellduel/internal/behavior"
	"github.com/annel0/spellduel/internal/entity"
	"github.com/annel0/spellduel/internal/logging"
	"github.com/annel0/spellduel/internal/vec"
)

// SpawnRequest запрос на создание одной сущности из действия
type SpawnRequest struct {
	Archetype  string
	Pose       behavior.Pose
	Side       entity.Side // Владелец снаряда
	TargetSide entity.Side // Чью цель отслеживает поведение
	Behavior   behavior.Params
}

// Host окружение, в котором исполняются спелкарты.
// Реализуется ядром боя: планировщик, цели и пул.
type Host interface {
	// Schedule вызывает fn через delay секунд (не раньше следующего тика)
	Schedule(delay float64, fn func())
	// TargetPosition текущая позиция цели стороны
	TargetPosition(side entity.Side) (vec.Vec2, bool)
	// Spawn создаёт сущность; ошибка означает пропуск позы
	Spawn(req SpawnRequest) (entity.Handle, error)
}

// invocation состояние одной активации; между активациями не разделяется
type invocation struct {
	id          uint64
	def         *Definition
	origin      vec.Vec2
	orientation float64
	caster      entity.Side
	target      entity.Side
	spawned     int
}

// emitter движущаяся точка композиции
type emitter struct {
	inv      *invocation
	start    vec.Vec2
	position vec.Vec2
	movement *Movement
	elapsed  float64
	pending  int
}

func (em *emitter) advance(dt float64) {
	if em.movement == nil {
		return
	}
	em.elapsed += dt
	t := 1.0
	if em.movement.Duration > 0 && em.elapsed < em.movement.Duration {
		t = em.elapsed / em.movement.Duration
	}
	em.position = em.start.Add(em.movement.Displacement.Mul(t))
}

func (em *emitter) done() bool {
	if em.pending > 0 {
		return false
	}
	return em.movement == nil || em.elapsed >= em.movement.Duration
}

// compositeRun состояние композиции внутри одной активации.
// em и rotation заполняются при старте композиции.
type compositeRun struct {
	comp     *Composite
	em       *emitter
	rotation float64
}

// Stats счётчики движка
type Stats struct {
	Activations    uint64
	ActionsFired   uint64
	ActionsSkipped uint64
	Spawned        uint64
	SpawnFailures  uint64
	ActiveEmitters int
}

// Engine интерпретатор спелкарт
type Engine struct {
	host     Host
	catalog  *entity.Catalog
	emitters []*emitter
	nextID   uint64
	stats    Stats
}

// NewEngine создаёт движок. catalog используется для повторной проверки
// действий перед исполнением и может быть nil.
func NewEngine(host Host, catalog *entity.Catalog) *Engine {
	return &Engine{host: host, catalog: catalog}
}

// Execute запускает спелкарту и сразу возвращает идентификатор активации.
// Каждое действие планируется на activation+start_delay, действие композиции
// на activation+composite.start_delay+start_delay, поэтому вложенность не
// сдвигает срабатывание.
func (e *Engine) Execute(def *Definition, origin vec.Vec2, orientation float64, caster, target entity.Side) uint64 {
	e.nextID++
	inv := &invocation{
		id:          e.nextID,
		def:         def,
		origin:      origin,
		orientation: orientation,
		caster:      caster,
		target:      target,
	}
	e.stats.Activations++

	logging.Debug("🃏 Спелкарта %s #%d: кастер=%s, цель=%s, действий=%d, композиций=%d",
		def.Name, inv.id, caster, target, len(def.Actions), len(def.Composites))

	for i := range def.Actions {
		action := &def.Actions[i]
		e.host.Schedule(action.StartDelay, func() {
			e.fire(inv, action, inv.origin, inv.orientation)
		})
	}
	for i := range def.Composites {
		run := &compositeRun{comp: &def.Composites[i]}
		// Старт планируется раньше действий: при равном тике он выполнится первым
		e.host.Schedule(run.comp.StartDelay, func() {
			e.startComposite(inv, run)
		})
		for j := range run.comp.Actions {
			action := &run.comp.Actions[j]
			e.host.Schedule(run.comp.StartDelay+action.StartDelay, func() {
				e.fireComposite(inv, run, action)
			})
		}
	}
	return inv.id
}

// Tick продвигает эмиттеры композиций на dt секунд
func (e *Engine) Tick(dt float64) {
	if len(e.emitters) == 0 {
		return
	}
	alive := e.emitters[:0]
	for _, em := range e.emitters {
		em.advance(dt)
		if !em.done() {
			alive = append(alive, em)
		}
	}
	for i := len(alive); i < len(e.emitters); i++ {
		e.emitters[i] = nil
	}
	e.emitters = alive
}

// Stats возвращает копию счётчиков
func (e *Engine) Stats() Stats {
	s := e.stats
	s.ActiveEmitters = len(e.emitters)
	return s
}

func (e *Engine) startComposite(inv *invocation, run *compositeRun) {
	comp := run.comp
	run.rotation = inv.orientation
	if comp.OrientTowardsTarget {
		if target, ok := e.host.TargetPosition(inv.target); ok {
			if d := target.Sub(inv.origin); d.Length() > 0 {
				run.rotation = d.Angle()
			}
		}
	}

	run.em = &emitter{
		inv:      inv,
		start:    inv.origin,
		position: inv.origin,
		movement: comp.Movement,
		pending:  len(comp.Actions),
	}
	e.emitters = append(e.emitters, run.em)
}

func (e *Engine) fireComposite(inv *invocation, run *compositeRun, action *Action) {
	if run.em == nil {
		return
	}
	run.em.pending--
	e.fire(inv, action, run.em.position, run.rotation)
}

func (e *Engine) fire(inv *invocation, action *Action, center vec.Vec2, rotation float64) {
	if err := action.Validate(e.catalog); err != nil {
		e.stats.ActionsSkipped++
		logging.Debug("⚠️ Спелкарта %s #%d: действие пропущено: %v", inv.def.Name, inv.id, err)
		return
	}
	e.stats.ActionsFired++

	owner := inv.caster.Opposite()
	for i, pose := range action.Poses(center, rotation) {
		_, err := e.host.Spawn(SpawnRequest{
			Archetype:  action.Archetype(i),
			Pose:       pose,
			Side:       owner,
			TargetSide: inv.target,
			Behavior:   action.Behavior.Clone(),
		})
		if err != nil {
			e.stats.SpawnFailures++
			logging.Debug("⚠️ Спелкарта %s #%d: спавн %s пропущен: %v", inv.def.Name, inv.id, action.Archetype(i), err)
			continue
		}
		inv.spawned++
		e.stats.Spawned++
	}
}
