package combat

import (
	"math/rand"

	"github.com/annel0/spellduel/internal/behavior"
	"github.com/annel0/spellduel/internal/config"
	"github.com/annel0/spellduel/internal/entity"
	"github.com/annel0/spellduel/internal/logging"
	"github.com/annel0/spellduel/internal/registry"
	"github.com/annel0/spellduel/internal/scheduler"
	"github.com/annel0/spellduel/internal/spellcard"
	"github.com/annel0/spellduel/internal/vec"
)

// Stats счётчики ядра для отладки
type Stats struct {
	Tick            uint64          `json:"tick"`
	Active          int             `json:"active"`
	ActiveA         int             `json:"active_a"`
	ActiveB         int             `json:"active_b"`
	Allocated       int             `json:"allocated"`
	PendingTimers   int             `json:"pending_timers"`
	Lines           int             `json:"lines"`
	Deaths          uint64          `json:"deaths"`
	ChainLinks      uint64          `json:"chain_links"`
	RevengeSpawned  uint64          `json:"revenge_spawned"`
	RevengeRejected uint64          `json:"revenge_rejected"`
	SideViolations  uint64          `json:"side_violations"`
	Waves           uint64          `json:"waves"`
	Spellcards      spellcard.Stats `json:"spellcards"`
}

// Core боевое ядро одной дуэли: пул, реестры, планировщик, движок спелкарт.
// Не потокобезопасен: все вызовы выполняются из тика или под внешней блокировкой.
type Core struct {
	cfg      config.CombatConfig
	tickRate int
	dt       float64

	pool    *entity.Pool
	lines   *registry.LineRegistry
	sides   *registry.SideRegistry
	sched   *scheduler.Scheduler
	engine  *spellcard.Engine
	rng     *rand.Rand

	targets   TargetProvider
	trigger   AttackTrigger
	publisher Publisher
	observer  Observer

	nextLine entity.LineID
	finished []entity.Handle
	stats    Stats
}

// Option настройка Core
type Option func(*Core)

// WithTargets задаёт источник позиций целей
func WithTargets(t TargetProvider) Option { return func(c *Core) { c.targets = t } }

// WithAttackTrigger задаёт получателя дополнительных атак
func WithAttackTrigger(t AttackTrigger) Option { return func(c *Core) { c.trigger = t } }

// WithPublisher задаёт получателя боевых событий
func WithPublisher(p Publisher) Option { return func(c *Core) { c.publisher = p } }

// WithObserver задаёт счётчики (метрики)
func WithObserver(o Observer) Option { return func(c *Core) { c.observer = o } }

// WithSeed задаёт зерно генератора случайных чисел
func WithSeed(seed int64) Option {
	return func(c *Core) { c.rng = rand.New(rand.NewSource(seed)) }
}

// New создаёт ядро. catalog неизменяем и разделяется с загрузчиками.
func New(catalog *entity.Catalog, cfg config.CombatConfig, tickRate int, opts ...Option) *Core {
	if tickRate <= 0 {
		tickRate = 60
	}
	c := &Core{
		cfg:      cfg,
		tickRate: tickRate,
		dt:       1 / float64(tickRate),
		pool:     entity.NewPool(catalog),
		lines:    registry.NewLineRegistry(),
		sides:    registry.NewSideRegistry(),
		sched:    scheduler.New(),
		rng:      rand.New(rand.NewSource(1)),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.engine = spellcard.NewEngine(c, catalog)

	for _, id := range catalog.IDs() {
		a, _ := catalog.Get(id)
		if a.Prewarm > 0 {
			if err := c.pool.Prewarm(id, a.Prewarm); err == nil {
				logging.Debug("♻️ Пул %s: предварительно создано %d", id, a.Prewarm)
			}
		}
	}
	if cfg.Revenge.Enabled && !catalog.Has(cfg.Revenge.Archetype) {
		logging.Warn("⚠️ Архетип ответного спавна %q не найден, ответные спавны отключены", cfg.Revenge.Archetype)
		c.cfg.Revenge.Enabled = false
	}
	return c
}

// Now номер текущего тика
func (c *Core) Now() uint64 { return c.sched.Now() }

// TickRate частота тиков
func (c *Core) TickRate() int { return c.tickRate }

// PendingTimers количество запланированных действий
func (c *Core) PendingTimers() int { return c.sched.Pending() }

// Tick один шаг симуляции: таймеры, эмиттеры, поведения, принудительные смерти
func (c *Core) Tick() {
	c.sched.Advance()
	c.engine.Tick(c.dt)

	c.finished = c.finished[:0]
	c.pool.Each(func(e *entity.Entity) {
		if !e.Alive {
			return
		}
		if e.HasBehavior {
			target := e.Behavior.Target
			if p, ok := c.TargetPosition(e.TargetSide); ok {
				target = p
			}
			pose := e.Pose()
			e.SetPose(pose.Apply(behavior.Advance(&e.Behavior, pose, target, c.dt)))
		}
		e.Age += c.dt
		if e.Expired() || (e.HasBehavior && e.Behavior.Finished()) {
			c.finished = append(c.finished, e.Handle)
		}
	})

	for _, h := range c.finished {
		e, ok := c.pool.Get(h)
		if !ok || !e.Alive {
			continue
		}
		cause := CauseExpired
		if e.HasBehavior && e.Behavior.Finished() {
			cause = CausePathEnd
		}
		c.die(e, entity.SideNone, cause)
	}
}

// Schedule ставит fn через delay секунд, не раньше следующего тика
func (c *Core) Schedule(delay float64, fn func()) {
	c.sched.After(scheduler.TicksFor(delay, c.tickRate), fn)
}

// TargetPosition текущая позиция цели стороны
func (c *Core) TargetPosition(side entity.Side) (vec.Vec2, bool) {
	if c.targets == nil || side == entity.SideNone {
		return vec.Zero, false
	}
	return c.targets.TargetPosition(side)
}

// Spawn создаёт сущность по запросу движка спелкарт
func (c *Core) Spawn(req spellcard.SpawnRequest) (entity.Handle, error) {
	params := req.Behavior
	e, err := c.spawn(req.Archetype, req.Side, req.TargetSide, req.Pose, &params)
	if err != nil {
		return entity.Handle{}, err
	}
	return e.Handle, nil
}

// spawn берёт сущность из пула, задаёт позу и поведение и регистрирует её.
// params == nil означает сущность без поведения.
func (c *Core) spawn(archetype string, side, targetSide entity.Side, pose behavior.Pose, params *behavior.Params) (*entity.Entity, error) {
	e, err := c.pool.Acquire(archetype)
	if err != nil {
		return nil, err
	}
	e.Side = side
	e.TargetSide = targetSide
	if params != nil {
		target, _ := c.TargetPosition(targetSide)
		e.Behavior, pose = behavior.Init(*params, pose, target, c.rng)
		e.HasBehavior = true
	}
	e.SetPose(pose)
	c.sides.Register(e.Handle, side)
	c.observer.EntitySpawned(e.Archetype.Kind, side)
	return e, nil
}

// ActivateSpellcard запускает спелкарту и сразу возвращает управление
func (c *Core) ActivateSpellcard(def *spellcard.Definition, origin vec.Vec2, orientation float64, caster, target entity.Side) uint64 {
	id := c.engine.Execute(def, origin, orientation, caster, target)
	c.observer.SpellcardActivated(def.Name)
	c.publish(Event{
		Type:      EventSpellcardActivated,
		Side:      caster,
		Attacker:  caster,
		Position:  origin,
		Spellcard: def.Name,
		Count:     def.TotalSpawns(),
	})
	return id
}

// ActiveCount количество активных сущностей стороны
func (c *Core) ActiveCount(side entity.Side) int { return c.sides.Count(side) }

// FindNext следующая сущность линии
func (c *Core) FindNext(line entity.LineID, index int) (entity.Handle, bool) {
	return c.lines.FindNext(line, index)
}

// Entity копия состояния активной сущности
func (c *Core) Entity(h entity.Handle) (entity.Entity, bool) {
	e, ok := c.pool.Get(h)
	if !ok {
		return entity.Entity{}, false
	}
	return *e, true
}

// Each обходит активные сущности в порядке слотов (только чтение)
func (c *Core) Each(fn func(e *entity.Entity)) { c.pool.Each(fn) }

// Stats текущие счётчики
func (c *Core) Stats() Stats {
	s := c.stats
	s.Tick = c.sched.Now()
	s.Active = c.pool.ActiveCount()
	s.ActiveA = c.sides.Count(entity.SideA)
	s.ActiveB = c.sides.Count(entity.SideB)
	s.Allocated = c.pool.Allocated()
	s.PendingTimers = c.sched.Pending()
	s.Lines = c.lines.Len()
	s.Spellcards = c.engine.Stats()
	return s
}

// arenaOrigin начало координат арены стороны
func (c *Core) arenaOrigin(side entity.Side) vec.Vec2 {
	if side == entity.SideB {
		return vec.Vec2{X: c.cfg.Arena.SideBOffsetX, Y: c.cfg.Arena.SideBOffsetY}
	}
	return vec.Zero
}

// mirror переносит точку из арены from в соответствующую точку арены to
func (c *Core) mirror(p vec.Vec2, from, to entity.Side) vec.Vec2 {
	return p.Sub(c.arenaOrigin(from)).Add(c.arenaOrigin(to))
}
