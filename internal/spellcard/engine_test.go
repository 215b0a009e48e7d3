package spellcard

import (
	"errors"
	"math"
	"testing"

	"github.com/annel0/spellduel/internal/behavior"
	"github.com/annel0/spellduel/internal/entity"
	"github.com/annel0/spellduel/internal/scheduler"
	"github.com/annel0/spellduel/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tickRate = 60

// fakeHost записывает запросы спавна и исполняет таймеры на планировщике
type fakeHost struct {
	sched    *scheduler.Scheduler
	targets  map[entity.Side]vec.Vec2
	spawns   []SpawnRequest
	spawnAt  []uint64
	failures map[string]bool
	next     uint32
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		sched:    scheduler.New(),
		targets:  make(map[entity.Side]vec.Vec2),
		failures: make(map[string]bool),
	}
}

func (h *fakeHost) Schedule(delay float64, fn func()) {
	h.sched.After(scheduler.TicksFor(delay, tickRate), fn)
}

func (h *fakeHost) TargetPosition(side entity.Side) (vec.Vec2, bool) {
	p, ok := h.targets[side]
	return p, ok
}

func (h *fakeHost) Spawn(req SpawnRequest) (entity.Handle, error) {
	if h.failures[req.Archetype] {
		return entity.Handle{}, entity.ErrUnknownArchetype
	}
	h.next++
	h.spawns = append(h.spawns, req)
	h.spawnAt = append(h.spawnAt, h.sched.Now())
	return entity.Handle{Index: h.next, Gen: 1}, nil
}

func (h *fakeHost) run(ticks int, engine *Engine) {
	for i := 0; i < ticks; i++ {
		h.sched.Advance()
		engine.Tick(1.0 / tickRate)
	}
}

func testCatalog(t *testing.T) *entity.Catalog {
	t.Helper()
	c, err := entity.NewCatalog(
		entity.Archetype{ID: "rice", Kind: entity.KindProjectile},
		entity.Archetype{ID: "orb", Kind: entity.KindProjectile},
		entity.Archetype{ID: "fairy", Kind: entity.KindEnemy, MaxHealth: 3},
	)
	require.NoError(t, err)
	return c
}

func scenarioDefinition() *Definition {
	return &Definition{
		Name: "scenario",
		Actions: []Action{
			{StartDelay: 0, Formation: FormationPoint, Count: 1, Archetypes: []string{"rice"},
				Behavior: behavior.Params{Kind: behavior.KindLinear, Speed: 5}},
			{StartDelay: 1.0, Formation: FormationCircle, Count: 6, Radius: 3, Archetypes: []string{"orb"},
				Behavior: behavior.Params{Kind: behavior.KindHoming, Speed: 2, TurnRate: math.Pi}},
		},
	}
}

func TestEngine_ActionsFireAtStartDelay(t *testing.T) {
	host := newFakeHost()
	engine := NewEngine(host, testCatalog(t))

	engine.Execute(scenarioDefinition(), vec.Vec2{X: 5, Y: 5}, 0, entity.SideA, entity.SideB)
	assert.Empty(t, host.spawns, "Execute ничего не создаёт синхронно")

	host.run(1, engine)
	require.Len(t, host.spawns, 1)
	assert.Equal(t, "rice", host.spawns[0].Archetype)

	host.run(58, engine)
	assert.Len(t, host.spawns, 1)

	host.run(1, engine)
	require.Len(t, host.spawns, 7)
	for _, req := range host.spawns[1:] {
		assert.Equal(t, uint64(60), host.spawnAt[len(host.spawnAt)-1])
		assert.InDelta(t, 3, req.Pose.Position.DistanceTo(vec.Vec2{X: 5, Y: 5}), 1e-9)
		assert.Equal(t, behavior.KindHoming, req.Behavior.Kind)
	}
}

func TestEngine_OwnerIsOppositeOfCaster(t *testing.T) {
	host := newFakeHost()
	engine := NewEngine(host, testCatalog(t))

	engine.Execute(scenarioDefinition(), vec.Zero, 0, entity.SideB, entity.SideA)
	host.run(1, engine)

	require.Len(t, host.spawns, 1)
	assert.Equal(t, entity.SideA, host.spawns[0].Side)
	assert.Equal(t, entity.SideA, host.spawns[0].TargetSide)
}

func TestEngine_RoundRobinArchetypes(t *testing.T) {
	host := newFakeHost()
	engine := NewEngine(host, testCatalog(t))
	def := &Definition{Name: "rr", Actions: []Action{{
		Formation: FormationLine, Count: 5, Spacing: 1, Archetypes: []string{"rice", "orb"},
	}}}

	engine.Execute(def, vec.Zero, 0, entity.SideA, entity.SideB)
	host.run(1, engine)

	require.Len(t, host.spawns, 5)
	got := make([]string, 0, 5)
	for _, r := range host.spawns {
		got = append(got, r.Archetype)
	}
	assert.Equal(t, []string{"rice", "orb", "rice", "orb", "rice"}, got)
}

func TestEngine_InvalidActionSkipped(t *testing.T) {
	host := newFakeHost()
	engine := NewEngine(host, testCatalog(t))
	def := &Definition{Name: "bad", Actions: []Action{
		{Formation: FormationPoint, Count: 1, Archetypes: []string{"missing"}},
		{Formation: FormationPoint, Count: 0, Archetypes: []string{"rice"}},
		{Formation: FormationPoint, Count: 1, Archetypes: []string{"rice"}},
	}}

	engine.Execute(def, vec.Zero, 0, entity.SideA, entity.SideB)
	host.run(1, engine)

	assert.Len(t, host.spawns, 1)
	stats := engine.Stats()
	assert.Equal(t, uint64(2), stats.ActionsSkipped)
	assert.Equal(t, uint64(1), stats.ActionsFired)
}

func TestEngine_SpawnFailureDoesNotAbortAction(t *testing.T) {
	host := newFakeHost()
	host.failures["orb"] = true
	engine := NewEngine(host, nil)
	def := &Definition{Name: "partial", Actions: []Action{{
		Formation: FormationCircle, Count: 4, Radius: 1, Archetypes: []string{"rice", "orb"},
	}}}

	engine.Execute(def, vec.Zero, 0, entity.SideA, entity.SideB)
	host.run(1, engine)

	assert.Len(t, host.spawns, 2)
	assert.Equal(t, uint64(2), engine.Stats().SpawnFailures)
}

func TestEngine_ReentrantActivationsAreIndependent(t *testing.T) {
	host := newFakeHost()
	engine := NewEngine(host, testCatalog(t))
	def := scenarioDefinition()

	id1 := engine.Execute(def, vec.Vec2{X: 0}, 0, entity.SideA, entity.SideB)
	host.run(30, engine)
	id2 := engine.Execute(def, vec.Vec2{X: 100}, 0, entity.SideA, entity.SideB)
	assert.NotEqual(t, id1, id2)

	host.run(60, engine)
	require.Len(t, host.spawns, 14)

	near, far := 0, 0
	for _, r := range host.spawns {
		if r.Pose.Position.X > 50 {
			far++
		} else {
			near++
		}
	}
	assert.Equal(t, 7, near)
	assert.Equal(t, 7, far)
}

func TestEngine_CompositeOrientsTowardsTarget(t *testing.T) {
	host := newFakeHost()
	host.targets[entity.SideB] = vec.Vec2{X: 0, Y: 10}
	engine := NewEngine(host, testCatalog(t))
	def := &Definition{Name: "aimed", Composites: []Composite{{
		Name:                "aim",
		OrientTowardsTarget: true,
		Actions: []Action{{
			Formation: FormationPoint, Count: 1, Offset: vec.Vec2{X: 1}, Archetypes: []string{"rice"},
			Behavior: behavior.Params{Kind: behavior.KindLinear, Speed: 1},
		}},
	}}}

	engine.Execute(def, vec.Zero, 0, entity.SideA, entity.SideB)
	host.run(2, engine)

	require.Len(t, host.spawns, 1)
	pose := host.spawns[0].Pose
	assert.InDelta(t, math.Pi/2, pose.Heading, 1e-9, "направление повёрнуто на цель")
	assert.InDelta(t, 0, pose.Position.X, 1e-9)
	assert.InDelta(t, 1, pose.Position.Y, 1e-9, "смещение повёрнуто вместе с группой")
}

func TestEngine_CompositeEmitterMoves(t *testing.T) {
	host := newFakeHost()
	engine := NewEngine(host, testCatalog(t))
	def := &Definition{Name: "sweep", Composites: []Composite{{
		Name:     "sweep",
		Movement: &Movement{Displacement: vec.Vec2{X: 6}, Duration: 1},
		Actions: []Action{
			{StartDelay: 0, Formation: FormationPoint, Count: 1, Archetypes: []string{"rice"}},
			{StartDelay: 0.5, Formation: FormationPoint, Count: 1, Archetypes: []string{"rice"}},
			{StartDelay: 2, Formation: FormationPoint, Count: 1, Archetypes: []string{"rice"}},
		},
	}}}

	engine.Execute(def, vec.Zero, 0, entity.SideA, entity.SideB)
	host.run(1, engine)
	assert.Equal(t, 1, engine.Stats().ActiveEmitters)

	host.run(200, engine)
	require.Len(t, host.spawns, 3)

	xs := []float64{host.spawns[0].Pose.Position.X, host.spawns[1].Pose.Position.X, host.spawns[2].Pose.Position.X}
	assert.Less(t, xs[0], xs[1], "эмиттер движется между действиями")
	assert.InDelta(t, 3, xs[1], 0.2)
	assert.InDelta(t, 6, xs[2], 1e-9, "после окончания движения эмиттер стоит")
	assert.Equal(t, 0, engine.Stats().ActiveEmitters)
}

func TestEngine_BehaviorParamsAreCloned(t *testing.T) {
	host := newFakeHost()
	engine := NewEngine(host, nil)
	def := &Definition{Name: "clone", Actions: []Action{{
		Formation: FormationPoint, Count: 1, Archetypes: []string{"rice"},
		Behavior: behavior.Params{Kind: behavior.KindLinear, Speed: 1, Waypoints: []vec.Vec2{{X: 1}}},
	}}}

	engine.Execute(def, vec.Zero, 0, entity.SideA, entity.SideB)
	host.run(1, engine)
	require.Len(t, host.spawns, 1)

	host.spawns[0].Behavior.Waypoints[0].X = 99
	assert.Equal(t, 1.0, def.Actions[0].Behavior.Waypoints[0].X, "описание неизменно")
}

func TestDefinition_TotalSpawns(t *testing.T) {
	def := scenarioDefinition()
	def.Composites = []Composite{{Actions: []Action{{Count: 3}}}}
	assert.Equal(t, 10, def.TotalSpawns())
}

func TestAction_ValidateWrapsSentinel(t *testing.T) {
	a := Action{Count: 1, Archetypes: []string{"ghost"}}
	err := a.Validate(testCatalog(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidAction))
	assert.True(t, errors.Is(err, entity.ErrUnknownArchetype))
}

func TestEngine_CompositeActionTimingMatchesTopLevel(t *testing.T) {
	host := newFakeHost()
	engine := NewEngine(host, testCatalog(t))
	point := func(archetype string, delay float64) Action {
		return Action{StartDelay: delay, Formation: FormationPoint, Count: 1, Archetypes: []string{archetype}}
	}
	def := &Definition{
		Name:    "nested",
		Actions: []Action{point("rice", 0), point("rice", 0.5)},
		Composites: []Composite{
			{Name: "now", Actions: []Action{point("orb", 0), point("orb", 0.5)}},
			{Name: "later", StartDelay: 0.5, Actions: []Action{point("fairy", 0)}},
		},
	}

	engine.Execute(def, vec.Zero, 0, entity.SideA, entity.SideB)
	host.run(60, engine)
	require.Len(t, host.spawns, 5)

	at := map[string][]uint64{}
	for i, req := range host.spawns {
		at[req.Archetype] = append(at[req.Archetype], host.spawnAt[i])
	}
	assert.Equal(t, []uint64{1, 30}, at["rice"])
	assert.Equal(t, at["rice"], at["orb"], "действия композиции срабатывают в те же тики")
	assert.Equal(t, []uint64{30}, at["fairy"])
}
