package entity

import (
	"errors"
	"testing"

	"github.com/annel0/spellduel/internal/behavior"
	"github.com/annel0/spellduel/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(
		Archetype{ID: "fairy", Kind: KindEnemy, MaxHealth: 3, Lifetime: 10},
		Archetype{ID: "bullet", Kind: KindProjectile},
	)
	require.NoError(t, err)
	return c
}

func TestPool_AcquireAllocatesOnDemand(t *testing.T) {
	p := NewPool(testCatalog(t))

	a, err := p.Acquire("fairy")
	require.NoError(t, err)
	b, err := p.Acquire("fairy")
	require.NoError(t, err)

	assert.NotEqual(t, a.Handle, b.Handle)
	assert.Equal(t, 2, p.ActiveCount())
	assert.Equal(t, 2, p.Allocated())
	assert.True(t, a.Active())
	assert.True(t, a.Alive)
	assert.Equal(t, 3, a.Health)
}

func TestPool_UnknownArchetype(t *testing.T) {
	p := NewPool(testCatalog(t))

	_, err := p.Acquire("dragon")
	assert.True(t, errors.Is(err, ErrUnknownArchetype))
	assert.Equal(t, 0, p.Allocated())
}

func TestPool_RoundTripRestoresDefaults(t *testing.T) {
	p := NewPool(testCatalog(t))

	e, err := p.Acquire("fairy")
	require.NoError(t, err)
	old := e.Handle

	// Загрязняем переходное состояние
	e.Health = 1
	e.Link = LineLink{Line: 7, Index: 2}
	e.Behavior, _ = behavior.Init(behavior.Params{Kind: behavior.KindLinear, Speed: 4}, behavior.Pose{}, vec.Zero, nil)
	e.HasBehavior = true
	e.Side = SideB
	e.Great = true
	e.Age = 5

	require.True(t, p.Release(old))

	again, err := p.Acquire("fairy")
	require.NoError(t, err)

	assert.Equal(t, old.Index, again.Handle.Index, "слот должен переиспользоваться")
	assert.NotEqual(t, old.Gen, again.Handle.Gen)
	assert.Equal(t, 3, again.Health)
	assert.False(t, again.Link.Linked())
	assert.False(t, again.HasBehavior)
	assert.Equal(t, behavior.State{}, again.Behavior)
	assert.Equal(t, SideNone, again.Side)
	assert.False(t, again.Great)
	assert.Zero(t, again.Age)
	assert.Equal(t, 1, p.Allocated())
}

func TestPool_DoubleReleaseIsNoop(t *testing.T) {
	p := NewPool(testCatalog(t))

	e, err := p.Acquire("bullet")
	require.NoError(t, err)
	h := e.Handle

	assert.True(t, p.Release(h))
	assert.False(t, p.Release(h))
	assert.Equal(t, 0, p.ActiveCount())
	assert.Equal(t, 1, p.FreeCount("bullet"))
}

func TestPool_StaleHandleRejected(t *testing.T) {
	p := NewPool(testCatalog(t))

	e, err := p.Acquire("bullet")
	require.NoError(t, err)
	stale := e.Handle
	require.True(t, p.Release(stale))

	fresh, err := p.Acquire("bullet")
	require.NoError(t, err)

	_, ok := p.Get(stale)
	assert.False(t, ok, "устаревший Handle не должен резолвиться в переиспользованный слот")
	assert.False(t, p.Release(stale), "устаревший Handle не должен освобождать новую сущность")

	got, ok := p.Get(fresh.Handle)
	require.True(t, ok)
	assert.Same(t, fresh, got)
	assert.Equal(t, 1, p.ActiveCount())
}

func TestPool_ArchetypesDoNotShareFreeLists(t *testing.T) {
	p := NewPool(testCatalog(t))

	f, _ := p.Acquire("fairy")
	p.Release(f.Handle)

	b, err := p.Acquire("bullet")
	require.NoError(t, err)
	assert.NotEqual(t, f.Handle.Index, b.Handle.Index)
	assert.Equal(t, "bullet", b.Archetype.ID)
}

func TestPool_PrewarmAndEach(t *testing.T) {
	p := NewPool(testCatalog(t))
	require.NoError(t, p.Prewarm("bullet", 4))
	assert.Equal(t, 4, p.Allocated())
	assert.Equal(t, 0, p.ActiveCount())

	for i := 0; i < 4; i++ {
		_, err := p.Acquire("bullet")
		require.NoError(t, err)
	}
	assert.Equal(t, 4, p.Allocated(), "prewarm должен покрыть спрос без новых аллокаций")

	visited := 0
	p.Each(func(e *Entity) { visited++ })
	assert.Equal(t, 4, visited)
}

func TestHandle_Uint64RoundTrip(t *testing.T) {
	h := Handle{Index: 12, Gen: 3}
	assert.Equal(t, h, HandleFromUint64(h.Uint64()))
	assert.True(t, Handle{}.IsZero())
}
