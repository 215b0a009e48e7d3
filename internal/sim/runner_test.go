package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/spellduel/internal/behavior"
	"github.com/annel0/spellduel/internal/combat"
	"github.com/annel0/spellduel/internal/config"
	"github.com/annel0/spellduel/internal/entity"
	"github.com/annel0/spellduel/internal/snapshot"
	"github.com/annel0/spellduel/internal/spellcard"
	"github.com/annel0/spellduel/internal/vec"
)

func newTestCore(t *testing.T) *combat.Core {
	t.Helper()
	catalog, err := entity.NewCatalog(entity.Archetype{ID: "rice", Kind: entity.KindProjectile})
	require.NoError(t, err)
	return combat.New(catalog, config.Default().Combat, 60)
}

func TestRunner_StepAndSnapshot(t *testing.T) {
	store := snapshot.NewMemoryStore()
	r := NewRunner(newTestCore(t), Options{MatchID: "m", SnapshotEveryTicks: 2, Store: store})

	r.Do(func(c *combat.Core) {
		_, err := c.Spawn(spellcard.SpawnRequest{
			Archetype: "rice",
			Side:      entity.SideA,
			Behavior:  behavior.Params{Kind: behavior.KindLinear, Speed: 6},
		})
		require.NoError(t, err)
	})

	ctx, cancel := context.WithCancel(context.Background())
	r.wg.Add(1)
	go r.snapshotLoop(ctx)

	for i := 0; i < 4; i++ {
		r.Step(ctx)
	}

	assert.Eventually(t, func() bool {
		s, err := store.Latest(context.Background(), "m")
		return err == nil && s.Tick == 4
	}, time.Second, 5*time.Millisecond)

	cancel()
	r.wg.Wait()

	var active int
	r.View(func(c *combat.Core) { active = c.ActiveCount(entity.SideA) })
	assert.Equal(t, 1, active)
}

func TestRunner_OfferSnapshotKeepsLatest(t *testing.T) {
	r := NewRunner(newTestCore(t), Options{})
	for tick := uint64(1); tick <= 3; tick++ {
		r.offerSnapshot(combat.Snapshot{Tick: tick})
	}
	s := <-r.snapshots
	assert.Equal(t, uint64(3), s.Tick)
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	r := NewRunner(newTestCore(t), Options{MatchID: "m", TickInterval: time.Millisecond, Store: snapshot.NewMemoryStore(), SnapshotEveryTicks: 1})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Eventually(t, func() bool {
		var tick uint64
		r.View(func(c *combat.Core) { tick = c.Now() })
		return tick >= 5
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run не завершился после отмены")
	}
}

func TestRunner_DoIsSerializedWithTicks(t *testing.T) {
	r := NewRunner(newTestCore(t), Options{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Step(ctx)
		}()
		go func() {
			defer wg.Done()
			r.Do(func(c *combat.Core) {
				_, _ = c.Spawn(spellcard.SpawnRequest{Archetype: "rice", Side: entity.SideB, Pose: behavior.Pose{Position: vec.Vec2{X: 40}}})
			})
		}()
	}
	wg.Wait()

	r.View(func(c *combat.Core) {
		assert.Equal(t, uint64(8), c.Now())
		assert.Equal(t, 8, c.ActiveCount(entity.SideB))
	})
}
