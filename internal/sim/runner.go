package sim

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/spellduel/internal/combat"
	"github.com/annel0/spellduel/internal/logging"
	"github.com/annel0/spellduel/internal/metrics"
	"github.com/annel0/spellduel/internal/observability"
	"github.com/annel0/spellduel/internal/snapshot"
)

// Options параметры Runner
type Options struct {
	MatchID            string
	TickInterval       time.Duration
	SnapshotEveryTicks int
	Store              snapshot.Store         // nil: снимки не публикуются
	Metrics            *metrics.CombatMetrics // nil: без метрик
	Tracer             trace.Tracer           // nil: observability.Tracer()
	Logger             *logging.Logger        // nil: глобальный логгер
}

// Runner единственный владелец Core: тик с фиксированной частотой и
// внешние команды сериализуются одной блокировкой.
type Runner struct {
	mu   sync.RWMutex
	core *combat.Core
	opts Options

	snapshots chan combat.Snapshot
	wg        sync.WaitGroup
	ticks     uint64
}

// NewRunner создаёт Runner для ядра
func NewRunner(core *combat.Core, opts Options) *Runner {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second / time.Duration(core.TickRate())
	}
	if opts.Tracer == nil {
		opts.Tracer = observability.Tracer()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	return &Runner{
		core:      core,
		opts:      opts,
		snapshots: make(chan combat.Snapshot, 1),
	}
}

// MatchID идентификатор дуэли
func (r *Runner) MatchID() string { return r.opts.MatchID }

// Run крутит тики до отмены ctx. Блокирующий.
func (r *Runner) Run(ctx context.Context) error {
	if r.opts.Store != nil {
		r.wg.Add(1)
		go r.snapshotLoop(ctx)
	}

	ticker := time.NewTicker(r.opts.TickInterval)
	defer ticker.Stop()

	r.opts.Logger.Info("⏱️ Симуляция %s запущена: тик %s", r.opts.MatchID, r.opts.TickInterval)
	for {
		select {
		case <-ctx.Done():
			r.wg.Wait()
			r.opts.Logger.Info("🛑 Симуляция %s остановлена на тике %d", r.opts.MatchID, r.ticks)
			return nil
		case <-ticker.C:
			r.Step(ctx)
		}
	}
}

// Step выполняет один тик под блокировкой
func (r *Runner) Step(ctx context.Context) {
	_, span := r.opts.Tracer.Start(ctx, "sim.tick")
	defer span.End()

	start := time.Now()
	r.mu.Lock()
	r.core.Tick()
	r.ticks++
	stats := r.core.Stats()
	var snap *combat.Snapshot
	if r.opts.Store != nil && r.opts.SnapshotEveryTicks > 0 && stats.Tick%uint64(r.opts.SnapshotEveryTicks) == 0 {
		s := r.core.Snapshot()
		snap = &s
	}
	r.mu.Unlock()
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.Int64("tick", int64(stats.Tick)),
		attribute.Int("active", stats.Active),
		attribute.Int("pending_timers", stats.PendingTimers),
	)
	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveTick(elapsed, stats)
	}
	if elapsed > r.opts.TickInterval {
		r.opts.Logger.Warn("🐢 Тик %d занял %s (бюджет %s)", stats.Tick, elapsed, r.opts.TickInterval)
	}
	if snap != nil {
		r.offerSnapshot(*snap)
	}
}

// offerSnapshot кладёт снимок в очередь; старый неотправленный заменяется
func (r *Runner) offerSnapshot(s combat.Snapshot) {
	for {
		select {
		case r.snapshots <- s:
			return
		default:
		}
		select {
		case <-r.snapshots:
		default:
		}
	}
}

func (r *Runner) snapshotLoop(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-r.snapshots:
			saveCtx, cancel := context.WithTimeout(ctx, time.Second)
			if err := r.opts.Store.Save(saveCtx, r.opts.MatchID, s); err != nil {
				r.opts.Logger.Warn("⚠️ Снимок тика %d не сохранён: %v", s.Tick, err)
			}
			cancel()
		}
	}
}

// Do выполняет команду над ядром между тиками
func (r *Runner) Do(fn func(c *combat.Core)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.core)
}

// View выполняет запрос только для чтения
func (r *Runner) View(fn func(c *combat.Core)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(r.core)
}
