package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/spellduel/internal/combat"
	"github.com/annel0/spellduel/internal/entity"
)

// CombatMetrics Prometheus-метрики боевого ядра. Реализует combat.Observer.
//
// Метрики:
// * spellduel_entities_spawned_total{kind,side}
// * spellduel_entities_died_total{cause,side}
// * spellduel_chain_links_total
// * spellduel_revenge_total{side,result}
// * spellduel_spellcards_activated_total{spellcard}
// * spellduel_waves_spawned_total{side}
// * spellduel_entities_active{side}
// * spellduel_timers_pending
// * spellduel_tick_duration_seconds
type CombatMetrics struct {
	spawned    *prometheus.CounterVec
	died       *prometheus.CounterVec
	chainLinks prometheus.Counter
	revenge    *prometheus.CounterVec
	spellcards *prometheus.CounterVec
	waves      *prometheus.CounterVec
	active     *prometheus.GaugeVec
	pending    prometheus.Gauge
	tick       prometheus.Histogram
}

// NewCombatMetrics создаёт метрики и регистрирует их в reg.
func NewCombatMetrics(reg prometheus.Registerer) *CombatMetrics {
	const ns = "spellduel"
	m := &CombatMetrics{
		spawned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "entities_spawned_total",
			Help:      "Сущности, взятые из пула.",
		}, []string{"kind", "side"}),
		died: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "entities_died_total",
			Help:      "Смерти сущностей по причинам.",
		}, []string{"cause", "side"}),
		chainLinks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "chain_links_total",
			Help:      "Звенья цепных убийств.",
		}),
		revenge: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "revenge_total",
			Help:      "Ответные спавны: созданные и отклонённые лимитом стороны.",
		}, []string{"side", "result"}),
		spellcards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "spellcards_activated_total",
			Help:      "Активации спелкарт.",
		}, []string{"spellcard"}),
		waves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "waves_spawned_total",
			Help:      "Созданные волны врагов.",
		}, []string{"side"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "entities_active",
			Help:      "Активные сущности по сторонам.",
		}, []string{"side"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "timers_pending",
			Help:      "Запланированные действия планировщика.",
		}),
		tick: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "tick_duration_seconds",
			Help:      "Длительность одного тика симуляции.",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033},
		}),
	}

	reg.MustRegister(m.spawned, m.died, m.chainLinks, m.revenge, m.spellcards, m.waves, m.active, m.pending, m.tick)
	return m
}

func (m *CombatMetrics) EntitySpawned(kind entity.Kind, side entity.Side) {
	m.spawned.WithLabelValues(kind.String(), side.String()).Inc()
}

func (m *CombatMetrics) EntityDied(cause combat.Cause, side entity.Side) {
	m.died.WithLabelValues(cause.String(), side.String()).Inc()
}

func (m *CombatMetrics) ChainLink() { m.chainLinks.Inc() }

func (m *CombatMetrics) RevengeSpawned(side entity.Side) {
	m.revenge.WithLabelValues(side.String(), "spawned").Inc()
}

func (m *CombatMetrics) RevengeRejected(side entity.Side) {
	m.revenge.WithLabelValues(side.String(), "rejected").Inc()
}

func (m *CombatMetrics) SpellcardActivated(name string) {
	m.spellcards.WithLabelValues(name).Inc()
}

func (m *CombatMetrics) WaveSpawned(side entity.Side, _ int) {
	m.waves.WithLabelValues(side.String()).Inc()
}

// ObserveTick записывает длительность тика и текущие размеры
func (m *CombatMetrics) ObserveTick(d time.Duration, stats combat.Stats) {
	m.tick.Observe(d.Seconds())
	m.active.WithLabelValues(entity.SideA.String()).Set(float64(stats.ActiveA))
	m.active.WithLabelValues(entity.SideB.String()).Set(float64(stats.ActiveB))
	m.pending.Set(float64(stats.PendingTimers))
}
