package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/annel0/spellduel/internal/api"
	"github.com/annel0/spellduel/internal/combat"
	"github.com/annel0/spellduel/internal/config"
	"github.com/annel0/spellduel/internal/entity"
	"github.com/annel0/spellduel/internal/eventbus"
	"github.com/annel0/spellduel/internal/logging"
	"github.com/annel0/spellduel/internal/metrics"
	"github.com/annel0/spellduel/internal/observability"
	"github.com/annel0/spellduel/internal/replay"
	"github.com/annel0/spellduel/internal/sim"
	"github.com/annel0/spellduel/internal/snapshot"
	"github.com/annel0/spellduel/internal/spellcard"
	"github.com/annel0/spellduel/internal/vec"
)

func main() {
	var (
		configPath = flag.String("config", "", "Путь к YAML конфигурации (или SPELLDUEL_CONFIG)")
		demo       = flag.Bool("demo", false, "Автоматически запускать волны и спелкарты")
	)
	flag.Parse()

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	logging.SetLogDir(cfg.Logging.Dir)
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	consoleLevel := logging.ParseLevel(cfg.Logging.ConsoleLevel, logging.INFO)
	fileLevel := logging.ParseLevel(cfg.Logging.FileLevel, logging.DEBUG)
	logging.SetDefaultLevels(consoleLevel, fileLevel)

	simLog := logging.GetSimLogger()
	simLog.SetLevels(consoleLevel, fileLevel)
	defer func() { _ = logging.GetLoggerManager().CloseAll() }()

	logging.Info("🎮 Запуск SpellDuel сервера...")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// === ТЕЛЕМЕТРИЯ ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		logging.Warn("⚠️ OpenTelemetry недоступна: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	// === АССЕТЫ ===
	catalog, err := entity.LoadCatalog(cfg.Assets.ArchetypesFile)
	if err != nil {
		logging.Error("❌ Каталог архетипов: %v", err)
		os.Exit(1)
	}
	library, report, err := spellcard.LoadLibrary(cfg.Assets.SpellcardsFile, catalog)
	if err != nil {
		logging.Error("❌ Библиотека спелкарт: %v", err)
		os.Exit(1)
	}
	if !report.OK() {
		logging.Warn("⚠️ Библиотека спелкарт загружена с %d проблемами", len(report.Problems))
	}
	logging.Info("📚 Загружено архетипов: %d, спелкарт: %d, паттернов: %d",
		len(catalog.IDs()), report.Spellcards, report.Patterns)

	// === ШИНА СОБЫТИЙ ===
	bus, err := newEventBus(cfg.EventBus)
	if err != nil {
		logging.Error("❌ Шина событий: %v", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if _, err := eventbus.StartLoggingListener(ctx, bus); err != nil {
		logging.Warn("⚠️ Логирующий подписчик не запущен: %v", err)
	}
	busMetrics := eventbus.NewMetricsExporter(bus, reg)
	busMetrics.Start(5 * time.Second)

	matchID := uuid.NewString()

	var journal *replay.Journal
	if cfg.Replay.Enabled {
		journal, err = replay.Open(cfg.Replay)
		if err != nil {
			logging.Error("❌ Журнал событий: %v", err)
			os.Exit(1)
		}
		if err := journal.Attach(ctx, bus); err != nil {
			logging.Error("❌ Подписка журнала: %v", err)
			os.Exit(1)
		}
	}

	// === СНИМКИ ===
	var store snapshot.Store = snapshot.NewMemoryStore()
	if cfg.Snapshot.GetRedisAddr() != "" {
		redisStore, err := snapshot.NewRedisStore(cfg.Snapshot)
		if err != nil {
			logging.Warn("⚠️ Redis недоступен, снимки в памяти: %v", err)
		} else {
			store = redisStore
		}
	}

	// === БОЕВОЕ ЯДРО ===
	combatMetrics := metrics.NewCombatMetrics(reg)
	targets := combat.StaticTargets{
		entity.SideA: {X: 0, Y: -8},
		entity.SideB: {X: cfg.Combat.Arena.SideBOffsetX, Y: cfg.Combat.Arena.SideBOffsetY - 8},
	}
	core := combat.New(catalog, cfg.Combat, cfg.Simulation.GetTickRate(),
		combat.WithTargets(targets),
		combat.WithPublisher(eventbus.NewCombatPublisher(bus, "spellduel", matchID)),
		combat.WithObserver(combatMetrics),
		combat.WithSeed(cfg.Simulation.Seed),
	)

	runner := sim.NewRunner(core, sim.Options{
		MatchID:            matchID,
		TickInterval:       cfg.Simulation.TickInterval(),
		SnapshotEveryTicks: cfg.Simulation.SnapshotEveryTicks,
		Store:              store,
		Metrics:            combatMetrics,
		Logger:             simLog,
	})

	// === DEBUG API ===
	apiCfg := api.Config{
		Port:       cfg.Debug.GetPort(),
		Runner:     runner,
		Library:    library,
		Targets:    targets,
		Bus:        bus,
		Registerer: reg,
		Gatherer:   reg,
	}
	if journal != nil {
		apiCfg.Journal = journal
	}
	debugServer := api.NewDebugServer(apiCfg)
	debugServer.Start()

	if *demo {
		go runDemo(ctx, runner, library)
	}

	logging.Info("✅ Дуэль %s запущена: %d тиков/с", matchID, cfg.Simulation.GetTickRate())
	logging.Info("   ❤️  Health check: http://localhost:%d/health", cfg.Debug.GetPort())

	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		logging.Error("❌ Симуляция остановлена с ошибкой: %v", err)
	}
	logging.Info("📡 Получен сигнал завершения, остановка сервисов...")

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := debugServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки debug API: %v", err)
	}
	busMetrics.Stop()
	if err := bus.Close(); err != nil {
		logging.Error("❌ Ошибка закрытия шины событий: %v", err)
	}
	if journal != nil {
		if err := journal.Close(); err != nil {
			logging.Error("❌ Ошибка закрытия журнала: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		logging.Error("❌ Ошибка закрытия хранилища снимков: %v", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки телеметрии: %v", err)
	}

	logging.Info("👋 Сервер успешно остановлен")
}

func newEventBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	url := cfg.GetURL()
	if url == "" {
		logging.Info("🚌 Шина событий: in-memory")
		return eventbus.NewMemoryBus(cfg.Buffer), nil
	}
	logging.Info("🚌 Шина событий: NATS JetStream %s", url)
	return eventbus.NewJetStreamBus(url, cfg.Stream, time.Duration(cfg.Retention)*time.Hour)
}

// runDemo поочерёдно запускает волны и спелкарты для обеих сторон
func runDemo(ctx context.Context, runner *sim.Runner, library *spellcard.Library) {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	side := entity.SideA
	level := 1
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		runner.Do(func(core *combat.Core) {
			line, err := core.SpawnWave(combat.WaveRequest{
				Archetypes:       []string{"fairy"},
				Path:             []vec.Vec2{{X: -6, Y: 10}, {X: 0, Y: 4}, {X: 6, Y: 10}},
				Side:             side,
				LineLength:       5,
				ExtraAttackIndex: 2,
				Speed:            3,
				Spacing:          1,
			})
			if err != nil {
				logging.Warn("⚠️ Демо-волна: %v", err)
			} else {
				logging.Debug("🌊 Демо-волна %d на стороне %s", line, side)
			}

			if def, ok := library.ForThreshold(level); ok {
				// Заклинатель над ареной соперника
				origin, _ := core.TargetPosition(side.Opposite())
				origin = origin.Add(vec.Vec2{Y: 14})
				core.ActivateSpellcard(def, origin, 0, side, side.Opposite())
			}
		})

		side = side.Opposite()
		level = level%4 + 1
	}
}
