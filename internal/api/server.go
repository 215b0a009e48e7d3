package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/spellduel/internal/combat"
	"github.com/annel0/spellduel/internal/eventbus"
	"github.com/annel0/spellduel/internal/logging"
	"github.com/annel0/spellduel/internal/middleware"
	"github.com/annel0/spellduel/internal/replay"
	"github.com/annel0/spellduel/internal/sim"
	"github.com/annel0/spellduel/internal/spellcard"
)

// EventSource журнал событий для /debug/replay
type EventSource interface {
	Events(q replay.Query) ([]*eventbus.Envelope, error)
}

// Config зависимости debug сервера
type Config struct {
	Port       int
	Runner     *sim.Runner
	Library    *spellcard.Library    // nil: активация спелкарт недоступна
	Targets    combat.StaticTargets  // nil: цели не задаются через API
	Journal    EventSource           // nil: /debug/replay недоступен
	Bus        eventbus.EventBus     // nil: /debug/stream недоступен
	Registerer prometheus.Registerer // HTTP-метрики
	Gatherer   prometheus.Gatherer   // источник /metrics
}

// DebugServer HTTP сервер отладки и оверлея наблюдателя
type DebugServer struct {
	router  *gin.Engine
	server  *http.Server
	cfg     Config
	metrics *ServerMetrics
}

// GenericResponse общий ответ API
type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewDebugServer создаёт сервер и настраивает маршруты
func NewDebugServer(cfg Config) *DebugServer {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(otelgin.Middleware("spellduel_debug"))
	router.Use(middleware.NewRequestLogger().Handler())

	if cfg.Registerer != nil && cfg.Gatherer != nil {
		promMw := middleware.NewPrometheusMiddleware("spellduel_debug", cfg.Registerer)
		router.Use(promMw.Handler())
		promMw.RegisterMetricsEndpoint(router, cfg.Gatherer)
	}

	ds := &DebugServer{
		router:  router,
		cfg:     cfg,
		metrics: NewServerMetrics(),
	}
	ds.setupRoutes()
	return ds
}

// Handler http.Handler сервера (для тестов)
func (ds *DebugServer) Handler() http.Handler { return ds.router }

func (ds *DebugServer) setupRoutes() {
	ds.router.GET("/health", ds.handleHealth)

	debug := ds.router.Group("/debug")
	{
		debug.GET("/stats", ds.handleStats)
		debug.GET("/snapshot", ds.handleSnapshot)
		debug.GET("/sides/:side/count", ds.handleSideCount)
		debug.GET("/lines/:line/next/:index", ds.handleFindNext)
		debug.GET("/replay", ds.handleReplay)
		debug.GET("/stream", ds.handleStream)

		debug.POST("/spellcards/:name", ds.handleActivateSpellcard)
		debug.POST("/waves", ds.handleSpawnWave)
		debug.POST("/damage", ds.handleDamage)
		debug.PUT("/targets/:side", ds.handleSetTarget)
	}
}

// Start запускает HTTP сервер в отдельной горутине
func (ds *DebugServer) Start() {
	ds.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", ds.cfg.Port),
		Handler:           ds.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logging.Info("🌐 Debug API слушает :%d", ds.cfg.Port)
		if err := ds.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("❌ Ошибка debug HTTP сервера: %v", err)
		}
	}()
}

// Shutdown останавливает сервер
func (ds *DebugServer) Shutdown(ctx context.Context) error {
	if ds.server == nil {
		return nil
	}
	return ds.server.Shutdown(ctx)
}

func fail(c *gin.Context, status int, format string, args ...any) {
	c.JSON(status, GenericResponse{Success: false, Message: fmt.Sprintf(format, args...)})
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "ok", Data: data})
}
