package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/annel0/spellduel/internal/eventbus"
	"github.com/annel0/spellduel/internal/logging"
)

const (
	streamBuffer     = 256
	streamWriteWait  = 2 * time.Second
	streamPingPeriod = 15 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStream отдаёт боевые события текущей дуэли по WebSocket.
// Медленный клиент теряет события, тик симуляции не блокируется.
func (ds *DebugServer) handleStream(c *gin.Context) {
	if ds.cfg.Bus == nil {
		fail(c, http.StatusServiceUnavailable, "шина событий не подключена")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn("⚠️ WebSocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	matchID := ds.cfg.Runner.MatchID()
	out := make(chan *eventbus.Envelope, streamBuffer)

	filter := eventbus.Filter{Types: parseList(c.Query("types"))}
	sub, err := ds.cfg.Bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		if ev.MatchID != matchID {
			return
		}
		select {
		case out <- ev:
		default:
		}
	})
	if err != nil {
		_ = conn.WriteJSON(GenericResponse{Success: false, Message: err.Error()})
		return
	}
	defer sub.Unsubscribe()

	logging.Debug("📺 Наблюдатель подключен к дуэли %s", matchID)
	hello := GenericResponse{Success: true, Message: "subscribed", Data: gin.H{"match_id": matchID}}
	if err := conn.WriteJSON(hello); err != nil {
		return
	}

	// Читатель нужен только для обнаружения закрытия соединения
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Debug("📺 Наблюдатель отключен от дуэли %s", matchID)
			return
		case ev := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
