package eventbus

import (
	"context"

	"github.com/annel0/spellduel/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог.
// Функция неблокирующая.
func StartLoggingListener(ctx context.Context, bus EventBus) (Subscription, error) {
	sub, err := bus.Subscribe(ctx, Filter{}, func(ctx context.Context, ev *Envelope) {
		logging.Trace("[EventBus] %s %s match=%s tick=%d size=%dB", ev.ID, ev.EventType, ev.MatchID, ev.Tick, len(ev.Payload))
	})
	if err != nil {
		return nil, err
	}
	logging.Info("🪵 LoggingListener: подписка на все события активирована")
	return sub, nil
}
