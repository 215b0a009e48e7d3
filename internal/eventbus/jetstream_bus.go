package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	nats "github.com/nats-io/nats.go"

	"github.com/annel0/spellduel/internal/logging"
)

// subjectPrefix все боевые события публикуются в combat.<type>
const subjectPrefix = "combat."

// JetStreamBus реализует EventBus поверх NATS JetStream.
type JetStreamBus struct {
	nc        *nats.Conn
	js        nats.JetStreamContext
	stream    string
	published uint64
	consumed  uint64
	dropped   uint64
}

// NewJetStreamBus подключается к кластеру NATS и гарантирует наличие стрима.
// url: nats://127.0.0.1:4222, stream: "COMBAT".
func NewJetStreamBus(url, stream string, retention time.Duration) (*JetStreamBus, error) {
	if stream == "" {
		stream = "COMBAT"
	}

	nc, err := nats.Connect(url, nats.Name("spellduel"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Drain()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if _, err = js.StreamInfo(stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      stream,
			Subjects:  []string{subjectPrefix + ">"},
			Retention: nats.LimitsPolicy,
			MaxAge:    retention,
			Storage:   nats.FileStorage,
		})
		if err != nil {
			nc.Drain()
			return nil, fmt.Errorf("add stream: %w", err)
		}
	}

	logging.Info("📡 JetStream: подключено к %s, стрим %s", url, stream)
	return &JetStreamBus{nc: nc, js: js, stream: stream}, nil
}

// Subject возвращает subject NATS для типа события
func Subject(eventType string) string {
	return subjectPrefix + eventType
}

// Publish сериализует Envelope в JSON и публикует асинхронно, чтобы не
// задерживать тик ожиданием подтверждения.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	data, err := json.Marshal(ev)
	if err != nil {
		atomic.AddUint64(&jb.dropped, 1)
		return err
	}
	if _, err := jb.js.PublishAsync(Subject(ev.EventType), data, nats.MsgId(ev.ID)); err != nil {
		atomic.AddUint64(&jb.dropped, 1)
		return fmt.Errorf("publish %s: %w", ev.EventType, err)
	}
	atomic.AddUint64(&jb.published, 1)
	return nil
}

// Subscribe создаёт durable consumer и вызывает handler для каждого
// подходящего под фильтр события.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subj := subjectPrefix + ">"
	if len(f.Types) == 1 {
		subj = Subject(f.Types[0])
	}

	durable := nats.Durable("sub_" + strings.ReplaceAll(uuid.NewString(), "-", ""))

	natSub, err := jb.js.Subscribe(subj, func(msg *nats.Msg) {
		var ev Envelope
		if err := json.Unmarshal(msg.Data, &ev); err == nil && matchFilter(&ev, f) {
			h(ctx, &ev)
			atomic.AddUint64(&jb.consumed, 1)
		}
		_ = msg.Ack()
	}, nats.ManualAck(), durable, nats.AckWait(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subj, err)
	}

	return &jetSub{natSub}, nil
}

// jetSub обёртка вокруг *nats.Subscription чтобы удовлетворить наш интерфейс.
type jetSub struct {
	s *nats.Subscription
}

func (j *jetSub) Unsubscribe() {
	_ = j.s.Unsubscribe()
}

// Metrics возвращает текущие метрики.
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: atomic.LoadUint64(&jb.published),
		Consumed:  atomic.LoadUint64(&jb.consumed),
		Dropped:   atomic.LoadUint64(&jb.dropped),
		InFlight:  jb.js.PublishAsyncPending(),
	}
}

// Close дожидается подтверждения отправленных событий и закрывает соединение.
func (jb *JetStreamBus) Close() error {
	select {
	case <-jb.js.PublishAsyncComplete():
	case <-time.After(5 * time.Second):
		logging.Warn("⚠️ JetStream: не все события подтверждены при закрытии")
	}
	return jb.nc.Drain()
}
