package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Приоритеты событий. Ниже PriorityHigh при переполнении буфера отбрасываются.
const (
	PriorityLow    = 1
	PriorityNormal = 3
	PriorityHigh   = 5
)

// Envelope контейнер события шины.
type Envelope struct {
	ID        string            `json:"id"`         // UUID
	Timestamp time.Time         `json:"timestamp"`  // UTC
	Source    string            `json:"source"`     // Имя сервиса-источника
	EventType string            `json:"event_type"` // entity.died, chain.effect…
	Version   int               `json:"version"`    // Схема полезной нагрузки
	MatchID   string            `json:"match_id"`   // Дуэль, к которой относится событие
	Tick      uint64            `json:"tick"`
	Priority  int               `json:"priority"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewEnvelope сериализует payload в JSON и заполняет служебные поля
func NewEnvelope(source, eventType string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", eventType, err)
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		Priority:  PriorityNormal,
		Payload:   data,
	}, nil
}

// Decode разбирает полезную нагрузку в v
func (e *Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s: %w", e.EventType, err)
	}
	return nil
}

// Filter позволяет подписаться только на нужные события.
type Filter struct {
	Types   []string // Пусто = все типы.
	Sources []string // Пусто = все источники.
}

// Subscription возвращается при подписке; позволяет отписаться.
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события.
type Handler func(ctx context.Context, ev *Envelope)

// Stats агрегированные метрики шины.
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus абстракция шины событий (in-memory или JetStream).
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
	Close() error
}

//================ In-Memory implementation =================//

// MemoryBus доставляет события подписчикам из одной горутины,
// поэтому каждый подписчик видит события в порядке публикации.
type MemoryBus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscriber
	nextID      int
	stats       Stats
	buffer      chan *Envelope
	done        chan struct{}
	closeOnce   sync.Once
}

type subscriber struct {
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewMemoryBus создаёт in-memory шину с указанным буфером.
func NewMemoryBus(capacity int) *MemoryBus {
	if capacity <= 0 {
		capacity = 1024
	}
	mb := &MemoryBus{
		subscribers: make(map[int]*subscriber),
		buffer:      make(chan *Envelope, capacity),
		done:        make(chan struct{}),
	}
	go mb.dispatchLoop()
	return mb
}

// Publish кладёт событие в буфер. При переполнении события с приоритетом
// ниже PriorityHigh отбрасываются, остальные ждут места или отмены контекста.
func (mb *MemoryBus) Publish(ctx context.Context, ev *Envelope) (err error) {
	defer func() {
		// Публикация после Close
		if recover() != nil {
			err = fmt.Errorf("eventbus: шина закрыта")
		}
	}()

	select {
	case mb.buffer <- ev:
		mb.count(func(s *Stats) { s.Published++ })
		return nil
	default:
	}

	if ev.Priority < PriorityHigh {
		mb.count(func(s *Stats) { s.Dropped++ })
		return nil
	}
	select {
	case mb.buffer <- ev:
		mb.count(func(s *Stats) { s.Published++ })
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (mb *MemoryBus) count(fn func(s *Stats)) {
	mb.mu.Lock()
	fn(&mb.stats)
	mb.mu.Unlock()
}

// Subscribe регистрирует обработчик. Отмена ctx прекращает доставку.
func (mb *MemoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	mb.mu.Lock()
	id := mb.nextID
	mb.nextID++
	cctx, cancel := context.WithCancel(ctx)
	mb.subscribers[id] = &subscriber{filter: f, handler: h, ctx: cctx, cancel: cancel}
	mb.mu.Unlock()

	return &memSub{bus: mb, id: id}, nil
}

// Metrics текущие счётчики
func (mb *MemoryBus) Metrics() Stats {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	s := mb.stats
	s.InFlight = len(mb.buffer)
	return s
}

// Close прекращает приём событий и дожидается доставки буфера.
func (mb *MemoryBus) Close() error {
	mb.closeOnce.Do(func() {
		close(mb.buffer)
		<-mb.done
	})
	return nil
}

// dispatchLoop рассылает события подписчикам.
func (mb *MemoryBus) dispatchLoop() {
	defer close(mb.done)
	for ev := range mb.buffer {
		mb.mu.RLock()
		subs := make([]*subscriber, 0, len(mb.subscribers))
		for _, sub := range mb.subscribers {
			subs = append(subs, sub)
		}
		mb.mu.RUnlock()

		for _, sub := range subs {
			if !matchFilter(ev, sub.filter) || sub.ctx.Err() != nil {
				continue
			}
			sub.handler(sub.ctx, ev)
			mb.count(func(s *Stats) { s.Consumed++ })
		}
	}
}

func matchFilter(ev *Envelope, f Filter) bool {
	match := func(val string, arr []string) bool {
		if len(arr) == 0 {
			return true
		}
		for _, v := range arr {
			if v == val {
				return true
			}
		}
		return false
	}
	return match(ev.EventType, f.Types) && match(ev.Source, f.Sources)
}

type memSub struct {
	bus *MemoryBus
	id  int
}

func (s *memSub) Unsubscribe() {
	s.bus.mu.Lock()
	if sub, ok := s.bus.subscribers[s.id]; ok {
		sub.cancel()
		delete(s.bus.subscribers, s.id)
	}
	s.bus.mu.Unlock()
}
