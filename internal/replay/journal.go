package replay

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v3"

	"github.com/annel0/spellduel/internal/config"
	"github.com/annel0/spellduel/internal/eventbus"
	"github.com/annel0/spellduel/internal/logging"
)

// Query фильтр чтения журнала. ToTick == 0 означает "до конца".
type Query struct {
	MatchID  string
	FromTick uint64
	ToTick   uint64
	Types    []string
	Limit    int
}

// Journal журнал боевых событий в BadgerDB.
// Ключ: ev/<match_id>/<tick big-endian><seq big-endian>, поэтому
// итерация по префиксу возвращает события в порядке тиков.
type Journal struct {
	db  *badger.DB
	seq uint64

	mu   sync.Mutex
	subs []eventbus.Subscription
}

// Open открывает журнал. Пустой Dir: in-memory BadgerDB.
func Open(cfg config.ReplayConfig) (*Journal, error) {
	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.Dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	where := cfg.Dir
	if where == "" {
		where = "in-memory"
	}
	logging.Info("📼 Журнал реплея открыт (%s)", where)
	return &Journal{db: db}, nil
}

func matchPrefix(matchID string) []byte {
	return []byte("ev/" + matchID + "/")
}

func eventKey(matchID string, tick, seq uint64) []byte {
	key := matchPrefix(matchID)
	key = binary.BigEndian.AppendUint64(key, tick)
	return binary.BigEndian.AppendUint64(key, seq)
}

// Append записывает событие
func (j *Journal) Append(ev *eventbus.Envelope) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("ошибка сериализации события: %w", err)
	}
	key := eventKey(ev.MatchID, ev.Tick, atomic.AddUint64(&j.seq, 1))

	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения события в BadgerDB: %w", err)
	}
	return nil
}

// Attach подписывает журнал на все события шины
func (j *Journal) Attach(ctx context.Context, bus eventbus.EventBus) error {
	sub, err := bus.Subscribe(ctx, eventbus.Filter{}, func(_ context.Context, ev *eventbus.Envelope) {
		if err := j.Append(ev); err != nil {
			logging.Error("❌ Журнал реплея: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("подписка журнала: %w", err)
	}
	j.mu.Lock()
	j.subs = append(j.subs, sub)
	j.mu.Unlock()
	return nil
}

// Events читает события дуэли по фильтру в порядке тиков
func (j *Journal) Events(q Query) ([]*eventbus.Envelope, error) {
	types := make(map[string]bool, len(q.Types))
	for _, t := range q.Types {
		types[t] = true
	}

	var out []*eventbus.Envelope
	err := j.db.View(func(txn *badger.Txn) error {
		prefix := matchPrefix(q.MatchID)
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 100, Prefix: prefix})
		defer it.Close()

		for it.Seek(eventKey(q.MatchID, q.FromTick, 0)); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			tick := binary.BigEndian.Uint64(item.Key()[len(prefix):])
			if q.ToTick > 0 && tick > q.ToTick {
				break
			}

			var ev eventbus.Envelope
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			}); err != nil {
				return fmt.Errorf("ошибка десериализации события: %w", err)
			}
			if len(types) > 0 && !types[ev.EventType] {
				continue
			}
			out = append(out, &ev)
			if q.Limit > 0 && len(out) >= q.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Matches идентификаторы дуэлей, для которых есть события
func (j *Journal) Matches() ([]string, error) {
	var out []string
	err := j.db.View(func(txn *badger.Txn) error {
		prefix := []byte("ev/")
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); {
			key := it.Item().Key()
			if len(key) < len(prefix)+17 {
				it.Next()
				continue
			}
			match := string(key[len(prefix) : len(key)-17])
			out = append(out, match)
			// "ev/<match>0" идёт сразу после всех ключей "ev/<match>/..."
			it.Seek([]byte("ev/" + match + "0"))
		}
		return nil
	})
	return out, err
}

// Count количество событий дуэли
func (j *Journal) Count(matchID string) (int, error) {
	n := 0
	err := j.db.View(func(txn *badger.Txn) error {
		prefix := matchPrefix(matchID)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close отписывается от шины и закрывает БД
func (j *Journal) Close() error {
	j.mu.Lock()
	for _, s := range j.subs {
		s.Unsubscribe()
	}
	j.subs = nil
	j.mu.Unlock()
	return j.db.Close()
}
