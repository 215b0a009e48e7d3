package snapshot

import (
	"context"
	"errors"
	"sync"

	"github.com/annel0/spellduel/internal/combat"
)

// ErrNotFound снимок дуэли ещё не сохранён
var ErrNotFound = errors.New("snapshot not found")

// Store хранилище последних снимков дуэлей для наблюдателей
type Store interface {
	Save(ctx context.Context, matchID string, s combat.Snapshot) error
	Latest(ctx context.Context, matchID string) (combat.Snapshot, error)
	Close() error
}

// MemoryStore хранит сжатые снимки в памяти процесса
type MemoryStore struct {
	mu    sync.RWMutex
	codec Codec
	data  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Save(_ context.Context, matchID string, s combat.Snapshot) error {
	data, err := m.codec.Encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[matchID] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Latest(_ context.Context, matchID string) (combat.Snapshot, error) {
	m.mu.RLock()
	data, ok := m.data[matchID]
	m.mu.RUnlock()
	if !ok {
		return combat.Snapshot{}, ErrNotFound
	}
	return m.codec.Decode(data)
}

// Size размер сжатого снимка в байтах (0 если нет)
func (m *MemoryStore) Size(matchID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data[matchID])
}

func (m *MemoryStore) Close() error { return nil }
