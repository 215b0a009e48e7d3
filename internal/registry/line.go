package registry

import "github.com/annel0/spellduel/internal/entity"

type lineKey struct {
	line  entity.LineID
	index int
}

// LineRegistry индекс активных сущностей по (линия, позиция в линии).
// Хранит только Handle, владельцем сущностей остаётся пул.
type LineRegistry struct {
	byKey    map[lineKey]entity.Handle
	byHandle map[entity.Handle]lineKey
}

// NewLineRegistry создаёт пустой индекс линий
func NewLineRegistry() *LineRegistry {
	return &LineRegistry{
		byKey:    make(map[lineKey]entity.Handle),
		byHandle: make(map[entity.Handle]lineKey),
	}
}

// Register добавляет сущность в линию. Повторная регистрация Handle
// переносит его на новую позицию.
func (r *LineRegistry) Register(h entity.Handle, line entity.LineID, index int) {
	r.Deregister(h)
	key := lineKey{line: line, index: index}
	if prev, taken := r.byKey[key]; taken {
		delete(r.byHandle, prev)
	}
	r.byKey[key] = h
	r.byHandle[h] = key
}

// Deregister убирает сущность из индекса. Отсутствующий Handle игнорируется.
func (r *LineRegistry) Deregister(h entity.Handle) bool {
	key, ok := r.byHandle[h]
	if !ok {
		return false
	}
	delete(r.byHandle, h)
	if r.byKey[key] == h {
		delete(r.byKey, key)
	}
	return true
}

// FindNext возвращает сущность с позицией index+1 в той же линии
func (r *LineRegistry) FindNext(line entity.LineID, index int) (entity.Handle, bool) {
	h, ok := r.byKey[lineKey{line: line, index: index + 1}]
	return h, ok
}

// Lookup возвращает сущность на позиции index в линии
func (r *LineRegistry) Lookup(line entity.LineID, index int) (entity.Handle, bool) {
	h, ok := r.byKey[lineKey{line: line, index: index}]
	return h, ok
}

// Len количество зарегистрированных сущностей
func (r *LineRegistry) Len() int { return len(r.byHandle) }
