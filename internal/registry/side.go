package registry

import "github.com/annel0/spellduel/internal/entity"

// SideRegistry учёт активных сущностей по сторонам
type SideRegistry struct {
	members map[entity.Handle]entity.Side
	counts  [3]int
}

// NewSideRegistry создаёт пустой учёт сторон
func NewSideRegistry() *SideRegistry {
	return &SideRegistry{members: make(map[entity.Handle]entity.Side)}
}

// Register записывает сторону сущности. Повторная регистрация меняет сторону.
func (r *SideRegistry) Register(h entity.Handle, side entity.Side) {
	if prev, ok := r.members[h]; ok {
		r.counts[prev]--
	}
	r.members[h] = side
	r.counts[side]++
}

// Deregister убирает сущность. Отсутствующий Handle игнорируется.
func (r *SideRegistry) Deregister(h entity.Handle) bool {
	side, ok := r.members[h]
	if !ok {
		return false
	}
	delete(r.members, h)
	r.counts[side]--
	return true
}

// Count количество активных сущностей стороны
func (r *SideRegistry) Count(side entity.Side) int {
	if int(side) >= len(r.counts) {
		return 0
	}
	return r.counts[side]
}

// SideOf возвращает сторону зарегистрированной сущности
func (r *SideRegistry) SideOf(h entity.Handle) (entity.Side, bool) {
	side, ok := r.members[h]
	return side, ok
}
