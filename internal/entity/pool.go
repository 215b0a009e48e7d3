package entity

import (
	"fmt"
)

// slot ячейка арены пула. Поколение увеличивается при каждом Release.
type slot struct {
	entity Entity
	gen    uint32
}

// Pool кеш неактивных сущностей по архетипу.
// Хранилище растёт без ограничений: пул устраняет аллокации, а не лимитирует.
// Не потокобезопасен, владелец — тик симуляции.
type Pool struct {
	catalog *Catalog
	slots   []*slot
	free    map[string][]uint32
	active  int
}

// NewPool создаёт пустой пул для каталога архетипов
func NewPool(catalog *Catalog) *Pool {
	return &Pool{
		catalog: catalog,
		slots:   make([]*slot, 0, 256),
		free:    make(map[string][]uint32),
	}
}

// Catalog возвращает каталог архетипов пула
func (p *Pool) Catalog() *Catalog { return p.catalog }

// Acquire возвращает ранее освобождённую сущность архетипа или создаёт новую.
// Сущность активна, жива и имеет значения архетипа по умолчанию.
func (p *Pool) Acquire(archetypeID string) (*Entity, error) {
	a, ok := p.catalog.Get(archetypeID)
	if !ok {
		return nil, fmt.Errorf("acquire %q: %w", archetypeID, ErrUnknownArchetype)
	}

	var s *slot
	var idx uint32
	if list := p.free[archetypeID]; len(list) > 0 {
		idx = list[len(list)-1]
		p.free[archetypeID] = list[:len(list)-1]
		s = p.slots[idx]
	} else {
		idx = uint32(len(p.slots))
		s = &slot{gen: 1}
		p.slots = append(p.slots, s)
	}

	s.entity.reset(Handle{Index: idx, Gen: s.gen}, a)
	s.entity.Alive = true
	s.entity.active = true
	p.active++
	return &s.entity, nil
}

// Release возвращает сущность в неактивный набор.
// Повторный Release или устаревший Handle игнорируется с результатом false.
func (p *Pool) Release(h Handle) bool {
	s := p.lookup(h)
	if s == nil || !s.entity.active {
		return false
	}

	a := s.entity.Archetype
	s.gen++
	if s.gen == 0 {
		// Переполнение: 0 зарезервирован под невалидный Handle
		s.gen = 1
	}
	s.entity.reset(Handle{Index: h.Index, Gen: s.gen}, a)
	p.free[a.ID] = append(p.free[a.ID], h.Index)
	p.active--
	return true
}

// Get резолвит Handle в активную сущность
func (p *Pool) Get(h Handle) (*Entity, bool) {
	s := p.lookup(h)
	if s == nil || !s.entity.active {
		return nil, false
	}
	return &s.entity, true
}

func (p *Pool) lookup(h Handle) *slot {
	if h.IsZero() || int(h.Index) >= len(p.slots) {
		return nil
	}
	s := p.slots[h.Index]
	if s.gen != h.Gen {
		return nil
	}
	return s
}

// Prewarm заранее аллоцирует n неактивных сущностей архетипа
func (p *Pool) Prewarm(archetypeID string, n int) error {
	a, ok := p.catalog.Get(archetypeID)
	if !ok {
		return fmt.Errorf("prewarm %q: %w", archetypeID, ErrUnknownArchetype)
	}
	for i := 0; i < n; i++ {
		idx := uint32(len(p.slots))
		s := &slot{gen: 1}
		s.entity.reset(Handle{Index: idx, Gen: s.gen}, a)
		p.slots = append(p.slots, s)
		p.free[archetypeID] = append(p.free[archetypeID], idx)
	}
	return nil
}

// Each вызывает fn для каждой активной сущности в порядке слотов.
// Сущности, созданные внутри fn, в текущий обход не попадают.
func (p *Pool) Each(fn func(e *Entity)) {
	n := len(p.slots)
	for i := 0; i < n; i++ {
		s := p.slots[i]
		if s.entity.active {
			fn(&s.entity)
		}
	}
}

// ActiveCount количество активных сущностей
func (p *Pool) ActiveCount() int { return p.active }

// Allocated общее количество слотов (активных и неактивных)
func (p *Pool) Allocated() int { return len(p.slots) }

// FreeCount количество неактивных сущностей архетипа
func (p *Pool) FreeCount(archetypeID string) int { return len(p.free[archetypeID]) }
