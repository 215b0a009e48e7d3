// Package scheduler очередь отложенных действий, привязанных к номеру тика.
package scheduler

import (
	"container/heap"
	"math"
)

// Func отложенное действие
type Func func()

type timer struct {
	fireAt uint64
	seq    uint64
	fn     Func
}

type timerHeap []timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].fireAt != h[j].fireAt {
		return h[i].fireAt < h[j].fireAt
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)   { *h = append(*h, x.(timer)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = timer{}
	*h = old[:n-1]
	return t
}

// Scheduler очередь таймеров, упорядоченная по (тик срабатывания, порядок постановки).
// Таймеры не отменяются: действие само становится no-op, если его цель исчезла.
// Не потокобезопасен.
type Scheduler struct {
	queue timerHeap
	seq   uint64
	now   uint64
}

// New создаёт пустую очередь на тике 0
func New() *Scheduler {
	return &Scheduler{queue: make(timerHeap, 0, 64)}
}

// Now текущий тик
func (s *Scheduler) Now() uint64 { return s.now }

// At ставит действие на тик fireAt. Тик не раньше следующего: действия,
// поставленные во время обработки, не выполняются в том же тике.
func (s *Scheduler) At(fireAt uint64, fn Func) {
	if fireAt <= s.now {
		fireAt = s.now + 1
	}
	s.seq++
	heap.Push(&s.queue, timer{fireAt: fireAt, seq: s.seq, fn: fn})
}

// After ставит действие через ticks тиков от текущего
func (s *Scheduler) After(ticks uint64, fn Func) {
	s.At(s.now+ticks, fn)
}

// Advance переходит на следующий тик и выполняет все наступившие действия
// в порядке постановки. Возвращает количество выполненных действий.
func (s *Scheduler) Advance() int {
	s.now++
	ran := 0
	for len(s.queue) > 0 && s.queue[0].fireAt <= s.now {
		t := heap.Pop(&s.queue).(timer)
		t.fn()
		ran++
	}
	return ran
}

// Pending количество ожидающих действий
func (s *Scheduler) Pending() int { return len(s.queue) }

// TicksFor переводит задержку в секундах в количество тиков (с округлением вверх)
func TicksFor(seconds float64, tickRate int) uint64 {
	if seconds <= 0 || tickRate <= 0 {
		return 0
	}
	return uint64(math.Ceil(seconds*float64(tickRate) - 1e-9))
}
