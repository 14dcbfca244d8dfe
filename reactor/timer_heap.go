// File: reactor/timer_heap.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// timerHeap is a min-heap of armed timer registrations keyed by deadline,
// with submission sequence as a stable tie-breaker.

package reactor

import "container/heap"

type timerHeap struct {
	items []*Registration
}

func newTimerHeap() *timerHeap {
	h := &timerHeap{}
	heap.Init(h)
	return h
}

func (h *timerHeap) Len() int { return len(h.items) }

func (h *timerHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.deadline.Equal(b.deadline) {
		return a.seq < b.seq
	}
	return a.deadline.Before(b.deadline)
}

func (h *timerHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].timerIndex = i
	h.items[j].timerIndex = j
}

func (h *timerHeap) Push(x any) {
	reg := x.(*Registration)
	reg.timerIndex = len(h.items)
	h.items = append(h.items, reg)
}

func (h *timerHeap) Pop() any {
	old := h.items
	n := len(old)
	reg := old[n-1]
	old[n-1] = nil
	reg.timerIndex = -1
	h.items = old[:n-1]
	return reg
}

// push arms reg, honoring heap.Fix semantics if it's already present.
func (h *timerHeap) push(reg *Registration) {
	if reg.timerIndex >= 0 {
		heap.Fix(h, reg.timerIndex)
		return
	}
	heap.Push(h, reg)
}

// remove deregisters reg from the heap if present.
func (h *timerHeap) remove(reg *Registration) {
	if reg.timerIndex < 0 || reg.timerIndex >= len(h.items) {
		return
	}
	heap.Remove(h, reg.timerIndex)
}

func (h *timerHeap) peek() (*Registration, bool) {
	if len(h.items) == 0 {
		return nil, false
	}
	return h.items[0], true
}
