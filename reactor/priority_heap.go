// File: reactor/priority_heap.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// intHeap tracks which priority buckets currently hold ready
// registrations, so the drain loop can always find the lowest
// (highest-priority) non-empty bucket without scanning every level.

package reactor

import "container/heap"

type intHeap []int

func (h intHeap) Len() int            { return len(h) }
func (h intHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h intHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *intHeap) Push(x any)         { *h = append(*h, x.(int)) }
func (h *intHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

func newIntHeap() *intHeap {
	h := &intHeap{}
	heap.Init(h)
	return h
}

func (h *intHeap) pushPriority(p int) { heap.Push(h, p) }
func (h *intHeap) peekMin() (int, bool) {
	if h.Len() == 0 {
		return 0, false
	}
	return (*h)[0], true
}
func (h *intHeap) popMin() int { return heap.Pop(h).(int) }
