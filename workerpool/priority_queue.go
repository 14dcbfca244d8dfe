// File: workerpool/priority_queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// priorityQueue is a max-heap of priority buckets, each bucket a FIFO
// (github.com/eapache/queue) of entries submitted at that priority.
// It is the same bucket-of-FIFO shape reactor uses for ready events,
// mirrored here with descending order because spec §4.2 defines the
// pool's ready/completed queues as max-heaps by task priority.

package workerpool

import (
	"container/heap"

	"github.com/eapache/queue"
)

type maxIntHeap []int

func (h maxIntHeap) Len() int           { return len(h) }
func (h maxIntHeap) Less(i, j int) bool { return h[i] > h[j] }
func (h maxIntHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxIntHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *maxIntHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// priorityQueue holds entries of any type, ordered highest-priority
// first, FIFO within a priority level. Not safe for concurrent use on
// its own — Pool guards it with a single mutex per spec §4.2.
type priorityQueue struct {
	buckets map[int]*queue.Queue
	active  *maxIntHeap
	count   int
}

func newPriorityQueue() *priorityQueue {
	h := &maxIntHeap{}
	heap.Init(h)
	return &priorityQueue{buckets: make(map[int]*queue.Queue), active: h}
}

func (pq *priorityQueue) push(priority int, item any) {
	q, ok := pq.buckets[priority]
	if !ok {
		q = queue.New()
		pq.buckets[priority] = q
		heap.Push(pq.active, priority)
	}
	q.Add(item)
	pq.count++
}

func (pq *priorityQueue) pop() (any, bool) {
	if pq.active.Len() == 0 {
		return nil, false
	}
	top := (*pq.active)[0]
	q := pq.buckets[top]
	item := q.Peek()
	q.Remove()
	pq.count--
	if q.Length() == 0 {
		heap.Pop(pq.active)
		delete(pq.buckets, top)
	}
	return item, true
}

func (pq *priorityQueue) len() int { return pq.count }
