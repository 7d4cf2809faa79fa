package utils

import "container/heap"

// Reports whether a should leave the queue before b.
type LessFunc[T any] func(a, b T) bool

// A binary heap ordered by a LessFunc. Not safe for concurrent use.
type PriorityQueue[T any] struct {
	heap priorityHeap[T]
}

func NewPriorityQueue[T any](less LessFunc[T]) *PriorityQueue[T] {
	return &PriorityQueue[T]{heap: priorityHeap[T]{less: less}}
}

func (pq *PriorityQueue[T]) Push(item T) {
	heap.Push(&pq.heap, item)
}

// Pops the first item, if any.
func (pq *PriorityQueue[T]) TryPop() (T, bool) {
	if len(pq.heap.items) == 0 {
		var zero T
		return zero, false
	}
	return heap.Pop(&pq.heap).(T), true
}

// Returns the first item without removing it.
func (pq *PriorityQueue[T]) Peek() (T, bool) {
	if len(pq.heap.items) == 0 {
		var zero T
		return zero, false
	}
	return pq.heap.items[0], true
}

func (pq *PriorityQueue[T]) Len() int {
	return len(pq.heap.items)
}

type priorityHeap[T any] struct {
	items []T
	less  LessFunc[T]
}

func (h priorityHeap[T]) Len() int           { return len(h.items) }
func (h priorityHeap[T]) Less(i, j int) bool { return h.less(h.items[i], h.items[j]) }
func (h priorityHeap[T]) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *priorityHeap[T]) Push(x any) {
	h.items = append(h.items, x.(T))
}

func (h *priorityHeap[T]) Pop() any {
	n := len(h.items)
	x := h.items[n-1]
	var zero T
	h.items[n-1] = zero
	h.items = h.items[:n-1]
	return x
}
