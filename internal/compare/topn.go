package compare

import "container/heap"

// TopByChiSquare returns the limit most significant rows, ordered by
// chi-square descending with ties broken on the term string ascending.
// A bounded min-heap keeps memory at O(limit) for large vocabularies.
func TopByChiSquare(rows []Row, limit int) []Row {
	if limit <= 0 {
		limit = 10
	}
	h := &rowHeap{}
	heap.Init(h)
	for _, row := range rows {
		heap.Push(h, row)
		if h.Len() > limit {
			heap.Pop(h)
		}
	}
	result := make([]Row, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(Row)
	}
	return result
}

type rowHeap []Row

func (h rowHeap) Len() int { return len(h) }

func (h rowHeap) Less(i, j int) bool {
	if h[i].ChiSquare != h[j].ChiSquare {
		return h[i].ChiSquare < h[j].ChiSquare
	}
	return h[i].Term > h[j].Term
}

func (h rowHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *rowHeap) Push(x interface{}) {
	*h = append(*h, x.(Row))
}

func (h *rowHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
