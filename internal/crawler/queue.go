package crawler

import "container/heap"

// queueItem is one pending fetch.
type queueItem struct {
	url   string
	depth int
	score int
}

// crawlQueue orders pending fetches by score (desc), then depth (asc), then
// shorter URL, then lexicographic.
type crawlQueue []queueItem

func (q crawlQueue) Len() int { return len(q) }

func (q crawlQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.score != b.score {
		return a.score > b.score
	}
	if a.depth != b.depth {
		return a.depth < b.depth
	}
	if len(a.url) != len(b.url) {
		return len(a.url) < len(b.url)
	}
	return a.url < b.url
}

func (q crawlQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *crawlQueue) Push(x any) { *q = append(*q, x.(queueItem)) }

func (q *crawlQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

func (q *crawlQueue) push(item queueItem) { heap.Push(q, item) }

func (q *crawlQueue) pop() queueItem { return heap.Pop(q).(queueItem) }
