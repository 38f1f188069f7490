/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package hydra

import (
	"container/heap"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// PendingRequest is a logical request waiting for dispatch or scheduled for a retry.
type PendingRequest struct {
	Method  string
	Path    string
	Payload []byte

	// Attempts is the number of dispatch attempts made so far, including the current one.
	Attempts int

	// LastFailure is the classification of the most recent failed attempt.
	LastFailure FailureKind

	nextAttemptAt time.Time
	backoffState  backoff.BackOff
	backoffKind   FailureKind
	seq           uint64
	heapIndex     int
}

// pendingQueue is a min-heap of pending requests ordered by next-eligible-dispatch time.
// Requests with equal eligibility times keep FIFO order by enqueue sequence.
type pendingQueue struct {
	mu      sync.Mutex
	items   requestHeap
	nextSeq uint64
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{}
}

// push adds a request to the queue. A request pushed for the first time
// gets a sequence number that keeps FIFO ordering among equally eligible requests.
func (q *pendingQueue) push(req *PendingRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if req.seq == 0 {
		q.nextSeq++
		req.seq = q.nextSeq
	}
	heap.Push(&q.items, req)
}

// popDue removes and returns the earliest eligible request, or nil if none is due yet.
func (q *pendingQueue) popDue(now time.Time) *PendingRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 || q.items[0].nextAttemptAt.After(now) {
		return nil
	}
	return heap.Pop(&q.items).(*PendingRequest)
}

// nextDue returns the eligibility time of the earliest request in the queue.
func (q *pendingQueue) nextDue() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return time.Time{}, false
	}
	return q.items[0].nextAttemptAt, true
}

func (q *pendingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

type requestHeap []*PendingRequest

func (h requestHeap) Len() int {
	return len(h)
}

func (h requestHeap) Less(i, j int) bool {
	if h[i].nextAttemptAt.Equal(h[j].nextAttemptAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].nextAttemptAt.Before(h[j].nextAttemptAt)
}

func (h requestHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *requestHeap) Push(x interface{}) {
	req := x.(*PendingRequest)
	req.heapIndex = len(*h)
	*h = append(*h, req)
}

func (h *requestHeap) Pop() interface{} {
	old := *h
	n := len(old)
	req := old[n-1]
	old[n-1] = nil
	req.heapIndex = -1
	*h = old[:n-1]
	return req
}
