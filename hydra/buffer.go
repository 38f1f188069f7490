/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package hydra

import "sync"

// Buffer accumulates completed results in completion order until the flush threshold is reached.
// It is the primary memory-bounding mechanism for very large workloads:
// every time the threshold is hit, the full batch is handed to the caller for flushing
// and a fresh empty batch begins.
type Buffer struct {
	mu        sync.Mutex
	threshold int
	results   Batch
}

// NewBuffer creates a buffer with the given flush threshold.
func NewBuffer(flushThreshold int) *Buffer {
	return &Buffer{threshold: flushThreshold}
}

// Add appends a result. When the threshold is reached, the accumulated batch
// is detached and returned for flushing together with true.
func (b *Buffer) Add(r Result) (Batch, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(b.results, r)
	if len(b.results) < b.threshold {
		return nil, false
	}
	full := b.results
	b.results = nil
	return full, true
}

// TakeUnflushed detaches and returns everything currently buffered.
func (b *Buffer) TakeUnflushed() Batch {
	b.mu.Lock()
	defer b.mu.Unlock()
	rest := b.results
	b.results = nil
	return rest
}

// Unflushed returns a copy of the current in-memory batch without detaching it.
func (b *Buffer) Unflushed() Batch {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make(Batch, len(b.results))
	copy(cp, b.results)
	return cp
}

// Requeue puts a batch back at the front of the buffer after a failed flush,
// so the results stay in memory and keep their completion order.
func (b *Buffer) Requeue(batch Batch) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(batch, b.results...)
}

// Len returns the number of currently buffered results.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.results)
}
