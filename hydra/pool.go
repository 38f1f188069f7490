/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package hydra

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Slot is one independent credential ("app") with its own pacing state.
// Slots are owned by the Pool and mutated only under its lock.
type Slot struct {
	id           int
	limiter      *rate.Limiter
	lastDispatch time.Time
	dispatches   uint64
	inFlight     bool
}

// ID returns the slot index within the pool.
func (s *Slot) ID() int {
	return s.id
}

// Pool holds a fixed set of credential slots and hands them out round-robin,
// preferring the least recently used eligible slot.
//
// A slot is eligible for dispatch only when both pacing constraints are satisfied:
// the minimum absolute delay since its last dispatch has elapsed,
// and its token bucket (1/rate spacing) allows another request.
// Rotation state is not persisted across process restarts: a fresh pool
// always starts handing out slots from index 0.
type Pool struct {
	mu       sync.Mutex
	slots    []*Slot
	minDelay time.Duration
}

// NewPool creates a pool of slotCount slots,
// each paced at requestsPerSecond with minRequestDelay as an absolute floor between dispatches.
func NewPool(slotCount int, requestsPerSecond float64, minRequestDelay time.Duration) *Pool {
	slots := make([]*Slot, slotCount)
	for i := range slots {
		slots[i] = &Slot{id: i, limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1)}
	}
	return &Pool{slots: slots, minDelay: minRequestDelay}
}

// Len returns the number of slots in the pool.
func (p *Pool) Len() int {
	return len(p.slots)
}

// Acquire returns the least recently used eligible slot, marking it busy
// and consuming one pacing token, with zero wait.
// When no slot is eligible yet, it returns nil and the minimum wait
// until some slot becomes eligible.
// A nil slot with zero wait means every slot is busy with an in-flight call
// and the caller should wait for a Release instead of sleeping.
func (p *Pool) Acquire(now time.Time) (*Slot, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var best *Slot
	minWait := time.Duration(-1)
	for _, s := range p.slots {
		if s.inFlight {
			continue
		}
		wait := p.slotWait(s, now)
		if wait <= 0 {
			if best == nil || s.lastDispatch.Before(best.lastDispatch) {
				best = s
			}
			continue
		}
		if minWait < 0 || wait < minWait {
			minWait = wait
		}
	}

	if best != nil {
		best.limiter.AllowN(now, 1)
		best.inFlight = true
		best.lastDispatch = now
		best.dispatches++
		return best, 0
	}
	if minWait < 0 {
		return nil, 0
	}
	return nil, minWait
}

// Release marks the slot's in-flight call as completed.
func (p *Pool) Release(s *Slot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s.inFlight = false
}

// Dispatches returns a per-slot snapshot of how many calls each slot has carried.
func (p *Pool) Dispatches() []uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	counts := make([]uint64, len(p.slots))
	for i, s := range p.slots {
		counts[i] = s.dispatches
	}
	return counts
}

func (p *Pool) slotWait(s *Slot, now time.Time) time.Duration {
	var wait time.Duration
	if !s.lastDispatch.IsZero() {
		wait = p.minDelay - now.Sub(s.lastDispatch)
	}
	r := s.limiter.ReserveN(now, 1)
	rateWait := r.DelayFrom(now)
	r.CancelAt(now)
	if rateWait > wait {
		wait = rateWait
	}
	return wait
}
