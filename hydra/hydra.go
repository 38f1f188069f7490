/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package hydra

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/acronis/go-hydra/log"
	"github.com/acronis/go-hydra/service"
)

// Stats is a snapshot of cumulative run counters.
type Stats struct {
	// OKRequests is the number of requests that completed successfully.
	OKRequests uint64

	// FailedRequests is the number of requests finalized as terminal failures.
	FailedRequests uint64

	// ResponseBytes is the total size of successfully received response bodies.
	ResponseBytes uint64
}

// Opts is options for Hydra.
type Opts struct {
	// Logger is used for logging dispatcher activity. Logging is disabled if not set.
	Logger log.FieldLogger

	// Client is the HTTP client shared by all slots when Clients is not provided.
	// http.DefaultClient is used when both are empty.
	Client *http.Client

	// Clients are per-slot HTTP clients, one per credential.
	// When provided, the length must equal the configured app count.
	Clients []*http.Client

	// BaseURL is prepended to every request path.
	BaseURL string

	// Store is the durable storage for flushed batches.
	// A FileStore over the configured responses path template is used if not set.
	Store BatchStore

	// MetricsCollector collects dispatcher metrics. Metrics are disabled if not set.
	MetricsCollector MetricsCollector
}

// Hydra is the aggregate run state: the pending-request queue, the credential pool,
// the failure classifier, the response buffer with its batch store, and the shutdown guard.
// It implements service.Worker, so a run can be managed as a service unit.
type Hydra struct {
	cfg        *Config
	logger     log.FieldLogger
	pool       *Pool
	queue      *pendingQueue
	classifier *Classifier
	buffer     *Buffer
	store      BatchStore
	guard      *Guard
	metrics    MetricsCollector
	clients    []*http.Client
	baseURL    string

	finished        atomic.Bool
	finishRequested atomic.Bool
	flushedBatches  atomic.Int64
	okRequests      atomic.Uint64
	failedRequests  atomic.Uint64
	responseBytes   atomic.Uint64
	inFlight        atomic.Int64

	wg      sync.WaitGroup
	wake    chan struct{}
	flushMu sync.Mutex
}

var _ service.Worker = (*Hydra)(nil)

// New creates a new Hydra for the given configuration.
func New(cfg *Config, opts Opts) (*Hydra, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	store := opts.Store
	if store == nil {
		store = NewFileStore(cfg.Responses.PathTemplate)
	}
	metrics := opts.MetricsCollector
	if metrics == nil {
		metrics = NullMetricsCollector{}
	}

	clients := opts.Clients
	switch {
	case len(clients) == 0:
		client := opts.Client
		if client == nil {
			client = http.DefaultClient
		}
		clients = make([]*http.Client, cfg.AppCount)
		for i := range clients {
			clients[i] = client
		}
	case len(clients) != cfg.AppCount:
		return nil, fmt.Errorf("hydra got %d per-slot clients for %d apps", len(clients), cfg.AppCount)
	}

	buffer := NewBuffer(cfg.Responses.FlushThreshold)
	h := &Hydra{
		cfg:        cfg,
		logger:     logger,
		pool:       NewPool(cfg.AppCount, cfg.RequestsPerSecond, cfg.MinRequestDelay),
		queue:      newPendingQueue(),
		classifier: NewClassifier(cfg),
		buffer:     buffer,
		store:      store,
		metrics:    metrics,
		clients:    clients,
		baseURL:    opts.BaseURL,
		wake:       make(chan struct{}, 1),
	}
	h.guard = NewGuard(buffer, cfg.Responses.EmergencyPathPrefix, logger, &h.finished)
	return h, nil
}

// Must is a helper that wraps a call to New and panics if the error is non-nil.
func Must(cfg *Config, opts Opts) *Hydra {
	h, err := New(cfg, opts)
	if err != nil {
		panic(err)
	}
	return h
}

// Enqueue adds a logical request; it becomes eligible for dispatch immediately.
func (h *Hydra) Enqueue(method, path string, payload []byte) {
	h.queue.push(&PendingRequest{Method: method, Path: path, Payload: payload})
	h.metrics.SetQueueLength(h.queue.len())
	h.signalWake()
}

// Finish signals graceful completion: the dispatcher keeps working until the queue
// drains and all in-flight calls return, performs a final flush, and then stops.
func (h *Hydra) Finish() {
	h.finishRequested.Store(true)
	h.signalWake()
}

// Stats returns cumulative run counters.
func (h *Hydra) Stats() Stats {
	return Stats{
		OKRequests:     h.okRequests.Load(),
		FailedRequests: h.failedRequests.Load(),
		ResponseBytes:  h.responseBytes.Load(),
	}
}

// Snapshot returns every result completed so far: all flushed batches read back
// from the store plus the current in-memory batch, in completion order.
func (h *Hydra) Snapshot() ([]Result, error) {
	h.flushMu.Lock()
	defer h.flushMu.Unlock()

	var all []Result
	flushed := int(h.flushedBatches.Load())
	for i := 0; i < flushed; i++ {
		batch, err := h.store.ReadBatch(i)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		all = append(all, batch...)
	}
	return append(all, h.buffer.Unflushed()...), nil
}

// Run drives the dispatch loop until the context is canceled or,
// after Finish was called, until the queue drains with no in-flight calls left.
//
// Each dispatch runs on its own goroutine with at most one in-flight call per slot,
// so a slow call on one slot never blocks progress on another. On cancellation,
// in-flight calls are awaited and the shutdown guard persists whatever is still buffered.
func (h *Hydra) Run(ctx context.Context) error {
	defer h.guard.EmergencyPersist()
	defer h.wg.Wait()

	h.logger.Info("hydra dispatcher started",
		log.Int("slots", h.cfg.AppCount), log.Float64("rps", h.cfg.RequestsPerSecond))

	for {
		if h.finishRequested.Load() && h.queue.len() == 0 && h.inFlight.Load() == 0 {
			h.finalFlush()
			if h.buffer.Len() == 0 {
				h.finished.Store(true)
			}
			h.logger.Info("hydra dispatcher finished",
				log.Uint64("ok_requests", h.okRequests.Load()),
				log.Uint64("failed_requests", h.failedRequests.Load()))
			return nil
		}

		now := time.Now()
		sleep := time.Duration(-1) // wait for a wake-up only
		if due, ok := h.queue.nextDue(); ok {
			if due.After(now) {
				sleep = due.Sub(now)
			} else if slot, wait := h.pool.Acquire(now); slot != nil {
				if req := h.queue.popDue(now); req != nil {
					h.metrics.SetQueueLength(h.queue.len())
					h.dispatchAsync(ctx, slot, req)
					continue
				}
				h.pool.Release(slot)
			} else if wait > 0 {
				sleep = wait
			}
		}

		if !h.waitForWork(ctx, sleep) {
			return ctx.Err()
		}
	}
}

// waitForWork blocks until something changes: a new enqueue or a completed dispatch
// (wake signal), the given sleep duration elapses, or the context is canceled.
// It returns false on cancellation.
func (h *Hydra) waitForWork(ctx context.Context, sleep time.Duration) bool {
	if sleep < 0 {
		select {
		case <-ctx.Done():
			return false
		case <-h.wake:
			return true
		}
	}
	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-h.wake:
		return true
	case <-timer.C:
		return true
	}
}

func (h *Hydra) signalWake() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *Hydra) dispatchAsync(ctx context.Context, slot *Slot, req *PendingRequest) {
	h.wg.Add(1)
	h.metrics.SetInFlightSlots(int(h.inFlight.Inc()))
	go func() {
		defer func() {
			h.pool.Release(slot)
			h.metrics.SetInFlightSlots(int(h.inFlight.Dec()))
			h.wg.Done()
			h.signalWake()
		}()
		h.dispatch(ctx, slot, req)
	}()
}

func (h *Hydra) dispatch(ctx context.Context, slot *Slot, req *PendingRequest) {
	req.Attempts++

	status, body, err := h.call(ctx, slot, req)
	if err != nil {
		h.handleFailure(req, FailureTransport, 0, err)
		return
	}

	kind := ClassifyStatus(status)
	if kind != FailureNone {
		h.handleFailure(req, kind, status, fmt.Errorf("server responded with status %d", status))
		return
	}

	h.okRequests.Inc()
	h.responseBytes.Add(uint64(len(body)))
	h.metrics.ObserveDispatch(DispatchOutcomeSuccess, FailureNone)
	h.complete(Result{
		Method:     req.Method,
		Path:       req.Path,
		StatusCode: status,
		Attempts:   req.Attempts,
		Body:       string(body),
	})
}

func (h *Hydra) call(ctx context.Context, slot *Slot, req *PendingRequest) (int, []byte, error) {
	var bodyReader io.Reader
	if len(req.Payload) > 0 {
		bodyReader = bytes.NewReader(req.Payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, h.baseURL+req.Path, bodyReader)
	if err != nil {
		return 0, nil, err
	}
	if len(req.Payload) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.clients[slot.ID()].Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func (h *Hydra) handleFailure(req *PendingRequest, kind FailureKind, status int, cause error) {
	decision := h.classifier.Classify(req, kind)
	if decision.Retry {
		req.LastFailure = kind
		req.nextAttemptAt = time.Now().Add(decision.Delay)
		h.queue.push(req)
		h.metrics.SetQueueLength(h.queue.len())
		h.metrics.ObserveDispatch(DispatchOutcomeRetry, kind)
		h.logger.Debug("request retry scheduled",
			log.String("method", req.Method), log.String("path", req.Path),
			log.String("kind", string(kind)), log.Int("attempts", req.Attempts),
			log.DurationIn(decision.Delay, time.Millisecond), log.Error(cause))
		return
	}

	h.failedRequests.Inc()
	h.metrics.ObserveDispatch(DispatchOutcomeFailure, kind)
	h.logger.Warn("request failed terminally",
		log.String("method", req.Method), log.String("path", req.Path),
		log.String("kind", string(kind)), log.Int("attempts", req.Attempts), log.Error(cause))
	h.complete(Result{
		Method:     req.Method,
		Path:       req.Path,
		StatusCode: status,
		Attempts:   req.Attempts,
		Failure:    kind,
		Error:      cause.Error(),
	})
}

func (h *Hydra) complete(res Result) {
	batch, full := h.buffer.Add(res)
	h.metrics.SetBufferedResults(h.buffer.Len())
	if full {
		h.flush(batch)
	}
}

// flush writes a batch out under the next batch index. A failed flush keeps
// the batch in memory (requeued at the buffer front) so no completed work is lost.
func (h *Hydra) flush(batch Batch) {
	h.flushMu.Lock()
	defer h.flushMu.Unlock()

	index := int(h.flushedBatches.Load())
	if err := h.store.WriteBatch(index, batch); err != nil {
		h.logger.Error("batch flush failed, results retained in memory",
			log.Int("batch_index", index), log.Int("results", len(batch)), log.Error(err))
		h.buffer.Requeue(batch)
		h.metrics.SetBufferedResults(h.buffer.Len())
		return
	}
	h.flushedBatches.Inc()
	h.metrics.ObserveBatchFlushed(len(batch))
	h.logger.Info("batch flushed",
		log.Int("batch_index", index), log.Int("results", len(batch)))
}

func (h *Hydra) finalFlush() {
	if rest := h.buffer.TakeUnflushed(); len(rest) > 0 {
		h.flush(rest)
		h.metrics.SetBufferedResults(h.buffer.Len())
	}
}
