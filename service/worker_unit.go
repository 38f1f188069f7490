/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"time"
)

// ErrWorkerUnitStopTimeoutExceeded is an error that occurs when WorkerUnit's gracefully stop timeout is exceeded.
var ErrWorkerUnitStopTimeoutExceeded = errors.New("worker unit stop timeout exceeded")

// WorkerUnit allows presenting Worker as Unit.
// Stop cancels the context the worker runs with; a graceful stop additionally
// waits for the worker to return, bounded by GracefulStopTimeout if one is set.
type WorkerUnit struct {
	worker              Worker
	runCtx              context.Context
	cancelRun           context.CancelFunc
	stopDone            chan struct{}
	metricsRegisterer   MetricsRegisterer
	gracefulStopTimeout time.Duration
}

// WorkerUnitOpts contains optional parameters for constructing WorkerUnit.
type WorkerUnitOpts struct {
	MetricsRegisterer   MetricsRegisterer
	GracefulStopTimeout time.Duration
}

// NewWorkerUnit creates a new instance of WorkerUnit.
func NewWorkerUnit(worker Worker) *WorkerUnit {
	return NewWorkerUnitWithOpts(worker, WorkerUnitOpts{})
}

// NewWorkerUnitWithOpts creates a new instance of WorkerUnit
// with an ability to specify different optional parameters.
func NewWorkerUnitWithOpts(worker Worker, opts WorkerUnitOpts) *WorkerUnit {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerUnit{
		worker:              worker,
		runCtx:              ctx,
		cancelRun:           cancel,
		stopDone:            make(chan struct{}, 1),
		metricsRegisterer:   opts.MetricsRegisterer,
		gracefulStopTimeout: opts.GracefulStopTimeout,
	}
}

// Start runs the underlying Worker, reporting a non-nil result as a fatal error.
func (u *WorkerUnit) Start(fatalError chan<- error) {
	if err := u.worker.Run(u.runCtx); err != nil {
		fatalError <- err
	}
	u.stopDone <- struct{}{}
}

// Stop stops underlying Worker.
func (u *WorkerUnit) Stop(gracefully bool) error {
	u.cancelRun()
	if !gracefully {
		return nil
	}
	if u.gracefulStopTimeout == 0 {
		<-u.stopDone
		return nil
	}
	select {
	case <-u.stopDone:
		return nil
	case <-time.After(u.gracefulStopTimeout):
		return ErrWorkerUnitStopTimeoutExceeded
	}
}

// MustRegisterMetrics registers underlying Worker's metrics.
func (u *WorkerUnit) MustRegisterMetrics() {
	if u.metricsRegisterer != nil {
		u.metricsRegisterer.MustRegisterMetrics()
	}
}

// UnregisterMetrics unregisters underlying Worker's metrics.
func (u *WorkerUnit) UnregisterMetrics() {
	if u.metricsRegisterer != nil {
		u.metricsRegisterer.UnregisterMetrics()
	}
}
