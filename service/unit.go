/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

// Unit is a component of a service with its own start/stop lifecycle.
type Unit interface {
	// Start launches the unit. An implementation may initialize and return right away,
	// or block the calling goroutine until the unit finishes.
	//
	// A failure that makes further work impossible is reported through fatalErr.
	// The channel must not be written to after Start has returned, and a successful
	// Start must not write to it at all. Stop may be called no matter how Start ended.
	Start(fatalErr chan<- error)

	// Stop halts the unit, cleanly when gracefully is true.
	// It may be called even if Start failed or was never called.
	Stop(gracefully bool) error
}

// MetricsRegisterer is an interface for objects that can register its own metrics.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}
