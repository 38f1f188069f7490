/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestRequireSamplesCountInCounter(t *testing.T) {
	dispatched := prometheus.NewCounter(prometheus.CounterOpts{Name: "requests_dispatched"})
	dispatched.Add(42)

	mockT := &MockT{}
	RequireSamplesCountInCounter(mockT, dispatched, 41)
	require.True(t, mockT.Failed)

	mockT = &MockT{}
	RequireSamplesCountInCounter(mockT, dispatched, 42)
	require.False(t, mockT.Failed)
}

func TestRequireSamplesCountInHistogram(t *testing.T) {
	waitTimes := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "slot_wait_seconds",
		Buckets: []float64{1, 10, 20, 30, 40, 50},
	})
	waitTimes.Observe(42)

	mockT := &MockT{}
	RequireSamplesCountInHistogram(mockT, waitTimes, 0)
	require.True(t, mockT.Failed)

	mockT = &MockT{}
	RequireSamplesCountInHistogram(mockT, waitTimes, 1)
	require.False(t, mockT.Failed)
}
