/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequireErrorIsAny(t *testing.T) {
	targetErrs := []error{
		errors.New("slot exhausted"),
		errors.New("buffer overflow"),
		errors.New("request rejected"),
	}

	mockT := &MockT{}
	RequireErrorIsAny(mockT, fmt.Errorf("dispatch request: %w", targetErrs[1]), targetErrs)
	require.False(t, mockT.Failed)

	RequireErrorIsAny(mockT, fmt.Errorf("dispatch request: %w", errors.New("unknown failure")), targetErrs)
	require.True(t, mockT.Failed)

	mockT = &MockT{}
	RequireErrorIsAny(mockT, nil, targetErrs)
	require.True(t, mockT.Failed)
}

func TestRequireNoErrorInChannel(t *testing.T) {
	mockT := &MockT{}
	fatalErr := make(chan error, 1)

	RequireNoErrorInChannel(mockT, fatalErr)
	require.False(t, mockT.Failed)

	fatalErr <- nil
	RequireNoErrorInChannel(mockT, fatalErr)
	require.False(t, mockT.Failed)

	fatalErr <- errors.New("flush failed")
	RequireNoErrorInChannel(mockT, fatalErr)
	require.True(t, mockT.Failed)
}
