/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	logger := NewLoggerWithOpts(LoggerOpts{Output: w})

	logger.Errorf("slot pool drained")
	require.NoError(t, w.Flush())

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "error", entry["level"])
	require.Equal(t, "slot pool drained", entry["msg"])
}
