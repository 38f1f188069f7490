/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-hydra/config"
)

func TestConfigWithLoader(t *testing.T) {
	yamlData := []byte(`
timeout: 30s
logger:
  enabled: true
  mode: failed
  slowRequestThreshold: 5s
metrics:
  enabled: true
`)

	actualConfig := &Config{}
	err := config.NewDefaultLoader("").LoadFromReader(bytes.NewReader(yamlData), config.DataTypeYAML, actualConfig)
	require.NoError(t, err, "load configuration")

	require.Equal(t, 30*time.Second, actualConfig.Timeout)
	require.True(t, actualConfig.Logger.Enabled)
	require.Equal(t, string(LoggingModeFailed), actualConfig.Logger.Mode)
	require.Equal(t, 5*time.Second, actualConfig.Logger.SlowRequestThreshold)
	require.True(t, actualConfig.Metrics.Enabled)
}

func TestConfigInvalidLoggerMode(t *testing.T) {
	yamlData := []byte(`
logger:
  enabled: true
  mode: sometimes
`)

	actualConfig := &Config{}
	err := config.NewDefaultLoader("").LoadFromReader(bytes.NewReader(yamlData), config.DataTypeYAML, actualConfig)
	require.EqualError(t, err, "client logger invalid mode, choose one of: [none, all, failed]")
}
