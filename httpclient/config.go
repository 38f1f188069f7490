/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"errors"
	"time"

	"github.com/acronis/go-hydra/config"
)

// DefaultClientWaitTimeout limits how long a single request may take end to end.
const DefaultClientWaitTimeout = 10 * time.Second

const (
	cfgKeyTimeout                    = "timeout"
	cfgKeyLoggerEnabled              = "logger.enabled"
	cfgKeyLoggerMode                 = "logger.mode"
	cfgKeyLoggerSlowRequestThreshold = "logger.slowRequestThreshold"
	cfgKeyMetricsEnabled             = "metrics.enabled"
)

var (
	_ config.Config            = (*Config)(nil)
	_ config.KeyPrefixProvider = (*Config)(nil)
)

// Config holds the configurable knobs of an HTTP client built by this package.
//
// Rate limiting and retries are deliberately absent here: for this kit both concerns
// are owned by the hydra dispatcher (per-slot pacing and the failure classifier).
type Config struct {
	// Logger controls request logging done by LoggingRoundTripper.
	Logger LoggerConfig `mapstructure:"logger"`

	// Metrics controls request metrics collected by MetricsRoundTripper.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Timeout is the per-request time limit passed to http.Client.
	Timeout time.Duration `mapstructure:"timeout"`

	keyPrefix string
}

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults is part of config interface implementation.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyTimeout, DefaultClientWaitTimeout)
}

// Set is part of config interface implementation.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Timeout, err = dp.GetDuration(cfgKeyTimeout); err != nil {
		return err
	}
	if err = c.Logger.Set(dp); err != nil {
		return err
	}
	return c.Metrics.Set(dp)
}

// LoggerConfig holds logging options of the HTTP client.
type LoggerConfig struct {
	// Enabled turns request logging on.
	Enabled bool `mapstructure:"enabled"`

	// SlowRequestThreshold suppresses log records for requests that finish faster.
	SlowRequestThreshold time.Duration `mapstructure:"slowRequestThreshold"`

	// Mode selects which requests are logged, see LoggingMode.
	Mode string `mapstructure:"mode"`
}

// Set is part of config interface implementation.
func (c *LoggerConfig) Set(dp config.DataProvider) error {
	var err error
	if c.Enabled, err = dp.GetBool(cfgKeyLoggerEnabled); err != nil {
		return err
	}
	if !c.Enabled {
		return nil
	}

	threshold, err := dp.GetDuration(cfgKeyLoggerSlowRequestThreshold)
	if err != nil {
		return err
	}
	if threshold < 0 {
		return errors.New("client logger slow request threshold can not be negative")
	}
	c.SlowRequestThreshold = threshold

	mode, err := dp.GetString(cfgKeyLoggerMode)
	if err != nil {
		return err
	}
	if !LoggingMode(mode).IsValid() {
		return errors.New("client logger invalid mode, choose one of: [none, all, failed]")
	}
	c.Mode = mode
	return nil
}

// SetProviderDefaults is part of config interface implementation.
func (c *LoggerConfig) SetProviderDefaults(_ config.DataProvider) {}

// TransportOpts converts the parsed logging configuration into round tripper options.
func (c *LoggerConfig) TransportOpts() LoggingRoundTripperOpts {
	return LoggingRoundTripperOpts{
		Mode:                 LoggingMode(c.Mode),
		SlowRequestThreshold: c.SlowRequestThreshold,
	}
}

// MetricsConfig holds metrics options of the HTTP client.
type MetricsConfig struct {
	// Enabled turns request duration metrics on.
	Enabled bool `mapstructure:"enabled"`
}

// Set is part of config interface implementation.
func (c *MetricsConfig) Set(dp config.DataProvider) error {
	var err error
	c.Enabled, err = dp.GetBool(cfgKeyMetricsEnabled)
	return err
}

// SetProviderDefaults is part of config interface implementation.
func (c *MetricsConfig) SetProviderDefaults(_ config.DataProvider) {}
