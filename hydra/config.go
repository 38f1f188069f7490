/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package hydra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/acronis/go-hydra/config"
)

// Default configuration values.
const (
	DefaultAppCount               = 1
	DefaultRequestsPerSecond      = 2.0
	DefaultMinRequestDelay        = 10 * time.Millisecond
	DefaultTransportRetryInterval = 2 * time.Second
	DefaultBackoffInitialInterval = 500 * time.Millisecond
	DefaultMaxBackoff             = 60 * time.Second
	DefaultNotFoundMaxRetries     = 5
	DefaultAPIErrorMaxRetries     = 50
	DefaultFlushThreshold         = 10000
	DefaultResponsesPathTemplate  = "responses_%03d.json"
	DefaultEmergencyPathPrefix    = "responses_emergency"
)

const cfgDefaultKeyPrefix = "hydra"

// configuration properties
const (
	cfgKeyAppCount                    = "appCount"
	cfgKeyRequestsPerSecond           = "requestsPerSecond"
	cfgKeyMinRequestDelay             = "minRequestDelay"
	cfgKeyRetryTransportInterval      = "retry.transportInterval"
	cfgKeyRetryBackoffInitialInterval = "retry.backoffInitialInterval"
	cfgKeyRetryMaxBackoff             = "retry.maxBackoff"
	cfgKeyRetryNotFoundMaxRetries     = "retry.notFoundMaxRetries"
	cfgKeyRetryAPIErrorMaxRetries     = "retry.apiErrorMaxRetries"
	cfgKeyResponsesFlushThreshold     = "responses.flushThreshold"
	cfgKeyResponsesPathTemplate       = "responses.pathTemplate"
	cfgKeyResponsesEmergencyPrefix    = "responses.emergencyPathPrefix"
)

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// RetryConfig holds the failure classifier's retry policies.
type RetryConfig struct {
	// TransportInterval is the fixed delay between retries of transport failures.
	TransportInterval time.Duration `mapstructure:"transportInterval"`

	// BackoffInitialInterval is the first delay of the exponential backoff progression.
	BackoffInitialInterval time.Duration `mapstructure:"backoffInitialInterval"`

	// MaxBackoff caps the exponential backoff delay.
	MaxBackoff time.Duration `mapstructure:"maxBackoff"`

	// NotFoundMaxRetries bounds retries of not-found failures.
	NotFoundMaxRetries int `mapstructure:"notFoundMaxRetries"`

	// APIErrorMaxRetries bounds retries of other API failures.
	APIErrorMaxRetries int `mapstructure:"apiErrorMaxRetries"`
}

// ResponsesConfig holds the response buffering and persistence options.
type ResponsesConfig struct {
	// FlushThreshold is the batch capacity: the buffer flushes every time it is reached.
	FlushThreshold int `mapstructure:"flushThreshold"`

	// PathTemplate is the file path template for flushed batches,
	// parameterized by the batch index ("%d" style verb).
	PathTemplate string `mapstructure:"pathTemplate"`

	// EmergencyPathPrefix is the location prefix for emergency dumps;
	// each dump gets a unique timestamp and counter suffix.
	EmergencyPathPrefix string `mapstructure:"emergencyPathPrefix"`
}

// Config holds the dispatcher configuration.
// Invalid values fail fast at construction; no recognized option is silently ignored.
type Config struct {
	// AppCount is the number of credential slots.
	AppCount int `mapstructure:"appCount"`

	// RequestsPerSecond is the target steady-state rate per slot.
	RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`

	// MinRequestDelay is the absolute floor between two consecutive dispatches on one slot.
	MinRequestDelay time.Duration `mapstructure:"minRequestDelay"`

	// Retry configures the failure classifier.
	Retry RetryConfig `mapstructure:"retry"`

	// Responses configures result buffering and persistence.
	Responses ResponsesConfig `mapstructure:"responses"`

	// keyPrefix is a prefix for configuration parameters.
	keyPrefix string
}

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix("")
}

// NewConfigWithKeyPrefix creates a new instance of the Config.
// Allows specifying key prefix which will be used for parsing configuration parameters.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with all default values set.
func NewDefaultConfig() *Config {
	return &Config{
		AppCount:          DefaultAppCount,
		RequestsPerSecond: DefaultRequestsPerSecond,
		MinRequestDelay:   DefaultMinRequestDelay,
		Retry: RetryConfig{
			TransportInterval:      DefaultTransportRetryInterval,
			BackoffInitialInterval: DefaultBackoffInitialInterval,
			MaxBackoff:             DefaultMaxBackoff,
			NotFoundMaxRetries:     DefaultNotFoundMaxRetries,
			APIErrorMaxRetries:     DefaultAPIErrorMaxRetries,
		},
		Responses: ResponsesConfig{
			FlushThreshold:      DefaultFlushThreshold,
			PathTemplate:        DefaultResponsesPathTemplate,
			EmergencyPathPrefix: DefaultEmergencyPathPrefix,
		},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults is part of config interface implementation.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyAppCount, DefaultAppCount)
	dp.SetDefault(cfgKeyRequestsPerSecond, DefaultRequestsPerSecond)
	dp.SetDefault(cfgKeyMinRequestDelay, DefaultMinRequestDelay)
	dp.SetDefault(cfgKeyRetryTransportInterval, DefaultTransportRetryInterval)
	dp.SetDefault(cfgKeyRetryBackoffInitialInterval, DefaultBackoffInitialInterval)
	dp.SetDefault(cfgKeyRetryMaxBackoff, DefaultMaxBackoff)
	dp.SetDefault(cfgKeyRetryNotFoundMaxRetries, DefaultNotFoundMaxRetries)
	dp.SetDefault(cfgKeyRetryAPIErrorMaxRetries, DefaultAPIErrorMaxRetries)
	dp.SetDefault(cfgKeyResponsesFlushThreshold, DefaultFlushThreshold)
	dp.SetDefault(cfgKeyResponsesPathTemplate, DefaultResponsesPathTemplate)
	dp.SetDefault(cfgKeyResponsesEmergencyPrefix, DefaultEmergencyPathPrefix)
}

// Set is part of config interface implementation.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.AppCount, err = dp.GetInt(cfgKeyAppCount); err != nil {
		return err
	}
	if c.RequestsPerSecond, err = dp.GetFloat64(cfgKeyRequestsPerSecond); err != nil {
		return err
	}
	if c.MinRequestDelay, err = dp.GetDuration(cfgKeyMinRequestDelay); err != nil {
		return err
	}
	if c.Retry.TransportInterval, err = dp.GetDuration(cfgKeyRetryTransportInterval); err != nil {
		return err
	}
	if c.Retry.BackoffInitialInterval, err = dp.GetDuration(cfgKeyRetryBackoffInitialInterval); err != nil {
		return err
	}
	if c.Retry.MaxBackoff, err = dp.GetDuration(cfgKeyRetryMaxBackoff); err != nil {
		return err
	}
	if c.Retry.NotFoundMaxRetries, err = dp.GetInt(cfgKeyRetryNotFoundMaxRetries); err != nil {
		return err
	}
	if c.Retry.APIErrorMaxRetries, err = dp.GetInt(cfgKeyRetryAPIErrorMaxRetries); err != nil {
		return err
	}
	if c.Responses.FlushThreshold, err = dp.GetInt(cfgKeyResponsesFlushThreshold); err != nil {
		return err
	}
	if c.Responses.PathTemplate, err = dp.GetString(cfgKeyResponsesPathTemplate); err != nil {
		return err
	}
	if c.Responses.EmergencyPathPrefix, err = dp.GetString(cfgKeyResponsesEmergencyPrefix); err != nil {
		return err
	}

	return c.Validate()
}

// Validate checks that every configuration value is usable.
func (c *Config) Validate() error {
	if c.AppCount < 1 {
		return errors.New("hydra app count must be positive")
	}
	if c.RequestsPerSecond <= 0 {
		return errors.New("hydra requests per second must be positive")
	}
	if c.MinRequestDelay < 0 {
		return errors.New("hydra min request delay can not be negative")
	}
	if c.Retry.TransportInterval <= 0 {
		return errors.New("hydra transport retry interval must be positive")
	}
	if c.Retry.BackoffInitialInterval <= 0 {
		return errors.New("hydra backoff initial interval must be positive")
	}
	if c.Retry.MaxBackoff < c.Retry.BackoffInitialInterval {
		return errors.New("hydra max backoff can not be less than backoff initial interval")
	}
	if c.Retry.NotFoundMaxRetries < 0 {
		return errors.New("hydra not-found max retries can not be negative")
	}
	if c.Retry.APIErrorMaxRetries < 0 {
		return errors.New("hydra api error max retries can not be negative")
	}
	if c.Responses.FlushThreshold < 1 {
		return errors.New("hydra flush threshold must be positive")
	}
	if !strings.Contains(c.Responses.PathTemplate, "%") {
		return fmt.Errorf("hydra responses path template %q must contain a batch index verb", c.Responses.PathTemplate)
	}
	if c.Responses.EmergencyPathPrefix == "" {
		return errors.New("hydra emergency path prefix can not be empty")
	}
	return nil
}
