/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import "io"

// Loader reads a configuration document into its DataProvider and then applies it
// to configuration objects, seeding provider defaults first.
type Loader struct {
	DataProvider DataProvider
}

// NewLoader creates a new configurations' loader.
func NewLoader(dp DataProvider) *Loader {
	return &Loader{dp}
}

// NewDefaultLoader creates a loader backed by viper that also reads values
// from environment variables with the given prefix.
func NewDefaultLoader(envVarsPrefix string) *Loader {
	va := NewViperAdapter()
	va.UseEnvVars(envVarsPrefix)
	return NewLoader(va)
}

// LoadFromFile loads configuration values from file and sets them in configuration objects.
func (l *Loader) LoadFromFile(path string, dataType DataType, cfg Config, cfgs ...Config) error {
	if err := l.DataProvider.SetFromFile(path, dataType); err != nil {
		return err
	}
	return l.apply(append([]Config{cfg}, cfgs...))
}

// LoadFromReader loads configuration values from reader and sets them in configuration objects.
func (l *Loader) LoadFromReader(reader io.Reader, dataType DataType, cfg Config, cfgs ...Config) error {
	if err := l.DataProvider.SetFromReader(reader, dataType); err != nil {
		return err
	}
	return l.apply(append([]Config{cfg}, cfgs...))
}

// apply seeds defaults for every config before any Set call, so defaults
// declared by one config are visible while another is being parsed.
func (l *Loader) apply(cfgs []Config) error {
	for _, cfg := range cfgs {
		cfg.SetProviderDefaults(providerFor(cfg, l.DataProvider))
	}
	for _, cfg := range cfgs {
		if err := cfg.Set(providerFor(cfg, l.DataProvider)); err != nil {
			return err
		}
	}
	return nil
}
