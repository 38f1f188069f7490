/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

type testServerConfig struct {
	Server struct {
		Address string
	}
}

func (c *testServerConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("server.addr", ":80")
}

func (c *testServerConfig) Set(dp DataProvider) error {
	var err error
	c.Server.Address, err = dp.GetString("server.addr")
	return err
}

type testPrefixedAppConfig struct {
	Name string
}

func (c *testPrefixedAppConfig) KeyPrefix() string {
	return "app"
}

func (c *testPrefixedAppConfig) SetProviderDefaults(_ DataProvider) {}

func (c *testPrefixedAppConfig) Set(dp DataProvider) error {
	var err error
	c.Name, err = dp.GetString("name")
	return err
}

func TestLoader_LoadFromReader(t *testing.T) {
	cfgLoader := NewLoader(NewViperAdapter())

	t.Run("load config, use defaults", func(t *testing.T) {
		srvCfg := &testServerConfig{}
		err := cfgLoader.LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, srvCfg)
		require.NoError(t, err)
		require.Equal(t, ":80", srvCfg.Server.Address)
	})

	t.Run("load config", func(t *testing.T) {
		srvCfg := &testServerConfig{}
		err := cfgLoader.LoadFromReader(bytes.NewBufferString(`{"server":{"addr":":777"}}`), DataTypeJSON, srvCfg)
		require.NoError(t, err)
		require.Equal(t, ":777", srvCfg.Server.Address)
	})

	t.Run("load config, use key prefix", func(t *testing.T) {
		appCfg := &testPrefixedAppConfig{}
		err := cfgLoader.LoadFromReader(bytes.NewBufferString(testAppConfigJSON), DataTypeJSON, appCfg)
		require.NoError(t, err)
		require.Equal(t, "hydra", appCfg.Name)
	})
}
