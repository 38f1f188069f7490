/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-hydra/config"
)

type appConfig struct {
	Log *Config `mapstructure:"log" json:"log" yaml:"log"`
}

// loadWithLoader, loadWithViper and loadWithCodec parse the same document through
// the three supported paths; each must yield an identical Config.

func loadWithLoader(t *testing.T, data string, dataType config.DataType) appConfig {
	t.Helper()
	got := appConfig{Log: NewDefaultConfig()}
	err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(bytes.NewBufferString(data), dataType, got.Log)
	require.NoError(t, err)
	return got
}

func loadWithViper(t *testing.T, data string, dataType config.DataType) appConfig {
	t.Helper()
	got := appConfig{Log: NewDefaultConfig()}
	vpr := viper.New()
	vpr.SetConfigType(string(dataType))
	require.NoError(t, vpr.ReadConfig(bytes.NewBufferString(data)))
	require.NoError(t, vpr.Unmarshal(&got, func(c *mapstructure.DecoderConfig) {
		c.DecodeHook = mapstructure.TextUnmarshallerHookFunc()
	}))
	return got
}

func loadWithCodec(t *testing.T, data string, dataType config.DataType) appConfig {
	t.Helper()
	got := appConfig{Log: NewDefaultConfig()}
	switch dataType {
	case config.DataTypeYAML:
		require.NoError(t, yaml.Unmarshal([]byte(data), &got))
	case config.DataTypeJSON:
		require.NoError(t, json.Unmarshal([]byte(data), &got))
	default:
		t.Fatalf("unsupported config data type: %s", dataType)
	}
	return got
}

func fullySpecifiedConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Level = LevelWarn
	cfg.Format = FormatText
	cfg.Output = OutputFile
	cfg.File.Path = "hydra-dispatch.log"
	cfg.File.Rotation.MaxSize = 50 * 1024 * 1024
	cfg.File.Rotation.MaxBackups = 7
	cfg.File.Rotation.Compress = true
	cfg.AddCaller = true
	cfg.Error.NoVerbose = true
	cfg.Error.VerboseSuffix = "verbose-details"
	return cfg
}

func maskingRulesConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Masking.Enabled = true
	cfg.Masking.Rules = []MaskingRuleConfig{
		{
			Field:   "client_secret",
			Formats: []FieldMaskFormat{FieldMaskFormatHTTPHeader, FieldMaskFormatJSON, FieldMaskFormatURLEncoded},
			Masks: []MaskConfig{
				{
					RegExp: "<client_secret>.+?</client_secret>",
					Mask:   "<client_secret>***</client_secret>",
				},
			},
		},
	}
	return cfg
}

func TestConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfgDataType config.DataType
		cfgData     string
		expectedCfg func() *Config
	}{
		{
			name:        "yaml config",
			cfgDataType: config.DataTypeYAML,
			cfgData: `
log:
  level: warn
  format: text
  output: file
  file:
    path: hydra-dispatch.log
    rotation:
      compress: true
      maxSize: 50M
      maxBackups: 7
  addCaller: true
  error:
    noVerbose: true
    verboseSuffix: verbose-details
`,
			expectedCfg: fullySpecifiedConfig,
		},
		{
			name:        "yaml config with masking rules",
			cfgDataType: config.DataTypeYAML,
			cfgData: `
log:
  masking:
    enabled: true
    rules:
      - field: "client_secret"
        formats: ["http_header", "json", "urlencoded"]
        masks:
          - regexp: "<client_secret>.+?</client_secret>"
            mask: "<client_secret>***</client_secret>"
`,
			expectedCfg: maskingRulesConfig,
		},
		{
			name:        "json config",
			cfgDataType: config.DataTypeJSON,
			cfgData: `
{
	"log": {
		"level": "warn",
		"format": "text",
		"output": "file",
		"file": {
			"path": "hydra-dispatch.log",
			"rotation": {
				"compress": true,
				"maxSize": "50M",
				"maxBackups": 7
			}
		},
		"addCaller": true,
		"error": {
			"noVerbose": true,
			"verboseSuffix": "verbose-details"
		}
	}
}`,
			expectedCfg: fullySpecifiedConfig,
		},
		{
			name:        "json config with masking rules",
			cfgDataType: config.DataTypeJSON,
			cfgData: `
{
	"log": {
		"masking": {
			"enabled": true,
			"rules": [
				{
					"field": "client_secret",
					"formats": ["http_header", "json", "urlencoded"],
					"masks": [
						{
							"regexp": "<client_secret>.+?</client_secret>",
							"mask": "<client_secret>***</client_secret>"
						}
					]
				}
			]
		}
	}
}`,
			expectedCfg: maskingRulesConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := appConfig{Log: tt.expectedCfg()}
			require.Equal(t, want, loadWithLoader(t, tt.cfgData, tt.cfgDataType))
			require.Equal(t, want, loadWithViper(t, tt.cfgData, tt.cfgDataType))
			require.Equal(t, want, loadWithCodec(t, tt.cfgData, tt.cfgDataType))
		})
	}
}

func TestNewDefaultConfig(t *testing.T) {
	t.Run("empty document via loader", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer(nil), config.DataTypeYAML, cfg))
		require.Equal(t, NewDefaultConfig(), cfg)
	})

	t.Run("viper unmarshal", func(t *testing.T) {
		cfg := NewDefaultConfig()
		vpr := viper.New()
		vpr.SetConfigType("yaml")
		require.NoError(t, vpr.Unmarshal(&cfg))
		require.Equal(t, NewDefaultConfig(), cfg)
	})

	t.Run("yaml unmarshal", func(t *testing.T) {
		cfg := NewDefaultConfig()
		require.NoError(t, yaml.Unmarshal([]byte(""), &cfg))
		require.Equal(t, NewDefaultConfig(), cfg)
	})

	t.Run("json unmarshal", func(t *testing.T) {
		cfg := NewDefaultConfig()
		require.NoError(t, json.Unmarshal([]byte("{}"), &cfg))
		require.Equal(t, NewDefaultConfig(), cfg)
	})
}

func TestConfigWithKeyPrefix(t *testing.T) {
	t.Run("custom key prefix", func(t *testing.T) {
		cfgData := `
dispatchLog:
  level: debug
  format: text
`
		expectedCfg := NewDefaultConfig(WithKeyPrefix("dispatchLog"))
		expectedCfg.Level = LevelDebug
		expectedCfg.Format = FormatText

		cfg := NewConfig(WithKeyPrefix("dispatchLog"))
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, expectedCfg, cfg)
	})

	t.Run("default key prefix, empty struct initialization", func(t *testing.T) {
		cfgData := `
log:
  level: debug
  format: text
`
		cfg := &Config{}
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, LevelDebug, cfg.Level)
		require.Equal(t, FormatText, cfg.Format)
	})
}

func TestConfigValidationErrors(t *testing.T) {
	tests := []struct {
		name           string
		yamlData       string
		expectedErrMsg string
	}{
		{
			name:           "unknown log level",
			yamlData:       "log:\n  level: invalid-level\n",
			expectedErrMsg: `log.level: unknown value "invalid-level", should be one of [error warn info debug]`,
		},
		{
			name:           "unknown log format",
			yamlData:       "log:\n  format: invalid-format\n",
			expectedErrMsg: `log.format: unknown value "invalid-format", should be one of [json text]`,
		},
		{
			name:           "unknown log output",
			yamlData:       "log:\n  output: invalid-output\n",
			expectedErrMsg: `log.output: unknown value "invalid-output", should be one of [stdout stderr file]`,
		},
		{
			name:           "file output without path",
			yamlData:       "log:\n  output: file\n",
			expectedErrMsg: `log.file.path: cannot be empty when "file" output is used`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.yamlData), config.DataTypeYAML, cfg)
			require.EqualError(t, err, tt.expectedErrMsg)
		})
	}
}
