/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestBytesCountUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    BytesCount
		wantErr bool
	}{
		{"plain integer", "65536", BytesCount(65536), false},
		{"kilobytes", "128K", BytesCount(128 * 1024), false},
		{"megabytes", "64MB", BytesCount(64 * 1024 * 1024), false},
		{"kubernetes suffix", "2Gi", BytesCount(2 * 1024 * 1024 * 1024), false},
		{"garbage", "a lot", 0, true},
		{"negative", "-65536", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := func(err error, got BytesCount) {
				if tt.wantErr {
					require.Error(t, err)
					return
				}
				require.NoError(t, err)
				require.Equal(t, tt.want, got)
			}

			var viaText BytesCount
			check(viaText.UnmarshalText([]byte(tt.text)), viaText)

			var viaJSON BytesCount
			check(json.Unmarshal([]byte(`"`+tt.text+`"`), &viaJSON), viaJSON)

			var viaYAML struct {
				Size BytesCount `yaml:"size"`
			}
			check(yaml.Unmarshal([]byte("size: "+tt.text), &viaYAML), viaYAML.Size)
		})
	}
}

// Bare integers are accepted without quoting in both JSON and YAML documents.
func TestBytesCountUnmarshalBareInt(t *testing.T) {
	var b BytesCount
	require.NoError(t, json.Unmarshal([]byte(`524288`), &b))
	require.Equal(t, BytesCount(512*1024), b)

	var cfg struct {
		MaxSize BytesCount `yaml:"maxSize"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("maxSize: 524288"), &cfg))
	require.Equal(t, BytesCount(512*1024), cfg.MaxSize)
}

func TestBytesCountMarshal(t *testing.T) {
	tests := []struct {
		name  string
		input BytesCount
		want  string
	}{
		{"bytes", BytesCount(384), "384B"},
		{"kilobytes", BytesCount(64 * 1024), "64K"},
		{"megabytes", BytesCount(250 * 1024 * 1024), "250M"},
		{"gigabytes", BytesCount(4 * 1024 * 1024 * 1024), "4G"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.input.String())

			text, err := tt.input.MarshalText()
			require.NoError(t, err)
			require.Equal(t, tt.want, string(text))

			jsonData, err := json.Marshal(tt.input)
			require.NoError(t, err)
			require.Equal(t, `"`+tt.want+`"`, string(jsonData))

			yamlData, err := yaml.Marshal(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.want+"\n", string(yamlData))
		})
	}
}

func TestTimeDurationUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    TimeDuration
		wantErr bool
	}{
		{"plain integer is milliseconds", "750", TimeDuration(750 * time.Millisecond), false},
		{"milliseconds", "1500ms", TimeDuration(1500 * time.Millisecond), false},
		{"seconds", "90s", TimeDuration(90 * time.Second), false},
		{"compound", "2h45m", TimeDuration(2*time.Hour + 45*time.Minute), false},
		{"garbage", "soon", 0, true},
		{"negative", "-750", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := func(err error, got TimeDuration) {
				if tt.wantErr {
					require.Error(t, err)
					return
				}
				require.NoError(t, err)
				require.Equal(t, tt.want, got)
			}

			var viaText TimeDuration
			check(viaText.UnmarshalText([]byte(tt.text)), viaText)

			var viaJSON TimeDuration
			check(json.Unmarshal([]byte(`"`+tt.text+`"`), &viaJSON), viaJSON)

			var viaYAML struct {
				Delay TimeDuration `yaml:"delay"`
			}
			check(yaml.Unmarshal([]byte("delay: "+tt.text), &viaYAML), viaYAML.Delay)
		})
	}
}

func TestTimeDurationUnmarshalBareInt(t *testing.T) {
	var d TimeDuration
	require.NoError(t, json.Unmarshal([]byte(`1000`), &d))
	require.Equal(t, TimeDuration(time.Second), d)

	var cfg struct {
		Delay TimeDuration `yaml:"delay"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("delay: 250"), &cfg))
	require.Equal(t, TimeDuration(250*time.Millisecond), cfg.Delay)
}

func TestTimeDurationMarshal(t *testing.T) {
	tests := []struct {
		name  string
		input TimeDuration
		want  string
	}{
		{"milliseconds", TimeDuration(350 * time.Millisecond), "350ms"},
		{"seconds", TimeDuration(45 * time.Second), "45s"},
		{"minutes", TimeDuration(90 * time.Second), "1m30s"},
		{"hours", TimeDuration(2 * time.Hour), "2h0m0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.input.String())

			text, err := tt.input.MarshalText()
			require.NoError(t, err)
			require.Equal(t, tt.want, string(text))

			jsonData, err := json.Marshal(tt.input)
			require.NoError(t, err)
			require.Equal(t, `"`+tt.want+`"`, string(jsonData))

			yamlData, err := yaml.Marshal(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.want+"\n", string(yamlData))
		})
	}
}
