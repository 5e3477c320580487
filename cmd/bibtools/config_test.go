// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bibtools/pkg/types"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	bindEnv(v)
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	c, err := loadConfig(newTestViper(t))
	require.NoError(t, err)
	assert.Equal(t, types.DefaultConfig(), c)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("BIBTOOLS_ACCEPT_THRESHOLD", "0.8")
	t.Setenv("BIBTOOLS_PROVIDERS", "hal,crossref")
	t.Setenv("BIBTOOLS_WEIGHTS_TITLE", "0.5")
	t.Setenv("BIBTOOLS_BACKOFF_MAX", "10s")

	c, err := loadConfig(newTestViper(t))
	require.NoError(t, err)
	assert.Equal(t, 0.8, c.AcceptThreshold)
	assert.Equal(t, []string{"hal", "crossref"}, c.Providers)
	assert.Equal(t, 0.5, c.Weights.Title)
	assert.Equal(t, 10*time.Second, c.BackoffMax)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bibtools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
providers: [openalex, datacite]
trust: [datacite, openalex]
backoff_base: 2s
max_attempts: 5
weights:
  journal: 0
cache_path: ""
`), 0o644))

	v := newTestViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	c, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"openalex", "datacite"}, c.Providers)
	assert.Equal(t, []string{"datacite", "openalex"}, c.Trust)
	assert.Equal(t, 2*time.Second, c.BackoffBase)
	assert.Equal(t, 5, c.MaxAttempts)
	assert.Equal(t, 0.0, c.Weights.Journal)
	assert.Equal(t, 0.4, c.Weights.Title, "unset nested keys keep their defaults")
	assert.Empty(t, c.CachePath)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"threshold above one", "BIBTOOLS_ACCEPT_THRESHOLD", "1.5"},
		{"zero attempts", "BIBTOOLS_MAX_ATTEMPTS", "0"},
		{"neutral out of range", "BIBTOOLS_NEUTRAL_SCORE", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := loadConfig(newTestViper(t))
			require.ErrorIs(t, err, types.ErrInvalidConfig)
		})
	}
}

func TestPrintedConfigReadsBack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, yaml.NewEncoder(&buf).Encode(types.DefaultConfig()))

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(&buf))

	c, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultConfig(), c)
}
