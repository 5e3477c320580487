// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggingConfig{Level: "debug", Format: "json", Output: &buf})
	l := WithProvider(logger, "crossref")
	l.Debug().Msg("hello")

	out := buf.String()
	assert.Contains(t, out, `"provider":"crossref"`)
	assert.Contains(t, out, `"message":"hello"`)
}

func TestNewLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggingConfig{Level: "warn", Format: "json", Output: &buf})
	logger.Info().Msg("dropped")
	assert.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARNING", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()
	m.RecordAttempt("hal", 50*time.Millisecond)
	m.RecordAttempt("hal", 70*time.Millisecond)
	m.RecordRetry("hal")
	m.RecordOutcome("hal", "exhausted")
	m.RecordCacheLookup("hit")
	m.RecordCitation("unresolved", "queries exhausted")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProviderAttempts.WithLabelValues("hal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderRetries.WithLabelValues("hal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderOutcomes.WithLabelValues("hal", "exhausted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Citations.WithLabelValues("unresolved", "queries exhausted")))

	// A second instance has its own registry.
	other := NewMetrics()
	assert.Equal(t, 0.0, testutil.ToFloat64(other.ProviderAttempts.WithLabelValues("hal")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordAttempt("x", time.Second)
	m.RecordCacheWrite("ok")
	assert.NoError(t, m.WriteFile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestMetricsWriteFile(t *testing.T) {
	m := NewMetrics()
	m.RecordCacheWrite("error")

	path := filepath.Join(t.TempDir(), "bibtools.prom")
	require.NoError(t, m.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `bibtools_cache_writes_total{result="error"} 1`))
}
