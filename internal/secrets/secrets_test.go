// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDir(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "crossref-email", "  me@example.org  \n")
				writeFile(t, dir, "semantic-scholar-api-key", "sk_xyz789")
				return dir
			},
			want: map[string]string{
				"crossref-email":           "me@example.org",
				"semantic-scholar-api-key": "sk_xyz789",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "openalex-email", "oa@example.org")
				writeFile(t, dir, "crossref-email", "")
				writeFile(t, dir, "hal-api-url", "   \n\t  ")
				return dir
			},
			want: map[string]string{"openalex-email": "oa@example.org"},
		},
		{
			name: "skips dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, "hal-api-url", "http://localhost:8983/search/")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{"hal-api-url": "http://localhost:8983/search/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readDir(tt.setup(t), zerolog.Nop())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, KeyCrossrefEmail, "cr@example.org\n")
	writeFile(t, dir, KeyOpenAlexEmail, "oa@example.org")
	writeFile(t, dir, KeySemanticScholarKey, "sk_1")
	writeFile(t, dir, KeyHALAPIURL, "http://localhost/search/")
	writeFile(t, dir, "anthropic-api-key", "unused")

	var logs bytes.Buffer
	got, err := Load(dir, zerolog.New(&logs))
	require.NoError(t, err)
	assert.Equal(t, Credentials{
		CrossrefEmail:      "cr@example.org",
		OpenAlexEmail:      "oa@example.org",
		SemanticScholarKey: "sk_1",
		HALAPIURL:          "http://localhost/search/",
	}, got)
	assert.Equal(t, []string{KeyCrossrefEmail, KeyHALAPIURL, KeyOpenAlexEmail, KeySemanticScholarKey}, got.Keys())
	assert.Contains(t, logs.String(), "anthropic-api-key")
	assert.Contains(t, logs.String(), `"level":"warn"`)
}

func TestLoadMissingDirectory(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "nope"), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, Credentials{}, got)
	assert.Empty(t, got.Keys())
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	dir := t.TempDir()
	writeFile(t, dir, KeyOpenAlexEmail, "oa@example.org")

	badPath := filepath.Join(dir, KeyCrossrefEmail)
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	var logs bytes.Buffer
	got, err := Load(dir, zerolog.New(&logs))
	require.NoError(t, err)
	assert.Equal(t, "oa@example.org", got.OpenAlexEmail)
	assert.Empty(t, got.CrossrefEmail, "unreadable file should not appear in result")
	assert.Contains(t, logs.String(), "could not read secret")
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
