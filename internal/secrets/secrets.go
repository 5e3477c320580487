// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads provider credentials from a directory of plain-text
// files. Each file in the directory represents one secret: the filename is
// the key name and the file contents (trimmed) are the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Key file names.
const (
	KeyCrossrefEmail      = "crossref-email"
	KeyOpenAlexEmail      = "openalex-email"
	KeySemanticScholarKey = "semantic-scholar-api-key"
	KeyHALAPIURL          = "hal-api-url"
)

// Credentials are the secrets the provider adapters understand. A zero field
// means the key file was absent.
type Credentials struct {
	// CrossrefEmail joins Crossref's polite pool through the User-Agent.
	CrossrefEmail string

	// OpenAlexEmail is sent as the mailto parameter.
	OpenAlexEmail string

	SemanticScholarKey string

	// HALAPIURL overrides the HAL search endpoint (e.g. a local mirror).
	HALAPIURL string
}

// Load reads the key files in dir. A missing directory is not an error; Load
// returns zero Credentials. Unreadable and unrecognized files are logged as
// warnings and skipped.
func Load(dir string, log zerolog.Logger) (Credentials, error) {
	files, err := readDir(dir, log)
	if err != nil {
		return Credentials{}, err
	}

	var c Credentials
	known := map[string]*string{
		KeyCrossrefEmail:      &c.CrossrefEmail,
		KeyOpenAlexEmail:      &c.OpenAlexEmail,
		KeySemanticScholarKey: &c.SemanticScholarKey,
		KeyHALAPIURL:          &c.HALAPIURL,
	}
	var unknown []string
	for name, value := range files {
		if dst, ok := known[name]; ok {
			*dst = value
			continue
		}
		unknown = append(unknown, name)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		log.Warn().Str("dir", dir).Strs("files", unknown).Msg("ignoring unrecognized secret files")
	}
	return c, nil
}

// readDir returns a map of filename to trimmed contents for every regular,
// non-hidden, non-empty file in dir.
func readDir(dir string, log zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Keys returns the names of the key files that supplied a value, sorted.
func (c Credentials) Keys() []string {
	var keys []string
	for name, v := range map[string]string{
		KeyCrossrefEmail:      c.CrossrefEmail,
		KeyOpenAlexEmail:      c.OpenAlexEmail,
		KeySemanticScholarKey: c.SemanticScholarKey,
		KeyHALAPIURL:          c.HALAPIURL,
	} {
		if v != "" {
			keys = append(keys, name)
		}
	}
	sort.Strings(keys)
	return keys
}
