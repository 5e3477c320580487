// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/bibtools/pkg/types"
)

// SQLiteStore persists cache entries in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the cache database at path, creating parent
// directories and the schema as needed.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS cache_entries (
			key TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			kind TEXT NOT NULL,
			query_key TEXT NOT NULL,
			query_text TEXT,
			records TEXT NOT NULL,
			record_count INTEGER NOT NULL,
			stored_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cache_provider ON cache_entries(provider)`,
		`CREATE INDEX IF NOT EXISTS idx_cache_stored_at ON cache_entries(stored_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (types.CacheEntry, bool, error) {
	var (
		kind, queryKey, records string
		queryText               sql.NullString
		storedAt                int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT kind, query_key, query_text, records, stored_at FROM cache_entries WHERE key = ?`, key,
	).Scan(&kind, &queryKey, &queryText, &records, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.CacheEntry{}, false, nil
	}
	if err != nil {
		return types.CacheEntry{}, false, fmt.Errorf("reading cache entry: %w", err)
	}

	e := types.CacheEntry{
		Key:      key,
		Query:    types.Query{Kind: types.QueryKind(kind), Key: queryKey, Text: queryText.String},
		StoredAt: time.Unix(0, storedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(records), &e.Records); err != nil {
		return types.CacheEntry{}, false, fmt.Errorf("decoding cache entry %s: %w", key, err)
	}
	return e, true, nil
}

// Put implements Store. An existing entry for the key is replaced.
func (s *SQLiteStore) Put(ctx context.Context, e types.CacheEntry) error {
	records := e.Records
	if records == nil {
		records = []types.CandidateRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", e.Key, err)
	}
	provider, _, _ := strings.Cut(e.Key, "|")

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, provider, kind, query_key, query_text, records, record_count, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			provider=excluded.provider, kind=excluded.kind, query_key=excluded.query_key,
			query_text=excluded.query_text, records=excluded.records,
			record_count=excluded.record_count, stored_at=excluded.stored_at`,
		e.Key, provider, string(e.Query.Kind), e.Query.Key, e.Query.Text,
		string(data), len(records), e.StoredAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry %s: %w", e.Key, err)
	}
	return nil
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries    int
	Empty      int
	ByProvider map[string]int
	Oldest     time.Time
	Newest     time.Time
}

// Stats reports entry counts per provider and the stored time range.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByProvider: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, count(*), sum(CASE WHEN record_count = 0 THEN 1 ELSE 0 END)
		FROM cache_entries GROUP BY provider ORDER BY provider`)
	if err != nil {
		return st, fmt.Errorf("querying cache stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var provider string
		var n, empty int
		if err := rows.Scan(&provider, &n, &empty); err != nil {
			return st, fmt.Errorf("scanning cache stats: %w", err)
		}
		st.ByProvider[provider] = n
		st.Entries += n
		st.Empty += empty
	}
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("iterating cache stats: %w", err)
	}
	if st.Entries == 0 {
		return st, nil
	}

	var oldest, newest int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT min(stored_at), max(stored_at) FROM cache_entries`,
	).Scan(&oldest, &newest); err != nil {
		return st, fmt.Errorf("querying cache age: %w", err)
	}
	st.Oldest = time.Unix(0, oldest).UTC()
	st.Newest = time.Unix(0, newest).UTC()
	return st, nil
}

// PurgeFilter selects entries to delete. Zero fields match everything.
type PurgeFilter struct {
	// Before deletes entries stored strictly before this time.
	Before time.Time

	// Provider restricts deletion to one provider.
	Provider string

	// EmptyOnly deletes only cached "no record" answers.
	EmptyOnly bool
}

// Purge deletes the entries matching f and returns how many were removed.
func (s *SQLiteStore) Purge(ctx context.Context, f PurgeFilter) (int64, error) {
	var (
		where []string
		args  []any
	)
	if !f.Before.IsZero() {
		where = append(where, "stored_at < ?")
		args = append(args, f.Before.UnixNano())
	}
	if f.Provider != "" {
		where = append(where, "provider = ?")
		args = append(args, f.Provider)
	}
	if f.EmptyOnly {
		where = append(where, "record_count = 0")
	}

	stmt := "DELETE FROM cache_entries"
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("purging cache: %w", err)
	}
	return res.RowsAffected()
}
