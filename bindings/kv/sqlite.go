package kv

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	// Pure-Go SQLite driver for database/sql.
	_ "github.com/glebarez/sqlite"
)

const kvSchema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	metadata   TEXT,
	expires_at INTEGER
)`

// SQLiteStore persists entries in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path. ":memory:" gives a
// private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening KV database %q: %w", path, err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	} else {
		_, _ = db.Exec("PRAGMA journal_mode=WAL")
	}
	if _, err := db.Exec(kvSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating KV schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Get(key string) (*Entry, error) {
	var (
		value    []byte
		metadata sql.NullString
		expires  sql.NullInt64
	)
	err := s.db.QueryRow(
		`SELECT value, metadata, expires_at FROM kv
		 WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)`,
		key, s.now().UnixMilli(),
	).Scan(&value, &metadata, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("KV get %q: %w", key, err)
	}
	e := &Entry{Value: value}
	if metadata.Valid {
		m := metadata.String
		e.Metadata = &m
	}
	if expires.Valid {
		e.ExpiresAt = time.UnixMilli(expires.Int64)
	}
	return e, nil
}

func (s *SQLiteStore) Put(key string, value []byte, opts PutOptions) error {
	if len(value) > MaxValueSize {
		return ErrValueTooLarge
	}
	var metadata, expires any
	if opts.Metadata != nil {
		metadata = *opts.Metadata
	}
	if !opts.ExpiresAt.IsZero() {
		expires = opts.ExpiresAt.UnixMilli()
	}
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, metadata, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value,
		   metadata = excluded.metadata, expires_at = excluded.expires_at`,
		key, value, metadata, expires,
	)
	if err != nil {
		return fmt.Errorf("KV put %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(key string) (bool, error) {
	res, err := s.db.Exec(
		`DELETE FROM kv WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)`,
		key, s.now().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("KV delete %q: %w", key, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) List(opts ListOptions) (*ListResult, error) {
	rows, err := s.db.Query(
		`SELECT key FROM kv
		 WHERE key >= ? AND (expires_at IS NULL OR expires_at > ?)
		 ORDER BY key`,
		opts.Prefix, s.now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("KV list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("KV list scan: %w", err)
		}
		if !strings.HasPrefix(k, opts.Prefix) {
			break
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("KV list: %w", err)
	}
	return page(keys, opts), nil
}

// CleanupExpired deletes expired rows and reports how many went.
func (s *SQLiteStore) CleanupExpired() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("KV cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
