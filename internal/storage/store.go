// Package storage is the relational store: the system of record for every
// ingested archive, backed by SQLite via mattn/go-sqlite3.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the relational store handle. One Store is opened per process;
// it serves any number of concurrent readers and a single writer during
// indexing, per the write-ahead-log concurrency discipline.
type Store struct {
	db *sql.DB
}

// Open creates the database file (and parent directories) if missing,
// sets pragmas once, and migrates the schema to currentSchemaVersion.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &Error{Kind: Io, Op: "open", Cause: err}
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &Error{Kind: Io, Op: "open", Cause: err}
	}
	db.SetMaxOpenConns(1) // single exclusive writer; sqlite3 driver serializes anyway

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA mmap_size=268435456",
		"PRAGMA cache_size=-20000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, &Error{Kind: Io, Op: "pragma", Cause: err}
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
		return &Error{Kind: Migration, Op: "ensure meta", Cause: err}
	}

	version := 0
	if v, ok, err := s.getMeta("schema_version"); err != nil {
		return &Error{Kind: Migration, Op: "read schema_version", Cause: err}
	} else if ok {
		version, _ = strconv.Atoi(v)
	}

	if version == 0 {
		for _, stmt := range schemaStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return &Error{Kind: Migration, Op: "create schema", Cause: err}
			}
		}
		version = currentSchemaVersion
	} else {
		for version < currentSchemaVersion {
			stmts, ok := migrations[version]
			if !ok {
				return &Error{Kind: Migration, Op: fmt.Sprintf("no migration from version %d", version)}
			}
			for _, stmt := range stmts {
				if _, err := s.db.Exec(stmt); err != nil {
					return &Error{Kind: Migration, Op: fmt.Sprintf("migrate from %d", version), Cause: err}
				}
			}
			version++
		}
	}
	return s.setMeta("schema_version", strconv.Itoa(version))
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// TruncateAll logically erases every indexed table in a single
// transaction, leaving the schema and the meta table intact.
func (s *Store) TruncateAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Kind: Io, Op: "truncate_all begin", Cause: err}
	}
	defer tx.Rollback()

	tables := []string{
		"tweets", "likes", "direct_messages", "grok_messages",
		"tweets_fts", "likes_fts", "direct_messages_fts", "grok_messages_fts",
		"embeddings",
	}
	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return &Error{Kind: Corruption, Op: "truncate " + t, Cause: err}
		}
	}
	return tx.Commit()
}

// getMeta/setMeta/GetMeta/SetMeta manage the meta(key, value) table.

func (s *Store) getMeta(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) setMeta(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO meta(key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// GetMeta reads a meta key written by the indexing orchestrator
// (schema_version, archive_fingerprint, indexed_at, or a per-type count
// key such as "count.tweet").
func (s *Store) GetMeta(key string) (string, bool, error) {
	v, ok, err := s.getMeta(key)
	if err != nil {
		return "", false, &Error{Kind: Io, Op: "get_meta", Cause: err}
	}
	return v, ok, nil
}

// SetMeta writes a meta key. Used by the indexing orchestrator to record
// schema_version, archive_fingerprint, indexed_at, and per-type counts.
func (s *Store) SetMeta(key, value string) error {
	if err := s.setMeta(key, value); err != nil {
		return &Error{Kind: Io, Op: "set_meta", Cause: err}
	}
	return nil
}
