// Package vectorstore implements the VectorStore component (C3): a
// single-file SQLite database holding (entity_id, chunk_index, embedding,
// chunk_text, span) rows, with atomic per-entity bulk replace and
// cosine-similarity nearest-neighbour queries.
package vectorstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/loriensleafs/brain/internal/brainerr"
)

func init() {
	sqlite_vec.Auto()
}

// Store wraps a SQLite connection with sqlite-vec support, serializing
// writes behind a mutex the way a single-file embedded database requires.
type Store struct {
	conn *sql.DB
	mu   sync.Mutex
	dims int
}

// Open opens or creates the database at path, sized for dims-dimensional
// vectors.
func Open(path string, dims int) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, brainerr.Wrap(brainerr.Config, "create vectorstore dir", err, nil)
	}

	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, brainerr.Wrap(brainerr.Config, "open vectorstore db", err, nil)
	}

	var vecVersion string
	if err := conn.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		conn.Close()
		return nil, brainerr.Wrap(brainerr.Config, "sqlite-vec not available", err, nil)
	}

	s := &Store{conn: conn, dims: dims}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, brainerr.Wrap(brainerr.Config, "migrate vectorstore", err, nil)
	}
	return s, nil
}

// OpenMemory opens an in-memory store, for tests.
func OpenMemory(dims int) (*Store, error) {
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}
	s := &Store{conn: conn, dims: dims}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.conn.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS brain_embeddings (
			entity_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			total_chunks INTEGER NOT NULL,
			chunk_start INTEGER NOT NULL,
			chunk_end INTEGER NOT NULL,
			chunk_text TEXT NOT NULL,
			vector BLOB NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (entity_id, chunk_index)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_brain_embeddings_entity ON brain_embeddings(entity_id)`,
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS brain_embeddings_vec USING vec0(
			row_id INTEGER PRIMARY KEY,
			embedding float[%d]
		)`, s.dims),
	}
	for _, stmt := range stmts {
		if _, err := s.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, stmt)
		}
	}
	return s.SetMeta("dims", strconv.Itoa(s.dims))
}

// GetMeta reads a schema_meta value.
func (s *Store) GetMeta(key string) (string, bool) {
	var v string
	if err := s.conn.QueryRow(`SELECT value FROM schema_meta WHERE key = ?`, key).Scan(&v); err != nil {
		return "", false
	}
	return v, true
}

// SetMeta writes a schema_meta value.
func (s *Store) SetMeta(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.Exec(
		`INSERT INTO schema_meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// IntegrityCheck runs PRAGMA integrity_check.
func (s *Store) IntegrityCheck() error {
	var result string
	if err := s.conn.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return brainerr.Wrap(brainerr.Config, "integrity check query failed", err, nil)
	}
	if result != "ok" {
		return brainerr.New(brainerr.Config, "integrity check failed: "+result, nil)
	}
	return nil
}

// Count returns the total number of embedding rows.
func (s *Store) Count() (int, error) {
	var n int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM brain_embeddings`).Scan(&n)
	return n, err
}

// IterEntities returns the distinct entity_ids currently indexed, for
// diagnostics.
func (s *Store) IterEntities() ([]string, error) {
	rows, err := s.conn.Query(`SELECT DISTINCT entity_id FROM brain_embeddings ORDER BY entity_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
