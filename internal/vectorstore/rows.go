package vectorstore

import (
	"encoding/binary"
	"math"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/loriensleafs/brain/internal/brainerr"
)

// Row is one chunk's embedding row, as defined in the data model: every
// row's (entity_id, chunk_index) is consistent with the current note body;
// stale rows are replaced atomically per entity on rebuild.
type Row struct {
	EntityID    string
	ChunkIndex  int
	TotalChunks int
	ChunkStart  int
	ChunkEnd    int
	ChunkText   string
	Vector      []float32
	CreatedAt   time.Time
}

// validateVector rejects a vector with the wrong dimension or containing
// NaN/infinity, per the insert-time guarantee in §4.3.
func validateVector(v []float32, dims int) error {
	if len(v) != dims {
		return brainerr.New(brainerr.BadRequest, "vector has wrong dimension", map[string]any{
			"expected_dims": dims, "actual_dims": len(v),
		})
	}
	for _, f := range v {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return brainerr.New(brainerr.BadRequest, "vector contains NaN or infinity", nil)
		}
	}
	return nil
}

// ReplaceChunks atomically deletes all existing rows for entityID and
// inserts rows, in a single transaction. On failure nothing changes.
func (s *Store) ReplaceChunks(entityID string, rows []Row) error {
	for _, r := range rows {
		if err := validateVector(r.Vector, s.dims); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return brainerr.Wrap(brainerr.Config, "begin replace_chunks tx", err, nil)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM brain_embeddings_vec WHERE row_id IN (
			SELECT rowid FROM brain_embeddings WHERE entity_id = ?)`, entityID); err != nil {
		return brainerr.Wrap(brainerr.Config, "delete old vectors", err, nil)
	}
	if _, err := tx.Exec(`DELETE FROM brain_embeddings WHERE entity_id = ?`, entityID); err != nil {
		return brainerr.Wrap(brainerr.Config, "delete old rows", err, nil)
	}

	insertStmt, err := tx.Prepare(`
		INSERT INTO brain_embeddings
			(entity_id, chunk_index, total_chunks, chunk_start, chunk_end, chunk_text, vector, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return brainerr.Wrap(brainerr.Config, "prepare insert", err, nil)
	}
	defer insertStmt.Close()

	vecStmt, err := tx.Prepare(`INSERT INTO brain_embeddings_vec (row_id, embedding) VALUES (?, ?)`)
	if err != nil {
		return brainerr.Wrap(brainerr.Config, "prepare vec insert", err, nil)
	}
	defer vecStmt.Close()

	for _, r := range rows {
		raw := packFloat32(r.Vector)
		res, err := insertStmt.Exec(r.EntityID, r.ChunkIndex, r.TotalChunks, r.ChunkStart, r.ChunkEnd,
			r.ChunkText, raw, r.CreatedAt.Format(time.RFC3339Nano))
		if err != nil {
			return brainerr.Wrap(brainerr.Config, "insert row", err, nil)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return brainerr.Wrap(brainerr.Config, "last insert id", err, nil)
		}
		vecData, err := sqlite_vec.SerializeFloat32(r.Vector)
		if err != nil {
			return brainerr.Wrap(brainerr.Config, "serialize vector", err, nil)
		}
		if _, err := vecStmt.Exec(rowID, vecData); err != nil {
			return brainerr.Wrap(brainerr.Config, "insert vector", err, nil)
		}
	}

	return tx.Commit()
}

// Delete removes all rows for entityID.
func (s *Store) Delete(entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM brain_embeddings_vec WHERE row_id IN (
			SELECT rowid FROM brain_embeddings WHERE entity_id = ?)`, entityID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM brain_embeddings WHERE entity_id = ?`, entityID); err != nil {
		return err
	}
	return tx.Commit()
}

// packFloat32 little-endian packs a vector, the format rows.vector is
// stored in for in-process cosine computation (distinct from the
// sqlite-vec-native blob format used in brain_embeddings_vec).
func packFloat32(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func unpackFloat32(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
