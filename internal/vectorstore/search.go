package vectorstore

import (
	"fmt"
	"math"
	"sort"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// Match is one nearest-neighbour hit.
type Match struct {
	EntityID   string
	ChunkIndex int
	ChunkStart int
	ChunkEnd   int
	ChunkText  string
	Score      float64 // cosine similarity, [-1, 1]
}

// Filter restricts Nearest to a folder prefix and/or an explicit set of
// entity IDs. Either field may be left zero to skip that restriction.
type Filter struct {
	FolderPrefix string
	EntityIDs    []string
}

// Nearest returns the top-k rows by cosine similarity to query, using
// sqlite-vec's vec0 index to over-fetch an L2-distance-ordered candidate
// set (cheap, approximate recall funnel), then re-ranks that candidate
// set by exact in-process cosine similarity so the final ordering and tie
// -break match the spec's contract exactly (vec0's native MATCH orders by
// L2 distance, not cosine).
func (s *Store) Nearest(query []float32, k int, filter Filter) ([]Match, error) {
	if err := validateVector(query, s.dims); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	fetchK := k * 5
	if fetchK < 50 {
		fetchK = 50
	}

	queryBlob, err := packVecBlob(query)
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.Query(`
		SELECT e.entity_id, e.chunk_index, e.chunk_start, e.chunk_end, e.chunk_text, e.vector
		FROM brain_embeddings_vec v
		JOIN brain_embeddings e ON e.rowid = v.row_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY distance`, queryBlob, fetchK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []Match
	for rows.Next() {
		var m Match
		var vecRaw []byte
		if err := rows.Scan(&m.EntityID, &m.ChunkIndex, &m.ChunkStart, &m.ChunkEnd, &m.ChunkText, &vecRaw); err != nil {
			return nil, err
		}
		if filter.FolderPrefix != "" && !strings.HasPrefix(m.EntityID, filter.FolderPrefix) {
			continue
		}
		if len(filter.EntityIDs) > 0 && !containsString(filter.EntityIDs, m.EntityID) {
			continue
		}
		m.Score = cosineSimilarity(query, unpackFloat32(vecRaw))
		candidates = append(candidates, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].EntityID != candidates[j].EntityID {
			return candidates[i].EntityID > candidates[j].EntityID
		}
		return candidates[i].ChunkIndex < candidates[j].ChunkIndex
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		fa, fb := float64(a[i]), float64(b[i])
		dot += fa * fb
		normA += fa * fa
		normB += fb * fb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func packVecBlob(v []float32) ([]byte, error) {
	blob, err := sqlite_vec.SerializeFloat32(v)
	if err != nil {
		return nil, fmt.Errorf("serialize query vector: %w", err)
	}
	return blob, nil
}
