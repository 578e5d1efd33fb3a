// Package pipeline implements the EmbeddingPipeline component (C4): a
// bounded-concurrency orchestrator that brings the VectorStore into
// agreement with the NoteStore for a selected set of notes, with a
// fire-and-forget catch-up trigger at session bootstrap.
//
// Grounded in the teacher's internal/indexer/indexer.go worker-pool shape,
// generalized from a fixed channel-based pool to golang.org/x/sync/errgroup's
// SetLimit, which is the idiomatic Go rendition of "parallel tasks with a
// semaphore" — the errgroup's limiter is the semaphore.
package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/loriensleafs/brain/internal/applog"
	"github.com/loriensleafs/brain/internal/brainerr"
	"github.com/loriensleafs/brain/internal/chunker"
	"github.com/loriensleafs/brain/internal/clock"
	"github.com/loriensleafs/brain/internal/embedding"
	"github.com/loriensleafs/brain/internal/notestore"
	"github.com/loriensleafs/brain/internal/vectorstore"
)

// MaxChunksPerBatch caps how many chunks go into a single embed_batch
// call; notes with more chunks are embedded in several batches.
const MaxChunksPerBatch = 32

// Config controls the pipeline's concurrency and chunking.
type Config struct {
	Concurrency     int // default 4, clamped [1,16]
	ChunkConfig     chunker.Config
	CatchUpDeadline time.Duration // default 5 minutes
}

// Pipeline orchestrates Chunker -> EmbeddingClient -> VectorStore.
type Pipeline struct {
	notes    notestore.Store
	vectors  *vectorstore.Store
	embedder embedding.Client
	cfg      Config
	metrics  *Metrics
	clock    clock.Clock
}

// New constructs a Pipeline. metrics may be nil to disable instrumentation.
func New(notes notestore.Store, vectors *vectorstore.Store, embedder embedding.Client, cfg Config, metrics *Metrics) *Pipeline {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 4
	}
	if cfg.Concurrency > 16 {
		cfg.Concurrency = 16
	}
	if cfg.ChunkConfig.TargetSize == 0 {
		cfg.ChunkConfig = chunker.Default()
	}
	if cfg.CatchUpDeadline == 0 {
		cfg.CatchUpDeadline = 5 * time.Minute
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Pipeline{notes: notes, vectors: vectors, embedder: embedder, cfg: cfg, metrics: metrics, clock: clock.System{}}
}

// NoteResult is the outcome of processing one note.
type NoteResult struct {
	Identifier string
	Err        error
}

// ProcessNote reads the note's body, chunks it, embeds the chunks (in
// batches of at most MaxChunksPerBatch), and atomically replaces its
// VectorStore rows. Callers must not submit the same identifier
// concurrently; the pipeline does not deduplicate internally.
func (p *Pipeline) ProcessNote(ctx context.Context, identifier string) error {
	note, err := p.notes.ReadNote(identifier)
	if err != nil {
		return err
	}

	chunks := chunker.Split(note.Body, p.cfg.ChunkConfig)
	if len(chunks) == 0 {
		return p.vectors.Delete(identifier)
	}

	vectors := make([][]float32, len(chunks))
	for start := 0; start < len(chunks); start += MaxChunksPerBatch {
		end := start + MaxChunksPerBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.Text
		}

		batchStart := time.Now()
		out, err := p.embedder.EmbedBatch(ctx, texts)
		p.metrics.BatchLatency.Observe(time.Since(batchStart).Seconds())
		if err != nil {
			kind := brainerr.Transient
			if k, ok := brainerr.KindOf(err); ok {
				kind = k
			}
			return brainerr.Wrap(kind, "embed batch failed for note", err, map[string]any{
				"identifier": identifier, "chunk_count": len(texts),
			})
		}
		copy(vectors[start:end], out)
	}

	now := p.clock.Now()
	rows := make([]vectorstore.Row, len(chunks))
	for i, c := range chunks {
		rows[i] = vectorstore.Row{
			EntityID:    identifier,
			ChunkIndex:  c.Index,
			TotalChunks: c.TotalChunks,
			ChunkStart:  c.Start,
			ChunkEnd:    c.End,
			ChunkText:   c.Text,
			Vector:      vectors[i],
			CreatedAt:   now,
		}
	}
	return p.vectors.ReplaceChunks(identifier, rows)
}

// ProcessMany schedules ProcessNote over identifiers with at most
// concurrency in flight simultaneously. Returns one NoteResult per
// identifier; a failure on one note does not prevent the others from
// proceeding.
func (p *Pipeline) ProcessMany(ctx context.Context, identifiers []string, concurrency int) []NoteResult {
	if concurrency < 1 {
		concurrency = p.cfg.Concurrency
	}
	if concurrency > 16 {
		concurrency = 16
	}
	if len(identifiers) > 500 {
		applog.Warn("pipeline", "large corpus catch-up", map[string]any{"note_count": len(identifiers)})
	}

	results := make([]NoteResult, len(identifiers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, id := range identifiers {
		i, id := i, id
		g.Go(func() error {
			start := time.Now()
			err := p.ProcessNote(gctx, id)
			results[i] = NoteResult{Identifier: id, Err: err}
			fields := map[string]any{"identifier": id, "elapsed_ms": time.Since(start).Milliseconds()}
			if err != nil {
				p.metrics.NotesFailed.WithLabelValues("").Inc()
				applog.Warn("pipeline", "note processing failed", mergeFields(fields, map[string]any{"error": err.Error()}))
			} else {
				p.metrics.NotesProcessed.WithLabelValues("").Inc()
				applog.Info("pipeline", "note processed", fields)
			}
			return nil // per-note failures never abort the group
		})
	}
	_ = g.Wait()
	return results
}

// CatchUp finds identifiers present in NoteStore but absent from
// VectorStore under project, submits them via ProcessMany, and returns
// immediately: this is fire-and-forget. Failures are logged, never raised
// to the caller. If the embedding service's health check fails, the
// entire catch-up aborts with a single actionable log entry and no
// partial writes are attempted.
func (p *Pipeline) CatchUp(project string) {
	applog.Info("pipeline", "catch_up triggered", map[string]any{"project": project})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.CatchUpDeadline)
		defer cancel()

		healthCtx, healthCancel := context.WithTimeout(ctx, 5*time.Second)
		defer healthCancel()
		if err := p.embedder.Health(healthCtx); err != nil {
			applog.Error("pipeline", "catch_up aborted: embedding service unreachable", err, map[string]any{"project": project})
			return
		}

		start := time.Now()
		identifiers, err := p.missingIdentifiers(project)
		if err != nil {
			applog.Error("pipeline", "catch_up failed to enumerate notes", err, map[string]any{"project": project})
			return
		}

		applog.Info("pipeline", "catch_up started", map[string]any{"project": project, "note_count": len(identifiers)})
		results := p.ProcessMany(ctx, identifiers, p.cfg.Concurrency)

		failures := 0
		for _, r := range results {
			if r.Err != nil {
				failures++
			}
		}
		applog.Info("pipeline", "catch_up completed", map[string]any{
			"project": project, "note_count": len(identifiers),
			"elapsed_ms": time.Since(start).Milliseconds(), "failure_count": failures,
		})
	}()
}

func (p *Pipeline) missingIdentifiers(project string) ([]string, error) {
	entries, err := p.notes.ListDirectory(project, 0, "")
	if err != nil {
		return nil, err
	}
	indexed, err := p.vectors.IterEntities()
	if err != nil {
		return nil, err
	}
	indexedSet := make(map[string]bool, len(indexed))
	for _, id := range indexed {
		indexedSet[id] = true
	}

	var missing []string
	for _, e := range entries {
		if e.Kind != "file" || indexedSet[e.Permalink] {
			continue
		}
		missing = append(missing, e.Permalink)
	}
	return missing, nil
}

func mergeFields(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
