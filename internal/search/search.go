// Package search implements the SearchEngine component (C5): a hybrid
// lexical+semantic query layer fusing NoteStore's keyword search with
// VectorStore's nearest-neighbour search.
//
// Grounded in the teacher's internal/store/search.go (candidate over-fetch,
// dedup, score normalization) for the semantic half, generalized to run
// concurrently with a lexical half via golang.org/x/sync/errgroup and fused
// by permalink per the spec's contract.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/loriensleafs/brain/internal/applog"
	"github.com/loriensleafs/brain/internal/brainerr"
	"github.com/loriensleafs/brain/internal/embedding"
	"github.com/loriensleafs/brain/internal/notestore"
	"github.com/loriensleafs/brain/internal/vectorstore"
)

// Mode selects which subsystem(s) a Search call consults.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeSemantic Mode = "semantic"
	ModeKeyword  Mode = "keyword"
)

// Source identifies which subsystem produced a Result.
type Source string

const (
	SourceSemantic Source = "semantic"
	SourceKeyword  Source = "keyword"
)

const (
	defaultLimit     = 10
	maxLimit         = 100
	defaultThreshold = 0.7
	snippetWindow    = 240
)

// Result is one fused search hit.
type Result struct {
	Permalink       string
	Title           string
	SimilarityScore float64
	Snippet         string
	Source          Source
	FullContent     string
}

// Options configures a Search call; zero values take spec defaults.
type Options struct {
	Limit       int
	Threshold   float64
	Mode        Mode
	FullContent bool
	Project     string
}

func (o Options) normalize() Options {
	if o.Limit <= 0 {
		o.Limit = defaultLimit
	}
	if o.Limit > maxLimit {
		o.Limit = maxLimit
	}
	if o.Threshold <= 0 {
		o.Threshold = defaultThreshold
	}
	if o.Mode == "" {
		o.Mode = ModeAuto
	}
	return o
}

// Engine fuses NoteStore's lexical search with VectorStore's nearest-
// neighbour search behind the embedding client used to vectorize queries.
type Engine struct {
	notes    notestore.Store
	vectors  *vectorstore.Store
	embedder embedding.Client
}

// New constructs a search Engine.
func New(notes notestore.Store, vectors *vectorstore.Store, embedder embedding.Client) *Engine {
	return &Engine{notes: notes, vectors: vectors, embedder: embedder}
}

// Search runs query against the configured subsystems per opts.Mode, fuses
// and ranks the results, and returns at most opts.Limit of them.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	opts = opts.normalize()

	var (
		keywordResults  []Result
		semanticResults []Result
		keywordErr      error
		semanticErr     error
	)

	runKeyword := opts.Mode == ModeAuto || opts.Mode == ModeKeyword
	runSemantic := opts.Mode == ModeAuto || opts.Mode == ModeSemantic

	g, gctx := errgroup.WithContext(ctx)
	if runKeyword {
		g.Go(func() error {
			var folders []string
			if opts.Project != "" {
				folders = []string{opts.Project}
			}
			hits, err := e.notes.Search(query, folders, opts.FullContent)
			if err != nil {
				keywordErr = err
				return nil
			}
			keywordResults = keywordResultsFrom(hits, opts)
			return nil
		})
	}
	if runSemantic {
		g.Go(func() error {
			results, err := e.semanticSearch(gctx, query, opts)
			if err != nil {
				semanticErr = err
				return nil
			}
			semanticResults = results
			return nil
		})
	}
	_ = g.Wait()

	if keywordErr != nil && semanticErr != nil {
		return nil, fmt.Errorf("search: keyword search failed: %v; semantic search failed: %v", keywordErr, semanticErr)
	}
	if keywordErr != nil {
		applog.Warn("search", "keyword subsystem failed, returning semantic-only results", map[string]any{"error": keywordErr.Error()})
	}
	if semanticErr != nil {
		applog.Warn("search", "semantic subsystem failed, returning keyword-only results", map[string]any{"error": semanticErr.Error()})
	}

	fused := fuse(keywordResults, semanticResults)
	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].SimilarityScore != fused[j].SimilarityScore {
			return fused[i].SimilarityScore > fused[j].SimilarityScore
		}
		return fused[i].Permalink < fused[j].Permalink
	})
	if len(fused) > opts.Limit {
		fused = fused[:opts.Limit]
	}
	return fused, nil
}

func (e *Engine) semanticSearch(ctx context.Context, query string, opts Options) ([]Result, error) {
	vec, err := e.embedder.EmbedOne(ctx, query)
	if err != nil {
		kind := brainerr.Transient
		if k, ok := brainerr.KindOf(err); ok {
			kind = k
		}
		return nil, brainerr.Wrap(kind, "query embedding failed", err, nil)
	}

	var filter vectorstore.Filter
	if opts.Project != "" {
		filter.FolderPrefix = opts.Project
	}
	matches, err := e.vectors.Nearest(vec, opts.Limit*5, filter)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		if m.Score < opts.Threshold {
			continue
		}
		results = append(results, Result{
			Permalink:       m.EntityID,
			Title:           titleFromPermalink(m.EntityID),
			SimilarityScore: m.Score,
			Snippet:         snippetFromChunk(m.ChunkText),
			Source:          SourceSemantic,
		})
	}
	return results, nil
}

func keywordResultsFrom(hits []notestore.SearchHit, opts Options) []Result {
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			Permalink:       h.Permalink,
			Title:           h.Title,
			SimilarityScore: 1.0,
			Snippet:         boundedSnippet(h.Snippet),
			Source:          SourceKeyword,
			FullContent:     h.FullContent,
		})
	}
	return results
}

// fuse merges keyword and semantic results by permalink: when both
// subsystems surface the same permalink, the higher similarity_score wins
// and its source is kept.
func fuse(keyword, semantic []Result) []Result {
	byPermalink := make(map[string]Result, len(keyword)+len(semantic))
	order := make([]string, 0, len(keyword)+len(semantic))

	add := func(r Result) {
		existing, ok := byPermalink[r.Permalink]
		if !ok {
			byPermalink[r.Permalink] = r
			order = append(order, r.Permalink)
			return
		}
		if r.SimilarityScore > existing.SimilarityScore {
			byPermalink[r.Permalink] = r
		}
	}
	for _, r := range keyword {
		add(r)
	}
	for _, r := range semantic {
		add(r)
	}

	out := make([]Result, 0, len(order))
	for _, p := range order {
		out = append(out, byPermalink[p])
	}
	return out
}

func titleFromPermalink(permalink string) string {
	parts := strings.Split(permalink, "/")
	return parts[len(parts)-1]
}

func snippetFromChunk(text string) string {
	return boundedSnippet(text)
}

func boundedSnippet(s string) string {
	if len(s) <= snippetWindow {
		return s
	}
	return s[:snippetWindow]
}
