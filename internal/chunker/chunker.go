// Package chunker deterministically splits note bodies into ordered,
// overlapping, size-bounded chunks. The split algorithm (paragraph →
// sentence → whitespace → hard cut) is authored fresh: no retrieved
// example repo defines the ChunkByHeadings/ChunkBySize functions its own
// indexer calls, only their call shape.
package chunker

import (
	"regexp"
	"strings"
)

// Config controls target chunk size and overlap.
type Config struct {
	// TargetSize is the preferred chunk length in characters.
	TargetSize int
	// OverlapFrac is the fraction of TargetSize carried forward between
	// adjacent chunks.
	OverlapFrac float64
}

// Default returns the spec's default chunking configuration.
func Default() Config {
	return Config{TargetSize: 2000, OverlapFrac: 0.15}
}

// Chunk is one ordered slice of a note body.
type Chunk struct {
	Index       int
	TotalChunks int
	Start       int
	End         int
	Text        string
}

var (
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
	sentenceEnd    = regexp.MustCompile(`[.!?]\s+`)
)

// Split deterministically chunks body per cfg. Identical (body, cfg)
// always yields an identical chunk sequence. An empty body yields an
// empty sequence.
func Split(body string, cfg Config) []Chunk {
	if cfg.TargetSize <= 0 {
		cfg.TargetSize = 2000
	}
	if cfg.OverlapFrac < 0 || cfg.OverlapFrac >= 1 {
		cfg.OverlapFrac = 0.15
	}
	if len(body) == 0 {
		return nil
	}

	overlap := int(float64(cfg.TargetSize) * cfg.OverlapFrac)
	var chunks []Chunk

	start := 0
	for start < len(body) {
		end := start + cfg.TargetSize
		if end >= len(body) {
			end = len(body)
		} else {
			end = bestSplit(body, start, end)
		}
		if end <= start {
			end = start + 1 // hard cut guard against pathological input
			if end > len(body) {
				end = len(body)
			}
		}
		chunks = append(chunks, Chunk{Start: start, End: end, Text: body[start:end]})

		if end >= len(body) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	for i := range chunks {
		chunks[i].Index = i
		chunks[i].TotalChunks = len(chunks)
	}
	return chunks
}

// bestSplit finds the preferred break point in body[start:max], trying
// paragraph boundary, then sentence boundary, then whitespace, then
// falling back to a hard cut at max.
func bestSplit(body string, start, max int) int {
	window := body[start:max]

	if locs := paragraphBreak.FindAllStringIndex(window, -1); len(locs) > 0 {
		last := locs[len(locs)-1]
		return start + last[0]
	}
	if locs := sentenceEnd.FindAllStringIndex(window, -1); len(locs) > 0 {
		last := locs[len(locs)-1]
		return start + last[1]
	}
	if idx := strings.LastIndexAny(window, " \t\n"); idx > 0 {
		return start + idx
	}
	return max
}
