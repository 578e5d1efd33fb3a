// Package embedding implements the EmbeddingClient component (C1):
// batch calls to a remote embedding service with cascaded timeouts and
// closed-set error classification.
package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/loriensleafs/brain/internal/brainerr"
)

// Client is the embedding-service contract. EmbedBatch guarantees
// output[i] corresponds to input[i]; an empty input returns an empty
// output with no network call. EmbedOne/EmbedBatch fail the whole
// request on any error — no partial results.
type Client interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Health(ctx context.Context) error
	Model() string
	Dimensions() int
}

// Config selects and configures an embedding backend.
type Config struct {
	Backend         string // "ollama" (default) or "openai"
	BaseURL         string
	Model           string
	APIKey          string // required for the hosted OpenAI API
	Dimensions      int    // 0 = backend default
	TimeoutMS       int    // single-request timeout, default 60000
	HealthTimeoutMS int    // health-check timeout, default 5000
}

// New constructs a Client from cfg.
func New(cfg Config) (Client, error) {
	if cfg.TimeoutMS == 0 {
		cfg.TimeoutMS = 60000
	}
	if cfg.HealthTimeoutMS == 0 {
		cfg.HealthTimeoutMS = 5000
	}
	switch cfg.Backend {
	case "", "ollama":
		return newOllamaClient(cfg)
	case "openai":
		return newOpenAIClient(cfg)
	default:
		return nil, brainerr.New(brainerr.Config, fmt.Sprintf("unknown embedding backend %q", cfg.Backend), nil)
	}
}

// validateEmbedding rejects a vector of the wrong dimension or an
// all-zero vector, which indicates the backend returned garbage (E4, E5).
func validateEmbedding(vec []float32, expectedDims int) error {
	if expectedDims > 0 && len(vec) != expectedDims {
		return brainerr.New(brainerr.BadRequest, "embedding dimension mismatch", map[string]any{
			"expected_dims": expectedDims, "actual_dims": len(vec),
		})
	}
	allZero := true
	for _, v := range vec {
		if math.Float32bits(v) != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return brainerr.New(brainerr.Protocol, "embedding is all zeros", nil)
	}
	return nil
}
