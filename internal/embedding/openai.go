package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/loriensleafs/brain/internal/brainerr"
)

// openaiClient speaks the spec's batch protocol against the OpenAI API or
// any OpenAI-compatible endpoint, using the array form of the `input`
// field (`POST /v1/embeddings` with `input: [string, ...]`), which keeps
// output[i] aligned with input[i] the same way the Ollama backend does.
type openaiClient struct {
	httpClient     *http.Client
	healthClient   *http.Client
	baseURL        string
	model          string
	apiKey         string
	dims           int
	requestTimeout time.Duration
}

func newOpenAIClient(cfg Config) (*openaiClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	isHosted := baseURL == "https://api.openai.com"
	if isHosted && cfg.APIKey == "" {
		return nil, brainerr.New(brainerr.Config, "openai backend requires an API key", nil)
	}

	model := cfg.Model
	if model == "" {
		if isHosted {
			model = "text-embedding-3-small"
		} else {
			return nil, brainerr.New(brainerr.Config, "openai-compatible backend requires a model name", nil)
		}
	}

	dims := cfg.Dimensions
	if dims == 0 && isHosted {
		dims = openaiDefaultDims(model)
	}

	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	return &openaiClient{
		httpClient:     &http.Client{Timeout: timeout},
		healthClient:   &http.Client{Timeout: time.Duration(cfg.HealthTimeoutMS) * time.Millisecond},
		baseURL:        baseURL,
		model:          model,
		apiKey:         cfg.APIKey,
		dims:           dims,
		requestTimeout: timeout,
	}, nil
}

func (c *openaiClient) Model() string   { return c.model }
func (c *openaiClient) Dimensions() int { return c.dims }

type openaiEmbedRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openaiEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *openaiClient) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	out, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (c *openaiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := openaiEmbedRequest{Input: texts, Model: c.model}
	if c.dims > 0 && isVariableDimModel(c.model) {
		reqBody.Dimensions = c.dims
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, brainerr.Wrap(brainerr.Protocol, "marshal embed request", err, nil)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, brainerr.Wrap(brainerr.Protocol, "build embed request", err, nil)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	fields := map[string]any{
		"chunk_count": len(texts),
		"elapsed_ms":  time.Since(start).Milliseconds(),
		"deadline_ms": c.requestTimeout.Milliseconds(),
	}
	if err != nil {
		return nil, brainerr.Wrap(brainerr.Transient, "embed request failed", err, fields)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		sanitized := sanitizeError(string(respBody), c.apiKey)
		fields["status_code"] = resp.StatusCode
		kind := brainerr.BadRequest
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode >= 500 {
			kind = brainerr.Transient
		}
		return nil, brainerr.New(kind, fmt.Sprintf("embed service returned %d: %s", resp.StatusCode, sanitized), fields)
	}

	var result openaiEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, brainerr.Wrap(brainerr.Protocol, "decode embed response", err, fields)
	}
	if result.Error != nil {
		return nil, brainerr.New(brainerr.Protocol, sanitizeError(result.Error.Message, c.apiKey), fields)
	}
	if len(result.Data) != len(texts) {
		fields["expected_count"] = len(texts)
		fields["actual_count"] = len(result.Data)
		return nil, brainerr.New(brainerr.Protocol, "embed response length mismatch", fields)
	}

	out := make([][]float32, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, brainerr.New(brainerr.Protocol, "embed response index out of range", fields)
		}
		if err := validateEmbedding(d.Embedding, c.dims); err != nil {
			return nil, err
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (c *openaiClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return brainerr.Wrap(brainerr.Transient, "build health request", err, nil)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.healthClient.Do(req)
	if err != nil {
		return brainerr.Wrap(brainerr.Transient, "embed service unreachable", err, nil)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return brainerr.New(brainerr.Transient, fmt.Sprintf("embed service health check returned %d", resp.StatusCode), nil)
	}
	return nil
}

// sanitizeError removes any occurrence of the API key from an error
// message to prevent credential leakage in logs or user-facing output.
func sanitizeError(msg, apiKey string) string {
	if apiKey == "" {
		return msg
	}
	return strings.ReplaceAll(msg, apiKey, "[REDACTED]")
}

func openaiDefaultDims(model string) int {
	switch model {
	case "text-embedding-3-small":
		return 1536
	case "text-embedding-3-large":
		return 3072
	case "text-embedding-ada-002":
		return 1536
	default:
		return 1536
	}
}

func isVariableDimModel(model string) bool {
	return model == "text-embedding-3-small" || model == "text-embedding-3-large"
}
