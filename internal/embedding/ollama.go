package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/loriensleafs/brain/internal/brainerr"
)

// ollamaClient speaks the spec's batch embedding protocol against a local
// Ollama instance: POST {base}/api/embed with {model, input, truncate}.
type ollamaClient struct {
	httpClient     *http.Client
	healthClient   *http.Client
	baseURL        string
	model          string
	dims           int
	requestTimeout time.Duration
}

func newOllamaClient(cfg Config) (*ollamaClient, error) {
	model := cfg.Model
	if model == "" {
		model = "nomic-embed-text"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if err := validateLocalhostOnly(baseURL); err != nil {
		return nil, err
	}
	dims := cfg.Dimensions
	if dims == 0 {
		dims = ollamaDefaultDims(model)
	}

	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	return &ollamaClient{
		httpClient:     &http.Client{Timeout: timeout},
		healthClient:   &http.Client{Timeout: time.Duration(cfg.HealthTimeoutMS) * time.Millisecond},
		baseURL:        baseURL,
		model:          model,
		dims:           dims,
		requestTimeout: timeout,
	}, nil
}

func (c *ollamaClient) Model() string   { return c.model }
func (c *ollamaClient) Dimensions() int { return c.dims }

type embedRequest struct {
	Model    string   `json:"model"`
	Input    []string `json:"input"`
	Truncate bool     `json:"truncate"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

func (c *ollamaClient) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	out, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (c *ollamaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	start := time.Now()
	body, err := json.Marshal(embedRequest{Model: c.model, Input: texts, Truncate: true})
	if err != nil {
		return nil, brainerr.Wrap(brainerr.Protocol, "marshal embed request", err, nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, brainerr.Wrap(brainerr.Protocol, "build embed request", err, nil)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	fields := map[string]any{
		"chunk_count": len(texts),
		"elapsed_ms":  elapsed.Milliseconds(),
		"deadline_ms": c.requestTimeout.Milliseconds(),
	}
	if err != nil {
		reason := classifyNetworkError(err)
		kind := brainerr.Transient
		fields["reason"] = reason
		return nil, brainerr.Wrap(kind, "embed request failed", err, fields)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		fields["status_code"] = resp.StatusCode
		kind := brainerr.BadRequest
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusRequestTimeout {
			kind = brainerr.Transient
		}
		return nil, brainerr.New(kind, fmt.Sprintf("embed service returned %d: %s", resp.StatusCode, string(respBody)), fields)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, brainerr.Wrap(brainerr.Protocol, "decode embed response", err, fields)
	}
	if len(result.Embeddings) != len(texts) {
		fields["expected_count"] = len(texts)
		fields["actual_count"] = len(result.Embeddings)
		return nil, brainerr.New(brainerr.Protocol, "embed response length mismatch", fields)
	}
	for _, vec := range result.Embeddings {
		if err := validateEmbedding(vec, c.dims); err != nil {
			return nil, err
		}
	}
	return result.Embeddings, nil
}

func (c *ollamaClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return brainerr.Wrap(brainerr.Transient, "build health request", err, nil)
	}
	resp, err := c.healthClient.Do(req)
	if err != nil {
		return brainerr.Wrap(brainerr.Transient, "embed service unreachable", err, map[string]any{"reason": classifyNetworkError(err)})
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return brainerr.New(brainerr.Transient, fmt.Sprintf("embed service health check returned %d", resp.StatusCode), nil)
	}
	return nil
}

// classifyNetworkError examines a network error to produce a human-readable
// reason for structured logging.
func classifyNetworkError(err error) string {
	if err == nil {
		return "unknown"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return "timeout"
		}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns_failure"
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "connection_refused"
	case strings.Contains(msg, "permission denied"):
		return "permission_denied"
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "context deadline exceeded"):
		return "timeout"
	case strings.Contains(msg, "no such host"):
		return "dns_failure"
	}
	return "network_error"
}

// validateLocalhostOnly returns an error if the URL does not point to
// localhost, the teacher's security posture for a local embedding daemon.
func validateLocalhostOnly(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return brainerr.Wrap(brainerr.Config, "invalid embedding base URL", err, nil)
	}
	host := u.Hostname()
	if host != "localhost" && host != "127.0.0.1" && host != "::1" {
		return brainerr.New(brainerr.Config, fmt.Sprintf("embedding base URL must point to localhost, got %s", host), nil)
	}
	return nil
}

func ollamaDefaultDims(model string) int {
	switch model {
	case "nomic-embed-text":
		return 768
	case "mxbai-embed-large":
		return 1024
	case "all-minilm":
		return 384
	case "snowflake-arctic-embed":
		return 1024
	case "bge-m3":
		return 1024
	default:
		return 768
	}
}
