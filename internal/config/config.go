// Package config resolves runtime configuration by layering, in
// increasing precedence, built-in defaults, a TOML config file, and
// environment variables. Validation follows the teacher's defensive,
// fail-closed style: out-of-range values are clamped or rejected rather
// than silently accepted.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/loriensleafs/brain/internal/applog"
)

// Config is the fully-resolved runtime configuration.
type Config struct {
	VaultPath  string
	Project    string
	Ollama     OllamaConfig
	Embedding  EmbeddingConfig
	Session    SessionConfig
	ConfigFile string // path the TOML layer was loaded from, if any
}

// OllamaConfig controls the embedding-service HTTP client (C1).
type OllamaConfig struct {
	BaseURL         string
	TimeoutMS       int
	HealthTimeoutMS int
	Model           string
}

// EmbeddingConfig controls the embedding pipeline (C4) and chunker (C2).
type EmbeddingConfig struct {
	Concurrency  int
	ChunkSize    int
	ChunkOverlap float64
}

// SessionConfig controls the session store (C6/C9).
type SessionConfig struct {
	Secret string
}

// Sentinel configuration errors, in the teacher's exported-var style.
var (
	ErrNoVault     = fmt.Errorf("no vault found — set VAULT_PATH or pass --vault")
	ErrNoSecret    = fmt.Errorf("BRAIN_SESSION_SECRET is required and was not set")
	ErrBadTimeout  = fmt.Errorf("timeout must be a positive integer number of milliseconds")
)

// tomlFile is the on-disk shape of the optional config file layer.
type tomlFile struct {
	VaultPath string `toml:"vault_path"`
	Project   string `toml:"project"`
	Ollama    struct {
		BaseURL   string `toml:"base_url"`
		TimeoutMS int    `toml:"timeout_ms"`
		Model     string `toml:"model"`
	} `toml:"ollama"`
	Embedding struct {
		Concurrency  int     `toml:"concurrency"`
		ChunkSize    int     `toml:"chunk_size"`
		ChunkOverlap float64 `toml:"chunk_overlap"`
	} `toml:"embedding"`
}

// Default returns the built-in default configuration (no file, no env).
func Default() *Config {
	return &Config{
		Project: "default",
		Ollama: OllamaConfig{
			BaseURL:         "http://localhost:11434",
			TimeoutMS:       60000,
			HealthTimeoutMS: 5000,
			Model:           "nomic-embed-text",
		},
		Embedding: EmbeddingConfig{
			Concurrency:  4,
			ChunkSize:    2000,
			ChunkOverlap: 0.15,
		},
	}
}

// Load resolves configuration from defaults, an optional TOML file at
// configPath (skipped if empty or missing), and environment variables, in
// that increasing precedence order. The HMAC secret is required; Load
// returns ErrNoSecret if it cannot be resolved.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			var f tomlFile
			meta, err := toml.DecodeFile(configPath, &f)
			if err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", configPath, err)
			}
			applyFile(cfg, f)
			cfg.ConfigFile = configPath
			for _, k := range meta.Undecoded() {
				applog.Warn("config", "unknown config key", map[string]any{"key": k.String()})
			}
		}
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, f tomlFile) {
	if f.VaultPath != "" {
		cfg.VaultPath = f.VaultPath
	}
	if f.Project != "" {
		cfg.Project = f.Project
	}
	if f.Ollama.BaseURL != "" {
		cfg.Ollama.BaseURL = f.Ollama.BaseURL
	}
	if f.Ollama.TimeoutMS != 0 {
		cfg.Ollama.TimeoutMS = f.Ollama.TimeoutMS
	}
	if f.Ollama.Model != "" {
		cfg.Ollama.Model = f.Ollama.Model
	}
	if f.Embedding.Concurrency != 0 {
		cfg.Embedding.Concurrency = f.Embedding.Concurrency
	}
	if f.Embedding.ChunkSize != 0 {
		cfg.Embedding.ChunkSize = f.Embedding.ChunkSize
	}
	if f.Embedding.ChunkOverlap != 0 {
		cfg.Embedding.ChunkOverlap = f.Embedding.ChunkOverlap
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("VAULT_PATH"); v != "" {
		cfg.VaultPath = validateVaultPath(v)
	}
	if v := os.Getenv("BRAIN_PROJECT"); v != "" {
		cfg.Project = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.Ollama.BaseURL = v
	}
	if v := os.Getenv("OLLAMA_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ollama.TimeoutMS = n
		}
	}
	if v := os.Getenv("OLLAMA_HEALTH_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ollama.HealthTimeoutMS = n
		}
	}
	if v := os.Getenv("EMBEDDING_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Concurrency = n
		}
	}
	cfg.Session.Secret = os.Getenv("BRAIN_SESSION_SECRET")
}

func validate(cfg *Config) error {
	if cfg.Session.Secret == "" {
		return ErrNoSecret
	}
	if cfg.Ollama.TimeoutMS < 1000 {
		return ErrBadTimeout
	}
	if cfg.Ollama.TimeoutMS > 300000 {
		applog.Warn("config", "OLLAMA_TIMEOUT_MS is unusually large", map[string]any{
			"timeout_ms": cfg.Ollama.TimeoutMS,
		})
	}
	if cfg.Embedding.Concurrency < 1 {
		cfg.Embedding.Concurrency = 1
	}
	if cfg.Embedding.Concurrency > 16 {
		cfg.Embedding.Concurrency = 16
	}
	return nil
}

// validateVaultPath rejects filesystem-root-adjacent vault paths and
// resolves symlinks before re-checking, so a symlink cannot redirect the
// vault onto a dangerous directory.
func validateVaultPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	dangerous := []string{"/", "/home", "/Users", "/tmp", "/var", "/etc", "/opt"}
	if runtime.GOOS == "windows" && len(abs) >= 3 {
		for _, letter := range "ABCDEFGHIJKLMNOPQRSTUVWXYZ" {
			dangerous = append(dangerous, string(letter)+":\\")
		}
	}
	for _, d := range dangerous {
		if abs == d {
			applog.Warn("config", "VAULT_PATH too broad, ignoring", map[string]any{"path": abs})
			return ""
		}
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return path
	}
	for _, d := range dangerous {
		if resolved == d {
			applog.Warn("config", "VAULT_PATH resolves to a dangerous path, ignoring", map[string]any{"path": abs, "resolved": resolved})
			return ""
		}
	}
	return path
}

// SafeSubpath resolves rel within root and ensures the result does not
// escape root via traversal, returning the absolute path and true, or
// "", false if it would escape.
func SafeSubpath(root, rel string) (string, bool) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	joined := filepath.Join(absRoot, rel)
	if joined != absRoot && !strings.HasPrefix(joined, absRoot+string(filepath.Separator)) {
		return "", false
	}
	return joined, true
}

// StatePath returns the path of the VectorStore's single-file database.
func (c *Config) StatePath() string {
	return filepath.Join(c.VaultPath, ".brain", "brain_embeddings.db")
}
