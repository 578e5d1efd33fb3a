package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"VAULT_PATH", "BRAIN_PROJECT", "OLLAMA_BASE_URL",
		"OLLAMA_TIMEOUT_MS", "OLLAMA_HEALTH_TIMEOUT_MS", "EMBEDDING_CONCURRENCY",
		"BRAIN_SESSION_SECRET"} {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	clearEnv(t)
	_, err := Load("")
	require.ErrorIs(t, err, ErrNoSecret)
}

func TestLoadDefaultsAndEnvOverride(t *testing.T) {
	clearEnv(t)
	os.Setenv("BRAIN_SESSION_SECRET", "s3cr3t")
	os.Setenv("EMBEDDING_CONCURRENCY", "99")
	os.Setenv("OLLAMA_TIMEOUT_MS", "2000")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	require.Equal(t, 16, cfg.Embedding.Concurrency) // clamped from 99
	require.Equal(t, 2000, cfg.Ollama.TimeoutMS)
}

func TestLoadRejectsTinyTimeout(t *testing.T) {
	clearEnv(t)
	os.Setenv("BRAIN_SESSION_SECRET", "s3cr3t")
	os.Setenv("OLLAMA_TIMEOUT_MS", "10")
	_, err := Load("")
	require.ErrorIs(t, err, ErrBadTimeout)
}

func TestLoadTOMLFile(t *testing.T) {
	clearEnv(t)
	os.Setenv("BRAIN_SESSION_SECRET", "s3cr3t")

	dir := t.TempDir()
	path := filepath.Join(dir, "brain.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
project = "myproj"
[ollama]
base_url = "http://localhost:9999"
[embedding]
concurrency = 2
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "myproj", cfg.Project)
	require.Equal(t, "http://localhost:9999", cfg.Ollama.BaseURL)
	require.Equal(t, 2, cfg.Embedding.Concurrency)
}

func TestSafeSubpathRejectsEscape(t *testing.T) {
	root := t.TempDir()
	_, ok := SafeSubpath(root, "../../etc/passwd")
	require.False(t, ok)
	p, ok := SafeSubpath(root, "notes/a.md")
	require.True(t, ok)
	require.Equal(t, filepath.Join(root, "notes", "a.md"), p)
}
