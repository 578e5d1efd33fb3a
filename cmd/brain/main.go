// Package main is the entrypoint for the brain CLI: the few commands that
// are part of the core per spec.md §6 (embed, session, search, analyze).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loriensleafs/brain/internal/applog"
	"github.com/loriensleafs/brain/internal/config"
	"github.com/loriensleafs/brain/internal/embedding"
	"github.com/loriensleafs/brain/internal/notestore"
	"github.com/loriensleafs/brain/internal/notestore/filestore"
	"github.com/loriensleafs/brain/internal/vectorstore"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	vaultFlag   string
	projectFlag string
	configFlag  string
	verboseFlag bool
)

// brainError pairs a user-facing message with a corrective hint, in the
// teacher's sameError style.
type brainError struct {
	message string
	hint    string
}

func (e *brainError) Error() string {
	if e.hint == "" {
		return e.message
	}
	return fmt.Sprintf("%s\n  Hint: %s", e.message, e.hint)
}

func userError(message, hint string) error {
	return &brainError{message: message, hint: hint}
}

func main() {
	root := &cobra.Command{
		Use:   "brain",
		Short: "Local, file-backed knowledge engine: embeddings, hybrid search, sessions",
		Long: `brain is the core knowledge engine of a personal/agent-facing memory
system: a chunked vector-embedding index over a markdown note store, hybrid
semantic+lexical search, and a signed, optimistically-locked session store.`,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		SilenceUsage:      true,
	}

	root.PersistentFlags().StringVar(&vaultFlag, "vault", "", "Vault root directory (overrides VAULT_PATH)")
	root.PersistentFlags().StringVar(&projectFlag, "project", "", "Project identifier (overrides BRAIN_PROJECT)")
	root.PersistentFlags().StringVar(&configFlag, "config", "", "Path to a brain.toml config file")
	root.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose structured logging")

	root.AddCommand(versionCmd())
	root.AddCommand(embedCmd())
	root.AddCommand(sessionCmd())
	root.AddCommand(searchCmd())
	root.AddCommand(analyzeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the brain version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("brain %s\n", Version)
			return nil
		},
	}
}

// loadConfig resolves configuration, applying --vault/--project as the
// highest-precedence overrides (above the environment, by setting it before
// config.Load reads it).
func loadConfig() (*config.Config, error) {
	if vaultFlag != "" {
		os.Setenv("VAULT_PATH", vaultFlag)
	}
	if projectFlag != "" {
		os.Setenv("BRAIN_PROJECT", projectFlag)
	}
	cfg, err := config.Load(configFlag)
	if err != nil {
		if err == config.ErrNoSecret {
			return nil, userError(err.Error(), "export BRAIN_SESSION_SECRET=<a long random string>")
		}
		return nil, err
	}
	if cfg.VaultPath == "" {
		return nil, userError("no vault found", "pass --vault <path> or set VAULT_PATH")
	}

	level := applog.InfoLevel
	if verboseFlag {
		level = applog.DebugLevel
	}
	applog.Init(applog.Config{Level: level})
	return cfg, nil
}

// deps bundles the collaborators most commands need: the NoteStore
// (notestore.Store, here the file-backed adapter), the VectorStore, and the
// embedding client.
type deps struct {
	cfg     *config.Config
	notes   notestore.Store
	vectors *vectorstore.Store
	embed   embedding.Client
}

func (d *deps) Close() {
	if d.vectors != nil {
		d.vectors.Close()
	}
}

// buildDepsNoteStoreOnly opens just the NoteStore, for commands (session,
// analyze) that never touch the embedding service or VectorStore.
func buildDepsNoteStoreOnly(cfg *config.Config) (notestore.Store, error) {
	notes, err := filestore.Open(cfg.VaultPath)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	return notes, nil
}

func buildDeps(cfg *config.Config) (*deps, error) {
	notes, err := filestore.Open(cfg.VaultPath)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}

	embedClient, err := embedding.New(embedding.Config{
		BaseURL:         cfg.Ollama.BaseURL,
		Model:           cfg.Ollama.Model,
		TimeoutMS:       cfg.Ollama.TimeoutMS,
		HealthTimeoutMS: cfg.Ollama.HealthTimeoutMS,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding client: %w", err)
	}

	vectors, err := vectorstore.Open(cfg.StatePath(), embedClient.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("open vectorstore: %w", err)
	}

	return &deps{cfg: cfg, notes: notes, vectors: vectors, embed: embedClient}, nil
}
