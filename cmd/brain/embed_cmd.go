package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/loriensleafs/brain/internal/chunker"
	"github.com/loriensleafs/brain/internal/pipeline"
)

func embedCmd() *cobra.Command {
	var (
		limit int
		force bool
	)
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Generate embeddings for notes missing from the index (or all, with --force)",
		Long: `embed brings the VectorStore into agreement with the NoteStore: by
default it only processes notes that have no embedding rows yet; --force
re-embeds every note under --project regardless of what is already indexed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmbed(limit, force)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of notes to process (0 = no limit)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-embed every note, not just missing ones")
	return cmd
}

func runEmbed(limit int, force bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	pipe := pipeline.New(d.notes, d.vectors, d.embed, pipeline.Config{
		Concurrency: cfg.Embedding.Concurrency,
		ChunkConfig: chunker.Config{
			TargetSize:  cfg.Embedding.ChunkSize,
			OverlapFrac: cfg.Embedding.ChunkOverlap,
		},
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := d.embed.Health(ctx); err != nil {
		return fmt.Errorf("embedding service unreachable: %w", err)
	}

	identifiers, err := selectIdentifiers(d, cfg.Project, force)
	if err != nil {
		return fmt.Errorf("list notes: %w", err)
	}
	if limit > 0 && len(identifiers) > limit {
		identifiers = identifiers[:limit]
	}
	if len(identifiers) == 0 {
		fmt.Println("Nothing to embed — index is already current.")
		return nil
	}

	fmt.Printf("Embedding %d note(s)...\n", len(identifiers))
	results := pipe.ProcessMany(ctx, identifiers, cfg.Embedding.Concurrency)

	failures := 0
	for _, r := range results {
		if r.Err != nil {
			failures++
			fmt.Printf("  FAILED %s: %v\n", r.Identifier, r.Err)
		} else {
			fmt.Printf("  ok     %s\n", r.Identifier)
		}
	}
	fmt.Printf("%d succeeded, %d failed\n", len(results)-failures, failures)
	if failures > 0 {
		return userError(fmt.Sprintf("%d note(s) failed to embed", failures), "re-run 'brain embed' to retry the failures")
	}
	return nil
}

func selectIdentifiers(d *deps, project string, force bool) ([]string, error) {
	entries, err := d.notes.ListDirectory(project, 0, "")
	if err != nil {
		return nil, err
	}

	var indexedSet map[string]bool
	if !force {
		indexed, err := d.vectors.IterEntities()
		if err != nil {
			return nil, err
		}
		indexedSet = make(map[string]bool, len(indexed))
		for _, id := range indexed {
			indexedSet[id] = true
		}
	}

	var out []string
	for _, e := range entries {
		if e.Kind != "file" {
			continue
		}
		if !force && indexedSet[e.Permalink] {
			continue
		}
		out = append(out, e.Permalink)
	}
	return out, nil
}
