package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/loriensleafs/brain/internal/search"
)

func searchCmd() *cobra.Command {
	var (
		limit     int
		threshold float64
		mode      string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Hybrid lexical+semantic search over the vault",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(strings.Join(args, " "), limit, threshold, mode)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of results (1-100)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.7, "Minimum similarity score for semantic results (0.0-1.0)")
	cmd.Flags().StringVar(&mode, "mode", "auto", "Search mode: auto, semantic, keyword")
	return cmd
}

func runSearch(query string, limit int, threshold float64, mode string) error {
	if strings.TrimSpace(query) == "" {
		return userError("empty search query", `provide a search term: brain search "your query"`)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	engine := search.New(d.notes, d.vectors, d.embed)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	results, err := engine.Search(ctx, query, search.Options{
		Limit:     limit,
		Threshold: threshold,
		Mode:      search.Mode(mode),
		Project:   cfg.Project,
	})
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("\n%d. %s [%s]\n", i+1, r.Title, r.Source)
		fmt.Printf("   %s\n", r.Permalink)
		fmt.Printf("   Score: %.3f\n", r.SimilarityScore)
		fmt.Printf("   %s\n", r.Snippet)
	}
	fmt.Println()
	return nil
}
