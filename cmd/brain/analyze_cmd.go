package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loriensleafs/brain/internal/importer"
	"github.com/loriensleafs/brain/internal/pipeline"
)

func analyzeCmd() *cobra.Command {
	var (
		mode         string
		sourcePath   string
		sourceSchema string
		preview      bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Conform existing notes to the target schema, or import a foreign markdown tree",
		Long: `analyze --project P [--preview] audits notes under --project against the
target schema and reports conformance issues (pass --preview for a grouped
dry-run of the auto-fixable ones, without writing anything).

analyze --mode import --source-path P [--source-schema S] parses every
markdown file under P, classifies it, extracts observations and relations,
and writes target-schema notes for it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch mode {
			case "", "conform":
				return runConform(preview)
			case "import":
				if sourcePath == "" {
					return userError("--source-path is required for --mode import", "brain analyze --mode import --source-path <dir>")
				}
				return runImport(sourcePath, sourceSchema)
			default:
				return userError(fmt.Sprintf("unknown analyze mode %q", mode), "use --mode conform (default) or --mode import")
			}
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "conform", "conform or import")
	cmd.Flags().StringVar(&sourcePath, "source-path", "", "Root of the foreign markdown tree to import")
	cmd.Flags().StringVar(&sourceSchema, "source-schema", "", "Name of the source schema dialect (informational)")
	cmd.Flags().BoolVar(&preview, "preview", false, "Show a grouped dry-run of auto-fixable issues instead of reporting raw issues")
	return cmd
}

func runConform(preview bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	notes, err := buildDepsNoteStoreOnly(cfg)
	if err != nil {
		return err
	}
	engine := importer.New(notes, nil)

	issues, err := engine.Conform(cfg.Project)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		fmt.Println("No conformance issues found.")
		return nil
	}

	if preview {
		p := importer.BuildPreview(issues)
		printPlans("Renames", p.Renames)
		printPlans("Restructures", p.Restructures)
		printPlans("Moves", p.Moves)
		if len(p.Conflicts) > 0 {
			fmt.Println("\nConflicts (multiple sources resolve to the same target):")
			printPlans("", p.Conflicts)
		}
	} else {
		for _, iss := range issues {
			fixable := ""
			if iss.AutoFixable {
				fixable = " (auto-fixable)"
			}
			fmt.Printf("%s: %s%s — %s\n", iss.Permalink, iss.Kind, fixable, iss.Description)
		}
	}
	return userError(fmt.Sprintf("%d conformance issue(s) found", len(issues)), "run with --preview to see the proposed fixes")
}

func printPlans(label string, plans []importer.Plan) {
	if len(plans) == 0 {
		return
	}
	if label != "" {
		fmt.Printf("\n%s:\n", label)
	}
	for _, p := range plans {
		fmt.Printf("  %s: %s -> %s\n", p.Action, p.From, p.To)
	}
}

func runImport(sourcePath, sourceSchema string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	notes, err := buildDepsNoteStoreOnly(cfg)
	if err != nil {
		return err
	}

	var pipe *pipeline.Pipeline // nil: import does not trigger embedding from the CLI path

	engine := importer.New(notes, pipe)

	sources, err := collectMarkdown(sourcePath)
	if err != nil {
		return fmt.Errorf("walk %s: %w", sourcePath, err)
	}
	if len(sources) == 0 {
		return userError(fmt.Sprintf("no markdown files found under %s", sourcePath), "")
	}
	if sourceSchema != "" {
		fmt.Printf("Importing %d file(s) from %s (schema %s)...\n", len(sources), sourcePath, sourceSchema)
	} else {
		fmt.Printf("Importing %d file(s) from %s...\n", len(sources), sourcePath)
	}

	results := engine.Import(context.Background(), sources)

	failures := 0
	for _, r := range results {
		if r.Err != nil {
			failures++
			fmt.Printf("  FAILED %s: %v\n", r.SourcePath, r.Err)
		} else {
			fmt.Printf("  ok     %s -> %s\n", r.SourcePath, r.Permalink)
		}
	}
	fmt.Printf("%d succeeded, %d failed\n", len(results)-failures, failures)
	if failures > 0 {
		return userError(fmt.Sprintf("%d file(s) failed to import", failures), "")
	}
	return nil
}

// collectMarkdown enumerates .md files under root, excluding hidden
// directories and node_modules, per spec.md §4.8 step 1.
func collectMarkdown(root string) (map[string]string, error) {
	sources := map[string]string{}
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if name != "." && (strings.HasPrefix(name, ".") || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".md" {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		sources[filepath.ToSlash(rel)] = string(raw)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sources, nil
}
