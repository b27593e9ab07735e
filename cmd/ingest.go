package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/conceptree/internal/conceptgraph"
	"github.com/abhisek/conceptree/internal/ui/theme"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Extract concepts from learning material and merge them into the catalog",
	Long: `ingest reads learning material from a file (or stdin when no file or "-"
is given), extracts concepts and prerequisite relationships, fills in missing
foundational concepts, and merges the result into the catalog.

With --offline the input must already be a structured YAML or JSON
extraction document; no LLM is contacted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		offline, _ := cmd.Flags().GetBool("offline")

		path := "-"
		if len(args) == 1 {
			path = args[0]
		}
		r, closeFn, err := openInput(path)
		if err != nil {
			return err
		}
		defer closeFn()
		text, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		e, err := openEngine(cmd, engineOptions{withLLM: !offline})
		if err != nil {
			return err
		}
		defer e.Close()

		report, err := e.svc.Ingest(cmd.Context(), conceptgraph.IngestRequest{
			Text:     string(text),
			Category: category,
		})
		if err != nil {
			return err
		}
		if asJSON(cmd) {
			return printJSON(report)
		}
		printIngest(report)
		return nil
	},
}

func printIngest(r *conceptgraph.IngestReport) {
	fmt.Println(theme.Title.Render("Ingested into " + orDash(r.Category)))
	if r.Summary != "" {
		fmt.Println(theme.Subtitle.Render(r.Summary))
	}
	fmt.Println()

	for _, c := range r.Created {
		fmt.Printf("  %s %s  %s\n", theme.Mastered.Render("+"), theme.ID.Render(c.ID), c.Title)
	}
	for _, id := range r.Existing {
		fmt.Printf("  %s %s\n", theme.Hint.Render("="), theme.ID.Render(id))
	}
	if len(r.Interpolated) > 0 {
		fmt.Println(theme.Hint.Render("  interpolated: " + strings.Join(r.Interpolated, ", ")))
	}
	for _, rel := range r.Relationships {
		fmt.Printf("  %s requires %s\n", theme.ID.Render(rel.ConceptID), theme.ID.Render(rel.Prerequisite))
	}
	for _, s := range r.Skipped {
		fmt.Println(theme.Warning.Render("  skipped: ") + s)
	}
	if r.LearningPath != "" {
		fmt.Println()
		fmt.Println(theme.Body.Render(r.LearningPath))
	}
	fmt.Println()
	printValidation(r.Validation)
}

func init() {
	ingestCmd.Flags().StringP("category", "c", "", "Category hint for extracted concepts")
	ingestCmd.Flags().Bool("offline", false, "Treat input as a structured extraction document instead of calling an LLM")
	ingestCmd.Flags().Bool("json", false, "Print machine-readable JSON")
}
