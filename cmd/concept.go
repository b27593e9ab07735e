package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/conceptree/internal/catalog"
	"github.com/abhisek/conceptree/internal/interpolate"
	"github.com/abhisek/conceptree/internal/ui/theme"
)

var conceptCmd = &cobra.Command{
	Use:     "concept",
	Aliases: []string{"concepts"},
	Short:   "Inspect and edit the shared concept catalog",
}

var conceptListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog concepts",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		query, _ := cmd.Flags().GetString("search")

		e, err := openEngine(cmd, engineOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		cat := e.svc.Catalog()
		var concepts []catalog.Concept
		switch {
		case query != "":
			concepts = cat.Search(query, category)
		case category != "":
			concepts = cat.ByCategory(category)
		default:
			concepts = cat.All()
		}
		if asJSON(cmd) {
			return printJSON(catalog.Summaries(concepts))
		}
		if len(concepts) == 0 {
			fmt.Println("No concepts found.")
			return nil
		}

		fmt.Printf("%-28s  %-32s  %-20s  %4s  %s\n", "ID", "Title", "Category", "Diff", "Prerequisites")
		fmt.Println(strings.Repeat("─", 100))
		for _, c := range concepts {
			fmt.Printf("%s  %-32s  %-20s  %4d  %s\n",
				theme.ID.Render(fmt.Sprintf("%-28s", truncate(c.ID, 28))),
				truncate(c.Title, 32),
				truncate(c.Category, 20),
				c.Difficulty,
				strings.Join(c.Prerequisites, ", "),
			)
		}
		fmt.Println(theme.Hint.Render(fmt.Sprintf("%d concept(s)", len(concepts))))
		return nil
	},
}

var conceptShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a concept with its prerequisites and dependents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd, engineOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		cat := e.svc.Catalog()
		c, err := cat.Get(args[0])
		if err != nil {
			return err
		}
		prereqs := catalog.Summaries(cat.Prerequisites(c.ID))
		dependents := catalog.Summaries(cat.Dependents(c.ID))
		if asJSON(cmd) {
			return printJSON(map[string]any{
				"concept":       c,
				"prerequisites": prereqs,
				"dependents":    dependents,
			})
		}

		var b strings.Builder
		b.WriteString(theme.Title.Render(c.Title) + "  " + theme.ID.Render(c.ID) + "\n")
		b.WriteString(theme.Subtitle.Render(fmt.Sprintf("%s · difficulty %d", orDash(c.Category), c.Difficulty)))
		if c.Fundamental {
			b.WriteString(theme.Subtitle.Render(" · fundamental"))
		}
		if c.Description != "" {
			b.WriteString("\n\n" + theme.Body.Render(c.Description))
		}
		b.WriteString("\n\n" + theme.Body.Render("Requires:   ") + summaryList(prereqs))
		b.WriteString("\n" + theme.Body.Render("Unlocks:    ") + summaryList(dependents))
		fmt.Println(theme.Card.Render(b.String()))
		return nil
	},
}

var conceptAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a concept to the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		desc, _ := cmd.Flags().GetString("description")
		category, _ := cmd.Flags().GetString("category")
		difficulty, _ := cmd.Flags().GetInt("difficulty")
		prereqs, _ := cmd.Flags().GetStringSlice("requires")
		fundamental, _ := cmd.Flags().GetBool("fundamental")

		title := strings.TrimSpace(args[0])
		if id == "" {
			id = interpolate.GenerateID(title)
		}

		e, err := openEngine(cmd, engineOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		c, created, err := e.svc.AddConcept(ctx, catalog.Concept{
			ID:          id,
			Title:       title,
			Description: desc,
			Category:    category,
			Difficulty:  difficulty,
			Fundamental: fundamental,
		})
		if err != nil {
			return err
		}
		if !created {
			fmt.Println(theme.Hint.Render(fmt.Sprintf("Concept %s already exists; left unchanged.", c.ID)))
		}
		for _, p := range prereqs {
			if err := e.svc.AddPrerequisite(ctx, c.ID, p); err != nil {
				return fmt.Errorf("link %s -> %s: %w", c.ID, p, err)
			}
		}
		if created {
			fmt.Printf("%s %s\n", theme.Mastered.Render("Added"), theme.ID.Render(c.ID))
		}
		return nil
	},
}

var conceptLinkCmd = &cobra.Command{
	Use:   "link <id> <prerequisite-id>",
	Short: "Make one concept a prerequisite of another",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd, engineOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.svc.AddPrerequisite(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s now requires %s\n", theme.ID.Render(args[0]), theme.ID.Render(args[1]))
		return nil
	},
}

var conceptUnlinkCmd = &cobra.Command{
	Use:   "unlink <id> <prerequisite-id>",
	Short: "Remove a prerequisite edge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd, engineOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.svc.RemovePrerequisite(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s no longer requires %s\n", theme.ID.Render(args[0]), theme.ID.Render(args[1]))
		return nil
	},
}

var conceptRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a concept and every edge that references it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd, engineOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		detached, err := e.svc.RemoveConcept(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", theme.Warning.Render("Removed"), theme.ID.Render(args[0]))
		if len(detached) > 0 {
			fmt.Println(theme.Hint.Render("Detached from: " + strings.Join(detached, ", ")))
		}
		return nil
	},
}

var conceptPathCmd = &cobra.Command{
	Use:   "path <id>",
	Short: "Show the ordered learning path to a concept",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd, engineOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		path, err := e.svc.GetLearningPath(args[0])
		if err != nil {
			return err
		}
		if asJSON(cmd) {
			return printJSON(path)
		}
		for i, p := range path {
			fmt.Printf("%3d. %s  %s\n", i+1, theme.ID.Render(p.ID), p.Title)
		}
		return nil
	},
}

var conceptCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List categories and their concept trees",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd, engineOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		cat := e.svc.Catalog()
		categories := cat.Categories()
		if len(args) == 1 {
			categories = []string{args[0]}
		}
		for _, category := range categories {
			fmt.Println(theme.Title.Render(category))
			for _, entry := range cat.CategoryTree(category) {
				fmt.Printf("  %s  %s\n", theme.ID.Render(entry.Concept.ID), theme.Hint.Render("← "+summaryList(entry.Prerequisites)))
			}
		}
		return nil
	},
}

var conceptValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Break prerequisite cycles and repair difficulty ordering",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd, engineOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		report, err := e.svc.ValidateCatalog(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON(cmd) {
			return printJSON(report)
		}
		printValidation(report)
		return nil
	},
}

var conceptExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the catalog as a YAML document",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")

		e, err := openEngine(cmd, engineOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		var w io.Writer = os.Stdout
		if out != "" && out != "-" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			defer f.Close()
			w = f
		}
		return e.svc.ExportCatalog(w)
	},
}

var conceptImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge a YAML catalog document into the catalog (use - for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, closeFn, err := openInput(args[0])
		if err != nil {
			return err
		}
		defer closeFn()

		e, err := openEngine(cmd, engineOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		report, err := e.svc.ImportCatalog(cmd.Context(), r)
		if err != nil {
			return err
		}
		if asJSON(cmd) {
			return printJSON(report)
		}
		fmt.Printf("Created %d, existing %d, edges added %d\n", len(report.Created), len(report.Existing), report.Edges)
		for _, s := range report.Skipped {
			fmt.Println(theme.Warning.Render("skipped: ") + s)
		}
		printValidation(report.Validation)
		return nil
	},
}

func printValidation(report catalog.ValidationReport) {
	if !report.HasIssues() {
		fmt.Println(theme.Mastered.Render(fmt.Sprintf("Catalog OK (%d concepts)", report.TotalConcepts)))
		return
	}
	for _, is := range report.Issues {
		fmt.Printf("%s %s\n", theme.Warning.Render(string(is.Kind)), is.Message)
	}
	for _, f := range report.Fixes {
		fmt.Printf("%s %s difficulty %d -> %d\n", theme.Available.Render("fixed"), f.ConceptID, f.OldDifficulty, f.NewDifficulty)
	}
}

func summaryList(ss []catalog.ConceptSummary) string {
	if len(ss) == 0 {
		return theme.Hint.Render("none")
	}
	ids := make([]string, len(ss))
	for i, s := range ss {
		ids[i] = s.ID
	}
	return strings.Join(ids, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// openInput opens path for reading, treating "-" as stdin.
func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

func asJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	conceptCmd.PersistentFlags().Bool("json", false, "Print machine-readable JSON")

	conceptListCmd.Flags().StringP("category", "c", "", "Only list concepts in this category")
	conceptListCmd.Flags().StringP("search", "s", "", "Filter by title or description")

	conceptAddCmd.Flags().String("id", "", "Concept id (default: derived from the title)")
	conceptAddCmd.Flags().StringP("description", "d", "", "Concept description")
	conceptAddCmd.Flags().StringP("category", "c", "", "Concept category")
	conceptAddCmd.Flags().Int("difficulty", 1, "Difficulty level (1-10)")
	conceptAddCmd.Flags().StringSliceP("requires", "r", nil, "Prerequisite concept ids")
	conceptAddCmd.Flags().Bool("fundamental", false, "Mark as a fundamental concept")

	conceptExportCmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")

	conceptCmd.AddCommand(conceptListCmd)
	conceptCmd.AddCommand(conceptShowCmd)
	conceptCmd.AddCommand(conceptAddCmd)
	conceptCmd.AddCommand(conceptLinkCmd)
	conceptCmd.AddCommand(conceptUnlinkCmd)
	conceptCmd.AddCommand(conceptRemoveCmd)
	conceptCmd.AddCommand(conceptPathCmd)
	conceptCmd.AddCommand(conceptCategoriesCmd)
	conceptCmd.AddCommand(conceptValidateCmd)
	conceptCmd.AddCommand(conceptExportCmd)
	conceptCmd.AddCommand(conceptImportCmd)
}
