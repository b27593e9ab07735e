package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/conceptree/internal/catalog"
	"github.com/abhisek/conceptree/internal/mastery"
	"github.com/abhisek/conceptree/internal/ui/components"
	"github.com/abhisek/conceptree/internal/ui/theme"
)

var learnerCmd = &cobra.Command{
	Use:   "learner",
	Short: "Track a learner's mastery of catalog concepts",
}

var learnerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the learner's status on every concept",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd, engineOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		states, err := e.svc.LearnerStates(cmd.Context(), learnerID(cmd))
		if err != nil {
			return err
		}
		if asJSON(cmd) {
			return printJSON(states)
		}
		cat := e.svc.Catalog()
		for _, st := range states {
			title := st.ConceptID
			if c, err := cat.Get(st.ConceptID); err == nil {
				title = c.Title
			}
			fmt.Printf("%-14s  %s  %-32s  %s\n",
				theme.Status(string(st.Status)), theme.ID.Render(fmt.Sprintf("%-28s", truncate(st.ConceptID, 28))),
				truncate(title, 32), scoreText(st.BestScore, st.Attempts))
		}
		return nil
	},
}

var learnerAvailableCmd = &cobra.Command{
	Use:   "available",
	Short: "List concepts the learner can work on now",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd, engineOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		concepts, err := e.svc.GetAvailableConcepts(cmd.Context(), learnerID(cmd))
		if err != nil {
			return err
		}
		if asJSON(cmd) {
			return printJSON(catalog.Summaries(concepts))
		}
		if len(concepts) == 0 {
			fmt.Println("Nothing available right now.")
			return nil
		}
		for _, c := range concepts {
			fmt.Printf("%s  %s  %s\n", theme.Status(string(mastery.StatusAvailable)), theme.ID.Render(c.ID), c.Title)
		}
		return nil
	},
}

var learnerPathCmd = &cobra.Command{
	Use:   "path <concept-id>",
	Short: "Show the learning path to a concept with the learner's progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd, engineOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		steps, err := e.svc.GetLearnerPath(cmd.Context(), learnerID(cmd), args[0])
		if err != nil {
			return err
		}
		if asJSON(cmd) {
			return printJSON(steps)
		}
		for i, s := range steps {
			fmt.Printf("%3d. %-14s  %s  %s\n", i+1, theme.Status(string(s.Status)), theme.ID.Render(s.ID), s.Title)
		}
		return nil
	},
}

var learnerScoreCmd = &cobra.Command{
	Use:   "score <concept-id> <score>",
	Short: "Record a score (0-100) for a concept",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid score %q: %w", args[1], err)
		}

		e, err := openEngine(cmd, engineOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := e.svc.RecordScore(cmd.Context(), learnerID(cmd), args[0], score)
		if err != nil {
			return err
		}
		if asJSON(cmd) {
			return printJSON(res)
		}
		printUnlock(res)
		return nil
	},
}

var learnerExplainCmd = &cobra.Command{
	Use:   "explain <concept-id> <explanation...>",
	Short: "Submit an explanation of a concept for grading",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		offline, _ := cmd.Flags().GetBool("offline")

		e, err := openEngine(cmd, engineOptions{withLLM: !offline})
		if err != nil {
			return err
		}
		defer e.Close()

		explanation := strings.Join(args[1:], " ")
		res, err := e.svc.SubmitExplanation(cmd.Context(), learnerID(cmd), args[0], explanation)
		if err != nil {
			return err
		}
		if asJSON(cmd) {
			return printJSON(res)
		}

		v := res.Verdict
		var b strings.Builder
		b.WriteString(theme.Title.Render(fmt.Sprintf("Score %d", v.Score)))
		b.WriteString(theme.Hint.Render("  graded by " + v.Verifier))
		if v.Fallback {
			b.WriteString(theme.Warning.Render("  (fallback)"))
		}
		if v.Feedback != "" {
			b.WriteString("\n\n" + theme.Body.Render(v.Feedback))
		}
		for _, s := range v.Strengths {
			b.WriteString("\n" + theme.Mastered.Render("+ ") + s)
		}
		for _, s := range v.Improvements {
			b.WriteString("\n" + theme.Available.Render("- ") + s)
		}
		fmt.Println(theme.Card.Render(b.String()))
		printUnlock(res.Result)
		return nil
	},
}

var learnerStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show progress totals overall and per category",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd, engineOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		stats, err := e.svc.Stats(cmd.Context(), learnerID(cmd))
		if err != nil {
			return err
		}
		if asJSON(cmd) {
			return printJSON(stats)
		}

		fmt.Println(theme.Title.Render("Progress for " + stats.LearnerID))
		overall := components.MasteryBar{Label: "Overall", Mastered: stats.Mastered, Available: stats.Available, Locked: stats.Locked, Width: 60}
		fmt.Println(overall.View())
		fmt.Println(theme.Subtitle.Render(fmt.Sprintf("%d mastered · %d available · %d locked · %d attempts · avg best %.1f",
			stats.Mastered, stats.Available, stats.Locked, stats.TotalAttempts, stats.AverageBestScore)))
		fmt.Println()
		for _, c := range stats.Categories {
			bar := components.MasteryBar{
				Label:     fmt.Sprintf("%-20s", truncate(orDash(c.Category), 20)),
				Mastered:  c.Mastered,
				Available: c.Available,
				Locked:    c.Total - c.Mastered - c.Available,
				Width:     60,
			}
			fmt.Println(bar.View())
		}
		return nil
	},
}

var learnerExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the learner's progress as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd, engineOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		exp, err := e.svc.ExportLearner(cmd.Context(), learnerID(cmd))
		if err != nil {
			return err
		}
		return printJSON(exp)
	},
}

var learnerImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Restore progress from a JSON export (use - for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, closeFn, err := openInput(args[0])
		if err != nil {
			return err
		}
		defer closeFn()

		var data mastery.LearnerExport
		if err := json.NewDecoder(r).Decode(&data); err != nil {
			return fmt.Errorf("decode export: %w", err)
		}

		e, err := openEngine(cmd, engineOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := e.svc.ImportLearner(cmd.Context(), learnerID(cmd), &data)
		if err != nil {
			return err
		}
		if asJSON(cmd) {
			return printJSON(res)
		}
		fmt.Printf("Imported %d concept(s)\n", len(res.Imported))
		for _, f := range res.Failed {
			fmt.Printf("%s %s: %s\n", theme.Warning.Render("failed"), f.ConceptID, f.Reason)
		}
		return nil
	},
}

var learnerResetCmd = &cobra.Command{
	Use:   "reset [concept-id]",
	Short: "Reset the learner's progress on one concept, or on everything",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conceptID := ""
		if len(args) == 1 {
			conceptID = args[0]
		}

		e, err := openEngine(cmd, engineOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		ts, err := e.svc.ResetLearner(cmd.Context(), learnerID(cmd), conceptID)
		if err != nil {
			return err
		}
		if len(ts) == 0 {
			fmt.Println("Nothing to reset.")
			return nil
		}
		for _, t := range ts {
			fmt.Printf("%s  %s -> %s\n", theme.ID.Render(t.ConceptID), theme.Status(string(t.From)), theme.Status(string(t.To)))
		}
		return nil
	},
}

func printUnlock(res *mastery.UnlockResult) {
	if res == nil {
		return
	}
	fmt.Printf("%s  %s  score %d (best %s, threshold %d)\n",
		theme.Status(string(res.Status)), theme.ID.Render(res.ConceptID), res.Score, scoreText(res.BestScore, res.Attempts), res.Threshold)
	if res.Delta != nil {
		fmt.Println(theme.Hint.Render(fmt.Sprintf("  %+d vs previous best %d", res.Delta.Delta, res.Delta.PreviousBest)))
	}
	if res.Feedback != "" {
		fmt.Println(theme.Body.Render("  " + res.Feedback))
	}
	for _, u := range res.Unlocked {
		fmt.Printf("  %s %s  %s\n", theme.Available.Render("unlocked"), theme.ID.Render(u.ID), u.Title)
	}
}

func scoreText(best *int, attempts int) string {
	if best == nil {
		return theme.Hint.Render("no attempts")
	}
	return fmt.Sprintf("%d after %d attempt(s)", *best, attempts)
}

func learnerID(cmd *cobra.Command) string {
	id, _ := cmd.Flags().GetString("learner")
	return id
}

func init() {
	defaultLearner := os.Getenv("CONCEPTREE_LEARNER")
	if defaultLearner == "" {
		defaultLearner = "default"
	}
	learnerCmd.PersistentFlags().StringP("learner", "l", defaultLearner, "Learner id (default from CONCEPTREE_LEARNER)")
	learnerCmd.PersistentFlags().Bool("json", false, "Print machine-readable JSON")
	learnerExplainCmd.Flags().Bool("offline", false, "Grade with the offline heuristic instead of an LLM")

	learnerCmd.AddCommand(learnerStatusCmd)
	learnerCmd.AddCommand(learnerAvailableCmd)
	learnerCmd.AddCommand(learnerPathCmd)
	learnerCmd.AddCommand(learnerScoreCmd)
	learnerCmd.AddCommand(learnerExplainCmd)
	learnerCmd.AddCommand(learnerStatsCmd)
	learnerCmd.AddCommand(learnerExportCmd)
	learnerCmd.AddCommand(learnerImportCmd)
	learnerCmd.AddCommand(learnerResetCmd)
}
