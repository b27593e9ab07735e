package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/abhisek/conceptree/internal/llm"
	"github.com/abhisek/conceptree/internal/store"
	"github.com/abhisek/conceptree/internal/ui/theme"
)

const timeLayout = "2006-01-02 15:04:05"

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect recorded LLM extraction and verification calls",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM events, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		failed, _ := cmd.Flags().GetBool("failed")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		// Filters apply after the query, so over-fetch when filtering.
		opts := store.QueryOpts{Limit: limit}
		if purpose != "" || failed {
			opts.Limit = 0
		}
		events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		var shown []store.LLMEvent
		for _, e := range events {
			if (purpose != "" && e.Purpose != purpose) || (failed && e.Success) {
				continue
			}
			shown = append(shown, e)
			if limit > 0 && len(shown) == limit {
				break
			}
		}
		if asJSON(cmd) {
			return printJSON(shown)
		}
		if len(shown) == 0 {
			fmt.Println(theme.Hint.Render("No LLM events found."))
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTIME\tPURPOSE\tMODEL\tIN\tOUT\tMS\tOK")
		for _, e := range shown {
			ok := theme.Mastered.Render("✓")
			if !e.Success {
				ok = theme.Warning.Render("✗")
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				e.ID, e.Timestamp.Local().Format(timeLayout), e.Purpose, truncate(e.Model, 32),
				e.InputTokens, e.OutputTokens, e.LatencyMs, ok)
		}
		return tw.Flush()
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the full request and response of one LLM event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid event id %q", args[0])
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}
		if asJSON(cmd) {
			return printJSON(e)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%s  %s\n", theme.Title.Render(fmt.Sprintf("Event %d", e.ID)), theme.Subtitle.Render(e.Timestamp.Local().Format(timeLayout)))
		fmt.Fprintf(&b, "%s/%s · %s\n", e.Provider, e.Model, e.Purpose)
		fmt.Fprintf(&b, "%d in / %d out tokens · %dms", e.InputTokens, e.OutputTokens, e.LatencyMs)
		if cost := llm.LookupCost(e.Model); cost != nil {
			fmt.Fprintf(&b, " · %s", formatCost(cost.Cost(e.InputTokens, e.OutputTokens)))
		}
		if e.ErrorMessage != "" {
			fmt.Fprintf(&b, "\n%s %s", theme.Warning.Render("failed:"), e.ErrorMessage)
		}
		fmt.Println(theme.Card.Render(b.String()))

		printSection("REQUEST", e.RequestBody)
		printSection("RESPONSE", e.ResponseBody)
		return nil
	},
}

// usageRow is one line of `llm stats`.
type usageRow struct {
	Key          string   `json:"key"`
	Calls        int      `json:"calls"`
	InputTokens  int      `json:"input_tokens"`
	OutputTokens int      `json:"output_tokens"`
	AvgLatencyMs int64    `json:"avg_latency_ms,omitempty"`
	CostUSD      *float64 `json:"cost_usd,omitempty"`
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage per purpose and estimated cost per model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		byPurpose, err := s.EventRepo().LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		byModel, err := s.EventRepo().LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}

		purposes := make([]usageRow, len(byPurpose))
		for i, u := range byPurpose {
			purposes[i] = usageRow{Key: u.Purpose, Calls: u.Calls, InputTokens: u.InputTokens, OutputTokens: u.OutputTokens, AvgLatencyMs: u.AvgLatencyMs}
		}
		models := make([]usageRow, len(byModel))
		var total float64
		var unpriced []string
		for i, u := range byModel {
			models[i] = usageRow{Key: u.Model, Calls: u.Calls, InputTokens: u.InputTokens, OutputTokens: u.OutputTokens}
			if cost := llm.LookupCost(u.Model); cost != nil {
				c := cost.Cost(u.InputTokens, u.OutputTokens)
				models[i].CostUSD = &c
				total += c
			} else {
				unpriced = append(unpriced, u.Model)
			}
		}

		if asJSON(cmd) {
			return printJSON(map[string]any{"purposes": purposes, "models": models, "total_cost_usd": total})
		}
		if len(purposes) == 0 {
			fmt.Println(theme.Hint.Render("No LLM usage recorded yet."))
			return nil
		}

		fmt.Println(theme.Title.Render("Usage by purpose"))
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "PURPOSE\tCALLS\tINPUT\tOUTPUT\tAVG MS\t")
		var calls, in, out int
		for _, r := range purposes {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t\n", r.Key, r.Calls, r.InputTokens, r.OutputTokens, r.AvgLatencyMs)
			calls, in, out = calls+r.Calls, in+r.InputTokens, out+r.OutputTokens
		}
		fmt.Fprintf(tw, "total\t%d\t%d\t%d\t\t\n", calls, in, out)
		if err := tw.Flush(); err != nil {
			return err
		}

		fmt.Println()
		fmt.Println(theme.Title.Render("Estimated cost (USD)"))
		tw = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "MODEL\tCALLS\tINPUT\tOUTPUT\tCOST\t")
		for _, r := range models {
			cost := "?"
			if r.CostUSD != nil {
				cost = formatCost(*r.CostUSD)
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t\n", truncate(r.Key, 40), r.Calls, r.InputTokens, r.OutputTokens, cost)
		}
		label := "total"
		if len(unpriced) > 0 {
			label = "total (partial)"
		}
		fmt.Fprintf(tw, "%s\t\t\t\t%s\t\n", label, formatCost(total))
		if err := tw.Flush(); err != nil {
			return err
		}
		if len(unpriced) > 0 {
			fmt.Println(theme.Hint.Render("No pricing for: " + strings.Join(unpriced, ", ")))
		}
		return nil
	},
}

// openStore opens the database without loading the catalog.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

func printSection(title, body string) {
	if body == "" {
		body = theme.Hint.Render("(not captured)")
	}
	fmt.Printf("\n%s\n%s\n", theme.Subtitle.Render("── "+title+" "+strings.Repeat("─", max(0, 56-len(title)))), body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmCmd.PersistentFlags().Bool("json", false, "Print machine-readable JSON")

	llmListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Only show this purpose (concept-extraction, explanation-verify)")
	llmListCmd.Flags().Bool("failed", false, "Only show failed calls")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
