package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/conceptree/internal/conceptgraph"
	"github.com/abhisek/conceptree/internal/extraction"
	"github.com/abhisek/conceptree/internal/llm"
	"github.com/abhisek/conceptree/internal/logger"
	"github.com/abhisek/conceptree/internal/scoring"
	"github.com/abhisek/conceptree/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "conceptree",
	Short: "Prerequisite graph engine for concept mastery",
	Long: `conceptree keeps a shared catalog of concepts and their prerequisites,
tracks each learner's mastery of them, and unlocks concepts as their
prerequisites are mastered.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides CONCEPTREE_DB env var)")
	rootCmd.PersistentFlags().String("log", "", "Log mode: dev or prod (overrides CONCEPTREE_LOG_MODE env var)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(conceptCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(learnerCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then CONCEPTREE_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

// newLogger builds the process logger from --log, then CONCEPTREE_LOG_MODE.
func newLogger(cmd *cobra.Command) (*logger.Logger, error) {
	mode, _ := cmd.Flags().GetString("log")
	if mode == "" {
		mode = os.Getenv("CONCEPTREE_LOG_MODE")
	}
	if mode == "" {
		mode = "dev"
	}
	return logger.New(mode)
}

// engine bundles everything a command needs to work with the graph.
type engine struct {
	store *store.Store
	svc   *conceptgraph.Service
	log   *logger.Logger
}

func (e *engine) Close() {
	e.log.Sync()
	e.store.Close()
}

type engineOptions struct {
	// withLLM builds an LLM provider for extraction and verification.
	withLLM bool
}

// openEngine opens the store and builds the service. LLM configuration
// problems are reported on stderr and the engine falls back to offline
// collaborators.
func openEngine(cmd *cobra.Command, opts engineOptions) (*engine, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	cfg := conceptgraph.ConfigFromEnv()
	deps := conceptgraph.Deps{
		CatalogRepo: st.CatalogRepo(),
		LearnerRepo: st.LearnerRepo(),
		EventRepo:   st.EventRepo(),
		Extractor:   extraction.DocumentExtractor{},
		Logger:      log,
	}

	var heuristic *scoring.Heuristic
	if cfg.ScoreSeed != nil {
		heuristic = scoring.NewSeededHeuristic(*cfg.ScoreSeed)
	} else {
		heuristic = scoring.NewHeuristic(nil)
	}
	deps.Verifier = heuristic

	e := &engine{store: st, log: log}
	if opts.withLLM {
		provider, err := llm.NewProviderFromEnv(ctx, st.EventRepo(), log)
		if err != nil {
			fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
			fmt.Fprintln(os.Stderr, "Falling back to offline extraction and heuristic scoring.")
		} else {
			deps.Extractor = extraction.NewLLMExtractor(provider, extraction.DefaultConfig(), log)
			deps.Verifier = scoring.NewLLMVerifier(provider, heuristic, scoring.DefaultLLMVerifierConfig(), log)
		}
	}

	svc, issues, err := conceptgraph.New(ctx, cfg, deps)
	if err != nil {
		st.Close()
		return nil, err
	}
	if len(issues) > 0 {
		fmt.Fprintf(os.Stderr, "Catalog loaded with %d integrity issue(s); run `conceptree concept validate`.\n", len(issues))
	}
	e.svc = svc
	return e, nil
}
