package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/conceptree/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the concept graph HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(ctx)

		offline, _ := cmd.Flags().GetBool("offline")
		e, err := openEngine(cmd, engineOptions{withLLM: !offline})
		if err != nil {
			return err
		}
		defer e.Close()

		cfg := server.DefaultConfig()
		if addr := os.Getenv("CONCEPTREE_ADDR"); addr != "" {
			cfg.Addr = addr
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}
		interval, _ := cmd.Flags().GetDuration("validate-interval")

		srv := server.New(cfg, e.svc, e.log)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Run(gctx)
		})
		if interval > 0 {
			g.Go(func() error {
				return validateEvery(gctx, e, interval)
			})
		}
		return g.Wait()
	},
}

// validateEvery re-validates the catalog on a fixed interval until ctx ends.
func validateEvery(ctx context.Context, e *engine, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			report, err := e.svc.ValidateCatalog(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("periodic validation: %w", err)
			}
			if report.HasIssues() {
				e.log.Warn("periodic validation repaired catalog",
					"issues", len(report.Issues), "removed_edges", len(report.RemovedEdges))
			}
		}
	}
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides CONCEPTREE_ADDR, default "+server.DefaultAddr+")")
	serveCmd.Flags().Bool("offline", false, "Skip LLM configuration and use offline extraction and heuristic scoring")
	serveCmd.Flags().Duration("validate-interval", 0, "Re-validate the catalog on this interval (0 disables)")
}
