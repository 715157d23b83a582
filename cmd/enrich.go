package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pantry-labs/enrich-cli/internal/runner"
)

var (
	enrichDB      string
	enrichLimit   int
	enrichShuffle bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run batch enrichment over the product backlog",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if enrichDB != "" {
			cfg.Store.DatabaseURL = enrichDB
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Runner.Run(ctx, runner.Options{
			Limit:             enrichLimit,
			Shuffle:           enrichShuffle,
			ProductsPerMinute: cfg.Runner.ProductsPerMinute,
			CheckpointEvery:   cfg.Runner.CheckpointEvery,
			CheckpointPause:   time.Duration(cfg.Runner.CheckpointSecs) * time.Second,
		})
		if err != nil {
			return err
		}

		printBatchSummary(os.Stdout, result)
		return nil
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichDB, "db", "", "database path or URL (overrides config)")
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 100, "max products to process")
	enrichCmd.Flags().BoolVar(&enrichShuffle, "shuffle", false, "process the backlog in random order")
	rootCmd.AddCommand(enrichCmd)
}

// printBatchSummary writes the per-outcome counts the operator cares about.
func printBatchSummary(out io.Writer, r *runner.BatchResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "run\t%s\n", r.RunID)
	_, _ = fmt.Fprintf(w, "processed\t%d\n", r.Processed)
	_, _ = fmt.Fprintf(w, "skipped (in ledger)\t%d\n", r.Skipped)
	_, _ = fmt.Fprintf(w, "updated\t%d\n", r.Updated)
	_, _ = fmt.Fprintf(w, "partial\t%d\n", r.Partial)
	_, _ = fmt.Fprintf(w, "exhausted\t%d\n", r.Exhausted)
	_, _ = fmt.Fprintf(w, "errors\t%d\n", r.Errors)

	sources := make([]string, 0, len(r.AcceptedBySource))
	for s := range r.AcceptedBySource {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	for _, s := range sources {
		_, _ = fmt.Fprintf(w, "accepted by %s\t%d\n", s, r.AcceptedBySource[s])
	}
	_, _ = fmt.Fprintf(w, "elapsed\t%s\n", r.Elapsed.Round(time.Second))
	_ = w.Flush()
}
