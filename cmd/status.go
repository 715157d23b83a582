package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pantry-labs/enrich-cli/internal/ledger"
	"github.com/pantry-labs/enrich-cli/internal/model"
)

var statusLedgerPath string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the enrichment ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := statusLedgerPath
		if path == "" {
			path = cfg.Ledger.Path
		}

		entries, err := ledger.Entries(path)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			zap.L().Info("ledger empty", zap.String("path", path))
			return nil
		}

		printLedgerSummary(os.Stdout, entries)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusLedgerPath, "ledger", "", "ledger CSV path (overrides config)")
	rootCmd.AddCommand(statusCmd)
}

func printLedgerSummary(out io.Writer, entries []model.LedgerEntry) {
	byStatus := make(map[model.LedgerStatus]int)
	byMethod := make(map[string]int)
	var last time.Time
	for _, e := range entries {
		byStatus[e.Status]++
		byMethod[e.Method]++
		if e.ProcessedAt.After(last) {
			last = e.ProcessedAt
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "products ledgered\t%d\n", len(entries))
	_, _ = fmt.Fprintf(w, "success\t%d\n", byStatus[model.LedgerSuccess])
	_, _ = fmt.Fprintf(w, "partial\t%d\n", byStatus[model.LedgerPartial])
	_, _ = fmt.Fprintf(w, "failed\t%d\n", byStatus[model.LedgerFailed])

	methods := make([]string, 0, len(byMethod))
	for m := range byMethod {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	for _, m := range methods {
		_, _ = fmt.Fprintf(w, "by method: %s\t%d\n", m, byMethod[m])
	}
	if !last.IsZero() {
		_, _ = fmt.Fprintf(w, "last processed\t%s\n", last.Format(time.RFC3339))
	}
	_ = w.Flush()
}
