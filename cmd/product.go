package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	productDB string
	productID int64
)

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Enrich a single product by ID",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if productDB != "" {
			cfg.Store.DatabaseURL = productDB
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		p, err := env.Store.Get(ctx, productID)
		if err != nil {
			return err
		}

		entry, err := env.Runner.RunOne(ctx, *p)
		if err != nil {
			return eris.Wrapf(err, "enrich product %d", productID)
		}

		zap.L().Info("product processed",
			zap.Int64("product_id", p.ID),
			zap.String("method", entry.Method),
			zap.String("status", string(entry.Status)),
			zap.Int("fields", len(entry.AcceptedFields)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entry)
	},
}

func init() {
	productCmd.Flags().StringVar(&productDB, "db", "", "database path or URL (overrides config)")
	productCmd.Flags().Int64Var(&productID, "id", 0, "product ID (required)")
	_ = productCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(productCmd)
}
