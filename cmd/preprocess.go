package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clearline-health/claimscan/internal/loader"
)

var preprocessData string

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Pre-aggregate a raw claims export into summary tables",
	Long: `Reads the raw claims export once and writes the two summary tables
(provider-by-month and provider-by-paid-amount) that scans consume. Repeated
scans then skip raw ingestion entirely.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rawPath := preprocessData
		if rawPath == "" {
			rawPath = cfg.Data.RawPath
		}
		if rawPath == "" {
			return eris.New("preprocess: no raw export (pass --data or set data.raw_path)")
		}

		rows, err := loader.ReadClaims(rawPath)
		if err != nil {
			return eris.Wrap(err, "preprocess: read claims")
		}

		monthly := loader.AggregateMonthly(rows)
		procedure := loader.AggregateProcedureAmounts(rows)

		if err := loader.WriteSummaries(cfg.Data.ProcessedDir, monthly, procedure); err != nil {
			return eris.Wrap(err, "preprocess: write summaries")
		}

		zap.L().Info("preprocess complete",
			zap.Int("monthly_rows", len(monthly)),
			zap.Int("procedure_rows", len(procedure)),
		)
		fmt.Printf("Preprocessing complete: %d monthly rows, %d amount rows in %s\n",
			len(monthly), len(procedure), cfg.Data.ProcessedDir)
		fmt.Println("Run 'claimscan scan' to analyze.")
		return nil
	},
}

func init() {
	preprocessCmd.Flags().StringVar(&preprocessData, "data", "", "path to raw claims export (CSV or XLSX)")
	rootCmd.AddCommand(preprocessCmd)
}
