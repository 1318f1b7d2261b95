package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clearline-health/claimscan/internal/config"
	"github.com/clearline-health/claimscan/internal/model"
	"github.com/clearline-health/claimscan/internal/scanner"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the dataset for suspicious providers",
	Long: `Runs the full detector set (volume impossibility, revenue outliers,
billing spikes, suspicious consistency) over the aggregate tables and prints
providers ranked by fused suspicion score.

Examples:
  # Scan using preprocessed summaries, default threshold
  claimscan scan

  # Scan a raw export directly, only high-confidence results
  claimscan scan --data claims.csv --threshold 0.7

  # Export full ranked results to CSV and persist the run
  claimscan scan --format csv --output results.csv --save`,
	RunE: runScan,
}

func init() {
	f := scanCmd.Flags()
	f.Float64("threshold", 0.3, "minimum fused score to report (0.0-1.0)")
	f.String("data", "", "path to raw claims export (skips preprocessed summaries)")
	f.Int("top", 50, "number of top results to display")
	f.String("output", "", "output file path (default: stdout)")
	f.String("format", "table", "output format: table or csv")
	f.Bool("save", false, "persist the run and results to the store")

	// Threshold overrides; defaults come from config.
	f.Int64("volume-ceiling", 0, "max plausible claims per provider-month (overrides config)")
	f.Float64("revenue-zscore", 0, "modified z-score threshold for revenue outliers (overrides config)")
	f.Float64("spike-multiplier", 0, "monthly spike multiplier (overrides config)")
	f.Float64("consistency-ratio", 0, "identical-amount ratio threshold (overrides config)")
	f.Int64("consistency-min-rows", 0, "minimum rows for consistency detection (overrides config)")
	f.Float64("min-viable-total", -1, "minimum total paid for a provider to be scanned (overrides config)")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	threshold, _ := cmd.Flags().GetFloat64("threshold")
	dataPath, _ := cmd.Flags().GetString("data")
	top, _ := cmd.Flags().GetInt("top")
	outputPath, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	save, _ := cmd.Flags().GetBool("save")

	if threshold < 0 || threshold > 1 {
		return eris.Errorf("scan: --threshold must be in [0,1] (got %.2f)", threshold)
	}
	if format != "table" && format != "csv" {
		return eris.Errorf("scan: --format must be table or csv (got %q)", format)
	}

	scanCfg := applyScannerOverrides(cmd, cfg.Scanner)
	if err := scanner.ValidateConfig(scanCfg); err != nil {
		return err
	}

	monthly, procedure, err := loadAggregates(dataPath)
	if err != nil {
		return eris.Wrap(err, "scan: load aggregates")
	}

	log := zap.L().With(zap.String("command", "scan"))
	log.Info("starting scan",
		zap.Int("monthly_rows", len(monthly)),
		zap.Int("procedure_rows", len(procedure)),
		zap.Float64("threshold", threshold),
	)

	startedAt := time.Now().UTC()
	results, err := scanner.New(scanCfg).Scan(ctx, monthly, procedure, threshold)
	if err != nil {
		return eris.Wrap(err, "scan: run detectors")
	}

	if err := outputScanResults(results, format, outputPath, top); err != nil {
		return err
	}

	if save {
		s, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "scan: open store")
		}
		defer s.Close()

		run := model.ScanRun{
			ID:            uuid.New().String(),
			Status:        model.ScanRunComplete,
			Threshold:     threshold,
			ProviderCount: len(results),
			FlagCount:     countFlags(results),
			StartedAt:     startedAt,
			FinishedAt:    time.Now().UTC(),
		}
		if err := s.SaveScan(ctx, run, results); err != nil {
			return eris.Wrap(err, "scan: save")
		}
		fmt.Printf("Saved run %s (%d providers)\n", run.ID, len(results))
	}

	return nil
}

// applyScannerOverrides layers CLI flags over the configured thresholds.
func applyScannerOverrides(cmd *cobra.Command, base config.ScannerConfig) config.ScannerConfig {
	out := base

	if v, _ := cmd.Flags().GetInt64("volume-ceiling"); v > 0 {
		out.MaxClaimsPerMonth = v
	}
	if v, _ := cmd.Flags().GetFloat64("revenue-zscore"); v > 0 {
		out.RevenueZThreshold = v
	}
	if v, _ := cmd.Flags().GetFloat64("spike-multiplier"); v > 0 {
		out.SpikeMultiplier = v
	}
	if v, _ := cmd.Flags().GetFloat64("consistency-ratio"); v > 0 {
		out.ConsistencyRatio = v
	}
	if v, _ := cmd.Flags().GetInt64("consistency-min-rows"); v > 0 {
		out.ConsistencyMinRows = v
	}
	if v, _ := cmd.Flags().GetFloat64("min-viable-total"); v >= 0 {
		out.MinViableTotal = v
	}
	return out
}

func countFlags(results []model.ScanResult) int {
	n := 0
	for i := range results {
		n += len(results[i].RedFlags)
	}
	return n
}
