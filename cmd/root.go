package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clearline-health/claimscan/internal/config"
	"github.com/clearline-health/claimscan/internal/loader"
	"github.com/clearline-health/claimscan/internal/model"
	"github.com/clearline-health/claimscan/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "claimscan",
	Short: "Claims anomaly scanner",
	Long:  "Scans claims datasets for statistical signs of anomalous billing, ranks providers by fused suspicion score, and builds per-provider evidence dossiers.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore creates and migrates the configured store backend.
func openStore(ctx context.Context) (store.Store, error) {
	var s store.Store
	var err error
	switch cfg.Store.Driver {
	case "postgres":
		s, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		s, err = store.NewSQLite(cfg.Store.DatabaseURL)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// loadAggregates resolves the two summary tables: preprocessed files when
// present, otherwise a full pass over the raw export.
func loadAggregates(rawPath string) ([]model.MonthlyAggregate, []model.ProcedureAmountAggregate, error) {
	if rawPath == "" && loader.HasSummaries(cfg.Data.ProcessedDir) {
		zap.L().Info("using preprocessed summaries", zap.String("dir", cfg.Data.ProcessedDir))
		return loader.LoadSummaries(cfg.Data.ProcessedDir)
	}

	if rawPath == "" {
		rawPath = cfg.Data.RawPath
	}
	if rawPath == "" {
		return nil, nil, eris.New("no data source: pass --data, set data.raw_path, or run 'claimscan preprocess' first")
	}

	rows, err := loader.ReadClaims(rawPath)
	if err != nil {
		return nil, nil, err
	}
	return loader.AggregateMonthly(rows), loader.AggregateProcedureAmounts(rows), nil
}
