package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clearline-health/claimscan/internal/dossier"
	"github.com/clearline-health/claimscan/internal/model"
	"github.com/clearline-health/claimscan/pkg/registry"
)

var profileData string

var profileCmd = &cobra.Command{
	Use:   "profile <provider-id>",
	Short: "Build an evidence dossier for one provider",
	Long: `Assembles claims summary, monthly timeline, peer comparison, persisted
scan flags, and registry metadata for a single provider.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		providerID := args[0]

		monthly, _, err := loadAggregates(profileData)
		if err != nil {
			return eris.Wrap(err, "profile: load aggregates")
		}

		builder := &dossier.Builder{}

		if s, err := openStore(ctx); err != nil {
			zap.L().Warn("profile: store unavailable, dossier will omit scan flags", zap.Error(err))
		} else {
			defer s.Close()
			builder.Results = s
		}

		if !cfg.Registry.Disabled {
			client := registry.New(cfg.Registry.BaseURL,
				registry.WithTimeout(time.Duration(cfg.Registry.TimeoutSecs)*time.Second),
				registry.WithRateLimit(cfg.Registry.RequestsPerSec),
			)
			builder.Directory = &registryDirectory{client: client}
		}

		d, err := builder.Build(ctx, providerID, monthly)
		if err != nil {
			if eris.Is(err, dossier.ErrUnknownProvider) {
				return eris.Errorf("profile: no claims found for provider %s", providerID)
			}
			return eris.Wrap(err, "profile: build dossier")
		}

		printDossier(d)
		return nil
	},
}

func init() {
	profileCmd.Flags().StringVar(&profileData, "data", "", "path to raw claims export (skips preprocessed summaries)")
	rootCmd.AddCommand(profileCmd)
}

// registryDirectory adapts the registry client to the dossier builder.
type registryDirectory struct {
	client registry.Client
}

func (r *registryDirectory) Lookup(ctx context.Context, providerID string) (*model.Provider, error) {
	p, err := r.client.Lookup(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return &model.Provider{
		ID:        p.NPI,
		Name:      p.Name,
		Specialty: p.Specialty,
		City:      p.City,
		State:     p.State,
	}, nil
}
