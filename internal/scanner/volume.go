package scanner

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/clearline-health/claimscan/internal/config"
	"github.com/clearline-health/claimscan/internal/model"
)

// numPrinter renders grouped-digit numbers for flag descriptions.
var numPrinter = message.NewPrinter(language.English)

// detectVolumeImpossibility flags any provider-month whose claim count
// exceeds the plausibility ceiling. Each offending month produces its own
// flag. Severity ramps linearly and saturates at three times the ceiling.
func detectVolumeImpossibility(monthly []model.MonthlyAggregate, cfg config.ScannerConfig) map[string][]model.RedFlag {
	flags := make(map[string][]model.RedFlag)
	for _, row := range monthly {
		if row.ClaimCount <= cfg.MaxClaimsPerMonth {
			continue
		}
		severity := math.Min(1.0, float64(row.ClaimCount)/float64(cfg.MaxClaimsPerMonth*3))
		flags[row.ProviderID] = append(flags[row.ProviderID], model.RedFlag{
			Kind: model.FlagVolumeImpossibility,
			Description: numPrinter.Sprintf("%d claims in %s (max plausible: %d)",
				row.ClaimCount, row.Month, cfg.MaxClaimsPerMonth),
			Severity: severity,
			Evidence: map[string]any{
				"month":   row.Month,
				"claims":  row.ClaimCount,
				"ceiling": cfg.MaxClaimsPerMonth,
			},
		})
	}
	return flags
}
