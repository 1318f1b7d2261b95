package scanner

import (
	"math"
	"sort"

	"github.com/clearline-health/claimscan/internal/config"
	"github.com/clearline-health/claimscan/internal/model"
)

// detectBillingSpikes flags months billing far above the provider's own
// monthly average. Each provider is its own baseline, complementing the
// revenue detector's cross-population comparison. Fewer than three distinct
// months is not enough history to establish a baseline.
func detectBillingSpikes(monthly []model.MonthlyAggregate, cfg config.ScannerConfig) map[string][]model.RedFlag {
	byProvider := make(map[string]map[string]float64)
	for _, row := range monthly {
		months := byProvider[row.ProviderID]
		if months == nil {
			months = make(map[string]float64)
			byProvider[row.ProviderID] = months
		}
		months[row.Month] += row.PaidAmount
	}

	ids := make([]string, 0, len(byProvider))
	for id := range byProvider {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	flags := make(map[string][]model.RedFlag)
	for _, id := range ids {
		byMonth := byProvider[id]
		if len(byMonth) < 3 {
			continue
		}

		months := make([]string, 0, len(byMonth))
		var total float64
		for month, paid := range byMonth {
			months = append(months, month)
			total += paid
		}
		sort.Strings(months)

		mean := total / float64(len(byMonth))
		if mean <= 0 {
			// Ratio against a zero or negative baseline is meaningless.
			continue
		}

		for _, month := range months {
			ratio := byMonth[month] / mean
			if ratio <= cfg.SpikeMultiplier {
				continue
			}
			severity := math.Min(1.0, ratio/10.0)
			flags[id] = append(flags[id], model.RedFlag{
				Kind: model.FlagBillingSpike,
				Description: numPrinter.Sprintf("monthly paid $%.2f in %s is %.1fx their average of $%.2f",
					byMonth[month], month, ratio, mean),
				Severity: severity,
				Evidence: map[string]any{
					"month":        month,
					"amount":       math.Round(byMonth[month]*100) / 100,
					"ratio":        math.Round(ratio*100) / 100,
					"monthly_mean": math.Round(mean*100) / 100,
				},
			})
		}
	}
	return flags
}
