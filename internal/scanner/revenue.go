package scanner

import (
	"math"
	"sort"

	"github.com/clearline-health/claimscan/internal/config"
	"github.com/clearline-health/claimscan/internal/model"
)

// detectRevenueOutliers flags providers whose paid-per-claim rate sits far
// above the cross-provider population. The rate is volume-normalized so the
// detector measures anomalous pricing, not anomalous scale, and the baseline
// is median/MAD rather than mean/std so the heavy tail of very large
// providers cannot mask moderate abusers.
func detectRevenueOutliers(monthly []model.MonthlyAggregate, cfg config.ScannerConfig) map[string][]model.RedFlag {
	type totals struct {
		paid   float64
		claims int64
	}
	byProvider := make(map[string]*totals)
	for _, row := range monthly {
		t := byProvider[row.ProviderID]
		if t == nil {
			t = &totals{}
			byProvider[row.ProviderID] = t
		}
		t.paid += row.PaidAmount
		t.claims += row.ClaimCount
	}

	// Providers with zero claims have an undefined rate and are excluded.
	ids := make([]string, 0, len(byProvider))
	rates := make(map[string]float64, len(byProvider))
	for id, t := range byProvider {
		if t.claims == 0 {
			continue
		}
		ids = append(ids, id)
		rates[id] = t.paid / float64(t.claims)
	}
	sort.Strings(ids)

	population := make([]float64, 0, len(ids))
	for _, id := range ids {
		population = append(population, rates[id])
	}

	median, scaledMAD, ok := MedianMAD(population)
	if !ok {
		// No dispersion in the population; the statistic is undefined.
		return nil
	}

	flags := make(map[string][]model.RedFlag)
	for _, id := range ids {
		rate := rates[id]
		zscore := (rate - median) / scaledMAD
		if zscore <= cfg.RevenueZThreshold {
			continue
		}
		severity := math.Min(1.0, zscore/10.0)
		flags[id] = append(flags[id], model.RedFlag{
			Kind: model.FlagRevenueOutlier,
			Description: numPrinter.Sprintf("$%.2f paid per claim is %.1f robust std devs above the population median of $%.2f",
				rate, zscore, median),
			Severity: severity,
			Evidence: map[string]any{
				"paid_per_claim":    math.Round(rate*100) / 100,
				"modified_zscore":   math.Round(zscore*100) / 100,
				"population_median": math.Round(median*100) / 100,
			},
		})
	}
	return flags
}
