package scanner

import (
	"math"
	"sort"

	"github.com/clearline-health/claimscan/internal/config"
	"github.com/clearline-health/claimscan/internal/model"
)

// detectSuspiciousConsistency flags providers where an unusually high
// fraction of line items share one identical paid amount, characteristic of
// templated billing rather than natural price variation. Zero-amount rows
// are a data artifact and are excluded before the ratio is computed.
func detectSuspiciousConsistency(procedure []model.ProcedureAmountAggregate, cfg config.ScannerConfig) map[string][]model.RedFlag {
	byProvider := make(map[string]map[float64]int64)
	for _, row := range procedure {
		if row.PaidAmount == 0 {
			continue
		}
		counts := byProvider[row.ProviderID]
		if counts == nil {
			counts = make(map[float64]int64)
			byProvider[row.ProviderID] = counts
		}
		counts[row.PaidAmount] += row.RowCount
	}

	ids := make([]string, 0, len(byProvider))
	for id := range byProvider {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	flags := make(map[string][]model.RedFlag)
	for _, id := range ids {
		counts := byProvider[id]

		amounts := make([]float64, 0, len(counts))
		var totalRows int64
		for amount, n := range counts {
			amounts = append(amounts, amount)
			totalRows += n
		}
		if totalRows < cfg.ConsistencyMinRows {
			continue
		}

		// Tie on counts resolves to the smallest amount; any maximal amount
		// is acceptable, this just keeps the output reproducible.
		sort.Float64s(amounts)
		var topAmount float64
		var topCount int64
		for _, amount := range amounts {
			if counts[amount] > topCount {
				topCount = counts[amount]
				topAmount = amount
			}
		}

		ratio := float64(topCount) / float64(totalRows)
		if ratio <= cfg.ConsistencyRatio {
			continue
		}
		severity := math.Min(1.0, ratio)
		flags[id] = append(flags[id], model.RedFlag{
			Kind: model.FlagSuspiciousConsistency,
			Description: numPrinter.Sprintf("%.0f%% of %d line items paid identical amount $%.2f, consistent with templated billing",
				ratio*100, totalRows, topAmount),
			Severity: severity,
			Evidence: map[string]any{
				"consistency_ratio": math.Round(ratio*1000) / 1000,
				"top_amount":        topAmount,
				"total_rows":        totalRows,
			},
		})
	}
	return flags
}
