// Package dossier builds per-provider evidence packages: claims summaries,
// billing timelines, and peer comparisons over the aggregate tables.
package dossier

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/clearline-health/claimscan/internal/model"
)

// ErrUnknownProvider indicates the requested provider has no rows in the
// aggregate tables. Callers get this distinct outcome, never a zeroed report.
var ErrUnknownProvider = eris.New("dossier: provider not found in aggregates")

// ProviderTotals sums paid amounts per provider across the monthly table.
func ProviderTotals(monthly []model.MonthlyAggregate) map[string]float64 {
	totals := make(map[string]float64)
	for _, row := range monthly {
		totals[row.ProviderID] += row.PaidAmount
	}
	return totals
}

// ComparePeers ranks one provider's total paid amount against the full
// population of per-provider totals. The z-score here is the classical
// mean/std one: this is an intuitive ranking figure for a human reader,
// not a detection trigger, so the robust statistics are deliberately not
// used. An empty population yields an explicit unavailable result rather
// than synthesized zero statistics.
func ComparePeers(totals map[string]float64, providerID string) (model.PeerComparison, error) {
	if len(totals) == 0 {
		return model.PeerComparison{
			Available: false,
			Note:      "no peer population available for comparison",
		}, nil
	}

	providerTotal, found := totals[providerID]
	if !found {
		return model.PeerComparison{}, eris.Wrapf(ErrUnknownProvider, "peer comparison for %s", providerID)
	}

	population := make([]float64, 0, len(totals))
	var sum float64
	var atOrBelow int
	for _, total := range totals {
		population = append(population, total)
		sum += total
		if total <= providerTotal {
			atOrBelow++
		}
	}
	sort.Float64s(population)

	n := len(population)
	mean := sum / float64(n)

	mid := n / 2
	median := population[mid]
	if n%2 == 0 {
		median = (population[mid-1] + population[mid]) / 2
	}

	cmp := model.PeerComparison{
		Available:      true,
		PeerCount:      n,
		ProviderTotal:  providerTotal,
		PeerMean:       math.Round(mean*100) / 100,
		PeerMedian:     math.Round(median*100) / 100,
		PercentileRank: math.Round(float64(atOrBelow)/float64(n)*1000) / 10,
	}

	// Sample standard deviation; undefined for a single peer.
	if n > 1 {
		var sq float64
		for _, total := range population {
			d := total - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(n-1))
		if std > 0 {
			z := math.Round((providerTotal-mean)/std*100) / 100
			cmp.ZScore = &z
		}
	}

	return cmp, nil
}
