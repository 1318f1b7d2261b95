package loader

import (
	"sort"

	"github.com/clearline-health/claimscan/internal/model"
)

// AggregateMonthly sums claim rows into one row per (provider, month),
// ordered by provider then month.
func AggregateMonthly(rows []ClaimRow) []model.MonthlyAggregate {
	type key struct {
		provider string
		month    string
	}
	byKey := make(map[key]*model.MonthlyAggregate)
	for _, row := range rows {
		k := key{row.ProviderID, row.Month}
		agg := byKey[k]
		if agg == nil {
			agg = &model.MonthlyAggregate{ProviderID: row.ProviderID, Month: row.Month}
			byKey[k] = agg
		}
		agg.ClaimCount += row.Claims
		agg.PaidAmount += row.Paid
		agg.Beneficiaries += row.Beneficiaries
	}

	out := make([]model.MonthlyAggregate, 0, len(byKey))
	for _, agg := range byKey {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProviderID != out[j].ProviderID {
			return out[i].ProviderID < out[j].ProviderID
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// AggregateProcedureAmounts counts line items per (provider, exact paid
// amount), ordered by provider then amount. The consistency detector is the
// sole consumer.
func AggregateProcedureAmounts(rows []ClaimRow) []model.ProcedureAmountAggregate {
	type key struct {
		provider string
		paid     float64
	}
	byKey := make(map[key]int64)
	for _, row := range rows {
		byKey[key{row.ProviderID, row.Paid}]++
	}

	out := make([]model.ProcedureAmountAggregate, 0, len(byKey))
	for k, count := range byKey {
		out = append(out, model.ProcedureAmountAggregate{
			ProviderID: k.provider,
			PaidAmount: k.paid,
			RowCount:   count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProviderID != out[j].ProviderID {
			return out[i].ProviderID < out[j].ProviderID
		}
		return out[i].PaidAmount < out[j].PaidAmount
	})
	return out
}
