package dossier

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/clearline-health/claimscan/internal/model"
)

// ResultSource yields the persisted scan result for a provider, if any.
// A nil result with a nil error means the provider was never flagged.
type ResultSource interface {
	LatestResultForProvider(ctx context.Context, providerID string) (*model.ScanResult, error)
}

// ProviderDirectory resolves human-readable provider metadata.
type ProviderDirectory interface {
	Lookup(ctx context.Context, providerID string) (*model.Provider, error)
}

// Builder assembles dossiers. Results and Directory are optional; a nil
// source simply leaves the corresponding section empty.
type Builder struct {
	Results   ResultSource
	Directory ProviderDirectory
}

// Build creates a dossier for one provider from the monthly aggregate table.
// It returns ErrUnknownProvider when the provider has no monthly rows.
// Registry and store lookups degrade to an anonymous, unflagged dossier on
// failure; they never fail the build.
func (b *Builder) Build(ctx context.Context, providerID string, monthly []model.MonthlyAggregate) (*model.Dossier, error) {
	var own []model.MonthlyAggregate
	for _, row := range monthly {
		if row.ProviderID == providerID {
			own = append(own, row)
		}
	}
	if len(own) == 0 {
		return nil, ErrUnknownProvider
	}

	d := &model.Dossier{
		ProviderID:    providerID,
		ClaimsSummary: summarize(own),
		Timeline:      timeline(own),
	}

	cmp, err := ComparePeers(ProviderTotals(monthly), providerID)
	if err != nil {
		return nil, err
	}
	d.PeerComparison = cmp

	if b.Results != nil {
		result, err := b.Results.LatestResultForProvider(ctx, providerID)
		if err != nil {
			zap.L().Warn("dossier: scan result lookup failed",
				zap.String("provider_id", providerID),
				zap.Error(err),
			)
		} else {
			d.ScanResult = result
		}
	}

	if b.Directory != nil {
		provider, err := b.Directory.Lookup(ctx, providerID)
		if err != nil {
			zap.L().Warn("dossier: registry lookup failed",
				zap.String("provider_id", providerID),
				zap.Error(err),
			)
		} else {
			d.Provider = provider
		}
	}

	return d, nil
}

func summarize(own []model.MonthlyAggregate) model.ClaimsSummary {
	byMonth := make(map[string]*model.TimelineEntry)
	var summary model.ClaimsSummary
	for _, row := range own {
		summary.TotalClaims += row.ClaimCount
		summary.TotalPaid += row.PaidAmount
		e := byMonth[row.Month]
		if e == nil {
			e = &model.TimelineEntry{Month: row.Month}
			byMonth[row.Month] = e
		}
		e.ClaimCount += row.ClaimCount
		e.PaidAmount += row.PaidAmount
	}

	summary.ActiveMonths = len(byMonth)
	if summary.TotalClaims > 0 {
		summary.PaidPerClaim = math.Round(summary.TotalPaid/float64(summary.TotalClaims)*100) / 100
	}

	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)
	summary.FirstMonth = months[0]
	summary.LastMonth = months[len(months)-1]

	for _, month := range months {
		e := byMonth[month]
		if summary.PeakMonth == "" || e.PaidAmount > summary.PeakMonthPaid {
			summary.PeakMonth = month
			summary.PeakMonthPaid = e.PaidAmount
			summary.PeakMonthClaims = e.ClaimCount
		}
	}
	return summary
}

func timeline(own []model.MonthlyAggregate) []model.TimelineEntry {
	byMonth := make(map[string]*model.TimelineEntry)
	for _, row := range own {
		e := byMonth[row.Month]
		if e == nil {
			e = &model.TimelineEntry{Month: row.Month}
			byMonth[row.Month] = e
		}
		e.ClaimCount += row.ClaimCount
		e.PaidAmount += row.PaidAmount
	}

	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)

	entries := make([]model.TimelineEntry, 0, len(months))
	for _, month := range months {
		entries = append(entries, *byMonth[month])
	}
	return entries
}
