package scanner

import (
	"context"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clearline-health/claimscan/internal/config"
	"github.com/clearline-health/claimscan/internal/model"
)

// ErrNoData indicates the monthly aggregate table was empty. With nothing to
// score, a scan cannot proceed; every other data gap degrades to no flags.
var ErrNoData = eris.New("scanner: monthly aggregate table is empty")

// Fusion weights. An entity flagged by several independent detector kinds
// scores higher than one flagged repeatedly by the same detector, because
// independent corroboration is stronger evidence than a recurring signal.
// The formula is a preserved heuristic with no stated derivation; do not
// retune one weight without revisiting both.
const (
	fusionSeverityWeight = 0.5
	fusionKindWeight     = 0.2
)

// Scanner runs the full detector set over the aggregate tables and fuses the
// results into a ranked suspicion list. Construct with New; the zero value is
// unusable.
type Scanner struct {
	cfg config.ScannerConfig
}

// New returns a Scanner with the given thresholds. Callers should validate
// the config with ValidateConfig first.
func New(cfg config.ScannerConfig) *Scanner {
	return &Scanner{cfg: cfg}
}

// Scan evaluates every detector over the aggregate tables and returns
// providers whose fused score reaches threshold, ordered by score descending
// with provider ID as the tie-break. The input tables are read-only for the
// duration of the scan and the result is a pure function of them, so repeat
// scans over the same tables are byte-identical.
func (s *Scanner) Scan(ctx context.Context, monthly []model.MonthlyAggregate, procedure []model.ProcedureAmountAggregate, threshold float64) ([]model.ScanResult, error) {
	if len(monthly) == 0 {
		return nil, ErrNoData
	}

	monthly, procedure = s.filterViable(monthly, procedure)

	// The detectors are independent and side-effect free; evaluate them in
	// parallel. Fusion below depends only on each provider's complete flag
	// set, so merge order cannot change the output.
	var volume, revenue, spike, consistency map[string][]model.RedFlag
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { volume = detectVolumeImpossibility(monthly, s.cfg); return nil })
	g.Go(func() error { revenue = detectRevenueOutliers(monthly, s.cfg); return nil })
	g.Go(func() error { spike = detectBillingSpikes(monthly, s.cfg); return nil })
	g.Go(func() error { consistency = detectSuspiciousConsistency(procedure, s.cfg); return nil })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := make(map[string]struct{})
	for _, m := range []map[string][]model.RedFlag{volume, revenue, spike, consistency} {
		for id := range m {
			ids[id] = struct{}{}
		}
	}

	var results []model.ScanResult
	for id := range ids {
		var flags []model.RedFlag
		flags = append(flags, volume[id]...)
		flags = append(flags, revenue[id]...)
		flags = append(flags, spike[id]...)
		flags = append(flags, consistency[id]...)
		if len(flags) == 0 {
			continue
		}

		score := FuseScore(flags)
		if score < threshold {
			continue
		}
		results = append(results, model.ScanResult{
			ProviderID:   id,
			OverallScore: score,
			RedFlags:     flags,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].OverallScore != results[j].OverallScore {
			return results[i].OverallScore > results[j].OverallScore
		}
		return results[i].ProviderID < results[j].ProviderID
	})

	zap.L().Info("scanner: scan complete",
		zap.Int("providers_flagged", len(results)),
		zap.Float64("threshold", threshold),
	)
	return results, nil
}

// FuseScore merges one provider's flags into an overall score in [0,1]:
// half the maximum severity plus 0.2 per distinct flag kind, capped at 1.
func FuseScore(flags []model.RedFlag) float64 {
	if len(flags) == 0 {
		return 0
	}
	var maxSeverity float64
	kinds := make(map[model.FlagKind]struct{})
	for _, f := range flags {
		if f.Severity > maxSeverity {
			maxSeverity = f.Severity
		}
		kinds[f.Kind] = struct{}{}
	}
	score := fusionSeverityWeight*maxSeverity + fusionKindWeight*float64(len(kinds))
	return math.Min(1.0, score)
}

// filterViable drops providers whose summed paid amount across all months
// falls below the minimum viability threshold. They are excluded from every
// detector's input, including the consistency table: too small to be an
// actionable case either way.
func (s *Scanner) filterViable(monthly []model.MonthlyAggregate, procedure []model.ProcedureAmountAggregate) ([]model.MonthlyAggregate, []model.ProcedureAmountAggregate) {
	if s.cfg.MinViableTotal <= 0 {
		return monthly, procedure
	}

	totals := make(map[string]float64)
	for _, row := range monthly {
		totals[row.ProviderID] += row.PaidAmount
	}

	keptMonthly := monthly[:0:0]
	for _, row := range monthly {
		if totals[row.ProviderID] >= s.cfg.MinViableTotal {
			keptMonthly = append(keptMonthly, row)
		}
	}
	keptProcedure := procedure[:0:0]
	for _, row := range procedure {
		if totals[row.ProviderID] >= s.cfg.MinViableTotal {
			keptProcedure = append(keptProcedure, row)
		}
	}

	if dropped := len(monthly) - len(keptMonthly); dropped > 0 {
		zap.L().Debug("scanner: viability pre-filter",
			zap.Int("rows_dropped", dropped),
			zap.Float64("min_viable_total", s.cfg.MinViableTotal),
		)
	}
	return keptMonthly, keptProcedure
}
