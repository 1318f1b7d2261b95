// Package scanner implements the anomaly detection and scoring engine: four
// independent statistical detectors over pre-aggregated provider summaries,
// fused into one ranked suspicion score per provider.
package scanner

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/clearline-health/claimscan/internal/config"
)

// DefaultConfig returns a config.ScannerConfig with the stock thresholds.
// These are tuned heuristics for Medicaid-style claims data, not derived
// parameters; recalibrate against real data before trusting them elsewhere.
func DefaultConfig() config.ScannerConfig {
	return config.ScannerConfig{
		MaxClaimsPerMonth:  1500,
		RevenueZThreshold:  3.0,
		SpikeMultiplier:    5.0,
		ConsistencyRatio:   0.9,
		ConsistencyMinRows: 30,
		MinViableTotal:     10_000,
	}
}

// ValidateConfig checks that a ScannerConfig is internally consistent.
func ValidateConfig(c config.ScannerConfig) error {
	var errs []string

	if c.MaxClaimsPerMonth <= 0 {
		errs = append(errs, "max_claims_per_month must be > 0")
	}
	if c.RevenueZThreshold <= 0 {
		errs = append(errs, "revenue_zscore_threshold must be > 0")
	}
	if c.SpikeMultiplier <= 1 {
		errs = append(errs, "spike_multiplier must be > 1")
	}
	if c.ConsistencyRatio <= 0 || c.ConsistencyRatio >= 1 {
		errs = append(errs, fmt.Sprintf("consistency_ratio must be in (0,1), got %.2f", c.ConsistencyRatio))
	}
	if c.ConsistencyMinRows < 1 {
		errs = append(errs, "consistency_min_rows must be >= 1")
	}
	if c.MinViableTotal < 0 {
		errs = append(errs, "min_viable_total must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("scanner: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
