// Package model defines the domain types shared across the claims scanner.
package model

import "time"

// FlagKind categorizes the anomaly a detector raises.
type FlagKind string

const (
	FlagVolumeImpossibility   FlagKind = "volume_impossibility"
	FlagRevenueOutlier        FlagKind = "revenue_outlier"
	FlagBillingSpike          FlagKind = "billing_spike"
	FlagSuspiciousConsistency FlagKind = "suspicious_consistency"
)

// RedFlag is a specific piece of evidence against a provider.
// Immutable once created; owned by the ScanResult or Dossier reporting it.
type RedFlag struct {
	Kind        FlagKind       `json:"kind"`
	Description string         `json:"description"`
	Severity    float64        `json:"severity"` // 0.0 to 1.0
	Evidence    map[string]any `json:"evidence,omitempty"`
}

// ScanResult is the fused outcome of scanning one provider.
type ScanResult struct {
	ProviderID   string    `json:"provider_id"`
	OverallScore float64   `json:"overall_score"` // 0.0 to 1.0, higher = more suspicious
	RedFlags     []RedFlag `json:"red_flags"`
}

// MonthlyAggregate is one row of the provider-by-month summary table:
// summed claim counts and paid amounts for one provider in one calendar month.
type MonthlyAggregate struct {
	ProviderID    string  `json:"provider_id"`
	Month         string  `json:"month"` // calendar month, e.g. "2024-03"
	ClaimCount    int64   `json:"claim_count"`
	PaidAmount    float64 `json:"paid_amount"`
	Beneficiaries int64   `json:"beneficiaries,omitempty"`
}

// ProcedureAmountAggregate counts how many line items a provider billed at
// one exact paid amount. Used only by the consistency detector.
type ProcedureAmountAggregate struct {
	ProviderID string  `json:"provider_id"`
	PaidAmount float64 `json:"paid_amount"`
	RowCount   int64   `json:"row_count"`
}

// PeerComparison ranks one provider's total against the full population.
// When Available is false the population could not support a comparison and
// the numeric fields are meaningless; Note says why.
type PeerComparison struct {
	Available      bool     `json:"available"`
	Note           string   `json:"note,omitempty"`
	PeerCount      int      `json:"peer_count,omitempty"`
	ProviderTotal  float64  `json:"provider_total,omitempty"`
	PeerMean       float64  `json:"peer_mean,omitempty"`
	PeerMedian     float64  `json:"peer_median,omitempty"`
	ZScore         *float64 `json:"zscore,omitempty"` // nil when peer std is zero or undefined
	PercentileRank float64  `json:"percentile_rank,omitempty"`
}

// Provider holds display metadata resolved from the NPI registry.
// The scanning engine never depends on it; identity is the opaque ID.
type Provider struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Specialty string `json:"specialty,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
}

// ClaimsSummary condenses a provider's billing history for a dossier.
type ClaimsSummary struct {
	TotalClaims     int64   `json:"total_claims"`
	TotalPaid       float64 `json:"total_paid"`
	PaidPerClaim    float64 `json:"paid_per_claim,omitempty"`
	ActiveMonths    int     `json:"active_months"`
	FirstMonth      string  `json:"first_month,omitempty"`
	LastMonth       string  `json:"last_month,omitempty"`
	PeakMonth       string  `json:"peak_month,omitempty"`
	PeakMonthPaid   float64 `json:"peak_month_paid,omitempty"`
	PeakMonthClaims int64   `json:"peak_month_claims,omitempty"`
}

// TimelineEntry is one month of a provider's billing timeline.
type TimelineEntry struct {
	Month      string  `json:"month"`
	ClaimCount int64   `json:"claim_count"`
	PaidAmount float64 `json:"paid_amount"`
}

// Dossier is the complete evidence package for one provider.
type Dossier struct {
	ProviderID     string          `json:"provider_id"`
	Provider       *Provider       `json:"provider,omitempty"`
	ScanResult     *ScanResult     `json:"scan_result,omitempty"`
	ClaimsSummary  ClaimsSummary   `json:"claims_summary"`
	PeerComparison PeerComparison  `json:"peer_comparison"`
	Timeline       []TimelineEntry `json:"timeline"`
}

// ScanRunStatus represents the state of a persisted scan run.
type ScanRunStatus string

const (
	ScanRunComplete ScanRunStatus = "complete"
	ScanRunFailed   ScanRunStatus = "failed"
)

// ScanRun records one execution of the ranked scan.
type ScanRun struct {
	ID            string        `json:"id"`
	Status        ScanRunStatus `json:"status"`
	Threshold     float64       `json:"threshold"`
	ProviderCount int           `json:"provider_count"`
	FlagCount     int           `json:"flag_count"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
}
