// Package store persists scan runs and their ranked results.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/clearline-health/claimscan/internal/model"
)

// ErrNotFound indicates the requested run or result does not exist.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface for scan runs.
type Store interface {
	// SaveScan persists a completed run together with its ranked results.
	SaveScan(ctx context.Context, run model.ScanRun, results []model.ScanResult) error
	// GetRun fetches one run by ID.
	GetRun(ctx context.Context, runID string) (*model.ScanRun, error)
	// ListRuns returns runs newest first. limit <= 0 means no limit.
	ListRuns(ctx context.Context, limit int) ([]model.ScanRun, error)
	// ResultsForRun returns a run's results in rank order.
	ResultsForRun(ctx context.Context, runID string) ([]model.ScanResult, error)
	// LatestResultForProvider returns the provider's result from the most
	// recent run that flagged it, or (nil, nil) if no run ever did.
	LatestResultForProvider(ctx context.Context, providerID string) (*model.ScanResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
