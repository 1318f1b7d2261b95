package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearline-health/claimscan/internal/model"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "claims.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadClaims(t *testing.T) {
	t.Run("hhs column names", func(t *testing.T) {
		path := writeTempCSV(t, `BILLING_PROVIDER_NPI_NUM,CLAIM_FROM_MONTH,HCPCS_CODE,TOTAL_CLAIMS,TOTAL_PAID,TOTAL_UNIQUE_BENEFICIARIES
1234567890,2024-01,99213,12,480.50,9
1234567890,2024-02,99213,8,320.00,7
`)
		rows, err := ReadClaims(path)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "1234567890", rows[0].ProviderID)
		assert.Equal(t, "2024-01", rows[0].Month)
		assert.Equal(t, "99213", rows[0].ProcedureCode)
		assert.Equal(t, int64(12), rows[0].Claims)
		assert.InDelta(t, 480.50, rows[0].Paid, 1e-9)
		assert.Equal(t, int64(9), rows[0].Beneficiaries)
	})

	t.Run("internal column names", func(t *testing.T) {
		path := writeTempCSV(t, `provider_id,month,claim_count,paid_amount
p1,2024-01,5,100.00
`)
		rows, err := ReadClaims(path)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "p1", rows[0].ProviderID)
	})

	t.Run("missing required column", func(t *testing.T) {
		path := writeTempCSV(t, `provider_id,month,claim_count
p1,2024-01,5
`)
		_, err := ReadClaims(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "paid_amount")
	})

	t.Run("malformed rows skipped not fatal", func(t *testing.T) {
		path := writeTempCSV(t, `provider_id,month,claim_count,paid_amount
p1,2024-01,5,100.00
,2024-01,5,100.00
p2,2024-01,not-a-number,100.00
p3,2024-02,3,"$1,250.75"
`)
		rows, err := ReadClaims(path)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "p1", rows[0].ProviderID)
		assert.Equal(t, "p3", rows[1].ProviderID)
		assert.InDelta(t, 1250.75, rows[1].Paid, 1e-9)
	})

	t.Run("no data rows", func(t *testing.T) {
		path := writeTempCSV(t, "provider_id,month,claim_count,paid_amount\n")
		_, err := ReadClaims(path)
		assert.Error(t, err)
	})
}

func TestAggregateMonthly(t *testing.T) {
	rows := []ClaimRow{
		{ProviderID: "p1", Month: "2024-01", Claims: 5, Paid: 100, Beneficiaries: 3},
		{ProviderID: "p1", Month: "2024-01", Claims: 3, Paid: 50, Beneficiaries: 2},
		{ProviderID: "p1", Month: "2024-02", Claims: 1, Paid: 10},
		{ProviderID: "p0", Month: "2024-01", Claims: 2, Paid: 20},
	}
	monthly := AggregateMonthly(rows)
	require.Len(t, monthly, 3)

	// Ordered by provider then month.
	assert.Equal(t, "p0", monthly[0].ProviderID)
	assert.Equal(t, model.MonthlyAggregate{
		ProviderID: "p1", Month: "2024-01", ClaimCount: 8, PaidAmount: 150, Beneficiaries: 5,
	}, monthly[1])
	assert.Equal(t, "2024-02", monthly[2].Month)
}

func TestAggregateProcedureAmounts(t *testing.T) {
	rows := []ClaimRow{
		{ProviderID: "p1", Paid: 99.99},
		{ProviderID: "p1", Paid: 99.99},
		{ProviderID: "p1", Paid: 50.00},
		{ProviderID: "p2", Paid: 99.99},
	}
	procedure := AggregateProcedureAmounts(rows)
	require.Len(t, procedure, 3)

	assert.Equal(t, model.ProcedureAmountAggregate{
		ProviderID: "p1", PaidAmount: 50.00, RowCount: 1,
	}, procedure[0])
	assert.Equal(t, model.ProcedureAmountAggregate{
		ProviderID: "p1", PaidAmount: 99.99, RowCount: 2,
	}, procedure[1])
	assert.Equal(t, "p2", procedure[2].ProviderID)
}

func TestSummariesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, HasSummaries(dir))

	monthly := []model.MonthlyAggregate{
		{ProviderID: "p1", Month: "2024-01", ClaimCount: 8, PaidAmount: 150.25, Beneficiaries: 5},
		{ProviderID: "p2", Month: "2024-02", ClaimCount: 1, PaidAmount: 10},
	}
	procedure := []model.ProcedureAmountAggregate{
		{ProviderID: "p1", PaidAmount: 99.99, RowCount: 40},
	}

	require.NoError(t, WriteSummaries(dir, monthly, procedure))
	assert.True(t, HasSummaries(dir))

	gotMonthly, gotProcedure, err := LoadSummaries(dir)
	require.NoError(t, err)
	assert.Equal(t, monthly, gotMonthly)
	assert.Equal(t, procedure, gotProcedure)
}

func TestLoadSummariesMissing(t *testing.T) {
	_, _, err := LoadSummaries(t.TempDir())
	assert.Error(t, err)
}
