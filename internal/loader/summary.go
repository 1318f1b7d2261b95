package loader

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clearline-health/claimscan/internal/model"
)

const (
	monthlyFile   = "provider_monthly.csv"
	procedureFile = "provider_procedure.csv"
)

// HasSummaries reports whether dir contains both preprocessed summary tables.
func HasSummaries(dir string) bool {
	for _, name := range []string{monthlyFile, procedureFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

// WriteSummaries persists both summary tables under dir so repeated scans
// skip raw ingestion.
func WriteSummaries(dir string, monthly []model.MonthlyAggregate, procedure []model.ProcedureAmountAggregate) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "loader: create processed dir")
	}

	monthlyRecords := [][]string{{"provider_id", "month", "claim_count", "paid_amount", "beneficiaries"}}
	for _, row := range monthly {
		monthlyRecords = append(monthlyRecords, []string{
			row.ProviderID,
			row.Month,
			strconv.FormatInt(row.ClaimCount, 10),
			strconv.FormatFloat(row.PaidAmount, 'f', 2, 64),
			strconv.FormatInt(row.Beneficiaries, 10),
		})
	}
	if err := writeCSV(filepath.Join(dir, monthlyFile), monthlyRecords); err != nil {
		return err
	}

	procedureRecords := [][]string{{"provider_id", "paid_amount", "row_count"}}
	for _, row := range procedure {
		procedureRecords = append(procedureRecords, []string{
			row.ProviderID,
			strconv.FormatFloat(row.PaidAmount, 'f', 2, 64),
			strconv.FormatInt(row.RowCount, 10),
		})
	}
	if err := writeCSV(filepath.Join(dir, procedureFile), procedureRecords); err != nil {
		return err
	}

	zap.L().Info("loader: wrote summary tables",
		zap.String("dir", dir),
		zap.Int("monthly_rows", len(monthly)),
		zap.Int("procedure_rows", len(procedure)),
	)
	return nil
}

// LoadSummaries reads both preprocessed summary tables from dir.
func LoadSummaries(dir string) ([]model.MonthlyAggregate, []model.ProcedureAmountAggregate, error) {
	monthlyRecords, err := readCSV(filepath.Join(dir, monthlyFile))
	if err != nil {
		return nil, nil, err
	}
	if len(monthlyRecords) < 1 {
		return nil, nil, eris.Errorf("loader: %s is empty", monthlyFile)
	}

	var monthly []model.MonthlyAggregate
	for _, record := range monthlyRecords[1:] {
		if len(record) < 5 {
			continue
		}
		claims, _ := strconv.ParseInt(record[2], 10, 64)
		paid, _ := strconv.ParseFloat(record[3], 64)
		beneficiaries, _ := strconv.ParseInt(record[4], 10, 64)
		monthly = append(monthly, model.MonthlyAggregate{
			ProviderID:    record[0],
			Month:         record[1],
			ClaimCount:    claims,
			PaidAmount:    paid,
			Beneficiaries: beneficiaries,
		})
	}

	procedureRecords, err := readCSV(filepath.Join(dir, procedureFile))
	if err != nil {
		return nil, nil, err
	}
	if len(procedureRecords) < 1 {
		return nil, nil, eris.Errorf("loader: %s is empty", procedureFile)
	}

	var procedure []model.ProcedureAmountAggregate
	for _, record := range procedureRecords[1:] {
		if len(record) < 3 {
			continue
		}
		paid, _ := strconv.ParseFloat(record[1], 64)
		count, _ := strconv.ParseInt(record[2], 10, 64)
		procedure = append(procedure, model.ProcedureAmountAggregate{
			ProviderID: record[0],
			PaidAmount: paid,
			RowCount:   count,
		})
	}

	return monthly, procedure, nil
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "loader: create %s", filepath.Base(path))
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return eris.Wrapf(err, "loader: write %s", filepath.Base(path))
	}
	w.Flush()
	return eris.Wrapf(w.Error(), "loader: flush %s", filepath.Base(path))
}
