// Package loader ingests raw claims exports and pre-aggregates them into the
// two fixed-schema summary tables the scanning engine consumes. All column
// aliasing happens here; the engine only ever sees the fixed schema.
package loader

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ClaimRow is one normalized line item from a raw claims export.
type ClaimRow struct {
	ProviderID    string
	Month         string
	ProcedureCode string
	Claims        int64
	Paid          float64
	Beneficiaries int64
}

// columnAliases maps canonical column names to the raw headers they may
// appear under. HHS exports use the upper-case forms.
var columnAliases = map[string][]string{
	"provider_id":    {"provider_id", "npi", "BILLING_PROVIDER_NPI_NUM", "NPI"},
	"month":          {"month", "service_month", "CLAIM_FROM_MONTH"},
	"claim_count":    {"claim_count", "total_claims", "TOTAL_CLAIMS"},
	"paid_amount":    {"paid_amount", "total_paid", "TOTAL_PAID"},
	"beneficiaries":  {"beneficiaries", "TOTAL_UNIQUE_BENEFICIARIES"},
	"procedure_code": {"procedure_code", "HCPCS_CODE"},
}

var requiredColumns = []string{"provider_id", "month", "claim_count", "paid_amount"}

// ReadClaims reads a raw claims export, CSV or XLSX by extension, and
// normalizes it into claim rows.
func ReadClaims(path string) ([]ClaimRow, error) {
	var records [][]string
	var err error
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		records, err = readXLSX(path)
	} else {
		records, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}

	rows, err := parseRecords(records)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: parse %s", filepath.Base(path))
	}

	zap.L().Info("loader: read claims export",
		zap.String("path", path),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "loader: open csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "loader: read csv")
	}
	return records, nil
}

// parseRecords resolves column aliases from the header row and converts the
// remaining rows. Rows with an empty provider ID or unparseable numerics are
// skipped, not fatal; a malformed minority must not sink the dataset.
func parseRecords(records [][]string) ([]ClaimRow, error) {
	if len(records) < 2 {
		return nil, eris.New("loader: export has no data rows")
	}

	header := records[0]
	rawIdx := make(map[string]int, len(header))
	for i, col := range header {
		rawIdx[strings.TrimSpace(col)] = i
	}

	colIdx := make(map[string]int, len(columnAliases))
	for canonical, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := rawIdx[alias]; ok {
				colIdx[canonical] = i
				break
			}
		}
	}
	for _, col := range requiredColumns {
		if _, ok := colIdx[col]; !ok {
			return nil, eris.Errorf("loader: missing required column %q (or an alias)", col)
		}
	}

	var rows []ClaimRow
	var skipped int
	for _, record := range records[1:] {
		providerID := strings.TrimSpace(getCol(record, colIdx, "provider_id"))
		if providerID == "" {
			skipped++
			continue
		}

		claims, err1 := parseInt(getCol(record, colIdx, "claim_count"))
		paid, err2 := parseFloat(getCol(record, colIdx, "paid_amount"))
		if err1 != nil || err2 != nil {
			skipped++
			continue
		}

		beneficiaries, _ := parseInt(getCol(record, colIdx, "beneficiaries"))

		rows = append(rows, ClaimRow{
			ProviderID:    providerID,
			Month:         strings.TrimSpace(getCol(record, colIdx, "month")),
			ProcedureCode: strings.TrimSpace(getCol(record, colIdx, "procedure_code")),
			Claims:        claims,
			Paid:          paid,
			Beneficiaries: beneficiaries,
		})
	}

	if skipped > 0 {
		zap.L().Warn("loader: skipped malformed rows", zap.Int("skipped", skipped))
	}
	return rows, nil
}

func getCol(record []string, colIdx map[string]int, name string) string {
	i, ok := colIdx[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func parseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Some exports write counts as decimals.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, err
		}
		return int64(f), nil
	}
	return v, nil
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}
