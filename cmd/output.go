package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/clearline-health/claimscan/internal/model"
)

// outputScanResults renders ranked results as a terminal table or CSV.
func outputScanResults(results []model.ScanResult, format, outputPath string, top int) error {
	if format == "csv" {
		return writeResultsCSV(results, outputPath)
	}

	if len(results) == 0 {
		fmt.Println("No suspicious providers above threshold.")
		return nil
	}

	if top <= 0 || top > len(results) {
		top = len(results)
	}
	fmt.Printf("Top %d suspicious providers:\n", top)
	fmt.Println(strings.Repeat("-", 80))
	for i, result := range results[:top] {
		fmt.Printf("%4d. %-12s score %.0f%%  flags %d (%s)\n",
			i+1, result.ProviderID, result.OverallScore*100,
			len(result.RedFlags), flagKindSummary(result.RedFlags))
	}
	if len(results) > top {
		fmt.Printf("... and %d more\n", len(results)-top)
	}
	fmt.Println("\nTo investigate a provider, run: claimscan profile <provider-id>")
	return nil
}

func writeResultsCSV(results []model.ScanResult, outputPath string) error {
	out := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return eris.Wrap(err, "output: create csv")
		}
		defer f.Close()
		out = f
	}

	w := csv.NewWriter(out)
	if err := w.Write([]string{"rank", "provider_id", "score", "num_flags", "flag_kinds"}); err != nil {
		return eris.Wrap(err, "output: write csv header")
	}
	for i, result := range results {
		record := []string{
			strconv.Itoa(i + 1),
			result.ProviderID,
			strconv.FormatFloat(result.OverallScore, 'f', 3, 64),
			strconv.Itoa(len(result.RedFlags)),
			flagKindSummary(result.RedFlags),
		}
		if err := w.Write(record); err != nil {
			return eris.Wrap(err, "output: write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "output: flush csv")
	}
	if outputPath != "" {
		fmt.Printf("Full results saved to %s\n", outputPath)
	}
	return nil
}

// flagKindSummary returns the distinct flag kinds in a stable order.
func flagKindSummary(flags []model.RedFlag) string {
	seen := make(map[string]struct{})
	for _, f := range flags {
		seen[string(f.Kind)] = struct{}{}
	}
	kinds := make([]string, 0, len(seen))
	for kind := range seen {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return strings.Join(kinds, ", ")
}

// printDossier renders a dossier to the terminal.
func printDossier(d *model.Dossier) {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Provider: %s\n", d.ProviderID)
	if d.Provider != nil {
		if d.Provider.Name != "" {
			fmt.Printf("Name: %s\n", d.Provider.Name)
		}
		if d.Provider.Specialty != "" {
			fmt.Printf("Specialty: %s\n", d.Provider.Specialty)
		}
		if d.Provider.City != "" || d.Provider.State != "" {
			fmt.Printf("Location: %s %s\n", d.Provider.City, d.Provider.State)
		}
	}

	s := d.ClaimsSummary
	fmt.Printf("Total Claims: %d\n", s.TotalClaims)
	fmt.Printf("Total Paid: $%.2f\n", s.TotalPaid)
	if s.PaidPerClaim > 0 {
		fmt.Printf("Paid Per Claim: $%.2f\n", s.PaidPerClaim)
	}
	fmt.Printf("Active Months: %d (%s to %s)\n", s.ActiveMonths, s.FirstMonth, s.LastMonth)
	if s.PeakMonth != "" {
		fmt.Printf("Peak Month: %s ($%.2f, %d claims)\n", s.PeakMonth, s.PeakMonthPaid, s.PeakMonthClaims)
	}

	if d.PeerComparison.Available {
		pc := d.PeerComparison
		fmt.Printf("\nPeer Comparison (%d providers):\n", pc.PeerCount)
		fmt.Printf("  Provider total: $%.2f (%.1f percentile)\n", pc.ProviderTotal, pc.PercentileRank)
		fmt.Printf("  Peer mean: $%.2f, median: $%.2f\n", pc.PeerMean, pc.PeerMedian)
		if pc.ZScore != nil {
			fmt.Printf("  Z-score vs peers: %.2f\n", *pc.ZScore)
		}
	} else if d.PeerComparison.Note != "" {
		fmt.Printf("\nPeer Comparison: %s\n", d.PeerComparison.Note)
	}

	if d.ScanResult != nil && len(d.ScanResult.RedFlags) > 0 {
		fmt.Printf("\nRed Flags (%d), overall score %.0f%%:\n",
			len(d.ScanResult.RedFlags), d.ScanResult.OverallScore*100)
		for _, flag := range d.ScanResult.RedFlags {
			fmt.Printf("  - [%.0f%%] %s\n", flag.Severity*100, flag.Description)
		}
	} else {
		fmt.Println("\nNo red flags on record for this provider.")
	}
}
