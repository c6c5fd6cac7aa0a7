package cryptotax

import (
	"fmt"
	"strings"
)

// GainsMarkdown renders the taxable disposals as a markdown report, one row
// per disposal in the layout of French form 2086. year filters the report to
// disposals of that calendar year; zero keeps everything.
func GainsMarkdown(gains []*TaxGain, year int) string {
	var b strings.Builder

	if year == 0 {
		fmt.Fprintf(&b, "# Capital Gains Report\n\n")
	} else {
		fmt.Fprintf(&b, "# Capital Gains Report %d\n\n", year)
	}

	var kept []*TaxGain
	for _, g := range gains {
		if year != 0 && g.At.Year() != year {
			continue
		}
		kept = append(kept, g)
	}
	if len(kept) == 0 {
		fmt.Fprint(&b, "No taxable disposal in the period.\n")
		return b.String()
	}

	fmt.Fprintln(&b, "| Date | Asset | Proceeds | Fees | Portfolio Value | Cost Basis | Basis Consumed | Gain |")
	fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|---:|---:|---:|")
	for _, g := range kept {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			g.At.Format("2006-01-02"),
			g.Currency,
			g.SellValueEUR.String(),
			g.FeeEUR.String(),
			g.PFTotalValueEUR.String(),
			g.PFCostBasisEUR.String(),
			g.WeightedBasisEUR.String(),
			g.GainEUR.SignedString(),
		)
	}
	fmt.Fprintf(&b, "| **Total** | | | | | | | **%s** |\n\n", TotalGain(kept).SignedString())

	fmt.Fprint(&b, "Each row maps to one disposal to declare on form 2086; ")
	fmt.Fprint(&b, "the gain is proceeds net of fees minus the consumed share of the global cost basis.\n")
	return b.String()
}

// FindingsMarkdown renders advisory check findings as a markdown list.
func FindingsMarkdown(findings []Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Ledger Check\n\n")
	if len(findings) == 0 {
		fmt.Fprint(&b, "No issue found.\n")
		return b.String()
	}
	for _, f := range findings {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	return b.String()
}
