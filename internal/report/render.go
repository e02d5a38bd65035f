// Package report renders evaluation output for the CLI: ranked opportunity
// tables, single-market report summaries and raw JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/quantrail/merchantiq/internal/models"
)

var printer = message.NewPrinter(language.English)

// Money formats an amount with its currency symbol, falling back to a
// plain "CODE amount" string for codes the CLDR tables do not know.
func Money(amount decimal.Decimal, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %s", code, amount.StringFixed(2))
	}
	return printer.Sprint(currency.Symbol(unit.Amount(amount.InexactFloat64())))
}

func ratio(v *decimal.Decimal) string {
	if v == nil {
		return "n/a"
	}
	return v.Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}

// WriteArbitrageRun prints the ranked opportunity table followed by the
// skip list, so a partial run is visibly partial.
func WriteArbitrageRun(w io.Writer, run *models.ArbitrageRun) {
	fmt.Fprintf(w, "Cross-marketplace opportunities for %s (run %s)\n\n", run.ASIN, run.RunID)

	if len(run.Opportunities) == 0 {
		fmt.Fprintln(w, "No opportunities found.")
	} else {
		table := tablewriter.NewWriter(w)
		table.Header("#", "Buy", "Sell", "Buy Price", "Sell Price", "Net Profit", "ROI", "Margin", "Risk", "Verdict")
		for i, opp := range run.Opportunities {
			table.Append(
				fmt.Sprintf("%d", i+1),
				opp.BuyMarketplace,
				opp.SellMarketplace,
				Money(opp.BuyPrice, opp.BuyCurrency),
				Money(opp.SellPrice, opp.SellCurrency),
				Money(opp.Profit.NetProfit, opp.Profit.Currency),
				ratio(opp.Profit.ROI),
				ratio(opp.Profit.Margin),
				fmt.Sprintf("%.2f", opp.Risk.Aggregate),
				string(opp.Verdict),
			)
		}
		table.Render()
	}

	writeSkips(w, run.Skipped)
}

// WriteMarketReport prints a single-market evaluation.
func WriteMarketReport(w io.Writer, r *models.MarketReport) {
	fmt.Fprintf(w, "Report for %s on %s (engine %s)\n\n", r.ASIN, r.Marketplace, r.EngineVersion)

	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")
	table.Append("Verdict", string(r.Verdict))
	table.Append("Verdict rule", r.VerdictRule)
	table.Append("Net profit", Money(r.Profit.NetProfit, r.Profit.Currency))
	table.Append("ROI", ratio(r.Profit.ROI))
	table.Append("Margin", ratio(r.Profit.Margin))
	table.Append("Fees", Money(r.Profit.Fees, r.Profit.Currency))
	table.Append("Rank velocity", fmt.Sprintf("%.2f/day", r.Trend.RankVelocity))
	table.Append("Review momentum", fmt.Sprintf("%.2f/day", r.Trend.ReviewMomentum))
	table.Append("Trend samples", fmt.Sprintf("%d", r.Trend.SampleCount))
	table.Append("Velocity grade", string(r.VelocityGrade))
	table.Append("Aggregate risk", fmt.Sprintf("%.2f", r.Risk.Aggregate))
	table.Render()

	for _, line := range riskLines(r.Risk) {
		fmt.Fprintln(w, line)
	}
}

// riskLines lists the per-dimension scores in a stable order, marking the
// ones computed from proxy data.
func riskLines(risk models.RiskScore) []string {
	dims := make([]string, 0, len(risk.Dimensions))
	for dim := range risk.Dimensions {
		dims = append(dims, dim)
	}
	sort.Strings(dims)

	proxy := make(map[string]bool, len(risk.LowConfidence))
	for _, dim := range risk.LowConfidence {
		proxy[dim] = true
	}

	lines := make([]string, 0, len(dims))
	for _, dim := range dims {
		line := fmt.Sprintf("  risk %-12s %.2f", dim, risk.Dimensions[dim])
		if proxy[dim] {
			line += " (low confidence)"
		}
		lines = append(lines, line)
	}
	return lines
}

// WriteBatchResult prints the batch summary: counts first, then every
// skipped unit with its reason.
func WriteBatchResult(w io.Writer, result *models.BatchResult) {
	fmt.Fprintf(w, "Batch run %s: %d succeeded, %d skipped\n\n", result.RunID, result.Succeeded, len(result.Skipped))

	if len(result.Reports) > 0 {
		table := tablewriter.NewWriter(w)
		table.Header("ASIN", "Marketplace", "Net Profit", "ROI", "Risk", "Verdict")
		for _, r := range result.Reports {
			table.Append(
				r.ASIN,
				r.Marketplace,
				Money(r.Profit.NetProfit, r.Profit.Currency),
				ratio(r.Profit.ROI),
				fmt.Sprintf("%.2f", r.Risk.Aggregate),
				string(r.Verdict),
			)
		}
		table.Render()
	}

	writeSkips(w, result.Skipped)
}

// WriteJSON emits any report value as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSkips(w io.Writer, skips []models.SkipEntry) {
	if len(skips) == 0 {
		return
	}
	fmt.Fprintf(w, "\nSkipped %d unit(s):\n", len(skips))
	for _, s := range skips {
		fmt.Fprintf(w, "  %s %s: %s\n", s.ASIN, s.Unit, s.Reason)
	}
}
