package export

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/khoslavarun/QuoteBuilder/internal/quote"
)

func renderMarkdown(r Report) string {
	var b strings.Builder
	out := r.Output

	fmt.Fprintf(&b, "# %s\n\n", r.title())

	if in := r.Inputs; in != nil {
		b.WriteString("## Inputs\n\n")
		b.WriteString("| Field | Value |\n|---|---:|\n")
		fmt.Fprintf(&b, "| Quantity | %d |\n", in.Quantity)
		fmt.Fprintf(&b, "| Unit cost (local) | %s |\n", UnitValue(inputValue(in.UnitCostLocal)))
		fmt.Fprintf(&b, "| FX rate | %s |\n", UnitValue(in.FXRate))
		fmt.Fprintf(&b, "| Freight | %s |\n", Money(inputValue(in.Freight)))
		fmt.Fprintf(&b, "| Insurance | %s |\n", Money(inputValue(in.Insurance)))
		fmt.Fprintf(&b, "| Other costs | %s |\n", Money(in.OtherCosts))
		fmt.Fprintf(&b, "| Financing rate (annual %%) | %s |\n", Money(inputValue(in.FinancingRateAnnualPct)))
		fmt.Fprintf(&b, "| Credit period (months) | %s |\n", Money(inputValue(in.CreditPeriodMonths)))
		fmt.Fprintf(&b, "| Pricing mode | %s |\n", pricingModeLabel(*in))
		b.WriteString("\n")
	}

	b.WriteString("## Cost basis\n\n")
	b.WriteString("| Item | Value |\n|---|---:|\n")
	for _, line := range costBasis(out) {
		fmt.Fprintf(&b, "| %s | %s |\n", line.label, line.value)
	}
	b.WriteString("\n")

	b.WriteString("## Scenarios\n\n")
	rows := grid(out)
	writeMarkdownRow(&b, rows[0])
	b.WriteString("|---")
	for range rows[0][1:] {
		b.WriteString("|---:")
	}
	b.WriteString("|\n")
	for _, row := range rows[2:] {
		writeMarkdownRow(&b, row)
	}
	b.WriteString("\n")

	if len(out.Explanation.Rows) > 0 {
		b.WriteString("## How the invoice was derived\n\n")
		for _, row := range out.Explanation.Rows {
			fmt.Fprintf(&b, "- **%s advance** (%s): `%s`; `%s`\n",
				AdvanceLabel(row.AdvancePct), row.Branch, row.InvoiceFormula, row.FinancingFormula)
		}
	}
	return b.String()
}

func writeMarkdownRow(b *strings.Builder, cells []string) {
	for _, c := range cells {
		b.WriteString("| ")
		b.WriteString(strings.ReplaceAll(c, "|", `\|`))
		b.WriteString(" ")
	}
	b.WriteString("|\n")
}

func pricingModeLabel(in quote.Inputs) string {
	switch in.PricingMode {
	case quote.ModeTargetNetProfit:
		if in.TargetNetProfitPctOnCost != nil {
			return "A, target net profit " + Percentage(quote.DefinedPercent(*in.TargetNetProfitPctOnCost)) + " on cost"
		}
	case quote.ModeFixedPrice:
		if in.FixedInvoiceValue != nil {
			return "B, fixed invoice value " + Money(*in.FixedInvoiceValue)
		}
		if in.FixedPricePerUnit != nil {
			return "B, fixed price per unit " + UnitValue(*in.FixedPricePerUnit)
		}
	}
	return string(in.PricingMode)
}

func writeHTML(w io.Writer, r Report) error {
	var body bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(renderMarkdown(r)), &body); err != nil {
		return fmt.Errorf("markdown convert: %w", err)
	}

	_, err := io.WriteString(w, "<!doctype html><html><head><meta charset='utf-8'><title>"+
		html.EscapeString(r.title())+"</title><style>"+
		"body{font-family:system-ui,sans-serif;max-width:1100px;margin:1rem auto;padding:0 1rem;} "+
		"table{border-collapse:collapse;font-size:0.85rem;margin-bottom:1rem;} "+
		"th,td{border:1px solid #a8a29e;padding:0.3rem 0.5rem;} thead th{background:#f1f5f9;}"+
		"</style></head><body>"+body.String()+"</body></html>")
	return err
}

func inputValue(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
