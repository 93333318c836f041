package export

import (
	"github.com/shopspring/decimal"

	"github.com/khoslavarun/QuoteBuilder/internal/quote"
)

type valueKind int

const (
	kindMoney valueKind = iota
	kindUnit
	kindPercent
)

// NotApplicable is written for a percentage taken against a zero cost basis.
const NotApplicable = "n/a"

type metric struct {
	label string
	kind  valueKind
	value func(quote.Scenario) float64
	pct   func(quote.Scenario) quote.Percent
}

// metrics lists the rows of the scenario grid in display order.
var metrics = []metric{
	{label: "Invoice value", kind: kindMoney, value: func(s quote.Scenario) float64 { return s.InvoiceValue }},
	{label: "Selling price per unit", kind: kindUnit, value: func(s quote.Scenario) float64 { return s.SellingPricePerUnit }},
	{label: "Advance received", kind: kindMoney, value: func(s quote.Scenario) float64 { return s.AdvanceReceived }},
	{label: "Balance received after credit period", kind: kindMoney, value: func(s quote.Scenario) float64 { return s.BalanceReceived }},
	{label: "Total shipment cost (landed)", kind: kindMoney, value: func(s quote.Scenario) float64 { return s.TotalShipmentCost }},
	{label: "Cash gap to finance", kind: kindMoney, value: func(s quote.Scenario) float64 { return s.CashGap }},
	{label: "Financing cost", kind: kindMoney, value: func(s quote.Scenario) float64 { return s.FinancingCost }},
	{label: "Financing cost per unit", kind: kindUnit, value: func(s quote.Scenario) float64 { return s.FinancingCostPerUnit }},
	{label: "Gross profit (Invoice - Cost)", kind: kindMoney, value: func(s quote.Scenario) float64 { return s.GrossProfit }},
	{label: "Gross profit % on cost", kind: kindPercent, pct: func(s quote.Scenario) quote.Percent { return s.GrossProfitPctOnCost }},
	{label: "Net profit (after financing)", kind: kindMoney, value: func(s quote.Scenario) float64 { return s.NetProfit }},
	{label: "Net profit % on cost", kind: kindPercent, pct: func(s quote.Scenario) quote.Percent { return s.NetProfitPctOnCost }},
	{label: "Gross profit per unit", kind: kindUnit, value: func(s quote.Scenario) float64 { return s.GrossProfitPerUnit }},
	{label: "Net profit per unit", kind: kindUnit, value: func(s quote.Scenario) float64 { return s.NetProfitPerUnit }},
}

// Money renders a currency amount with two decimals, half away from zero.
func Money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// UnitValue renders a per-unit amount with six decimals.
func UnitValue(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(6)
}

// Percentage renders a fraction as "xx.xx%" or NotApplicable.
func Percentage(p quote.Percent) string {
	v, err := p.Float64()
	if err != nil {
		return NotApplicable
	}
	return decimal.NewFromFloat(v).Shift(2).StringFixed(2) + "%"
}

// AdvanceLabel renders an advance fraction as a column heading: 0.3 -> "30%".
func AdvanceLabel(a float64) string {
	return decimal.NewFromFloat(a).Shift(2).String() + "%"
}

func (m metric) format(s quote.Scenario) string {
	switch m.kind {
	case kindPercent:
		return Percentage(m.pct(s))
	case kindUnit:
		return UnitValue(m.value(s))
	default:
		return Money(m.value(s))
	}
}

// grid is the scenario table as strings: a header row followed by one row per
// metric, the first column holding the label.
func grid(out quote.Output) [][]string {
	header := make([]string, 0, len(out.Scenarios)+1)
	header = append(header, "Metric")
	advances := make([]string, 0, len(out.Scenarios)+1)
	advances = append(advances, "Advance % of invoice")
	for _, s := range out.Scenarios {
		header = append(header, AdvanceLabel(s.AdvancePct))
		advances = append(advances, AdvanceLabel(s.AdvancePct))
	}

	rows := [][]string{header, advances}
	for _, m := range metrics {
		row := make([]string, 0, len(out.Scenarios)+1)
		row = append(row, m.label)
		for _, s := range out.Scenarios {
			row = append(row, m.format(s))
		}
		rows = append(rows, row)
	}
	return rows
}

type basisLine struct {
	label string
	value string
}

func costBasis(out quote.Output) []basisLine {
	return []basisLine{
		{"Unit cost (quote currency)", UnitValue(out.UnitCostQuoteCurrency)},
		{"Per-unit add-on", UnitValue(out.PerUnitAddon)},
		{"Landed cost per unit", UnitValue(out.LandedCostPerUnit)},
		{"Total shipment cost", Money(out.TotalShipmentCost)},
		{"Financing factor", Percentage(quote.DefinedPercent(out.FinancingFactor))},
	}
}
