package quote

import (
	"fmt"
	"math"
)

// Branch records which invoice rule produced a scenario.
type Branch string

const (
	// BranchFinanced is the target-profit solution with a positive cash gap.
	BranchFinanced Branch = "financed"
	// BranchFullyAdvanced is the target-profit solution where the advance
	// covers the whole shipment cost.
	BranchFullyAdvanced Branch = "fully_advanced"
	// BranchFixedPrice is a caller-supplied invoice value.
	BranchFixedPrice Branch = "fixed_price"
)

// Scenario is the full breakdown for one advance percentage.
type Scenario struct {
	AdvancePct           float64 `json:"advance_pct"`
	InvoiceValue         float64 `json:"invoice_value"`
	SellingPricePerUnit  float64 `json:"selling_price_per_unit"`
	AdvanceReceived      float64 `json:"advance_received"`
	BalanceReceived      float64 `json:"balance_received"`
	TotalShipmentCost    float64 `json:"total_shipment_cost"`
	CashGap              float64 `json:"cash_gap"`
	FinancingCost        float64 `json:"financing_cost"`
	FinancingCostPerUnit float64 `json:"financing_cost_per_unit"`
	GrossProfit          float64 `json:"gross_profit"`
	GrossProfitPctOnCost Percent `json:"gross_profit_pct_on_cost"`
	NetProfit            float64 `json:"net_profit"`
	NetProfitPctOnCost   Percent `json:"net_profit_pct_on_cost"`
	GrossProfitPerUnit   float64 `json:"gross_profit_per_unit"`
	NetProfitPerUnit     float64 `json:"net_profit_per_unit"`
}

// Output is the complete calculation: the cost basis, the financing factor and
// one scenario per distinct advance percentage in input order.
type Output struct {
	CostBasis
	FinancingFactor float64     `json:"financing_factor"`
	Scenarios       []Scenario  `json:"scenarios"`
	Explanation     Explanation `json:"explanation"`
}

// Explanation describes how each scenario's invoice value was reached.
type Explanation struct {
	FinancingFactor float64          `json:"financing_factor"`
	Rows            []ExplanationRow `json:"rows"`
}

type ExplanationRow struct {
	AdvancePct       float64 `json:"advance_pct"`
	Branch           Branch  `json:"branch"`
	InvoiceFormula   string  `json:"invoice_formula"`
	FinancingFormula string  `json:"financing_formula"`
}

// Calculate validates in and resolves every advance scenario. It fails as a
// whole: either every scenario is solved or an error is returned.
func Calculate(in Inputs) (Output, error) {
	q, err := in.Validate()
	if err != nil {
		return Output{}, err
	}
	return q.Calculate()
}

// Calculate resolves every advance scenario of a validated quote.
func (q Quote) Calculate() (Output, error) {
	basis, err := NewCostBasis(q.Quantity, q.UnitCostLocal, q.FXRate, q.Freight, q.Insurance, q.OtherCosts)
	if err != nil {
		return Output{}, err
	}
	factor := FinancingFactor(q.FinancingRateAnnualPct, q.CreditPeriodMonths)

	out := Output{
		CostBasis:       basis,
		FinancingFactor: factor,
		Scenarios:       make([]Scenario, 0, len(q.Advances)),
		Explanation: Explanation{
			FinancingFactor: factor,
			Rows:            make([]ExplanationRow, 0, len(q.Advances)),
		},
	}

	for _, a := range q.Advances {
		s, branch, err := Resolve(q.Rule, q.Quantity, basis, factor, a)
		if err != nil {
			return Output{}, err
		}
		out.Scenarios = append(out.Scenarios, s)
		out.Explanation.Rows = append(out.Explanation.Rows, explain(branch, a, factor))
	}
	return out, nil
}

// Resolve determines the invoice value for advance a under rule and expands it
// into a Scenario.
func Resolve(rule PricingRule, quantity int, basis CostBasis, factor, a float64) (Scenario, Branch, error) {
	if rule == nil {
		return Scenario{}, "", invalid("pricing_mode", "required")
	}
	if quantity <= 0 {
		return Scenario{}, "", invalid("quantity", "must be greater than zero")
	}

	invoice, branch, err := rule.invoice(a, basis.TotalShipmentCost, factor)
	if err != nil {
		return Scenario{}, "", err
	}
	if !finite(invoice) {
		return Scenario{}, "", &ScenarioError{AdvancePct: a, Reason: "invoice value is not a finite number"}
	}

	return expand(invoice, a, quantity, basis.TotalShipmentCost, factor), branch, nil
}

func (r TargetNetProfit) invoice(a, cost, factor float64) (float64, Branch, error) {
	// Branch 1 assumes the advance leaves a cash gap:
	// I - C - f*(C - a*I) = t*C  =>  I = C*(1+t+f) / (1+f*a)
	den := 1 + factor*a
	if den == 0 {
		return 0, "", &ScenarioError{
			AdvancePct: a,
			Reason:     fmt.Sprintf("financing factor %g makes 1 + factor*advance zero", factor),
		}
	}
	financed := cost * (1 + r.Pct + factor) / den
	if a*financed < cost {
		return financed, BranchFinanced, nil
	}
	// Branch 2: the advance covers the cost, nothing is financed.
	return cost * (1 + r.Pct), BranchFullyAdvanced, nil
}

func (r FixedPrice) invoice(_, _, _ float64) (float64, Branch, error) {
	return r.InvoiceValue, BranchFixedPrice, nil
}

func expand(invoice, a float64, quantity int, cost, factor float64) Scenario {
	q := float64(quantity)
	advance := a * invoice
	gap := math.Max(0, cost-advance)
	financing := factor * gap
	gross := invoice - cost
	net := gross - financing

	return Scenario{
		AdvancePct:           a,
		InvoiceValue:         invoice,
		SellingPricePerUnit:  invoice / q,
		AdvanceReceived:      advance,
		BalanceReceived:      invoice - advance,
		TotalShipmentCost:    cost,
		CashGap:              gap,
		FinancingCost:        financing,
		FinancingCostPerUnit: financing / q,
		GrossProfit:          gross,
		GrossProfitPctOnCost: ratio(gross, cost),
		NetProfit:            net,
		NetProfitPctOnCost:   ratio(net, cost),
		GrossProfitPerUnit:   gross / q,
		NetProfitPerUnit:     net / q,
	}
}

func explain(branch Branch, a, factor float64) ExplanationRow {
	row := ExplanationRow{
		AdvancePct:       a,
		Branch:           branch,
		FinancingFormula: fmt.Sprintf("Financing = max(0, Cost - Advance x Invoice) x %.4f", factor),
	}
	switch branch {
	case BranchFinanced:
		row.InvoiceFormula = "Invoice = Cost x (1 + target + factor) / (1 + advance x factor)"
	case BranchFullyAdvanced:
		row.InvoiceFormula = "Invoice = Cost x (1 + target)"
	default:
		row.InvoiceFormula = "Invoice = fixed invoice value"
	}
	return row
}
