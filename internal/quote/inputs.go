package quote

import (
	"math"
)

// PricingMode selects how the invoice value is obtained. The string values are
// the tokens stored with saved runs.
type PricingMode string

const (
	ModeTargetNetProfit PricingMode = "A"
	ModeFixedPrice      PricingMode = "B"
)

// Inputs is the flat request shape shared with calling layers and persisted
// verbatim with saved runs. The cost and financing fields are pointers so an
// omitted value is rejected instead of read as zero; other_costs defaults to 0.
type Inputs struct {
	Quantity               int         `json:"quantity"`
	UnitCostLocal          *float64    `json:"unit_cost_local"`
	FXRate                 float64     `json:"fx_rate"`
	Freight                *float64    `json:"freight"`
	Insurance              *float64    `json:"insurance"`
	OtherCosts             float64     `json:"other_costs"`
	FinancingRateAnnualPct *float64    `json:"financing_rate_annual_pct"`
	CreditPeriodMonths     *float64    `json:"credit_period_months"`
	PricingMode            PricingMode `json:"pricing_mode"`

	TargetNetProfitPctOnCost *float64 `json:"target_net_profit_pct_on_cost,omitempty"`
	FixedInvoiceValue        *float64 `json:"fixed_invoice_value,omitempty"`
	FixedPricePerUnit        *float64 `json:"fixed_price_per_unit,omitempty"`

	AdvancePercentages []float64 `json:"advance_percentages"`
}

// PricingRule is the mode-specific part of a quote. Exactly one rule applies
// to a validated quote.
type PricingRule interface {
	Mode() PricingMode
	invoice(a, cost, factor float64) (float64, Branch, error)
}

// TargetNetProfit solves for the invoice value that leaves Pct of the total
// shipment cost as net profit after financing.
type TargetNetProfit struct {
	Pct float64
}

func (TargetNetProfit) Mode() PricingMode { return ModeTargetNetProfit }

// FixedPrice uses the same invoice value for every advance scenario.
type FixedPrice struct {
	InvoiceValue float64
}

func (FixedPrice) Mode() PricingMode { return ModeFixedPrice }

// Quote is a validated set of inputs.
type Quote struct {
	Quantity               int
	UnitCostLocal          float64
	FXRate                 float64
	Freight                float64
	Insurance              float64
	OtherCosts             float64
	FinancingRateAnnualPct float64
	CreditPeriodMonths     float64
	Rule                   PricingRule
	Advances               []float64
}

// Validate checks the inputs and resolves the mode-specific fields into a
// PricingRule. Fields belonging to the inactive mode are ignored. Duplicate
// advance percentages collapse onto their first occurrence.
func (in Inputs) Validate() (Quote, error) {
	if in.Quantity <= 0 {
		return Quote{}, invalid("quantity", "must be greater than zero")
	}
	if !finite(in.FXRate) || in.FXRate <= 0 {
		return Quote{}, invalid("fx_rate", "must be greater than zero")
	}

	required := []struct {
		field string
		value *float64
	}{
		{"unit_cost_local", in.UnitCostLocal},
		{"freight", in.Freight},
		{"insurance", in.Insurance},
		{"financing_rate_annual_pct", in.FinancingRateAnnualPct},
		{"credit_period_months", in.CreditPeriodMonths},
	}
	for _, r := range required {
		if r.value == nil {
			return Quote{}, invalid(r.field, "required")
		}
		if !finite(*r.value) {
			return Quote{}, invalid(r.field, "must be a finite number")
		}
	}
	if !finite(in.OtherCosts) {
		return Quote{}, invalid("other_costs", "must be a finite number")
	}

	rule, err := in.rule()
	if err != nil {
		return Quote{}, err
	}

	advances, err := uniqueAdvances(in.AdvancePercentages)
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		Quantity:               in.Quantity,
		UnitCostLocal:          *in.UnitCostLocal,
		FXRate:                 in.FXRate,
		Freight:                *in.Freight,
		Insurance:              *in.Insurance,
		OtherCosts:             in.OtherCosts,
		FinancingRateAnnualPct: *in.FinancingRateAnnualPct,
		CreditPeriodMonths:     *in.CreditPeriodMonths,
		Rule:                   rule,
		Advances:               advances,
	}, nil
}

func (in Inputs) rule() (PricingRule, error) {
	switch in.PricingMode {
	case ModeTargetNetProfit:
		if in.TargetNetProfitPctOnCost == nil {
			return nil, invalid("target_net_profit_pct_on_cost", "required for pricing mode A")
		}
		if !finite(*in.TargetNetProfitPctOnCost) {
			return nil, invalid("target_net_profit_pct_on_cost", "must be a finite number")
		}
		return TargetNetProfit{Pct: *in.TargetNetProfitPctOnCost}, nil

	case ModeFixedPrice:
		switch {
		case in.FixedInvoiceValue != nil && in.FixedPricePerUnit != nil:
			return nil, invalid("fixed_invoice_value", "supply either fixed_invoice_value or fixed_price_per_unit, not both")
		case in.FixedInvoiceValue != nil:
			if !finite(*in.FixedInvoiceValue) {
				return nil, invalid("fixed_invoice_value", "must be a finite number")
			}
			return FixedPrice{InvoiceValue: *in.FixedInvoiceValue}, nil
		case in.FixedPricePerUnit != nil:
			if !finite(*in.FixedPricePerUnit) {
				return nil, invalid("fixed_price_per_unit", "must be a finite number")
			}
			return FixedPrice{InvoiceValue: *in.FixedPricePerUnit * float64(in.Quantity)}, nil
		default:
			return nil, invalid("fixed_invoice_value", "pricing mode B requires fixed_invoice_value or fixed_price_per_unit")
		}

	case "":
		return nil, invalid("pricing_mode", "required")
	default:
		return nil, invalid("pricing_mode", `must be "A" or "B"`)
	}
}

func uniqueAdvances(values []float64) ([]float64, error) {
	if len(values) == 0 {
		return nil, invalid("advance_percentages", "at least one advance percentage is required")
	}
	seen := make(map[float64]struct{}, len(values))
	out := make([]float64, 0, len(values))
	for _, a := range values {
		if !finite(a) || a < 0 {
			return nil, invalid("advance_percentages", "values must be finite and not negative")
		}
		// -0 and 0 are the same advance.
		if a == 0 {
			a = 0
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
