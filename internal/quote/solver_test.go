package quote

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func nearlyEqual(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func ptr(v float64) *float64 { return &v }

// exportInputs mirrors the calculator defaults: 1000 units at 250 local, FX 82.
func exportInputs() Inputs {
	return Inputs{
		Quantity:               1000,
		UnitCostLocal:          ptr(250),
		FXRate:                 82,
		Freight:                ptr(400),
		Insurance:              ptr(150),
		OtherCosts:             50,
		FinancingRateAnnualPct: ptr(12),
		CreditPeriodMonths:     ptr(4),
		PricingMode:            ModeFixedPrice,
		FixedPricePerUnit:      ptr(4.0),
		AdvancePercentages:     []float64{0, 0.3, 1},
	}
}

func targetInputs() Inputs {
	return Inputs{
		Quantity:                 1000,
		UnitCostLocal:            ptr(200),
		FXRate:                   80,
		Freight:                  ptr(500),
		Insurance:                ptr(200),
		OtherCosts:               100,
		FinancingRateAnnualPct:   ptr(12),
		CreditPeriodMonths:       ptr(4),
		PricingMode:              ModeTargetNetProfit,
		TargetNetProfitPctOnCost: ptr(0.3),
		AdvancePercentages:       []float64{0, 0.25, 0.5, 0.75, 1},
	}
}

func mustCalculate(t *testing.T, in Inputs) Output {
	t.Helper()
	out, err := Calculate(in)
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}
	return out
}

func TestCalculate_FixedPriceWorkedExample(t *testing.T) {
	out := mustCalculate(t, exportInputs())

	nearlyEqual(t, "unit_cost_quote_currency", out.UnitCostQuoteCurrency, 250.0/82, 1e-12)
	nearlyEqual(t, "per_unit_addon", out.PerUnitAddon, 0.6, 1e-12)
	nearlyEqual(t, "landed_cost_per_unit", out.LandedCostPerUnit, 3.6488, 1e-4)
	nearlyEqual(t, "total_shipment_cost", out.TotalShipmentCost, 3648.78, 1e-2)
	nearlyEqual(t, "financing_factor", out.FinancingFactor, 0.04, 1e-12)

	if len(out.Scenarios) != 3 {
		t.Fatalf("expected 3 scenarios, got %d", len(out.Scenarios))
	}

	zero := out.Scenarios[0]
	nearlyEqual(t, "a=0 cash_gap", zero.CashGap, 3648.78, 1e-2)
	nearlyEqual(t, "a=0 financing_cost", zero.FinancingCost, 145.95, 1e-2)

	partial := out.Scenarios[1]
	nearlyEqual(t, "a=0.3 advance_received", partial.AdvanceReceived, 1200, 1e-9)
	nearlyEqual(t, "a=0.3 balance_received", partial.BalanceReceived, 2800, 1e-9)

	full := out.Scenarios[2]
	nearlyEqual(t, "a=1 advance_received", full.AdvanceReceived, 4000, 1e-9)
	nearlyEqual(t, "a=1 cash_gap", full.CashGap, 0, 0)
	nearlyEqual(t, "a=1 financing_cost", full.FinancingCost, 0, 0)
	nearlyEqual(t, "a=1 net_profit", full.NetProfit, 351.22, 1e-2)
	nearlyEqual(t, "a=1 selling_price_per_unit", full.SellingPricePerUnit, 4, 1e-12)
}

func TestCalculate_FixedInvoiceValueMatchesPerUnitPrice(t *testing.T) {
	byUnit := mustCalculate(t, exportInputs())

	in := exportInputs()
	in.FixedPricePerUnit = nil
	in.FixedInvoiceValue = ptr(4000)
	byInvoice := mustCalculate(t, in)

	if d := Compare(byUnit, byInvoice); !d.Within(1e-9) {
		t.Fatalf("outputs differ: %+v", d)
	}
}

func TestCalculate_IdentitiesHoldForEveryScenario(t *testing.T) {
	cases := map[string]Inputs{
		"target": targetInputs(),
		"fixed":  exportInputs(),
	}
	negativeTarget := targetInputs()
	negativeTarget.TargetNetProfitPctOnCost = ptr(-0.4)
	cases["negative target"] = negativeTarget

	rebate := exportInputs()
	rebate.Freight = ptr(-900)
	cases["rebate add-on"] = rebate

	for name, in := range cases {
		in.AdvancePercentages = []float64{0, 0.1, 0.2, 0.3, 0.5, 0.7, 0.9, 1, 1.2}
		out := mustCalculate(t, in)
		for _, s := range out.Scenarios {
			nearlyEqual(t, name+" net identity", s.NetProfit, s.GrossProfit-s.FinancingCost, 1e-9)
			nearlyEqual(t, name+" gross identity", s.GrossProfit, s.InvoiceValue-s.TotalShipmentCost, 1e-9)
			nearlyEqual(t, name+" cash gap identity", s.CashGap, math.Max(0, s.TotalShipmentCost-s.AdvanceReceived), 1e-9)
			nearlyEqual(t, name+" balance", s.BalanceReceived, s.InvoiceValue-s.AdvanceReceived, 1e-9)
			nearlyEqual(t, name+" financing", s.FinancingCost, out.FinancingFactor*s.CashGap, 1e-9)
		}
	}
}

func TestCalculate_TargetNetProfitIsAchieved(t *testing.T) {
	for _, target := range []float64{-0.5, 0, 0.1, 0.3, 1.5} {
		in := targetInputs()
		in.TargetNetProfitPctOnCost = ptr(target)
		in.AdvancePercentages = []float64{0, 0.2, 0.4, 0.6, 0.8, 1, 1.5}

		out := mustCalculate(t, in)
		for _, s := range out.Scenarios {
			got, err := s.NetProfitPctOnCost.Float64()
			if err != nil {
				t.Fatalf("net_profit_pct_on_cost undefined: %v", err)
			}
			nearlyEqual(t, "net_profit_pct_on_cost", got, target, 1e-9)
		}
	}
}

func TestCalculate_TargetBranchSelection(t *testing.T) {
	out := mustCalculate(t, targetInputs())

	nearlyEqual(t, "cost", out.TotalShipmentCost, 3300, 1e-9)

	zero := out.Scenarios[0]
	nearlyEqual(t, "a=0 invoice", zero.InvoiceValue, 3300*1.34, 1e-9)
	if out.Explanation.Rows[0].Branch != BranchFinanced {
		t.Fatalf("a=0 branch = %s, want %s", out.Explanation.Rows[0].Branch, BranchFinanced)
	}

	full := out.Scenarios[4]
	nearlyEqual(t, "a=1 invoice", full.InvoiceValue, 3300*1.3, 1e-9)
	nearlyEqual(t, "a=1 financing", full.FinancingCost, 0, 0)
	if out.Explanation.Rows[4].Branch != BranchFullyAdvanced {
		t.Fatalf("a=1 branch = %s, want %s", out.Explanation.Rows[4].Branch, BranchFullyAdvanced)
	}

	if zero.InvoiceValue <= full.InvoiceValue {
		t.Fatalf("expected higher invoice at zero advance: %v <= %v", zero.InvoiceValue, full.InvoiceValue)
	}
}

func TestCalculate_InvoiceContinuousAtBranchBoundary(t *testing.T) {
	target := 0.3
	boundary := 1 / (1 + target)
	const eps = 1e-7

	in := targetInputs()
	in.AdvancePercentages = []float64{boundary - eps, boundary, boundary + eps}
	out := mustCalculate(t, in)

	below, at, above := out.Scenarios[0], out.Scenarios[1], out.Scenarios[2]
	nearlyEqual(t, "below vs at", below.InvoiceValue, at.InvoiceValue, 1e-3)
	nearlyEqual(t, "at vs above", at.InvoiceValue, above.InvoiceValue, 1e-3)
	nearlyEqual(t, "boundary invoice", at.InvoiceValue, out.TotalShipmentCost*(1+target), 1e-6)

	if out.Explanation.Rows[0].Branch != BranchFinanced {
		t.Fatalf("below boundary branch = %s", out.Explanation.Rows[0].Branch)
	}
	if out.Explanation.Rows[2].Branch != BranchFullyAdvanced {
		t.Fatalf("above boundary branch = %s", out.Explanation.Rows[2].Branch)
	}
}

func TestCalculate_FixedPriceInvoiceIdenticalAcrossAdvances(t *testing.T) {
	in := exportInputs()
	in.AdvancePercentages = []float64{0, 0.1, 0.45, 0.8, 1}
	out := mustCalculate(t, in)

	for _, s := range out.Scenarios {
		if s.InvoiceValue != out.Scenarios[0].InvoiceValue {
			t.Fatalf("invoice at %v = %v, want %v", s.AdvancePct, s.InvoiceValue, out.Scenarios[0].InvoiceValue)
		}
		if s.SellingPricePerUnit != out.Scenarios[0].SellingPricePerUnit {
			t.Fatalf("selling price at %v changed", s.AdvancePct)
		}
	}
	for i := 1; i < len(out.Scenarios); i++ {
		if out.Scenarios[i].NetProfit <= out.Scenarios[i-1].NetProfit {
			t.Fatalf("net profit should improve with advance: %v then %v", out.Scenarios[i-1].NetProfit, out.Scenarios[i].NetProfit)
		}
	}
}

func TestCalculate_CashGapNonIncreasingInAdvance(t *testing.T) {
	advances := make([]float64, 0, 41)
	for i := 0; i <= 40; i++ {
		advances = append(advances, float64(i)/40)
	}

	for name, in := range map[string]Inputs{"target": targetInputs(), "fixed": exportInputs()} {
		in.AdvancePercentages = advances
		out := mustCalculate(t, in)
		for i := 1; i < len(out.Scenarios); i++ {
			if out.Scenarios[i].CashGap > out.Scenarios[i-1].CashGap+1e-9 {
				t.Fatalf("%s: cash gap rose from %v to %v at advance %v",
					name, out.Scenarios[i-1].CashGap, out.Scenarios[i].CashGap, out.Scenarios[i].AdvancePct)
			}
		}
	}
}

func TestCalculate_ZeroFinancingCollapsesBranches(t *testing.T) {
	in := targetInputs()
	in.FinancingRateAnnualPct = ptr(0)
	out := mustCalculate(t, in)

	if out.FinancingFactor != 0 {
		t.Fatalf("financing factor = %v, want 0", out.FinancingFactor)
	}
	for _, s := range out.Scenarios {
		nearlyEqual(t, "invoice", s.InvoiceValue, out.TotalShipmentCost*1.3, 1e-9)
		nearlyEqual(t, "financing", s.FinancingCost, 0, 0)
	}
}

func TestCalculate_OutputFollowsInputOrderAndCollapsesDuplicates(t *testing.T) {
	in := exportInputs()
	in.AdvancePercentages = []float64{1, 0.3, 0, 0.3, 1}
	out := mustCalculate(t, in)

	want := []float64{1, 0.3, 0}
	if len(out.Scenarios) != len(want) {
		t.Fatalf("expected %d scenarios, got %d", len(want), len(out.Scenarios))
	}
	for i, a := range want {
		if out.Scenarios[i].AdvancePct != a {
			t.Fatalf("scenario %d advance = %v, want %v", i, out.Scenarios[i].AdvancePct, a)
		}
	}

	sorted := mustCalculate(t, exportInputs())
	if sorted.Scenarios[0].NetProfit != out.Scenarios[2].NetProfit {
		t.Fatalf("scenario result depends on ordering")
	}
}

func TestCalculate_IsDeterministic(t *testing.T) {
	first, err := json.Marshal(mustCalculate(t, targetInputs()))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(mustCalculate(t, targetInputs()))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(again) != string(first) {
			t.Fatalf("iteration %d produced a different output", i)
		}
	}
}

func TestCalculate_InvalidInput(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*Inputs)
		field string
	}{
		{"zero quantity", func(in *Inputs) { in.Quantity = 0 }, "quantity"},
		{"negative quantity", func(in *Inputs) { in.Quantity = -5 }, "quantity"},
		{"zero fx", func(in *Inputs) { in.FXRate = 0 }, "fx_rate"},
		{"nan fx", func(in *Inputs) { in.FXRate = math.NaN() }, "fx_rate"},
		{"infinite freight", func(in *Inputs) { in.Freight = ptr(math.Inf(1)) }, "freight"},
		{"missing unit cost", func(in *Inputs) { in.UnitCostLocal = nil }, "unit_cost_local"},
		{"missing freight", func(in *Inputs) { in.Freight = nil }, "freight"},
		{"missing insurance", func(in *Inputs) { in.Insurance = nil }, "insurance"},
		{"missing financing rate", func(in *Inputs) { in.FinancingRateAnnualPct = nil }, "financing_rate_annual_pct"},
		{"missing credit period", func(in *Inputs) { in.CreditPeriodMonths = nil }, "credit_period_months"},
		{"nan other costs", func(in *Inputs) { in.OtherCosts = math.NaN() }, "other_costs"},
		{"missing mode", func(in *Inputs) { in.PricingMode = "" }, "pricing_mode"},
		{"unknown mode", func(in *Inputs) { in.PricingMode = "C" }, "pricing_mode"},
		{"mode A without target", func(in *Inputs) {
			in.PricingMode = ModeTargetNetProfit
			in.TargetNetProfitPctOnCost = nil
		}, "target_net_profit_pct_on_cost"},
		{"mode B with both prices", func(in *Inputs) { in.FixedInvoiceValue = ptr(4000) }, "fixed_invoice_value"},
		{"mode B with neither price", func(in *Inputs) { in.FixedPricePerUnit = nil }, "fixed_invoice_value"},
		{"no advances", func(in *Inputs) { in.AdvancePercentages = nil }, "advance_percentages"},
		{"negative advance", func(in *Inputs) { in.AdvancePercentages = []float64{0, -0.1} }, "advance_percentages"},
	}

	for _, tc := range cases {
		in := exportInputs()
		tc.edit(&in)
		_, err := Calculate(in)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
		var fe *FieldError
		if !errors.As(err, &fe) || fe.Field != tc.field {
			t.Fatalf("%s: expected field %q, got %v", tc.name, tc.field, err)
		}
	}
}

func TestCalculate_AdvanceAboveOneIsAccepted(t *testing.T) {
	in := exportInputs()
	in.AdvancePercentages = []float64{1.25}
	out := mustCalculate(t, in)

	s := out.Scenarios[0]
	nearlyEqual(t, "advance_received", s.AdvanceReceived, 5000, 1e-9)
	nearlyEqual(t, "balance_received", s.BalanceReceived, -1000, 1e-9)
	nearlyEqual(t, "cash_gap", s.CashGap, 0, 0)
}

func TestCalculate_ZeroDenominatorIsUnsolvable(t *testing.T) {
	in := targetInputs()
	// factor = -200/100 * 12/12 = -2, so 1 + factor*0.5 == 0.
	in.FinancingRateAnnualPct = ptr(-200)
	in.CreditPeriodMonths = ptr(12)
	in.AdvancePercentages = []float64{0, 0.5, 1}

	out, err := Calculate(in)
	if !errors.Is(err, ErrUnsolvableScenario) {
		t.Fatalf("expected ErrUnsolvableScenario, got %v", err)
	}
	var se *ScenarioError
	if !errors.As(err, &se) || se.AdvancePct != 0.5 {
		t.Fatalf("expected scenario error at 0.5, got %v", err)
	}
	if len(out.Scenarios) != 0 {
		t.Fatalf("expected no partial output, got %d scenarios", len(out.Scenarios))
	}
}

func TestCalculate_ZeroCostLeavesPercentagesUndefined(t *testing.T) {
	in := exportInputs()
	in.UnitCostLocal = ptr(0)
	in.Freight, in.Insurance, in.OtherCosts = ptr(0), ptr(0), 0

	out := mustCalculate(t, in)
	if out.TotalShipmentCost != 0 {
		t.Fatalf("total_shipment_cost = %v, want 0", out.TotalShipmentCost)
	}

	s := out.Scenarios[0]
	if s.GrossProfitPctOnCost.IsDefined() || s.NetProfitPctOnCost.IsDefined() {
		t.Fatalf("expected undefined percentages, got %+v", s)
	}
	if _, err := s.NetProfitPctOnCost.Float64(); !errors.Is(err, ErrUndefinedPercentage) {
		t.Fatalf("expected ErrUndefinedPercentage, got %v", err)
	}
	nearlyEqual(t, "gross_profit", s.GrossProfit, 4000, 1e-9)

	blob, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(blob, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["net_profit_pct_on_cost"] != nil {
		t.Fatalf("expected null percentage, got %v", raw["net_profit_pct_on_cost"])
	}
}

func TestCalculate_ZeroCostTargetUsesFullyAdvancedBranch(t *testing.T) {
	in := targetInputs()
	in.UnitCostLocal = ptr(0)
	in.Freight, in.Insurance, in.OtherCosts = ptr(0), ptr(0), 0
	in.AdvancePercentages = []float64{0}

	out := mustCalculate(t, in)
	if out.Explanation.Rows[0].Branch != BranchFullyAdvanced {
		t.Fatalf("branch = %s, want %s", out.Explanation.Rows[0].Branch, BranchFullyAdvanced)
	}
	nearlyEqual(t, "invoice", out.Scenarios[0].InvoiceValue, 0, 0)
}

func TestNewCostBasis_RejectsNonPositiveDivisors(t *testing.T) {
	if _, err := NewCostBasis(0, 100, 80, 0, 0, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("quantity 0: expected ErrInvalidInput, got %v", err)
	}
	if _, err := NewCostBasis(10, 100, -1, 0, 0, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("fx -1: expected ErrInvalidInput, got %v", err)
	}

	basis, err := NewCostBasis(10, 100, 50, 10, 5, -5)
	if err != nil {
		t.Fatalf("NewCostBasis returned error: %v", err)
	}
	nearlyEqual(t, "unit cost", basis.UnitCostQuoteCurrency, 2, 1e-12)
	nearlyEqual(t, "addon", basis.PerUnitAddon, 1, 1e-12)
	nearlyEqual(t, "total", basis.TotalShipmentCost, 30, 1e-12)
}

func TestFinancingFactor(t *testing.T) {
	nearlyEqual(t, "12% for 4 months", FinancingFactor(12, 4), 0.04, 1e-12)
	nearlyEqual(t, "zero rate", FinancingFactor(0, 6), 0, 0)
	nearlyEqual(t, "zero period", FinancingFactor(10, 0), 0, 0)
	nearlyEqual(t, "negative rate", FinancingFactor(-6, 12), -0.06, 1e-12)
}
