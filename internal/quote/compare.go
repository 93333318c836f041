package quote

import (
	"math"
	"sort"
)

// DefaultTolerance is the absolute deviation under which two recomputed values
// are treated as the same figure.
const DefaultTolerance = 1e-9

// Deviation reports how far two outputs are apart. Shape is false when the
// outputs cannot be compared field by field (different scenario lists or a
// percentage defined on one side only); MaxAbs is then meaningless.
type Deviation struct {
	Shape  bool    `json:"same_shape"`
	MaxAbs float64 `json:"max_abs_deviation"`
}

// Within reports whether the outputs match up to tol.
func (d Deviation) Within(tol float64) bool {
	return d.Shape && d.MaxAbs <= tol
}

// Compare measures the largest absolute difference between every numeric field
// of a and b.
func Compare(a, b Output) Deviation {
	if len(a.Scenarios) != len(b.Scenarios) {
		return Deviation{}
	}

	d := Deviation{Shape: true}
	track := func(x, y float64) {
		if diff := math.Abs(x - y); diff > d.MaxAbs || math.IsNaN(diff) {
			d.MaxAbs = diff
		}
	}

	track(a.UnitCostQuoteCurrency, b.UnitCostQuoteCurrency)
	track(a.PerUnitAddon, b.PerUnitAddon)
	track(a.LandedCostPerUnit, b.LandedCostPerUnit)
	track(a.TotalShipmentCost, b.TotalShipmentCost)
	track(a.FinancingFactor, b.FinancingFactor)

	for i := range a.Scenarios {
		x, y := a.Scenarios[i], b.Scenarios[i]
		if x.AdvancePct != y.AdvancePct ||
			x.GrossProfitPctOnCost.defined != y.GrossProfitPctOnCost.defined ||
			x.NetProfitPctOnCost.defined != y.NetProfitPctOnCost.defined {
			return Deviation{}
		}
		track(x.InvoiceValue, y.InvoiceValue)
		track(x.SellingPricePerUnit, y.SellingPricePerUnit)
		track(x.AdvanceReceived, y.AdvanceReceived)
		track(x.BalanceReceived, y.BalanceReceived)
		track(x.TotalShipmentCost, y.TotalShipmentCost)
		track(x.CashGap, y.CashGap)
		track(x.FinancingCost, y.FinancingCost)
		track(x.FinancingCostPerUnit, y.FinancingCostPerUnit)
		track(x.GrossProfit, y.GrossProfit)
		track(x.GrossProfitPctOnCost.value, y.GrossProfitPctOnCost.value)
		track(x.NetProfit, y.NetProfit)
		track(x.NetProfitPctOnCost.value, y.NetProfitPctOnCost.value)
		track(x.GrossProfitPerUnit, y.GrossProfitPerUnit)
		track(x.NetProfitPerUnit, y.NetProfitPerUnit)
	}
	return d
}

// Extremes returns the scenarios with the lowest and highest advance
// percentage. ok is false for an output without scenarios.
func (o Output) Extremes() (lowest, highest Scenario, ok bool) {
	if len(o.Scenarios) == 0 {
		return Scenario{}, Scenario{}, false
	}
	lowest, highest = o.Scenarios[0], o.Scenarios[0]
	for _, s := range o.Scenarios[1:] {
		if s.AdvancePct < lowest.AdvancePct {
			lowest = s
		}
		if s.AdvancePct > highest.AdvancePct {
			highest = s
		}
	}
	return lowest, highest, true
}

// ByAdvance indexes the scenarios by advance percentage.
func (o Output) ByAdvance() map[float64]Scenario {
	m := make(map[float64]Scenario, len(o.Scenarios))
	for _, s := range o.Scenarios {
		m[s.AdvancePct] = s
	}
	return m
}

// SortedAdvances returns the distinct advance percentages in ascending order.
func SortedAdvances(values []float64) []float64 {
	seen := make(map[float64]struct{}, len(values))
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}
