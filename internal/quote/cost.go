package quote

// CostBasis is the shipment's landed cost, fixed for every pricing mode and
// advance scenario.
type CostBasis struct {
	UnitCostQuoteCurrency float64 `json:"unit_cost_quote_currency"`
	PerUnitAddon          float64 `json:"per_unit_addon"`
	LandedCostPerUnit     float64 `json:"landed_cost_per_unit"`
	TotalShipmentCost     float64 `json:"total_shipment_cost"`
}

// NewCostBasis converts the local unit cost at fxRate and spreads the
// shipment-level add-ons over quantity. Negative add-ons are credits.
func NewCostBasis(quantity int, unitCostLocal, fxRate, freight, insurance, otherCosts float64) (CostBasis, error) {
	if quantity <= 0 {
		return CostBasis{}, invalid("quantity", "must be greater than zero")
	}
	if fxRate <= 0 {
		return CostBasis{}, invalid("fx_rate", "must be greater than zero")
	}

	q := float64(quantity)
	unitCost := unitCostLocal / fxRate
	addon := (freight + insurance + otherCosts) / q
	landed := unitCost + addon

	return CostBasis{
		UnitCostQuoteCurrency: unitCost,
		PerUnitAddon:          addon,
		LandedCostPerUnit:     landed,
		TotalShipmentCost:     landed * q,
	}, nil
}

// FinancingFactor scales an annual rate in percent down to the credit period.
// The result multiplies a cash gap to give its financing cost.
func FinancingFactor(annualRatePct, creditPeriodMonths float64) float64 {
	return annualRatePct / 100 * creditPeriodMonths / 12
}
