package calc

// ProfitInput combines period totals with the figures of a single unit.
type ProfitInput struct {
	TotalRevenue float64 `json:"total_revenue"`
	TotalCosts   float64 `json:"total_costs"`
	SalesPrice   float64 `json:"sales_price"`
	UnitCost     float64 `json:"unit_cost"`
}

// ProfitResult margins are percentages; each is zero when its denominator is.
type ProfitResult struct {
	GrossProfit      float64 `json:"gross_profit"`
	ProfitMargin     float64 `json:"profit_margin"`
	UnitProfitMargin float64 `json:"unit_profit_margin"`
	MarkupPercentage float64 `json:"markup_percentage"`
}

// Profit computes gross profit, margin on revenue, per-unit margin on price
// and markup over unit cost.
func Profit(in ProfitInput) (ProfitResult, error) {
	if err := requireFinite(
		[]string{"total_revenue", "total_costs", "sales_price", "unit_cost"},
		in.TotalRevenue, in.TotalCosts, in.SalesPrice, in.UnitCost,
	); err != nil {
		return ProfitResult{}, err
	}

	if in.TotalRevenue < 0 || in.TotalCosts < 0 || in.SalesPrice < 0 || in.UnitCost < 0 {
		return ProfitResult{}, invalid(firstNegative(in), "values cannot be negative")
	}

	res := ProfitResult{GrossProfit: in.TotalRevenue - in.TotalCosts}
	if in.TotalRevenue > 0 {
		res.ProfitMargin = (res.GrossProfit / in.TotalRevenue) * 100
	}
	if in.SalesPrice > 0 {
		res.UnitProfitMargin = ((in.SalesPrice - in.UnitCost) / in.SalesPrice) * 100
	}
	if in.UnitCost > 0 {
		res.MarkupPercentage = ((in.SalesPrice - in.UnitCost) / in.UnitCost) * 100
	}

	for _, v := range []float64{res.GrossProfit, res.ProfitMargin, res.UnitProfitMargin, res.MarkupPercentage} {
		if !isFinite(v) {
			return ProfitResult{}, invalid("unit_cost", "values are out of range")
		}
	}
	return res, nil
}

func firstNegative(in ProfitInput) string {
	switch {
	case in.TotalRevenue < 0:
		return "total_revenue"
	case in.TotalCosts < 0:
		return "total_costs"
	case in.SalesPrice < 0:
		return "sales_price"
	default:
		return "unit_cost"
	}
}
