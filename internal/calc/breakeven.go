package calc

import "math"

const (
	// DefaultSeriesPoints is the number of steps BreakEvenSeries uses when
	// the caller does not ask for a specific resolution.
	DefaultSeriesPoints = 10

	// fallbackSeriesUnits is the chart range used when the break-even point
	// is zero (no fixed costs).
	fallbackSeriesUnits = 100
)

// BreakEvenInput holds the per-period figures of a single product.
type BreakEvenInput struct {
	FixedCosts          float64 `json:"fixed_costs"`
	PricePerUnit        float64 `json:"price_per_unit"`
	VariableCostPerUnit float64 `json:"variable_cost_per_unit"`
}

// BreakEvenResult is the outcome of BreakEven. ContributionMarginRatio is a
// percentage.
type BreakEvenResult struct {
	BreakEvenPoint          float64 `json:"break_even_point"`
	ContributionMargin      float64 `json:"contribution_margin"`
	ContributionMarginRatio float64 `json:"contribution_margin_ratio"`
}

// BreakEven computes the units that must be sold per period to cover fixed
// costs. When the price does not exceed the variable cost the returned result
// still carries the (non-positive) contribution margin alongside the error.
func BreakEven(in BreakEvenInput) (BreakEvenResult, error) {
	if err := requireFinite(
		[]string{"fixed_costs", "price_per_unit", "variable_cost_per_unit"},
		in.FixedCosts, in.PricePerUnit, in.VariableCostPerUnit,
	); err != nil {
		return BreakEvenResult{}, err
	}

	if in.FixedCosts < 0 {
		return BreakEvenResult{}, invalid("fixed_costs", "fixed costs cannot be negative")
	}
	if in.PricePerUnit <= 0 {
		return BreakEvenResult{}, invalid("price_per_unit", "price per unit must be greater than zero")
	}
	if in.VariableCostPerUnit < 0 {
		return BreakEvenResult{}, invalid("variable_cost_per_unit", "variable cost cannot be negative")
	}

	margin := in.PricePerUnit - in.VariableCostPerUnit
	if margin <= 0 {
		return BreakEvenResult{ContributionMargin: margin}, invalid("price_per_unit", "price must exceed variable cost")
	}

	point := in.FixedCosts / margin
	if !isFinite(point) {
		return BreakEvenResult{}, invalid("fixed_costs", "break-even point is out of range")
	}

	return BreakEvenResult{
		BreakEvenPoint:          point,
		ContributionMargin:      margin,
		ContributionMarginRatio: (margin / in.PricePerUnit) * 100,
	}, nil
}

// SeriesPoint is one cost-volume-profit sample.
type SeriesPoint struct {
	Units     float64 `json:"units"`
	Revenue   float64 `json:"revenue"`
	TotalCost float64 `json:"total_cost"`
	Profit    float64 `json:"profit"`
}

// BreakEvenSeries samples revenue, total cost and profit from zero up to twice
// the break-even point. A non-positive points value selects
// DefaultSeriesPoints. Steps are never smaller than one unit. Inputs whose
// chart values overflow a float64 are rejected.
func BreakEvenSeries(in BreakEvenInput, points int) ([]SeriesPoint, error) {
	res, err := BreakEven(in)
	if err != nil {
		return nil, err
	}
	if points <= 0 {
		points = DefaultSeriesPoints
	}

	maxUnits := res.BreakEvenPoint * 2
	if maxUnits <= 0 {
		maxUnits = fallbackSeriesUnits
	}
	if !isFinite(maxUnits) {
		return nil, invalid("fixed_costs", "break-even chart is out of range")
	}
	step := math.Max(maxUnits/float64(points), 1)

	series := make([]SeriesPoint, 0, points+1)
	for i := 0; i <= points; i++ {
		units := float64(i) * step
		if units > maxUnits {
			break
		}
		revenue := units * in.PricePerUnit
		totalCost := in.FixedCosts + units*in.VariableCostPerUnit
		profit := revenue - totalCost
		if !isFinite(revenue) || !isFinite(totalCost) || !isFinite(profit) {
			return nil, invalid("fixed_costs", "break-even chart is out of range")
		}
		series = append(series, SeriesPoint{
			Units:     units,
			Revenue:   revenue,
			TotalCost: totalCost,
			Profit:    profit,
		})
	}
	return series, nil
}

// Targets splits a monthly break-even point into daily and weekly goals.
type Targets struct {
	Daily   float64 `json:"daily"`
	Weekly  float64 `json:"weekly"`
	Monthly float64 `json:"monthly"`
}

// SalesTargets assumes a 30-day, 4-week month.
func SalesTargets(breakEvenPoint float64) Targets {
	return Targets{
		Daily:   breakEvenPoint / 30,
		Weekly:  breakEvenPoint / 4,
		Monthly: breakEvenPoint,
	}
}
