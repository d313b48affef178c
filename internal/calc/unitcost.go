package calc

// CostKind tells whether a cost item is paid once per period or scales with
// production.
type CostKind string

const (
	CostFixed    CostKind = "fixed"
	CostVariable CostKind = "variable"
)

// CostItem is one line of a unit-cost breakdown. Cost is the period total for
// the item, not a per-unit figure.
type CostItem struct {
	Name string   `json:"name"`
	Cost float64  `json:"cost"`
	Kind CostKind `json:"kind"`
}

type UnitCostInput struct {
	ProductionVolume float64    `json:"production_volume"`
	Costs            []CostItem `json:"costs"`
}

type UnitCostResult struct {
	TotalFixedCost      float64 `json:"total_fixed_cost"`
	TotalVariableCost   float64 `json:"total_variable_cost"`
	FixedCostPerUnit    float64 `json:"fixed_cost_per_unit"`
	VariableCostPerUnit float64 `json:"variable_cost_per_unit"`
	TotalCostPerUnit    float64 `json:"total_cost_per_unit"`
}

// UnitCost sums fixed and variable cost items and spreads them over the
// production volume.
func UnitCost(in UnitCostInput) (UnitCostResult, error) {
	if err := requireFinite([]string{"production_volume"}, in.ProductionVolume); err != nil {
		return UnitCostResult{}, err
	}
	if in.ProductionVolume <= 0 {
		return UnitCostResult{}, invalid("production_volume", "production volume must be greater than zero")
	}

	var res UnitCostResult
	for _, item := range in.Costs {
		if !isFinite(item.Cost) {
			return UnitCostResult{}, invalid("costs", "costs must be finite numbers")
		}
		if item.Cost < 0 {
			return UnitCostResult{}, invalid("costs", "costs cannot be negative")
		}
		switch item.Kind {
		case CostFixed:
			res.TotalFixedCost += item.Cost
		case CostVariable:
			res.TotalVariableCost += item.Cost
		default:
			return UnitCostResult{}, invalid("costs", "cost type must be fixed or variable")
		}
	}

	res.FixedCostPerUnit = res.TotalFixedCost / in.ProductionVolume
	res.VariableCostPerUnit = res.TotalVariableCost / in.ProductionVolume
	res.TotalCostPerUnit = res.FixedCostPerUnit + res.VariableCostPerUnit
	if !isFinite(res.TotalFixedCost+res.TotalVariableCost) || !isFinite(res.TotalCostPerUnit) {
		return UnitCostResult{}, invalid("costs", "costs are out of range")
	}
	return res, nil
}
