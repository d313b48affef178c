package calc

// Presets holds one starting input per calculator.
type Presets struct {
	BreakEven BreakEvenInput
	ROI       ROIInput
	Profit    ProfitInput
	UnitCost  UnitCostInput
}

// Defaults returns the sample figures a fresh form starts from.
func Defaults() Presets {
	return Presets{
		BreakEven: BreakEvenInput{FixedCosts: 8000, PricePerUnit: 25, VariableCostPerUnit: 15},
		ROI:       ROIInput{InitialInvestment: 500, NetProfit: 200, Timeframe: 1},
		Profit:    ProfitInput{TotalRevenue: 1000, TotalCosts: 600, SalesPrice: 20, UnitCost: 12},
		UnitCost: UnitCostInput{
			ProductionVolume: 50,
			Costs: []CostItem{
				{Name: "Chaquiras y cuentas", Cost: 200, Kind: CostVariable},
				{Name: "Hilo elástico", Cost: 100, Kind: CostVariable},
				{Name: "Mesa de trabajo", Cost: 300, Kind: CostFixed},
				{Name: "Publicidad", Cost: 100, Kind: CostFixed},
			},
		},
	}
}

// Input returns the preset for kind as a typed input value.
func (p Presets) Input(kind Kind) (any, bool) {
	switch kind {
	case KindBreakEven:
		return p.BreakEven, true
	case KindROI:
		return p.ROI, true
	case KindProfit:
		return p.Profit, true
	case KindUnitCost:
		return p.UnitCost, true
	default:
		return nil, false
	}
}
