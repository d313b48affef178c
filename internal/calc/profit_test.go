package calc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfit_SampleFigures(t *testing.T) {
	res, err := Profit(ProfitInput{TotalRevenue: 1000, TotalCosts: 600, SalesPrice: 20, UnitCost: 12})
	require.NoError(t, err)

	assert.Equal(t, 400.0, res.GrossProfit)
	assert.InDelta(t, 40.0, res.ProfitMargin, 1e-9)
	assert.InDelta(t, 40.0, res.UnitProfitMargin, 1e-9)
	assert.InDelta(t, 66.67, res.MarkupPercentage, 0.005)
}

func TestProfit_NegativeValues(t *testing.T) {
	tests := []struct {
		in    ProfitInput
		field string
	}{
		{ProfitInput{TotalRevenue: -100, TotalCosts: 600, SalesPrice: 20, UnitCost: 12}, "total_revenue"},
		{ProfitInput{TotalRevenue: 100, TotalCosts: -1, SalesPrice: 20, UnitCost: 12}, "total_costs"},
		{ProfitInput{TotalRevenue: 100, TotalCosts: 1, SalesPrice: -20, UnitCost: 12}, "sales_price"},
		{ProfitInput{TotalRevenue: 100, TotalCosts: 1, SalesPrice: 20, UnitCost: -12}, "unit_cost"},
	}
	for _, tt := range tests {
		res, err := Profit(tt.in)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "values cannot be negative", vErr.Message)
		assert.Equal(t, tt.field, vErr.Field)
		assert.Equal(t, ProfitResult{}, res)
	}
}

func TestProfit_ZeroDenominators(t *testing.T) {
	res, err := Profit(ProfitInput{TotalRevenue: 0, TotalCosts: 50, SalesPrice: 0, UnitCost: 0})
	require.NoError(t, err)

	assert.Equal(t, -50.0, res.GrossProfit)
	assert.Zero(t, res.ProfitMargin)
	assert.Zero(t, res.UnitProfitMargin)
	assert.Zero(t, res.MarkupPercentage)
}

func TestProfit_SellingBelowCost(t *testing.T) {
	res, err := Profit(ProfitInput{TotalRevenue: 500, TotalCosts: 800, SalesPrice: 10, UnitCost: 16})
	require.NoError(t, err)
	assert.InDelta(t, -60.0, res.ProfitMargin, 1e-9)
	assert.InDelta(t, -60.0, res.UnitProfitMargin, 1e-9)
	assert.InDelta(t, -37.5, res.MarkupPercentage, 1e-9)
}

func TestProfit_OverflowIsInvalid(t *testing.T) {
	_, err := Profit(ProfitInput{SalesPrice: math.MaxFloat64, UnitCost: 1e-300})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
