package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/emprende/internal/cache"
	"github.com/Simplici0/emprende/internal/calc"
)

func TestParseCalculatorForm(t *testing.T) {
	input, err := parseCalculatorForm(calc.KindBreakEven, url.Values{
		"fixed_costs":            {" 8000 "},
		"price_per_unit":         {"25"},
		"variable_cost_per_unit": {"15.5"},
	})
	require.NoError(t, err)
	assert.Equal(t, calc.BreakEvenInput{FixedCosts: 8000, PricePerUnit: 25, VariableCostPerUnit: 15.5}, input)

	_, err = parseCalculatorForm(calc.KindROI, url.Values{
		"initial_investment": {"abc"},
		"net_profit":         {"200"},
		"timeframe":          {"1"},
	})
	require.Error(t, err)
	assert.Equal(t, "el campo «Inversión inicial» debe ser un número", err.Error())

	_, err = parseCalculatorForm(calc.KindProfit, url.Values{})
	assert.Error(t, err)
}

func TestParseCostItems(t *testing.T) {
	items, err := parseCostItems("Chaquiras; 200; variable\n\n  Mesa de trabajo;300;FIXED  \r\n")
	require.NoError(t, err)
	assert.Equal(t, []calc.CostItem{
		{Name: "Chaquiras", Cost: 200, Kind: calc.CostVariable},
		{Name: "Mesa de trabajo", Cost: 300, Kind: calc.CostFixed},
	}, items)

	for _, raw := range []string{"Mesa;300", "; 300; fixed", "Mesa; mucho; fixed"} {
		_, err := parseCostItems(raw)
		assert.Error(t, err, raw)
	}
}

func TestFormFromInputRoundTrip(t *testing.T) {
	for _, kind := range calc.Kinds() {
		preset, ok := calc.Defaults().Input(kind)
		require.True(t, ok)

		parsed, err := parseCalculatorForm(kind, formFromInput(preset))
		require.NoError(t, err, kind)
		assert.Equal(t, preset, parsed, kind)
	}
}

func TestCalculatorPages(t *testing.T) {
	srv := newTestServer(t)
	h := newTestRouter(t, srv, 10)

	home := get(t, h, "/")
	require.Equal(t, http.StatusOK, home.Code)
	assert.Contains(t, home.Body.String(), "/calculators/unit-cost")

	form := get(t, h, "/calculators/unit-cost")
	require.Equal(t, http.StatusOK, form.Code)
	assert.Contains(t, form.Body.String(), "Chaquiras y cuentas; 200; variable")

	assert.Equal(t, http.StatusNotFound, get(t, h, "/calculators/npv").Code)
}

func TestCalculatorSubmit(t *testing.T) {
	srv := newTestServer(t)
	h := newTestRouter(t, srv, 10)

	rec := postForm(t, h, "/calculators/roi", url.Values{
		"initial_investment": {"500"},
		"net_profit":         {"200"},
		"timeframe":          {"1"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "40.0%")

	rec = postForm(t, h, "/calculators/roi", url.Values{
		"initial_investment": {"500"},
		"net_profit":         {"200"},
		"timeframe":          {"0"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "timeframe must be greater than zero")

	rec = postForm(t, h, "/calculators/roi", url.Values{
		"initial_investment": {"12abc"},
		"net_profit":         {"200"},
		"timeframe":          {"1"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "el campo «Inversión inicial» debe ser un número")

	// Unparseable forms never reach the engine, so only two runs are recorded.
	assert.Equal(t, 2, countRows(t, srv, "calculations"))
}

func TestCalculatorSubmit_RendersCachedOutcome(t *testing.T) {
	srv := newTestServer(t)
	memory := cache.NewMemory()
	srv.cache = memory
	h := newTestRouter(t, srv, 10)

	form := url.Values{
		"fixed_costs":            {"8000"},
		"price_per_unit":         {"25"},
		"variable_cost_per_unit": {"15"},
	}
	first := postForm(t, h, "/calculators/break-even", form)
	second := postForm(t, h, "/calculators/break-even", form)
	assert.Equal(t, 1, memory.Len())

	for _, rec := range []*httptest.ResponseRecorder{first, second} {
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Unidades para llegar al equilibrio")
		assert.Contains(t, rec.Body.String(), "$10")
		assert.Contains(t, rec.Body.String(), `value="8000"`)
	}

	rows, err := srv.db.Query(`SELECT inputs_json, results_json, valid FROM calculations ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()

	var inputs, results []string
	for rows.Next() {
		var in, res string
		var valid bool
		require.NoError(t, rows.Scan(&in, &res, &valid))
		assert.True(t, valid)
		inputs = append(inputs, in)
		results = append(results, res)
	}
	require.NoError(t, rows.Err())
	require.Len(t, inputs, 2)

	// The cached run was decoded into maps; it must be stored the same way.
	assert.JSONEq(t, inputs[0], inputs[1])
	assert.JSONEq(t, results[0], results[1])
	assert.JSONEq(t, `{"fixed_costs":8000,"price_per_unit":25,"variable_cost_per_unit":15}`, inputs[1])
}
