package main

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/emprende/internal/cache"
)

func decodeOutcome(t *testing.T, body []byte) outcome {
	t.Helper()

	var out outcome
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestAPICalculate_BreakEven(t *testing.T) {
	srv := newTestServer(t)
	h := newTestRouter(t, srv, 10)

	rec := doJSON(t, h, http.MethodPost, "/api/calculators/break-even", map[string]float64{
		"fixed_costs":            8000,
		"price_per_unit":         25,
		"variable_cost_per_unit": 15,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decodeOutcome(t, rec.Body.Bytes())
	assert.True(t, out.Valid)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "break-even", string(out.Calculator))

	result, ok := out.Result.(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 800, result["break_even_point"], 1e-9)
	assert.InDelta(t, 10, result["contribution_margin"], 1e-9)
	assert.InDelta(t, 40, result["contribution_margin_ratio"], 1e-9)
	assert.Contains(t, result, "targets")
	assert.Len(t, result["series"], 11)

	assert.Equal(t, "800", metricValue(out, "break_even_point"))
	assert.Equal(t, "$10", metricValue(out, "contribution_margin"))
	assert.Equal(t, "40.0%", metricValue(out, "contribution_margin_ratio"))

	assert.Equal(t, 1, countRows(t, srv, "calculations"))
}

func TestAPICalculate_PriceBelowVariableCostIsUnprocessable(t *testing.T) {
	srv := newTestServer(t)
	h := newTestRouter(t, srv, 10)

	rec := doJSON(t, h, http.MethodPost, "/api/calculators/break-even", map[string]float64{
		"fixed_costs":            8000,
		"price_per_unit":         10,
		"variable_cost_per_unit": 15,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	out := decodeOutcome(t, rec.Body.Bytes())
	assert.False(t, out.Valid)
	assert.Equal(t, "price must exceed variable cost", out.Error)
	assert.Equal(t, "price_per_unit", out.Field)

	result, ok := out.Result.(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, -5, result["contribution_margin"], 1e-9)
	assert.InDelta(t, 0, result["break_even_point"], 1e-9)

	var valid bool
	var errorMessage string
	require.NoError(t, srv.db.QueryRow(`SELECT valid, error_message FROM calculations`).Scan(&valid, &errorMessage))
	assert.False(t, valid)
	assert.Equal(t, "price must exceed variable cost", errorMessage)
}

func TestAPICalculate_ROIAndProfit(t *testing.T) {
	srv := newTestServer(t)
	h := newTestRouter(t, srv, 10)

	rec := doJSON(t, h, http.MethodPost, "/api/calculators/roi", `{"initial_investment":500,"net_profit":200,"timeframe":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeOutcome(t, rec.Body.Bytes())
	assert.Equal(t, "40.0%", metricValue(out, "roi"))
	assert.Equal(t, "2.5", metricValue(out, "payback_period"))
	assert.Equal(t, "Sobresaliente", metricValue(out, "rating"))

	rec = doJSON(t, h, http.MethodPost, "/api/calculators/roi", `{"initial_investment":0,"net_profit":200,"timeframe":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/calculators/profit", `{"total_revenue":1000,"total_costs":600,"sales_price":20,"unit_cost":12}`)
	require.Equal(t, http.StatusOK, rec.Code)
	out = decodeOutcome(t, rec.Body.Bytes())
	assert.Equal(t, "$400", metricValue(out, "gross_profit"))
	assert.Equal(t, "66.7%", metricValue(out, "markup_percentage"))

	rec = doJSON(t, h, http.MethodPost, "/api/calculators/profit", `{"total_revenue":-100,"total_costs":600,"sales_price":20,"unit_cost":12}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "values cannot be negative", decodeOutcome(t, rec.Body.Bytes()).Error)
}

func TestAPICalculate_UnitCost(t *testing.T) {
	srv := newTestServer(t)
	h := newTestRouter(t, srv, 10)

	rec := doJSON(t, h, http.MethodPost, "/api/calculators/unit-cost", `{
		"production_volume": 50,
		"costs": [
			{"name": "Chaquiras", "cost": 300, "kind": "variable"},
			{"name": "Mesa", "cost": 400, "kind": "fixed"}
		]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decodeOutcome(t, rec.Body.Bytes())
	assert.Equal(t, "$14", metricValue(out, "total_cost_per_unit"))
	assert.Equal(t, "$8", metricValue(out, "fixed_cost_per_unit"))
}

func TestAPICalculate_BadRequests(t *testing.T) {
	srv := newTestServer(t)
	h := newTestRouter(t, srv, 10)

	tests := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{name: "malformed json", target: "/api/calculators/roi", body: `{"initial_investment":`, status: http.StatusBadRequest},
		{name: "unknown field", target: "/api/calculators/roi", body: `{"investment":500}`, status: http.StatusBadRequest},
		{name: "string number", target: "/api/calculators/roi", body: `{"initial_investment":"500"}`, status: http.StatusBadRequest},
		{name: "unknown calculator", target: "/api/calculators/npv", body: `{}`, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}

	assert.Zero(t, countRows(t, srv, "calculations"))
}

func TestAPICalculate_CacheHitIsStillRecorded(t *testing.T) {
	srv := newTestServer(t)
	memory := cache.NewMemory()
	srv.cache = memory
	h := newTestRouter(t, srv, 10)

	body := `{"fixed_costs":1000,"price_per_unit":30,"variable_cost_per_unit":10}`
	first := decodeOutcome(t, doJSON(t, h, http.MethodPost, "/api/calculators/break-even", body).Body.Bytes())
	second := decodeOutcome(t, doJSON(t, h, http.MethodPost, "/api/calculators/break-even", body).Body.Bytes())

	assert.Equal(t, 1, memory.Len())
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Metrics, second.Metrics)
	assert.Equal(t, 2, countRows(t, srv, "calculations"))

	var cachedRuns int
	require.NoError(t, srv.db.QueryRow(`SELECT COUNT(*) FROM calculations WHERE results_json LIKE '%"break_even_point":50%'`).Scan(&cachedRuns))
	assert.Equal(t, 2, cachedRuns)
}

func TestAPIPreset(t *testing.T) {
	srv := newTestServer(t)
	h := newTestRouter(t, srv, 10)

	rec := get(t, h, "/api/presets/break-even")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"fixed_costs":8000,"price_per_unit":25,"variable_cost_per_unit":15}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/presets/npv").Code)
}

func TestAPICalculate_OverflowingDerivedValuesAreUnprocessable(t *testing.T) {
	srv := newTestServer(t)
	h := newTestRouter(t, srv, 10)

	tests := []struct {
		name    string
		target  string
		body    string
		message string
	}{
		{
			name:    "break-even chart",
			target:  "/api/calculators/break-even",
			body:    `{"fixed_costs":1e306,"price_per_unit":1e10,"variable_cost_per_unit":9999999999}`,
			message: "break-even chart is out of range",
		},
		{
			name:    "roi payback",
			target:  "/api/calculators/roi",
			body:    `{"initial_investment":1e300,"net_profit":1e-300,"timeframe":1}`,
			message: "payback period is out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, tt.target, tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			require.NotEmpty(t, rec.Body.Bytes())

			out := decodeOutcome(t, rec.Body.Bytes())
			assert.False(t, out.Valid)
			assert.Equal(t, tt.message, out.Error)
		})
	}

	var invalidRuns int
	require.NoError(t, srv.db.QueryRow(`SELECT COUNT(*) FROM calculations WHERE NOT valid`).Scan(&invalidRuns))
	assert.Equal(t, 2, invalidRuns)
}

func TestWriteJSONReportsEncodingFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"x": math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Header().Get("Content-Type"), "application/json")
}
