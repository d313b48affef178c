package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Simplici0/emprende/internal/calc"
)

type fieldDef struct {
	Name  string
	Label string
}

type calculatorDef struct {
	Title   string
	Summary string
	Fields  []fieldDef
}

var calculatorDefs = map[calc.Kind]calculatorDef{
	calc.KindBreakEven: {
		Title:   "Punto de equilibrio",
		Summary: "Cuántas unidades necesitas vender al mes para cubrir tus costos fijos.",
		Fields: []fieldDef{
			{Name: "fixed_costs", Label: "Costos fijos mensuales"},
			{Name: "price_per_unit", Label: "Precio por unidad"},
			{Name: "variable_cost_per_unit", Label: "Costo variable por unidad"},
		},
	},
	calc.KindROI: {
		Title:   "Retorno de inversión",
		Summary: "Cuánto rindió tu inversión, su equivalente anual y en cuánto tiempo la recuperas.",
		Fields: []fieldDef{
			{Name: "initial_investment", Label: "Inversión inicial"},
			{Name: "net_profit", Label: "Ganancia neta"},
			{Name: "timeframe", Label: "Plazo (meses)"},
		},
	},
	calc.KindUnitCost: {
		Title:   "Costo unitario",
		Summary: "Lo que realmente cuesta cada unidad al repartir tus costos fijos y variables.",
		Fields: []fieldDef{
			{Name: "production_volume", Label: "Unidades producidas al mes"},
		},
	},
	calc.KindProfit: {
		Title:   "Ganancia",
		Summary: "Ganancia bruta, márgenes y margen sobre costo de tus ventas.",
		Fields: []fieldDef{
			{Name: "total_revenue", Label: "Ingresos totales"},
			{Name: "total_costs", Label: "Costos totales"},
			{Name: "sales_price", Label: "Precio de venta por unidad"},
			{Name: "unit_cost", Label: "Costo por unidad"},
		},
	},
}

// metric is one labelled, display-formatted result value.
type metric struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// outcome is a calculator run as rendered, cached and recorded.
type outcome struct {
	ID         string    `json:"id"`
	Calculator calc.Kind `json:"calculator"`
	Valid      bool      `json:"valid"`
	Error      string    `json:"error,omitempty"`
	Field      string    `json:"field,omitempty"`
	Inputs     any       `json:"inputs"`
	Result     any       `json:"result,omitempty"`
	Metrics    []metric  `json:"metrics,omitempty"`
}

type breakEvenView struct {
	calc.BreakEvenResult
	Targets *calc.Targets      `json:"targets,omitempty"`
	Series  []calc.SeriesPoint `json:"series,omitempty"`
}

var ratingLabels = map[calc.Rating]string{
	calc.RatingLosing:      "Pérdida",
	calc.RatingImprovable:  "Mejorable",
	calc.RatingGood:        "Bueno",
	calc.RatingExcellent:   "Excelente",
	calc.RatingOutstanding: "Sobresaliente",
}

type roiView struct {
	calc.ROIResult
	Rating calc.Rating `json:"rating"`
}

// evaluate runs the engine for one typed input.
func evaluate(input any, locale string) outcome {
	switch in := input.(type) {
	case calc.BreakEvenInput:
		res, err := calc.BreakEven(in)
		var series []calc.SeriesPoint
		if err == nil {
			series, err = calc.BreakEvenSeries(in, calc.DefaultSeriesPoints)
		}
		out := newOutcome(calc.KindBreakEven, in, err)
		if err != nil {
			// The margin is reported even when the price does not cover it.
			out.Result = breakEvenView{BreakEvenResult: calc.BreakEvenResult{ContributionMargin: res.ContributionMargin}}
			return out
		}

		targets := calc.SalesTargets(res.BreakEvenPoint)
		out.Result = breakEvenView{BreakEvenResult: res, Targets: &targets, Series: series}
		out.Metrics = []metric{
			{Key: "break_even_point", Label: "Unidades para llegar al equilibrio", Value: humanize.CommafWithDigits(res.BreakEvenPoint, 1)},
			{Key: "contribution_margin", Label: "Margen de contribución por unidad", Value: calc.FormatCurrency(res.ContributionMargin, locale)},
			{Key: "contribution_margin_ratio", Label: "Razón de margen de contribución", Value: calc.FormatPercentage(res.ContributionMarginRatio, calc.DefaultPercentageDecimals)},
			{Key: "daily_target", Label: "Unidades por día", Value: humanize.CommafWithDigits(targets.Daily, 1)},
			{Key: "weekly_target", Label: "Unidades por semana", Value: humanize.CommafWithDigits(targets.Weekly, 1)},
		}
		return out

	case calc.ROIInput:
		res, err := calc.ROI(in)
		out := newOutcome(calc.KindROI, in, err)
		if err == nil {
			out.Result = roiView{ROIResult: res, Rating: calc.RateROI(res.AnnualizedROI)}
			out.Metrics = []metric{
				{Key: "roi", Label: "ROI", Value: calc.FormatPercentage(res.ROI, calc.DefaultPercentageDecimals)},
				{Key: "annualized_roi", Label: "ROI anualizado", Value: calc.FormatPercentage(res.AnnualizedROI, calc.DefaultPercentageDecimals)},
				{Key: "payback_period", Label: "Periodo de recuperación (meses)", Value: humanize.CommafWithDigits(res.PaybackPeriod, 1)},
				{Key: "rating", Label: "Veredicto", Value: ratingLabels[calc.RateROI(res.AnnualizedROI)]},
			}
		}
		return out

	case calc.ProfitInput:
		res, err := calc.Profit(in)
		out := newOutcome(calc.KindProfit, in, err)
		if err == nil {
			out.Result = res
			out.Metrics = []metric{
				{Key: "gross_profit", Label: "Ganancia bruta", Value: calc.FormatCurrency(res.GrossProfit, locale)},
				{Key: "profit_margin", Label: "Margen de ganancia", Value: calc.FormatPercentage(res.ProfitMargin, calc.DefaultPercentageDecimals)},
				{Key: "unit_profit_margin", Label: "Margen por unidad", Value: calc.FormatPercentage(res.UnitProfitMargin, calc.DefaultPercentageDecimals)},
				{Key: "markup_percentage", Label: "Margen sobre costo", Value: calc.FormatPercentage(res.MarkupPercentage, calc.DefaultPercentageDecimals)},
			}
		}
		return out

	case calc.UnitCostInput:
		res, err := calc.UnitCost(in)
		out := newOutcome(calc.KindUnitCost, in, err)
		if err == nil {
			out.Result = res
			out.Metrics = []metric{
				{Key: "total_fixed_cost", Label: "Costos fijos totales", Value: calc.FormatCurrency(res.TotalFixedCost, locale)},
				{Key: "total_variable_cost", Label: "Costos variables totales", Value: calc.FormatCurrency(res.TotalVariableCost, locale)},
				{Key: "fixed_cost_per_unit", Label: "Costo fijo por unidad", Value: calc.FormatCurrency(res.FixedCostPerUnit, locale)},
				{Key: "variable_cost_per_unit", Label: "Costo variable por unidad", Value: calc.FormatCurrency(res.VariableCostPerUnit, locale)},
				{Key: "total_cost_per_unit", Label: "Costo total por unidad", Value: calc.FormatCurrency(res.TotalCostPerUnit, locale)},
			}
		}
		return out

	default:
		return outcome{Error: fmt.Sprintf("unsupported input %T", input)}
	}
}

func newOutcome(kind calc.Kind, input any, err error) outcome {
	out := outcome{Calculator: kind, Inputs: input, Valid: err == nil}
	if err != nil {
		out.Error = err.Error()
		var vErr *calc.ValidationError
		if errors.As(err, &vErr) {
			out.Field = vErr.Field
		}
	}
	return out
}

// calculate evaluates input, serving repeated inputs from the cache, and
// records every run in the calculation history. Recording failures are
// logged, not returned: the user still gets the result.
func (s *server) calculate(ctx context.Context, input any) outcome {
	key, keyErr := cacheKey(input, s.locale)

	var out outcome
	hit := false
	if keyErr == nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			hit = json.Unmarshal([]byte(cached), &out) == nil
		}
	}

	if !hit {
		out = evaluate(input, s.locale)
		if keyErr == nil {
			if encoded, err := json.Marshal(out); err == nil {
				if err := s.cache.Set(ctx, key, string(encoded), s.cacheTTL); err != nil {
					s.logger.Warn("failed to cache calculation", zap.String("calculator", string(out.Calculator)), zap.Error(err))
				}
			}
		}
	}

	out.ID = uuid.NewString()
	if err := s.recordCalculation(ctx, out); err != nil {
		s.logger.Warn("failed to record calculation", zap.String("calculator", string(out.Calculator)), zap.Error(err))
	}
	s.logger.Debug("calculation",
		zap.String("id", out.ID),
		zap.String("calculator", string(out.Calculator)),
		zap.Bool("valid", out.Valid),
		zap.Bool("cache_hit", hit),
	)
	return out
}

func cacheKey(input any, locale string) (string, error) {
	encoded, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("calc:%T:%s:%s", input, locale, encoded), nil
}

// decodeCalculatorInput decodes a JSON body into the typed input for kind.
func decodeCalculatorInput(kind calc.Kind, r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	switch kind {
	case calc.KindBreakEven:
		return decodeInto[calc.BreakEvenInput](dec)
	case calc.KindROI:
		return decodeInto[calc.ROIInput](dec)
	case calc.KindProfit:
		return decodeInto[calc.ProfitInput](dec)
	case calc.KindUnitCost:
		return decodeInto[calc.UnitCostInput](dec)
	default:
		return nil, fmt.Errorf("unknown calculator %q", kind)
	}
}

func decodeInto[T any](dec *json.Decoder) (any, error) {
	var in T
	if err := dec.Decode(&in); err != nil {
		return nil, err
	}
	return in, nil
}

// parseCalculatorForm turns raw form strings into the typed input for kind.
// Every numeric field must parse; range checks are left to the engine.
func parseCalculatorForm(kind calc.Kind, form url.Values) (any, error) {
	def, ok := calculatorDefs[kind]
	if !ok {
		return nil, fmt.Errorf("unknown calculator %q", kind)
	}

	values := make(map[string]float64, len(def.Fields))
	for _, f := range def.Fields {
		v, ok := calc.ValidateNumericInput(form.Get(f.Name))
		if !ok {
			return nil, fmt.Errorf("el campo «%s» debe ser un número", f.Label)
		}
		values[f.Name] = v
	}

	switch kind {
	case calc.KindBreakEven:
		return calc.BreakEvenInput{
			FixedCosts:          values["fixed_costs"],
			PricePerUnit:        values["price_per_unit"],
			VariableCostPerUnit: values["variable_cost_per_unit"],
		}, nil
	case calc.KindROI:
		return calc.ROIInput{
			InitialInvestment: values["initial_investment"],
			NetProfit:         values["net_profit"],
			Timeframe:         values["timeframe"],
		}, nil
	case calc.KindProfit:
		return calc.ProfitInput{
			TotalRevenue: values["total_revenue"],
			TotalCosts:   values["total_costs"],
			SalesPrice:   values["sales_price"],
			UnitCost:     values["unit_cost"],
		}, nil
	default:
		items, err := parseCostItems(form.Get("costs"))
		if err != nil {
			return nil, err
		}
		return calc.UnitCostInput{ProductionVolume: values["production_volume"], Costs: items}, nil
	}
}

// parseCostItems reads one "name; cost; fixed|variable" item per line.
func parseCostItems(raw string) ([]calc.CostItem, error) {
	var items []calc.CostItem
	for i, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Split(line, ";")
		if len(parts) != 3 {
			return nil, fmt.Errorf("la línea de costos %d debe tener la forma «nombre; costo; fixed|variable»", i+1)
		}
		name := strings.TrimSpace(parts[0])
		if name == "" {
			return nil, fmt.Errorf("la línea de costos %d necesita un nombre", i+1)
		}
		cost, ok := calc.ValidateNumericInput(parts[1])
		if !ok {
			return nil, fmt.Errorf("en la línea de costos %d el costo debe ser un número", i+1)
		}

		items = append(items, calc.CostItem{
			Name: name,
			Cost: cost,
			Kind: calc.CostKind(strings.ToLower(strings.TrimSpace(parts[2]))),
		})
	}
	return items, nil
}

func formatCostItems(items []calc.CostItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s; %s; %s", item.Name, formatNumber(item.Cost), item.Kind))
	}
	return strings.Join(lines, "\n")
}

// formFromInput renders a typed input back into form values.
func formFromInput(input any) url.Values {
	form := url.Values{}
	switch in := input.(type) {
	case calc.BreakEvenInput:
		form.Set("fixed_costs", formatNumber(in.FixedCosts))
		form.Set("price_per_unit", formatNumber(in.PricePerUnit))
		form.Set("variable_cost_per_unit", formatNumber(in.VariableCostPerUnit))
	case calc.ROIInput:
		form.Set("initial_investment", formatNumber(in.InitialInvestment))
		form.Set("net_profit", formatNumber(in.NetProfit))
		form.Set("timeframe", formatNumber(in.Timeframe))
	case calc.ProfitInput:
		form.Set("total_revenue", formatNumber(in.TotalRevenue))
		form.Set("total_costs", formatNumber(in.TotalCosts))
		form.Set("sales_price", formatNumber(in.SalesPrice))
		form.Set("unit_cost", formatNumber(in.UnitCost))
	case calc.UnitCostInput:
		form.Set("production_volume", formatNumber(in.ProductionVolume))
		form.Set("costs", formatCostItems(in.Costs))
	}
	return form
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type formField struct {
	Name  string
	Label string
	Value string
}

type calculatorViewData struct {
	baseViewData
	Kind     calc.Kind
	Title    string
	Summary  string
	Action   string
	Submit   string
	Fields   []formField
	HasCosts bool
	Costs    string
	Outcome  *outcome
}

func (s *server) calculatorView(r *http.Request, kind calc.Kind, form url.Values, action, submit string) calculatorViewData {
	def := calculatorDefs[kind]
	view := calculatorViewData{
		baseViewData: s.base(r),
		Kind:         kind,
		Title:        def.Title,
		Summary:      def.Summary,
		Action:       action,
		Submit:       submit,
		HasCosts:     kind == calc.KindUnitCost,
		Costs:        form.Get("costs"),
	}
	for _, f := range def.Fields {
		view.Fields = append(view.Fields, formField{Name: f.Name, Label: f.Label, Value: form.Get(f.Name)})
	}
	return view
}

func (s *server) handleCalculatorForm(w http.ResponseWriter, r *http.Request) {
	kind, ok := calc.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	preset, err := s.getPreset(r.Context(), kind)
	if err != nil {
		s.logger.Error("failed to load preset", zap.String("calculator", string(kind)), zap.Error(err))
		http.Error(w, "failed to load preset", http.StatusInternalServerError)
		return
	}

	view := s.calculatorView(r, kind, formFromInput(preset), "/calculators/"+string(kind), "Calcular")
	s.renderTemplate(w, http.StatusOK, "calculator.html", view)
}

func (s *server) handleCalculatorSubmit(w http.ResponseWriter, r *http.Request) {
	kind, ok := calc.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	view := s.calculatorView(r, kind, r.PostForm, "/calculators/"+string(kind), "Calcular")
	input, err := parseCalculatorForm(kind, r.PostForm)
	if err != nil {
		view.ErrorMessage = err.Error()
		s.renderTemplate(w, http.StatusBadRequest, "calculator.html", view)
		return
	}

	out := s.calculate(r.Context(), input)
	view.Outcome = &out
	status := http.StatusOK
	if !out.Valid {
		view.ErrorMessage = out.Error
		status = http.StatusUnprocessableEntity
	}
	s.renderTemplate(w, status, "calculator.html", view)
}
