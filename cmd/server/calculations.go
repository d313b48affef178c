package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/emprende/internal/calc"
)

const calculationsPageSize = 100

type calculationRecord struct {
	PublicID     string
	Calculator   string
	InputsJSON   string
	ResultsJSON  string
	Valid        bool
	ErrorMessage string
	CreatedAt    time.Time
}

type calculatorUsage struct {
	Calculator string
	Total      int
	Invalid    int
}

type calculationsViewData struct {
	baseViewData
	Calculator   string
	Calculators  []calc.Kind
	Usage        []calculatorUsage
	Calculations []calculationRecord
}

func (s *server) recordCalculation(ctx context.Context, out outcome) error {
	inputsJSON, err := json.Marshal(out.Inputs)
	if err != nil {
		return fmt.Errorf("encode calculation inputs: %w", err)
	}
	resultsJSON := []byte("{}")
	if out.Result != nil {
		if resultsJSON, err = json.Marshal(out.Result); err != nil {
			return fmt.Errorf("encode calculation results: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calculations (public_id, calculator, inputs_json, results_json, valid, error_message)
		VALUES (?, ?, ?, ?, ?, ?)
	`, out.ID, string(out.Calculator), string(inputsJSON), string(resultsJSON), out.Valid, nullable(out.Error))
	if err != nil {
		return fmt.Errorf("insert calculation: %w", err)
	}
	return nil
}

// listCalculations returns the newest calculations first, optionally limited
// to one calculator.
func (s *server) listCalculations(ctx context.Context, calculator string, limit int) ([]calculationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT public_id, calculator, inputs_json, results_json, valid, COALESCE(error_message, ''), created_at
		FROM calculations
		WHERE (? = '' OR calculator = ?)
		ORDER BY datetime(created_at) DESC, id DESC
		LIMIT ?
	`, calculator, calculator, limit)
	if err != nil {
		return nil, fmt.Errorf("query calculations: %w", err)
	}
	defer rows.Close()

	var records []calculationRecord
	for rows.Next() {
		var rec calculationRecord
		var createdAt any
		if err := rows.Scan(&rec.PublicID, &rec.Calculator, &rec.InputsJSON, &rec.ResultsJSON, &rec.Valid, &rec.ErrorMessage, &createdAt); err != nil {
			return nil, fmt.Errorf("scan calculation: %w", err)
		}
		rec.CreatedAt = parseTimestamp(createdAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calculations: %w", err)
	}
	return records, nil
}

func (s *server) calculationUsage(ctx context.Context) ([]calculatorUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT calculator, COUNT(*), SUM(CASE WHEN valid THEN 0 ELSE 1 END)
		FROM calculations
		GROUP BY calculator
		ORDER BY calculator
	`)
	if err != nil {
		return nil, fmt.Errorf("query calculation usage: %w", err)
	}
	defer rows.Close()

	var usage []calculatorUsage
	for rows.Next() {
		var u calculatorUsage
		if err := rows.Scan(&u.Calculator, &u.Total, &u.Invalid); err != nil {
			return nil, fmt.Errorf("scan calculation usage: %w", err)
		}
		usage = append(usage, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calculation usage: %w", err)
	}
	return usage, nil
}

func (s *server) handleAdminCalculations(w http.ResponseWriter, r *http.Request) {
	calculator := r.URL.Query().Get("calculator")
	if calculator != "" {
		if _, ok := calc.ParseKind(calculator); !ok {
			http.Error(w, "unknown calculator", http.StatusBadRequest)
			return
		}
	}

	records, err := s.listCalculations(r.Context(), calculator, calculationsPageSize)
	if err != nil {
		s.logger.Error("failed to load calculations", zap.Error(err))
		http.Error(w, "failed to load calculations", http.StatusInternalServerError)
		return
	}
	usage, err := s.calculationUsage(r.Context())
	if err != nil {
		s.logger.Error("failed to load calculation usage", zap.Error(err))
		http.Error(w, "failed to load calculations", http.StatusInternalServerError)
		return
	}

	s.renderTemplate(w, http.StatusOK, "admin_calculations.html", calculationsViewData{
		baseViewData: s.base(r),
		Calculator:   calculator,
		Calculators:  calc.Kinds(),
		Usage:        usage,
		Calculations: records,
	})
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts the forms sqlite hands back for DATETIME columns.
func parseTimestamp(v any) time.Time {
	var raw string
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		raw = t
	case []byte:
		raw = string(t)
	default:
		return time.Time{}
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}
