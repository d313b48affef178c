package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Simplici0/emprende/internal/calc"
)

// getPreset returns the stored preset for kind, or the built-in default when
// none has been saved.
func (s *server) getPreset(ctx context.Context, kind calc.Kind) (any, error) {
	var inputsJSON string
	err := s.db.QueryRowContext(ctx, `SELECT inputs_json FROM calculator_presets WHERE kind = ?`, string(kind)).Scan(&inputsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		input, ok := calc.Defaults().Input(kind)
		if !ok {
			return nil, fmt.Errorf("no default preset for %s", kind)
		}
		return input, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query %s preset: %w", kind, err)
	}

	input, err := decodeCalculatorInput(kind, strings.NewReader(inputsJSON))
	if err != nil {
		return nil, fmt.Errorf("decode %s preset: %w", kind, err)
	}
	return input, nil
}

func (s *server) savePreset(ctx context.Context, kind calc.Kind, input any) error {
	inputsJSON, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("encode %s preset: %w", kind, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calculator_presets (kind, inputs_json)
		VALUES (?, ?)
		ON CONFLICT(kind) DO UPDATE SET
			inputs_json = excluded.inputs_json,
			updated_at = CURRENT_TIMESTAMP
	`, string(kind), string(inputsJSON))
	if err != nil {
		return fmt.Errorf("save %s preset: %w", kind, err)
	}
	return nil
}

func (s *server) handleAdminPresetForm(w http.ResponseWriter, r *http.Request) {
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

	view := s.calculatorView(r, kind, formFromInput(preset), "/admin/presets/"+string(kind), "Guardar")
	s.renderTemplate(w, http.StatusOK, "admin_presets.html", view)
}

// handleAdminPresetSubmit only stores presets the engine accepts, so the
// public forms always open on a valid example.
func (s *server) handleAdminPresetSubmit(w http.ResponseWriter, r *http.Request) {
	kind, ok := calc.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	view := s.calculatorView(r, kind, r.PostForm, "/admin/presets/"+string(kind), "Guardar")
	input, err := parseCalculatorForm(kind, r.PostForm)
	if err != nil {
		view.ErrorMessage = err.Error()
		s.renderTemplate(w, http.StatusBadRequest, "admin_presets.html", view)
		return
	}

	if out := evaluate(input, s.locale); !out.Valid {
		view.ErrorMessage = out.Error
		s.renderTemplate(w, http.StatusUnprocessableEntity, "admin_presets.html", view)
		return
	}

	if err := s.savePreset(r.Context(), kind, input); err != nil {
		s.logger.Error("failed to save preset", zap.String("calculator", string(kind)), zap.Error(err))
		http.Error(w, "failed to save preset", http.StatusInternalServerError)
		return
	}

	s.logger.Info("preset updated", zap.String("calculator", string(kind)))
	view.SuccessMessage = "Valores guardados correctamente."
	s.renderTemplate(w, http.StatusOK, "admin_presets.html", view)
}
