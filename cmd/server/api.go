package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Simplici0/emprende/internal/calc"
)

const maxJSONBody = 64 << 10

func (s *server) handleAPICalculate(w http.ResponseWriter, r *http.Request) {
	kind, ok := calc.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "unknown calculator")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	input, err := decodeCalculatorInput(kind, r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	out := s.calculate(r.Context(), input)
	status := http.StatusOK
	if !out.Valid {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, out)
}

func (s *server) handleAPIPreset(w http.ResponseWriter, r *http.Request) {
	kind, ok := calc.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "unknown calculator")
		return
	}

	preset, err := s.getPreset(r.Context(), kind)
	if err != nil {
		s.logger.Error("failed to load preset", zap.String("calculator", string(kind)), zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "failed to load preset")
		return
	}
	writeJSON(w, http.StatusOK, preset)
}
