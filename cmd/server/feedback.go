package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Simplici0/emprende/internal/calc"
)

const (
	maxFeedbackMessage  = 2000
	maxFeedbackSession  = 128
	feedbackPageSize    = 100
	defaultFeedbackType = "general"
)

var feedbackCategories = []string{"general", "usability", "accuracy", "design", "feature_request", "bug"}

var errEmptyFeedback = errors.New("feedback needs a rating or a message")

type feedbackInput struct {
	SessionID  string `json:"session_id"`
	Calculator string `json:"calculator"`
	Rating     int    `json:"rating"`
	Category   string `json:"category"`
	Message    string `json:"message"`
}

// normalize trims the input and checks it against the feedback table rules.
func (in *feedbackInput) normalize() error {
	in.SessionID = strings.TrimSpace(in.SessionID)
	in.Calculator = strings.TrimSpace(in.Calculator)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	in.Message = strings.TrimSpace(in.Message)

	if in.Category == "" {
		in.Category = defaultFeedbackType
	}
	if !slices.Contains(feedbackCategories, in.Category) {
		return fmt.Errorf("category must be one of %s", strings.Join(feedbackCategories, ", "))
	}
	if in.Calculator != "" {
		if _, ok := calc.ParseKind(in.Calculator); !ok {
			return fmt.Errorf("unknown calculator %q", in.Calculator)
		}
	}
	if in.Rating < 0 || in.Rating > 5 {
		return errors.New("rating must be between 0 and 5")
	}
	if utf8.RuneCountInString(in.Message) > maxFeedbackMessage {
		return fmt.Errorf("message must be at most %d characters", maxFeedbackMessage)
	}
	if len(in.SessionID) > maxFeedbackSession {
		return errors.New("session id is too long")
	}
	if in.Rating == 0 && in.Message == "" {
		return errEmptyFeedback
	}
	return nil
}

type feedbackEntry struct {
	PublicID   string
	SessionID  string
	Calculator string
	Rating     int
	Category   string
	Message    string
	UserAgent  string
	CreatedAt  time.Time
}

type ratingSummary struct {
	Calculator string
	Count      int
	Average    float64
}

type feedbackViewData struct {
	baseViewData
	Ratings  []ratingSummary
	Feedback []feedbackEntry
}

func (s *server) insertFeedback(ctx context.Context, in feedbackInput, userAgent string) (string, error) {
	publicID := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (public_id, session_id, calculator, rating, category, message, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, publicID, nullable(in.SessionID), nullable(in.Calculator), in.Rating, in.Category, nullable(in.Message), nullable(userAgent))
	if err != nil {
		return "", fmt.Errorf("insert feedback: %w", err)
	}
	return publicID, nil
}

func (s *server) listFeedback(ctx context.Context, limit int) ([]feedbackEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT public_id, COALESCE(session_id, ''), COALESCE(calculator, ''), rating, category,
			COALESCE(message, ''), COALESCE(user_agent, ''), created_at
		FROM feedback
		ORDER BY datetime(created_at) DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	var entries []feedbackEntry
	for rows.Next() {
		var e feedbackEntry
		var createdAt any
		if err := rows.Scan(&e.PublicID, &e.SessionID, &e.Calculator, &e.Rating, &e.Category, &e.Message, &e.UserAgent, &createdAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		e.CreatedAt = parseTimestamp(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return entries, nil
}

// feedbackRatings averages the non-zero ratings per calculator. Feedback not
// tied to a calculator is grouped under an empty name.
func (s *server) feedbackRatings(ctx context.Context) ([]ratingSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(calculator, ''), COUNT(*), AVG(rating)
		FROM feedback
		WHERE rating > 0
		GROUP BY COALESCE(calculator, '')
		ORDER BY COALESCE(calculator, '')
	`)
	if err != nil {
		return nil, fmt.Errorf("query feedback ratings: %w", err)
	}
	defer rows.Close()

	var summaries []ratingSummary
	for rows.Next() {
		var rs ratingSummary
		if err := rows.Scan(&rs.Calculator, &rs.Count, &rs.Average); err != nil {
			return nil, fmt.Errorf("scan feedback rating: %w", err)
		}
		summaries = append(summaries, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback ratings: %w", err)
	}
	return summaries, nil
}

func (s *server) handleAPIFeedback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var in feedbackInput
	if err := dec.Decode(&in); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := in.normalize(); err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.insertFeedback(r.Context(), in, r.UserAgent())
	if err != nil {
		s.logger.Error("failed to store feedback", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "failed to store feedback")
		return
	}

	s.logger.Info("feedback received",
		zap.String("id", id),
		zap.String("calculator", in.Calculator),
		zap.Int("rating", in.Rating),
		zap.String("category", in.Category),
	)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *server) handleAdminFeedback(w http.ResponseWriter, r *http.Request) {
	entries, err := s.listFeedback(r.Context(), feedbackPageSize)
	if err != nil {
		s.logger.Error("failed to load feedback", zap.Error(err))
		http.Error(w, "failed to load feedback", http.StatusInternalServerError)
		return
	}
	ratings, err := s.feedbackRatings(r.Context())
	if err != nil {
		s.logger.Error("failed to load feedback ratings", zap.Error(err))
		http.Error(w, "failed to load feedback", http.StatusInternalServerError)
		return
	}

	s.renderTemplate(w, http.StatusOK, "admin_feedback.html", feedbackViewData{
		baseViewData: s.base(r),
		Ratings:      ratings,
		Feedback:     entries,
	})
}

func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
