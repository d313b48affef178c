package main

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Simplici0/emprende/internal/cache"
	"github.com/Simplici0/emprende/internal/calc"
	"github.com/Simplici0/emprende/internal/config"
	"github.com/Simplici0/emprende/internal/db"
	"github.com/Simplici0/emprende/internal/logger"
	"github.com/Simplici0/emprende/internal/migrations"
	"github.com/Simplici0/emprende/internal/ratelimit"
	"github.com/Simplici0/emprende/internal/seed"
)

//go:embed templates/*.html
var templateFS embed.FS

const shutdownTimeout = 10 * time.Second

type server struct {
	auth     *authService
	db       *sql.DB
	cache    cache.Cache
	logger   *zap.Logger
	locale   string
	cacheTTL time.Duration
}

type baseViewData struct {
	Authenticated  bool
	ErrorMessage   string
	SuccessMessage string
}

type loginViewData struct {
	baseViewData
}

type calculatorLink struct {
	Kind    calc.Kind
	Title   string
	Summary string
}

type homeViewData struct {
	baseViewData
	Calculators []calculatorLink
}

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		// Logger config depends on cfg, so fall back to a default one here.
		zap.NewExample().Error("failed to load config", zap.Error(err))
		return err
	}

	log, err := logger.New(cfg.DebugLogging)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	for _, warning := range cfg.Warnings() {
		log.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		log.Error("failed to open database", zap.String("path", cfg.DBPath), zap.Error(err))
		return err
	}
	defer database.Close()

	if cfg.IsDev() {
		applied, err := migrations.Up(ctx, database)
		if err != nil {
			log.Error("failed to run database migrations", zap.Error(err))
			return err
		}
		log.Info("migrations applied", zap.Int("count", applied))
	} else if version, err := migrations.Version(ctx, database); err == nil {
		log.Info("database schema", zap.Int64("version", version))
	}

	stats, err := seed.Run(database, seed.Config{AdminEmail: cfg.AdminEmail, AdminPassword: cfg.AdminPassword})
	if err != nil {
		log.Error("failed to seed database", zap.Error(err))
		return err
	}
	log.Info("seed complete", zap.Int("inserts", stats.Inserts), zap.Int("updates", stats.Updates))

	results, closeCache := newResultCache(ctx, cfg, log)
	defer closeCache()

	limiter := ratelimit.New(cfg.FeedbackRateLimit, cfg.FeedbackRateWindow)
	defer limiter.Stop()

	srv := &server{
		auth:     newAuthService(database, cfg.SessionSecret),
		db:       database,
		cache:    results,
		logger:   log,
		locale:   cfg.Locale,
		cacheTTL: cfg.CacheTTL,
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(limiter),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", httpServer.Addr), zap.String("env", cfg.AppEnv))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}

// newResultCache picks Redis when configured and reachable, memory otherwise.
func newResultCache(ctx context.Context, cfg config.Config, log *zap.Logger) (cache.Cache, func()) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(), func() {}
	}

	rc, err := cache.Connect(ctx, cfg.RedisAddr, log)
	if err != nil {
		log.Warn("redis unavailable, using in-memory cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		return cache.NewMemory(), func() {}
	}
	return rc, func() { _ = rc.Close() }
}

func (s *server) routes(feedbackLimiter *ratelimit.Limiter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleHome)
	r.Get("/calculators/{kind}", s.handleCalculatorForm)
	r.Post("/calculators/{kind}", s.handleCalculatorSubmit)
	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLoginSubmit)
	r.Post("/logout", s.handleLogout)

	r.Route("/api", func(r chi.Router) {
		r.Post("/calculators/{kind}", s.handleAPICalculate)
		r.Get("/presets/{kind}", s.handleAPIPreset)
		r.With(feedbackLimiter.Middleware).Post("/feedback", s.handleAPIFeedback)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/calculations", s.handleAdminCalculations)
		r.Get("/feedback", s.handleAdminFeedback)
		r.Get("/presets/{kind}", s.handleAdminPresetForm)
		r.Post("/presets/{kind}", s.handleAdminPresetSubmit)
	})

	return r
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	data := homeViewData{baseViewData: s.base(r)}
	for _, kind := range calc.Kinds() {
		def := calculatorDefs[kind]
		data.Calculators = append(data.Calculators, calculatorLink{Kind: kind, Title: def.Title, Summary: def.Summary})
	}
	s.renderTemplate(w, http.StatusOK, "home.html", data)
}

func (s *server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if isAuthenticated(r, s.auth) {
		http.Redirect(w, r, "/admin/calculations", http.StatusSeeOther)
		return
	}
	s.renderTemplate(w, http.StatusOK, "login.html", loginViewData{})
}

func (s *server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")
	valid, err := s.auth.validateCredentials(r.Context(), email, password)
	if err != nil {
		s.logger.Error("authentication error", zap.Error(err))
		http.Error(w, "authentication error", http.StatusInternalServerError)
		return
	}
	if !valid {
		s.logger.Info("failed login", zap.String("email", email))
		s.renderTemplate(w, http.StatusUnauthorized, "login.html", loginViewData{baseViewData: baseViewData{ErrorMessage: "Credenciales inválidas. Intenta de nuevo."}})
		return
	}

	s.auth.setSessionCookie(w, email)
	http.Redirect(w, r, "/admin/calculations", http.StatusSeeOther)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *server) base(r *http.Request) baseViewData {
	return baseViewData{Authenticated: isAuthenticated(r, s.auth)}
}

var templateFuncs = template.FuncMap{
	"since": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return humanize.Time(t)
	},
	"calculatorTitle": func(kind string) string {
		if def, ok := calculatorDefs[calc.Kind(kind)]; ok {
			return def.Title
		}
		return kind
	},
}

func (s *server) renderTemplate(w http.ResponseWriter, status int, page string, data any) {
	templates, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS,
		"templates/layout.html",
		"templates/form.html",
		"templates/"+page,
	)
	if err != nil {
		s.logger.Error("failed to parse template", zap.String("page", page), zap.Error(err))
		http.Error(w, "failed to parse template", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.logger.Error("failed to render template", zap.String("page", page), zap.Error(err))
		http.Error(w, "failed to render template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAuthenticated(r, s.auth) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isAuthenticated(r *http.Request, auth *authService) bool {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return false
	}

	_, ok := auth.verifySessionValue(cookie.Value)
	return ok
}
