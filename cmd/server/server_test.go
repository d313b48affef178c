package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Simplici0/emprende/internal/cache"
	"github.com/Simplici0/emprende/internal/db"
	"github.com/Simplici0/emprende/internal/migrations"
	"github.com/Simplici0/emprende/internal/ratelimit"
	"github.com/Simplici0/emprende/internal/seed"
)

const (
	testAdminEmail    = "admin@emprende.mx"
	testAdminPassword = "s3cret-pass"
)

func newTestServer(t *testing.T) *server {
	t.Helper()

	ctx := context.Background()
	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	_, err = migrations.Up(ctx, database)
	require.NoError(t, err)
	_, err = seed.Run(database, seed.Config{AdminEmail: testAdminEmail, AdminPassword: testAdminPassword})
	require.NoError(t, err)

	return &server{
		auth:     newAuthService(database, "test-secret"),
		db:       database,
		cache:    cache.NewMemory(),
		logger:   zap.NewNop(),
		locale:   "en-US",
		cacheTTL: time.Minute,
	}
}

func newTestRouter(t *testing.T, srv *server, feedbackPerMinute int) http.Handler {
	t.Helper()

	limiter := ratelimit.New(feedbackPerMinute, time.Minute)
	t.Cleanup(limiter.Stop)
	return srv.routes(limiter)
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	switch b := body.(type) {
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postForm(t *testing.T, h http.Handler, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, h http.Handler, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func adminCookie(srv *server) *http.Cookie {
	return &http.Cookie{Name: sessionCookieName, Value: srv.auth.createSessionValue(testAdminEmail)}
}

func countRows(t *testing.T, srv *server, table string) int {
	t.Helper()

	var n int
	require.NoError(t, srv.db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func metricValue(out outcome, key string) string {
	for _, m := range out.Metrics {
		if m.Key == key {
			return m.Value
		}
	}
	return ""
}
