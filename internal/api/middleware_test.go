package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/Abhishek8108/uk-stock-analyzer/observability"
)

func TestStatusRecorder(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())
	assert.Equal(t, http.StatusOK, rec.status, "default status")

	rec.WriteHeader(http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, rec.status)

	data := []byte("Hello, World!")
	n, err := rec.Write(data)
	assert.NoError(t, err)
	assert.Equal(t, len(data), n)

	_, _ = rec.Write(data)
	assert.Equal(t, 2*len(data), rec.bytes)
}

func withTestMetrics(t *testing.T) *observability.Metrics {
	t.Helper()
	original := observability.GetMetrics()
	m := observability.NewMetrics(prometheus.NewRegistry())
	observability.SetMetrics(m)
	t.Cleanup(func() { observability.SetMetrics(original) })
	return m
}

func TestMetricsMiddleware_RoutePattern(t *testing.T) {
	m := withTestMetrics(t)

	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/api/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/runs/"+id, nil))
	}

	assert.Equal(t, float64(3), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/runs/{id}", "404")))
}

func TestMetricsMiddleware_Unmatched(t *testing.T) {
	m := withTestMetrics(t)

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/whatever", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", unmatchedRoute, "500")))
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	observability.SetOutput(&buf, true, slog.LevelDebug)
	defer observability.InitLogger(false)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(LoggingMiddleware)
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {})
	r.Get("/api/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/boom", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if assert.Len(t, lines, 2) {
		assert.Contains(t, lines[0], `"level":"DEBUG"`)
		assert.Contains(t, lines[0], `"route":"/api/health"`)
		assert.Contains(t, lines[0], `"request_id":`)
		assert.Contains(t, lines[1], `"level":"ERROR"`)
		assert.Contains(t, lines[1], `"status":502`)
	}
}

func TestCORSMiddleware(t *testing.T) {
	called := false
	handler := CORSMiddleware("https://dashboard.example")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/runs", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://dashboard.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, called, "preflight must not reach the handler")

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	assert.True(t, called)
}
