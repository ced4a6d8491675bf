package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const newsFixture = `{
	"status": "ok",
	"totalResults": 2,
	"articles": [
		{
			"source": {"id": "reuters", "name": "Reuters"},
			"title": "BP profit beats forecasts",
			"description": "Strong trading lifts results",
			"url": "https://example.com/bp-profit",
			"publishedAt": "2024-01-15T14:30:00Z"
		},
		{
			"source": {"id": null, "name": "FT"},
			"title": "Oil majors under pressure",
			"description": null,
			"url": "https://example.com/oil",
			"publishedAt": "not-a-date"
		}
	]
}`

func newTestNewsAPIService(url string) *NewsAPIService {
	s := NewNewsAPIService("test-api-key", url, 50)
	s.retry = RetryConfig{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	return s
}

func TestNewNewsAPIService(t *testing.T) {
	service := NewNewsAPIService("test-api-key", "", 0)
	require.NotNil(t, service)
	assert.Equal(t, "test-api-key", service.apiKey)
	assert.Equal(t, DefaultNewsAPIBaseURL, service.client.BaseURL)
	assert.Equal(t, 100, service.pageSize)
}

func TestNewsAPIService_GetNews(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/everything", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("X-Api-Key"))

		q := r.URL.Query()
		assert.Equal(t, "BP p.l.c. OR BP", q.Get("q"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "publishedAt", q.Get("sortBy"))
		assert.Equal(t, "50", q.Get("pageSize"))
		assert.Equal(t, time.Now().UTC().AddDate(0, 0, -7).Format("2006-01-02"), q.Get("from"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(newsFixture))
	}))
	defer server.Close()

	articles, err := newTestNewsAPIService(server.URL).GetNews(context.Background(), "BP p.l.c. OR BP", 7)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "BP profit beats forecasts", articles[0].Title)
	assert.Equal(t, "Reuters", articles[0].Source)
	assert.Equal(t, time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC), articles[0].PublishedAt)
	assert.Empty(t, articles[1].Description)
	assert.False(t, articles[1].PublishedAt.IsZero())
}

func TestNewsAPIService_GetNews_ServerError(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestNewsAPIService(server.URL).GetNews(context.Background(), "VOD", 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Equal(t, 2, calls)
}

func TestNewsAPIService_GetNews_UnauthorizedIsNotRetried(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid"}`))
	}))
	defer server.Close()

	_, err := newTestNewsAPIService(server.URL).GetNews(context.Background(), "VOD", 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Your API key is invalid")
	assert.Equal(t, 1, calls)
}
