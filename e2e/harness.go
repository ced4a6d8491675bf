// Package e2e provides end-to-end testing infrastructure for the analyzer:
// the real service clients run against local mock APIs.
package e2e

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Abhishek8108/uk-stock-analyzer/agents"
	"github.com/Abhishek8108/uk-stock-analyzer/config"
	"github.com/Abhishek8108/uk-stock-analyzer/e2e/mocks"
	"github.com/Abhishek8108/uk-stock-analyzer/internal/api"
	"github.com/Abhishek8108/uk-stock-analyzer/internal/app"
	"github.com/Abhishek8108/uk-stock-analyzer/models"
	"github.com/Abhishek8108/uk-stock-analyzer/repository"
	"github.com/Abhishek8108/uk-stock-analyzer/screener"
	"github.com/Abhishek8108/uk-stock-analyzer/services"
)

// TestHarness provides the infrastructure for running E2E tests.
type TestHarness struct {
	t          *testing.T
	ctx        context.Context
	cancel     context.CancelFunc
	mockServer *mocks.MockServer
	market     *StaticMarketData
	publisher  *RecordingPublisher
	store      repository.RunStore
	app        *app.App
	router     http.Handler
	config     *config.Config
}

// NewTestHarness creates a new test harness with all dependencies initialized.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)

	return &TestHarness{
		t:      t,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Setup initializes all test dependencies. Runs are stored in Postgres when
// E2E_DATABASE_URL is set and in memory otherwise.
func (h *TestHarness) Setup() error {
	// Start mock server for external APIs
	h.mockServer = mocks.NewMockServer()

	// Create test configuration
	h.config = h.createTestConfig()

	if dbURL := os.Getenv("E2E_DATABASE_URL"); dbURL != "" {
		repo, err := repository.NewRepository(h.ctx, dbURL)
		if err != nil {
			return fmt.Errorf("failed to connect to test database: %w", err)
		}
		if err := repo.Migrate(h.ctx); err != nil {
			repo.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		h.store = repo
	} else {
		h.store = repository.NewMemoryStore(repository.DefaultMemoryCapacity)
	}

	llm, err := services.NewOpenAIService(h.config)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	news := services.NewNewsAPIService(h.config.NewsAPI.APIKey, h.config.NewsAPI.BaseURL, h.config.NewsAPI.PageSize)

	h.market = NewStaticMarketData()
	h.publisher = &RecordingPublisher{}

	analyzer := agents.NewStockAnalyzer(h.market, agents.NewSentimentAnalyst(news, h.config.NewsAPI), h.config)
	ranker := agents.NewRankingAnalyst(llm, time.Duration(h.config.Analysis.RankingTimeoutSec)*time.Second)
	daily := screener.NewDailyScreener(analyzer, ranker, h.publisher, h.store, h.config)

	// Create application
	h.app = app.New(h.config, h.store, daily)
	h.app.Startup(h.ctx)

	// Create router
	h.router = api.NewRouter(api.NewHandler(h.app), h.config)

	return nil
}

// Teardown cleans up all test resources.
func (h *TestHarness) Teardown() {
	if h.app != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		h.app.Shutdown(shutdownCtx)
		cancel()
	}

	if h.cancel != nil {
		h.cancel()
	}

	if h.mockServer != nil {
		h.mockServer.Close()
	}
}

// Context returns the test context.
func (h *TestHarness) Context() context.Context {
	return h.ctx
}

// MockServer returns the mock server for configuring responses.
func (h *TestHarness) MockServer() *mocks.MockServer {
	return h.mockServer
}

// Market returns the static market data source.
func (h *TestHarness) Market() *StaticMarketData {
	return h.market
}

// Publisher returns the publisher that records published sets.
func (h *TestHarness) Publisher() *RecordingPublisher {
	return h.publisher
}

// App returns the application instance.
func (h *TestHarness) App() *app.App {
	return h.app
}

// Config returns the test configuration.
func (h *TestHarness) Config() *config.Config {
	return h.config
}

// DoRequest performs an HTTP request and returns the response.
func (h *TestHarness) DoRequest(method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// WaitForIdle blocks until no run holds the run slot or the timeout passes.
func (h *TestHarness) WaitForIdle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !h.app.IsRunning() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func (h *TestHarness) createTestConfig() *config.Config {
	cfg := config.NewTestConfig()
	cfg.Universe.TestStocks = []string{"BP.L", "VOD.L", "MISSING.L"}
	cfg.Universe.Sectors = map[string]string{"BP.L": "Energy", "VOD.L": "Telecoms"}
	cfg.LLM.Provider = "openai"
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.BaseURL = h.mockServer.URL() + "/v1/"
	cfg.LLM.Model = "test-model"
	cfg.NewsAPI.APIKey = "test-news-key"
	cfg.NewsAPI.BaseURL = h.mockServer.URL() + "/v2"
	return cfg
}

// StaticMarketData serves a fixed, rising 60-day series for every symbol
// except those marked missing, which return an empty series.
type StaticMarketData struct {
	mu      sync.Mutex
	missing map[string]bool
}

// NewStaticMarketData creates a source where MISSING.L has no history.
func NewStaticMarketData() *StaticMarketData {
	return &StaticMarketData{missing: map[string]bool{"MISSING.L": true}}
}

// GetDailyBars returns the fixed series for symbol.
func (s *StaticMarketData) GetDailyBars(_ context.Context, symbol string, _ int) ([]models.Bar, error) {
	s.mu.Lock()
	missing := s.missing[symbol]
	s.mu.Unlock()
	if missing {
		return []models.Bar{}, nil
	}

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, 60)
	for i := range bars {
		price := decimal.NewFromFloat(100 + float64(i)*0.5)
		bars[i] = models.Bar{
			Symbol:    symbol,
			Timestamp: start.AddDate(0, 0, i),
			Open:      price,
			High:      price.Add(decimal.NewFromInt(1)),
			Low:       price.Sub(decimal.NewFromInt(1)),
			Close:     price,
			Volume:    1_000_000,
		}
	}
	return bars, nil
}

// GetCompanyInfo returns a long name derived from the symbol.
func (s *StaticMarketData) GetCompanyInfo(_ context.Context, symbol string) (*models.CompanyInfo, error) {
	return &models.CompanyInfo{
		Symbol:    symbol,
		LongName:  strings.TrimSuffix(symbol, ".L") + " plc",
		MarketCap: 10_000_000_000,
	}, nil
}

// RecordingPublisher keeps every published set and its sheet rows.
type RecordingPublisher struct {
	mu   sync.Mutex
	sets []*models.RecommendationSet
	rows [][][]interface{}
	err  error
}

// Publish records the set, or fails with the configured error.
func (p *RecordingPublisher) Publish(_ context.Context, set *models.RecommendationSet) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sets = append(p.sets, set)
	p.rows = append(p.rows, services.FormatRecommendationRows(set, set.AnalysisTimestamp))
	return nil
}

// SetError makes subsequent publishes fail.
func (p *RecordingPublisher) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Published returns the sets published so far.
func (p *RecordingPublisher) Published() []*models.RecommendationSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*models.RecommendationSet(nil), p.sets...)
}

// Rows returns the sheet rows rendered for the last published set.
func (p *RecordingPublisher) Rows() [][]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.rows) == 0 {
		return nil
	}
	return p.rows[len(p.rows)-1]
}
