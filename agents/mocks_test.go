package agents

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Abhishek8108/uk-stock-analyzer/models"
)

type mockLLMService struct {
	response   string
	err        error
	lastSystem string
	lastUser   string
}

func (m *mockLLMService) InvokeWithPrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.lastSystem = systemPrompt
	m.lastUser = userPrompt
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

type mockNewsProvider struct {
	articles  []models.NewsArticle
	err       error
	lastQuery string
	lastDays  int
}

func (m *mockNewsProvider) GetNews(ctx context.Context, query string, days int) ([]models.NewsArticle, error) {
	m.lastQuery = query
	m.lastDays = days
	if m.err != nil {
		return nil, m.err
	}
	return m.articles, nil
}

// mockMarketData serves canned series per symbol; it is safe for concurrent use
type mockMarketData struct {
	mu       sync.Mutex
	bars     map[string][]models.Bar
	info     map[string]*models.CompanyInfo
	barErr   map[string]error
	infoErr  error
	requests []string
}

func (m *mockMarketData) GetDailyBars(ctx context.Context, symbol string, days int) ([]models.Bar, error) {
	m.mu.Lock()
	m.requests = append(m.requests, symbol)
	m.mu.Unlock()

	if err := m.barErr[symbol]; err != nil {
		return nil, err
	}
	return m.bars[symbol], nil
}

func (m *mockMarketData) GetCompanyInfo(ctx context.Context, symbol string) (*models.CompanyInfo, error) {
	if m.infoErr != nil {
		return nil, m.infoErr
	}
	if info, ok := m.info[symbol]; ok {
		return info, nil
	}
	return nil, errors.New("no metadata")
}

type mockSentiment struct {
	record models.SentimentRecord
}

func (m *mockSentiment) Estimate(ctx context.Context, symbol, companyName string) models.SentimentRecord {
	return m.record
}

// flatBars returns n daily bars closing at price with constant volume
func flatBars(symbol string, n int, price float64, volume int64) []models.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	p := decimal.NewFromFloat(price)
	for i := range bars {
		bars[i] = models.Bar{
			Symbol:    symbol,
			Timestamp: start.AddDate(0, 0, i),
			Open:      p,
			High:      p,
			Low:       p,
			Close:     p,
			Volume:    volume,
		}
	}
	return bars
}
