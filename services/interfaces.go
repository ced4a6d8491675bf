package services

import (
	"context"

	"github.com/Abhishek8108/uk-stock-analyzer/models"
)

// MarketDataProvider fetches daily series and company metadata. An empty
// series with a nil error means the symbol has no usable history.
type MarketDataProvider interface {
	GetDailyBars(ctx context.Context, symbol string, days int) ([]models.Bar, error)
	GetCompanyInfo(ctx context.Context, symbol string) (*models.CompanyInfo, error)
}

// NewsProvider returns recent articles matching a query
type NewsProvider interface {
	GetNews(ctx context.Context, query string, days int) ([]models.NewsArticle, error)
}

// LLMService defines the interface for the ranking model
type LLMService interface {
	InvokeWithPrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// RecommendationPublisher writes a validated result to its destination
type RecommendationPublisher interface {
	Publish(ctx context.Context, set *models.RecommendationSet) error
}

// Compile-time interface verification
var _ MarketDataProvider = (*YahooService)(nil)
var _ MarketDataProvider = (*AlpacaService)(nil)
var _ MarketDataProvider = (*CachedMarketData)(nil)
var _ NewsProvider = (*NewsAPIService)(nil)
var _ LLMService = (*OpenAIService)(nil)
var _ LLMService = (*BedrockService)(nil)
var _ RecommendationPublisher = (*SheetsService)(nil)
