package agents

import (
	"context"

	"github.com/Abhishek8108/uk-stock-analyzer/models"
	"github.com/Abhishek8108/uk-stock-analyzer/services"
)

// Type aliases for service interfaces - defined in services package
// These aliases allow agents to reference interfaces without importing concrete implementations
type LLMService = services.LLMService
type MarketDataProvider = services.MarketDataProvider
type NewsProvider = services.NewsProvider

// SentimentEstimator scores recent news for an instrument. It never fails;
// any problem yields models.NeutralSentiment().
type SentimentEstimator interface {
	Estimate(ctx context.Context, symbol, companyName string) models.SentimentRecord
}

var _ SentimentEstimator = (*SentimentAnalyst)(nil)
