package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Abhishek8108/uk-stock-analyzer/agents"
	"github.com/Abhishek8108/uk-stock-analyzer/config"
	"github.com/Abhishek8108/uk-stock-analyzer/internal/app"
	"github.com/Abhishek8108/uk-stock-analyzer/observability"
	"github.com/Abhishek8108/uk-stock-analyzer/repository"
	"github.com/Abhishek8108/uk-stock-analyzer/screener"
	"github.com/Abhishek8108/uk-stock-analyzer/services"
)

// buildApp wires the configured providers into an App. Optional services
// degrade: no NewsAPI key means neutral sentiment, no database means an
// in-memory run store, no spreadsheet means results are only logged.
func buildApp(ctx context.Context, cfg *config.Config) (*app.App, error) {
	market, err := newMarketData(cfg)
	if err != nil {
		return nil, err
	}

	var news agents.NewsProvider
	if cfg.HasNewsAPI() {
		news = services.NewNewsAPIService(cfg.NewsAPI.APIKey, cfg.NewsAPI.BaseURL, cfg.NewsAPI.PageSize)
	} else {
		observability.Warn("NEWS_API_KEY not set, sentiment will be neutral")
	}

	llm, err := newLLM(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var publisher screener.Publisher
	if cfg.HasSheets() {
		sheets, err := services.NewSheetsService(ctx, cfg.Sheets.CredentialsPath, cfg.Sheets.SpreadsheetID, cfg.Sheets.WorksheetName)
		if err != nil {
			return nil, err
		}
		publisher = sheets
	} else {
		observability.Warn("GOOGLE_SHEET_ID not set, picks will not be published")
	}

	store := newRunStore(ctx, cfg)

	analyzer := agents.NewStockAnalyzer(market, agents.NewSentimentAnalyst(news, cfg.NewsAPI), cfg)
	ranker := agents.NewRankingAnalyst(llm, time.Duration(cfg.Analysis.RankingTimeoutSec)*time.Second)
	daily := screener.NewDailyScreener(analyzer, ranker, publisher, store, cfg)

	return app.New(cfg, store, daily), nil
}

func newMarketData(cfg *config.Config) (services.MarketDataProvider, error) {
	var market services.MarketDataProvider

	switch cfg.MarketData.Provider {
	case "alpaca":
		if !cfg.HasAlpaca() {
			return nil, fmt.Errorf("ALPACA_API_KEY and ALPACA_API_SECRET are required for the alpaca provider")
		}
		market = services.NewAlpacaService(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL,
			cfg.MarketData.RequestsPerSecond, cfg.MarketData.Burst)
	default:
		market = services.NewYahooService(cfg.MarketData.RequestsPerSecond, cfg.MarketData.Burst)
	}

	if cfg.HasRedis() {
		rdb := services.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		ttl := time.Duration(cfg.MarketData.CacheTTLMinutes) * time.Minute
		market = services.NewCachedMarketData(market, rdb, ttl)
		observability.Info("market data cache enabled", "addr", cfg.Redis.Addr, "ttl", ttl)
	}

	return market, nil
}

func newLLM(ctx context.Context, cfg *config.Config) (services.LLMService, error) {
	if cfg.LLM.Provider == "bedrock" {
		return services.NewBedrockService(ctx, cfg)
	}
	return services.NewOpenAIService(cfg)
}

func newRunStore(ctx context.Context, cfg *config.Config) repository.RunStore {
	if !cfg.HasDatabase() {
		observability.Info("DATABASE_URL not set, keeping run history in memory")
		return repository.NewMemoryStore(repository.DefaultMemoryCapacity)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	repo, err := repository.NewRepository(connectCtx, cfg.Database.URL)
	if err != nil {
		observability.Warn("failed to connect to database, keeping run history in memory", "error", err)
		return repository.NewMemoryStore(repository.DefaultMemoryCapacity)
	}
	if err := repo.Migrate(connectCtx); err != nil {
		observability.Warn("failed to migrate database, keeping run history in memory", "error", err)
		repo.Close()
		return repository.NewMemoryStore(repository.DefaultMemoryCapacity)
	}
	return repo
}
