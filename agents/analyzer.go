package agents

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Abhishek8108/uk-stock-analyzer/config"
	"github.com/Abhishek8108/uk-stock-analyzer/models"
	"github.com/Abhishek8108/uk-stock-analyzer/observability"
)

// StockAnalyzer builds one StockAnalysis per symbol from the series
// fetcher, the indicator engine and the sentiment estimator
type StockAnalyzer struct {
	market        MarketDataProvider
	sentiment     SentimentEstimator
	cfg           *config.Config
	maxConcurrent int
	symbolTimeout time.Duration
	now           func() time.Time
}

// NewStockAnalyzer creates a new StockAnalyzer
func NewStockAnalyzer(market MarketDataProvider, sentiment SentimentEstimator, cfg *config.Config) *StockAnalyzer {
	maxConcurrent := cfg.Analysis.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	timeout := time.Duration(cfg.Analysis.SymbolTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StockAnalyzer{
		market:        market,
		sentiment:     sentiment,
		cfg:           cfg,
		maxConcurrent: maxConcurrent,
		symbolTimeout: timeout,
		now:           time.Now,
	}
}

// AnalyzeSymbols analyses every symbol with at most maxConcurrent in flight
// and returns the successful analyses in input order. A failing symbol is
// logged and skipped; it never aborts the batch.
func (a *StockAnalyzer) AnalyzeSymbols(ctx context.Context, symbols []string) []models.StockAnalysis {
	results := make([]*models.StockAnalysis, len(symbols))
	sem := make(chan struct{}, a.maxConcurrent)
	var wg sync.WaitGroup

	for i, symbol := range symbols {
		wg.Add(1)
		go func(idx int, symbol string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				observability.Warn("analysis cancelled", "symbol", symbol, "error", ctx.Err())
				return
			}

			analysis, err := a.AnalyzeSymbol(ctx, symbol)
			if err != nil {
				observability.WithSymbol(symbol).Warn("skipping symbol", "error", err)
				return
			}
			results[idx] = analysis
		}(i, symbol)
	}
	wg.Wait()

	analyses := make([]models.StockAnalysis, 0, len(symbols))
	for _, r := range results {
		if r != nil {
			analyses = append(analyses, *r)
		}
	}
	return analyses
}

// AnalyzeSymbol fetches one symbol's series and metadata and assembles its
// analysis. It returns an error only when no usable series is available.
func (a *StockAnalyzer) AnalyzeSymbol(ctx context.Context, symbol string) (_ *models.StockAnalysis, err error) {
	metrics := observability.GetMetrics()
	metrics.RecordAnalysisRequest(symbol)
	timer := metrics.NewTimer()

	ctx, cancel := context.WithTimeout(ctx, a.symbolTimeout)
	defer cancel()

	ctx, span := observability.StartSpan(ctx, "analyze_symbol", "symbol", symbol)
	defer func() {
		observability.EndSpan(span, err)
		status := "success"
		if err != nil {
			status = "skipped"
		}
		timer.ObserveAnalysis(symbol, status)
	}()

	bars, err := a.market.GetDailyBars(ctx, symbol, a.cfg.MarketData.LookbackDays)
	if err != nil {
		metrics.RecordAnalysisError(symbol, "fetch")
		return nil, fmt.Errorf("failed to fetch series: %w", err)
	}
	if len(bars) == 0 {
		metrics.RecordAnalysisError(symbol, "fetch")
		return nil, fmt.Errorf("no price history for %s", symbol)
	}

	companyName := symbol
	var marketCap int64
	sector := a.cfg.SectorFor(symbol)

	info, infoErr := a.market.GetCompanyInfo(ctx, symbol)
	if infoErr != nil {
		observability.WithSymbol(symbol).Debug("company metadata unavailable", "error", infoErr)
	} else if info != nil {
		if info.LongName != "" {
			companyName = info.LongName
		}
		marketCap = info.MarketCap
		if info.Sector != "" {
			sector = info.Sector
		}
	}

	return &models.StockAnalysis{
		Symbol:              symbol,
		CompanyName:         companyName,
		AnalysisDate:        a.now().Format(models.AnalysisDateFormat),
		TechnicalIndicators: CalculateIndicators(bars),
		Sentiment:           a.sentiment.Estimate(ctx, symbol, companyName),
		MarketCap:           marketCap,
		Sector:              sector,
	}, nil
}
