package services

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/Abhishek8108/uk-stock-analyzer/models"
	"github.com/Abhishek8108/uk-stock-analyzer/observability"
)

// alpacaTradeClient is the part of the trading API used for asset metadata
type alpacaTradeClient interface {
	GetAsset(symbol string) (*alpaca.Asset, error)
}

// alpacaDataClient is the part of the market data API used for bars
type alpacaDataClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaService is the alternative series fetcher backed by Alpaca market data
type AlpacaService struct {
	tradeClient alpacaTradeClient
	dataClient  alpacaDataClient
	limiter     *rate.Limiter
}

// NewAlpacaService creates a new AlpacaService instance
func NewAlpacaService(apiKey, apiSecret, baseURL string, rps float64, burst int) *AlpacaService {
	tradeClient := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})

	dataClient := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})

	return newAlpacaServiceWithClients(tradeClient, dataClient, rps, burst)
}

func newAlpacaServiceWithClients(tradeClient alpacaTradeClient, dataClient alpacaDataClient, rps float64, burst int) *AlpacaService {
	if rps <= 0 {
		rps = 3
	}
	if burst <= 0 {
		burst = 1
	}
	return &AlpacaService{
		tradeClient: tradeClient,
		dataClient:  dataClient,
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// GetDailyBars returns daily bars for the last N calendar days, oldest first
func (s *AlpacaService) GetDailyBars(ctx context.Context, symbol string, days int) ([]models.Bar, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerAlpaca, "bars")
	timer := metrics.NewTimer()

	end := time.Now()
	start := end.AddDate(0, 0, -days)

	bars, err := WithCircuitBreaker(ctx, BreakerAlpaca, func() ([]models.Bar, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		raw, err := s.dataClient.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     start,
			End:       end,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get bars for %s: %w", symbol, err)
		}

		result := make([]models.Bar, 0, len(raw))
		for _, bar := range raw {
			result = append(result, models.Bar{
				Symbol:    symbol,
				Timestamp: bar.Timestamp,
				Open:      decimal.NewFromFloat(bar.Open),
				High:      decimal.NewFromFloat(bar.High),
				Low:       decimal.NewFromFloat(bar.Low),
				Close:     decimal.NewFromFloat(bar.Close),
				Volume:    int64(bar.Volume),
			})
		}
		sortBars(result)
		return result, nil
	})

	timer.ObserveExternalAPI(BreakerAlpaca, "bars")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerAlpaca, "bars", categorizeAPIError(err))
		return nil, err
	}
	return bars, nil
}

// GetCompanyInfo returns the asset name; Alpaca does not report market cap
func (s *AlpacaService) GetCompanyInfo(ctx context.Context, symbol string) (*models.CompanyInfo, error) {
	return WithCircuitBreaker(ctx, BreakerAlpaca, func() (*models.CompanyInfo, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		asset, err := s.tradeClient.GetAsset(symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to get asset %s: %w", symbol, err)
		}
		return &models.CompanyInfo{
			Symbol:   symbol,
			LongName: asset.Name,
		}, nil
	})
}
