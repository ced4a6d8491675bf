package services

import (
	"context"
	"fmt"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"golang.org/x/time/rate"

	"github.com/Abhishek8108/uk-stock-analyzer/models"
	"github.com/Abhishek8108/uk-stock-analyzer/observability"
)

// yahooClient is the subset of finance-go the service uses (mockable in tests)
type yahooClient interface {
	DailyBars(symbol string, start, end time.Time) ([]finance.ChartBar, error)
	Equity(symbol string) (*finance.Equity, error)
}

type financeGoClient struct{}

func (financeGoClient) DailyBars(symbol string, start, end time.Time) ([]finance.ChartBar, error) {
	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	var bars []finance.ChartBar
	for iter.Next() {
		bars = append(bars, *iter.Bar())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return bars, nil
}

func (financeGoClient) Equity(symbol string) (*finance.Equity, error) {
	return equity.Get(symbol)
}

// YahooService fetches daily series and company metadata from Yahoo Finance
type YahooService struct {
	client  yahooClient
	limiter *rate.Limiter
	retry   RetryConfig
}

// NewYahooService creates a YahooService limited to rps requests per second
func NewYahooService(rps float64, burst int) *YahooService {
	return newYahooServiceWithClient(financeGoClient{}, rps, burst)
}

func newYahooServiceWithClient(client yahooClient, rps float64, burst int) *YahooService {
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 1
	}
	return &YahooService{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		retry:   DefaultRetryConfig,
	}
}

// GetDailyBars returns the daily bars of the last `days` calendar days, oldest first
func (s *YahooService) GetDailyBars(ctx context.Context, symbol string, days int) ([]models.Bar, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerYahoo, "chart")
	timer := metrics.NewTimer()

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	bars, err := WithCircuitBreaker(ctx, BreakerYahoo, func() ([]models.Bar, error) {
		var out []models.Bar
		err := WithRetry(ctx, s.retry, func() error {
			if err := s.limiter.Wait(ctx); err != nil {
				return Permanent(err)
			}
			raw, err := s.client.DailyBars(symbol, start, end)
			if err != nil {
				return fmt.Errorf("failed to get chart for %s: %w", symbol, err)
			}
			out = convertChartBars(symbol, raw)
			return nil
		})
		return out, err
	})

	timer.ObserveExternalAPI(BreakerYahoo, "chart")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerYahoo, "chart", categorizeAPIError(err))
		return nil, err
	}
	return bars, nil
}

// GetCompanyInfo returns the long name and market capitalisation of a symbol
func (s *YahooService) GetCompanyInfo(ctx context.Context, symbol string) (*models.CompanyInfo, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerYahoo, "equity")
	timer := metrics.NewTimer()

	info, err := WithCircuitBreaker(ctx, BreakerYahoo, func() (*models.CompanyInfo, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		eq, err := s.client.Equity(symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to get equity for %s: %w", symbol, err)
		}
		if eq == nil {
			return nil, fmt.Errorf("no equity data for %s", symbol)
		}

		name := eq.LongName
		if name == "" {
			name = eq.ShortName
		}
		return &models.CompanyInfo{
			Symbol:    symbol,
			LongName:  name,
			MarketCap: eq.MarketCap,
		}, nil
	})

	timer.ObserveExternalAPI(BreakerYahoo, "equity")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerYahoo, "equity", categorizeAPIError(err))
		return nil, err
	}
	return info, nil
}

// convertChartBars drops bars without a close (Yahoo pads holidays with nulls)
// and returns the rest in ascending time order
func convertChartBars(symbol string, raw []finance.ChartBar) []models.Bar {
	out := make([]models.Bar, 0, len(raw))
	for _, b := range raw {
		if b.Close.IsZero() {
			continue
		}
		out = append(out, models.Bar{
			Symbol:    symbol,
			Timestamp: time.Unix(int64(b.Timestamp), 0).UTC(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    int64(b.Volume),
		})
	}
	for i := 1; i < len(out); i++ {
		if out[i].Timestamp.Before(out[i-1].Timestamp) {
			sortBars(out)
			break
		}
	}
	return out
}
