package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAlpacaTradeClient struct {
	getAssetFunc func(symbol string) (*alpaca.Asset, error)
}

func (m *mockAlpacaTradeClient) GetAsset(symbol string) (*alpaca.Asset, error) {
	return m.getAssetFunc(symbol)
}

type mockAlpacaDataClient struct {
	getBarsFunc func(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

func (m *mockAlpacaDataClient) GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	return m.getBarsFunc(symbol, req)
}

func TestNewAlpacaService(t *testing.T) {
	service := NewAlpacaService("test-key", "test-secret", "https://paper-api.alpaca.markets", 0, 0)
	require.NotNil(t, service)
	assert.NotNil(t, service.tradeClient)
	assert.NotNil(t, service.dataClient)
	assert.NotNil(t, service.limiter)
}

func TestAlpacaService_GetDailyBars(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	data := &mockAlpacaDataClient{
		getBarsFunc: func(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
			assert.Equal(t, marketdata.OneDay, req.TimeFrame)
			assert.True(t, req.Start.Before(req.End))
			return []marketdata.Bar{
				{Timestamp: day.AddDate(0, 0, 1), Open: 11, High: 12, Low: 10, Close: 11.5, Volume: 2000},
				{Timestamp: day, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 1000},
			}, nil
		},
	}

	service := newAlpacaServiceWithClients(&mockAlpacaTradeClient{}, data, 1000, 10)
	bars, err := service.GetDailyBars(context.Background(), "SHEL", 30)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, day, bars[0].Timestamp)
	assert.Equal(t, 10.5, bars[0].Close.InexactFloat64())
	assert.Equal(t, int64(2000), bars[1].Volume)
	assert.Equal(t, "SHEL", bars[1].Symbol)
}

func TestAlpacaService_GetDailyBars_Error(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	data := &mockAlpacaDataClient{
		getBarsFunc: func(string, marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
			return nil, errors.New("forbidden")
		},
	}

	service := newAlpacaServiceWithClients(&mockAlpacaTradeClient{}, data, 1000, 10)
	_, err := service.GetDailyBars(context.Background(), "SHEL", 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get bars for SHEL")
}

func TestAlpacaService_GetCompanyInfo(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	trade := &mockAlpacaTradeClient{
		getAssetFunc: func(symbol string) (*alpaca.Asset, error) {
			if symbol == "MISSING" {
				return nil, errors.New("asset not found")
			}
			return &alpaca.Asset{Symbol: symbol, Name: "Shell plc"}, nil
		},
	}
	service := newAlpacaServiceWithClients(trade, &mockAlpacaDataClient{}, 1000, 10)

	info, err := service.GetCompanyInfo(context.Background(), "SHEL")
	require.NoError(t, err)
	assert.Equal(t, "Shell plc", info.LongName)
	assert.Zero(t, info.MarketCap)

	_, err = service.GetCompanyInfo(context.Background(), "MISSING")
	assert.Error(t, err)
}
