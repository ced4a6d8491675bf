package agents

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Abhishek8108/uk-stock-analyzer/models"
)

func makeBars(closes []float64, volume int64) []models.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		price := decimal.NewFromFloat(c)
		bars[i] = models.Bar{
			Symbol:    "TEST.L",
			Timestamp: start.AddDate(0, 0, i),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    volume,
		}
	}
	return bars
}

func constantSeries(n int, value float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func waveSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 8*math.Sin(float64(i)/3) + float64(i%7)
	}
	return out
}

func TestCalculateSMA(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		period int
		want   float64
	}{
		{"simple 5-day SMA", []float64{10, 20, 30, 40, 50}, 5, 30.0},
		{"3-day SMA from longer series", []float64{10, 20, 30, 40, 50}, 3, 40.0},
		{"period too long returns zero", []float64{10, 20}, 5, 0.0},
		{"single value", []float64{100}, 1, 100.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateSMA(tt.prices, tt.period))
		})
	}
}

func TestCalculateRSI(t *testing.T) {
	uptrend := make([]float64, 16)
	downtrend := make([]float64, 16)
	for i := range uptrend {
		uptrend[i] = 40 + float64(i)
		downtrend[i] = 60 - float64(i)
	}
	// seven +2 moves and seven -1 moves: RS = 2
	mixed := []float64{100, 102, 101, 103, 102, 104, 103, 105, 104, 106, 105, 107, 106, 108, 107}

	tests := []struct {
		name   string
		prices []float64
		want   float64
	}{
		{"only gains", uptrend, 100},
		{"only losses", downtrend, 0},
		{"flat series", constantSeries(20, 50), 0},
		{"fewer than fifteen closes", uptrend[:14], 0},
		{"mixed moves", mixed, 100 - 100.0/3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, calculateRSI(tt.prices, 14), 1e-9)
		})
	}
}

func TestCalculateRSI_Bounded(t *testing.T) {
	prices := waveSeries(120)
	for end := 15; end <= len(prices); end++ {
		rsi := calculateRSI(prices[:end], 14)
		assert.GreaterOrEqual(t, rsi, 0.0)
		assert.LessOrEqual(t, rsi, 100.0)
	}
}

func TestCalculateEMA(t *testing.T) {
	t.Run("constant input stays constant", func(t *testing.T) {
		for _, v := range calculateEMA(constantSeries(30, 42), 12) {
			assert.InDelta(t, 42, v, 1e-9)
		}
	})

	t.Run("first value is the first observation", func(t *testing.T) {
		ema := calculateEMA([]float64{7, 9, 11}, 26)
		assert.Equal(t, 7.0, ema[0])
	})

	t.Run("weights are normalised over history", func(t *testing.T) {
		// span 3 gives alpha 0.5: (2*1 + 1*0.5) / 1.5
		ema := calculateEMA([]float64{1, 2}, 3)
		assert.InDelta(t, 2.5/1.5, ema[1], 1e-12)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, calculateEMA(nil, 9))
	})
}

func TestCalculateMACD(t *testing.T) {
	t.Run("rising series has positive MACD", func(t *testing.T) {
		prices := make([]float64, 60)
		for i := range prices {
			prices[i] = 100 + float64(i)
		}
		macd, signal, hist := calculateMACD(prices)
		assert.Greater(t, macd, 0.0)
		assert.InDelta(t, macd-signal, hist, 1e-12)
	})

	t.Run("single bar is defined", func(t *testing.T) {
		macd, signal, hist := calculateMACD([]float64{100})
		assert.Equal(t, 0.0, macd)
		assert.Equal(t, 0.0, signal)
		assert.Equal(t, 0.0, hist)
	})
}

func TestCalculateBollinger(t *testing.T) {
	t.Run("known window", func(t *testing.T) {
		prices := make([]float64, 20)
		for i := range prices {
			prices[i] = float64(i + 1)
		}
		// mean 10.5, sample variance 35
		std := math.Sqrt(35)
		upper, lower, pos := calculateBollinger(prices, 20, 2)
		assert.InDelta(t, 10.5+2*std, upper, 1e-9)
		assert.InDelta(t, 10.5-2*std, lower, 1e-9)
		assert.InDelta(t, (20-lower)/(upper-lower), pos, 1e-9)
	})

	t.Run("zero width reports zero position", func(t *testing.T) {
		upper, lower, pos := calculateBollinger(constantSeries(20, 100), 20, 2)
		assert.Equal(t, 100.0, upper)
		assert.Equal(t, 100.0, lower)
		assert.Equal(t, 0.0, pos)
	})

	t.Run("short series", func(t *testing.T) {
		upper, lower, pos := calculateBollinger(constantSeries(19, 100), 20, 2)
		assert.Zero(t, upper)
		assert.Zero(t, lower)
		assert.Zero(t, pos)
	})
}

func TestCalculateVolumeRatio(t *testing.T) {
	spike := constantSeries(20, 1000)
	spike[19] = 2000

	tests := []struct {
		name    string
		volumes []float64
		want    float64
	}{
		{"constant volume", constantSeries(25, 1000), 1},
		{"last day spike", spike, 2000.0 / 1050.0},
		{"zero average", constantSeries(20, 0), 0},
		{"short series", constantSeries(19, 1000), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, calculateVolumeRatio(tt.volumes, 20), 1e-12)
		})
	}
}

func TestCalculateMomentum(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		k      int
		want   float64
	}{
		{"ten percent over five bars", []float64{100, 101, 102, 103, 104, 110}, 5, 10},
		{"decline", []float64{200, 1, 1, 1, 1, 150}, 5, -25},
		{"needs k+1 bars", []float64{100, 101, 102, 103, 110}, 5, 0},
		{"zero base", []float64{0, 1, 1, 1, 1, 5}, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, calculateMomentum(tt.prices, tt.k), 1e-9)
		})
	}
}

func TestCalculateIndicators_Empty(t *testing.T) {
	assert.Equal(t, models.TechnicalIndicators{}, CalculateIndicators(nil))
}

func TestCalculateIndicators_ShortWindows(t *testing.T) {
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	ind := CalculateIndicators(makeBars(closes, 500))

	assert.Zero(t, ind.RSI)
	assert.Zero(t, ind.SMA20)
	assert.Zero(t, ind.SMA50)
	assert.Zero(t, ind.BBPosition)
	assert.Zero(t, ind.VolumeRatio)
	assert.Zero(t, ind.PriceChange20D)
	assert.InDelta(t, (109.0-104.0)/104.0*100, ind.PriceChange5D, 1e-9)
	assert.Equal(t, 109.0, ind.CurrentPrice)
}

func TestCalculateIndicators_ConstantSeries(t *testing.T) {
	ind := CalculateIndicators(makeBars(constantSeries(25, 100), 1000))

	assert.Equal(t, 0.0, ind.RSI)
	assert.InDelta(t, 0, ind.MACD, 1e-9)
	assert.InDelta(t, 0, ind.MACDSignal, 1e-9)
	assert.Equal(t, 100.0, ind.SMA20)
	assert.Equal(t, 0.0, ind.SMA50)
	assert.Equal(t, 0.0, ind.BBPosition)
	assert.Equal(t, 1.0, ind.VolumeRatio)
	assert.Equal(t, 0.0, ind.PriceChange5D)
	assert.Equal(t, 0.0, ind.PriceChange20D)
	assert.Equal(t, 100.0, ind.CurrentPrice)
}

func TestCalculateIndicators_BandOrdering(t *testing.T) {
	prices := waveSeries(80)
	for end := 20; end <= len(prices); end++ {
		ind := CalculateIndicators(makeBars(prices[:end], 1000))
		assert.GreaterOrEqual(t, ind.BollingerUpper, ind.SMA20)
		assert.GreaterOrEqual(t, ind.SMA20, ind.BollingerLower)
	}
}

func TestCalculateIndicators_FullHistory(t *testing.T) {
	prices := waveSeries(100)
	ind := CalculateIndicators(makeBars(prices, 1000))

	assert.NotZero(t, ind.SMA50)
	assert.NotZero(t, ind.SMA20)
	assert.GreaterOrEqual(t, ind.RSI, 0.0)
	assert.LessOrEqual(t, ind.RSI, 100.0)
	assert.InDelta(t, ind.MACD-ind.MACDSignal, ind.MACDHistogram, 1e-12)
	assert.InDelta(t, prices[99], ind.CurrentPrice, 1e-9)
}
