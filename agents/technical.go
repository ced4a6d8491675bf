package agents

import (
	"math"

	"github.com/Abhishek8108/uk-stock-analyzer/models"
)

// Indicator windows
const (
	rsiPeriod       = 14
	macdFastSpan    = 12
	macdSlowSpan    = 26
	macdSignalSpan  = 9
	smaShortPeriod  = 20
	smaLongPeriod   = 50
	bollingerPeriod = 20
	bollingerWidth  = 2.0
	volumePeriod    = 20
	momentumShort   = 5
	momentumLong    = 20
)

// CalculateIndicators derives the indicator vector from an ascending daily
// series. It never fails: any indicator whose window is longer than the
// series, or whose denominator is zero, is reported as 0.
func CalculateIndicators(bars []models.Bar) models.TechnicalIndicators {
	var ind models.TechnicalIndicators
	if len(bars) == 0 {
		return ind
	}

	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close.InexactFloat64()
		volumes[i] = float64(bar.Volume)
	}

	ind.CurrentPrice = closes[len(closes)-1]
	ind.RSI = calculateRSI(closes, rsiPeriod)
	ind.MACD, ind.MACDSignal, ind.MACDHistogram = calculateMACD(closes)
	ind.SMA20 = calculateSMA(closes, smaShortPeriod)
	ind.SMA50 = calculateSMA(closes, smaLongPeriod)
	ind.BollingerUpper, ind.BollingerLower, ind.BBPosition = calculateBollinger(closes, bollingerPeriod, bollingerWidth)
	ind.VolumeRatio = calculateVolumeRatio(volumes, volumePeriod)
	ind.PriceChange5D = calculateMomentum(closes, momentumShort)
	ind.PriceChange20D = calculateMomentum(closes, momentumLong)

	return ind
}

// calculateRSI computes the Relative Strength Index from simple averages of
// the last period close-to-close gains and losses
func calculateRSI(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 0
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := prices[len(prices)-i] - prices[len(prices)-i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		if avgGain == 0 {
			return 0
		}
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// calculateMACD returns the last MACD value, its signal line and histogram
func calculateMACD(prices []float64) (macd, signal, histogram float64) {
	ema12 := calculateEMA(prices, macdFastSpan)
	ema26 := calculateEMA(prices, macdSlowSpan)

	macdLine := make([]float64, len(prices))
	for i := range prices {
		macdLine[i] = ema12[i] - ema26[i]
	}
	signalLine := calculateEMA(macdLine, macdSignalSpan)

	last := len(prices) - 1
	macd = macdLine[last]
	signal = signalLine[last]
	return macd, signal, macd - signal
}

// calculateEMA computes a bias-corrected exponential moving average with
// alpha = 2/(span+1). Each value is the decay-weighted mean of every
// observation so far, so the series is defined from the first element.
func calculateEMA(prices []float64, span int) []float64 {
	ema := make([]float64, len(prices))
	decay := 1 - 2.0/float64(span+1)

	var num, den float64
	for i, p := range prices {
		num = p + decay*num
		den = 1 + decay*den
		ema[i] = num / den
	}
	return ema
}

// calculateSMA computes Simple Moving Average
func calculateSMA(prices []float64, period int) float64 {
	if len(prices) < period {
		return 0
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period)
}

// calculateStdDev is the sample standard deviation of the trailing window
func calculateStdDev(prices []float64, period int, mean float64) float64 {
	if len(prices) < period || period < 2 {
		return 0
	}
	var sq float64
	for i := len(prices) - period; i < len(prices); i++ {
		d := prices[i] - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(period-1))
}

// calculateBollinger returns the upper and lower bands and where the last
// close sits between them (0 = lower band, 1 = upper band)
func calculateBollinger(prices []float64, period int, width float64) (upper, lower, position float64) {
	if len(prices) < period {
		return 0, 0, 0
	}

	mid := calculateSMA(prices, period)
	std := calculateStdDev(prices, period, mid)
	upper = mid + width*std
	lower = mid - width*std

	if upper == lower {
		return upper, lower, 0
	}
	last := prices[len(prices)-1]
	return upper, lower, (last - lower) / (upper - lower)
}

// calculateVolumeRatio compares the last volume to the trailing average
func calculateVolumeRatio(volumes []float64, period int) float64 {
	avg := calculateSMA(volumes, period)
	if avg == 0 {
		return 0
	}
	return volumes[len(volumes)-1] / avg
}

// calculateMomentum is the percent change over the last k bars
func calculateMomentum(prices []float64, k int) float64 {
	if len(prices) < k+1 {
		return 0
	}
	base := prices[len(prices)-1-k]
	if base == 0 {
		return 0
	}
	return (prices[len(prices)-1] - base) / base * 100
}
