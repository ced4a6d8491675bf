package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar represents one daily OHLCV observation
type Bar struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
}

// CompanyInfo is the metadata the fetcher returns alongside a series
type CompanyInfo struct {
	Symbol    string `json:"symbol"`
	LongName  string `json:"long_name"`
	MarketCap int64  `json:"market_cap"`
	Sector    string `json:"sector,omitempty"`
}

// NewsArticle represents a news article about a stock
type NewsArticle struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

// TechnicalIndicators is the fixed indicator vector computed from a series.
// Any field whose required window is longer than the series is 0.
type TechnicalIndicators struct {
	RSI            float64 `json:"rsi"`
	MACD           float64 `json:"macd"`
	MACDSignal     float64 `json:"macd_signal"`
	MACDHistogram  float64 `json:"macd_histogram"`
	SMA20          float64 `json:"sma_20"`
	SMA50          float64 `json:"sma_50"`
	BollingerUpper float64 `json:"bb_upper"`
	BollingerLower float64 `json:"bb_lower"`
	BBPosition     float64 `json:"bb_position"`
	VolumeRatio    float64 `json:"volume_ratio"`
	PriceChange5D  float64 `json:"price_change_5d"`
	PriceChange20D float64 `json:"price_change_20d"`
	CurrentPrice   float64 `json:"current_price"`
}

// SentimentRecord is the keyword sentiment estimate for one instrument
type SentimentRecord struct {
	SentimentScore  float64  `json:"sentiment_score"`
	NewsCount       int      `json:"news_count"`
	RecentHeadlines []string `json:"recent_headlines"`
}

// NeutralSentiment is returned whenever no estimate can be made
func NeutralSentiment() SentimentRecord {
	return SentimentRecord{SentimentScore: 0.5, NewsCount: 0, RecentHeadlines: []string{}}
}

// StockAnalysis is the per-instrument record handed to the ranking step
type StockAnalysis struct {
	Symbol              string              `json:"symbol"`
	CompanyName         string              `json:"company_name"`
	AnalysisDate        string              `json:"analysis_date"`
	TechnicalIndicators TechnicalIndicators `json:"technical_indicators"`
	Sentiment           SentimentRecord     `json:"sentiment"`
	MarketCap           int64               `json:"market_cap"`
	Sector              string              `json:"sector"`
}

// AnalysisDateFormat is the layout of StockAnalysis.AnalysisDate
const AnalysisDateFormat = "2006-01-02"
