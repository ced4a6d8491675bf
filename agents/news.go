package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/Abhishek8108/uk-stock-analyzer/config"
	"github.com/Abhishek8108/uk-stock-analyzer/models"
	"github.com/Abhishek8108/uk-stock-analyzer/observability"
)

var (
	positiveKeywords = []string{"growth", "profit", "gain", "increase", "positive", "strong", "buy", "upgrade"}
	negativeKeywords = []string{"loss", "decline", "decrease", "negative", "weak", "sell", "downgrade", "crisis"}
)

// Per-article sentiment scores
const (
	articleBullish = 0.7
	articleBearish = 0.3
	articleNeutral = 0.5
)

// SentimentAnalyst estimates news sentiment with a keyword lexicon
type SentimentAnalyst struct {
	news         NewsProvider
	lookbackDays int
	sampleSize   int
	headlines    int
}

// NewSentimentAnalyst creates a SentimentAnalyst. A nil provider makes every
// estimate neutral.
func NewSentimentAnalyst(news NewsProvider, cfg config.NewsAPIConfig) *SentimentAnalyst {
	a := &SentimentAnalyst{
		news:         news,
		lookbackDays: cfg.LookbackDays,
		sampleSize:   cfg.SampleSize,
		headlines:    cfg.Headlines,
	}
	if a.lookbackDays <= 0 {
		a.lookbackDays = 7
	}
	if a.sampleSize <= 0 {
		a.sampleSize = 10
	}
	if a.headlines <= 0 {
		a.headlines = 3
	}
	return a
}

// Estimate searches recent news for the company or its ticker and averages
// the per-article keyword scores of the first sampleSize articles
func (a *SentimentAnalyst) Estimate(ctx context.Context, symbol, companyName string) models.SentimentRecord {
	if a == nil || a.news == nil {
		return models.NeutralSentiment()
	}

	articles, err := a.news.GetNews(ctx, newsQuery(symbol, companyName), a.lookbackDays)
	if err != nil {
		observability.Warn("news lookup failed, using neutral sentiment", "symbol", symbol, "error", err)
		return models.NeutralSentiment()
	}

	sample := articles
	if len(sample) > a.sampleSize {
		sample = sample[:a.sampleSize]
	}

	score := articleNeutral
	if len(sample) > 0 {
		var sum float64
		for _, article := range sample {
			sum += scoreText(article.Title + " " + article.Description)
		}
		score = sum / float64(len(sample))
	}

	headlines := make([]string, 0, a.headlines)
	for i := 0; i < len(articles) && i < a.headlines; i++ {
		headlines = append(headlines, articles[i].Title)
	}

	return models.SentimentRecord{
		SentimentScore:  score,
		NewsCount:       len(articles),
		RecentHeadlines: headlines,
	}
}

// newsQuery searches for the company name or the bare ticker (London ".L" suffix removed)
func newsQuery(symbol, companyName string) string {
	if companyName == "" {
		companyName = symbol
	}
	return fmt.Sprintf("%s OR %s", companyName, strings.TrimSuffix(symbol, ".L"))
}

// scoreText counts lexicon keywords present in text (substring match)
func scoreText(text string) float64 {
	text = strings.ToLower(text)

	var positive, negative int
	for _, word := range positiveKeywords {
		if strings.Contains(text, word) {
			positive++
		}
	}
	for _, word := range negativeKeywords {
		if strings.Contains(text, word) {
			negative++
		}
	}

	switch {
	case positive > negative:
		return articleBullish
	case negative > positive:
		return articleBearish
	default:
		return articleNeutral
	}
}
