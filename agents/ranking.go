package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Abhishek8108/uk-stock-analyzer/models"
	"github.com/Abhishek8108/uk-stock-analyzer/observability"
)

// ErrMalformedResponse is returned when the ranking model's reply is not a single JSON object
var ErrMalformedResponse = errors.New("malformed ranking response")

const rankingSystemPrompt = `You are a professional UK stock market analyst. Provide detailed, accurate analysis in the exact JSON format requested. Be specific and actionable in your recommendations.`

const rankingCriteria = `ANALYSIS CRITERIA:
1. Technical Analysis (40% weight):
   - RSI levels (look for oversold conditions or bullish momentum)
   - MACD signals and crossovers
   - Moving average relationships and crossovers
   - Bollinger Band positions
   - Volume confirmation
   - Recent price momentum

2. Market Sentiment (30% weight):
   - News sentiment analysis
   - Market perception and recent developments
   - Sector sentiment

3. Risk Assessment (30% weight):
   - Volatility patterns
   - Support/resistance levels
   - Overall market conditions
   - Sector-specific risks

REQUIRED OUTPUT FORMAT (JSON):
{
  "top_10_picks": [
    {
      "rank": 1,
      "symbol": "STOCK.L",
      "company_name": "Company Name",
      "recommendation": "BUY/STRONG_BUY/HOLD",
      "target_price": 150.50,
      "confidence_score": 8.5,
      "key_reasons": [
        "Specific technical reason",
        "Specific sentiment reason",
        "Specific fundamental reason"
      ],
      "risk_level": "LOW/MEDIUM/HIGH",
      "time_horizon": "1-3 days",
      "expected_return": "5.2%"
    }
  ],
  "market_overview": "Brief overall market sentiment and key factors affecting UK stocks today",
  "top_sectors": ["Technology", "Healthcare"],
  "key_risks": ["Risk factor 1", "Risk factor 2"]
}

Focus on stocks showing:
- Strong technical momentum
- Positive sentiment catalysts
- Good risk-reward ratios
- Volume confirmation
- Clear entry points

Provide specific, actionable analysis with clear reasoning for each pick.
Respond with the JSON object only.`

// RankingAnalyst asks the ranking model to pick the best candidates from a batch of analyses
type RankingAnalyst struct {
	llm     LLMService
	timeout time.Duration
}

// NewRankingAnalyst creates a new RankingAnalyst
func NewRankingAnalyst(llm LLMService, timeout time.Duration) *RankingAnalyst {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &RankingAnalyst{llm: llm, timeout: timeout}
}

// Rank sends the analyses to the model and decodes its reply. The result is
// untrusted and must go through ValidateRecommendations.
func (r *RankingAnalyst) Rank(ctx context.Context, analyses []models.StockAnalysis) (_ *models.CandidateSet, err error) {
	if len(analyses) == 0 {
		return nil, fmt.Errorf("no analyses to rank")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ctx, span := observability.StartSpan(ctx, "rank_candidates")
	defer func() { observability.EndSpan(span, err) }()

	response, err := r.llm.InvokeWithPrompt(ctx, rankingSystemPrompt, BuildRankingPrompt(analyses))
	if err != nil {
		return nil, fmt.Errorf("ranking model call failed: %w", err)
	}

	preview := response
	if len(preview) > 500 {
		preview = preview[:500]
	}
	observability.Debug("ranking response received", "length", len(response), "preview", preview)

	return ParseCandidate(response)
}

// BuildRankingPrompt renders one summary block per analysis followed by the
// weighting criteria and the required output schema
func BuildRankingPrompt(analyses []models.StockAnalysis) string {
	var sb strings.Builder
	sb.WriteString("You are an expert UK stock market analyst with deep knowledge of technical analysis, market sentiment, and fundamental analysis.\n\n")
	fmt.Fprintf(&sb, "Analyze the following %d UK stocks and select the TOP %d stocks with the highest potential for positive returns in the next 1-7 days.\n\n",
		len(analyses), models.MaxPicks)
	sb.WriteString("STOCK DATA:\n")

	for _, a := range analyses {
		ind := a.TechnicalIndicators
		fmt.Fprintf(&sb, "\nStock: %s (%s)\n", a.Symbol, a.CompanyName)
		fmt.Fprintf(&sb, "Sector: %s\n", a.Sector)
		fmt.Fprintf(&sb, "Current Price: £%.2f\n", ind.CurrentPrice)
		sb.WriteString("Technical Indicators:\n")
		fmt.Fprintf(&sb, "- RSI: %.2f (Overbought >70, Oversold <30)\n", ind.RSI)
		fmt.Fprintf(&sb, "- MACD: %.4f\n", ind.MACD)
		fmt.Fprintf(&sb, "- 20-day SMA: £%.2f\n", ind.SMA20)
		fmt.Fprintf(&sb, "- 50-day SMA: £%.2f\n", ind.SMA50)
		fmt.Fprintf(&sb, "- Bollinger Band Position: %.2f (0=lower, 1=upper)\n", ind.BBPosition)
		fmt.Fprintf(&sb, "- Volume Ratio: %.2f (>1 = above average volume)\n", ind.VolumeRatio)
		fmt.Fprintf(&sb, "- 5-day Price Change: %.2f%%\n", ind.PriceChange5D)
		fmt.Fprintf(&sb, "- 20-day Price Change: %.2f%%\n", ind.PriceChange20D)
		sb.WriteString("Market Sentiment:\n")
		fmt.Fprintf(&sb, "- Sentiment Score: %.2f (0=negative, 1=positive)\n", a.Sentiment.SentimentScore)
		fmt.Fprintf(&sb, "- Recent News Count: %d\n", a.Sentiment.NewsCount)
		fmt.Fprintf(&sb, "Market Cap: £%s\n", humanize.Comma(a.MarketCap))
	}

	sb.WriteString("\n")
	sb.WriteString(rankingCriteria)
	return sb.String()
}

// ParseCandidate decodes a model reply into a CandidateSet. An optional
// Markdown code fence is removed; what remains must be exactly one JSON object.
func ParseCandidate(response string) (*models.CandidateSet, error) {
	body := stripCodeFence(strings.TrimSpace(response))
	if !strings.HasPrefix(body, "{") {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedResponse)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing content after JSON object", ErrMalformedResponse)
	}

	var candidate models.CandidateSet
	if err := json.Unmarshal(raw, &candidate); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &candidate, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		lang := strings.TrimSpace(s[:nl])
		if !strings.ContainsAny(lang, "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
