package mocks

// NewsArticle represents a news article from NewsAPI.
type NewsArticle struct {
	Source      map[string]string `json:"source"`
	Author      string            `json:"author"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	URL         string            `json:"url"`
	PublishedAt string            `json:"publishedAt"`
}

// ChatMessage is one message of an OpenAI-compatible chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the subset of a chat completion request the mock inspects.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

// RankedPick is one entry of the ranking reply the mock model returns.
type RankedPick struct {
	Rank            int      `json:"rank"`
	Symbol          string   `json:"symbol"`
	CompanyName     string   `json:"company_name"`
	Recommendation  string   `json:"recommendation"`
	TargetPrice     any      `json:"target_price"`
	ConfidenceScore any      `json:"confidence_score"`
	KeyReasons      []string `json:"key_reasons"`
	RiskLevel       string   `json:"risk_level"`
	TimeHorizon     string   `json:"time_horizon"`
	ExpectedReturn  string   `json:"expected_return"`
}

// RankingReply is the JSON document the mock model embeds in its answer.
type RankingReply struct {
	TopPicks       []RankedPick `json:"top_10_picks"`
	MarketOverview string       `json:"market_overview"`
	TopSectors     []string     `json:"top_sectors"`
	KeyRisks       []string     `json:"key_risks"`
}
