// Package mocks provides HTTP mock servers for external APIs used in E2E tests.
package mocks

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// MockServer provides configurable mock responses for NewsAPI and an
// OpenAI-compatible chat completion endpoint.
type MockServer struct {
	mu     sync.RWMutex
	server *httptest.Server

	// Response configurations
	newsArticles []NewsArticle
	rankingReply string // raw assistant message content

	// Error injection
	newsAPIError error
	chatError    error

	// Request tracking for assertions
	requestLog   []RequestLog
	chatRequests []ChatRequest
}

// RequestLog records incoming requests for test assertions.
type RequestLog struct {
	Method string
	Path   string
	Query  string
}

// NewMockServer creates a new mock server with default responses.
func NewMockServer() *MockServer {
	m := &MockServer{requestLog: make([]RequestLog, 0)}
	m.setDefaults()
	m.server = httptest.NewServer(m)
	return m
}

// URL returns the mock server's base URL.
func (m *MockServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.server.Close()
}

// ServeHTTP routes requests to the appropriate mock handler.
func (m *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requestLog = append(m.requestLog, RequestLog{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
	})
	m.mu.Unlock()

	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, "/everything"):
		m.handleNewsAPI(w, r)
	case strings.HasSuffix(path, "/chat/completions"):
		m.handleChat(w, r)
	default:
		http.NotFound(w, r)
	}
}

// GetRequestLog returns a copy of all requests received.
func (m *MockServer) GetRequestLog() []RequestLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RequestLog(nil), m.requestLog...)
}

// ChatRequests returns the decoded chat completion requests received.
func (m *MockServer) ChatRequests() []ChatRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ChatRequest(nil), m.chatRequests...)
}

// SetNewsArticles replaces the articles returned for every query.
func (m *MockServer) SetNewsArticles(articles []NewsArticle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newsArticles = articles
}

// SetNewsAPIError makes NewsAPI calls fail with a 500.
func (m *MockServer) SetNewsAPIError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newsAPIError = err
}

// SetRankingReply sets the structured reply, wrapped in a ```json fence.
func (m *MockServer) SetRankingReply(reply RankingReply) {
	data, _ := json.Marshal(reply)
	m.SetRawRankingReply("```json\n" + string(data) + "\n```")
}

// SetRawRankingReply sets the assistant message content verbatim.
func (m *MockServer) SetRawRankingReply(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rankingReply = content
}

// SetChatError makes chat completion calls fail with a 400.
func (m *MockServer) SetChatError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatError = err
}

func (m *MockServer) setDefaults() {
	m.newsArticles = generateDefaultNewsArticles(5)
	m.SetRankingReply(RankingReply{
		TopPicks: []RankedPick{
			{Rank: 1, Symbol: "BP.L", CompanyName: "BP p.l.c.", Recommendation: "BUY", TargetPrice: 520.0,
				ConfidenceScore: 8, KeyReasons: []string{"Oversold RSI", "Positive news flow"},
				RiskLevel: "MEDIUM", TimeHorizon: "1-3 days", ExpectedReturn: "4%"},
			{Rank: 2, Symbol: "VOD.L", CompanyName: "Vodafone Group", Recommendation: "HOLD", TargetPrice: "N/A",
				ConfidenceScore: 5},
		},
		MarketOverview: "FTSE steady ahead of rate decision",
		TopSectors:     []string{"Energy", "Telecoms"},
		KeyRisks:       []string{"Interest rates"},
	})
}

func (m *MockServer) handleNewsAPI(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	err := m.newsAPIError
	articles := m.newsArticles
	m.mu.RUnlock()

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := map[string]interface{}{
		"status":       "ok",
		"totalResults": len(articles),
		"articles":     articles,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (m *MockServer) handleChat(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req ChatRequest
	_ = json.Unmarshal(body, &req)

	m.mu.Lock()
	m.chatRequests = append(m.chatRequests, req)
	err := m.chatError
	content := m.rankingReply
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": err.Error(), "type": "invalid_request_error"},
		})
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1715068800,
		"model":   req.Model,
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{"prompt_tokens": 100, "completion_tokens": 50, "total_tokens": 150},
	})
}

func generateDefaultNewsArticles(count int) []NewsArticle {
	articles := make([]NewsArticle, count)
	titles := []string{
		"Company reports strong quarterly profit",
		"Analyst upgrade lifts shares",
		"Shares decline after weak guidance",
		"Board meeting scheduled for next month",
		"Dividend growth continues",
	}
	for i := 0; i < count; i++ {
		articles[i] = NewsArticle{
			Source:      map[string]string{"name": "Financial Times"},
			Author:      "Test Author",
			Title:       titles[i%len(titles)],
			Description: "Test article description.",
			URL:         fmt.Sprintf("https://example.com/article/%d", i),
			PublishedAt: "2024-05-07T12:00:00Z",
		}
	}
	return articles
}
