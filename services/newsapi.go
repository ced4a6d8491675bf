package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Abhishek8108/uk-stock-analyzer/models"
	"github.com/Abhishek8108/uk-stock-analyzer/observability"
)

// DefaultNewsAPIBaseURL is the public NewsAPI endpoint
const DefaultNewsAPIBaseURL = "https://newsapi.org/v2"

// NewsAPIService handles communication with NewsAPI.org
type NewsAPIService struct {
	apiKey   string
	client   *resty.Client
	pageSize int
	retry    RetryConfig
}

// NewNewsAPIService creates a new NewsAPIService instance
func NewNewsAPIService(apiKey, baseURL string, pageSize int) *NewsAPIService {
	if baseURL == "" {
		baseURL = DefaultNewsAPIBaseURL
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("X-Api-Key", apiKey)

	return &NewsAPIService{
		apiKey:   apiKey,
		client:   client,
		pageSize: pageSize,
		retry:    DefaultRetryConfig,
	}
}

// NewsAPIResponse represents the response from NewsAPI
type NewsAPIResponse struct {
	Status       string `json:"status"`
	Code         string `json:"code,omitempty"`
	Message      string `json:"message,omitempty"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Source struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// GetNews returns English articles matching query published in the last `days` days, newest first
func (s *NewsAPIService) GetNews(ctx context.Context, query string, days int) ([]models.NewsArticle, error) {
	if days <= 0 {
		days = 7
	}
	from := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")

	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerNewsAPI, "everything")
	timer := metrics.NewTimer()

	articles, err := WithCircuitBreaker(ctx, BreakerNewsAPI, func() ([]models.NewsArticle, error) {
		var out []models.NewsArticle
		err := WithRetry(ctx, s.retry, func() error {
			var newsResp NewsAPIResponse
			resp, err := s.client.R().
				SetContext(ctx).
				SetQueryParams(map[string]string{
					"q":        query,
					"language": "en",
					"sortBy":   "publishedAt",
					"from":     from,
					"pageSize": strconv.Itoa(s.pageSize),
				}).
				SetResult(&newsResp).
				SetError(&newsResp).
				Get("/everything")
			if err != nil {
				return fmt.Errorf("failed to fetch news: %w", err)
			}

			switch {
			case resp.StatusCode() == 401 || resp.StatusCode() == 426:
				return Permanent(fmt.Errorf("NewsAPI returned status %d: %s", resp.StatusCode(), newsResp.Message))
			case resp.IsError():
				return fmt.Errorf("NewsAPI returned status %d", resp.StatusCode())
			}

			out = convertNewsArticles(newsResp)
			return nil
		})
		return out, err
	})

	timer.ObserveExternalAPI(BreakerNewsAPI, "everything")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerNewsAPI, "everything", categorizeAPIError(err))
		return nil, err
	}
	return articles, nil
}

func convertNewsArticles(resp NewsAPIResponse) []models.NewsArticle {
	articles := make([]models.NewsArticle, 0, len(resp.Articles))
	for _, item := range resp.Articles {
		publishedAt, err := time.Parse(time.RFC3339, item.PublishedAt)
		if err != nil {
			observability.Debug("unparseable article timestamp", "published_at", item.PublishedAt, "error", err)
			publishedAt = time.Now().UTC()
		}

		articles = append(articles, models.NewsArticle{
			Title:       item.Title,
			Description: item.Description,
			URL:         item.URL,
			Source:      item.Source.Name,
			PublishedAt: publishedAt,
		})
	}
	return articles
}
