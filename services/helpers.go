package services

import (
	"errors"
	"slices"
	"strings"

	"github.com/Abhishek8108/uk-stock-analyzer/models"
)

// categorizeAPIError buckets an error for the external_api error metric
func categorizeAPIError(err error) string {
	if err == nil {
		return "none"
	}
	if errors.Is(err, ErrServiceUnavailable) {
		return "circuit_open"
	}
	errStr := strings.ToLower(err.Error())
	switch {
	case containsAny(errStr, "timeout", "deadline"):
		return "timeout"
	case containsAny(errStr, "rate limit", "429"):
		return "rate_limit"
	case containsAny(errStr, "unauthorized", "401", "403"):
		return "auth_error"
	case containsAny(errStr, "connection", "network", "no such host"):
		return "connection_error"
	default:
		return "unknown"
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// sortBars orders bars by timestamp, oldest first
func sortBars(bars []models.Bar) {
	slices.SortStableFunc(bars, func(a, b models.Bar) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
}
