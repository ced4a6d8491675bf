package agents

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Abhishek8108/uk-stock-analyzer/models"
	"github.com/Abhishek8108/uk-stock-analyzer/observability"
)

// ErrMissingTopPicks is returned when a candidate set has no top picks field
var ErrMissingTopPicks = errors.New("ranking response has no top_10_picks")

var jsonNull = []byte("null")

// ValidateRecommendations turns an untrusted candidate into a RecommendationSet.
// Only the first models.MaxPicks picks are considered, in input order. A pick
// whose price or confidence cannot be read as a number is dropped; every
// other missing field takes its default.
func ValidateRecommendations(candidate *models.CandidateSet, now time.Time) (*models.RecommendationSet, error) {
	if candidate == nil || candidate.TopPicks == nil {
		return nil, ErrMissingTopPicks
	}

	metrics := observability.GetMetrics()

	raw := candidate.TopPicks
	if len(raw) > models.MaxPicks {
		raw = raw[:models.MaxPicks]
	}

	picks := make([]models.RecommendationPick, 0, len(raw))
	for i, item := range raw {
		pick, err := validatePick(item)
		if err != nil {
			observability.Warn("dropping invalid pick", "index", i, "error", err)
			metrics.RecordPickDropped()
			continue
		}
		metrics.RecordRecommendation(string(pick.Recommendation), pick.ConfidenceScore)
		picks = append(picks, pick)
	}

	return &models.RecommendationSet{
		TopPicks:          picks,
		MarketOverview:    stringValue(candidate.MarketOverview, ""),
		TopSectors:        stringList(candidate.TopSectors),
		KeyRisks:          stringList(candidate.KeyRisks),
		AnalysisTimestamp: now,
	}, nil
}

func validatePick(item json.RawMessage) (models.RecommendationPick, error) {
	var fields map[string]json.RawMessage
	trimmed := bytes.TrimSpace(item)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return models.RecommendationPick{}, fmt.Errorf("pick is not an object")
	}
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return models.RecommendationPick{}, fmt.Errorf("pick is not an object: %w", err)
	}

	targetPrice, err := numberField(fields, "target_price")
	if err != nil {
		return models.RecommendationPick{}, err
	}
	confidence, err := numberField(fields, "confidence_score")
	if err != nil {
		return models.RecommendationPick{}, err
	}

	return models.RecommendationPick{
		Rank:            rankValue(fields["rank"]),
		Symbol:          stringValue(fields["symbol"], ""),
		CompanyName:     stringValue(fields["company_name"], ""),
		Recommendation:  models.RecommendationLabel(stringValue(fields["recommendation"], string(models.DefaultRecommendation))),
		TargetPrice:     targetPrice,
		ConfidenceScore: confidence,
		KeyReasons:      stringList(fields["key_reasons"]),
		RiskLevel:       models.RiskLevel(stringValue(fields["risk_level"], string(models.DefaultRiskLevel))),
		TimeHorizon:     stringValue(fields["time_horizon"], models.DefaultTimeHorizon),
		ExpectedReturn:  stringValue(fields["expected_return"], models.DefaultExpectedReturn),
	}, nil
}

// numberField reads a JSON number or numeric string. An absent field is 0.
func numberField(fields map[string]json.RawMessage, key string) (float64, error) {
	raw, ok := fields[key]
	if !ok {
		return 0, nil
	}
	v, err := parseNumber(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func parseNumber(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return 0, fmt.Errorf("value is null")
	}

	var v float64
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", s)
		}
		v = parsed
	} else if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("%s is not a number", raw)
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value is not finite")
	}
	return v, nil
}

// rankValue accepts a number or numeric string; anything else is rank 0
func rankValue(raw json.RawMessage) int {
	if raw == nil {
		return 0
	}
	v, err := parseNumber(raw)
	if err != nil {
		return 0
	}
	return int(v)
}

// stringValue returns the string held by raw, the literal text of a number,
// or def when the value is absent, null, blank or of another type
func stringValue(raw json.RawMessage, def string) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return def
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return def
		}
		return strings.TrimSpace(s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return def
}

// stringList keeps the string elements of a JSON array; anything else is an empty list
func stringList(raw json.RawMessage) []string {
	out := []string{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
		}
	}
	return out
}
