package models

import (
	"encoding/json"
	"time"
)

// RecommendationLabel is the model's call on a pick
type RecommendationLabel string

const (
	RecommendationStrongBuy RecommendationLabel = "STRONG_BUY"
	RecommendationBuy       RecommendationLabel = "BUY"
	RecommendationHold      RecommendationLabel = "HOLD"
)

// RiskLevel is the model's risk bucket for a pick
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Defaults applied by the validator when the model omits a field
const (
	DefaultRecommendation = RecommendationHold
	DefaultRiskLevel      = RiskMedium
	DefaultTimeHorizon    = "1-3 days"
	DefaultExpectedReturn = "0%"
	MaxPicks              = 10
)

// RecommendationPick is one sanitized entry of the ranked output
type RecommendationPick struct {
	Rank            int                 `json:"rank"`
	Symbol          string              `json:"symbol"`
	CompanyName     string              `json:"company_name"`
	Recommendation  RecommendationLabel `json:"recommendation"`
	TargetPrice     float64             `json:"target_price"`
	ConfidenceScore float64             `json:"confidence_score"`
	KeyReasons      []string            `json:"key_reasons"`
	RiskLevel       RiskLevel           `json:"risk_level"`
	TimeHorizon     string              `json:"time_horizon"`
	ExpectedReturn  string              `json:"expected_return"`
}

// RecommendationSet is the validated result of one ranking call
type RecommendationSet struct {
	TopPicks          []RecommendationPick `json:"top_10_picks"`
	MarketOverview    string               `json:"market_overview"`
	TopSectors        []string             `json:"top_sectors"`
	KeyRisks          []string             `json:"key_risks"`
	AnalysisTimestamp time.Time            `json:"analysis_timestamp"`
}

// CandidateSet is the decoded but untrusted ranking payload. Picks and the
// narrative fields stay raw so the validator decides how to coerce them.
type CandidateSet struct {
	TopPicks       []json.RawMessage `json:"top_10_picks"`
	MarketOverview json.RawMessage   `json:"market_overview"`
	TopSectors     json.RawMessage   `json:"top_sectors"`
	KeyRisks       json.RawMessage   `json:"key_risks"`
}
