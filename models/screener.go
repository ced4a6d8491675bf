package models

import (
	"time"

	"github.com/google/uuid"
)

// ScreenerRunStatus represents the status of a screener run
type ScreenerRunStatus string

const (
	ScreenerRunStatusRunning   ScreenerRunStatus = "running"
	ScreenerRunStatusCompleted ScreenerRunStatus = "completed"
	ScreenerRunStatusFailed    ScreenerRunStatus = "failed"
)

// RunMode selects which universe a run screens
type RunMode string

const (
	RunModeDaily RunMode = "daily"
	RunModeTest  RunMode = "test"
)

// ScreenerRun represents a single execution of the daily screen
type ScreenerRun struct {
	ID              uuid.UUID          `json:"id"`
	Mode            RunMode            `json:"mode"`
	RunAt           time.Time          `json:"run_at"`
	Symbols         []string           `json:"symbols"`
	Analyses        []StockAnalysis    `json:"analyses"`
	Recommendations *RecommendationSet `json:"recommendations,omitempty"`
	Published       bool               `json:"published"`
	DurationMs      int64              `json:"duration_ms"`
	Status          ScreenerRunStatus  `json:"status"`
	Error           string             `json:"error,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// NewScreenerRun creates a new ScreenerRun in the running state
func NewScreenerRun(mode RunMode, symbols []string) *ScreenerRun {
	now := time.Now()
	return &ScreenerRun{
		ID:        uuid.New(),
		Mode:      mode,
		RunAt:     now,
		Symbols:   symbols,
		Analyses:  []StockAnalysis{},
		Status:    ScreenerRunStatusRunning,
		CreatedAt: now,
	}
}

// Complete marks the run as completed with its published result
func (s *ScreenerRun) Complete(durationMs int64, set *RecommendationSet) {
	s.Status = ScreenerRunStatusCompleted
	s.DurationMs = durationMs
	s.Recommendations = set
	s.Published = true
}

// Fail marks the run as failed with an error message
func (s *ScreenerRun) Fail(err string, durationMs int64) {
	s.Status = ScreenerRunStatusFailed
	s.Error = err
	s.DurationMs = durationMs
}

// SetAnalyses records the per-symbol analyses produced by the run
func (s *ScreenerRun) SetAnalyses(analyses []StockAnalysis) {
	s.Analyses = analyses
}

// PickCount returns the number of validated picks, 0 before ranking
func (s *ScreenerRun) PickCount() int {
	if s.Recommendations == nil {
		return 0
	}
	return len(s.Recommendations.TopPicks)
}

// IsRunning returns true if the screener run is still in progress
func (s *ScreenerRun) IsRunning() bool {
	return s.Status == ScreenerRunStatusRunning
}

// IsCompleted returns true if the screener run completed successfully
func (s *ScreenerRun) IsCompleted() bool {
	return s.Status == ScreenerRunStatusCompleted
}

// IsFailed returns true if the screener run failed
func (s *ScreenerRun) IsFailed() bool {
	return s.Status == ScreenerRunStatusFailed
}
