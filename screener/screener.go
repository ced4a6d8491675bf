package screener

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Abhishek8108/uk-stock-analyzer/agents"
	"github.com/Abhishek8108/uk-stock-analyzer/config"
	"github.com/Abhishek8108/uk-stock-analyzer/models"
	"github.com/Abhishek8108/uk-stock-analyzer/observability"
)

// ErrNoAnalysisResults is returned when no symbol in the universe produced an analysis
var ErrNoAnalysisResults = errors.New("no analysis results")

// Analyzer produces analyses for a list of symbols, in input order
type Analyzer interface {
	AnalyzeSymbols(ctx context.Context, symbols []string) []models.StockAnalysis
}

// Ranker asks the ranking model for a candidate set
type Ranker interface {
	Rank(ctx context.Context, analyses []models.StockAnalysis) (*models.CandidateSet, error)
}

// Publisher writes a validated recommendation set
type Publisher interface {
	Publish(ctx context.Context, set *models.RecommendationSet) error
}

// ScreenerRepository defines the repository operations needed by DailyScreener
type ScreenerRepository interface {
	CreateScreenerRun(ctx context.Context, run *models.ScreenerRun) error
	UpdateScreenerRun(ctx context.Context, run *models.ScreenerRun) error
	GetScreenerRun(ctx context.Context, id uuid.UUID) (*models.ScreenerRun, error)
	GetLatestScreenerRun(ctx context.Context) (*models.ScreenerRun, error)
	GetScreenerRunHistory(ctx context.Context, limit int) ([]models.ScreenerRun, error)
}

// DailyScreener runs the analyse, rank, validate and publish pipeline
type DailyScreener struct {
	analyzer       Analyzer
	ranker         Ranker
	publisher      Publisher // nil disables publishing
	repo           ScreenerRepository
	cfg            *config.Config
	publishTimeout time.Duration
	now            func() time.Time
}

// NewDailyScreener creates a new DailyScreener. publisher may be nil, in
// which case validated results are stored and logged but not published.
func NewDailyScreener(
	analyzer Analyzer,
	ranker Ranker,
	publisher Publisher,
	repo ScreenerRepository,
	cfg *config.Config,
) *DailyScreener {
	timeout := time.Duration(cfg.Analysis.PublishTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &DailyScreener{
		analyzer:       analyzer,
		ranker:         ranker,
		publisher:      publisher,
		repo:           repo,
		cfg:            cfg,
		publishTimeout: timeout,
		now:            time.Now,
	}
}

// Universe returns the symbols screened in the given mode
func (s *DailyScreener) Universe(mode models.RunMode) []string {
	if mode == models.RunModeTest {
		return s.cfg.Universe.TestStocks
	}
	return s.cfg.Universe.Stocks
}

// RunScreen executes a full screening run:
// 1. Analyse every symbol of the mode's universe
// 2. Ask the model to rank the analyses
// 3. Validate the ranked payload
// 4. Publish the validated set
//
// The returned run is non-nil whenever it was started, including on failure.
func (s *DailyScreener) RunScreen(ctx context.Context, mode models.RunMode) (_ *models.ScreenerRun, err error) {
	startTime := time.Now()

	symbols := append([]string(nil), s.Universe(mode)...)
	run := models.NewScreenerRun(mode, symbols)
	log := observability.WithRun(run.ID.String())
	metrics := observability.GetMetrics()

	ctx, span := observability.StartSpan(ctx, "screener_run", "run_id", run.ID.String(), "mode", string(mode))
	defer func() { observability.EndSpan(span, err) }()

	if err := s.repo.CreateScreenerRun(ctx, run); err != nil {
		log.Warn("failed to store screener run", "error", err)
	}

	log.Info("starting screener run", "mode", mode, "symbols", len(symbols))

	fail := func(cause error) (*models.ScreenerRun, error) {
		duration := time.Since(startTime)
		run.Fail(cause.Error(), duration.Milliseconds())
		s.persist(ctx, run)
		metrics.RecordScreenerRun(string(mode), string(run.Status), len(run.Analyses), duration)
		log.Error("screener run failed", "error", cause, "duration_ms", run.DurationMs)
		return run, cause
	}

	// Step 1: analyse the universe
	analyses := s.analyzer.AnalyzeSymbols(ctx, symbols)
	run.SetAnalyses(analyses)
	log.Info("analysis complete", "requested", len(symbols), "analysed", len(analyses))
	if len(analyses) == 0 {
		return fail(ErrNoAnalysisResults)
	}

	// Step 2: rank
	candidate, err := s.ranker.Rank(ctx, analyses)
	if err != nil {
		return fail(fmt.Errorf("ranking failed: %w", err))
	}

	// Step 3: validate
	set, err := agents.ValidateRecommendations(candidate, s.now())
	if err != nil {
		return fail(fmt.Errorf("validation failed: %w", err))
	}

	// Step 4: publish
	published := false
	if s.publisher != nil {
		if err := s.publish(ctx, set); err != nil {
			return fail(fmt.Errorf("publish failed: %w", err))
		}
		published = true
		metrics.RecordPicksPublished(string(mode), len(set.TopPicks))
	} else {
		log.Warn("no publisher configured, skipping publish")
	}

	duration := time.Since(startTime)
	run.Complete(duration.Milliseconds(), set)
	run.Published = published
	s.persist(ctx, run)
	metrics.RecordScreenerRun(string(mode), string(run.Status), len(analyses), duration)

	log.Info("screener run completed",
		"duration_ms", run.DurationMs,
		"analysed", len(analyses),
		"picks", len(set.TopPicks),
		"published", published)
	LogSummary(set)

	return run, nil
}

func (s *DailyScreener) publish(ctx context.Context, set *models.RecommendationSet) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	ctx, span := observability.StartSpan(ctx, "publish_recommendations")
	defer func() { observability.EndSpan(span, err) }()

	return s.publisher.Publish(ctx, set)
}

// persist stores the final state of a run. Storage problems never fail a run.
func (s *DailyScreener) persist(ctx context.Context, run *models.ScreenerRun) {
	if err := s.repo.UpdateScreenerRun(context.WithoutCancel(ctx), run); err != nil {
		observability.WithRun(run.ID.String()).Warn("failed to update screener run", "error", err)
	}
}

// LogSummary logs the human-readable summary of a validated set
func LogSummary(set *models.RecommendationSet) {
	lines := []string{
		fmt.Sprintf("Daily UK stock picks for %s", set.AnalysisTimestamp.Format("2006-01-02")),
	}
	if set.MarketOverview != "" {
		lines = append(lines, "Market overview: "+set.MarketOverview)
	}
	for _, pick := range set.TopPicks {
		lines = append(lines, FormatPickLine(pick))
	}
	if len(set.TopSectors) > 0 {
		lines = append(lines, "Top sectors: "+strings.Join(set.TopSectors, ", "))
	}
	if len(set.KeyRisks) > 0 {
		lines = append(lines, "Key risks: "+strings.Join(set.KeyRisks, ", "))
	}
	for _, line := range lines {
		observability.Info(line)
	}
}

// FormatPickLine renders one pick as "rank. symbol - label (Confidence: x/10)"
func FormatPickLine(pick models.RecommendationPick) string {
	return fmt.Sprintf("%d. %s - %s (Confidence: %g/10)",
		pick.Rank, pick.Symbol, pick.Recommendation, pick.ConfidenceScore)
}

// GetLatestRun returns the most recent screener run
func (s *DailyScreener) GetLatestRun(ctx context.Context) (*models.ScreenerRun, error) {
	return s.repo.GetLatestScreenerRun(ctx)
}

// GetRunHistory returns the history of screener runs
func (s *DailyScreener) GetRunHistory(ctx context.Context, limit int) ([]models.ScreenerRun, error) {
	return s.repo.GetScreenerRunHistory(ctx, limit)
}

// GetRun returns a specific screener run by ID
func (s *DailyScreener) GetRun(ctx context.Context, id uuid.UUID) (*models.ScreenerRun, error) {
	return s.repo.GetScreenerRun(ctx, id)
}
