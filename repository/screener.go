package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Abhishek8108/uk-stock-analyzer/models"
	"github.com/Abhishek8108/uk-stock-analyzer/observability"
)

const selectRunColumns = `SELECT id, mode, run_at, symbols, analyses, recommendations, published, duration_ms, status, error, created_at FROM screener_runs`

// CreateScreenerRun creates a new screener run
func (r *Repository) CreateScreenerRun(ctx context.Context, run *models.ScreenerRun) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("insert", "screener_runs")

	symbolsJSON, analysesJSON, recsJSON, err := marshalRun(run)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO screener_runs (id, mode, run_at, symbols, analyses, recommendations, published, duration_ms, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, run.ID, run.Mode, run.RunAt, symbolsJSON, analysesJSON, recsJSON, run.Published, run.DurationMs, run.Status, run.Error, run.CreatedAt)

	if err != nil {
		metrics.RecordDBError("insert", "screener_runs")
		return fmt.Errorf("failed to create screener run: %w", err)
	}

	return nil
}

// UpdateScreenerRun updates an existing screener run
func (r *Repository) UpdateScreenerRun(ctx context.Context, run *models.ScreenerRun) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("update", "screener_runs")

	_, analysesJSON, recsJSON, err := marshalRun(run)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		UPDATE screener_runs
		SET analyses = $2, recommendations = $3, published = $4, duration_ms = $5, status = $6, error = $7
		WHERE id = $1
	`, run.ID, analysesJSON, recsJSON, run.Published, run.DurationMs, run.Status, run.Error)

	if err != nil {
		metrics.RecordDBError("update", "screener_runs")
		return fmt.Errorf("failed to update screener run: %w", err)
	}

	return nil
}

// GetScreenerRun returns a screener run by ID, or nil when it does not exist
func (r *Repository) GetScreenerRun(ctx context.Context, id uuid.UUID) (*models.ScreenerRun, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "screener_runs")

	run, err := scanRun(r.db.QueryRow(ctx, selectRunColumns+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		metrics.RecordDBError("select", "screener_runs")
		return nil, fmt.Errorf("failed to get screener run: %w", err)
	}
	return run, nil
}

// GetLatestScreenerRun returns the most recent screener run
func (r *Repository) GetLatestScreenerRun(ctx context.Context) (*models.ScreenerRun, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "screener_runs")

	run, err := scanRun(r.db.QueryRow(ctx, selectRunColumns+` ORDER BY run_at DESC LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		metrics.RecordDBError("select", "screener_runs")
		return nil, fmt.Errorf("failed to get latest screener run: %w", err)
	}
	return run, nil
}

// GetScreenerRunHistory returns the most recent runs, newest first
func (r *Repository) GetScreenerRunHistory(ctx context.Context, limit int) ([]models.ScreenerRun, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "screener_runs")

	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx, selectRunColumns+` ORDER BY run_at DESC LIMIT $1`, limit)
	if err != nil {
		metrics.RecordDBError("select", "screener_runs")
		return nil, fmt.Errorf("failed to get screener run history: %w", err)
	}
	defer rows.Close()

	runs := []models.ScreenerRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			metrics.RecordDBError("select", "screener_runs")
			return nil, fmt.Errorf("failed to scan screener run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read screener runs: %w", err)
	}

	return runs, nil
}

func marshalRun(run *models.ScreenerRun) (symbols, analyses, recs []byte, err error) {
	if symbols, err = json.Marshal(run.Symbols); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal symbols: %w", err)
	}
	if analyses, err = json.Marshal(run.Analyses); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal analyses: %w", err)
	}
	if run.Recommendations != nil {
		if recs, err = json.Marshal(run.Recommendations); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal recommendations: %w", err)
		}
	}
	return symbols, analyses, recs, nil
}

func scanRun(row pgx.Row) (*models.ScreenerRun, error) {
	var run models.ScreenerRun
	var symbolsJSON, analysesJSON, recsJSON []byte

	err := row.Scan(&run.ID, &run.Mode, &run.RunAt, &symbolsJSON, &analysesJSON, &recsJSON,
		&run.Published, &run.DurationMs, &run.Status, &run.Error, &run.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(symbolsJSON, &run.Symbols); err != nil {
		return nil, fmt.Errorf("failed to unmarshal symbols: %w", err)
	}
	if err := json.Unmarshal(analysesJSON, &run.Analyses); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analyses: %w", err)
	}
	if len(recsJSON) > 0 {
		var set models.RecommendationSet
		if err := json.Unmarshal(recsJSON, &set); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recommendations: %w", err)
		}
		run.Recommendations = &set
	}
	return &run, nil
}
