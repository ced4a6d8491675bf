package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Abhishek8108/uk-stock-analyzer/models"
)

// RunStore persists screener run history
type RunStore interface {
	CreateScreenerRun(ctx context.Context, run *models.ScreenerRun) error
	UpdateScreenerRun(ctx context.Context, run *models.ScreenerRun) error
	GetScreenerRun(ctx context.Context, id uuid.UUID) (*models.ScreenerRun, error)
	GetLatestScreenerRun(ctx context.Context) (*models.ScreenerRun, error)
	GetScreenerRunHistory(ctx context.Context, limit int) ([]models.ScreenerRun, error)
	Health(ctx context.Context) error
	Close()
}

// Compile-time interface verification
var _ RunStore = (*Repository)(nil)
var _ RunStore = (*MemoryStore)(nil)
