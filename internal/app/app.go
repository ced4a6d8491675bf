package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Abhishek8108/uk-stock-analyzer/config"
	"github.com/Abhishek8108/uk-stock-analyzer/models"
	"github.com/Abhishek8108/uk-stock-analyzer/observability"
)

// ErrRunInProgress is returned when a run is requested while another is active
var ErrRunInProgress = errors.New("a screener run is already in progress")

// ErrScreenerNotConfigured is returned when the App has no screener
var ErrScreenerNotConfigured = errors.New("screener not configured")

// Store is the run store surface the App needs besides the screener's reads
type Store interface {
	Health(ctx context.Context) error
	Close()
}

// Screener runs and reads back screener runs
type Screener interface {
	RunScreen(ctx context.Context, mode models.RunMode) (*models.ScreenerRun, error)
	GetLatestRun(ctx context.Context) (*models.ScreenerRun, error)
	GetRun(ctx context.Context, id uuid.UUID) (*models.ScreenerRun, error)
	GetRunHistory(ctx context.Context, limit int) ([]models.ScreenerRun, error)
}

// App owns the screener and the run store and lets at most one run execute
// at a time, whichever of the CLI, the scheduler or the API asked for it.
type App struct {
	ctx         context.Context
	cfg         *config.Config
	store       Store
	screener    Screener
	runSem      chan struct{}
	wg          sync.WaitGroup
	healthCache *HealthCache
}

// New creates a new App
func New(cfg *config.Config, store Store, screener Screener) *App {
	return &App{
		ctx:         context.Background(),
		cfg:         cfg,
		store:       store,
		screener:    screener,
		runSem:      make(chan struct{}, 1),
		healthCache: NewHealthCache(DefaultHealthCacheTTL),
	}
}

// Startup sets the context background runs execute under
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
}

// Shutdown waits for a background run to finish, then closes the store
func (a *App) Shutdown(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		observability.Warn("shutdown timed out waiting for screener run")
	}

	if a.store != nil {
		a.store.Close()
	}
}

// Config returns the application configuration
func (a *App) Config() *config.Config {
	return a.cfg
}

// HasScreener reports whether runs can be started
func (a *App) HasScreener() bool {
	return a.screener != nil
}

// IsRunning reports whether a run currently holds the run slot
func (a *App) IsRunning() bool {
	return len(a.runSem) > 0
}

func (a *App) acquire() error {
	if a.screener == nil {
		return ErrScreenerNotConfigured
	}
	select {
	case a.runSem <- struct{}{}:
		return nil
	default:
		return ErrRunInProgress
	}
}

func (a *App) release() { <-a.runSem }

// RunScreen executes a run synchronously
func (a *App) RunScreen(ctx context.Context, mode models.RunMode) (*models.ScreenerRun, error) {
	if err := a.acquire(); err != nil {
		return nil, err
	}
	defer a.release()

	return a.screener.RunScreen(ctx, mode)
}

// StartRun starts a run in the background under the App's context. It
// returns as soon as the run slot is taken.
func (a *App) StartRun(mode models.RunMode) error {
	if err := a.acquire(); err != nil {
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.release()

		if _, err := a.screener.RunScreen(a.ctx, mode); err != nil {
			observability.Error("background screener run failed", "mode", mode, "error", err)
		}
	}()
	return nil
}

// GetLatestRun returns the most recent run, or nil if there is none
func (a *App) GetLatestRun(ctx context.Context) (*models.ScreenerRun, error) {
	if a.screener == nil {
		return nil, ErrScreenerNotConfigured
	}
	return a.screener.GetLatestRun(ctx)
}

// GetRunHistory returns recent runs, newest first
func (a *App) GetRunHistory(ctx context.Context, limit int) ([]models.ScreenerRun, error) {
	if a.screener == nil {
		return nil, ErrScreenerNotConfigured
	}
	return a.screener.GetRunHistory(ctx, limit)
}

// GetRun returns a run by its string ID, or nil if it does not exist
func (a *App) GetRun(ctx context.Context, id string) (*models.ScreenerRun, error) {
	if a.screener == nil {
		return nil, ErrScreenerNotConfigured
	}

	runID, err := ParseUUID(id)
	if err != nil {
		return nil, err
	}
	return a.screener.GetRun(ctx, runID)
}

// StoreHealth checks the run store, reusing a recent result when available
func (a *App) StoreHealth(ctx context.Context) error {
	if a.store == nil {
		return errors.New("run store not configured")
	}
	if valid, err := a.healthCache.Get(); valid {
		return err
	}
	err := a.store.Health(ctx)
	a.healthCache.Set(err)
	return err
}

// ParseUUID parses a string UUID
func ParseUUID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID: %w", err)
	}
	return parsed, nil
}
