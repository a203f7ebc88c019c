// Package app wires configuration, clients, cache and resolver into one
// shared core used by cmd/fundview-server.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/finbrook/fundview/internal/cache"
	"github.com/finbrook/fundview/internal/clients"
	"github.com/finbrook/fundview/internal/clients/dashv1"
	"github.com/finbrook/fundview/internal/clients/dashv2"
	"github.com/finbrook/fundview/internal/common"
	"github.com/finbrook/fundview/internal/interfaces"
	"github.com/finbrook/fundview/internal/models"
	"github.com/finbrook/fundview/internal/resolver"
	"github.com/finbrook/fundview/internal/telemetry"
)

// App holds the initialized service graph and the one session state.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Cache       *cache.Cache
	Source      interfaces.DashboardSource
	Resolver    *resolver.Resolver
	Telemetry   *telemetry.Buffer
	StartupTime time.Time

	mu    sync.Mutex
	state *models.SelectionState

	warmCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes the application from the given config path.
// configPath may be empty, in which case FUNDVIEW_CONFIG and the binary
// directory are tried before falling back to defaults.
func NewApp(configPath string) (*App, error) {
	if configPath == "" {
		configPath = os.Getenv("FUNDVIEW_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "fundview.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/fundview.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	return newApp(config, logger)
}

// NewAppWithConfig builds the application around an existing config and
// logger. Used by tests to point the app at local backends.
func NewAppWithConfig(config *common.Config, logger *common.Logger) (*App, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return newApp(config, logger)
}

func newApp(config *common.Config, logger *common.Logger) (*App, error) {
	if config.Backend.V1.BaseURL == "" {
		return nil, fmt.Errorf("backend v1 base_url is not configured")
	}

	a := &App{
		Config:      config,
		Logger:      logger,
		StartupTime: time.Now(),
		state:       models.NewSelectionState(),
	}

	a.Cache = cache.New(
		cache.WithEntityTTL(config.Cache.GetEntityTTL()),
		cache.WithQueryTTL(config.Cache.GetQueryTTL()),
	)

	v1 := dashv1.NewClient(
		dashv1.WithBaseURL(config.Backend.V1.BaseURL),
		dashv1.WithRateLimit(config.Backend.V1.RateLimit),
		dashv1.WithTimeout(config.Backend.V1.GetTimeout()),
		dashv1.WithLogger(logger),
	)

	if config.Backend.V2.Enabled {
		v2BaseURL := config.Backend.V2.BaseURL
		if v2BaseURL == "" {
			v2BaseURL = config.Backend.V1.BaseURL
		}
		v2 := dashv2.NewClient(
			dashv2.WithBaseURL(v2BaseURL),
			dashv2.WithRetry(config.Backend.V2.RetryAttempts, config.Backend.V2.GetRetryDelay()),
			dashv2.WithTimeout(config.Backend.V2.GetTimeout()),
			dashv2.WithLogger(logger),
		)
		a.Source = clients.NewFallbackSource(v2, v1, logger)
		logger.Info().Str("base_url", v2BaseURL).Msg("Unified v2 backend enabled with v1 fallback")
	} else {
		a.Source = v1
		logger.Info().Str("base_url", config.Backend.V1.BaseURL).Msg("Using per-scope v1 backend")
	}

	resolverOpts := []resolver.Option{resolver.WithLogger(logger)}
	if config.Telemetry.Enabled {
		a.Telemetry = telemetry.NewBuffer(
			telemetry.NewLogSink(logger),
			telemetry.WithBufferSize(config.Telemetry.BufferSize),
			telemetry.WithFlushInterval(config.Telemetry.GetFlushInterval()),
			telemetry.WithLogger(logger),
		)
		resolverOpts = append(resolverOpts, resolver.WithRecorder(a.Telemetry))
	}
	a.Resolver = resolver.New(a.Source, a.Cache, resolverOpts...)

	return a, nil
}

// Close stops background work and flushes pending telemetry.
func (a *App) Close() {
	if a.warmCancel != nil {
		a.warmCancel()
	}
	if a.Telemetry != nil {
		a.Telemetry.Close()
	}
}

// snapshot returns a copy of the session selection state.
func (a *App) snapshot() *models.SelectionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Clone()
}

// CurrentView resolves the present selection state.
func (a *App) CurrentView(ctx context.Context) (*models.ViewModel, error) {
	return a.Resolver.Resolve(ctx, a.snapshot())
}

// ToggleSelection flips one member in a dimension and resolves the
// resulting view.
func (a *App) ToggleSelection(ctx context.Context, dim models.Dimension, id string) (*models.ViewModel, error) {
	a.mu.Lock()
	if err := a.state.Toggle(dim, id); err != nil {
		a.mu.Unlock()
		return nil, err
	}
	snap := a.state.Clone()
	a.mu.Unlock()
	return a.Resolver.Resolve(ctx, snap)
}

// ClearSelections drops every selection, filter and pinned date and
// resolves the overview.
func (a *App) ClearSelections(ctx context.Context) (*models.ViewModel, error) {
	a.mu.Lock()
	a.state.Clear()
	snap := a.state.Clone()
	a.mu.Unlock()
	return a.Resolver.Resolve(ctx, snap)
}

// SetTextFilter applies one text filter field and resolves the view.
func (a *App) SetTextFilter(ctx context.Context, field, value string) (*models.ViewModel, error) {
	a.mu.Lock()
	if err := a.state.SetTextFilter(field, value); err != nil {
		a.mu.Unlock()
		return nil, err
	}
	snap := a.state.Clone()
	a.mu.Unlock()
	return a.Resolver.Resolve(ctx, snap)
}

// PinDate pins (or, with nil, clears) the as-of date and resolves the
// view.
func (a *App) PinDate(ctx context.Context, date *time.Time) (*models.ViewModel, error) {
	a.mu.Lock()
	a.state.SetPinnedDate(date)
	snap := a.state.Clone()
	a.mu.Unlock()
	return a.Resolver.Resolve(ctx, snap)
}

// Selection returns a copy of the session state for inspection.
func (a *App) Selection() *models.SelectionState {
	return a.snapshot()
}
