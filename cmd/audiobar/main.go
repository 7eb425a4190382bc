package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"github.com/genricoloni/audiobar/internal/config"
	"github.com/genricoloni/audiobar/internal/controller"
	"github.com/genricoloni/audiobar/internal/domain"
	"github.com/genricoloni/audiobar/internal/fetcher"
	"github.com/genricoloni/audiobar/internal/localplayer"
	"github.com/genricoloni/audiobar/internal/mpris"
	"github.com/genricoloni/audiobar/internal/tui"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// AppOptions is the whole dependency graph, shared with the tests
var AppOptions = fx.Options(
	// Logger configuration
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log}
	}),

	// Provide dependencies
	fx.Provide(
		config.NewAppConfig,
		asConfig,
		newLogger,
		newFetcher,
		newEngine,
		controller.New,
		asPlayer,
		newScreen,
		tui.NewView,
	),

	// Lifecycle hooks
	fx.Invoke(registerHooks),
)

func main() {
	app := fx.New(AppOptions)

	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()

	if err := app.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "audiobar: %v\n", err)
		os.Exit(1)
	}

	// Wait for q/Esc in the terminal or an interrupt signal
	<-app.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "audiobar: %v\n", err)
		os.Exit(1)
	}
}

// newLogger writes production JSON logs to the configured file.
// The terminal belongs to the player view.
func newLogger(cfg *config.AppConfig) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.GetLogFile()), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{cfg.GetLogFile()}
	zcfg.ErrorOutputPaths = []string{cfg.GetLogFile()}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

func asConfig(cfg *config.AppConfig) domain.Config {
	return cfg
}

func asPlayer(c *controller.Controller) domain.Player {
	return c
}

func newFetcher(logger *zap.Logger) domain.Fetcher {
	return fetcher.NewHTTPFetcher(logger)
}

// newEngine picks the playback backend named in the configuration
func newEngine(logger *zap.Logger, cfg domain.Config, fetch domain.Fetcher) (domain.Engine, error) {
	switch cfg.GetBackend() {
	case config.BackendLocal:
		return localplayer.NewEngine(logger, fetch, localplayer.NewSpeakerOutput()), nil
	case config.BackendMPRIS:
		return mpris.NewEngine(logger, cfg), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.GetBackend())
	}
}

func newScreen() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("can't start terminal screen: %w", err)
	}
	return screen, nil
}

// registerHooks sets up application lifecycle hooks
func registerHooks(
	lc fx.Lifecycle,
	logger *zap.Logger,
	cfg *config.AppConfig,
	ctrl *controller.Controller,
	engine domain.Engine,
	view *tui.View,
) {
	runCtx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Audiobar started", cfg.Fields()...)

			go func() {
				runDone <- ctrl.Run(runCtx)
			}()

			if err := view.Start(); err != nil {
				cancel()
				return multierr.Append(err, engine.Close())
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")

			view.Stop()
			cancel()

			var err error
			select {
			case runErr := <-runDone:
				if runErr != nil && !errors.Is(runErr, context.Canceled) {
					err = multierr.Append(err, fmt.Errorf("controller: %w", runErr))
				}
			case <-ctx.Done():
				err = multierr.Append(err, fmt.Errorf("controller did not stop: %w", ctx.Err()))
			}

			if closeErr := engine.Close(); closeErr != nil {
				err = multierr.Append(err, fmt.Errorf("engine: %w", closeErr))
			}
			_ = logger.Sync()
			return err
		},
	})
}
