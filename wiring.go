package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/wricardo/co2-logistics-game/game/atlas"
	"github.com/wricardo/co2-logistics-game/game/config"
	"github.com/wricardo/co2-logistics-game/game/engine"
	"github.com/wricardo/co2-logistics-game/game/portroute"
	"github.com/wricardo/co2-logistics-game/game/service"
	"github.com/wricardo/co2-logistics-game/game/session"
	"github.com/wricardo/co2-logistics-game/internal/settings"
	"github.com/wricardo/co2-logistics-game/roads"
)

// application holds the wired services of one process
type application struct {
	service  service.GameService
	sessions *session.Manager
	atlas    *atlas.Atlas
	lanes    *portroute.Validator
	roads    engine.RoadDistanceProvider
	closers  []func() error
}

// Close releases the road cache
func (a *application) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// buildApplication loads the datasets and wires session, board and game
// services. Port lanes load in the background; session cleanup runs until
// ctx is done.
func buildApplication(ctx context.Context, cfg *settings.Settings, logger zerolog.Logger) (*application, error) {
	places, err := atlas.Load(cfg.Data.PortsFile, cfg.Data.StoragesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load locations: %w", err)
	}
	ports, storages := places.Len()
	logger.Info().Int("ports", ports).Int("storages", storages).Msg("Locations loaded")

	lanes := portroute.New(portroute.FileSource(cfg.Data.PortRoutesFile), logger.With().Str("component", "portroute").Logger())
	go lanes.Initialize(ctx)

	app := &application{atlas: places, lanes: lanes}

	provider, closer, err := newRoadProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	app.roads = provider
	if closer != nil {
		app.closers = append(app.closers, closer)
	}

	configs, err := config.NewManager(cfg.Game.ConfigDir)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	if cfg.Game.DefaultBoard != "" {
		if err := configs.SetDefault(cfg.Game.DefaultBoard); err != nil {
			app.Close()
			return nil, fmt.Errorf("default board: %w", err)
		}
	}

	factory := newEngineFactory(places, provider, lanes, cfg.Game.Seed, logger)
	app.sessions = session.NewManager(factory, logger.With().Str("component", "session").Logger())

	app.service = service.NewGameService(service.Dependencies{
		Sessions: app.sessions,
		Configs:  configs,
		Catalog:  places,
		Lanes:    lanes,
		Logger:   logger.With().Str("component", "service").Logger(),
	})

	go app.sessions.RunCleanup(ctx, cfg.Game.CleanupInterval, cfg.Game.SessionTTL)

	return app, nil
}

// newRoadProvider builds the road distance chain from settings. The returned
// closer, when not nil, closes the cache database.
func newRoadProvider(cfg *settings.Settings, logger zerolog.Logger) (engine.RoadDistanceProvider, func() error, error) {
	log := logger.With().Str("component", "roads").Logger()

	if cfg.Routing.Provider == "straight" {
		log.Warn().Float64("detour_factor", cfg.Routing.DetourFactor).Msg("No routing service configured, using straight-line road distances")
		return roads.StraightLineProvider{DetourFactor: cfg.Routing.DetourFactor}, nil, nil
	}

	ors, err := roads.NewORSProvider(cfg.Routing.ORSAPIKey, log,
		roads.WithBaseURL(cfg.Routing.ORSBaseURL),
		roads.WithProfile(cfg.Routing.Profile),
		roads.WithRateLimit(cfg.Routing.RateLimit, cfg.Routing.Burst),
		roads.WithHTTPClient(&http.Client{Timeout: cfg.Routing.Timeout}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("road provider: %w", err)
	}
	if !cfg.Cache.Enabled {
		return ors, nil, nil
	}

	db, err := roads.OpenCache(roads.CacheOptions{Driver: cfg.Cache.Driver, DSN: cfg.Cache.DSN}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("road cache: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("road cache: %w", err)
	}
	return roads.NewCachedProvider(db, ors, ors.Profile(), log), sqlDB.Close, nil
}

// newEngineFactory gives every session its own dice. A non-zero seed makes
// the n-th session's rolls reproducible.
func newEngineFactory(places *atlas.Atlas, provider engine.RoadDistanceProvider, lanes engine.RouteValidator, seed uint64, logger zerolog.Logger) session.EngineFactory {
	base := []engine.Option{
		engine.WithRoadProvider(provider),
		engine.WithRouteValidator(lanes),
	}

	var created atomic.Uint64
	return func(sessionID string, board *engine.BoardConfig) (*engine.GameEngine, error) {
		opts := base
		if seed != 0 {
			opts = append(opts[:len(opts):len(opts)], engine.WithRand(rand.New(rand.NewPCG(seed, created.Add(1)))))
		}
		return session.NewEngineFactory(places, logger, opts...)(sessionID, board)
	}
}
