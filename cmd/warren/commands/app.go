package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dyluth/warren/internal/chunk"
	"github.com/dyluth/warren/internal/config"
	"github.com/dyluth/warren/internal/orchestrator"
	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/internal/responder"
	"github.com/dyluth/warren/internal/session"
	"github.com/dyluth/warren/internal/strategy"
	"github.com/dyluth/warren/pkg/specialist"
	"go.uber.org/zap"
)

// app is a fully wired warren instance.
type app struct {
	cfg      *config.WarrenConfig
	registry *specialist.Registry
	store    session.Store
	orch     *orchestrator.Orchestrator
}

// loadConfig reads and validates path, printing a friendly error on failure.
func loadConfig(path string) (*config.WarrenConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"config": path},
			[]string{"Fix the file and run: warren validate --config " + path},
		)
	}
	return cfg, nil
}

// newApp wires config, registry, strategies, session store, and
// orchestrator. The caller must call close.
func newApp(ctx context.Context, cfg *config.WarrenConfig, dir string, logger *zap.Logger) (*app, error) {
	reg, err := responder.BuildRegistry(cfg, dir, logger)
	if err != nil {
		return nil, err
	}

	set, err := strategy.NewSet(reg, strategiesFromConfig(cfg.Strategies)...)
	if err != nil {
		return nil, err
	}

	writer, err := chunk.NewWriter(cfg.Channel.MaxSegmentSize)
	if err != nil {
		return nil, err
	}

	store, err := newStore(ctx, cfg.Sessions)
	if err != nil {
		return nil, err
	}

	engine := strategy.NewEngine(reg, strategy.Config{Timeout: cfg.Orchestrator.SpecialistTimeout}, logger)

	return &app{
		cfg:      cfg,
		registry: reg,
		store:    store,
		orch:     orchestrator.New(store, engine, set, writer, logger),
	}, nil
}

func (a *app) close() error {
	return a.store.Close()
}

func newStore(ctx context.Context, cfg *config.SessionsConfig) (session.Store, error) {
	switch cfg.Backend {
	case "memory":
		return session.NewMemoryStore(), nil
	case "redis":
		store, err := session.NewRedisStoreFromURL(cfg.RedisURL, cfg.Namespace)
		if err != nil {
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("redis not accessible at %s: %w", cfg.RedisURL, err)
		}
		store.SetIdleTTL(cfg.IdleEviction)
		return store, nil
	default:
		return nil, fmt.Errorf("invalid session backend: %s", cfg.Backend)
	}
}

func strategiesFromConfig(sc config.StrategiesConfig) []strategy.Strategy {
	var out []strategy.Strategy
	add := func(kind strategy.Kind, c *config.StrategyConfig) {
		if c == nil {
			return
		}
		out = append(out, strategy.Strategy{
			Kind:          kind,
			SpecialistIDs: c.Specialists,
			Synthesize:    c.Synthesize,
		})
	}
	add(strategy.KindRoute, sc.Route)
	add(strategy.KindCoordinate, sc.Coordinate)
	add(strategy.KindCollaborate, sc.Collaborate)
	return out
}

// configDir is the working directory for command responders.
func configDir(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Dir(path)
	}
	return filepath.Dir(abs)
}
