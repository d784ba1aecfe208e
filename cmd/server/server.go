package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"drawingliar"
	"drawingliar/internal/config"
	"drawingliar/internal/game"
	"drawingliar/internal/handlers"
	"drawingliar/internal/identity"
	"drawingliar/internal/logging"
	"drawingliar/internal/session"
	"drawingliar/internal/store"
)

// InitializationError means a backend needed at startup is unusable
type InitializationError struct {
	Component string
	Err       error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("failed to initialize %s: %v", e.Component, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// App is the wired service
type App struct {
	cfg     *config.ServerConfig
	log     zerolog.Logger
	store   store.RoomStore
	machine *session.Machine
	runner  *session.Runner
	handler *handlers.Handler
	router  http.Handler

	cancel context.CancelFunc
}

// AppOptions tweaks wiring for tests
type AppOptions struct {
	Store  store.RoomStore // overrides the configured backend
	Router *handlers.RouterOptions
}

// NewApp builds the store, the state machine, the room runner and the router
func NewApp(ctx context.Context, cfg *config.ServerConfig, log zerolog.Logger, opts *AppOptions) (*App, error) {
	if opts == nil {
		opts = &AppOptions{}
	}

	keywords, err := loadKeywords(cfg.Game.KeywordsFile)
	if err != nil {
		return nil, &InitializationError{Component: "keywords", Err: err}
	}

	st := opts.Store
	if st == nil {
		st, err = openStore(ctx, cfg.Store)
		if err != nil {
			return nil, &InitializationError{Component: "store", Err: err}
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	machine := session.NewMachine(st, keywords, cfg.Game, session.WithLogger(logging.Component(log, "session")))
	runner := session.NewRunner(ctx, machine, st, logging.Component(log, "runner"))
	h := handlers.New(machine, st, runner, identity.NewCookieProvider(), cfg, logging.Component(log, "http"))

	app := &App{
		cfg:     cfg,
		log:     log,
		store:   st,
		machine: machine,
		runner:  runner,
		handler: h,
		router:  handlers.SetupRouter(h, cfg, opts.Router),
		cancel:  cancel,
	}

	go app.pruneLimiters(ctx)

	log.Info().
		Str("store", cfg.Store.Backend).
		Int("keywords", keywords.Len()).
		Dur("turnDuration", cfg.Game.TurnDuration).
		Str("owner", runner.Owner()).
		Msg("service initialized")
	return app, nil
}

// Handler returns the HTTP handler
func (a *App) Handler() http.Handler {
	return a.router
}

// Close stops the room loops and releases the store
func (a *App) Close() error {
	a.cancel()
	a.runner.Close()
	return a.store.Close()
}

func (a *App) pruneLimiters(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.handler.PruneLimiters(10 * time.Minute); n > 0 {
				a.log.Debug().Int("pruned", n).Msg("idle stroke limiters pruned")
			}
		}
	}
}

func openStore(ctx context.Context, cfg config.StoreSettings) (store.RoomStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "redis":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return store.OpenRedis(ctx, cfg.RedisURL, cfg.RoomTTL)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

func loadKeywords(path string) (*game.Keywords, error) {
	if path != "" {
		return game.LoadKeywordsFile(path)
	}
	return game.ParseKeywords(drawingliar.KeywordsYAML)
}
