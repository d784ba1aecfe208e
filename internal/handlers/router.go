package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"drawingliar/internal/config"
	localMiddleware "drawingliar/internal/middleware"
)

// RouterOptions allows customization of router setup for tests
type RouterOptions struct {
	DisableRateLimiting  bool
	DisableRequestLogger bool
	CustomMiddleware     []func(http.Handler) http.Handler
}

// SetupRouter creates the application router with all routes and middleware
func SetupRouter(h *Handler, cfg *config.ServerConfig, opts *RouterOptions) *chi.Mux {
	if opts == nil {
		opts = &RouterOptions{}
	}

	r := chi.NewRouter()

	if !opts.DisableRequestLogger {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Use(localMiddleware.RequestSizeLimiter(cfg.Server.MaxRequestSize))
	r.Use(localMiddleware.SecurityHeaders())

	if !opts.DisableRateLimiting {
		rateLimiter := localMiddleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimitBurst)
		r.Use(rateLimiter.Middleware())
	}

	for _, mw := range opts.CustomMiddleware {
		r.Use(mw)
	}

	// Request/response routes; streams below must not inherit the timeout
	r.Group(func(r chi.Router) {
		if cfg.Server.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
		}

		r.Get("/", h.Home)
		r.Post("/room/new", h.CreateRoom)
		r.Post("/join-room", h.JoinRoomPost)
		r.Get("/room/{code}", h.RoomPage)
		r.Post("/room/{code}/leave", h.LeaveRoom)
		r.Get("/room/{code}/invite", h.Invite)

		r.Post("/room/{code}/start", h.StartGame)
		r.Post("/room/{code}/stroke", h.SubmitStroke)
		r.Post("/room/{code}/clear", h.ClearCanvas)
		r.Post("/room/{code}/vote", h.CastVote)
		r.Post("/room/{code}/guess", h.SubmitGuess)
		r.Post("/room/{code}/reset", h.ResetGame)
		r.Post("/room/{code}/heartbeat", h.Heartbeat)

		r.Get("/api/room/{code}", h.RoomState)

		r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := h.store.Ping(r.Context()); err != nil {
				h.log.Warn().Err(err).Msg("readiness check failed")
				http.Error(w, "store unavailable", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
	})

	r.Get("/sse/room/{code}", ValidateSSERequest(h.StreamRoom))
	r.Get("/ws/room/{code}", h.StreamRoomWS)

	return r
}
