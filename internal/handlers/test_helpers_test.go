package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"drawingliar/internal/config"
	"drawingliar/internal/game"
	"drawingliar/internal/identity"
	"drawingliar/internal/session"
	"drawingliar/internal/store"
)

type testEnv struct {
	h      *Handler
	store  *store.MemoryStore
	cfg    *config.ServerConfig
	router http.Handler
}

func newTestEnv(t *testing.T, tweak ...func(cfg *config.ServerConfig)) *testEnv {
	t.Helper()
	cfg := config.DefaultConfig()
	for _, fn := range tweak {
		fn(cfg)
	}

	st := store.NewMemoryStore()
	m := session.NewMachine(st, game.NewKeywords("사과", "기린", "자전거"), cfg.Game)
	runner := session.NewRunner(context.Background(), m, st, zerolog.Nop())
	t.Cleanup(runner.Close)

	h := New(m, st, runner, identity.NewCookieProvider(), cfg, zerolog.Nop())
	router := SetupRouter(h, cfg, &RouterOptions{DisableRateLimiting: true, DisableRequestLogger: true})
	return &testEnv{h: h, store: st, cfg: cfg, router: router}
}

// seedRoom creates a room hosted by the first of n fresh identities
func (e *testEnv) seedRoom(t *testing.T, n int) (string, []string) {
	t.Helper()
	ctx := context.Background()

	ids := []string{uuid.NewString()}
	room, err := e.h.machine.CreateRoom(ctx, ids[0], "Host")
	require.NoError(t, err)

	for i := 1; i < n; i++ {
		id := uuid.NewString()
		_, err := e.h.machine.Join(ctx, room.Code, id, "Player"+string(rune('A'+i)))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return room.Code, ids
}

func (e *testEnv) room(t *testing.T, code string) *game.Room {
	t.Helper()
	room, err := e.store.Get(context.Background(), code)
	require.NoError(t, err)
	return room
}

func playerCookie(id string) *http.Cookie {
	return &http.Cookie{Name: identity.CookieName, Value: id}
}

// do sends a request through the router as playerID ("" for no identity)
func (e *testEnv) do(method, path, body, playerID string, header ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if playerID != "" {
		req.AddCookie(playerCookie(playerID))
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) postJSON(path, body, playerID string) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, path, body, playerID, "Content-Type", "application/json")
}

func (e *testEnv) postForm(path, body, playerID string) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, path, body, playerID, "Content-Type", "application/x-www-form-urlencoded")
}
