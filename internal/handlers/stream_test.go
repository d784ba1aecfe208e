package handlers

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readUntil scans an SSE body until a line contains want
func readUntil(t *testing.T, sc *bufio.Scanner, want string) {
	t.Helper()
	for sc.Scan() {
		if strings.Contains(sc.Text(), want) {
			return
		}
	}
	t.Fatalf("stream ended before %q: %v", want, sc.Err())
}

func openStream(t *testing.T, ctx context.Context, url, playerID string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	req.AddCookie(playerCookie(playerID))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestStreamRoom(t *testing.T) {
	env := newTestEnv(t)
	code, ids := env.seedRoom(t, 3)
	server := httptest.NewServer(env.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp := openStream(t, ctx, server.URL+"/sse/room/"+code, ids[1])
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	readUntil(t, sc, `"status":"lobby"`)
	readUntil(t, sc, `id="player-list"`)

	// a new player shows up on everyone's roster
	_, err := env.h.machine.Join(ctx, code, uuid.NewString(), "Dora")
	require.NoError(t, err)
	readUntil(t, sc, "Dora")

	// starting the game flips the status signal
	_, err = env.h.machine.Start(ctx, code, ids[0])
	require.NoError(t, err)
	readUntil(t, sc, `"status":"playing"`)

	// lost writes are announced on the stream
	env.h.eventBus.Publish(Event{Type: EventWriteFailed, RoomCode: code, Message: "write lost"})
	readUntil(t, sc, "write lost")
}

func TestStreamRoom_RemovedPlayerIsRedirected(t *testing.T) {
	env := newTestEnv(t)
	code, ids := env.seedRoom(t, 3)
	server := httptest.NewServer(env.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp := openStream(t, ctx, server.URL+"/sse/room/"+code, ids[2])
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	readUntil(t, sc, `id="player-list"`)

	require.NoError(t, env.h.machine.Leave(ctx, code, ids[2]))
	readUntil(t, sc, "/?room="+code)
}

func TestStreamRoom_Rejections(t *testing.T) {
	env := newTestEnv(t)
	code, _ := env.seedRoom(t, 3)

	w := env.do(http.MethodGet, "/sse/room/"+code, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/sse/room/"+code, nil).WithContext(ctx)
	req.AddCookie(playerCookie(uuid.NewString()))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	w = env.do(http.MethodGet, "/sse/room/ZZZZ", "", uuid.NewString())
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/sse/room/"+code+"?evil=1", "", uuid.NewString())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func dialRoom(t *testing.T, server *httptest.Server, code, playerID string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/room/" + code
	header := http.Header{}
	header.Set("Cookie", playerCookie(playerID).String())

	conn, resp, err := websocket.DefaultDialer.Dial(u, header)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readType reads frames until one of type want arrives
func readType(t *testing.T, conn *websocket.Conn, want string) wsMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == want {
			return msg
		}
	}
}

func TestStreamRoomWS(t *testing.T) {
	env := newTestEnv(t)
	code, ids := env.seedRoom(t, 3)
	server := httptest.NewServer(env.router)
	defer server.Close()

	conn := dialRoom(t, server, code, ids[0])

	// the current room and roster arrive first, in either order
	initial := map[string]wsMessage{}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for len(initial) < 2 {
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		initial[msg.Type] = msg
	}
	assert.Equal(t, code, initial["room"].Room.Code)
	assert.Len(t, initial["players"].Players, 3)

	require.NoError(t, conn.WriteJSON(wsMessage{Type: "dance"}))
	assert.Equal(t, "unknown_type", readType(t, conn, "error").Error)

	require.NoError(t, conn.WriteJSON(wsMessage{Type: "heartbeat"}))

	_, err := env.h.machine.Start(context.Background(), code, ids[0])
	require.NoError(t, err)
	started := readType(t, conn, "room")
	assert.Equal(t, "playing", string(started.Room.Status))
	assert.Empty(t, started.Room.LiarID)

	drawer := env.room(t, code).CurrentDrawer()
	if drawer != ids[0] {
		require.NoError(t, conn.WriteJSON(wsMessage{Type: "stroke", Stroke: nil}))
		assert.Equal(t, "invalid_body", readType(t, conn, "error").Error)
		return
	}

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":   "stroke",
		"stroke": map[string]any{"color": "#123456", "lineWidth": 2, "points": []map[string]float64{{"x": 0.2, "y": 0.3}}},
	}))
	drawn := readType(t, conn, "room")
	assert.Len(t, drawn.Room.Strokes, 1)
}

func TestStreamRoomWS_Rejections(t *testing.T) {
	env := newTestEnv(t)
	code, _ := env.seedRoom(t, 3)

	w := env.do(http.MethodGet, "/ws/room/"+code, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodGet, "/ws/room/"+code, "", uuid.NewString())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSameOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://liar.example.com/ws/room/AB12", nil)
	assert.True(t, sameOrigin(r))

	r.Header.Set("Origin", "http://liar.example.com")
	assert.True(t, sameOrigin(r))

	r.Header.Set("Origin", "http://evil.example.com")
	assert.False(t, sameOrigin(r))
}
