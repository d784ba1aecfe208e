package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drawingliar/internal/config"
	"drawingliar/internal/game"
	"drawingliar/internal/session"
)

func decodeError(t *testing.T, body []byte) errorBody {
	t.Helper()
	var e errorBody
	require.NoError(t, json.Unmarshal(body, &e))
	return e
}

func TestStartGame(t *testing.T) {
	env := newTestEnv(t)
	code, ids := env.seedRoom(t, 3)

	w := env.postJSON("/room/"+code+"/start", "", ids[1])
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "not_host", decodeError(t, w.Body.Bytes()).Error)

	w = env.postJSON("/room/"+code+"/start", "", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "not_in_room", decodeError(t, w.Body.Bytes()).Error)

	w = env.postJSON("/room/"+code+"/start", "", ids[0])
	require.Equal(t, http.StatusOK, w.Code)
	var room game.Room
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &room))
	assert.Equal(t, game.StatusPlaying, room.Status)
	assert.Empty(t, room.LiarID, "the liar is not revealed in responses")

	w = env.postJSON("/room/"+code+"/start", "", ids[0])
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "game_in_progress", decodeError(t, w.Body.Bytes()).Error)
}

func TestStartGame_NotEnoughPlayers(t *testing.T) {
	env := newTestEnv(t)
	code, ids := env.seedRoom(t, 2)

	w := env.postJSON("/room/"+code+"/start", "", ids[0])
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "not_enough_players", decodeError(t, w.Body.Bytes()).Error)
	assert.Equal(t, game.StatusLobby, env.room(t, code).Status)
}

func TestIntent_InvalidBody(t *testing.T) {
	env := newTestEnv(t)
	code, ids := env.seedRoom(t, 3)

	w := env.postJSON("/room/"+code+"/vote", "{not json", ids[0])
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_body", decodeError(t, w.Body.Bytes()).Error)
}

func TestIntent_DatastarError(t *testing.T) {
	env := newTestEnv(t)
	code, ids := env.seedRoom(t, 3)

	w := env.do(http.MethodPost, "/room/"+code+"/start", "{}", ids[1],
		"Content-Type", "application/json", "Datastar-Request", "true")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
	assert.Contains(t, w.Body.String(), "only the host can do that")
}

func TestSubmitStroke(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.ServerConfig) {
		cfg.Game.StrokeRate = 0.001
		cfg.Game.StrokeBurst = 2
	})
	code, ids := env.seedRoom(t, 3)
	stroke := `{"color":"#222222","lineWidth":3,"points":[{"x":0.1,"y":0.2},{"x":0.4,"y":0.5}]}`

	require.Equal(t, http.StatusOK, env.postJSON("/room/"+code+"/start", "", ids[0]).Code)
	drawer := env.room(t, code).CurrentDrawer()

	w := env.postJSON("/room/"+code+"/stroke", stroke, drawer)
	require.Equal(t, http.StatusOK, w.Code)
	var appended game.Stroke
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &appended))
	assert.NotEmpty(t, appended.ID)
	assert.Equal(t, drawer, appended.PlayerID)
	assert.Len(t, appended.Points, 2)

	w = env.postJSON("/room/"+code+"/stroke", stroke, drawer)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.postJSON("/room/"+code+"/stroke", stroke, drawer)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var other string
	for _, id := range ids {
		if id != drawer {
			other = id
			break
		}
	}
	w = env.postJSON("/room/"+code+"/stroke", stroke, other)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "not_your_turn", decodeError(t, w.Body.Bytes()).Error)

	assert.Len(t, env.room(t, code).Strokes, 2)
}

func TestSubmitStroke_Invalid(t *testing.T) {
	env := newTestEnv(t)
	code, ids := env.seedRoom(t, 3)

	w := env.postJSON("/room/"+code+"/stroke", `{"color":"#000","lineWidth":3,"points":[{"x":0.5,"y":0}]}`, ids[0])
	assert.Equal(t, http.StatusConflict, w.Code, "no drawing in the lobby")

	require.Equal(t, http.StatusOK, env.postJSON("/room/"+code+"/start", "", ids[0]).Code)
	drawer := env.room(t, code).CurrentDrawer()

	w = env.postJSON("/room/"+code+"/stroke", `{"color":"#000","lineWidth":3,"points":[{"x":4,"y":0}]}`, drawer)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_stroke", decodeError(t, w.Body.Bytes()).Error)
}

// votingRoom starts a game and forces it into voting
func votingRoom(t *testing.T, env *testEnv) (string, []string, string) {
	t.Helper()
	code, ids := env.seedRoom(t, 3)
	require.Equal(t, http.StatusOK, env.postJSON("/room/"+code+"/start", "", ids[0]).Code)
	room, err := env.store.Update(t.Context(), code, func(r *game.Room) error {
		r.BeginVoting()
		return nil
	})
	require.NoError(t, err)
	return code, ids, room.LiarID
}

func TestVoteAndGuess(t *testing.T) {
	env := newTestEnv(t)
	code, ids, liar := votingRoom(t, env)

	vote := fmt.Sprintf(`{"target":%q}`, liar)
	w := env.postJSON("/room/"+code+"/vote", vote, ids[0])
	require.Equal(t, http.StatusOK, w.Code)

	w = env.postJSON("/room/"+code+"/vote", vote, ids[0])
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_voted", decodeError(t, w.Body.Bytes()).Error)

	w = env.postJSON("/room/"+code+"/vote", fmt.Sprintf(`{"target":%q}`, uuid.NewString()), ids[1])
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unknown_target", decodeError(t, w.Body.Bytes()).Error)

	for _, id := range ids[1:] {
		require.Equal(t, http.StatusOK, env.postJSON("/room/"+code+"/vote", vote, id).Code)
	}
	assert.Equal(t, game.StatusLiarGuess, env.room(t, code).Status)

	var citizen string
	for _, id := range ids {
		if id != liar {
			citizen = id
			break
		}
	}
	w = env.postJSON("/room/"+code+"/guess", `{"guess":"사과"}`, citizen)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "not_liar", decodeError(t, w.Body.Bytes()).Error)

	keyword := env.room(t, code).Keyword
	w = env.postJSON("/room/"+code+"/guess", fmt.Sprintf(`{"guess":%q}`, " "+keyword+" "), liar)
	require.Equal(t, http.StatusOK, w.Code)

	room := env.room(t, code)
	assert.Equal(t, game.StatusResult, room.Status)
	assert.Equal(t, game.WinnerLiar, room.Winner)
	assert.Equal(t, game.ReasonGuessSuccess, room.Reason)

	w = env.postJSON("/room/"+code+"/reset", "", citizen)
	if citizen == ids[0] {
		assert.Equal(t, http.StatusOK, w.Code)
	} else {
		assert.Equal(t, http.StatusForbidden, w.Code)
		require.Equal(t, http.StatusOK, env.postJSON("/room/"+code+"/reset", "", ids[0]).Code)
	}
	assert.Equal(t, game.StatusLobby, env.room(t, code).Status)
}

func TestClearCanvas(t *testing.T) {
	env := newTestEnv(t)
	code, ids := env.seedRoom(t, 3)

	w := env.postJSON("/room/"+code+"/clear", "", ids[0])
	assert.Equal(t, http.StatusConflict, w.Code)

	require.Equal(t, http.StatusOK, env.postJSON("/room/"+code+"/start", "", ids[0]).Code)
	drawer := env.room(t, code).CurrentDrawer()
	require.Equal(t, http.StatusOK, env.postJSON("/room/"+code+"/stroke",
		`{"color":"#000","lineWidth":2,"points":[{"x":0.5,"y":0.5}]}`, drawer).Code)

	w = env.postJSON("/room/"+code+"/clear", "", ids[0])
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, env.room(t, code).Strokes)
}

func TestRoomState(t *testing.T) {
	env := newTestEnv(t)
	code, ids := env.seedRoom(t, 3)
	require.Equal(t, http.StatusOK, env.postJSON("/room/"+code+"/start", "", ids[0]).Code)
	liar := env.room(t, code).LiarID

	read := func(id string) session.Snapshot {
		w := env.do(http.MethodGet, "/api/room/"+code, "", id)
		require.Equal(t, http.StatusOK, w.Code)
		var snap session.Snapshot
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
		return snap
	}

	liarView := read(liar)
	assert.Empty(t, liarView.Room.Keyword)
	assert.Len(t, liarView.Players, 3)

	for _, id := range ids {
		if id == liar {
			continue
		}
		assert.NotEmpty(t, read(id).Room.Keyword)
		assert.Empty(t, read(id).Room.LiarID)
	}

	w := env.do(http.MethodGet, "/api/room/ZZZZ", "", ids[0])
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHeartbeat(t *testing.T) {
	env := newTestEnv(t)
	code, ids := env.seedRoom(t, 3)

	w := env.postJSON("/room/"+code+"/heartbeat", "", ids[1])
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.postJSON("/room/"+code+"/heartbeat", "", uuid.NewString())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health/live", "", "").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health/ready", "", "").Code)
}
