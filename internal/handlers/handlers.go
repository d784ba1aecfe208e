package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/rs/zerolog"
	datastar "github.com/starfederation/datastar-go/datastar"

	"drawingliar/internal/config"
	"drawingliar/internal/game"
	"drawingliar/internal/identity"
	"drawingliar/internal/middleware"
	"drawingliar/internal/session"
	"drawingliar/internal/store"
	"drawingliar/internal/views/components"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	machine  *session.Machine
	store    store.RoomStore
	runner   *session.Runner
	identity identity.Provider
	cfg      *config.ServerConfig
	log      zerolog.Logger

	strokeLimiter *middleware.RateLimiter
	eventBus      *EventBus
}

// New creates a new handler
func New(m *session.Machine, st store.RoomStore, runner *session.Runner, id identity.Provider, cfg *config.ServerConfig, log zerolog.Logger) *Handler {
	return &Handler{
		machine:       m,
		store:         st,
		runner:        runner,
		identity:      id,
		cfg:           cfg,
		log:           log,
		strokeLimiter: middleware.NewRateLimiter(cfg.Game.StrokeRate, cfg.Game.StrokeBurst),
		eventBus:      NewEventBus(),
	}
}

// Machine returns the handler's state machine (for testing)
func (h *Handler) Machine() *session.Machine {
	return h.machine
}

// PruneLimiters drops per-player stroke limiters idle for longer than idle
func (h *Handler) PruneLimiters(idle time.Duration) int {
	return h.strokeLimiter.Prune(idle)
}

// Event is a transient, per-room notice that is not part of the room document
type Event struct {
	Type     string
	RoomCode string
	Message  string
}

// EventWriteFailed tells clients that one of the room's writes was lost
const EventWriteFailed = "write_failed"

// EventBus fans transient events out to the streams of a room
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan Event),
	}
}

// Subscribe subscribes to events for a room
func (eb *EventBus) Subscribe(roomCode string) chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan Event, 8)
	eb.subscribers[roomCode] = append(eb.subscribers[roomCode], ch)
	return ch
}

// Unsubscribe removes a subscription
func (eb *EventBus) Unsubscribe(roomCode string, ch chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subscribers[roomCode]
	for i, sub := range subs {
		if sub == ch {
			eb.subscribers[roomCode] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}
	if len(eb.subscribers[roomCode]) == 0 {
		delete(eb.subscribers, roomCode)
	}
}

// Publish delivers event to every subscriber that has room for it.
// Events are advisory; a full subscriber simply misses one.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers[event.RoomCode] {
		select {
		case ch <- event:
		default:
		}
	}
}

// errorBody is the JSON shape of every failed intent
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor maps an intent error to an HTTP status and error code
func statusFor(err error) (int, string) {
	var v *game.ValidationError
	switch {
	case errors.As(err, &v):
		switch v {
		case game.ErrRoomNotFound:
			return http.StatusNotFound, v.Code
		case game.ErrNotHost, game.ErrNotYourTurn, game.ErrNotLiar, game.ErrNotInRoom:
			return http.StatusForbidden, v.Code
		case game.ErrWrongStatus, game.ErrGameInProgress, game.ErrAlreadyVoted, game.ErrVotingOpen, game.ErrRoomFull:
			return http.StatusConflict, v.Code
		}
		return http.StatusBadRequest, v.Code
	case game.IsWriteFailure(err):
		return http.StatusServiceUnavailable, EventWriteFailed
	case errors.Is(err, identity.ErrIdentity):
		return http.StatusInternalServerError, "identity_failed"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, game.ErrRoomNotFound.Code
	}
	return http.StatusInternalServerError, "internal"
}

// messageFor returns user-facing text for err
func messageFor(err error) string {
	var v *game.ValidationError
	if errors.As(err, &v) {
		return err.Error()
	}
	if game.IsWriteFailure(err) {
		return "Your last action could not be saved. Please try again."
	}
	return "Something went wrong."
}

// fail reports err to the caller. Write failures are also logged and pushed
// to the room's streams so nobody mistakes a lost write for success.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, code string, err error) {
	status, errCode := statusFor(err)
	msg := messageFor(err)

	switch {
	case game.IsWriteFailure(err):
		h.log.Error().Err(err).Str("room", code).Str("path", r.URL.Path).Msg("write failed")
		if code != "" {
			h.eventBus.Publish(Event{Type: EventWriteFailed, RoomCode: code, Message: msg})
		}
	case status >= http.StatusInternalServerError:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	default:
		h.log.Debug().Err(err).Str("room", code).Str("path", r.URL.Path).Msg("intent rejected")
	}

	if isDatastarRequest(r) {
		sse := datastar.NewSSE(w, r)
		sse.MarshalAndPatchSignals(map[string]any{"error": msg})
		return
	}
	writeJSON(w, status, errorBody{Error: errCode, Message: msg})
}

// succeed acknowledges an intent; the new state itself arrives on the streams
func (h *Handler) succeed(w http.ResponseWriter, r *http.Request, payload any) {
	if isDatastarRequest(r) {
		sse := datastar.NewSSE(w, r)
		sse.MarshalAndPatchSignals(map[string]any{"error": "", "guess": ""})
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func isDatastarRequest(r *http.Request) bool {
	return r.Header.Get("Datastar-Request") == "true"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// renderToString renders a templ component to string
func renderToString(component templ.Component) string {
	buf := &bytes.Buffer{}
	component.Render(context.Background(), buf)
	return buf.String()
}

// viewFor builds what playerID sees of a snapshot
func (h *Handler) viewFor(snap *session.Snapshot, playerID string) components.RoomView {
	return components.RoomView{
		Room:       snap.Room,
		Players:    snap.Players,
		PlayerID:   playerID,
		MaxPlayers: h.cfg.Game.MaxPlayers,
		Now:        h.machine.Now(),
	}
}

// redactFor hides the keyword from the liar and the liar from everyone
// until the liar has been caught
func redactFor(room *game.Room, playerID string) *game.Room {
	out := room.Clone()
	switch out.Status {
	case game.StatusLiarGuess, game.StatusResult:
		if out.Status == game.StatusLiarGuess && playerID == out.LiarID {
			out.Keyword = ""
		}
	default:
		if playerID == out.LiarID {
			out.Keyword = ""
		}
		out.LiarID = ""
	}
	return out
}

// roomSignals is the reactive state the room page binds to
func roomSignals(v components.RoomView) map[string]any {
	room := redactFor(v.Room, v.PlayerID)
	return map[string]any{
		"status":      room.Status,
		"_strokes":    room.Strokes,
		"turnIndex":   room.CurrentTurnIndex,
		"turnEndTime": room.TurnEndTime,
		"secondsLeft": room.SecondsLeft(v.Now),
		"drawer":      room.CurrentDrawer(),
		"isDrawer":    v.IsDrawer(),
		"isHost":      v.IsHost(),
		"isLiar":      v.IsLiar(),
		"keyword":     room.Keyword,
		"playerCount": len(v.Players),
		"winner":      room.Winner,
		"reason":      room.Reason,
		"version":     room.Version,
	}
}

// inRoom reports whether playerID is on the roster of code
func inRoom(snap *session.Snapshot, playerID string) bool {
	return game.NewRoster(snap.Players).Has(playerID)
}
