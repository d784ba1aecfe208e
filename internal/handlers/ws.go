package handlers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"drawingliar/internal/game"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsReadLimit  = 256 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts requests without an Origin header (non-browser clients)
// and browser requests from this host
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// wsMessage is one frame in either direction
type wsMessage struct {
	Type    string         `json:"type"`
	Room    *game.Room     `json:"room,omitempty"`
	Players []*game.Player `json:"players,omitempty"`
	Stroke  *game.Stroke   `json:"stroke,omitempty"`
	Error   string         `json:"error,omitempty"`
	Message string         `json:"message,omitempty"`
}

// StreamRoomWS streams JSON snapshots over a WebSocket and accepts stroke and
// heartbeat frames from the client
func (h *Handler) StreamRoomWS(w http.ResponseWriter, r *http.Request) {
	code := game.NormalizeRoomCode(chi.URLParam(r, "code"))

	playerID, ok := h.identity.Peek(r)
	if !ok {
		http.Error(w, "Not in room", http.StatusUnauthorized)
		return
	}
	snap, err := h.machine.Snapshot(r.Context(), code)
	if err != nil {
		h.fail(w, r, code, err)
		return
	}
	if !inRoom(snap, playerID) {
		http.Error(w, "Not in room", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("room", code).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// the hijacked request context is not cancelled when the socket drops
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rooms, err := h.store.Subscribe(ctx, code)
	if err != nil {
		return
	}
	rosters, err := h.store.SubscribePlayers(ctx, code)
	if err != nil {
		return
	}
	events := h.eventBus.Subscribe(code)
	defer h.eventBus.Unsubscribe(code, events)

	h.runner.Ensure(code)
	h.log.Debug().Str("room", code).Str("player", playerID).Msg("websocket opened")

	replies := make(chan wsMessage, 16)
	go h.readWS(ctx, cancel, conn, code, playerID, replies)

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	heartbeat := time.NewTicker(h.cfg.Game.HeartbeatInterval)
	defer heartbeat.Stop()

	send := func(msg wsMessage) bool {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(msg) == nil
	}

	for {
		var msg wsMessage
		select {
		case <-ctx.Done():
			return
		case room, ok := <-rooms:
			if !ok {
				return
			}
			msg = wsMessage{Type: "room", Room: redactFor(room, playerID)}
		case players, ok := <-rosters:
			if !ok {
				return
			}
			if !game.NewRoster(players).Has(playerID) {
				send(wsMessage{Type: "removed"})
				return
			}
			msg = wsMessage{Type: "players", Players: players}
		case reply := <-replies:
			msg = reply
		case event, ok := <-events:
			if !ok {
				return
			}
			msg = wsMessage{Type: "error", Error: event.Type, Message: event.Message}
		case <-heartbeat.C:
			if err := h.machine.Heartbeat(ctx, code, playerID); err != nil && !game.IsValidation(err) {
				h.log.Warn().Err(err).Str("room", code).Msg("websocket heartbeat failed")
			}
			continue
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		}

		if !send(msg) {
			return
		}
	}
}

// readWS handles client frames until the socket fails
func (h *Handler) readWS(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, code, playerID string, replies chan<- wsMessage) {
	defer cancel()

	conn.SetReadLimit(wsReadLimit)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var in wsMessage
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Str("room", code).Msg("websocket closed unexpectedly")
			}
			return
		}

		var reply wsMessage
		switch in.Type {
		case "heartbeat":
			if err := h.machine.Heartbeat(ctx, code, playerID); err != nil {
				reply = wsFailure(err)
			}
		case "stroke":
			if in.Stroke == nil {
				reply = wsMessage{Type: "error", Error: "invalid_body", Message: "stroke missing"}
				break
			}
			if !h.strokeLimiter.Allow(code + ":" + playerID) {
				reply = wsMessage{Type: "error", Error: "rate_limited", Message: "drawing too fast"}
				break
			}
			stroke := game.Stroke{Color: in.Stroke.Color, LineWidth: in.Stroke.LineWidth, Points: in.Stroke.Points}
			if _, err := h.machine.SubmitStroke(ctx, code, playerID, stroke); err != nil {
				if game.IsWriteFailure(err) {
					h.eventBus.Publish(Event{Type: EventWriteFailed, RoomCode: code, Message: messageFor(err)})
				}
				reply = wsFailure(err)
			}
		default:
			reply = wsMessage{Type: "error", Error: "unknown_type", Message: "unsupported message type"}
		}

		if reply.Type == "" {
			continue
		}
		select {
		case replies <- reply:
		case <-ctx.Done():
			return
		}
	}
}

func wsFailure(err error) wsMessage {
	_, code := statusFor(err)
	return wsMessage{Type: "error", Error: code, Message: messageFor(err)}
}
