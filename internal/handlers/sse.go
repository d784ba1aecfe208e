package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	datastar "github.com/starfederation/datastar-go/datastar"

	"drawingliar/internal/game"
	"drawingliar/internal/session"
	"drawingliar/internal/store"
	"drawingliar/internal/views/components"
)

// StreamRoom streams room snapshots to one player as datastar signal and
// element patches. While the stream is open it heartbeats for the player.
func (h *Handler) StreamRoom(w http.ResponseWriter, r *http.Request) {
	code := game.NormalizeRoomCode(chi.URLParam(r, "code"))
	ctx := r.Context()

	playerID, ok := h.identity.Peek(r)
	if !ok {
		http.Error(w, "Not in room", http.StatusUnauthorized)
		return
	}

	rooms, err := h.store.Subscribe(ctx, code)
	if err != nil {
		h.fail(w, r, code, subscribeErr(err))
		return
	}
	rosters, err := h.store.SubscribePlayers(ctx, code)
	if err != nil {
		h.fail(w, r, code, subscribeErr(err))
		return
	}

	// both subscriptions deliver the current state first
	snap := &session.Snapshot{}
	select {
	case snap.Room = <-rooms:
	case <-ctx.Done():
		return
	}
	select {
	case snap.Players = <-rosters:
	case <-ctx.Done():
		return
	}
	if snap.Room == nil || !inRoom(snap, playerID) {
		http.Error(w, "Not in room", http.StatusForbidden)
		return
	}

	h.runner.Ensure(code)
	if err := h.machine.Heartbeat(ctx, code, playerID); err != nil {
		h.log.Debug().Err(err).Str("room", code).Msg("initial heartbeat failed")
	}

	events := h.eventBus.Subscribe(code)
	defer h.eventBus.Unsubscribe(code, events)

	sse := datastar.NewSSE(w, r)
	h.log.Debug().Str("room", code).Str("player", playerID).Msg("room stream opened")
	defer h.log.Debug().Str("room", code).Str("player", playerID).Msg("room stream closed")

	if err := h.pushRoom(sse, h.viewFor(snap, playerID)); err != nil {
		return
	}

	heartbeat := time.NewTicker(h.cfg.Game.HeartbeatInterval)
	defer heartbeat.Stop()
	clock := time.NewTicker(time.Second)
	defer clock.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case room, ok := <-rooms:
			if !ok {
				return
			}
			snap.Room = room
			if err := h.pushRoom(sse, h.viewFor(snap, playerID)); err != nil {
				return
			}

		case players, ok := <-rosters:
			if !ok {
				return
			}
			snap.Players = players
			if !inRoom(snap, playerID) {
				// left or evicted; back to the join form
				sse.ExecuteScript("window.location.href = '/?room=" + url.QueryEscape(code) + "'")
				return
			}
			if err := h.pushRoom(sse, h.viewFor(snap, playerID)); err != nil {
				return
			}

		case <-heartbeat.C:
			if err := h.machine.Heartbeat(ctx, code, playerID); err != nil && !game.IsValidation(err) {
				h.log.Warn().Err(err).Str("room", code).Str("player", playerID).Msg("stream heartbeat failed")
			}

		case <-clock.C:
			if snap.Room.Status != game.StatusPlaying {
				continue
			}
			if err := sse.MarshalAndPatchSignals(map[string]any{"secondsLeft": snap.Room.SecondsLeft(h.machine.Now())}); err != nil {
				return
			}

		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Type == EventWriteFailed {
				if err := sse.MarshalAndPatchSignals(map[string]any{"writeError": event.Message}); err != nil {
					return
				}
			}
		}
	}
}

// pushRoom sends the signals and the re-rendered fragments of one view
func (h *Handler) pushRoom(sse *datastar.ServerSentEventGenerator, view components.RoomView) error {
	signals := roomSignals(view)
	signals["writeError"] = ""
	if err := sse.MarshalAndPatchSignals(signals); err != nil {
		return err
	}
	if err := sse.PatchElements(renderToString(components.Status(view)),
		datastar.WithSelector("#room-status")); err != nil {
		return err
	}
	return sse.PatchElements(renderToString(components.PlayerList(view)),
		datastar.WithSelector("#player-list"))
}

// subscribeErr translates errors from opening a store subscription
func subscribeErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return game.ErrRoomNotFound
	}
	return err
}
