package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	datastar "github.com/starfederation/datastar-go/datastar"

	"drawingliar/internal/game"
	"drawingliar/internal/session"
)

// intentSignals is the union of every intent body. Datastar posts all of the
// page's signals, so unknown fields are ignored.
type intentSignals struct {
	Target    string       `json:"target"`
	Guess     string       `json:"guess"`
	Color     string       `json:"color"`
	LineWidth float64      `json:"lineWidth"`
	Points    []game.Point `json:"points"`
}

// intent resolves the room code and the caller and decodes the body
func (h *Handler) intent(w http.ResponseWriter, r *http.Request) (code, playerID string, signals intentSignals, ok bool) {
	code = game.NormalizeRoomCode(chi.URLParam(r, "code"))

	playerID, known := h.identity.Peek(r)
	if !known {
		h.fail(w, r, code, game.ErrNotInRoom)
		return "", "", signals, false
	}

	if r.ContentLength != 0 {
		if err := datastar.ReadSignals(r, &signals); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_body", Message: "request body is not valid JSON"})
			return "", "", signals, false
		}
	}

	h.runner.Ensure(code)
	return code, playerID, signals, true
}

// RoomState returns the caller's view of the room and its roster
func (h *Handler) RoomState(w http.ResponseWriter, r *http.Request) {
	code := game.NormalizeRoomCode(chi.URLParam(r, "code"))
	snap, err := h.machine.Snapshot(r.Context(), code)
	if err != nil {
		h.fail(w, r, code, err)
		return
	}

	playerID, _ := h.identity.Peek(r)
	writeJSON(w, http.StatusOK, session.Snapshot{Room: redactFor(snap.Room, playerID), Players: snap.Players})
}

// StartGame starts the game; host only
func (h *Handler) StartGame(w http.ResponseWriter, r *http.Request) {
	code, playerID, _, ok := h.intent(w, r)
	if !ok {
		return
	}
	room, err := h.machine.Start(r.Context(), code, playerID)
	if err != nil {
		h.fail(w, r, code, err)
		return
	}
	h.succeed(w, r, redactFor(room, playerID))
}

// SubmitStroke appends one stroke for the current drawer
func (h *Handler) SubmitStroke(w http.ResponseWriter, r *http.Request) {
	code, playerID, signals, ok := h.intent(w, r)
	if !ok {
		return
	}
	if !h.strokeLimiter.Allow(code + ":" + playerID) {
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate_limited", Message: "drawing too fast"})
		return
	}

	stroke := game.Stroke{Color: signals.Color, LineWidth: signals.LineWidth, Points: signals.Points}
	appended, err := h.machine.SubmitStroke(r.Context(), code, playerID, stroke)
	if err != nil {
		h.fail(w, r, code, err)
		return
	}
	h.succeed(w, r, appended)
}

// ClearCanvas empties the canvas; host or current drawer
func (h *Handler) ClearCanvas(w http.ResponseWriter, r *http.Request) {
	code, playerID, _, ok := h.intent(w, r)
	if !ok {
		return
	}
	room, err := h.machine.ClearCanvas(r.Context(), code, playerID)
	if err != nil {
		h.fail(w, r, code, err)
		return
	}
	h.succeed(w, r, redactFor(room, playerID))
}

// CastVote records the caller's accusation
func (h *Handler) CastVote(w http.ResponseWriter, r *http.Request) {
	code, playerID, signals, ok := h.intent(w, r)
	if !ok {
		return
	}
	room, err := h.machine.CastVote(r.Context(), code, playerID, signals.Target)
	if err != nil {
		h.fail(w, r, code, err)
		return
	}
	h.succeed(w, r, redactFor(room, playerID))
}

// SubmitGuess resolves the liar's guess
func (h *Handler) SubmitGuess(w http.ResponseWriter, r *http.Request) {
	code, playerID, signals, ok := h.intent(w, r)
	if !ok {
		return
	}
	room, err := h.machine.SubmitGuess(r.Context(), code, playerID, signals.Guess)
	if err != nil {
		h.fail(w, r, code, err)
		return
	}
	h.succeed(w, r, redactFor(room, playerID))
}

// ResetGame sends a finished room back to the lobby; host only
func (h *Handler) ResetGame(w http.ResponseWriter, r *http.Request) {
	code, playerID, _, ok := h.intent(w, r)
	if !ok {
		return
	}
	room, err := h.machine.Reset(r.Context(), code, playerID)
	if err != nil {
		h.fail(w, r, code, err)
		return
	}
	h.succeed(w, r, redactFor(room, playerID))
}

// Heartbeat keeps the caller on the roster
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	code, playerID, _, ok := h.intent(w, r)
	if !ok {
		return
	}
	if err := h.machine.Heartbeat(r.Context(), code, playerID); err != nil {
		h.fail(w, r, code, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
