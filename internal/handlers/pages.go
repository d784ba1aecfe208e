package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"drawingliar/internal/game"
	"drawingliar/internal/views/pages"
)

// Home serves the create/join page; ?room=CODE pre-fills the join form
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	code := game.NormalizeRoomCode(r.URL.Query().Get("room"))
	if !game.ValidRoomCode(code, h.cfg.Game.RoomCodeLength) {
		code = ""
	}
	h.renderHome(w, r, http.StatusOK, pages.HomeData{RoomCode: code})
}

func (h *Handler) renderHome(w http.ResponseWriter, r *http.Request, status int, d pages.HomeData) {
	d.CodeLength = h.cfg.Game.RoomCodeLength
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.Home(d).Render(r.Context(), w); err != nil {
		h.log.Error().Err(err).Msg("failed to render home page")
	}
}

// CreateRoom creates a room hosted by the caller and redirects into it
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	playerID, err := h.identity.Identify(w, r)
	if err != nil {
		h.fail(w, r, "", err)
		return
	}

	name := r.FormValue("playerName")
	room, err := h.machine.CreateRoom(r.Context(), playerID, name)
	if err != nil {
		if game.IsValidation(err) {
			status, _ := statusFor(err)
			h.renderHome(w, r, status, pages.HomeData{PlayerName: name, Error: messageFor(err)})
			return
		}
		h.fail(w, r, "", err)
		return
	}

	h.runner.Ensure(room.Code)
	http.Redirect(w, r, "/room/"+room.Code, http.StatusSeeOther)
}

// JoinRoomPost joins the caller to an existing room
func (h *Handler) JoinRoomPost(w http.ResponseWriter, r *http.Request) {
	playerID, err := h.identity.Identify(w, r)
	if err != nil {
		h.fail(w, r, "", err)
		return
	}

	code := game.NormalizeRoomCode(r.FormValue("room_code"))
	name := r.FormValue("player_name")
	if _, err := h.machine.Join(r.Context(), code, playerID, name); err != nil {
		if game.IsValidation(err) {
			status, _ := statusFor(err)
			h.renderHome(w, r, status, pages.HomeData{RoomCode: code, PlayerName: name, Error: messageFor(err)})
			return
		}
		h.fail(w, r, code, err)
		return
	}

	h.runner.Ensure(code)
	http.Redirect(w, r, "/room/"+code, http.StatusSeeOther)
}

// RoomPage renders the game for members and the join form for everyone else
func (h *Handler) RoomPage(w http.ResponseWriter, r *http.Request) {
	code := game.NormalizeRoomCode(chi.URLParam(r, "code"))

	snap, err := h.machine.Snapshot(r.Context(), code)
	if err != nil {
		if game.IsValidation(err) {
			h.renderHome(w, r, http.StatusNotFound, pages.HomeData{Error: messageFor(err)})
			return
		}
		h.fail(w, r, code, err)
		return
	}

	playerID, ok := h.identity.Peek(r)
	if !ok || !inRoom(snap, playerID) {
		h.renderHome(w, r, http.StatusOK, pages.HomeData{RoomCode: code})
		return
	}

	h.runner.Ensure(code)

	view := h.viewFor(snap, playerID)
	signals := roomSignals(view)
	signals["_strokes"] = []game.Stroke{}
	signals["target"] = ""
	signals["guess"] = ""
	signals["error"] = ""
	signals["writeError"] = ""

	invite := h.inviteURL(r, code)
	qr, err := generateQRCode(invite)
	if err != nil {
		h.log.Warn().Err(err).Str("room", code).Msg("failed to generate invite QR code")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := pages.Room(pages.RoomData{View: view, Signals: signals, InviteURL: invite, QRCode: qr})
	if err := page.Render(r.Context(), w); err != nil {
		h.log.Error().Err(err).Str("room", code).Msg("failed to render room page")
	}
}

// LeaveRoom removes the caller from the room and sends them home
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	code := game.NormalizeRoomCode(chi.URLParam(r, "code"))
	playerID, ok := h.identity.Peek(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := h.machine.Leave(r.Context(), code, playerID); err != nil && !game.IsValidation(err) {
		h.fail(w, r, code, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
