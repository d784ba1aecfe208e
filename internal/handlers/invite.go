package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"

	"drawingliar/internal/game"
)

// InviteResponse is returned by the invite endpoint
type InviteResponse struct {
	Code   string `json:"code"`
	URL    string `json:"url"`
	QRCode string `json:"qrCode"` // base64 PNG
}

// Invite returns the shareable join link of a room and its QR code
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	code := game.NormalizeRoomCode(chi.URLParam(r, "code"))
	if _, err := h.machine.Snapshot(r.Context(), code); err != nil {
		h.fail(w, r, code, err)
		return
	}

	link := h.inviteURL(r, code)
	qr, err := generateQRCode(link)
	if err != nil {
		h.log.Warn().Err(err).Str("room", code).Msg("failed to generate invite QR code")
	}
	writeJSON(w, http.StatusOK, InviteResponse{Code: code, URL: link, QRCode: qr})
}

// inviteURL builds {base}/?room={code}
func (h *Handler) inviteURL(r *http.Request, code string) string {
	base := strings.TrimRight(h.cfg.Server.BaseURL, "/")
	if base == "" {
		base = getBaseURL(r)
	}
	return base + "/?room=" + url.QueryEscape(code)
}

// generateQRCode generates a QR code for the given URL and returns it as base64 encoded PNG
func generateQRCode(link string) (string, error) {
	qrc, err := qrcode.NewWith(link,
		qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionMedium),
		qrcode.WithEncodingMode(qrcode.EncModeByte),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}

	// the standard writer only writes to a path
	tmp, err := os.CreateTemp("", "invite-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	wr, err := standard.New(path,
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
		standard.WithQRWidth(6),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create writer: %w", err)
	}

	if err := qrc.Save(wr); err != nil {
		return "", fmt.Errorf("failed to save QR code: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read QR code file: %w", err)
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

// getBaseURL constructs the base URL from the request
func getBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	host := r.Host
	if forwardedHost := r.Header.Get("X-Forwarded-Host"); forwardedHost != "" {
		host = forwardedHost
	}

	return fmt.Sprintf("%s://%s", scheme, host)
}
