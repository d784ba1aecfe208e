package identity

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ErrIdentity is returned when no identity could be issued
var ErrIdentity = errors.New("identity issuance failed")

// CookieName holds the anonymous per-device identity
const CookieName = "player_id"

// Provider issues an opaque, stable identity for the device behind a request
type Provider interface {
	// Identify returns the caller's identity, issuing one when it has none
	Identify(w http.ResponseWriter, r *http.Request) (string, error)
	// Peek returns the caller's identity without issuing one
	Peek(r *http.Request) (string, bool)
}

// CookieProvider keeps the identity in a long-lived HttpOnly cookie
type CookieProvider struct {
	MaxAge time.Duration
	Secure bool
	// NewID generates identities; uuid.NewRandom when nil
	NewID func() (uuid.UUID, error)
}

// NewCookieProvider creates a provider whose cookie lasts a year
func NewCookieProvider() *CookieProvider {
	return &CookieProvider{MaxAge: 365 * 24 * time.Hour}
}

// Identify implements Provider
func (p *CookieProvider) Identify(w http.ResponseWriter, r *http.Request) (string, error) {
	if id, ok := p.Peek(r); ok {
		return id, nil
	}

	newID := p.NewID
	if newID == nil {
		newID = uuid.NewRandom
	}
	id, err := newID()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIdentity, err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id.String(),
		Path:     "/",
		MaxAge:   int(p.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id.String(), nil
}

// Peek implements Provider
func (p *CookieProvider) Peek(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return "", false
	}
	return cookie.Value, true
}
