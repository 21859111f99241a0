// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Carrier modes.
const (
	CarrierCookie = "cookie"
	CarrierHeader = "header"
)

// DefaultCookieName is the cookie holding the session token.
const DefaultCookieName = "auth-token"

// ErrTokenMissing is returned when a request carries no session token.
var ErrTokenMissing = oops.Code(CodeTokenMissing).Errorf("authentication token is missing")

// Carrier binds session tokens to HTTP requests and responses.
type Carrier interface {
	// Extract returns the raw token from the request, or an
	// AUTH_TOKEN_MISSING error.
	Extract(r *http.Request) (string, error)

	// Attach hands an issued token to the client.
	Attach(w http.ResponseWriter, token *IssuedToken)

	// Clear tells the client to discard its token.
	Clear(w http.ResponseWriter)

	// ExposesToken reports whether issued tokens belong in the response body.
	ExposesToken() bool
}

// CarrierConfig selects and configures a Carrier.
type CarrierConfig struct {
	Mode       string
	CookieName string
	MaxAge     time.Duration
	Secure     bool
	SameSite   string
}

// NewCarrier builds the carrier named by cfg.Mode.
func NewCarrier(cfg CarrierConfig) (Carrier, error) {
	switch cfg.Mode {
	case CarrierCookie, "":
		sameSite, err := parseSameSite(cfg.SameSite)
		if err != nil {
			return nil, err
		}
		name := cfg.CookieName
		if name == "" {
			name = DefaultCookieName
		}
		maxAge := cfg.MaxAge
		if maxAge <= 0 {
			maxAge = DefaultTokenTTL
		}
		return &CookieCarrier{
			Name:     name,
			MaxAge:   maxAge,
			Secure:   cfg.Secure,
			SameSite: sameSite,
		}, nil
	case CarrierHeader:
		return HeaderCarrier{}, nil
	default:
		return nil, oops.Code("AUTH_CONFIG_INVALID").
			With("carrier", cfg.Mode).
			Errorf("unknown session carrier %q", cfg.Mode)
	}
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(v) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, oops.Code("AUTH_CONFIG_INVALID").
			With("same_site", v).
			Errorf("unknown SameSite mode %q", v)
	}
}

// CookieCarrier stores the token in an HttpOnly cookie scoped to "/".
type CookieCarrier struct {
	Name     string
	MaxAge   time.Duration
	Secure   bool
	SameSite http.SameSite
}

// Extract reads the session cookie.
func (c *CookieCarrier) Extract(r *http.Request) (string, error) {
	cookie, err := r.Cookie(c.Name)
	if err != nil || cookie.Value == "" {
		return "", ErrTokenMissing
	}
	return cookie.Value, nil
}

// Attach sets the session cookie.
func (c *CookieCarrier) Attach(w http.ResponseWriter, token *IssuedToken) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token.Value,
		Path:     "/",
		MaxAge:   int(c.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// Clear overwrites the session cookie with an expired one.
func (c *CookieCarrier) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// ExposesToken is false: the cookie is the only copy the client gets.
func (c *CookieCarrier) ExposesToken() bool { return false }

// HeaderCarrier reads "Authorization: Bearer <token>". It never sets cookies;
// clients receive the token in the response body and discard it themselves.
type HeaderCarrier struct{}

// Extract parses the Authorization header.
func (HeaderCarrier) Extract(r *http.Request) (string, error) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrTokenMissing
	}
	return parts[1], nil
}

// Attach is a no-op.
func (HeaderCarrier) Attach(http.ResponseWriter, *IssuedToken) {}

// Clear is a no-op.
func (HeaderCarrier) Clear(http.ResponseWriter) {}

// ExposesToken is true.
func (HeaderCarrier) ExposesToken() bool { return true }
