package http

import (
	"net/http"
	"time"

	"github.com/vncsmyrnk/dashboard/internal/core/domain"
)

const (
	DefaultAccessCookieName  = "client_token"
	DefaultRefreshCookieName = "client_refresh_token"
)

// SessionCookies writes and reads the access and refresh token cookies.
// Both are httpOnly, SameSite=Lax and scoped to the whole site.
type SessionCookies struct {
	AccessName    string
	RefreshName   string
	Domain        string
	Secure        bool
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

func NewSessionCookies(domainName string, secure bool, accessTTL, refreshTTL time.Duration) SessionCookies {
	return SessionCookies{
		AccessName:    DefaultAccessCookieName,
		RefreshName:   DefaultRefreshCookieName,
		Domain:        domainName,
		Secure:        secure,
		AccessMaxAge:  accessTTL,
		RefreshMaxAge: refreshTTL,
	}
}

// Apply sets both session cookies from a freshly issued token pair.
func (c SessionCookies) Apply(w http.ResponseWriter, tokens *domain.IssuedTokens) {
	http.SetCookie(w, c.cookie(c.AccessName, tokens.AccessToken, int(c.AccessMaxAge/time.Second)))
	http.SetCookie(w, c.cookie(c.RefreshName, tokens.RefreshToken, int(c.RefreshMaxAge/time.Second)))
}

// Clear expires both session cookies.
func (c SessionCookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(c.AccessName, "", -1))
	http.SetCookie(w, c.cookie(c.RefreshName, "", -1))
}

func (c SessionCookies) AccessToken(r *http.Request) string {
	return cookieValue(r, c.AccessName)
}

func (c SessionCookies) RefreshToken(r *http.Request) string {
	return cookieValue(r, c.RefreshName)
}

// IsSessionCookie reports whether name is one of the two session cookies.
func (c SessionCookies) IsSessionCookie(name string) bool {
	return name == c.AccessName || name == c.RefreshName
}

func (c SessionCookies) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
