package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vncsmyrnk/dashboard/internal/core/domain"
	"github.com/vncsmyrnk/dashboard/internal/core/ports"
)

// DefaultRefreshTimeout bounds the silent refresh attempted for a request.
const DefaultRefreshTimeout = 3 * time.Second

// SessionState is how the gatekeeper classified a request.
type SessionState int

const (
	StatePublic SessionState = iota
	StateAuthenticatedDirect
	StateAuthenticatedViaRefresh
	StateUnauthenticated
)

func (s SessionState) String() string {
	switch s {
	case StatePublic:
		return "public"
	case StateAuthenticatedDirect:
		return "authenticated_direct"
	case StateAuthenticatedViaRefresh:
		return "authenticated_via_refresh"
	case StateUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

func (s SessionState) Authenticated() bool {
	return s == StateAuthenticatedDirect || s == StateAuthenticatedViaRefresh
}

// RouteRules tells the gatekeeper which paths need a session.
type RouteRules struct {
	// PublicPaths match exactly, PublicPrefixes match by prefix.
	PublicPaths    []string
	PublicPrefixes []string
	// AuthPages are public pages a signed-in user is sent away from.
	AuthPages []string

	APIPrefix   string
	RefreshPath string
	LoginPath   string
	HomePath    string
}

func DefaultRouteRules() RouteRules {
	return RouteRules{
		PublicPaths:    []string{"/login", "/register", "/healthz", "/favicon.ico"},
		PublicPrefixes: []string{"/static/", "/api/auth/"},
		AuthPages:      []string{"/login", "/register"},
		APIPrefix:      "/api/",
		RefreshPath:    "/api/auth/refresh",
		LoginPath:      "/login",
		HomePath:       "/",
	}
}

func (rr RouteRules) IsPublic(path string) bool {
	for _, p := range rr.PublicPaths {
		if path == p {
			return true
		}
	}
	for _, p := range rr.PublicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func (rr RouteRules) IsAuthPage(path string) bool {
	for _, p := range rr.AuthPages {
		if path == p {
			return true
		}
	}
	return false
}

func (rr RouteRules) IsAPI(path string) bool {
	return strings.HasPrefix(path, rr.APIPrefix)
}

// Gatekeeper authenticates every request before it reaches a route. It reads
// the session cookies and, when the access token is missing or stale, tries
// a silent refresh. It never writes to the user directory itself.
type Gatekeeper struct {
	rules     RouteRules
	cookies   SessionCookies
	codec     ports.TokenCodec
	refresher SessionRefresher
	timeout   time.Duration
	errs      errorResponder
	logger    *slog.Logger
}

type GatekeeperConfig struct {
	Rules      RouteRules
	Cookies    SessionCookies
	Codec      ports.TokenCodec
	Refresher  SessionRefresher
	Timeout    time.Duration
	Production bool
	Logger     *slog.Logger
}

func NewGatekeeper(cfg GatekeeperConfig) *Gatekeeper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRefreshTimeout
	}
	return &Gatekeeper{
		rules:     cfg.Rules,
		cookies:   cfg.Cookies,
		codec:     cfg.Codec,
		refresher: cfg.Refresher,
		timeout:   cfg.Timeout,
		errs:      errorResponder{production: cfg.Production},
		logger:    cfg.Logger,
	}
}

func (g *Gatekeeper) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		public := g.rules.IsPublic(path)
		authPage := g.rules.IsAuthPage(path)

		if !g.codec.Configured() {
			if public {
				next.ServeHTTP(w, withState(r, StatePublic, nil))
				return
			}
			g.logger.ErrorContext(r.Context(), "JWT secret is not configured")
			if g.rules.IsAPI(path) {
				g.errs.respond(w, domain.ErrMissingSecret)
			} else {
				http.Error(w, "Server configuration error", http.StatusInternalServerError)
			}
			return
		}

		state := StateUnauthenticated
		claims, ok := g.codec.VerifyAccessToken(g.cookies.AccessToken(r))
		if ok {
			state = StateAuthenticatedDirect
		}

		var refreshed []*http.Cookie
		if !ok && g.cookies.RefreshToken(r) != "" && (!public || authPage) && path != g.rules.RefreshPath {
			claims, refreshed = g.silentRefresh(r)
			if claims != nil {
				state = StateAuthenticatedViaRefresh
			}
		}

		for _, c := range refreshed {
			http.SetCookie(w, c)
		}
		if state == StateAuthenticatedViaRefresh {
			r = withRefreshedCookies(r, refreshed, g.cookies)
		}

		if authPage && state.Authenticated() {
			http.Redirect(w, r, g.rules.HomePath, http.StatusTemporaryRedirect)
			return
		}

		if !public && !state.Authenticated() {
			if g.rules.IsAPI(path) {
				respondError(w, http.StatusUnauthorized, "Unauthorized")
			} else {
				http.Redirect(w, r, g.rules.LoginPath, http.StatusTemporaryRedirect)
			}
			return
		}

		if public && !state.Authenticated() {
			state = StatePublic
		}
		next.ServeHTTP(w, withState(r, state, claims))
	})
}

// silentRefresh asks the refresher for a new token pair. It returns the
// claims of the new access token, or nil when the refresh failed, along with
// every session cookie the refresh produced.
func (g *Gatekeeper) silentRefresh(r *http.Request) (*domain.AccessClaims, []*http.Cookie) {
	ctx, cancel := context.WithTimeout(r.Context(), g.timeout)
	defer cancel()

	outcome, err := g.refresher.Refresh(ctx, r)
	if err != nil {
		g.logger.WarnContext(r.Context(), "silent refresh failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		return nil, nil
	}

	var cookies []*http.Cookie
	for _, c := range outcome.Cookies {
		if g.cookies.IsSessionCookie(c.Name) {
			cookies = append(cookies, c)
		}
	}

	if outcome.StatusCode < 200 || outcome.StatusCode > 299 {
		g.logger.DebugContext(r.Context(), "silent refresh rejected",
			slog.String("path", r.URL.Path), slog.Int("status", outcome.StatusCode))
		return nil, cookies
	}

	claims, ok := g.codec.VerifyAccessToken(liveCookieValue(cookies, g.cookies.AccessName))
	if !ok {
		return nil, cookies
	}
	return claims, cookies
}

// withRefreshedCookies rewrites the request's Cookie header so route
// handlers see the refreshed session instead of the stale one.
func withRefreshedCookies(r *http.Request, refreshed []*http.Cookie, sc SessionCookies) *http.Request {
	r = r.Clone(r.Context())
	original := r.Cookies()
	r.Header.Del("Cookie")

	for _, c := range original {
		if !sc.IsSessionCookie(c.Name) {
			r.AddCookie(c)
		}
	}
	for _, name := range []string{sc.AccessName, sc.RefreshName} {
		if v := liveCookieValue(refreshed, name); v != "" {
			r.AddCookie(&http.Cookie{Name: name, Value: v})
		}
	}
	return r
}

func liveCookieValue(cookies []*http.Cookie, name string) string {
	for _, c := range cookies {
		if c.Name == name && c.MaxAge >= 0 && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

type contextKey int

const (
	stateKey contextKey = iota
	claimsKey
)

func withState(r *http.Request, state SessionState, claims *domain.AccessClaims) *http.Request {
	ctx := context.WithValue(r.Context(), stateKey, state)
	if claims != nil {
		ctx = context.WithValue(ctx, claimsKey, claims)
	}
	return r.WithContext(ctx)
}

// StateFromContext returns the gatekeeper's classification of the request.
func StateFromContext(ctx context.Context) SessionState {
	state, ok := ctx.Value(stateKey).(SessionState)
	if !ok {
		return StateUnauthenticated
	}
	return state
}

// ClaimsFromContext returns the access token claims of an authenticated
// request.
func ClaimsFromContext(ctx context.Context) (*domain.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*domain.AccessClaims)
	return claims, ok
}
