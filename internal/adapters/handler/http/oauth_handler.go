package http

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vncsmyrnk/dashboard/internal/core/domain"
	"github.com/vncsmyrnk/dashboard/internal/core/ports"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 10 * time.Minute
)

// OAuthHandler runs the authorization-code flow for the configured identity
// providers.
type OAuthHandler struct {
	authService ports.AuthService
	providers   map[domain.Provider]ports.IdentityProvider
	cookies     SessionCookies
	errs        errorResponder
	redirectURL string
	logger      *slog.Logger
}

func NewOAuthHandler(authService ports.AuthService, providers []ports.IdentityProvider, cookies SessionCookies, redirectURL string, production bool, logger *slog.Logger) *OAuthHandler {
	byName := make(map[domain.Provider]ports.IdentityProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &OAuthHandler{
		authService: authService,
		providers:   byName,
		cookies:     cookies,
		errs:        errorResponder{production: production},
		redirectURL: redirectURL,
		logger:      logger,
	}
}

// Enabled reports whether provider can be used to sign in.
func (h *OAuthHandler) Enabled(provider domain.Provider) bool {
	_, ok := h.providers[provider]
	return ok
}

func (h *OAuthHandler) Begin(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.provider(r)
	if !ok {
		h.errs.respond(w, domain.ErrUnsupportedProvider)
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, h.stateCookie(state, int(oauthStateMaxAge/time.Second)))
	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
}

// Callback is reached by the provider redirecting the browser, so failures
// send the user back to the login page instead of answering with JSON.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.provider(r)
	if !ok {
		redirectSignInError(w, r, signInErrorCallback)
		return
	}

	state := r.URL.Query().Get("state")
	expected := cookieValue(r, oauthStateCookie)
	http.SetCookie(w, h.stateCookie("", -1))
	if state == "" || expected == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		redirectSignInError(w, r, signInErrorState)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		redirectSignInError(w, r, signInErrorCallback)
		return
	}

	profile, err := provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.WarnContext(r.Context(), "oauth exchange failed",
			slog.String("provider", string(provider.Name())), slog.Any("error", err))
		redirectSignInError(w, r, signInErrorCallback)
		return
	}

	result, err := h.authService.LoginWithProvider(r.Context(), *profile)
	if err != nil {
		h.logger.WarnContext(r.Context(), "oauth sign in failed",
			slog.String("provider", string(provider.Name())), slog.Any("error", err))
		redirectSignInError(w, r, signInErrorCode(err))
		return
	}

	h.cookies.Apply(w, result.Tokens)
	http.Redirect(w, r, h.redirectURL, http.StatusSeeOther)
}

func (h *OAuthHandler) provider(r *http.Request) (ports.IdentityProvider, bool) {
	name, ok := domain.ParseProvider(chi.URLParam(r, "provider"))
	if !ok {
		return nil, false
	}
	p, ok := h.providers[name]
	return p, ok
}

func (h *OAuthHandler) stateCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     oauthStateCookie,
		Value:    value,
		Path:     "/api/auth/oauth",
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// Error codes carried to the login page by failed browser sign-ins.
const (
	signInErrorState        = "OAuthState"
	signInErrorCallback     = "OAuthCallback"
	signInErrorAccessDenied = "AccessDenied"
	signInErrorConfig       = "Configuration"
)

var signInErrorMessages = map[string]string{
	signInErrorState:        "Sign in expired, please try again",
	signInErrorCallback:     "Could not sign in with that provider",
	signInErrorAccessDenied: "Access denied",
	signInErrorConfig:       "Sign in is not available right now",
}

func signInErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrConfig):
		return signInErrorConfig
	case errors.Is(err, domain.ErrUnauthorized):
		return signInErrorAccessDenied
	default:
		return signInErrorCallback
	}
}

// signInErrorMessage returns "" for codes it does not know.
func signInErrorMessage(code string) string {
	return signInErrorMessages[code]
}

func redirectSignInError(w http.ResponseWriter, r *http.Request, code string) {
	target := DefaultRouteRules().LoginPath + "?" + url.Values{"error": {code}}.Encode()
	http.Redirect(w, r, target, http.StatusSeeOther)
}
