package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/vncsmyrnk/dashboard/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	cookies     SessionCookies
	errs        errorResponder
	redirectURL string
	logger      *slog.Logger
}

func NewAuthHandler(authService ports.AuthService, cookies SessionCookies, redirectURL string, production bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
		errs:        errorResponder{production: production},
		redirectURL: redirectURL,
		logger:      logger,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.authService.Register(r.Context(), ports.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.errs.respond(w, err)
		return
	}

	public := user.Public()
	respondOK(w, http.StatusCreated, registerResponse{ID: public.ID, Email: public.Email})
}

// Login checks an email and password and starts a session. The access token
// is returned in the body as well as in its cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errs.respond(w, err)
		return
	}

	h.cookies.Apply(w, result.Tokens)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    result.User.Public(),
		Token:   result.Tokens.AccessToken,
	})
}

// Logout always succeeds for the client: cookies are cleared even when the
// stored refresh token could not be.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), h.cookies.RefreshToken(r)); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to clear refresh token on logout", slog.Any("error", err))
	}

	h.cookies.Clear(w)
	respondMessage(w, http.StatusOK, "Logged out")
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	accessToken := h.cookies.AccessToken(r)
	user, err := h.authService.CurrentUser(r.Context(), accessToken)
	if err != nil {
		h.errs.respond(w, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    user.Public(),
		Token:   accessToken,
	})
}

// Refresh exchanges the refresh token cookie for a new token pair. A failed
// refresh clears both cookies so the browser stops replaying a dead token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.authService.Refresh(r.Context(), h.cookies.RefreshToken(r))
	if err != nil {
		h.cookies.Clear(w)
		h.errs.respond(w, err)
		return
	}

	h.cookies.Apply(w, result.Tokens)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    result.User.Public(),
		Token:   result.Tokens.AccessToken,
	})
}

// GoogleCallback receives a Google Identity Services credential posted as a
// form field and signs the user in.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectSignInError(w, r, signInErrorCallback)
		return
	}

	result, err := h.authService.LoginWithGoogle(r.Context(), r.FormValue("credential"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "google sign in failed", slog.Any("error", err))
		redirectSignInError(w, r, signInErrorCode(err))
		return
	}

	h.cookies.Apply(w, result.Tokens)
	http.Redirect(w, r, h.redirectURL, http.StatusSeeOther)
}
