package http

import (
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/vncsmyrnk/dashboard/internal/core/domain"
	"github.com/vncsmyrnk/dashboard/internal/core/ports"
)

//go:embed web/templates/*.html
var templateFS embed.FS

//go:embed web/static
var staticFS embed.FS

type pageData struct {
	Title         string
	Session       domain.Session
	GoogleEnabled bool
	GitHubEnabled bool
	Error         string
}

// PageHandler renders the dashboard shell and the sign-in pages.
type PageHandler struct {
	users     ports.UserService
	cookies   SessionCookies
	templates *template.Template
	oauth     *OAuthHandler
	loginPath string
	logger    *slog.Logger
}

func NewPageHandler(users ports.UserService, cookies SessionCookies, oauth *OAuthHandler, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		users:     users,
		cookies:   cookies,
		templates: template.Must(template.ParseFS(templateFS, "web/templates/*.html")),
		oauth:     oauth,
		loginPath: DefaultRouteRules().LoginPath,
		logger:    logger,
	}
}

func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if errors.Is(err, domain.ErrNotFound) {
		// The token outlived its user.
		h.cookies.Clear(w)
		http.Redirect(w, r, h.loginPath, http.StatusTemporaryRedirect)
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to load dashboard user", slog.Any("error", err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var session domain.Session
	public := user.Public()
	session.SetSession(&public, "")
	h.render(w, r, "dashboard.html", pageData{Title: "Dashboard", Session: session})
}

func (h *PageHandler) currentUser(r *http.Request) (*domain.User, error) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return h.users.GetByID(r.Context(), userID)
}

func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	data := h.authPageData("Sign in")
	data.Error = signInErrorMessage(r.URL.Query().Get("error"))
	h.render(w, r, "login.html", data)
}

func (h *PageHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "register.html", h.authPageData("Create account"))
}

func (h *PageHandler) Static() http.Handler {
	sub, err := fs.Sub(staticFS, "web/static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func (h *PageHandler) authPageData(title string) pageData {
	data := pageData{Title: title}
	if h.oauth != nil {
		data.GoogleEnabled = h.oauth.Enabled(domain.ProviderGoogle)
		data.GitHubEnabled = h.oauth.Enabled(domain.ProviderGitHub)
	}
	return data
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page", slog.String("page", name), slog.Any("error", err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}
