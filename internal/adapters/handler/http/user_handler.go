package http

import (
	"net/http"

	"github.com/vncsmyrnk/dashboard/internal/core/domain"
	"github.com/vncsmyrnk/dashboard/internal/core/ports"
)

type UserHandler struct {
	service ports.UserService
	errs    errorResponder
}

func NewUserHandler(service ports.UserService, production bool) *UserHandler {
	return &UserHandler{
		service: service,
		errs:    errorResponder{production: production},
	}
}

// GetProfile returns the user the gatekeeper authenticated for this request.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.errs.respond(w, domain.ErrNotLoggedIn)
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		h.errs.respond(w, domain.ErrInvalidSession)
		return
	}

	user, err := h.service.GetByID(r.Context(), userID)
	if err != nil {
		h.errs.respond(w, err)
		return
	}

	respondOK(w, http.StatusOK, user.Public())
}
