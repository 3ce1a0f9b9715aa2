package handler

import (
	"net/http"

	"github.com/harmonherring/CTF-API/internal/api/middleware"
	"github.com/harmonherring/CTF-API/internal/common"
	"github.com/harmonherring/CTF-API/internal/common/security"
	"github.com/harmonherring/CTF-API/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/", h.getUser)
}

// getUser returns the identity resolved from the bearer token.
func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.GetUsernameFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	groups, _ := middleware.GetGroupsFromContext(r.Context())

	common.RespondWithJSON(w, http.StatusOK, model.Userinfo{
		Username: username,
		Groups:   groups,
		Admin:    security.IsAdmin(groups),
	})
}
