package handler

import (
	"encoding/json"
	"net/http"

	"github.com/harmonherring/CTF-API/internal/api/middleware"
	"github.com/harmonherring/CTF-API/internal/app/service"
	"github.com/harmonherring/CTF-API/internal/common"

	"github.com/go-chi/chi/v5"
)

type HintHandler struct {
	ledgerService *service.LedgerService
}

func NewHintHandler(ls *service.LedgerService) *HintHandler {
	return &HintHandler{ledgerService: ls}
}

// RegisterFlagRoutes mounts the hint collection under /flags/{flagID}.
func (h *HintHandler) RegisterFlagRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/{flagID}/hints", h.listHints)
	r.Post("/{flagID}/hints", h.createHint)
}

// RegisterHintRoutes mounts single-hint operations under /hints.
func (h *HintHandler) RegisterHintRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Delete("/{hintID}", h.deleteHint)
	r.Post("/{hintID}/purchase", h.purchaseHint)
}

func (h *HintHandler) listHints(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsernameFromContext(r.Context())
	flagID := chi.URLParam(r, "flagID")

	hints, err := h.ledgerService.ListHints(r.Context(), flagID, username)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, hints)
}

func (h *HintHandler) createHint(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsernameFromContext(r.Context())
	groups, _ := middleware.GetGroupsFromContext(r.Context())
	flagID := chi.URLParam(r, "flagID")

	var req service.CreateHintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	hint, err := h.ledgerService.CreateHint(r.Context(), flagID, req, username, groups)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, hint)
}

func (h *HintHandler) deleteHint(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsernameFromContext(r.Context())
	groups, _ := middleware.GetGroupsFromContext(r.Context())
	hintID := chi.URLParam(r, "hintID")

	if err := h.ledgerService.DeleteHintCascade(r.Context(), hintID, username, groups); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HintHandler) purchaseHint(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.GetUsernameFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	hintID := chi.URLParam(r, "hintID")

	hint, err := h.ledgerService.PurchaseHint(r.Context(), hintID, username)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, hint)
}
