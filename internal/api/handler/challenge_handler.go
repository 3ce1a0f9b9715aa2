package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/harmonherring/CTF-API/internal/api/middleware"
	"github.com/harmonherring/CTF-API/internal/app/service"
	"github.com/harmonherring/CTF-API/internal/common"
	"github.com/harmonherring/CTF-API/internal/domain/model"
	"github.com/harmonherring/CTF-API/internal/platform/config"

	"github.com/go-chi/chi/v5"
)

type ChallengeHandler struct {
	challengeService *service.ChallengeService
	ledgerService    *service.LedgerService
}

func NewChallengeHandler(cs *service.ChallengeService, ls *service.LedgerService) *ChallengeHandler {
	return &ChallengeHandler{challengeService: cs, ledgerService: ls}
}

func (h *ChallengeHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/", h.listChallenges)
	r.Post("/", h.createChallenge)
	r.Get("/{challengeID}", h.getChallenge)
	r.Delete("/{challengeID}", h.deleteChallenge)

	r.Post("/{challengeID}/solve", h.attemptSolve)

	r.Get("/{challengeID}/tags", h.listTags)
	r.Post("/{challengeID}/tags/{tag}", h.addTag)
	r.Delete("/{challengeID}/tags/{tag}", h.removeTag)

	r.Get("/{challengeID}/flags", h.listFlags)
	r.Post("/{challengeID}/flags", h.createFlag)
	r.Delete("/{challengeID}/flags/{flagID}", h.deleteFlag)
	r.Get("/{challengeID}/solved/{flagID}", h.listSolvers)
}

func (h *ChallengeHandler) listChallenges(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsernameFromContext(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = config.AppConfig.ChallengePageSize
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	challenges, total, err := h.challengeService.ListChallenges(r.Context(), limit, offset, username)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	type PaginatedChallengesResponse struct {
		Challenges []model.ChallengeDetail `json:"challenges"`
		Total      int                     `json:"total"`
		Limit      int                     `json:"limit"`
		Offset     int                     `json:"offset"`
	}
	common.RespondWithJSON(w, http.StatusOK, PaginatedChallengesResponse{
		Challenges: challenges,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
	})
}

func (h *ChallengeHandler) createChallenge(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.GetUsernameFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.CreateChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	challenge, err := h.challengeService.CreateChallenge(r.Context(), username, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, challenge)
}

func (h *ChallengeHandler) getChallenge(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsernameFromContext(r.Context())
	challengeID := chi.URLParam(r, "challengeID")

	challenge, err := h.challengeService.GetChallenge(r.Context(), challengeID, username)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, challenge)
}

func (h *ChallengeHandler) deleteChallenge(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsernameFromContext(r.Context())
	groups, _ := middleware.GetGroupsFromContext(r.Context())
	challengeID := chi.URLParam(r, "challengeID")

	if err := h.challengeService.DeleteChallenge(r.Context(), challengeID, username, groups); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type solveRequest struct {
	Flag string `json:"flag"`
}

func (h *ChallengeHandler) attemptSolve(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.GetUsernameFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	challengeID := chi.URLParam(r, "challengeID")

	var req solveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	challenge, err := h.ledgerService.AttemptSolve(r.Context(), challengeID, req.Flag, username)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, challenge)
}

func (h *ChallengeHandler) listTags(w http.ResponseWriter, r *http.Request) {
	challengeID := chi.URLParam(r, "challengeID")

	tags, err := h.challengeService.GetTags(r.Context(), challengeID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, tags)
}

func (h *ChallengeHandler) addTag(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsernameFromContext(r.Context())
	groups, _ := middleware.GetGroupsFromContext(r.Context())
	challengeID := chi.URLParam(r, "challengeID")
	tag := chi.URLParam(r, "tag")

	created, err := h.challengeService.AddTag(r.Context(), challengeID, tag, username, groups)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, created)
}

func (h *ChallengeHandler) removeTag(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsernameFromContext(r.Context())
	groups, _ := middleware.GetGroupsFromContext(r.Context())
	challengeID := chi.URLParam(r, "challengeID")
	tag := chi.URLParam(r, "tag")

	if err := h.challengeService.RemoveTag(r.Context(), challengeID, tag, username, groups); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChallengeHandler) listFlags(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsernameFromContext(r.Context())
	challengeID := chi.URLParam(r, "challengeID")

	flags, err := h.ledgerService.ListFlags(r.Context(), challengeID, username)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, flags)
}

func (h *ChallengeHandler) createFlag(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsernameFromContext(r.Context())
	groups, _ := middleware.GetGroupsFromContext(r.Context())
	challengeID := chi.URLParam(r, "challengeID")

	var req service.CreateFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	flag, err := h.ledgerService.CreateFlag(r.Context(), challengeID, req, username, groups)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, flag)
}

func (h *ChallengeHandler) deleteFlag(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsernameFromContext(r.Context())
	groups, _ := middleware.GetGroupsFromContext(r.Context())
	challengeID := chi.URLParam(r, "challengeID")
	flagID := chi.URLParam(r, "flagID")

	if err := h.ledgerService.DeleteFlagCascade(r.Context(), challengeID, flagID, username, groups); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChallengeHandler) listSolvers(w http.ResponseWriter, r *http.Request) {
	flagID := chi.URLParam(r, "flagID")

	solvers, err := h.ledgerService.ListSolvers(r.Context(), flagID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, solvers)
}
