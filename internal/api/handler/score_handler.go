package handler

import (
	"net/http"
	"strconv"

	"github.com/harmonherring/CTF-API/internal/api/middleware"
	"github.com/harmonherring/CTF-API/internal/app/service"
	"github.com/harmonherring/CTF-API/internal/common"

	"github.com/go-chi/chi/v5"
)

type ScoreHandler struct {
	scoreService *service.ScoreService
}

func NewScoreHandler(ss *service.ScoreService) *ScoreHandler {
	return &ScoreHandler{scoreService: ss}
}

func (h *ScoreHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/", h.getScoreboard)
	r.Get("/{username}", h.getUserScore)
}

func (h *ScoreHandler) getScoreboard(w http.ResponseWriter, r *http.Request) {
	after, err := service.ParseScoreBound(r.URL.Query().Get("after"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	before, err := service.ParseScoreBound(r.URL.Query().Get("before"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.scoreService.Scoreboard(r.Context(), after, before, limit)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}

func (h *ScoreHandler) getUserScore(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	score, err := h.scoreService.UserScore(r.Context(), username)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, score)
}
