package handler

import (
	"encoding/json"
	"net/http"

	"github.com/harmonherring/CTF-API/internal/api/middleware"
	"github.com/harmonherring/CTF-API/internal/app/service"
	"github.com/harmonherring/CTF-API/internal/common"

	"github.com/go-chi/chi/v5"
)

type TaxonomyHandler struct {
	taxonomyService *service.TaxonomyService
}

func NewTaxonomyHandler(ts *service.TaxonomyService) *TaxonomyHandler {
	return &TaxonomyHandler{taxonomyService: ts}
}

func (h *TaxonomyHandler) RegisterCategoryRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/", h.listCategories)
	r.Post("/", h.createCategory)
	r.Get("/{name}", h.getCategory)
	r.Delete("/{name}", h.deleteCategory)
}

func (h *TaxonomyHandler) RegisterDifficultyRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/", h.listDifficulties)
	r.Post("/", h.createDifficulty)
	r.Delete("/{name}", h.deleteDifficulty)
}

func (h *TaxonomyHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.taxonomyService.ListCategories(r.Context())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, categories)
}

func (h *TaxonomyHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	groups, _ := middleware.GetGroupsFromContext(r.Context())

	var req service.CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	category, err := h.taxonomyService.CreateCategory(r.Context(), req, groups)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, category)
}

func (h *TaxonomyHandler) getCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	category, err := h.taxonomyService.GetCategory(r.Context(), name)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, category)
}

func (h *TaxonomyHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	groups, _ := middleware.GetGroupsFromContext(r.Context())
	name := chi.URLParam(r, "name")

	if err := h.taxonomyService.DeleteCategory(r.Context(), name, groups); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaxonomyHandler) listDifficulties(w http.ResponseWriter, r *http.Request) {
	difficulties, err := h.taxonomyService.ListDifficulties(r.Context())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, difficulties)
}

func (h *TaxonomyHandler) createDifficulty(w http.ResponseWriter, r *http.Request) {
	groups, _ := middleware.GetGroupsFromContext(r.Context())

	var req service.CreateDifficultyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	difficulty, err := h.taxonomyService.CreateDifficulty(r.Context(), req, groups)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, difficulty)
}

func (h *TaxonomyHandler) deleteDifficulty(w http.ResponseWriter, r *http.Request) {
	groups, _ := middleware.GetGroupsFromContext(r.Context())
	name := chi.URLParam(r, "name")

	if err := h.taxonomyService.DeleteDifficulty(r.Context(), name, groups); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
