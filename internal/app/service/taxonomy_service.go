package service

import (
	"context"
	"strings"

	"github.com/harmonherring/CTF-API/internal/common"
	"github.com/harmonherring/CTF-API/internal/common/security"
	"github.com/harmonherring/CTF-API/internal/domain/model"
	"github.com/harmonherring/CTF-API/internal/domain/repository"
)

// TaxonomyService manages categories and difficulties. Names are stored
// lower-cased; creation and deletion are admin-only.
type TaxonomyService struct {
	taxonomyRepo repository.TaxonomyRepository
}

func NewTaxonomyService(taxonomyRepo repository.TaxonomyRepository) *TaxonomyService {
	return &TaxonomyService{taxonomyRepo: taxonomyRepo}
}

type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *TaxonomyService) CreateCategory(ctx context.Context, req CreateCategoryRequest, groups []string) (*model.Category, error) {
	if !security.IsAdmin(groups) {
		return nil, common.Errorf("admin access required: %w", common.ErrForbidden)
	}
	if req.Name == "" || req.Description == "" {
		return nil, common.Errorf("name and description are required: %w", common.ErrBadRequest)
	}

	category := &model.Category{
		Name:        strings.ToLower(req.Name),
		Description: req.Description,
	}
	if err := s.taxonomyRepo.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *TaxonomyService) GetCategory(ctx context.Context, name string) (*model.Category, error) {
	return s.taxonomyRepo.FindCategoryByName(ctx, strings.ToLower(name))
}

func (s *TaxonomyService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.taxonomyRepo.ListCategories(ctx)
}

func (s *TaxonomyService) DeleteCategory(ctx context.Context, name string, groups []string) error {
	if !security.IsAdmin(groups) {
		return common.Errorf("admin access required: %w", common.ErrForbidden)
	}
	if _, err := s.taxonomyRepo.FindCategoryByName(ctx, strings.ToLower(name)); err != nil {
		return common.Errorf("category not found: %w", err)
	}
	return s.taxonomyRepo.DeleteCategory(ctx, strings.ToLower(name))
}

type CreateDifficultyRequest struct {
	Name string `json:"name"`
}

func (s *TaxonomyService) CreateDifficulty(ctx context.Context, req CreateDifficultyRequest, groups []string) (*model.Difficulty, error) {
	if !security.IsAdmin(groups) {
		return nil, common.Errorf("admin access required: %w", common.ErrForbidden)
	}
	if req.Name == "" {
		return nil, common.Errorf("name is required: %w", common.ErrBadRequest)
	}

	difficulty := &model.Difficulty{Name: strings.ToLower(req.Name)}
	if err := s.taxonomyRepo.CreateDifficulty(ctx, difficulty); err != nil {
		return nil, err
	}
	return difficulty, nil
}

func (s *TaxonomyService) ListDifficulties(ctx context.Context) ([]model.Difficulty, error) {
	return s.taxonomyRepo.ListDifficulties(ctx)
}

func (s *TaxonomyService) DeleteDifficulty(ctx context.Context, name string, groups []string) error {
	if !security.IsAdmin(groups) {
		return common.Errorf("admin access required: %w", common.ErrForbidden)
	}
	if _, err := s.taxonomyRepo.FindDifficultyByName(ctx, strings.ToLower(name)); err != nil {
		return common.Errorf("difficulty not found: %w", err)
	}
	return s.taxonomyRepo.DeleteDifficulty(ctx, strings.ToLower(name))
}
