package service

import (
	"context"
	"testing"

	"github.com/harmonherring/CTF-API/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var adminGroups = []string{"rtp"}

func TestCategoryLifecycle(t *testing.T) {
	svc := NewTaxonomyService(newFakeTaxonomyRepo())
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, CreateCategoryRequest{Name: "Crypto", Description: "Cryptography"}, adminGroups)
	require.NoError(t, err)
	assert.Equal(t, "crypto", category.Name)

	_, err = svc.CreateCategory(ctx, CreateCategoryRequest{Name: "CRYPTO", Description: "dup"}, adminGroups)
	assert.ErrorIs(t, err, common.ErrConflict)

	got, err := svc.GetCategory(ctx, "Crypto")
	require.NoError(t, err)
	assert.Equal(t, "Cryptography", got.Description)

	require.NoError(t, svc.DeleteCategory(ctx, "crypto", adminGroups))
	err = svc.DeleteCategory(ctx, "crypto", adminGroups)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCategoryRequiresAdmin(t *testing.T) {
	svc := NewTaxonomyService(newFakeTaxonomyRepo())
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, CreateCategoryRequest{Name: "web", Description: "Web"}, nil)
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = svc.CreateCategory(ctx, CreateCategoryRequest{Name: "web", Description: "Web"}, []string{"members"})
	assert.ErrorIs(t, err, common.ErrForbidden)

	err = svc.DeleteCategory(ctx, "web", nil)
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestCategoryValidation(t *testing.T) {
	svc := NewTaxonomyService(newFakeTaxonomyRepo())

	_, err := svc.CreateCategory(context.Background(), CreateCategoryRequest{Name: "web"}, adminGroups)
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestDifficultyLifecycle(t *testing.T) {
	svc := NewTaxonomyService(newFakeTaxonomyRepo())
	ctx := context.Background()

	difficulty, err := svc.CreateDifficulty(ctx, CreateDifficultyRequest{Name: "Hard"}, adminGroups)
	require.NoError(t, err)
	assert.Equal(t, "hard", difficulty.Name)

	all, err := svc.ListDifficulties(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = svc.CreateDifficulty(ctx, CreateDifficultyRequest{}, adminGroups)
	assert.ErrorIs(t, err, common.ErrBadRequest)

	_, err = svc.CreateDifficulty(ctx, CreateDifficultyRequest{Name: "hard"}, nil)
	assert.ErrorIs(t, err, common.ErrForbidden)

	require.NoError(t, svc.DeleteDifficulty(ctx, "HARD", adminGroups))
	err = svc.DeleteDifficulty(ctx, "hard", adminGroups)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
