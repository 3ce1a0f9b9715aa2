package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/harmonherring/CTF-API/internal/common"
	"github.com/harmonherring/CTF-API/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type TaxonomyRepository interface {
	CreateCategory(ctx context.Context, category *model.Category) error
	FindCategoryByName(ctx context.Context, name string) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	DeleteCategory(ctx context.Context, name string) error

	CreateDifficulty(ctx context.Context, difficulty *model.Difficulty) error
	FindDifficultyByName(ctx context.Context, name string) (*model.Difficulty, error)
	ListDifficulties(ctx context.Context) ([]model.Difficulty, error)
	DeleteDifficulty(ctx context.Context, name string) error
}

type pgTaxonomyRepository struct {
	db *sql.DB
}

func NewPgTaxonomyRepository(db *sql.DB) TaxonomyRepository {
	return &pgTaxonomyRepository{db: db}
}

func (r *pgTaxonomyRepository) CreateCategory(ctx context.Context, c *model.Category) error {
	query := `INSERT INTO categories (name, description) VALUES ($1, $2)`
	_, err := r.db.ExecContext(ctx, query, c.Name, c.Description)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("category %q already exists: %w", c.Name, common.ErrConflict)
		}
		return fmt.Errorf("pgTaxonomyRepository.CreateCategory: %w", err)
	}
	return nil
}

func (r *pgTaxonomyRepository) FindCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	query := `SELECT name, description FROM categories WHERE name = $1`
	category := &model.Category{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(&category.Name, &category.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgTaxonomyRepository.FindCategoryByName: %w", err)
	}
	return category, nil
}

func (r *pgTaxonomyRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	query := `SELECT name, description FROM categories ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgTaxonomyRepository.ListCategories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var category model.Category
		if err := rows.Scan(&category.Name, &category.Description); err != nil {
			return nil, fmt.Errorf("pgTaxonomyRepository.ListCategories scan: %w", err)
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (r *pgTaxonomyRepository) DeleteCategory(ctx context.Context, name string) error {
	query := `DELETE FROM categories WHERE name = $1`
	if _, err := r.db.ExecContext(ctx, query, name); err != nil {
		return fmt.Errorf("pgTaxonomyRepository.DeleteCategory: %w", err)
	}
	return nil
}

func (r *pgTaxonomyRepository) CreateDifficulty(ctx context.Context, d *model.Difficulty) error {
	query := `INSERT INTO difficulties (name) VALUES ($1)`
	_, err := r.db.ExecContext(ctx, query, d.Name)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("difficulty %q already exists: %w", d.Name, common.ErrConflict)
		}
		return fmt.Errorf("pgTaxonomyRepository.CreateDifficulty: %w", err)
	}
	return nil
}

func (r *pgTaxonomyRepository) FindDifficultyByName(ctx context.Context, name string) (*model.Difficulty, error) {
	query := `SELECT name FROM difficulties WHERE name = $1`
	difficulty := &model.Difficulty{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(&difficulty.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgTaxonomyRepository.FindDifficultyByName: %w", err)
	}
	return difficulty, nil
}

func (r *pgTaxonomyRepository) ListDifficulties(ctx context.Context) ([]model.Difficulty, error) {
	query := `SELECT name FROM difficulties ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgTaxonomyRepository.ListDifficulties: %w", err)
	}
	defer rows.Close()

	difficulties := []model.Difficulty{}
	for rows.Next() {
		var difficulty model.Difficulty
		if err := rows.Scan(&difficulty.Name); err != nil {
			return nil, fmt.Errorf("pgTaxonomyRepository.ListDifficulties scan: %w", err)
		}
		difficulties = append(difficulties, difficulty)
	}
	return difficulties, rows.Err()
}

func (r *pgTaxonomyRepository) DeleteDifficulty(ctx context.Context, name string) error {
	query := `DELETE FROM difficulties WHERE name = $1`
	if _, err := r.db.ExecContext(ctx, query, name); err != nil {
		return fmt.Errorf("pgTaxonomyRepository.DeleteDifficulty: %w", err)
	}
	return nil
}
