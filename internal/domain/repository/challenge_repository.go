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

type ChallengeRepository interface {
	CreateChallenge(ctx context.Context, tx *sql.Tx, challenge *model.Challenge) error
	FindChallengeByID(ctx context.Context, id string) (*model.Challenge, error)
	ListChallenges(ctx context.Context, limit, offset int) ([]model.Challenge, int, error)
	DeleteChallenge(ctx context.Context, tx *sql.Tx, id string) error

	AddTag(ctx context.Context, challengeID, tag string) error
	TagExists(ctx context.Context, challengeID, tag string) (bool, error)
	GetTags(ctx context.Context, challengeID string) ([]string, error)
	RemoveTag(ctx context.Context, challengeID, tag string) error
	DeleteTagsByChallenge(ctx context.Context, tx *sql.Tx, challengeID string) error
}

type pgChallengeRepository struct {
	db *sql.DB
}

func NewPgChallengeRepository(db *sql.DB) ChallengeRepository {
	return &pgChallengeRepository{db: db}
}

func (r *pgChallengeRepository) CreateChallenge(ctx context.Context, tx *sql.Tx, c *model.Challenge) error {
	query := `INSERT INTO challenges (id, slug, title, description, author, submitter, category_name, difficulty_name)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, c.ID, c.Slug, c.Title, c.Description, c.Author, c.Submitter, c.CategoryName, c.DifficultyName)
	} else {
		_, err = r.db.ExecContext(ctx, query, c.ID, c.Slug, c.Title, c.Description, c.Author, c.Submitter, c.CategoryName, c.DifficultyName)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for slug
			return fmt.Errorf("challenge with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgChallengeRepository.CreateChallenge: %w", err)
	}
	return nil
}

func (r *pgChallengeRepository) FindChallengeByID(ctx context.Context, id string) (*model.Challenge, error) {
	query := `SELECT id, slug, title, description, author, submitter, category_name, difficulty_name, created_at, updated_at
	          FROM challenges WHERE id = $1`
	challenge := &model.Challenge{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&challenge.ID, &challenge.Slug, &challenge.Title, &challenge.Description,
		&challenge.Author, &challenge.Submitter, &challenge.CategoryName, &challenge.DifficultyName,
		&challenge.CreatedAt, &challenge.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgChallengeRepository.FindChallengeByID: %w", err)
	}
	return challenge, nil
}

func (r *pgChallengeRepository) ListChallenges(ctx context.Context, limit, offset int) ([]model.Challenge, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM challenges`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgChallengeRepository.ListChallenges count: %w", err)
	}

	query := `SELECT id, slug, title, description, author, submitter, category_name, difficulty_name, created_at, updated_at
	          FROM challenges ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgChallengeRepository.ListChallenges: %w", err)
	}
	defer rows.Close()

	challenges := []model.Challenge{}
	for rows.Next() {
		var c model.Challenge
		if err := rows.Scan(
			&c.ID, &c.Slug, &c.Title, &c.Description,
			&c.Author, &c.Submitter, &c.CategoryName, &c.DifficultyName,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("pgChallengeRepository.ListChallenges scan: %w", err)
		}
		challenges = append(challenges, c)
	}
	return challenges, total, rows.Err()
}

func (r *pgChallengeRepository) DeleteChallenge(ctx context.Context, tx *sql.Tx, id string) error {
	query := `DELETE FROM challenges WHERE id = $1`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, id)
	} else {
		_, err = r.db.ExecContext(ctx, query, id)
	}
	if err != nil {
		return fmt.Errorf("pgChallengeRepository.DeleteChallenge: %w", err)
	}
	return nil
}

func (r *pgChallengeRepository) AddTag(ctx context.Context, challengeID, tag string) error {
	query := `INSERT INTO challenge_tags (challenge_id, tag) VALUES ($1, $2)`
	_, err := r.db.ExecContext(ctx, query, challengeID, tag)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("tag already exists on this challenge: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgChallengeRepository.AddTag: %w", err)
	}
	return nil
}

// TagExists compares case-insensitively so "Crypto" and "crypto" are the
// same tag.
func (r *pgChallengeRepository) TagExists(ctx context.Context, challengeID, tag string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM challenge_tags WHERE challenge_id = $1 AND LOWER(tag) = LOWER($2))`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, challengeID, tag).Scan(&exists); err != nil {
		return false, fmt.Errorf("pgChallengeRepository.TagExists: %w", err)
	}
	return exists, nil
}

func (r *pgChallengeRepository) GetTags(ctx context.Context, challengeID string) ([]string, error) {
	query := `SELECT tag FROM challenge_tags WHERE challenge_id = $1 ORDER BY tag`
	rows, err := r.db.QueryContext(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("pgChallengeRepository.GetTags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("pgChallengeRepository.GetTags scan: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (r *pgChallengeRepository) RemoveTag(ctx context.Context, challengeID, tag string) error {
	query := `DELETE FROM challenge_tags WHERE challenge_id = $1 AND LOWER(tag) = LOWER($2)`
	if _, err := r.db.ExecContext(ctx, query, challengeID, tag); err != nil {
		return fmt.Errorf("pgChallengeRepository.RemoveTag: %w", err)
	}
	return nil
}

func (r *pgChallengeRepository) DeleteTagsByChallenge(ctx context.Context, tx *sql.Tx, challengeID string) error {
	query := `DELETE FROM challenge_tags WHERE challenge_id = $1`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, challengeID)
	} else {
		_, err = r.db.ExecContext(ctx, query, challengeID)
	}
	if err != nil {
		return fmt.Errorf("pgChallengeRepository.DeleteTagsByChallenge: %w", err)
	}
	return nil
}
