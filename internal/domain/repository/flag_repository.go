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

type FlagRepository interface {
	CreateFlag(ctx context.Context, tx *sql.Tx, flag *model.Flag) error
	FindFlagByID(ctx context.Context, id string) (*model.Flag, error)
	GetFlagsByChallengeID(ctx context.Context, challengeID string) ([]model.Flag, error)
	DeleteFlag(ctx context.Context, tx *sql.Tx, id string) error

	CreateHint(ctx context.Context, tx *sql.Tx, hint *model.Hint) error
	FindHintByID(ctx context.Context, id string) (*model.Hint, error)
	GetHintsByFlagID(ctx context.Context, flagID string) ([]model.Hint, error)
	DeleteHint(ctx context.Context, tx *sql.Tx, id string) error
	DeleteHintsByFlag(ctx context.Context, tx *sql.Tx, flagID string) error
}

type pgFlagRepository struct {
	db *sql.DB
}

func NewPgFlagRepository(db *sql.DB) FlagRepository {
	return &pgFlagRepository{db: db}
}

func (r *pgFlagRepository) CreateFlag(ctx context.Context, tx *sql.Tx, f *model.Flag) error {
	query := `INSERT INTO flags (id, challenge_id, point_value, flag) VALUES ($1, $2, $3, $4)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, f.ID, f.ChallengeID, f.PointValue, f.Flag)
	} else {
		_, err = r.db.ExecContext(ctx, query, f.ID, f.ChallengeID, f.PointValue, f.Flag)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique (challenge_id, flag)
			return fmt.Errorf("an identical flag already exists on this challenge: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgFlagRepository.CreateFlag: %w", err)
	}
	return nil
}

func (r *pgFlagRepository) FindFlagByID(ctx context.Context, id string) (*model.Flag, error) {
	query := `SELECT id, challenge_id, point_value, flag, created_at FROM flags WHERE id = $1`
	flag := &model.Flag{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&flag.ID, &flag.ChallengeID, &flag.PointValue, &flag.Flag, &flag.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgFlagRepository.FindFlagByID: %w", err)
	}
	return flag, nil
}

func (r *pgFlagRepository) GetFlagsByChallengeID(ctx context.Context, challengeID string) ([]model.Flag, error) {
	query := `SELECT id, challenge_id, point_value, flag, created_at
	          FROM flags WHERE challenge_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("pgFlagRepository.GetFlagsByChallengeID: %w", err)
	}
	defer rows.Close()

	flags := []model.Flag{}
	for rows.Next() {
		var f model.Flag
		if err := rows.Scan(&f.ID, &f.ChallengeID, &f.PointValue, &f.Flag, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgFlagRepository.GetFlagsByChallengeID scan: %w", err)
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

func (r *pgFlagRepository) DeleteFlag(ctx context.Context, tx *sql.Tx, id string) error {
	query := `DELETE FROM flags WHERE id = $1`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, id)
	} else {
		_, err = r.db.ExecContext(ctx, query, id)
	}
	if err != nil {
		return fmt.Errorf("pgFlagRepository.DeleteFlag: %w", err)
	}
	return nil
}

func (r *pgFlagRepository) CreateHint(ctx context.Context, tx *sql.Tx, h *model.Hint) error {
	query := `INSERT INTO hints (id, flag_id, cost, hint) VALUES ($1, $2, $3, $4)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, h.ID, h.FlagID, h.Cost, h.Hint)
	} else {
		_, err = r.db.ExecContext(ctx, query, h.ID, h.FlagID, h.Cost, h.Hint)
	}
	if err != nil {
		return fmt.Errorf("pgFlagRepository.CreateHint: %w", err)
	}
	return nil
}

func (r *pgFlagRepository) FindHintByID(ctx context.Context, id string) (*model.Hint, error) {
	query := `SELECT id, flag_id, cost, hint, created_at FROM hints WHERE id = $1`
	hint := &model.Hint{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&hint.ID, &hint.FlagID, &hint.Cost, &hint.Hint, &hint.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgFlagRepository.FindHintByID: %w", err)
	}
	return hint, nil
}

func (r *pgFlagRepository) GetHintsByFlagID(ctx context.Context, flagID string) ([]model.Hint, error) {
	query := `SELECT id, flag_id, cost, hint, created_at
	          FROM hints WHERE flag_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, flagID)
	if err != nil {
		return nil, fmt.Errorf("pgFlagRepository.GetHintsByFlagID: %w", err)
	}
	defer rows.Close()

	hints := []model.Hint{}
	for rows.Next() {
		var h model.Hint
		if err := rows.Scan(&h.ID, &h.FlagID, &h.Cost, &h.Hint, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgFlagRepository.GetHintsByFlagID scan: %w", err)
		}
		hints = append(hints, h)
	}
	return hints, rows.Err()
}

func (r *pgFlagRepository) DeleteHint(ctx context.Context, tx *sql.Tx, id string) error {
	query := `DELETE FROM hints WHERE id = $1`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, id)
	} else {
		_, err = r.db.ExecContext(ctx, query, id)
	}
	if err != nil {
		return fmt.Errorf("pgFlagRepository.DeleteHint: %w", err)
	}
	return nil
}

func (r *pgFlagRepository) DeleteHintsByFlag(ctx context.Context, tx *sql.Tx, flagID string) error {
	query := `DELETE FROM hints WHERE flag_id = $1`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, flagID)
	} else {
		_, err = r.db.ExecContext(ctx, query, flagID)
	}
	if err != nil {
		return fmt.Errorf("pgFlagRepository.DeleteHintsByFlag: %w", err)
	}
	return nil
}
