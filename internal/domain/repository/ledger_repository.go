package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/harmonherring/CTF-API/internal/common"
	"github.com/harmonherring/CTF-API/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

// SolveRow is a solve joined with the point value of its flag.
type SolveRow struct {
	FlagID     string
	Username   string
	PointValue int
	CreatedAt  time.Time
}

// PurchaseRow is a hint purchase joined with the hint's cost and the
// submitter of the owning challenge, which the aggregator needs for the
// self-purchase exclusion.
type PurchaseRow struct {
	HintID    string
	Username  string
	Cost      int
	Submitter string
	CreatedAt time.Time
}

// ScoreFilter restricts ledger rows by user and/or creation time. Both
// time bounds are inclusive; a nil bound is unbounded on that side.
type ScoreFilter struct {
	Username string // empty matches all users
	After    *time.Time
	Before   *time.Time
}

type LedgerRepository interface {
	// CreateSolve inserts exactly one solve row or fails with
	// ErrAlreadySolved. The composite primary key makes concurrent
	// duplicate submissions lose deterministically.
	CreateSolve(ctx context.Context, tx *sql.Tx, solve *model.Solve) error
	SolveExists(ctx context.Context, flagID, username string) (bool, error)
	ListSolvedUsernames(ctx context.Context, flagID string) ([]string, error)

	CreateHintPurchase(ctx context.Context, tx *sql.Tx, purchase *model.HintPurchase) error
	HintPurchaseExists(ctx context.Context, hintID, username string) (bool, error)

	ListSolveRows(ctx context.Context, filter ScoreFilter) ([]SolveRow, error)
	ListPurchaseRows(ctx context.Context, filter ScoreFilter) ([]PurchaseRow, error)

	DeleteSolvesByFlag(ctx context.Context, tx *sql.Tx, flagID string) error
	DeletePurchasesByHint(ctx context.Context, tx *sql.Tx, hintID string) error
	DeletePurchasesByFlag(ctx context.Context, tx *sql.Tx, flagID string) error
}

type pgLedgerRepository struct {
	db *sql.DB
}

func NewPgLedgerRepository(db *sql.DB) LedgerRepository {
	return &pgLedgerRepository{db: db}
}

func (r *pgLedgerRepository) CreateSolve(ctx context.Context, tx *sql.Tx, s *model.Solve) error {
	query := `INSERT INTO solved (flag_id, username) VALUES ($1, $2)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, s.FlagID, s.Username)
	} else {
		_, err = r.db.ExecContext(ctx, query, s.FlagID, s.Username)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // PK (flag_id, username)
			return fmt.Errorf("solve for this flag and user already recorded: %w", common.ErrAlreadySolved)
		}
		return fmt.Errorf("pgLedgerRepository.CreateSolve: %w", err)
	}
	return nil
}

func (r *pgLedgerRepository) SolveExists(ctx context.Context, flagID, username string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM solved WHERE flag_id = $1 AND username = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, flagID, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("pgLedgerRepository.SolveExists: %w", err)
	}
	return exists, nil
}

func (r *pgLedgerRepository) ListSolvedUsernames(ctx context.Context, flagID string) ([]string, error) {
	query := `SELECT username FROM solved WHERE flag_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, flagID)
	if err != nil {
		return nil, fmt.Errorf("pgLedgerRepository.ListSolvedUsernames: %w", err)
	}
	defer rows.Close()

	usernames := []string{}
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("pgLedgerRepository.ListSolvedUsernames scan: %w", err)
		}
		usernames = append(usernames, username)
	}
	return usernames, rows.Err()
}

func (r *pgLedgerRepository) CreateHintPurchase(ctx context.Context, tx *sql.Tx, p *model.HintPurchase) error {
	query := `INSERT INTO used_hints (hint_id, username) VALUES ($1, $2)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, p.HintID, p.Username)
	} else {
		_, err = r.db.ExecContext(ctx, query, p.HintID, p.Username)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // PK (hint_id, username)
			return fmt.Errorf("purchase for this hint and user already recorded: %w", common.ErrAlreadyPurchased)
		}
		return fmt.Errorf("pgLedgerRepository.CreateHintPurchase: %w", err)
	}
	return nil
}

func (r *pgLedgerRepository) HintPurchaseExists(ctx context.Context, hintID, username string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM used_hints WHERE hint_id = $1 AND username = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, hintID, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("pgLedgerRepository.HintPurchaseExists: %w", err)
	}
	return exists, nil
}

func (r *pgLedgerRepository) ListSolveRows(ctx context.Context, f ScoreFilter) ([]SolveRow, error) {
	query := `SELECT s.flag_id, s.username, fl.point_value, s.created_at
	          FROM solved s
	          JOIN flags fl ON s.flag_id = fl.id
	          WHERE ($1 = '' OR s.username = $1)
	            AND ($2::timestamptz IS NULL OR s.created_at >= $2)
	            AND ($3::timestamptz IS NULL OR s.created_at <= $3)`
	rows, err := r.db.QueryContext(ctx, query, f.Username, f.After, f.Before)
	if err != nil {
		return nil, fmt.Errorf("pgLedgerRepository.ListSolveRows: %w", err)
	}
	defer rows.Close()

	result := []SolveRow{}
	for rows.Next() {
		var row SolveRow
		if err := rows.Scan(&row.FlagID, &row.Username, &row.PointValue, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgLedgerRepository.ListSolveRows scan: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *pgLedgerRepository) ListPurchaseRows(ctx context.Context, f ScoreFilter) ([]PurchaseRow, error) {
	query := `SELECT u.hint_id, u.username, h.cost, c.submitter, u.created_at
	          FROM used_hints u
	          JOIN hints h ON u.hint_id = h.id
	          JOIN flags fl ON h.flag_id = fl.id
	          JOIN challenges c ON fl.challenge_id = c.id
	          WHERE ($1 = '' OR u.username = $1)
	            AND ($2::timestamptz IS NULL OR u.created_at >= $2)
	            AND ($3::timestamptz IS NULL OR u.created_at <= $3)`
	rows, err := r.db.QueryContext(ctx, query, f.Username, f.After, f.Before)
	if err != nil {
		return nil, fmt.Errorf("pgLedgerRepository.ListPurchaseRows: %w", err)
	}
	defer rows.Close()

	result := []PurchaseRow{}
	for rows.Next() {
		var row PurchaseRow
		if err := rows.Scan(&row.HintID, &row.Username, &row.Cost, &row.Submitter, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgLedgerRepository.ListPurchaseRows scan: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *pgLedgerRepository) DeleteSolvesByFlag(ctx context.Context, tx *sql.Tx, flagID string) error {
	query := `DELETE FROM solved WHERE flag_id = $1`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, flagID)
	} else {
		_, err = r.db.ExecContext(ctx, query, flagID)
	}
	if err != nil {
		return fmt.Errorf("pgLedgerRepository.DeleteSolvesByFlag: %w", err)
	}
	return nil
}

func (r *pgLedgerRepository) DeletePurchasesByHint(ctx context.Context, tx *sql.Tx, hintID string) error {
	query := `DELETE FROM used_hints WHERE hint_id = $1`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, hintID)
	} else {
		_, err = r.db.ExecContext(ctx, query, hintID)
	}
	if err != nil {
		return fmt.Errorf("pgLedgerRepository.DeletePurchasesByHint: %w", err)
	}
	return nil
}

func (r *pgLedgerRepository) DeletePurchasesByFlag(ctx context.Context, tx *sql.Tx, flagID string) error {
	query := `DELETE FROM used_hints WHERE hint_id IN (SELECT id FROM hints WHERE flag_id = $1)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, flagID)
	} else {
		_, err = r.db.ExecContext(ctx, query, flagID)
	}
	if err != nil {
		return fmt.Errorf("pgLedgerRepository.DeletePurchasesByFlag: %w", err)
	}
	return nil
}
