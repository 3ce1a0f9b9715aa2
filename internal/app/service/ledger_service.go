package service

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/harmonherring/CTF-API/internal/common"
	"github.com/harmonherring/CTF-API/internal/common/security"
	"github.com/harmonherring/CTF-API/internal/domain/model"
	"github.com/harmonherring/CTF-API/internal/domain/repository"

	"github.com/google/uuid"
)

// LedgerService owns the two write paths of the game, solving flags and
// purchasing hints, plus the flag/hint lifecycle around them. All
// invariants are checked here before anything is written; the composite
// primary keys in the store close the remaining check-then-insert race.
type LedgerService struct {
	challengeRepo repository.ChallengeRepository
	flagRepo      repository.FlagRepository
	ledgerRepo    repository.LedgerRepository
	scores        *ScoreService
	db            *sql.DB // For transactions
}

func NewLedgerService(
	challengeRepo repository.ChallengeRepository,
	flagRepo repository.FlagRepository,
	ledgerRepo repository.LedgerRepository,
	scores *ScoreService,
	db *sql.DB,
) *LedgerService {
	return &LedgerService{
		challengeRepo: challengeRepo,
		flagRepo:      flagRepo,
		ledgerRepo:    ledgerRepo,
		scores:        scores,
		db:            db,
	}
}

// AttemptSolve checks the submitted secret against every flag of the
// challenge. The comparison is byte-exact: no trimming, no case folding.
// On success exactly one solve row is recorded and the caller gets the
// refreshed challenge view; on any failure nothing is written.
func (s *LedgerService) AttemptSolve(ctx context.Context, challengeID, secret, username string) (*model.ChallengeDetail, error) {
	if secret == "" {
		return nil, common.Errorf("flag must not be empty: %w", common.ErrBadRequest)
	}

	if _, err := s.challengeRepo.FindChallengeByID(ctx, challengeID); err != nil {
		return nil, common.Errorf("challenge not found: %w", err)
	}

	flags, err := s.flagRepo.GetFlagsByChallengeID(ctx, challengeID)
	if err != nil {
		return nil, common.Errorf("failed to load flags: %w", err)
	}

	var matched *model.Flag
	for i := range flags {
		if flags[i].Flag == secret {
			matched = &flags[i]
			break
		}
	}
	if matched == nil {
		return nil, common.ErrIncorrectFlag
	}

	// The insert is the authoritative duplicate check: the (flag_id,
	// username) primary key turns a concurrent double submit into
	// ErrAlreadySolved instead of a second row.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	solve := &model.Solve{FlagID: matched.ID, Username: username}
	if err := s.ledgerRepo.CreateSolve(ctx, tx, solve); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	s.scores.InvalidateScoreboard(ctx)
	log.Printf("User %s solved flag %s on challenge %s", username, matched.ID, challengeID)
	return s.ChallengeDetail(ctx, challengeID, username)
}

// PurchaseHint validates in order: hint exists, not already purchased,
// purchaser is not the challenge submitter, the purchaser has not already
// solved the owning flag, and the purchase would not drive the balance
// negative. The first failure wins. On success the hint text is revealed.
func (s *LedgerService) PurchaseHint(ctx context.Context, hintID, username string) (*model.Hint, error) {
	hint, err := s.flagRepo.FindHintByID(ctx, hintID)
	if err != nil {
		return nil, common.Errorf("hint not found: %w", err)
	}

	purchased, err := s.ledgerRepo.HintPurchaseExists(ctx, hintID, username)
	if err != nil {
		return nil, err
	}
	if purchased {
		return nil, common.ErrAlreadyPurchased
	}

	flag, err := s.flagRepo.FindFlagByID(ctx, hint.FlagID)
	if err != nil {
		return nil, common.Errorf("owning flag not found: %w", err)
	}
	challenge, err := s.challengeRepo.FindChallengeByID(ctx, flag.ChallengeID)
	if err != nil {
		return nil, common.Errorf("owning challenge not found: %w", err)
	}
	if challenge.Submitter == username {
		return nil, common.ErrSelfPurchase
	}

	// Buying a hint for a flag you already solved is pointless; block it
	// for the purchasing user only, not for everyone once anyone solves.
	solved, err := s.ledgerRepo.SolveExists(ctx, flag.ID, username)
	if err != nil {
		return nil, err
	}
	if solved {
		return nil, common.ErrAlreadySolved
	}

	score, err := s.scores.UserScore(ctx, username)
	if err != nil {
		return nil, err
	}
	if score.Score-hint.Cost < 0 {
		return nil, common.ErrInsufficientPoints
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	purchase := &model.HintPurchase{HintID: hintID, Username: username}
	if err := s.ledgerRepo.CreateHintPurchase(ctx, tx, purchase); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	s.scores.InvalidateScoreboard(ctx)
	log.Printf("User %s purchased hint %s", username, hintID)
	return hint, nil
}

type CreateFlagRequest struct {
	PointValue int    `json:"point_value"`
	Flag       string `json:"flag"`
}

// CreateFlag creates a flag and immediately records a solve for the
// challenge submitter, so authors can always see their own flag text.
func (s *LedgerService) CreateFlag(ctx context.Context, challengeID string, req CreateFlagRequest, username string, groups []string) (*model.Flag, error) {
	if req.Flag == "" || req.PointValue < 0 {
		return nil, common.Errorf("flag text required and point_value must be non-negative: %w", common.ErrBadRequest)
	}

	challenge, err := s.challengeRepo.FindChallengeByID(ctx, challengeID)
	if err != nil {
		return nil, common.Errorf("challenge not found: %w", err)
	}
	if !security.IsAdmin(groups) && challenge.Submitter != username {
		return nil, common.Errorf("only the submitter or an admin may add flags: %w", common.ErrForbidden)
	}

	flag := &model.Flag{
		ID:          uuid.NewString(),
		ChallengeID: challengeID,
		PointValue:  req.PointValue,
		Flag:        req.Flag,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.flagRepo.CreateFlag(ctx, tx, flag); err != nil {
		return nil, err
	}
	solve := &model.Solve{FlagID: flag.ID, Username: challenge.Submitter}
	if err := s.ledgerRepo.CreateSolve(ctx, tx, solve); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	s.scores.InvalidateScoreboard(ctx)
	return flag, nil
}

type CreateHintRequest struct {
	Cost int    `json:"cost"`
	Hint string `json:"hint"`
}

// CreateHint creates a hint and records a purchase for the challenge
// submitter. The submitter is excluded from score deduction anyway, so
// the row only grants visibility.
func (s *LedgerService) CreateHint(ctx context.Context, flagID string, req CreateHintRequest, username string, groups []string) (*model.Hint, error) {
	if req.Hint == "" || req.Cost < 0 {
		return nil, common.Errorf("hint text required and cost must be non-negative: %w", common.ErrBadRequest)
	}

	flag, err := s.flagRepo.FindFlagByID(ctx, flagID)
	if err != nil {
		return nil, common.Errorf("flag not found: %w", err)
	}
	challenge, err := s.challengeRepo.FindChallengeByID(ctx, flag.ChallengeID)
	if err != nil {
		return nil, common.Errorf("owning challenge not found: %w", err)
	}
	if !security.IsAdmin(groups) && challenge.Submitter != username {
		return nil, common.Errorf("only the submitter or an admin may add hints: %w", common.ErrForbidden)
	}

	hint := &model.Hint{
		ID:     uuid.NewString(),
		FlagID: flagID,
		Cost:   req.Cost,
		Hint:   req.Hint,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.flagRepo.CreateHint(ctx, tx, hint); err != nil {
		return nil, err
	}
	purchase := &model.HintPurchase{HintID: hint.ID, Username: challenge.Submitter}
	if err := s.ledgerRepo.CreateHintPurchase(ctx, tx, purchase); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	return hint, nil
}

// DeleteFlagCascade removes a flag with its hints, hint purchases, and
// solves. Deleting a flag that no longer exists is a no-op.
func (s *LedgerService) DeleteFlagCascade(ctx context.Context, challengeID, flagID, username string, groups []string) error {
	challenge, err := s.challengeRepo.FindChallengeByID(ctx, challengeID)
	if err != nil {
		return common.Errorf("challenge not found: %w", err)
	}
	if !security.IsAdmin(groups) && challenge.Submitter != username {
		return common.Errorf("only the submitter or an admin may delete flags: %w", common.ErrForbidden)
	}

	if _, err := s.flagRepo.FindFlagByID(ctx, flagID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil // idempotent
		}
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.deleteFlagInTx(ctx, tx, flagID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return common.Errorf("failed to commit transaction: %w", err)
	}

	s.scores.InvalidateScoreboard(ctx)
	return nil
}

// DeleteHintCascade removes a hint and its purchases. Idempotent.
func (s *LedgerService) DeleteHintCascade(ctx context.Context, hintID, username string, groups []string) error {
	hint, err := s.flagRepo.FindHintByID(ctx, hintID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil // idempotent
		}
		return err
	}
	flag, err := s.flagRepo.FindFlagByID(ctx, hint.FlagID)
	if err != nil {
		return common.Errorf("owning flag not found: %w", err)
	}
	challenge, err := s.challengeRepo.FindChallengeByID(ctx, flag.ChallengeID)
	if err != nil {
		return common.Errorf("owning challenge not found: %w", err)
	}
	if !security.IsAdmin(groups) && challenge.Submitter != username {
		return common.Errorf("only the submitter or an admin may delete hints: %w", common.ErrForbidden)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.ledgerRepo.DeletePurchasesByHint(ctx, tx, hintID); err != nil {
		return err
	}
	if err := s.flagRepo.DeleteHint(ctx, tx, hintID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return common.Errorf("failed to commit transaction: %w", err)
	}

	s.scores.InvalidateScoreboard(ctx)
	return nil
}

// deleteFlagInTx deletes one flag and everything hanging off it, in
// referential order: purchases, solves, hints, then the flag itself.
func (s *LedgerService) deleteFlagInTx(ctx context.Context, tx *sql.Tx, flagID string) error {
	if err := s.ledgerRepo.DeletePurchasesByFlag(ctx, tx, flagID); err != nil {
		return err
	}
	if err := s.ledgerRepo.DeleteSolvesByFlag(ctx, tx, flagID); err != nil {
		return err
	}
	if err := s.flagRepo.DeleteHintsByFlag(ctx, tx, flagID); err != nil {
		return err
	}
	if err := s.flagRepo.DeleteFlag(ctx, tx, flagID); err != nil {
		return err
	}
	return nil
}

// ListFlags returns the per-caller view of a challenge's flags, hints
// included. Secrets stay hidden until earned.
func (s *LedgerService) ListFlags(ctx context.Context, challengeID, username string) ([]model.FlagView, error) {
	if _, err := s.challengeRepo.FindChallengeByID(ctx, challengeID); err != nil {
		return nil, common.Errorf("challenge not found: %w", err)
	}
	flags, err := s.flagRepo.GetFlagsByChallengeID(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	views := make([]model.FlagView, 0, len(flags))
	for i := range flags {
		view, err := s.flagView(ctx, &flags[i], username)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// ListHints returns the per-caller view of a flag's hints.
func (s *LedgerService) ListHints(ctx context.Context, flagID, username string) ([]model.HintView, error) {
	if _, err := s.flagRepo.FindFlagByID(ctx, flagID); err != nil {
		return nil, common.Errorf("flag not found: %w", err)
	}
	hints, err := s.flagRepo.GetHintsByFlagID(ctx, flagID)
	if err != nil {
		return nil, err
	}

	views := make([]model.HintView, 0, len(hints))
	for i := range hints {
		purchased, err := s.ledgerRepo.HintPurchaseExists(ctx, hints[i].ID, username)
		if err != nil {
			return nil, err
		}
		views = append(views, hints[i].View(purchased))
	}
	return views, nil
}

// ListSolvers returns the usernames that have solved a flag.
func (s *LedgerService) ListSolvers(ctx context.Context, flagID string) ([]string, error) {
	if _, err := s.flagRepo.FindFlagByID(ctx, flagID); err != nil {
		return nil, common.Errorf("flag not found: %w", err)
	}
	return s.ledgerRepo.ListSolvedUsernames(ctx, flagID)
}

// ChallengeDetail assembles the full per-caller challenge view.
func (s *LedgerService) ChallengeDetail(ctx context.Context, challengeID, username string) (*model.ChallengeDetail, error) {
	challenge, err := s.challengeRepo.FindChallengeByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	tags, err := s.challengeRepo.GetTags(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	challenge.Tags = tags

	flagViews, err := s.ListFlags(ctx, challengeID, username)
	if err != nil {
		return nil, err
	}
	return &model.ChallengeDetail{Challenge: *challenge, Flags: flagViews}, nil
}

func (s *LedgerService) flagView(ctx context.Context, flag *model.Flag, username string) (model.FlagView, error) {
	solved, err := s.ledgerRepo.SolveExists(ctx, flag.ID, username)
	if err != nil {
		return model.FlagView{}, err
	}
	view := flag.View(solved)

	hints, err := s.flagRepo.GetHintsByFlagID(ctx, flag.ID)
	if err != nil {
		return model.FlagView{}, err
	}
	for i := range hints {
		purchased, err := s.ledgerRepo.HintPurchaseExists(ctx, hints[i].ID, username)
		if err != nil {
			return model.FlagView{}, err
		}
		view.Hints = append(view.Hints, hints[i].View(purchased))
	}
	return view, nil
}
