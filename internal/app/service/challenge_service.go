package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/harmonherring/CTF-API/internal/common"
	"github.com/harmonherring/CTF-API/internal/common/security"
	"github.com/harmonherring/CTF-API/internal/domain/model"
	"github.com/harmonherring/CTF-API/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type ChallengeService struct {
	challengeRepo repository.ChallengeRepository
	flagRepo      repository.FlagRepository
	taxonomyRepo  repository.TaxonomyRepository
	ledger        *LedgerService
	db            *sql.DB // For transactions
}

func NewChallengeService(
	challengeRepo repository.ChallengeRepository,
	flagRepo repository.FlagRepository,
	taxonomyRepo repository.TaxonomyRepository,
	ledger *LedgerService,
	db *sql.DB,
) *ChallengeService {
	return &ChallengeService{
		challengeRepo: challengeRepo,
		flagRepo:      flagRepo,
		taxonomyRepo:  taxonomyRepo,
		ledger:        ledger,
		db:            db,
	}
}

type CreateChallengeRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty"`
}

// CreateChallenge creates a challenge submitted by the calling user.
// Category and difficulty must already exist.
func (s *ChallengeService) CreateChallenge(ctx context.Context, username string, req CreateChallengeRequest) (*model.Challenge, error) {
	if req.Title == "" || req.Description == "" || req.Author == "" || req.Category == "" || req.Difficulty == "" {
		return nil, common.Errorf("missing required fields for challenge creation: %w", common.ErrBadRequest)
	}

	category, err := s.taxonomyRepo.FindCategoryByName(ctx, strings.ToLower(req.Category))
	if err != nil {
		return nil, common.Errorf("category not found: %w", err)
	}
	difficulty, err := s.taxonomyRepo.FindDifficultyByName(ctx, strings.ToLower(req.Difficulty))
	if err != nil {
		return nil, common.Errorf("difficulty not found: %w", err)
	}

	challenge := &model.Challenge{
		ID:             uuid.NewString(),
		Slug:           slug.Make(req.Title),
		Title:          req.Title,
		Description:    req.Description,
		Author:         req.Author,
		Submitter:      username,
		CategoryName:   category.Name,
		DifficultyName: difficulty.Name,
	}

	if err := s.challengeRepo.CreateChallenge(ctx, nil, challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}

// ListChallenges returns a page of per-caller challenge views, newest
// first.
func (s *ChallengeService) ListChallenges(ctx context.Context, limit, offset int, username string) ([]model.ChallengeDetail, int, error) {
	challenges, total, err := s.challengeRepo.ListChallenges(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	details := make([]model.ChallengeDetail, 0, len(challenges))
	for i := range challenges {
		detail, err := s.ledger.ChallengeDetail(ctx, challenges[i].ID, username)
		if err != nil {
			return nil, 0, err
		}
		details = append(details, *detail)
	}
	return details, total, nil
}

func (s *ChallengeService) GetChallenge(ctx context.Context, challengeID, username string) (*model.ChallengeDetail, error) {
	return s.ledger.ChallengeDetail(ctx, challengeID, username)
}

// DeleteChallenge removes a challenge and cascades through tags, flags,
// hints, solves, and purchases. Idempotent for a missing challenge.
func (s *ChallengeService) DeleteChallenge(ctx context.Context, challengeID, username string, groups []string) error {
	challenge, err := s.challengeRepo.FindChallengeByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil // idempotent
		}
		return err
	}
	if !security.IsAdmin(groups) && challenge.Submitter != username {
		return common.Errorf("only the submitter or an admin may delete a challenge: %w", common.ErrForbidden)
	}

	flags, err := s.flagRepo.GetFlagsByChallengeID(ctx, challengeID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range flags {
		if err := s.ledger.deleteFlagInTx(ctx, tx, flags[i].ID); err != nil {
			return err
		}
	}
	if err := s.challengeRepo.DeleteTagsByChallenge(ctx, tx, challengeID); err != nil {
		return err
	}
	if err := s.challengeRepo.DeleteChallenge(ctx, tx, challengeID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return common.Errorf("failed to commit transaction: %w", err)
	}

	s.ledger.scores.InvalidateScoreboard(ctx)
	return nil
}

// GetTags lists a challenge's tags.
func (s *ChallengeService) GetTags(ctx context.Context, challengeID string) ([]string, error) {
	if _, err := s.challengeRepo.FindChallengeByID(ctx, challengeID); err != nil {
		return nil, common.Errorf("challenge not found: %w", err)
	}
	return s.challengeRepo.GetTags(ctx, challengeID)
}

// AddTag attaches a tag to a challenge. Tags are deduplicated
// case-insensitively.
func (s *ChallengeService) AddTag(ctx context.Context, challengeID, tag, username string, groups []string) (*model.ChallengeTag, error) {
	challenge, err := s.challengeRepo.FindChallengeByID(ctx, challengeID)
	if err != nil {
		return nil, common.Errorf("challenge not found: %w", err)
	}
	if !security.IsAdmin(groups) && challenge.Submitter != username {
		return nil, common.Errorf("only the submitter or an admin may tag a challenge: %w", common.ErrForbidden)
	}

	exists, err := s.challengeRepo.TagExists(ctx, challengeID, tag)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, common.Errorf("tag already exists on this challenge: %w", common.ErrConflict)
	}

	if err := s.challengeRepo.AddTag(ctx, challengeID, tag); err != nil {
		return nil, err
	}
	return &model.ChallengeTag{ChallengeID: challengeID, Tag: tag}, nil
}

// RemoveTag detaches a tag, matching case-insensitively.
func (s *ChallengeService) RemoveTag(ctx context.Context, challengeID, tag, username string, groups []string) error {
	challenge, err := s.challengeRepo.FindChallengeByID(ctx, challengeID)
	if err != nil {
		return common.Errorf("challenge not found: %w", err)
	}
	if !security.IsAdmin(groups) && challenge.Submitter != username {
		return common.Errorf("only the submitter or an admin may untag a challenge: %w", common.ErrForbidden)
	}

	exists, err := s.challengeRepo.TagExists(ctx, challengeID, tag)
	if err != nil {
		return err
	}
	if !exists {
		return common.Errorf("tag not found on this challenge: %w", common.ErrNotFound)
	}
	return s.challengeRepo.RemoveTag(ctx, challengeID, tag)
}
