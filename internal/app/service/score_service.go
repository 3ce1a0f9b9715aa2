package service

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"github.com/harmonherring/CTF-API/internal/common"
	"github.com/harmonherring/CTF-API/internal/domain/model"
	"github.com/harmonherring/CTF-API/internal/domain/repository"
	"github.com/harmonherring/CTF-API/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

// ScoreService derives scores and the scoreboard from the solve and
// purchase ledgers. It keeps no state of its own beyond a redis cache of
// the full scoreboard; every result is recomputed from ledger rows.
type ScoreService struct {
	ledgerRepo repository.LedgerRepository
	rdb        *redis.Client // nil disables caching
}

func NewScoreService(ledgerRepo repository.LedgerRepository, rdb *redis.Client) *ScoreService {
	return &ScoreService{ledgerRepo: ledgerRepo, rdb: rdb}
}

// UserScore computes the score and solved-flag count for one user:
// the sum of point values over solved flags minus the cost of purchased
// hints, except hints on challenges the user submitted themselves.
// The result may be negative for pre-existing data; PurchaseHint prevents
// new negative transitions but nothing is fixed up retroactively.
func (s *ScoreService) UserScore(ctx context.Context, username string) (*model.UserScore, error) {
	solves, err := s.ledgerRepo.ListSolveRows(ctx, repository.ScoreFilter{Username: username})
	if err != nil {
		return nil, common.Errorf("failed to list solves: %w", err)
	}
	purchases, err := s.ledgerRepo.ListPurchaseRows(ctx, repository.ScoreFilter{Username: username})
	if err != nil {
		return nil, common.Errorf("failed to list hint purchases: %w", err)
	}

	score := &model.UserScore{}
	for _, solve := range solves {
		score.Score += solve.PointValue
		score.SolvedFlags++
	}
	for _, purchase := range purchases {
		if purchase.Submitter == username {
			continue // authors are never charged for their own hints
		}
		score.Score -= purchase.Cost
	}
	return score, nil
}

// Scoreboard computes the ranked leaderboard over ledger rows whose
// creation time falls inside [after, before], both ends inclusive. Rows
// are ordered by score descending, then solved flags descending, then
// username ascending; the order is total, so results are deterministic.
//
// When limit is positive and more users qualify, the list is cut to the
// first limit entries of that order. Everyone scoring strictly above the
// value at rank limit is therefore always present, and ties at the cutoff
// are resolved by the solves-then-username rule rather than at random.
func (s *ScoreService) Scoreboard(ctx context.Context, after, before *time.Time, limit int) ([]model.ScoreboardEntry, error) {
	cacheable := after == nil && before == nil && limit <= 0
	if cacheable {
		if cached, ok := s.cachedScoreboard(ctx); ok {
			return cached, nil
		}
	}

	filter := repository.ScoreFilter{After: after, Before: before}
	solves, err := s.ledgerRepo.ListSolveRows(ctx, filter)
	if err != nil {
		return nil, common.Errorf("failed to list solves: %w", err)
	}
	purchases, err := s.ledgerRepo.ListPurchaseRows(ctx, filter)
	if err != nil {
		return nil, common.Errorf("failed to list hint purchases: %w", err)
	}

	totals := map[string]*model.ScoreboardEntry{}
	entryFor := func(username string) *model.ScoreboardEntry {
		if entry, ok := totals[username]; ok {
			return entry
		}
		entry := &model.ScoreboardEntry{Username: username}
		totals[username] = entry
		return entry
	}
	for _, solve := range solves {
		entry := entryFor(solve.Username)
		entry.Score += solve.PointValue
		entry.SolvedFlags++
	}
	for _, purchase := range purchases {
		if purchase.Submitter == purchase.Username {
			continue
		}
		entryFor(purchase.Username).Score -= purchase.Cost
	}

	entries := make([]model.ScoreboardEntry, 0, len(totals))
	for _, entry := range totals {
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].SolvedFlags != entries[j].SolvedFlags {
			return entries[i].SolvedFlags > entries[j].SolvedFlags
		}
		return entries[i].Username < entries[j].Username
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	if cacheable {
		s.storeScoreboard(ctx, entries)
	}
	return entries, nil
}

// InvalidateScoreboard drops the cached scoreboard. Called by the ledger
// after every solve, purchase, or cascade delete.
func (s *ScoreService) InvalidateScoreboard(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, config.AppConfig.ScoreboardCacheKey).Err(); err != nil {
		log.Printf("Failed to invalidate scoreboard cache: %v", err)
	}
}

func (s *ScoreService) cachedScoreboard(ctx context.Context) ([]model.ScoreboardEntry, bool) {
	if s.rdb == nil {
		return nil, false
	}
	raw, err := s.rdb.Get(ctx, config.AppConfig.ScoreboardCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Failed to read scoreboard cache: %v", err)
		}
		return nil, false
	}
	var entries []model.ScoreboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Printf("Discarding malformed scoreboard cache: %v", err)
		return nil, false
	}
	return entries, true
}

func (s *ScoreService) storeScoreboard(ctx context.Context, entries []model.ScoreboardEntry) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, config.AppConfig.ScoreboardCacheKey, raw, config.AppConfig.ScoreboardCacheTTL).Err(); err != nil {
		log.Printf("Failed to write scoreboard cache: %v", err)
	}
}

// ParseScoreBound parses a leaderboard date bound. RFC 3339 and the
// date-only form are accepted; anything else is ErrInvalidDate.
func ParseScoreBound(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, common.Errorf("could not parse %q: %w", value, common.ErrInvalidDate)
}
