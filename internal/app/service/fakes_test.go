package service

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harmonherring/CTF-API/internal/common"
	"github.com/harmonherring/CTF-API/internal/domain/model"
	"github.com/harmonherring/CTF-API/internal/domain/repository"
	"github.com/harmonherring/CTF-API/internal/platform/config"

	_ "modernc.org/sqlite"
)

// openTestDB returns an in-memory sqlite handle. The fakes below hold all
// data; the handle only supplies transaction plumbing for the services,
// whose repositories accept a nil-or-real tx either way.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testConfig() {
	if config.AppConfig == nil {
		config.AppConfig = &config.Config{
			ScoreboardCacheKey: "test:scoreboard",
			ScoreboardCacheTTL: time.Minute,
			ChallengePageSize:  10,
		}
	}
}

type solveKey struct{ flagID, username string }
type purchaseKey struct{ hintID, username string }

// fakeStore backs all repository fakes with one mutex so concurrent
// service calls hit the same serialization point a database would give.
type fakeStore struct {
	mu         sync.Mutex
	challenges map[string]model.Challenge
	tags       map[string][]string
	flags      map[string]model.Flag
	hints      map[string]model.Hint
	solves     map[solveKey]model.Solve
	purchases  map[purchaseKey]model.HintPurchase
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		challenges: map[string]model.Challenge{},
		tags:       map[string][]string{},
		flags:      map[string]model.Flag{},
		hints:      map[string]model.Hint{},
		solves:     map[solveKey]model.Solve{},
		purchases:  map[purchaseKey]model.HintPurchase{},
	}
}

func (s *fakeStore) addChallenge(id, submitter string) {
	s.challenges[id] = model.Challenge{ID: id, Title: id, Submitter: submitter}
}

func (s *fakeStore) addFlag(id, challengeID, secret string, points int) {
	s.flags[id] = model.Flag{ID: id, ChallengeID: challengeID, PointValue: points, Flag: secret, CreatedAt: time.Now()}
}

func (s *fakeStore) addHint(id, flagID string, cost int) {
	s.hints[id] = model.Hint{ID: id, FlagID: flagID, Cost: cost, Hint: "hint " + id, CreatedAt: time.Now()}
}

func (s *fakeStore) addSolve(flagID, username string, at time.Time) {
	s.solves[solveKey{flagID, username}] = model.Solve{FlagID: flagID, Username: username, CreatedAt: at}
}

func (s *fakeStore) addPurchase(hintID, username string, at time.Time) {
	s.purchases[purchaseKey{hintID, username}] = model.HintPurchase{HintID: hintID, Username: username, CreatedAt: at}
}

type fakeChallengeRepo struct{ store *fakeStore }

func (r *fakeChallengeRepo) CreateChallenge(ctx context.Context, tx *sql.Tx, c *model.Challenge) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.challenges {
		if existing.Slug == c.Slug && c.Slug != "" {
			return common.ErrConflict
		}
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.store.challenges[c.ID] = *c
	return nil
}

func (r *fakeChallengeRepo) FindChallengeByID(ctx context.Context, id string) (*model.Challenge, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.challenges[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &c, nil
}

func (r *fakeChallengeRepo) ListChallenges(ctx context.Context, limit, offset int) ([]model.Challenge, int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	all := []model.Challenge{}
	for _, c := range r.store.challenges {
		all = append(all, c)
	}
	return all, len(all), nil
}

func (r *fakeChallengeRepo) DeleteChallenge(ctx context.Context, tx *sql.Tx, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.challenges, id)
	return nil
}

func (r *fakeChallengeRepo) AddTag(ctx context.Context, challengeID, tag string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.tags[challengeID] = append(r.store.tags[challengeID], tag)
	return nil
}

func (r *fakeChallengeRepo) TagExists(ctx context.Context, challengeID, tag string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.tags[challengeID] {
		if strings.EqualFold(t, tag) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeChallengeRepo) GetTags(ctx context.Context, challengeID string) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]string{}, r.store.tags[challengeID]...), nil
}

func (r *fakeChallengeRepo) RemoveTag(ctx context.Context, challengeID, tag string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := []string{}
	for _, t := range r.store.tags[challengeID] {
		if !strings.EqualFold(t, tag) {
			kept = append(kept, t)
		}
	}
	r.store.tags[challengeID] = kept
	return nil
}

func (r *fakeChallengeRepo) DeleteTagsByChallenge(ctx context.Context, tx *sql.Tx, challengeID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.tags, challengeID)
	return nil
}

type fakeFlagRepo struct{ store *fakeStore }

func (r *fakeFlagRepo) CreateFlag(ctx context.Context, tx *sql.Tx, f *model.Flag) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.flags {
		if existing.ChallengeID == f.ChallengeID && existing.Flag == f.Flag {
			return common.ErrConflict
		}
	}
	f.CreatedAt = time.Now()
	r.store.flags[f.ID] = *f
	return nil
}

func (r *fakeFlagRepo) FindFlagByID(ctx context.Context, id string) (*model.Flag, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	f, ok := r.store.flags[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &f, nil
}

func (r *fakeFlagRepo) GetFlagsByChallengeID(ctx context.Context, challengeID string) ([]model.Flag, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	flags := []model.Flag{}
	for _, f := range r.store.flags {
		if f.ChallengeID == challengeID {
			flags = append(flags, f)
		}
	}
	return flags, nil
}

func (r *fakeFlagRepo) DeleteFlag(ctx context.Context, tx *sql.Tx, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.flags, id)
	return nil
}

func (r *fakeFlagRepo) CreateHint(ctx context.Context, tx *sql.Tx, h *model.Hint) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	h.CreatedAt = time.Now()
	r.store.hints[h.ID] = *h
	return nil
}

func (r *fakeFlagRepo) FindHintByID(ctx context.Context, id string) (*model.Hint, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	h, ok := r.store.hints[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &h, nil
}

func (r *fakeFlagRepo) GetHintsByFlagID(ctx context.Context, flagID string) ([]model.Hint, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	hints := []model.Hint{}
	for _, h := range r.store.hints {
		if h.FlagID == flagID {
			hints = append(hints, h)
		}
	}
	return hints, nil
}

func (r *fakeFlagRepo) DeleteHint(ctx context.Context, tx *sql.Tx, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.hints, id)
	return nil
}

func (r *fakeFlagRepo) DeleteHintsByFlag(ctx context.Context, tx *sql.Tx, flagID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, h := range r.store.hints {
		if h.FlagID == flagID {
			delete(r.store.hints, id)
		}
	}
	return nil
}

type fakeLedgerRepo struct{ store *fakeStore }

func (r *fakeLedgerRepo) CreateSolve(ctx context.Context, tx *sql.Tx, s *model.Solve) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := solveKey{s.FlagID, s.Username}
	if _, ok := r.store.solves[key]; ok {
		return common.ErrAlreadySolved
	}
	s.CreatedAt = time.Now()
	r.store.solves[key] = *s
	return nil
}

func (r *fakeLedgerRepo) SolveExists(ctx context.Context, flagID, username string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	_, ok := r.store.solves[solveKey{flagID, username}]
	return ok, nil
}

func (r *fakeLedgerRepo) ListSolvedUsernames(ctx context.Context, flagID string) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	usernames := []string{}
	for key := range r.store.solves {
		if key.flagID == flagID {
			usernames = append(usernames, key.username)
		}
	}
	return usernames, nil
}

func (r *fakeLedgerRepo) CreateHintPurchase(ctx context.Context, tx *sql.Tx, p *model.HintPurchase) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := purchaseKey{p.HintID, p.Username}
	if _, ok := r.store.purchases[key]; ok {
		return common.ErrAlreadyPurchased
	}
	p.CreatedAt = time.Now()
	r.store.purchases[key] = *p
	return nil
}

func (r *fakeLedgerRepo) HintPurchaseExists(ctx context.Context, hintID, username string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	_, ok := r.store.purchases[purchaseKey{hintID, username}]
	return ok, nil
}

func inWindow(t time.Time, f repository.ScoreFilter) bool {
	if f.After != nil && t.Before(*f.After) {
		return false
	}
	if f.Before != nil && t.After(*f.Before) {
		return false
	}
	return true
}

func (r *fakeLedgerRepo) ListSolveRows(ctx context.Context, f repository.ScoreFilter) ([]repository.SolveRow, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rows := []repository.SolveRow{}
	for key, s := range r.store.solves {
		if f.Username != "" && key.username != f.Username {
			continue
		}
		if !inWindow(s.CreatedAt, f) {
			continue
		}
		flag := r.store.flags[key.flagID]
		rows = append(rows, repository.SolveRow{
			FlagID:     key.flagID,
			Username:   key.username,
			PointValue: flag.PointValue,
			CreatedAt:  s.CreatedAt,
		})
	}
	return rows, nil
}

func (r *fakeLedgerRepo) ListPurchaseRows(ctx context.Context, f repository.ScoreFilter) ([]repository.PurchaseRow, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rows := []repository.PurchaseRow{}
	for key, p := range r.store.purchases {
		if f.Username != "" && key.username != f.Username {
			continue
		}
		if !inWindow(p.CreatedAt, f) {
			continue
		}
		hint := r.store.hints[key.hintID]
		flag := r.store.flags[hint.FlagID]
		challenge := r.store.challenges[flag.ChallengeID]
		rows = append(rows, repository.PurchaseRow{
			HintID:    key.hintID,
			Username:  key.username,
			Cost:      hint.Cost,
			Submitter: challenge.Submitter,
			CreatedAt: p.CreatedAt,
		})
	}
	return rows, nil
}

func (r *fakeLedgerRepo) DeleteSolvesByFlag(ctx context.Context, tx *sql.Tx, flagID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for key := range r.store.solves {
		if key.flagID == flagID {
			delete(r.store.solves, key)
		}
	}
	return nil
}

func (r *fakeLedgerRepo) DeletePurchasesByHint(ctx context.Context, tx *sql.Tx, hintID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for key := range r.store.purchases {
		if key.hintID == hintID {
			delete(r.store.purchases, key)
		}
	}
	return nil
}

func (r *fakeLedgerRepo) DeletePurchasesByFlag(ctx context.Context, tx *sql.Tx, flagID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for key := range r.store.purchases {
		hint := r.store.hints[key.hintID]
		if hint.FlagID == flagID {
			delete(r.store.purchases, key)
		}
	}
	return nil
}

type fakeTaxonomyRepo struct {
	mu           sync.Mutex
	categories   map[string]model.Category
	difficulties map[string]model.Difficulty
}

func newFakeTaxonomyRepo() *fakeTaxonomyRepo {
	return &fakeTaxonomyRepo{
		categories:   map[string]model.Category{},
		difficulties: map[string]model.Difficulty{},
	}
}

func (r *fakeTaxonomyRepo) CreateCategory(ctx context.Context, c *model.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[c.Name]; ok {
		return common.ErrConflict
	}
	r.categories[c.Name] = *c
	return nil
}

func (r *fakeTaxonomyRepo) FindCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.categories[name]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &c, nil
}

func (r *fakeTaxonomyRepo) ListCategories(ctx context.Context) ([]model.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Category{}
	for _, c := range r.categories {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeTaxonomyRepo) DeleteCategory(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.categories, name)
	return nil
}

func (r *fakeTaxonomyRepo) CreateDifficulty(ctx context.Context, d *model.Difficulty) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.difficulties[d.Name]; ok {
		return common.ErrConflict
	}
	r.difficulties[d.Name] = *d
	return nil
}

func (r *fakeTaxonomyRepo) FindDifficultyByName(ctx context.Context, name string) (*model.Difficulty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.difficulties[name]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &d, nil
}

func (r *fakeTaxonomyRepo) ListDifficulties(ctx context.Context) ([]model.Difficulty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Difficulty{}
	for _, d := range r.difficulties {
		out = append(out, d)
	}
	return out, nil
}

func (r *fakeTaxonomyRepo) DeleteDifficulty(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.difficulties, name)
	return nil
}

// newTestServices wires a full service stack over one fake store.
func newTestServices(t *testing.T) (*fakeStore, *LedgerService, *ScoreService) {
	t.Helper()
	testConfig()
	store := newFakeStore()
	ledgerRepo := &fakeLedgerRepo{store: store}
	scores := NewScoreService(ledgerRepo, nil)
	ledger := NewLedgerService(
		&fakeChallengeRepo{store: store},
		&fakeFlagRepo{store: store},
		ledgerRepo,
		scores,
		openTestDB(t),
	)
	return store, ledger, scores
}

// newTestChallengeService layers a challenge service with its taxonomy
// over the same fake store.
func newTestChallengeService(t *testing.T) (*fakeStore, *fakeTaxonomyRepo, *ChallengeService, *LedgerService) {
	t.Helper()
	testConfig()
	store := newFakeStore()
	taxonomy := newFakeTaxonomyRepo()
	ledgerRepo := &fakeLedgerRepo{store: store}
	challengeRepo := &fakeChallengeRepo{store: store}
	flagRepo := &fakeFlagRepo{store: store}
	db := openTestDB(t)
	scores := NewScoreService(ledgerRepo, nil)
	ledger := NewLedgerService(challengeRepo, flagRepo, ledgerRepo, scores, db)
	challenges := NewChallengeService(challengeRepo, flagRepo, taxonomy, ledger, db)
	return store, taxonomy, challenges, ledger
}
