package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
	"github.com/AdamBeresnev/tourney-engine/internal/cache"
	"github.com/AdamBeresnev/tourney-engine/internal/events"
	"github.com/AdamBeresnev/tourney-engine/internal/store"
	"github.com/AdamBeresnev/tourney-engine/internal/utils"
	"github.com/google/uuid"
)

type PoolService struct {
	base
}

func NewPoolService(d Deps) *PoolService {
	return &PoolService{base: newBase(d)}
}

type CreatePoolInput struct {
	DivisionID       uuid.UUID `json:"divisionId"`
	TournamentID     uuid.UUID `json:"tournamentId"`
	Name             string    `json:"name"`
	Teams            []string  `json:"teams"`
	AdvancementCount *int      `json:"advancementCount,omitempty"`
}

func (s *PoolService) CreatePool(ctx context.Context, in CreatePoolInput) (*bracket.Pool, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: pool name is required", bracket.ErrValidation)
	}
	teams, err := normalizeTeams(in.Teams)
	if err != nil {
		return nil, err
	}
	if err := checkAdvancementCount(in.AdvancementCount, len(teams)); err != nil {
		return nil, err
	}

	existing, err := s.store.ListPools(ctx, in.DivisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	for _, p := range existing {
		if bracket.TeamKey(p.Name) == bracket.TeamKey(name) {
			return nil, fmt.Errorf("%w: pool %q already exists in this division", bracket.ErrValidation, name)
		}
	}
	if err := checkTeamsUnassigned(existing, uuid.Nil, teams); err != nil {
		return nil, err
	}

	pool := bracket.Pool{
		ID:               uuid.New(),
		DivisionID:       in.DivisionID,
		TournamentID:     in.TournamentID,
		Name:             name,
		Teams:            teams,
		AdvancementCount: in.AdvancementCount,
	}

	b := store.NewBatch()
	b.SetPool(pool)
	if err := s.store.Commit(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	s.log.Info("pool created", "pool_id", pool.ID, "division_id", pool.DivisionID, "teams", len(teams))
	s.publish(ctx, events.PoolCreated, pool.DivisionID, pool.ID)
	return &pool, nil
}

func (s *PoolService) GetPool(ctx context.Context, poolID uuid.UUID) (*bracket.Pool, error) {
	return s.store.GetPool(ctx, poolID)
}

func (s *PoolService) ListPools(ctx context.Context, divisionID uuid.UUID) ([]bracket.Pool, error) {
	return s.store.ListPools(ctx, divisionID)
}

// GeneratePoolGames emits one game per unordered pair of pool teams, replacing
// any games the pool already has.
func (s *PoolService) GeneratePoolGames(ctx context.Context, poolID uuid.UUID) ([]bracket.Game, error) {
	pool, err := s.store.GetPool(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}
	if len(pool.Teams) < bracket.MinPoolTeams {
		return nil, fmt.Errorf("%w: pool %q needs at least %d teams", bracket.ErrValidation, pool.Name, bracket.MinPoolTeams)
	}

	b := store.NewBatch()
	if err := s.clearPoolGames(ctx, pool, b); err != nil {
		return nil, err
	}
	games := BuildPoolGames(pool)
	for _, g := range games {
		b.SetGame(g)
	}
	if err := s.store.Commit(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to save pool games: %w", err)
	}

	s.log.Info("pool games generated", "pool_id", pool.ID, "games", len(games))
	s.publish(ctx, events.PoolGamesGenerated, pool.DivisionID, append([]uuid.UUID{pool.ID}, gameIDs(games)...)...)
	return games, nil
}

// UpdatePoolTeams replaces the team list and regenerates the schedule. It is
// refused once any pool game has been completed.
func (s *PoolService) UpdatePoolTeams(ctx context.Context, poolID uuid.UUID, teams []string) (*bracket.Pool, error) {
	pool, err := s.store.GetPool(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}
	teams, err = normalizeTeams(teams)
	if err != nil {
		return nil, err
	}
	if err := checkAdvancementCount(pool.AdvancementCount, len(teams)); err != nil {
		return nil, err
	}

	others, err := s.store.ListPools(ctx, pool.DivisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	if err := checkTeamsUnassigned(others, pool.ID, teams); err != nil {
		return nil, err
	}

	b := store.NewBatch()
	if err := s.clearPoolGames(ctx, pool, b); err != nil {
		return nil, err
	}
	b.UpdatePool(pool.ID, bracket.PoolUpdate{Teams: bracket.Set(teams)})
	pool.Teams = teams

	games := BuildPoolGames(pool)
	for _, g := range games {
		b.SetGame(g)
	}
	if err := s.store.Commit(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to update pool teams: %w", err)
	}

	s.invalidate(ctx, cache.PoolStandingsKey(pool.ID))
	s.publish(ctx, events.PoolUpdated, pool.DivisionID, pool.ID)
	return pool, nil
}

// DeletePool removes the pool together with its games.
func (s *PoolService) DeletePool(ctx context.Context, poolID uuid.UUID) error {
	pool, err := s.store.GetPool(ctx, poolID)
	if err != nil {
		return fmt.Errorf("failed to get pool: %w", err)
	}

	b := store.NewBatch()
	if err := s.clearPoolGames(ctx, pool, b); err != nil {
		return err
	}
	b.DeletePool(pool.ID)
	if err := s.store.Commit(ctx, b); err != nil {
		return fmt.Errorf("failed to delete pool: %w", err)
	}

	s.invalidate(ctx, cache.PoolStandingsKey(pool.ID))
	s.publish(ctx, events.PoolDeleted, pool.DivisionID, pool.ID)
	return nil
}

// clearPoolGames queues deletion of every game of the pool, or fails with
// ErrConflict when one of them is already completed.
func (s *PoolService) clearPoolGames(ctx context.Context, pool *bracket.Pool, b *store.Batch) error {
	games, err := s.store.ListGames(ctx, store.GameFilter{PoolID: &pool.ID})
	if err != nil {
		return fmt.Errorf("failed to list pool games: %w", err)
	}
	if hasCompleted(games) {
		return fmt.Errorf("%w: pool %q already has completed games", bracket.ErrConflict, pool.Name)
	}
	for _, g := range games {
		b.DeleteGame(g.ID)
	}
	return nil
}

// BuildPoolGames pairs teams[i] with teams[j] for every i < j.
func BuildPoolGames(pool *bracket.Pool) []bracket.Game {
	n := len(pool.Teams)
	games := make([]bracket.Game, 0, n*(n-1)/2)
	number := 1
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			games = append(games, bracket.Game{
				ID:             uuid.New(),
				TournamentID:   pool.TournamentID,
				DivisionID:     pool.DivisionID,
				TeamA:          pool.Teams[i],
				TeamB:          pool.Teams[j],
				Status:         bracket.GameScheduled,
				PoolID:         utils.Ptr(pool.ID),
				PoolGameNumber: utils.Ptr(number),
			})
			number++
		}
	}
	return games
}

// normalizeTeams trims names and enforces pool size and uniqueness.
func normalizeTeams(teams []string) ([]string, error) {
	if len(teams) < bracket.MinPoolTeams || len(teams) > bracket.MaxPoolTeams {
		return nil, fmt.Errorf("%w: a pool needs between %d and %d teams, got %d",
			bracket.ErrValidation, bracket.MinPoolTeams, bracket.MaxPoolTeams, len(teams))
	}
	out := make([]string, 0, len(teams))
	seen := make(map[string]bool, len(teams))
	for _, t := range teams {
		name := strings.TrimSpace(t)
		if name == "" {
			return nil, fmt.Errorf("%w: team names must not be empty", bracket.ErrValidation)
		}
		key := bracket.TeamKey(name)
		if seen[key] {
			return nil, fmt.Errorf("%w: team %q is listed more than once", bracket.ErrValidation, name)
		}
		seen[key] = true
		out = append(out, name)
	}
	return out, nil
}

func checkAdvancementCount(count *int, teams int) error {
	if count == nil {
		return nil
	}
	if *count < 0 || *count > teams {
		return fmt.Errorf("%w: advancement count %d must be between 0 and the team count %d",
			bracket.ErrValidation, *count, teams)
	}
	return nil
}

// checkTeamsUnassigned fails when one of teams already plays in a pool other than self.
func checkTeamsUnassigned(pools []bracket.Pool, self uuid.UUID, teams []string) error {
	for i := range pools {
		if pools[i].ID == self {
			continue
		}
		for _, t := range teams {
			if pools[i].HasTeam(t) {
				return fmt.Errorf("%w: team %q is already assigned to pool %q", bracket.ErrValidation, t, pools[i].Name)
			}
		}
	}
	return nil
}
