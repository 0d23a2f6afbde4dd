package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
	"github.com/AdamBeresnev/tourney-engine/internal/cache"
	"github.com/AdamBeresnev/tourney-engine/internal/store"
	"github.com/google/uuid"
)

// StandingsService computes standings on demand and memoizes them in the
// cache for the configured ttl.
type StandingsService struct {
	base
}

func NewStandingsService(d Deps) *StandingsService {
	return &StandingsService{base: newBase(d)}
}

// DivisionStandings ranks every team of the division by wins and point
// differential over all of the division's completed games.
func (s *StandingsService) DivisionStandings(ctx context.Context, divisionID uuid.UUID) ([]bracket.TeamStats, error) {
	key := cache.DivisionStandingsKey(divisionID)
	var standings []bracket.TeamStats
	if s.cached(ctx, key, &standings) {
		return standings, nil
	}

	teams, games, err := s.divisionScope(ctx, divisionID)
	if err != nil {
		return nil, err
	}
	standings = ComputeStandings(teams, games)

	s.remember(ctx, key, standings)
	return standings, nil
}

// PoolStandings ranks the pool's teams with the full tie-break chain.
func (s *StandingsService) PoolStandings(ctx context.Context, poolID uuid.UUID) ([]bracket.PoolStanding, error) {
	key := cache.PoolStandingsKey(poolID)
	var standings []bracket.PoolStanding
	if s.cached(ctx, key, &standings) {
		return standings, nil
	}

	standings, err := poolStandings(ctx, s.store, poolID)
	if err != nil {
		return nil, err
	}

	s.remember(ctx, key, standings)
	return standings, nil
}

// TeamStats returns one team's line of the division standings. Only the
// team's own totals live under the team key; the rank depends on every other
// team and is read from the division standings.
func (s *StandingsService) TeamStats(ctx context.Context, team string, divisionID uuid.UUID) (*bracket.TeamStats, error) {
	key := cache.TeamStatsKey(team, divisionID)
	var stats bracket.TeamStats
	if !s.cached(ctx, key, &stats) {
		_, games, err := s.divisionScope(ctx, divisionID)
		if err != nil {
			return nil, err
		}
		stats = CalculateTeamStats(team, games)
		s.remember(ctx, key, stats)
	}

	standings, err := s.DivisionStandings(ctx, divisionID)
	if err != nil {
		return nil, err
	}
	stats.Rank = 0
	for _, row := range standings {
		if row.TeamName == team {
			stats.Rank = row.Rank
			break
		}
	}
	return &stats, nil
}

func poolStandings(ctx context.Context, st store.Store, poolID uuid.UUID) ([]bracket.PoolStanding, error) {
	pool, err := st.GetPool(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}
	games, err := st.ListGames(ctx, store.GameFilter{PoolID: &pool.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list pool games: %w", err)
	}
	return ComputePoolStandings(pool.Teams, games), nil
}

// divisionScope collects the division's teams, pool teams first and then
// seeded bracket teams, along with all of its games.
func (s *StandingsService) divisionScope(ctx context.Context, divisionID uuid.UUID) ([]string, []bracket.Game, error) {
	pools, err := s.store.ListPools(ctx, divisionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list pools: %w", err)
	}
	brackets, err := s.store.ListBrackets(ctx, divisionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list brackets: %w", err)
	}
	games, err := s.store.ListGames(ctx, store.GameFilter{DivisionID: &divisionID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list games: %w", err)
	}

	var teams []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			teams = append(teams, name)
		}
	}
	for _, p := range pools {
		for _, t := range p.Teams {
			add(t)
		}
	}
	for _, br := range brackets {
		for _, seed := range br.Seeds {
			add(seed.TeamName)
		}
	}
	return teams, games, nil
}

// cached decodes key into dst. Cache failures are logged and treated as a miss.
func (s *StandingsService) cached(ctx context.Context, key string, dst any) bool {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("failed to read cache", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.Warn("discarding unreadable cache entry", "key", key, "error", err)
		return false
	}
	return true
}

func (s *StandingsService) remember(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.Warn("failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.log.Warn("failed to write cache", "key", key, "error", err)
	}
}
