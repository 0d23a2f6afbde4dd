package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
	"github.com/AdamBeresnev/tourney-engine/internal/events"
	"github.com/AdamBeresnev/tourney-engine/internal/store"
	"github.com/AdamBeresnev/tourney-engine/internal/utils"
	"github.com/google/uuid"
)

type AdvancementService struct {
	base
}

func NewAdvancementService(d Deps) *AdvancementService {
	return &AdvancementService{base: newBase(d)}
}

// DependencySource is one upstream game of SetupGameDependencies. TakesWinner
// selects whether its winner or its loser moves on.
type DependencySource struct {
	GameID      uuid.UUID `json:"gameId"`
	TakesWinner bool      `json:"takesWinner"`
}

// AdvanceWinner moves winner into the slot of the game it feeds. A game that
// feeds nothing is a final and advancing from it is a no-op.
func (s *AdvancementService) AdvanceWinner(ctx context.Context, gameID uuid.UUID, winner string) error {
	game, err := s.completedGame(ctx, gameID)
	if err != nil {
		return err
	}
	if !game.HasTeam(winner) {
		return fmt.Errorf("%w: %q did not play in game %s", bracket.ErrValidation, winner, game.ID)
	}
	if game.WinnerFeedsIntoGame == nil {
		return nil
	}

	updates := make(map[uuid.UUID]bracket.GameUpdate)
	if err := s.queueSlot(ctx, game, *game.WinnerFeedsIntoGame, winner, updates); err != nil {
		return err
	}
	return s.commitAdvance(ctx, game, updates)
}

// AdvanceTeams also moves loser into the game named by LoserFeedsIntoGame,
// which is how consolation and third place games are fed.
func (s *AdvancementService) AdvanceTeams(ctx context.Context, gameID uuid.UUID, winner, loser string) error {
	game, err := s.completedGame(ctx, gameID)
	if err != nil {
		return err
	}
	if winner == loser {
		return fmt.Errorf("%w: winner and loser must differ", bracket.ErrValidation)
	}
	for _, team := range []string{winner, loser} {
		if !game.HasTeam(team) {
			return fmt.Errorf("%w: %q did not play in game %s", bracket.ErrValidation, team, game.ID)
		}
	}

	updates := make(map[uuid.UUID]bracket.GameUpdate)
	if game.WinnerFeedsIntoGame != nil {
		if err := s.queueSlot(ctx, game, *game.WinnerFeedsIntoGame, winner, updates); err != nil {
			return err
		}
	}
	if game.LoserFeedsIntoGame != nil {
		if err := s.queueSlot(ctx, game, *game.LoserFeedsIntoGame, loser, updates); err != nil {
			return err
		}
	}
	if len(updates) == 0 {
		return nil
	}
	return s.commitAdvance(ctx, game, updates)
}

// AutoAdvanceTeams advances by score. It is a side effect of completing a
// game, so failures are logged and reported only through the return value.
func (s *AdvancementService) AutoAdvanceTeams(ctx context.Context, gameID uuid.UUID) bool {
	if err := s.autoAdvance(ctx, gameID); err != nil {
		s.log.Warn("auto advancement skipped", "game_id", gameID, "error", err)
		return false
	}
	return true
}

func (s *AdvancementService) autoAdvance(ctx context.Context, gameID uuid.UUID) error {
	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to get game: %w", err)
	}
	winner, loser, ok := game.Result()
	if !ok {
		return fmt.Errorf("%w: game %s ended in a tie", bracket.ErrValidation, game.ID)
	}
	return s.AdvanceTeams(ctx, gameID, winner, loser)
}

func (s *AdvancementService) completedGame(ctx context.Context, gameID uuid.UUID) (*bracket.Game, error) {
	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if !game.IsCompleted() {
		return nil, fmt.Errorf("%w: game %s is not completed", bracket.ErrValidation, game.ID)
	}
	return game, nil
}

// queueSlot records that team goes into the slot of target fed by source.
// Updates for the same target are merged.
func (s *AdvancementService) queueSlot(ctx context.Context, source *bracket.Game, targetID uuid.UUID, team string, updates map[uuid.UUID]bracket.GameUpdate) error {
	target, err := s.store.GetGame(ctx, targetID)
	if err != nil {
		return fmt.Errorf("failed to get next game: %w", err)
	}
	idx := target.DependencyIndex(source.ID)
	if idx < 0 {
		return fmt.Errorf("%w: game %s is not a dependency of game %s", bracket.ErrValidation, source.ID, target.ID)
	}
	if target.IsCompleted() {
		return fmt.Errorf("%w: next game %s is already completed", bracket.ErrConflict, target.ID)
	}
	var u bracket.GameUpdate
	u.SetSlot(idx, team)
	updates[target.ID] = updates[target.ID].Merge(u)
	return nil
}

func (s *AdvancementService) commitAdvance(ctx context.Context, game *bracket.Game, updates map[uuid.UUID]bracket.GameUpdate) error {
	b := store.NewBatch()
	ids := []uuid.UUID{game.ID}
	for id, u := range updates {
		b.UpdateGame(id, u)
		ids = append(ids, id)
	}
	if err := s.store.Commit(ctx, b); err != nil {
		return fmt.Errorf("failed to advance teams: %w", err)
	}
	s.publish(ctx, events.TeamsAdvanced, game.DivisionID, ids...)
	return nil
}

// SetupGameDependencies makes target depend on up to two source games, in
// order, and points each source's winner or loser feed at target.
func (s *AdvancementService) SetupGameDependencies(ctx context.Context, targetID uuid.UUID, sources []DependencySource) error {
	if len(sources) == 0 || len(sources) > bracket.MaxDependencies {
		return fmt.Errorf("%w: a game takes between 1 and %d dependencies, got %d",
			bracket.ErrValidation, bracket.MaxDependencies, len(sources))
	}

	target, err := s.store.GetGame(ctx, targetID)
	if err != nil {
		return fmt.Errorf("failed to get game: %w", err)
	}
	if target.IsCompleted() {
		return fmt.Errorf("%w: game %s is already completed", bracket.ErrConflict, target.ID)
	}

	games, err := s.store.ListGames(ctx, store.GameFilter{DivisionID: &target.DivisionID})
	if err != nil {
		return fmt.Errorf("failed to list games: %w", err)
	}
	byID := make(map[uuid.UUID]*bracket.Game, len(games))
	for i := range games {
		byID[games[i].ID] = &games[i]
	}

	deps := make([]uuid.UUID, 0, len(sources))
	b := store.NewBatch()
	for _, src := range sources {
		if src.GameID == target.ID {
			return fmt.Errorf("%w: game %s cannot depend on itself", bracket.ErrValidation, target.ID)
		}
		for _, d := range deps {
			if d == src.GameID {
				return fmt.Errorf("%w: game %s is listed twice", bracket.ErrValidation, src.GameID)
			}
		}
		source, ok := byID[src.GameID]
		if !ok {
			if _, err := s.store.GetGame(ctx, src.GameID); err != nil {
				return fmt.Errorf("failed to get source game: %w", err)
			}
			return fmt.Errorf("%w: game %s belongs to another division", bracket.ErrValidation, src.GameID)
		}

		feed := source.WinnerFeedsIntoGame
		if !src.TakesWinner {
			feed = source.LoserFeedsIntoGame
		}
		if feed != nil && *feed != target.ID {
			return fmt.Errorf("%w: game %s already feeds game %s", bracket.ErrValidation, source.ID, *feed)
		}

		var u bracket.GameUpdate
		if src.TakesWinner {
			u.WinnerFeedsIntoGame = bracket.Set(utils.Ptr(target.ID))
			if isFeed(source.LoserFeedsIntoGame, target.ID) {
				u.LoserFeedsIntoGame = bracket.Set[*uuid.UUID](nil)
			}
		} else {
			u.LoserFeedsIntoGame = bracket.Set(utils.Ptr(target.ID))
			if isFeed(source.WinnerFeedsIntoGame, target.ID) {
				u.WinnerFeedsIntoGame = bracket.Set[*uuid.UUID](nil)
			}
		}
		b.UpdateGame(source.ID, u)
		deps = append(deps, source.ID)
	}

	// sources dropped by the rewiring stop feeding target
	for _, old := range target.DependsOnGames {
		if containsID(deps, old) {
			continue
		}
		if source, ok := byID[old]; ok {
			if u, changed := clearFeeds(source, target.ID); changed {
				b.UpdateGame(source.ID, u)
			}
		}
	}

	graph := newGameGraph(games)
	graph.removeIncoming(target.ID)
	for _, d := range deps {
		graph.addEdge(d, target.ID)
	}
	if stuck := graph.cyclic(); stuck != nil {
		return fmt.Errorf("%w: dependencies of game %s would create a cycle through %d games",
			bracket.ErrValidation, target.ID, len(stuck))
	}

	tu := bracket.GameUpdate{DependsOnGames: bracket.Set(deps)}
	for i := 0; i < bracket.MaxDependencies; i++ {
		if dependencyAt(target.DependsOnGames, i) != dependencyAt(deps, i) {
			tu.SetSlot(i, "")
		}
	}
	b.UpdateGame(target.ID, tu)

	if err := s.store.Commit(ctx, b); err != nil {
		return fmt.Errorf("failed to save dependencies: %w", err)
	}
	s.publish(ctx, events.DependenciesSet, target.DivisionID, append([]uuid.UUID{target.ID}, deps...)...)
	return nil
}

// RemoveGameDependencies detaches a game from its sources and empties both
// of its team slots.
func (s *AdvancementService) RemoveGameDependencies(ctx context.Context, gameID uuid.UUID) error {
	target, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to get game: %w", err)
	}
	if target.IsCompleted() {
		return fmt.Errorf("%w: game %s is already completed", bracket.ErrConflict, target.ID)
	}

	b := store.NewBatch()
	for _, id := range target.DependsOnGames {
		source, err := s.store.GetGame(ctx, id)
		if errors.Is(err, bracket.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to get source game: %w", err)
		}
		if u, changed := clearFeeds(source, target.ID); changed {
			b.UpdateGame(source.ID, u)
		}
	}
	b.UpdateGame(target.ID, bracket.GameUpdate{
		DependsOnGames: bracket.Set([]uuid.UUID{}),
		TeamA:          bracket.Set(""),
		TeamB:          bracket.Set(""),
	})

	if err := s.store.Commit(ctx, b); err != nil {
		return fmt.Errorf("failed to remove dependencies: %w", err)
	}
	s.publish(ctx, events.DependenciesSet, target.DivisionID, target.ID)
	return nil
}

type poolEntry struct {
	team   string
	poolID uuid.UUID
	rank   int
	diff   int
}

// SeedBracketFromPools fills the bracket's seeds from pool standings: every
// rank-1 team first, then every rank-2 team, and so on, each rank ordered by
// point differential. A pool with an advancement count only sends that many
// teams, and the bracket size is checked against the teams that remain.
// Round 1 is re-derived from the new seeds.
func (s *AdvancementService) SeedBracketFromPools(ctx context.Context, bracketID uuid.UUID, poolIDs []uuid.UUID) (*bracket.Bracket, error) {
	br, err := s.store.GetBracket(ctx, bracketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bracket: %w", err)
	}
	if len(poolIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one pool is required", bracket.ErrValidation)
	}

	var entries []poolEntry
	seen := make(map[uuid.UUID]bool, len(poolIDs))
	for _, poolID := range poolIDs {
		if seen[poolID] {
			return nil, fmt.Errorf("%w: pool %s is listed twice", bracket.ErrValidation, poolID)
		}
		seen[poolID] = true

		pool, err := s.store.GetPool(ctx, poolID)
		if err != nil {
			return nil, fmt.Errorf("failed to get pool: %w", err)
		}
		if pool.DivisionID != br.DivisionID {
			return nil, fmt.Errorf("%w: pool %q is not in the bracket's division", bracket.ErrValidation, pool.Name)
		}
		standings, err := poolStandings(ctx, s.store, poolID)
		if err != nil {
			return nil, err
		}
		limit := len(standings)
		if pool.AdvancementCount != nil && *pool.AdvancementCount < limit {
			limit = *pool.AdvancementCount
		}
		for _, row := range standings[:limit] {
			entries = append(entries, poolEntry{team: row.TeamName, poolID: pool.ID, rank: row.Rank, diff: row.PointDifferential})
		}
	}

	if len(entries) > br.Size {
		return nil, fmt.Errorf("%w: %d pool teams do not fit a bracket of size %d",
			bracket.ErrValidation, len(entries), br.Size)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].rank != entries[j].rank {
			return entries[i].rank < entries[j].rank
		}
		return entries[i].diff > entries[j].diff
	})

	seeds := bracket.EmptySeeds(br.Size)
	for i, e := range entries {
		seeds[i].TeamName = e.team
		seeds[i].SourcePoolID = utils.Ptr(e.poolID)
		seeds[i].SourcePoolRank = utils.Ptr(e.rank)
	}
	br.Seeds = seeds

	b := store.NewBatch()
	b.UpdateBracket(br.ID, bracket.BracketUpdate{Seeds: bracket.Set(seeds)})
	if err := rederiveRoundOne(ctx, s.store, br, b); err != nil {
		return nil, err
	}
	if err := s.store.Commit(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to seed bracket: %w", err)
	}

	s.log.Info("bracket seeded from pools", "bracket_id", br.ID, "pools", len(poolIDs), "teams", len(entries))
	s.publish(ctx, events.BracketSeeded, br.DivisionID, append([]uuid.UUID{br.ID}, poolIDs...)...)
	return br, nil
}

// clearFeeds returns the update that stops source from feeding target.
func clearFeeds(source *bracket.Game, target uuid.UUID) (bracket.GameUpdate, bool) {
	var u bracket.GameUpdate
	changed := false
	if isFeed(source.WinnerFeedsIntoGame, target) {
		u.WinnerFeedsIntoGame = bracket.Set[*uuid.UUID](nil)
		changed = true
	}
	if isFeed(source.LoserFeedsIntoGame, target) {
		u.LoserFeedsIntoGame = bracket.Set[*uuid.UUID](nil)
		changed = true
	}
	return u, changed
}

func isFeed(feed *uuid.UUID, target uuid.UUID) bool {
	return feed != nil && *feed == target
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func dependencyAt(deps []uuid.UUID, i int) uuid.UUID {
	if i < len(deps) {
		return deps[i]
	}
	return uuid.Nil
}
