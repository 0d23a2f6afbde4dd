package service

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
	"github.com/AdamBeresnev/tourney-engine/internal/events"
	"github.com/AdamBeresnev/tourney-engine/internal/store"
	"github.com/google/uuid"
)

type GameService struct {
	base
	advancement *AdvancementService
}

func NewGameService(d Deps, advancement *AdvancementService) *GameService {
	if advancement == nil {
		advancement = NewAdvancementService(d)
	}
	return &GameService{base: newBase(d), advancement: advancement}
}

// DeletionImpact lists what deleting a game would touch. Transitive holds
// dependents reachable only through other dependents.
type DeletionImpact struct {
	GameID              uuid.UUID   `json:"gameId"`
	Direct              []uuid.UUID `json:"direct"`
	Transitive          []uuid.UUID `json:"transitive"`
	CompletedDependents []uuid.UUID `json:"completedDependents"`
	CanDelete           bool        `json:"canDelete"`
}

func (s *GameService) GetGame(ctx context.Context, gameID uuid.UUID) (*bracket.Game, error) {
	return s.store.GetGame(ctx, gameID)
}

func (s *GameService) ListGames(ctx context.Context, filter store.GameFilter) ([]bracket.Game, error) {
	return s.store.ListGames(ctx, filter)
}

// RecordScore stores a score and status. Completing a game advances its teams
// on a best-effort basis and every standings entry it affects is invalidated.
// Reopening a completed game empties the slots it filled downstream, and is
// refused once a downstream game has been completed.
func (s *GameService) RecordScore(ctx context.Context, gameID uuid.UUID, scoreA, scoreB int, status bracket.GameStatus) (*bracket.Game, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown game status %q", bracket.ErrValidation, status)
	}
	if scoreA < 0 || scoreB < 0 {
		return nil, fmt.Errorf("%w: scores must not be negative", bracket.ErrValidation)
	}

	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if status == bracket.GameCompleted && (game.TeamA == "" || game.TeamB == "") {
		return nil, fmt.Errorf("%w: game %s cannot be completed before both teams are known", bracket.ErrValidation, game.ID)
	}

	u := bracket.GameUpdate{
		ScoreA: bracket.Set(scoreA),
		ScoreB: bracket.Set(scoreB),
		Status: bracket.Set(status),
	}
	b := store.NewBatch()
	b.UpdateGame(game.ID, u)
	if game.IsCompleted() && status != bracket.GameCompleted {
		if err := s.queueReopen(ctx, game, b); err != nil {
			return nil, err
		}
	}
	if err := s.store.Commit(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to record score: %w", err)
	}
	u.Apply(game)

	s.invalidateGame(ctx, game)
	s.publish(ctx, events.GameScored, game.DivisionID, game.ID)

	if game.IsCompleted() {
		s.advancement.AutoAdvanceTeams(ctx, game.ID)
	}
	return game, nil
}

func (s *GameService) queueReopen(ctx context.Context, game *bracket.Game, b *store.Batch) error {
	for _, feed := range []*uuid.UUID{game.WinnerFeedsIntoGame, game.LoserFeedsIntoGame} {
		if feed == nil {
			continue
		}
		target, err := s.store.GetGame(ctx, *feed)
		if err != nil {
			return fmt.Errorf("failed to get dependent game: %w", err)
		}
		if target.IsCompleted() {
			return fmt.Errorf("%w: game %s feeds completed game %s", bracket.ErrConflict, game.ID, target.ID)
		}
		idx := target.DependencyIndex(game.ID)
		if idx < 0 {
			continue
		}
		var u bracket.GameUpdate
		u.SetSlot(idx, "")
		b.UpdateGame(target.ID, u)
	}
	return nil
}

func (s *GameService) DeletionImpact(ctx context.Context, gameID uuid.UUID) (*DeletionImpact, error) {
	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	games, err := s.store.ListGames(ctx, store.GameFilter{DivisionID: &game.DivisionID})
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	impact := analyzeDeletion(game.ID, games)
	return &impact, nil
}

// DeleteGame removes a game unless a direct or transitive dependent has been
// completed. Direct dependents lose the dependency and the team slot it fed.
func (s *GameService) DeleteGame(ctx context.Context, gameID uuid.UUID) error {
	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to get game: %w", err)
	}

	// dependents are read here, right before the guarded write
	games, err := s.store.ListGames(ctx, store.GameFilter{DivisionID: &game.DivisionID})
	if err != nil {
		return fmt.Errorf("failed to list games: %w", err)
	}
	impact := analyzeDeletion(game.ID, games)
	if !impact.CanDelete {
		return fmt.Errorf("%w: game %s has %d completed dependent games",
			bracket.ErrConflict, game.ID, len(impact.CompletedDependents))
	}

	byID := make(map[uuid.UUID]*bracket.Game, len(games))
	for i := range games {
		byID[games[i].ID] = &games[i]
	}

	b := store.NewBatch()
	for _, id := range impact.Direct {
		b.UpdateGame(id, detachDependency(byID[id], game.ID))
	}
	for _, id := range game.DependsOnGames {
		if source, ok := byID[id]; ok {
			if u, changed := clearFeeds(source, game.ID); changed {
				b.UpdateGame(source.ID, u)
			}
		}
	}
	b.DeleteGame(game.ID)

	if err := s.store.Commit(ctx, b); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	if game.IsCompleted() {
		s.invalidateGame(ctx, game)
	}
	s.log.Info("game deleted", "game_id", game.ID, "dependents", len(impact.Direct))
	s.publish(ctx, events.GameDeleted, game.DivisionID, append([]uuid.UUID{game.ID}, impact.Direct...)...)
	return nil
}

func analyzeDeletion(gameID uuid.UUID, games []bracket.Game) DeletionImpact {
	graph := newGameGraph(games)
	impact := DeletionImpact{
		GameID:              gameID,
		Direct:              graph.dependents(gameID),
		Transitive:          []uuid.UUID{},
		CompletedDependents: []uuid.UUID{},
	}

	direct := make(map[uuid.UUID]bool, len(impact.Direct))
	for _, id := range impact.Direct {
		direct[id] = true
	}
	all := graph.descendants(gameID)
	for _, id := range all {
		if !direct[id] {
			impact.Transitive = append(impact.Transitive, id)
		}
	}

	completed := make(map[uuid.UUID]bool)
	for i := range games {
		if games[i].IsCompleted() {
			completed[games[i].ID] = true
		}
	}
	for _, id := range all {
		if completed[id] {
			impact.CompletedDependents = append(impact.CompletedDependents, id)
		}
	}
	impact.CanDelete = len(impact.CompletedDependents) == 0
	return impact
}

// detachDependency drops removed from g's dependencies and clears the slot
// it fed. Dependencies are positional, so when the first one goes the team
// fed by the second moves up into TeamA.
func detachDependency(g *bracket.Game, removed uuid.UUID) bracket.GameUpdate {
	idx := g.DependencyIndex(removed)
	remaining := make([]uuid.UUID, 0, len(g.DependsOnGames))
	for _, id := range g.DependsOnGames {
		if id != removed {
			remaining = append(remaining, id)
		}
	}

	u := bracket.GameUpdate{DependsOnGames: bracket.Set(remaining)}
	switch {
	case idx == 0 && len(remaining) > 0:
		u.TeamA = bracket.Set(g.TeamB)
		u.TeamB = bracket.Set("")
	case idx >= 0:
		u.SetSlot(idx, "")
	}
	return u
}
