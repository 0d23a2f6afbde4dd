package store

import (
	"context"

	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
	"github.com/google/uuid"
)

// GameFilter selects games by equality. Nil fields are not filtered on.
type GameFilter struct {
	DivisionID   *uuid.UUID
	PoolID       *uuid.UUID
	BracketID    *uuid.UUID
	BracketRound *int
}

func (f GameFilter) Matches(g *bracket.Game) bool {
	if f.DivisionID != nil && g.DivisionID != *f.DivisionID {
		return false
	}
	if f.PoolID != nil && (g.PoolID == nil || *g.PoolID != *f.PoolID) {
		return false
	}
	if f.BracketID != nil && (g.BracketID == nil || *g.BracketID != *f.BracketID) {
		return false
	}
	if f.BracketRound != nil && (g.BracketRound == nil || *g.BracketRound != *f.BracketRound) {
		return false
	}
	return true
}

// Store is the document storage the engines read from and write to.
// Get methods return an error wrapping bracket.ErrNotFound for unknown ids.
// Writes only happen through Commit, which applies a Batch atomically.
type Store interface {
	GetPool(ctx context.Context, id uuid.UUID) (*bracket.Pool, error)
	ListPools(ctx context.Context, divisionID uuid.UUID) ([]bracket.Pool, error)

	GetBracket(ctx context.Context, id uuid.UUID) (*bracket.Bracket, error)
	ListBrackets(ctx context.Context, divisionID uuid.UUID) ([]bracket.Bracket, error)

	GetGame(ctx context.Context, id uuid.UUID) (*bracket.Game, error)
	ListGames(ctx context.Context, filter GameFilter) ([]bracket.Game, error)

	Commit(ctx context.Context, b *Batch) error
}
