package events

import (
	"context"

	"github.com/google/uuid"
)

type Type string

const (
	PoolCreated        Type = "pool.created"
	PoolUpdated        Type = "pool.updated"
	PoolDeleted        Type = "pool.deleted"
	PoolGamesGenerated Type = "pool.games_generated"

	BracketCreated        Type = "bracket.created"
	BracketUpdated        Type = "bracket.updated"
	BracketDeleted        Type = "bracket.deleted"
	BracketGamesGenerated Type = "bracket.games_generated"
	BracketSeeded         Type = "bracket.seeded"

	GameScored      Type = "game.scored"
	GameDeleted     Type = "game.deleted"
	TeamsAdvanced   Type = "game.teams_advanced"
	DependenciesSet Type = "game.dependencies_set"
)

// Event announces a committed structural change. IDs lists the entities
// the change touched, primary entity first.
type Event struct {
	Type       Type        `json:"type"`
	DivisionID uuid.UUID   `json:"divisionId"`
	IDs        []uuid.UUID `json:"ids"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
