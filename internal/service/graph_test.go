package service

import (
	"testing"

	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func chain(n int) []bracket.Game {
	games := make([]bracket.Game, n)
	for i := range games {
		games[i].ID = uuid.New()
		if i > 0 {
			games[i].DependsOnGames = []uuid.UUID{games[i-1].ID}
		}
	}
	return games
}

func TestGameGraph_Descendants(t *testing.T) {
	games := chain(4)
	g := newGameGraph(games)

	assert.Equal(t, []uuid.UUID{games[1].ID}, g.dependents(games[0].ID))
	assert.Equal(t, []uuid.UUID{games[1].ID, games[2].ID, games[3].ID}, g.descendants(games[0].ID))
	assert.Empty(t, g.descendants(games[3].ID))
	assert.Nil(t, g.descendants(uuid.New()))
	assert.Nil(t, g.cyclic())
}

func TestGameGraph_Cycle(t *testing.T) {
	games := chain(3)
	games[0].DependsOnGames = []uuid.UUID{games[2].ID}
	tail := bracket.Game{ID: uuid.New(), DependsOnGames: []uuid.UUID{games[2].ID}}
	games = append(games, tail)

	g := newGameGraph(games)
	stuck := g.cyclic()
	assert.ElementsMatch(t, []uuid.UUID{games[0].ID, games[1].ID, games[2].ID, tail.ID}, stuck)

	// descendants terminates on a cycle
	assert.Len(t, g.descendants(games[0].ID), 3)
}

func TestGameGraph_EdgeEditing(t *testing.T) {
	games := chain(2)
	g := newGameGraph(games)

	assert.False(t, g.addEdge(games[0].ID, games[1].ID), "duplicate edge")
	assert.False(t, g.addEdge(uuid.New(), games[1].ID), "unknown game")
	assert.True(t, g.addEdge(games[1].ID, games[0].ID))
	assert.NotNil(t, g.cyclic())

	g.removeIncoming(games[0].ID)
	assert.Nil(t, g.cyclic())
	assert.Empty(t, g.dependents(games[1].ID))
}

func TestGameGraph_IgnoresMissingReferences(t *testing.T) {
	games := chain(2)
	games[0].DependsOnGames = []uuid.UUID{uuid.New()}
	assert.Nil(t, newGameGraph(games).cyclic())
}
