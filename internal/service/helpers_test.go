package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
	"github.com/AdamBeresnev/tourney-engine/internal/cache"
	"github.com/AdamBeresnev/tourney-engine/internal/events"
	"github.com/AdamBeresnev/tourney-engine/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type testEnv struct {
	engine     *Engine
	store      *store.MemoryStore
	cache      *cache.MemoryCache
	events     *recordingPublisher
	division   uuid.UUID
	tournament uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:      store.NewMemoryStore(),
		cache:      cache.NewMemoryCache(),
		events:     &recordingPublisher{},
		division:   uuid.New(),
		tournament: uuid.New(),
	}
	env.engine = NewEngine(Deps{
		Store:     env.store,
		Cache:     env.cache,
		Publisher: env.events,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return env
}

func (e *testEnv) createPool(t *testing.T, name string, teams ...string) *bracket.Pool {
	t.Helper()
	pool, err := e.engine.CreatePool(context.Background(), CreatePoolInput{
		DivisionID:   e.division,
		TournamentID: e.tournament,
		Name:         name,
		Teams:        teams,
	})
	require.NoError(t, err)
	return pool
}

func (e *testEnv) createBracket(t *testing.T, name string, size int, source bracket.SeedingSource) *bracket.Bracket {
	t.Helper()
	br, err := e.engine.CreateBracket(context.Background(), CreateBracketInput{
		DivisionID:    e.division,
		TournamentID:  e.tournament,
		Name:          name,
		Size:          size,
		SeedingSource: source,
	})
	require.NoError(t, err)
	return br
}

// seededBracket creates a bracket with the given teams in seed order and generates its games.
func (e *testEnv) seededBracket(t *testing.T, name string, size int, teams ...string) (*bracket.Bracket, []bracket.Game) {
	t.Helper()
	ctx := context.Background()
	br := e.createBracket(t, name, size, bracket.SeedingManual)

	seeds := make([]bracket.BracketSeed, len(teams))
	for i, team := range teams {
		seeds[i] = bracket.BracketSeed{Position: i + 1, TeamName: team}
	}
	br, err := e.engine.UpdateSeeds(ctx, br.ID, seeds)
	require.NoError(t, err)

	games, err := e.engine.GenerateBracketGames(ctx, br.ID)
	require.NoError(t, err)
	return br, games
}

func (e *testEnv) score(t *testing.T, gameID uuid.UUID, a, b int) {
	t.Helper()
	_, err := e.engine.RecordScore(context.Background(), gameID, a, b, bracket.GameCompleted)
	require.NoError(t, err)
}

func (e *testEnv) game(t *testing.T, id uuid.UUID) *bracket.Game {
	t.Helper()
	g, err := e.store.GetGame(context.Background(), id)
	require.NoError(t, err)
	return g
}

// putGames writes hand-built games straight to the store.
func (e *testEnv) putGames(t *testing.T, games ...bracket.Game) {
	t.Helper()
	b := store.NewBatch()
	for _, g := range games {
		if g.DivisionID == uuid.Nil {
			g.DivisionID = e.division
		}
		if g.Status == "" {
			g.Status = bracket.GameScheduled
		}
		b.SetGame(g)
	}
	require.NoError(t, e.store.Commit(context.Background(), b))
}

// poolGame finds the game between a and b in either orientation.
func poolGame(t *testing.T, games []bracket.Game, a, b string) bracket.Game {
	t.Helper()
	for _, g := range games {
		if g.HasTeam(a) && g.HasTeam(b) {
			return g
		}
	}
	t.Fatalf("no game between %s and %s", a, b)
	return bracket.Game{}
}

func completed(a, b string, scoreA, scoreB int) bracket.Game {
	return bracket.Game{
		ID:     uuid.New(),
		TeamA:  a,
		TeamB:  b,
		ScoreA: scoreA,
		ScoreB: scoreB,
		Status: bracket.GameCompleted,
	}
}
