package store

import (
	"context"
	"testing"
	"time"

	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
	"github.com/AdamBeresnev/tourney-engine/internal/db"
	"github.com/AdamBeresnev/tourney-engine/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	// every new connection would get its own empty in-memory database
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	require.NoError(t, db.RunMigrations(database.DB, db.DriverSQLite), "Failed to apply migrations")
	return database
}

// forEachStore runs fn against both Store implementations.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
	t.Run("sqlite", func(t *testing.T) {
		database := setupTestDB(t)
		defer database.Close()
		fn(t, NewSQLStore(database))
	})
}

func commit(t *testing.T, s Store, build func(b *Batch)) {
	t.Helper()
	b := NewBatch()
	build(b)
	require.NoError(t, s.Commit(context.Background(), b))
}

func newPool(division uuid.UUID, name string, teams ...string) bracket.Pool {
	return bracket.Pool{
		ID:           uuid.New(),
		DivisionID:   division,
		TournamentID: uuid.New(),
		Name:         name,
		Teams:        teams,
	}
}

func TestPoolLifecycle(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		division := uuid.New()

		poolB := newPool(division, "Pool B", "Hawks", "Owls")
		poolA := newPool(division, "Pool A", "Eagles", "Falcons", "Ravens")
		poolA.AdvancementCount = utils.Ptr(2)
		other := newPool(uuid.New(), "Pool A", "Crows", "Jays")

		commit(t, s, func(b *Batch) {
			b.SetPool(poolB)
			b.SetPool(poolA)
			b.SetPool(other)
		})

		got, err := s.GetPool(ctx, poolA.ID)
		require.NoError(t, err)
		assert.Equal(t, "Pool A", got.Name)
		assert.Equal(t, []string{"Eagles", "Falcons", "Ravens"}, got.Teams)
		require.NotNil(t, got.AdvancementCount)
		assert.Equal(t, 2, *got.AdvancementCount)

		pools, err := s.ListPools(ctx, division)
		require.NoError(t, err)
		require.Len(t, pools, 2)
		assert.Equal(t, poolA.ID, pools[0].ID, "pools are ordered by name")
		assert.Equal(t, []string{"Hawks", "Owls"}, pools[1].Teams)

		commit(t, s, func(b *Batch) {
			b.UpdatePool(poolA.ID, bracket.PoolUpdate{
				Name:  bracket.Set("Pool Z"),
				Teams: bracket.Set([]string{"Ravens", "Eagles"}),
			})
		})

		got, err = s.GetPool(ctx, poolA.ID)
		require.NoError(t, err)
		assert.Equal(t, "Pool Z", got.Name)
		assert.Equal(t, []string{"Ravens", "Eagles"}, got.Teams)
		require.NotNil(t, got.AdvancementCount, "unset fields are left alone")

		commit(t, s, func(b *Batch) { b.DeletePool(poolA.ID) })

		_, err = s.GetPool(ctx, poolA.ID)
		assert.ErrorIs(t, err, bracket.ErrNotFound)
	})
}

func TestBracketLifecycle(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		division := uuid.New()
		poolID := uuid.New()

		seeds := bracket.EmptySeeds(4)
		seeds[0].TeamName = "Eagles"
		seeds[1].TeamName = "Hawks"
		seeds[1].SourcePoolID = &poolID
		seeds[1].SourcePoolRank = utils.Ptr(1)

		br := bracket.Bracket{
			ID:            uuid.New(),
			DivisionID:    division,
			TournamentID:  uuid.New(),
			Name:          "Gold",
			Size:          4,
			SeedingSource: bracket.SeedingMixed,
			Seeds:         seeds,
		}
		commit(t, s, func(b *Batch) { b.SetBracket(br) })

		got, err := s.GetBracket(ctx, br.ID)
		require.NoError(t, err)
		assert.Equal(t, bracket.SeedingMixed, got.SeedingSource)
		require.Len(t, got.Seeds, 4)
		assert.Equal(t, "Eagles", got.Seeds[0].TeamName)
		assert.Equal(t, 2, got.Seeds[1].Position)
		require.NotNil(t, got.Seeds[1].SourcePoolID)
		assert.Equal(t, poolID, *got.Seeds[1].SourcePoolID)
		assert.True(t, got.Seeds[3].Empty())

		reseeded := bracket.EmptySeeds(4)
		reseeded[3].TeamName = "Owls"
		commit(t, s, func(b *Batch) {
			b.UpdateBracket(br.ID, bracket.BracketUpdate{Seeds: bracket.Set(reseeded)})
		})

		list, err := s.ListBrackets(ctx, division)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Gold", list[0].Name)
		assert.Equal(t, "Owls", list[0].Seeds[3].TeamName)
		assert.True(t, list[0].Seeds[0].Empty())

		commit(t, s, func(b *Batch) { b.DeleteBracket(br.ID) })
		_, err = s.GetBracket(ctx, br.ID)
		assert.ErrorIs(t, err, bracket.ErrNotFound)
	})
}

func TestGameLifecycle(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		division := uuid.New()
		bracketID := uuid.New()
		when := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

		semi1 := bracket.Game{ID: uuid.New(), DivisionID: division, TeamA: "Eagles", TeamB: "Owls",
			Status: bracket.GameScheduled, BracketID: &bracketID, BracketRound: utils.Ptr(1), BracketPosition: utils.Ptr(0)}
		semi2 := bracket.Game{ID: uuid.New(), DivisionID: division, TeamA: "Hawks", TeamB: "Ravens",
			Status: bracket.GameScheduled, BracketID: &bracketID, BracketRound: utils.Ptr(1), BracketPosition: utils.Ptr(1)}
		final := bracket.Game{ID: uuid.New(), DivisionID: division, Status: bracket.GameScheduled,
			BracketID: &bracketID, BracketRound: utils.Ptr(2), BracketPosition: utils.Ptr(0), RoundName: "Finals",
			DependsOnGames: []uuid.UUID{semi1.ID, semi2.ID}, Location: "Field 1", ScheduledAt: &when}
		semi1.WinnerFeedsIntoGame = &final.ID
		semi2.WinnerFeedsIntoGame = &final.ID

		commit(t, s, func(b *Batch) {
			b.SetGame(final)
			b.SetGame(semi2)
			b.SetGame(semi1)
		})

		got, err := s.GetGame(ctx, final.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{semi1.ID, semi2.ID}, got.DependsOnGames)
		assert.Equal(t, "Finals", got.RoundName)
		assert.Equal(t, "Field 1", got.Location)
		require.NotNil(t, got.ScheduledAt)
		assert.True(t, when.Equal(*got.ScheduledAt))

		games, err := s.ListGames(ctx, GameFilter{BracketID: &bracketID})
		require.NoError(t, err)
		require.Len(t, games, 3)
		assert.Equal(t, semi1.ID, games[0].ID)
		assert.Equal(t, semi2.ID, games[1].ID)
		assert.Equal(t, final.ID, games[2].ID)

		round1, err := s.ListGames(ctx, GameFilter{BracketID: &bracketID, BracketRound: utils.Ptr(1)})
		require.NoError(t, err)
		assert.Len(t, round1, 2)

		commit(t, s, func(b *Batch) {
			b.UpdateGame(semi1.ID, bracket.GameUpdate{
				ScoreA: bracket.Set(21),
				ScoreB: bracket.Set(15),
				Status: bracket.Set(bracket.GameCompleted),
			})
			b.UpdateGame(final.ID, bracket.GameUpdate{
				TeamA:          bracket.Set("Eagles"),
				DependsOnGames: bracket.Set([]uuid.UUID{semi2.ID}),
			})
		})

		got, err = s.GetGame(ctx, semi1.ID)
		require.NoError(t, err)
		assert.Equal(t, bracket.GameCompleted, got.Status)
		assert.Equal(t, 21, got.ScoreA)
		assert.Equal(t, "Eagles", got.TeamA, "unset fields are left alone")

		got, err = s.GetGame(ctx, final.ID)
		require.NoError(t, err)
		assert.Equal(t, "Eagles", got.TeamA)
		assert.Equal(t, []uuid.UUID{semi2.ID}, got.DependsOnGames)

		commit(t, s, func(b *Batch) {
			b.UpdateGame(semi1.ID, bracket.GameUpdate{WinnerFeedsIntoGame: bracket.Set[*uuid.UUID](nil)})
			b.DeleteGame(final.ID)
		})
		got, err = s.GetGame(ctx, semi1.ID)
		require.NoError(t, err)
		assert.Nil(t, got.WinnerFeedsIntoGame)

		_, err = s.GetGame(ctx, final.ID)
		assert.ErrorIs(t, err, bracket.ErrNotFound)
	})
}

func TestListGamesFilters(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		division := uuid.New()
		poolID := uuid.New()

		commit(t, s, func(b *Batch) {
			for i := 3; i >= 1; i-- {
				b.SetGame(bracket.Game{ID: uuid.New(), DivisionID: division, PoolID: &poolID,
					PoolGameNumber: utils.Ptr(i), Status: bracket.GameScheduled})
			}
			b.SetGame(bracket.Game{ID: uuid.New(), DivisionID: uuid.New(), Status: bracket.GameScheduled})
		})

		games, err := s.ListGames(ctx, GameFilter{PoolID: &poolID})
		require.NoError(t, err)
		require.Len(t, games, 3)
		for i, g := range games {
			assert.Equal(t, i+1, *g.PoolGameNumber)
		}

		games, err = s.ListGames(ctx, GameFilter{DivisionID: &division})
		require.NoError(t, err)
		assert.Len(t, games, 3)

		games, err = s.ListGames(ctx, GameFilter{})
		require.NoError(t, err)
		assert.Len(t, games, 4)
	})
}

func TestCommitIsAtomic(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		division := uuid.New()
		game := bracket.Game{ID: uuid.New(), DivisionID: division, Status: bracket.GameScheduled}

		b := NewBatch()
		b.SetGame(game)
		b.UpdateGame(uuid.New(), bracket.GameUpdate{TeamA: bracket.Set("Eagles")})

		err := s.Commit(ctx, b)
		require.Error(t, err)
		assert.ErrorIs(t, err, bracket.ErrNotFound)

		_, err = s.GetGame(ctx, game.ID)
		assert.ErrorIs(t, err, bracket.ErrNotFound, "no write of a failed batch is visible")
	})
}

func TestMissingDocuments(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		missing := uuid.New()

		_, err := s.GetPool(ctx, missing)
		assert.ErrorIs(t, err, bracket.ErrNotFound)
		_, err = s.GetBracket(ctx, missing)
		assert.ErrorIs(t, err, bracket.ErrNotFound)
		_, err = s.GetGame(ctx, missing)
		assert.ErrorIs(t, err, bracket.ErrNotFound)

		for _, build := range []func(b *Batch){
			func(b *Batch) { b.DeletePool(missing) },
			func(b *Batch) { b.DeleteBracket(missing) },
			func(b *Batch) { b.DeleteGame(missing) },
			func(b *Batch) { b.UpdatePool(missing, bracket.PoolUpdate{}) },
			func(b *Batch) { b.UpdateBracket(missing, bracket.BracketUpdate{}) },
		} {
			b := NewBatch()
			build(b)
			assert.ErrorIs(t, s.Commit(ctx, b), bracket.ErrNotFound)
		}

		assert.NoError(t, s.Commit(ctx, NewBatch()), "an empty batch is a no-op")
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	pool := newPool(uuid.New(), "Pool A", "Eagles", "Hawks")
	commit(t, s, func(b *Batch) { b.SetPool(pool) })

	got, err := s.GetPool(ctx, pool.ID)
	require.NoError(t, err)
	got.Teams[0] = "Mutated"

	again, err := s.GetPool(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, "Eagles", again.Teams[0])
}

func TestMemoryStoreCopiesPointerFields(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	poolID, next := uuid.New(), uuid.New()
	game := bracket.Game{
		ID:                  uuid.New(),
		PoolID:              &poolID,
		BracketRound:        utils.Ptr(1),
		WinnerFeedsIntoGame: &next,
		Status:              bracket.GameScheduled,
	}
	br := bracket.Bracket{ID: uuid.New(), Name: "Gold", Size: 4, Seeds: bracket.EmptySeeds(4)}
	br.Seeds[0].SourcePoolRank = utils.Ptr(1)
	commit(t, s, func(b *Batch) {
		b.SetGame(game)
		b.SetBracket(br)
	})

	// neither the committed value nor a returned one aliases stored state
	*game.BracketRound = 7
	got, err := s.GetGame(ctx, game.ID)
	require.NoError(t, err)
	*got.PoolID = uuid.Nil
	*got.WinnerFeedsIntoGame = uuid.Nil

	again, err := s.GetGame(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, *again.BracketRound)
	assert.Equal(t, poolID, *again.PoolID)
	assert.Equal(t, next, *again.WinnerFeedsIntoGame)

	gotBracket, err := s.GetBracket(ctx, br.ID)
	require.NoError(t, err)
	*gotBracket.Seeds[0].SourcePoolRank = 9

	againBracket, err := s.GetBracket(ctx, br.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, *againBracket.Seeds[0].SourcePoolRank)
}

func TestGameFilterMatches(t *testing.T) {
	poolID := uuid.New()
	g := &bracket.Game{DivisionID: uuid.New(), PoolID: &poolID}

	assert.True(t, GameFilter{}.Matches(g))
	assert.True(t, GameFilter{PoolID: &poolID}.Matches(g))
	assert.False(t, GameFilter{BracketID: &poolID}.Matches(g))
	assert.False(t, GameFilter{BracketRound: utils.Ptr(1)}.Matches(g))
}
