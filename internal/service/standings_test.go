package service

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
	"github.com/AdamBeresnev/tourney-engine/internal/cache"
	"github.com/AdamBeresnev/tourney-engine/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(stats []bracket.TeamStats) []string {
	out := make([]string, len(stats))
	for i, s := range stats {
		out[i] = s.TeamName
	}
	return out
}

func TestComputeStandings_Invariants(t *testing.T) {
	games := []bracket.Game{
		completed("A", "B", 21, 10),
		completed("A", "C", 15, 18),
		completed("B", "C", 7, 7),
		{ID: uuid.New(), TeamA: "A", TeamB: "C", ScoreA: 99, Status: bracket.GameInProgress},
		{ID: uuid.New(), TeamA: "B", TeamB: "C", ScoreA: 50, Status: bracket.GameCancelled},
	}
	stats := ComputeStandings([]string{"A", "B", "C"}, games)
	require.Len(t, stats, 3)

	for _, s := range stats {
		assert.Equal(t, s.PointsFor-s.PointsAgainst, s.PointDifferential, s.TeamName)
		assert.LessOrEqual(t, s.Wins+s.Losses, s.GamesPlayed, s.TeamName)
	}

	assert.Equal(t, []string{"A", "C", "B"}, names(stats))
	assert.Equal(t, bracket.TeamStats{TeamName: "A", Wins: 1, Losses: 1, PointsFor: 36, PointsAgainst: 28,
		PointDifferential: 8, GamesPlayed: 2, Rank: 1}, stats[0])
	assert.Equal(t, 2, stats[1].Rank)
	assert.Equal(t, 3, stats[2].Rank)
}

// A tied completed game is counted as played and its points are kept, but it
// is neither a win nor a loss.
func TestComputeStandings_TiedGameCountsAsPlayed(t *testing.T) {
	stats := ComputeStandings([]string{"A", "B"}, []bracket.Game{completed("A", "B", 12, 12)})

	for _, s := range stats {
		assert.Equal(t, 1, s.GamesPlayed)
		assert.Zero(t, s.Wins)
		assert.Zero(t, s.Losses)
		assert.Equal(t, 12, s.PointsFor)
		assert.Equal(t, 12, s.PointsAgainst)
	}
}

func TestComputeStandings_SimplePathKeepsInputOrder(t *testing.T) {
	games := []bracket.Game{
		completed("Zebras", "Ants", 10, 5),
		completed("Bees", "Crows", 10, 5),
	}
	stats := ComputeStandings([]string{"Zebras", "Bees", "Ants", "Crows"}, games)
	assert.Equal(t, []string{"Zebras", "Bees", "Ants", "Crows"}, names(stats))
	assert.Equal(t, []int{1, 2, 3, 4}, []int{stats[0].Rank, stats[1].Rank, stats[2].Rank, stats[3].Rank})
}

func TestComputeStandings_TeamsOnlyInGames(t *testing.T) {
	stats := ComputeStandings([]string{"A"}, []bracket.Game{completed("A", "Guest", 3, 1)})
	require.Len(t, stats, 2)
	assert.Equal(t, "Guest", stats[1].TeamName)
	assert.Equal(t, 1, stats[1].Losses)
}

func TestCalculateTeamStats(t *testing.T) {
	games := []bracket.Game{
		completed("A", "B", 21, 10),
		completed("C", "A", 18, 15),
		completed("B", "C", 9, 3),
	}
	stats := CalculateTeamStats("A", games)
	assert.Equal(t, bracket.TeamStats{TeamName: "A", Wins: 1, Losses: 1, PointsFor: 36, PointsAgainst: 28,
		PointDifferential: 8, GamesPlayed: 2}, stats)

	none := CalculateTeamStats("Nobody", games)
	assert.Equal(t, bracket.TeamStats{TeamName: "Nobody"}, none)
}

func TestResolveTies(t *testing.T) {
	tests := []struct {
		name  string
		group []bracket.TeamStats
		games []bracket.Game
		want  []string
	}{
		{
			name: "point differential",
			group: []bracket.TeamStats{
				{TeamName: "A", PointDifferential: 2, PointsFor: 30},
				{TeamName: "B", PointDifferential: 9, PointsFor: 20},
			},
			want: []string{"B", "A"},
		},
		{
			name: "points for",
			group: []bracket.TeamStats{
				{TeamName: "A", PointDifferential: 5, PointsFor: 20},
				{TeamName: "B", PointDifferential: 5, PointsFor: 25},
			},
			want: []string{"B", "A"},
		},
		{
			name: "head to head",
			group: []bracket.TeamStats{
				{TeamName: "Alpha", PointDifferential: 5, PointsFor: 20},
				{TeamName: "Zulu", PointDifferential: 5, PointsFor: 20},
			},
			games: []bracket.Game{completed("Alpha", "Zulu", 10, 12)},
			want:  []string{"Zulu", "Alpha"},
		},
		{
			name: "head to head ignored for three teams",
			group: []bracket.TeamStats{
				{TeamName: "C", PointDifferential: 0, PointsFor: 10},
				{TeamName: "B", PointDifferential: 0, PointsFor: 10},
				{TeamName: "A", PointDifferential: 0, PointsFor: 10},
			},
			games: []bracket.Game{completed("A", "C", 1, 9)},
			want:  []string{"A", "B", "C"},
		},
		{
			name: "drawn head to head falls back to name",
			group: []bracket.TeamStats{
				{TeamName: "bravo", PointDifferential: 1, PointsFor: 10},
				{TeamName: "Alpha", PointDifferential: 1, PointsFor: 10},
			},
			games: []bracket.Game{completed("Alpha", "bravo", 4, 4)},
			want:  []string{"Alpha", "bravo"},
		},
		{
			name: "pair left after differential split",
			group: []bracket.TeamStats{
				{TeamName: "A", PointDifferential: 3, PointsFor: 10},
				{TeamName: "B", PointDifferential: 3, PointsFor: 10},
				{TeamName: "C", PointDifferential: 7, PointsFor: 10},
			},
			games: []bracket.Game{completed("B", "A", 6, 2)},
			want:  []string{"C", "B", "A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(ResolveTies(tt.group, tt.games)))
		})
	}
}

func TestResolveTies_IndependentOfInputOrder(t *testing.T) {
	group := []bracket.TeamStats{
		{TeamName: "Delta", PointDifferential: 4, PointsFor: 30},
		{TeamName: "alpha", PointDifferential: 4, PointsFor: 30},
		{TeamName: "Charlie", PointDifferential: 4, PointsFor: 30},
		{TeamName: "Bravo", PointDifferential: 4, PointsFor: 30},
	}
	want := []string{"alpha", "Bravo", "Charlie", "Delta"}

	permutations := [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1}}
	for _, perm := range permutations {
		shuffled := make([]bracket.TeamStats, len(group))
		for i, j := range perm {
			shuffled[i] = group[j]
		}
		got := ResolveTies(shuffled, nil)
		assert.Equal(t, want, names(got))
		assert.Equal(t, want, names(ResolveTies(got, nil)), "re-sorting is idempotent")
	}
}

func TestComputePoolStandings(t *testing.T) {
	games := []bracket.Game{
		completed("A", "B", 10, 8),
		completed("C", "A", 10, 8),
		completed("B", "C", 10, 8),
		completed("D", "A", 0, 5),
		completed("D", "B", 0, 5),
		completed("D", "C", 0, 5),
	}
	// A, B and C each have two wins and a differential of +5 and 23 points
	// for, so the three-way tie falls through to name order.
	stats := ComputePoolStandings([]string{"D", "C", "B", "A"}, games)
	assert.Equal(t, []string{"A", "B", "C", "D"}, names(stats))
	for i, s := range stats {
		assert.Equal(t, i+1, s.Rank)
	}
}

func TestStandingsService_CachesUntilInvalidated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pool := env.createPool(t, "Pool A", "A", "B")
	games, err := env.engine.GeneratePoolGames(ctx, pool.ID)
	require.NoError(t, err)

	first, err := env.engine.PoolStandings(ctx, pool.ID)
	require.NoError(t, err)
	assert.Zero(t, first[0].GamesPlayed)

	_, ok, err := env.cache.Get(ctx, cache.PoolStandingsKey(pool.ID))
	require.NoError(t, err)
	assert.True(t, ok, "standings are memoized")

	// a write behind the engine's back is not seen while the entry lives
	b := store.NewBatch()
	b.UpdateGame(games[0].ID, bracket.GameUpdate{ScoreA: bracket.Set(3), Status: bracket.Set(bracket.GameCompleted)})
	require.NoError(t, env.store.Commit(ctx, b))
	stale, err := env.engine.PoolStandings(ctx, pool.ID)
	require.NoError(t, err)
	assert.Zero(t, stale[0].GamesPlayed)

	env.score(t, games[0].ID, 0, 4)
	fresh, err := env.engine.PoolStandings(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", fresh[0].TeamName)
	assert.Equal(t, 1, fresh[0].Wins)

	division, err := env.engine.DivisionStandings(ctx, env.division)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, names(division))

	stats, err := env.engine.TeamStats(ctx, "A", env.division)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Losses)
	assert.Equal(t, 2, stats.Rank)

	env.score(t, games[0].ID, 9, 4)
	stats, err = env.engine.TeamStats(ctx, "A", env.division)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Wins, "recording a score drops the team entry")
	division, err = env.engine.DivisionStandings(ctx, env.division)
	require.NoError(t, err)
	assert.Equal(t, "A", division[0].TeamName)
}

func TestStandingsService_TeamRankFollowsOtherGames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pool := env.createPool(t, "Pool A", "A", "B", "C", "D")
	games, err := env.engine.GeneratePoolGames(ctx, pool.ID)
	require.NoError(t, err)

	between := func(a, b string) uuid.UUID {
		for _, g := range games {
			if g.TeamA == a && g.TeamB == b {
				return g.ID
			}
		}
		t.Fatalf("no game between %s and %s", a, b)
		return uuid.Nil
	}

	env.score(t, between("A", "D"), 3, 1)
	stats, err := env.engine.TeamStats(ctx, "A", env.division)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Rank)

	_, ok, err := env.cache.Get(ctx, cache.TeamStatsKey("A", env.division))
	require.NoError(t, err)
	require.True(t, ok, "team totals are memoized")

	// games without A still move A down the table
	env.score(t, between("B", "C"), 5, 0)
	env.score(t, between("B", "D"), 2, 1)

	stats, err = env.engine.TeamStats(ctx, "A", env.division)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Rank)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 2, stats.PointDifferential)

	division, err := env.engine.DivisionStandings(ctx, env.division)
	require.NoError(t, err)
	assert.Equal(t, "B", division[0].TeamName)
}

func TestStandingsService_WithoutCache(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewStandingsService(Deps{Store: st})

	_, err := svc.PoolStandings(context.Background(), uuid.New())
	assert.ErrorIs(t, err, bracket.ErrNotFound)

	stats, err := svc.DivisionStandings(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, stats)
}
