package service

import (
	"sort"

	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
)

// foldStats accumulates completed games into one TeamStats per team. Teams
// that show up in games but not in teams are appended in order of appearance.
// A tied game counts as played and its points accumulate, but it is neither a
// win nor a loss.
func foldStats(teams []string, games []bracket.Game) []bracket.TeamStats {
	stats := make([]bracket.TeamStats, 0, len(teams))
	index := make(map[string]int, len(teams))
	lookup := func(name string) int {
		i, ok := index[name]
		if !ok {
			i = len(stats)
			index[name] = i
			stats = append(stats, bracket.TeamStats{TeamName: name})
		}
		return i
	}
	for _, t := range teams {
		lookup(t)
	}

	for i := range games {
		g := &games[i]
		if !g.IsCompleted() || g.TeamA == "" || g.TeamB == "" {
			continue
		}
		ia, ib := lookup(g.TeamA), lookup(g.TeamB)
		a, b := &stats[ia], &stats[ib]

		a.GamesPlayed++
		a.PointsFor += g.ScoreA
		a.PointsAgainst += g.ScoreB
		b.GamesPlayed++
		b.PointsFor += g.ScoreB
		b.PointsAgainst += g.ScoreA

		switch {
		case g.ScoreA > g.ScoreB:
			a.Wins++
			b.Losses++
		case g.ScoreB > g.ScoreA:
			b.Wins++
			a.Losses++
		}
	}

	for i := range stats {
		stats[i].PointDifferential = stats[i].PointsFor - stats[i].PointsAgainst
	}
	return stats
}

// ComputeStandings ranks by wins, then point differential. Equal teams keep
// their input order; no further tie-break is applied.
func ComputeStandings(teams []string, games []bracket.Game) []bracket.TeamStats {
	stats := foldStats(teams, games)
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Wins != stats[j].Wins {
			return stats[i].Wins > stats[j].Wins
		}
		return stats[i].PointDifferential > stats[j].PointDifferential
	})
	assignRanks(stats)
	return stats
}

// ComputePoolStandings ranks by wins and settles every equal-wins group with
// the tie-break chain.
func ComputePoolStandings(teams []string, games []bracket.Game) []bracket.PoolStanding {
	stats := foldStats(teams, games)
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Wins > stats[j].Wins
	})

	out := make([]bracket.PoolStanding, 0, len(stats))
	for start := 0; start < len(stats); {
		end := start + 1
		for end < len(stats) && stats[end].Wins == stats[start].Wins {
			end++
		}
		out = append(out, ResolveTies(stats[start:end], games)...)
		start = end
	}
	assignRanks(out)
	return out
}

// CalculateTeamStats is the single-team projection of the standings fold.
func CalculateTeamStats(team string, games []bracket.Game) bracket.TeamStats {
	return foldStats([]string{team}, involving(team, games))[0]
}

func involving(team string, games []bracket.Game) []bracket.Game {
	out := make([]bracket.Game, 0)
	for i := range games {
		if games[i].HasTeam(team) {
			out = append(out, games[i])
		}
	}
	return out
}

func assignRanks(stats []bracket.TeamStats) {
	for i := range stats {
		stats[i].Rank = i + 1
	}
}
