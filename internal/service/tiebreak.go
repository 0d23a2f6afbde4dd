package service

import (
	"sort"
	"strings"

	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
)

// ResolveTies orders a group of teams with equal wins by point differential,
// then points for. Exactly two teams still level after that are split by
// their head-to-head record, and anything left falls back to team name.
// The result does not depend on the order of group.
func ResolveTies(group []bracket.TeamStats, games []bracket.Game) []bracket.TeamStats {
	out := append([]bracket.TeamStats(nil), group...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.PointDifferential != b.PointDifferential {
			return a.PointDifferential > b.PointDifferential
		}
		if a.PointsFor != b.PointsFor {
			return a.PointsFor > b.PointsFor
		}
		return alphabetical(a.TeamName, b.TeamName)
	})

	for start := 0; start < len(out); {
		end := start + 1
		for end < len(out) && level(out[start], out[end]) {
			end++
		}
		if end-start == 2 && headToHead(out[start].TeamName, out[start+1].TeamName, games) < 0 {
			out[start], out[start+1] = out[start+1], out[start]
		}
		start = end
	}
	return out
}

func level(a, b bracket.TeamStats) bool {
	return a.PointDifferential == b.PointDifferential && a.PointsFor == b.PointsFor
}

// headToHead returns a's wins minus b's wins over completed games between them.
func headToHead(a, b string, games []bracket.Game) int {
	balance := 0
	for i := range games {
		g := &games[i]
		if !g.IsCompleted() || !g.HasTeam(a) || !g.HasTeam(b) {
			continue
		}
		winner, _, ok := g.Result()
		if !ok {
			continue
		}
		if winner == a {
			balance++
		} else {
			balance--
		}
	}
	return balance
}

func alphabetical(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}
