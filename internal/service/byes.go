package service

import (
	"fmt"

	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
)

// ByeReport describes the empty seed positions of a bracket. Empty positions
// are byes: the team paired against one advances without playing.
type ByeReport struct {
	EmptyCount     int    `json:"emptyCount"`
	EmptyPositions []int  `json:"emptyPositions"`
	SeededCount    int    `json:"seededCount"`
	Valid          bool   `json:"valid"`
	Warning        string `json:"warning,omitempty"`
}

// AnalyzeByes reports on the bracket without changing it. A bracket is usable
// with byes as long as at least two positions are seeded.
func AnalyzeByes(br *bracket.Bracket) ByeReport {
	report := ByeReport{EmptyPositions: []int{}}

	seeded := make(map[int]bool, len(br.Seeds))
	for _, seed := range br.Seeds {
		if !seed.Empty() {
			seeded[seed.Position] = true
		}
	}
	for pos := 1; pos <= br.Size; pos++ {
		if seeded[pos] {
			report.SeededCount++
		} else {
			report.EmptyPositions = append(report.EmptyPositions, pos)
		}
	}
	report.EmptyCount = len(report.EmptyPositions)
	report.Valid = report.SeededCount >= 2

	switch {
	case !report.Valid:
		report.Warning = fmt.Sprintf("bracket %q has %d seeded teams; at least 2 are required", br.Name, report.SeededCount)
	case report.EmptyCount > 0:
		report.Warning = fmt.Sprintf("bracket %q has %d empty of %d positions; teams drawn against them get a bye",
			br.Name, report.EmptyCount, br.Size)
	}
	return report
}
