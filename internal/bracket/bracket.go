package bracket

import (
	"math/bits"

	"github.com/google/uuid"
)

type SeedingSource string

const (
	SeedingManual SeedingSource = "manual"
	SeedingPools  SeedingSource = "pools"
	SeedingMixed  SeedingSource = "mixed"
)

func (s SeedingSource) Valid() bool {
	switch s {
	case SeedingManual, SeedingPools, SeedingMixed:
		return true
	}
	return false
}

// ValidSizes are the bracket sizes the engine can generate.
var ValidSizes = []int{4, 8, 16, 32}

func ValidSize(size int) bool {
	for _, s := range ValidSizes {
		if s == size {
			return true
		}
	}
	return false
}

// TotalRounds returns log2(size) for a power-of-two size and 0 otherwise.
func TotalRounds(size int) int {
	if size <= 1 || size&(size-1) != 0 {
		return 0
	}
	return bits.TrailingZeros(uint(size))
}

type BracketSeed struct {
	Position       int        `db:"position" json:"position"`
	TeamName       string     `db:"team_name" json:"teamName,omitempty"`
	SourcePoolID   *uuid.UUID `db:"source_pool_id" json:"sourcePoolId,omitempty"`
	SourcePoolRank *int       `db:"source_pool_rank" json:"sourcePoolRank,omitempty"`
}

func (s BracketSeed) Empty() bool {
	return s.TeamName == ""
}

type Bracket struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	DivisionID    uuid.UUID     `db:"division_id" json:"divisionId"`
	TournamentID  uuid.UUID     `db:"tournament_id" json:"tournamentId"`
	Name          string        `db:"name" json:"name"`
	Size          int           `db:"size" json:"size"`
	SeedingSource SeedingSource `db:"seeding_source" json:"seedingSource"`

	// Seeds is ordered by position, one entry per position 1..Size.
	Seeds []BracketSeed `db:"-" json:"seeds"`
}

// EmptySeeds returns size unassigned seeds at positions 1..size.
func EmptySeeds(size int) []BracketSeed {
	seeds := make([]BracketSeed, size)
	for i := range seeds {
		seeds[i] = BracketSeed{Position: i + 1}
	}
	return seeds
}

// SeedTeam returns the team at 0-based seed index i, or "" when out of range or unassigned.
func (b *Bracket) SeedTeam(i int) string {
	if i < 0 || i >= len(b.Seeds) {
		return ""
	}
	return b.Seeds[i].TeamName
}
