package bracket

import (
	"strings"

	"github.com/google/uuid"
)

const (
	MinPoolTeams = 2
	MaxPoolTeams = 16
)

type Pool struct {
	ID           uuid.UUID `db:"id" json:"id"`
	DivisionID   uuid.UUID `db:"division_id" json:"divisionId"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournamentId"`
	Name         string    `db:"name" json:"name"`

	// Teams keeps the admin-entered order; game numbering follows it.
	Teams []string `db:"-" json:"teams"`

	AdvancementCount *int `db:"advancement_count" json:"advancementCount,omitempty"`
}

// HasTeam reports whether name is in the pool, ignoring case.
func (p *Pool) HasTeam(name string) bool {
	key := TeamKey(name)
	for _, t := range p.Teams {
		if TeamKey(t) == key {
			return true
		}
	}
	return false
}

// TeamKey normalises a team or structure name for uniqueness checks.
func TeamKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
