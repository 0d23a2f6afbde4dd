package bracket

import (
	"time"

	"github.com/google/uuid"
)

type GameStatus string

const (
	GameScheduled  GameStatus = "SCHEDULED"
	GameInProgress GameStatus = "IN_PROGRESS"
	GameCompleted  GameStatus = "COMPLETED"
	GameCancelled  GameStatus = "CANCELLED"
)

func (s GameStatus) Valid() bool {
	switch s {
	case GameScheduled, GameInProgress, GameCompleted, GameCancelled:
		return true
	}
	return false
}

// MaxDependencies is the most upstream games a single game can be fed by.
const MaxDependencies = 2

type Game struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournamentId"`
	DivisionID   uuid.UUID `db:"division_id" json:"divisionId"`

	// An empty team name is an unfilled slot.
	TeamA  string     `db:"team_a" json:"teamA"`
	TeamB  string     `db:"team_b" json:"teamB"`
	ScoreA int        `db:"score_a" json:"scoreA"`
	ScoreB int        `db:"score_b" json:"scoreB"`
	Status GameStatus `db:"status" json:"status"`

	// A game belongs to at most one of PoolID and BracketID.
	PoolID         *uuid.UUID `db:"pool_id" json:"poolId,omitempty"`
	PoolGameNumber *int       `db:"pool_game_number" json:"poolGameNumber,omitempty"`

	BracketID       *uuid.UUID `db:"bracket_id" json:"bracketId,omitempty"`
	BracketRound    *int       `db:"bracket_round" json:"bracketRound,omitempty"`
	BracketPosition *int       `db:"bracket_position" json:"bracketPosition,omitempty"`
	RoundName       string     `db:"round_name" json:"roundName,omitempty"`

	// DependsOnGames is positional: index 0 fills TeamA, index 1 fills TeamB.
	DependsOnGames      []uuid.UUID `db:"-" json:"dependsOnGames"`
	WinnerFeedsIntoGame *uuid.UUID  `db:"winner_feeds_into_game" json:"winnerFeedsIntoGame,omitempty"`
	LoserFeedsIntoGame  *uuid.UUID  `db:"loser_feeds_into_game" json:"loserFeedsIntoGame,omitempty"`

	// Scheduling fields are carried through untouched.
	Location    string     `db:"location" json:"location"`
	ScheduledAt *time.Time `db:"scheduled_at" json:"scheduledAt,omitempty"`
}

// FeedsIntoGame is the older name for WinnerFeedsIntoGame.
func (g *Game) FeedsIntoGame() *uuid.UUID {
	return g.WinnerFeedsIntoGame
}

func (g *Game) IsCompleted() bool {
	return g.Status == GameCompleted
}

// HasTeam reports whether name occupies one of the two slots.
func (g *Game) HasTeam(name string) bool {
	return name != "" && (g.TeamA == name || g.TeamB == name)
}

// DependencyIndex returns the slot index of id in DependsOnGames, or -1.
func (g *Game) DependencyIndex(id uuid.UUID) int {
	for i, dep := range g.DependsOnGames {
		if dep == id {
			return i
		}
	}
	return -1
}

// Result returns winner and loser for a completed game. ok is false for ties.
func (g *Game) Result() (winner, loser string, ok bool) {
	switch {
	case g.ScoreA > g.ScoreB:
		return g.TeamA, g.TeamB, true
	case g.ScoreB > g.ScoreA:
		return g.TeamB, g.TeamA, true
	}
	return "", "", false
}
