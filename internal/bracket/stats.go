package bracket

// TeamStats is derived from completed games and never persisted.
type TeamStats struct {
	TeamName          string `json:"teamName"`
	Wins              int    `json:"wins"`
	Losses            int    `json:"losses"`
	PointsFor         int    `json:"pointsFor"`
	PointsAgainst     int    `json:"pointsAgainst"`
	PointDifferential int    `json:"pointDifferential"`
	GamesPlayed       int    `json:"gamesPlayed"`
	Rank              int    `json:"rank"`
}

// PoolStanding is the pool-scoped name for the same row.
type PoolStanding = TeamStats
