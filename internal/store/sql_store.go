package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Queries are written with ? placeholders and rebound for the active driver.
const (
	poolColumns       = "id, division_id, tournament_id, name, advancement_count"
	getPoolQuery      = "SELECT " + poolColumns + " FROM pools WHERE id = ?"
	listPoolsQuery    = "SELECT " + poolColumns + " FROM pools WHERE division_id = ? ORDER BY name, id"
	getPoolTeamsQuery = "SELECT team_name FROM pool_teams WHERE pool_id = ? ORDER BY position"

	listPoolTeamsQuery = `
		SELECT pt.pool_id, pt.team_name FROM pool_teams pt
		JOIN pools p ON p.id = pt.pool_id
		WHERE p.division_id = ?
		ORDER BY pt.pool_id, pt.position
	`

	upsertPoolQuery = `
		INSERT INTO pools (id, division_id, tournament_id, name, advancement_count)
		VALUES (:id, :division_id, :tournament_id, :name, :advancement_count)
		ON CONFLICT (id) DO UPDATE SET
			division_id = excluded.division_id,
			tournament_id = excluded.tournament_id,
			name = excluded.name,
			advancement_count = excluded.advancement_count
	`

	insertPoolTeamQuery  = "INSERT INTO pool_teams (pool_id, position, team_name) VALUES (?, ?, ?)"
	deletePoolTeamsQuery = "DELETE FROM pool_teams WHERE pool_id = ?"
	deletePoolQuery      = "DELETE FROM pools WHERE id = ?"

	bracketColumns    = "id, division_id, tournament_id, name, size, seeding_source"
	getBracketQuery   = "SELECT " + bracketColumns + " FROM brackets WHERE id = ?"
	listBracketsQuery = "SELECT " + bracketColumns + " FROM brackets WHERE division_id = ? ORDER BY name, id"
	seedColumns       = "bracket_id, position, team_name, source_pool_id, source_pool_rank"
	getSeedsQuery     = "SELECT " + seedColumns + " FROM bracket_seeds WHERE bracket_id = ? ORDER BY position"

	listSeedsQuery = `
		SELECT bs.bracket_id, bs.position, bs.team_name, bs.source_pool_id, bs.source_pool_rank
		FROM bracket_seeds bs
		JOIN brackets b ON b.id = bs.bracket_id
		WHERE b.division_id = ?
		ORDER BY bs.bracket_id, bs.position
	`

	upsertBracketQuery = `
		INSERT INTO brackets (id, division_id, tournament_id, name, size, seeding_source)
		VALUES (:id, :division_id, :tournament_id, :name, :size, :seeding_source)
		ON CONFLICT (id) DO UPDATE SET
			division_id = excluded.division_id,
			tournament_id = excluded.tournament_id,
			name = excluded.name,
			size = excluded.size,
			seeding_source = excluded.seeding_source
	`

	insertSeedQuery = `
		INSERT INTO bracket_seeds (bracket_id, position, team_name, source_pool_id, source_pool_rank)
		VALUES (:bracket_id, :position, :team_name, :source_pool_id, :source_pool_rank)
	`

	deleteSeedsQuery   = "DELETE FROM bracket_seeds WHERE bracket_id = ?"
	deleteBracketQuery = "DELETE FROM brackets WHERE id = ?"

	gameColumns = `id, tournament_id, division_id, team_a, team_b, score_a, score_b, status,
		pool_id, pool_game_number, bracket_id, bracket_round, bracket_position, round_name,
		depends_on_a, depends_on_b, winner_feeds_into_game, loser_feeds_into_game,
		location, scheduled_at`

	getGameQuery = "SELECT " + gameColumns + " FROM games WHERE id = ?"

	upsertGameQuery = `
		INSERT INTO games (` + gameColumns + `)
		VALUES (:id, :tournament_id, :division_id, :team_a, :team_b, :score_a, :score_b, :status,
			:pool_id, :pool_game_number, :bracket_id, :bracket_round, :bracket_position, :round_name,
			:depends_on_a, :depends_on_b, :winner_feeds_into_game, :loser_feeds_into_game,
			:location, :scheduled_at)
		ON CONFLICT (id) DO UPDATE SET
			tournament_id = excluded.tournament_id,
			division_id = excluded.division_id,
			team_a = excluded.team_a,
			team_b = excluded.team_b,
			score_a = excluded.score_a,
			score_b = excluded.score_b,
			status = excluded.status,
			pool_id = excluded.pool_id,
			pool_game_number = excluded.pool_game_number,
			bracket_id = excluded.bracket_id,
			bracket_round = excluded.bracket_round,
			bracket_position = excluded.bracket_position,
			round_name = excluded.round_name,
			depends_on_a = excluded.depends_on_a,
			depends_on_b = excluded.depends_on_b,
			winner_feeds_into_game = excluded.winner_feeds_into_game,
			loser_feeds_into_game = excluded.loser_feeds_into_game,
			location = excluded.location,
			scheduled_at = excluded.scheduled_at
	`

	deleteGameQuery = "DELETE FROM games WHERE id = ?"
)

type gameRow struct {
	bracket.Game
	DependsOnA *uuid.UUID `db:"depends_on_a"`
	DependsOnB *uuid.UUID `db:"depends_on_b"`
}

func newGameRow(g bracket.Game) gameRow {
	row := gameRow{Game: g}
	row.DependsOnA, row.DependsOnB = splitDependencies(g.DependsOnGames)
	return row
}

func (r gameRow) toGame() bracket.Game {
	g := r.Game
	g.DependsOnGames = nil
	if r.DependsOnA != nil {
		g.DependsOnGames = append(g.DependsOnGames, *r.DependsOnA)
	}
	if r.DependsOnB != nil {
		g.DependsOnGames = append(g.DependsOnGames, *r.DependsOnB)
	}
	return g
}

func splitDependencies(deps []uuid.UUID) (a, b *uuid.UUID) {
	if len(deps) > 0 {
		id := deps[0]
		a = &id
	}
	if len(deps) > 1 {
		id := deps[1]
		b = &id
	}
	return a, b
}

type seedRow struct {
	BracketID uuid.UUID `db:"bracket_id"`
	bracket.BracketSeed
}

type poolTeamRow struct {
	PoolID   uuid.UUID `db:"pool_id"`
	TeamName string    `db:"team_name"`
}

// SQLStore persists documents through sqlx. It works with sqlite3 and postgres.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func notFound(err error, kind string, id uuid.UUID) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", bracket.ErrNotFound, kind, id)
	}
	return err
}

func (s *SQLStore) GetPool(ctx context.Context, id uuid.UUID) (*bracket.Pool, error) {
	var pool bracket.Pool
	if err := s.db.GetContext(ctx, &pool, s.db.Rebind(getPoolQuery), id); err != nil {
		return nil, notFound(err, "pool", id)
	}
	if err := s.db.SelectContext(ctx, &pool.Teams, s.db.Rebind(getPoolTeamsQuery), id); err != nil {
		return nil, fmt.Errorf("failed to load teams of pool %s: %w", id, err)
	}
	return &pool, nil
}

func (s *SQLStore) ListPools(ctx context.Context, divisionID uuid.UUID) ([]bracket.Pool, error) {
	pools := make([]bracket.Pool, 0)
	if err := s.db.SelectContext(ctx, &pools, s.db.Rebind(listPoolsQuery), divisionID); err != nil {
		return nil, err
	}

	var rows []poolTeamRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(listPoolTeamsQuery), divisionID); err != nil {
		return nil, fmt.Errorf("failed to load pool teams: %w", err)
	}
	teams := make(map[uuid.UUID][]string)
	for _, row := range rows {
		teams[row.PoolID] = append(teams[row.PoolID], row.TeamName)
	}
	for i := range pools {
		pools[i].Teams = teams[pools[i].ID]
	}
	return pools, nil
}

func (s *SQLStore) GetBracket(ctx context.Context, id uuid.UUID) (*bracket.Bracket, error) {
	var b bracket.Bracket
	if err := s.db.GetContext(ctx, &b, s.db.Rebind(getBracketQuery), id); err != nil {
		return nil, notFound(err, "bracket", id)
	}

	var rows []seedRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(getSeedsQuery), id); err != nil {
		return nil, fmt.Errorf("failed to load seeds of bracket %s: %w", id, err)
	}
	for _, row := range rows {
		b.Seeds = append(b.Seeds, row.BracketSeed)
	}
	return &b, nil
}

func (s *SQLStore) ListBrackets(ctx context.Context, divisionID uuid.UUID) ([]bracket.Bracket, error) {
	brackets := make([]bracket.Bracket, 0)
	if err := s.db.SelectContext(ctx, &brackets, s.db.Rebind(listBracketsQuery), divisionID); err != nil {
		return nil, err
	}

	var rows []seedRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(listSeedsQuery), divisionID); err != nil {
		return nil, fmt.Errorf("failed to load bracket seeds: %w", err)
	}
	seeds := make(map[uuid.UUID][]bracket.BracketSeed)
	for _, row := range rows {
		seeds[row.BracketID] = append(seeds[row.BracketID], row.BracketSeed)
	}
	for i := range brackets {
		brackets[i].Seeds = seeds[brackets[i].ID]
	}
	return brackets, nil
}

func (s *SQLStore) GetGame(ctx context.Context, id uuid.UUID) (*bracket.Game, error) {
	var row gameRow
	if err := s.db.GetContext(ctx, &row, s.db.Rebind(getGameQuery), id); err != nil {
		return nil, notFound(err, "game", id)
	}
	g := row.toGame()
	return &g, nil
}

func (s *SQLStore) ListGames(ctx context.Context, filter GameFilter) ([]bracket.Game, error) {
	var where []string
	var args []any
	if filter.DivisionID != nil {
		where = append(where, "division_id = ?")
		args = append(args, *filter.DivisionID)
	}
	if filter.PoolID != nil {
		where = append(where, "pool_id = ?")
		args = append(args, *filter.PoolID)
	}
	if filter.BracketID != nil {
		where = append(where, "bracket_id = ?")
		args = append(args, *filter.BracketID)
	}
	if filter.BracketRound != nil {
		where = append(where, "bracket_round = ?")
		args = append(args, *filter.BracketRound)
	}

	query := "SELECT " + gameColumns + " FROM games"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY COALESCE(bracket_round, 0), COALESCE(bracket_position, 0), COALESCE(pool_game_number, 0), id"

	var rows []gameRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	games := make([]bracket.Game, 0, len(rows))
	for _, row := range rows {
		games = append(games, row.toGame())
	}
	return games, nil
}

// Commit applies every batch operation inside one transaction.
func (s *SQLStore) Commit(ctx context.Context, b *Batch) error {
	if b == nil || b.Len() == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, op := range b.ops {
		if err := s.apply(ctx, tx, op); err != nil {
			return fmt.Errorf("batch operation %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func (s *SQLStore) apply(ctx context.Context, tx *sqlx.Tx, op batchOp) error {
	switch op.entity {
	case entityPool:
		switch op.kind {
		case opSet:
			return s.setPool(ctx, tx, op.pool)
		case opUpdate:
			return s.updatePool(ctx, tx, op.id, op.poolUpdate)
		case opDelete:
			if _, err := tx.ExecContext(ctx, tx.Rebind(deletePoolTeamsQuery), op.id); err != nil {
				return err
			}
			return execOne(ctx, tx, deletePoolQuery, "pool", op.id, op.id)
		}
	case entityBracket:
		switch op.kind {
		case opSet:
			return s.setBracket(ctx, tx, op.bracket)
		case opUpdate:
			return s.updateBracket(ctx, tx, op.id, op.bracketUpdate)
		case opDelete:
			if _, err := tx.ExecContext(ctx, tx.Rebind(deleteSeedsQuery), op.id); err != nil {
				return err
			}
			return execOne(ctx, tx, deleteBracketQuery, "bracket", op.id, op.id)
		}
	case entityGame:
		switch op.kind {
		case opSet:
			_, err := tx.NamedExecContext(ctx, upsertGameQuery, newGameRow(op.game))
			return err
		case opUpdate:
			return s.updateGame(ctx, tx, op.id, op.gameUpdate)
		case opDelete:
			return execOne(ctx, tx, deleteGameQuery, "game", op.id, op.id)
		}
	}
	return fmt.Errorf("unknown batch operation %d on entity %d", op.kind, op.entity)
}

func (s *SQLStore) setPool(ctx context.Context, tx *sqlx.Tx, p bracket.Pool) error {
	if _, err := tx.NamedExecContext(ctx, upsertPoolQuery, p); err != nil {
		return err
	}
	return replacePoolTeams(ctx, tx, p.ID, p.Teams)
}

func (s *SQLStore) updatePool(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, u bracket.PoolUpdate) error {
	var sets []string
	var args []any
	if u.Name.Set {
		sets = append(sets, "name = ?")
		args = append(args, u.Name.Value)
	}
	if u.AdvancementCount.Set {
		sets = append(sets, "advancement_count = ?")
		args = append(args, u.AdvancementCount.Value)
	}
	if err := updateRow(ctx, tx, "pools", "pool", id, sets, args); err != nil {
		return err
	}
	if u.Teams.Set {
		return replacePoolTeams(ctx, tx, id, u.Teams.Value)
	}
	return nil
}

func replacePoolTeams(ctx context.Context, tx *sqlx.Tx, poolID uuid.UUID, teams []string) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(deletePoolTeamsQuery), poolID); err != nil {
		return err
	}
	for i, team := range teams {
		if _, err := tx.ExecContext(ctx, tx.Rebind(insertPoolTeamQuery), poolID, i+1, team); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) setBracket(ctx context.Context, tx *sqlx.Tx, b bracket.Bracket) error {
	if _, err := tx.NamedExecContext(ctx, upsertBracketQuery, b); err != nil {
		return err
	}
	return replaceSeeds(ctx, tx, b.ID, b.Seeds)
}

func (s *SQLStore) updateBracket(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, u bracket.BracketUpdate) error {
	var sets []string
	var args []any
	if u.Name.Set {
		sets = append(sets, "name = ?")
		args = append(args, u.Name.Value)
	}
	if u.SeedingSource.Set {
		sets = append(sets, "seeding_source = ?")
		args = append(args, u.SeedingSource.Value)
	}
	if err := updateRow(ctx, tx, "brackets", "bracket", id, sets, args); err != nil {
		return err
	}
	if u.Seeds.Set {
		return replaceSeeds(ctx, tx, id, u.Seeds.Value)
	}
	return nil
}

func replaceSeeds(ctx context.Context, tx *sqlx.Tx, bracketID uuid.UUID, seeds []bracket.BracketSeed) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(deleteSeedsQuery), bracketID); err != nil {
		return err
	}
	for _, seed := range seeds {
		row := seedRow{BracketID: bracketID, BracketSeed: seed}
		if _, err := tx.NamedExecContext(ctx, insertSeedQuery, row); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) updateGame(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, u bracket.GameUpdate) error {
	var sets []string
	var args []any
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if u.TeamA.Set {
		add("team_a", u.TeamA.Value)
	}
	if u.TeamB.Set {
		add("team_b", u.TeamB.Value)
	}
	if u.ScoreA.Set {
		add("score_a", u.ScoreA.Value)
	}
	if u.ScoreB.Set {
		add("score_b", u.ScoreB.Value)
	}
	if u.Status.Set {
		add("status", u.Status.Value)
	}
	if u.DependsOnGames.Set {
		a, b := splitDependencies(u.DependsOnGames.Value)
		add("depends_on_a", a)
		add("depends_on_b", b)
	}
	if u.WinnerFeedsIntoGame.Set {
		add("winner_feeds_into_game", u.WinnerFeedsIntoGame.Value)
	}
	if u.LoserFeedsIntoGame.Set {
		add("loser_feeds_into_game", u.LoserFeedsIntoGame.Value)
	}
	if u.Location.Set {
		add("location", u.Location.Value)
	}
	if u.ScheduledAt.Set {
		add("scheduled_at", u.ScheduledAt.Value)
	}
	return updateRow(ctx, tx, "games", "game", id, sets, args)
}

// updateRow runs UPDATE for the given assignments. With no assignments it
// still verifies the row exists so an empty update on a missing id fails.
func updateRow(ctx context.Context, tx *sqlx.Tx, table, kind string, id uuid.UUID, sets []string, args []any) error {
	if len(sets) == 0 {
		var exists int
		err := tx.GetContext(ctx, &exists, tx.Rebind("SELECT 1 FROM "+table+" WHERE id = ?"), id)
		return notFound(err, kind, id)
	}
	query := "UPDATE " + table + " SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)
	return execOne(ctx, tx, query, kind, id, args...)
}

func execOne(ctx context.Context, tx *sqlx.Tx, query, kind string, id uuid.UUID, args ...any) error {
	result, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", bracket.ErrNotFound, kind, id)
	}
	return nil
}
