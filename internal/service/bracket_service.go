package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
	"github.com/AdamBeresnev/tourney-engine/internal/events"
	"github.com/AdamBeresnev/tourney-engine/internal/store"
	"github.com/AdamBeresnev/tourney-engine/internal/utils"
	"github.com/google/uuid"
)

type BracketService struct {
	base
}

func NewBracketService(d Deps) *BracketService {
	return &BracketService{base: newBase(d)}
}

type CreateBracketInput struct {
	DivisionID    uuid.UUID             `json:"divisionId"`
	TournamentID  uuid.UUID             `json:"tournamentId"`
	Name          string                `json:"name"`
	Size          int                   `json:"size"`
	SeedingSource bracket.SeedingSource `json:"seedingSource"`
}

func (s *BracketService) CreateBracket(ctx context.Context, in CreateBracketInput) (*bracket.Bracket, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: bracket name is required", bracket.ErrValidation)
	}
	if !bracket.ValidSize(in.Size) {
		return nil, fmt.Errorf("%w: bracket size %d must be one of %v", bracket.ErrValidation, in.Size, bracket.ValidSizes)
	}
	source := in.SeedingSource
	if source == "" {
		source = bracket.SeedingManual
	}
	if !source.Valid() {
		return nil, fmt.Errorf("%w: unknown seeding source %q", bracket.ErrValidation, source)
	}

	existing, err := s.store.ListBrackets(ctx, in.DivisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list brackets: %w", err)
	}
	for _, br := range existing {
		if bracket.TeamKey(br.Name) == bracket.TeamKey(name) {
			return nil, fmt.Errorf("%w: bracket %q already exists in this division", bracket.ErrValidation, name)
		}
	}

	br := bracket.Bracket{
		ID:            uuid.New(),
		DivisionID:    in.DivisionID,
		TournamentID:  in.TournamentID,
		Name:          name,
		Size:          in.Size,
		SeedingSource: source,
		Seeds:         bracket.EmptySeeds(in.Size),
	}

	b := store.NewBatch()
	b.SetBracket(br)
	if err := s.store.Commit(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create bracket: %w", err)
	}

	s.log.Info("bracket created", "bracket_id", br.ID, "division_id", br.DivisionID, "size", br.Size)
	s.publish(ctx, events.BracketCreated, br.DivisionID, br.ID)
	return &br, nil
}

func (s *BracketService) GetBracket(ctx context.Context, bracketID uuid.UUID) (*bracket.Bracket, error) {
	return s.store.GetBracket(ctx, bracketID)
}

func (s *BracketService) ListBrackets(ctx context.Context, divisionID uuid.UUID) ([]bracket.Bracket, error) {
	return s.store.ListBrackets(ctx, divisionID)
}

// GenerateBracketGames builds the full single-elimination tree in one batch,
// replacing the bracket's current schedule.
func (s *BracketService) GenerateBracketGames(ctx context.Context, bracketID uuid.UUID) ([]bracket.Game, error) {
	br, err := s.store.GetBracket(ctx, bracketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bracket: %w", err)
	}
	if !bracket.ValidSize(br.Size) {
		return nil, fmt.Errorf("%w: bracket size %d must be one of %v", bracket.ErrValidation, br.Size, bracket.ValidSizes)
	}

	b := store.NewBatch()
	if err := s.clearBracketGames(ctx, br, b); err != nil {
		return nil, err
	}
	games := BuildBracketGames(br)
	for _, g := range games {
		b.SetGame(g)
	}
	if err := s.store.Commit(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to save bracket games: %w", err)
	}

	s.log.Info("bracket games generated", "bracket_id", br.ID, "games", len(games))
	s.publish(ctx, events.BracketGamesGenerated, br.DivisionID, append([]uuid.UUID{br.ID}, gameIDs(games)...)...)
	return games, nil
}

// UpdateSeeds overwrites the listed seed positions and re-derives round 1.
// Positions that are not listed keep their current assignment.
func (s *BracketService) UpdateSeeds(ctx context.Context, bracketID uuid.UUID, seeds []bracket.BracketSeed) (*bracket.Bracket, error) {
	br, err := s.store.GetBracket(ctx, bracketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bracket: %w", err)
	}

	merged := bracket.EmptySeeds(br.Size)
	for _, seed := range br.Seeds {
		if seed.Position >= 1 && seed.Position <= br.Size {
			merged[seed.Position-1] = seed
		}
	}

	touched := make(map[int]bool, len(seeds))
	for _, seed := range seeds {
		if seed.Position < 1 || seed.Position > br.Size {
			return nil, fmt.Errorf("%w: seed position %d is outside 1..%d", bracket.ErrValidation, seed.Position, br.Size)
		}
		if touched[seed.Position] {
			return nil, fmt.Errorf("%w: seed position %d is listed more than once", bracket.ErrValidation, seed.Position)
		}
		touched[seed.Position] = true
		seed.TeamName = strings.TrimSpace(seed.TeamName)
		merged[seed.Position-1] = seed
	}

	seen := make(map[string]int)
	for _, seed := range merged {
		if seed.Empty() {
			continue
		}
		key := bracket.TeamKey(seed.TeamName)
		if pos, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: team %q is seeded at positions %d and %d",
				bracket.ErrValidation, seed.TeamName, pos, seed.Position)
		}
		seen[key] = seed.Position
	}

	br.Seeds = merged
	b := store.NewBatch()
	b.UpdateBracket(br.ID, bracket.BracketUpdate{Seeds: bracket.Set(merged)})
	if err := rederiveRoundOne(ctx, s.store, br, b); err != nil {
		return nil, err
	}
	if err := s.store.Commit(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to update seeds: %w", err)
	}

	s.publish(ctx, events.BracketUpdated, br.DivisionID, br.ID)
	return br, nil
}

// DeleteBracket removes the bracket together with its games.
func (s *BracketService) DeleteBracket(ctx context.Context, bracketID uuid.UUID) error {
	br, err := s.store.GetBracket(ctx, bracketID)
	if err != nil {
		return fmt.Errorf("failed to get bracket: %w", err)
	}

	b := store.NewBatch()
	if err := s.clearBracketGames(ctx, br, b); err != nil {
		return err
	}
	b.DeleteBracket(br.ID)
	if err := s.store.Commit(ctx, b); err != nil {
		return fmt.Errorf("failed to delete bracket: %w", err)
	}

	s.publish(ctx, events.BracketDeleted, br.DivisionID, br.ID)
	return nil
}

func (s *BracketService) BracketByes(ctx context.Context, bracketID uuid.UUID) (*ByeReport, error) {
	br, err := s.store.GetBracket(ctx, bracketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bracket: %w", err)
	}
	report := AnalyzeByes(br)
	return &report, nil
}

func (s *BracketService) clearBracketGames(ctx context.Context, br *bracket.Bracket, b *store.Batch) error {
	games, err := s.store.ListGames(ctx, store.GameFilter{BracketID: &br.ID})
	if err != nil {
		return fmt.Errorf("failed to list bracket games: %w", err)
	}
	if hasCompleted(games) {
		return fmt.Errorf("%w: bracket %q already has completed games", bracket.ErrConflict, br.Name)
	}
	for _, g := range games {
		b.DeleteGame(g.ID)
	}
	return nil
}

// BuildBracketGames lays out log2(size) rounds. Round 1 game p takes seeds
// 2p and 2p+1; later games depend on games 2p and 2p+1 of the previous round.
func BuildBracketGames(br *bracket.Bracket) []bracket.Game {
	totalRounds := bracket.TotalRounds(br.Size)
	rounds := make([][]bracket.Game, totalRounds)

	for r := 1; r <= totalRounds; r++ {
		count := br.Size >> r
		round := make([]bracket.Game, count)
		for p := 0; p < count; p++ {
			g := bracket.Game{
				ID:              uuid.New(),
				TournamentID:    br.TournamentID,
				DivisionID:      br.DivisionID,
				Status:          bracket.GameScheduled,
				BracketID:       utils.Ptr(br.ID),
				BracketRound:    utils.Ptr(r),
				BracketPosition: utils.Ptr(p),
				RoundName:       bracket.RoundName(r, totalRounds),
			}
			if r == 1 {
				g.TeamA = br.SeedTeam(2 * p)
				g.TeamB = br.SeedTeam(2*p + 1)
			} else {
				prev := rounds[r-2]
				g.DependsOnGames = []uuid.UUID{prev[2*p].ID, prev[2*p+1].ID}
			}
			round[p] = g
		}
		rounds[r-1] = round
	}

	for r := 0; r < totalRounds-1; r++ {
		for p := range rounds[r] {
			rounds[r][p].WinnerFeedsIntoGame = utils.Ptr(rounds[r+1][p/2].ID)
		}
	}

	games := make([]bracket.Game, 0, br.Size-1)
	for _, round := range rounds {
		games = append(games, round...)
	}
	return games
}

// rederiveRoundOne queues team updates that put the bracket's current seeds
// back into its first-round games using adjacent pairing.
func rederiveRoundOne(ctx context.Context, st store.Store, br *bracket.Bracket, b *store.Batch) error {
	games, err := st.ListGames(ctx, store.GameFilter{BracketID: &br.ID, BracketRound: utils.Ptr(1)})
	if err != nil {
		return fmt.Errorf("failed to list first round games: %w", err)
	}
	if hasCompleted(games) {
		return fmt.Errorf("%w: bracket %q has completed first round games", bracket.ErrConflict, br.Name)
	}
	for _, g := range games {
		if g.BracketPosition == nil {
			continue
		}
		p := *g.BracketPosition
		b.UpdateGame(g.ID, bracket.GameUpdate{
			TeamA: bracket.Set(br.SeedTeam(2 * p)),
			TeamB: bracket.Set(br.SeedTeam(2*p + 1)),
		})
	}
	return nil
}
