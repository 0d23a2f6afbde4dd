package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
	"github.com/AdamBeresnev/tourney-engine/internal/store"
	"github.com/google/uuid"
)

type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *ValidationResult) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validator checks a division's structure. It never writes.
type Validator struct {
	base
}

func NewValidator(d Deps) *Validator {
	return &Validator{base: newBase(d)}
}

func (v *Validator) ValidateDivision(ctx context.Context, divisionID uuid.UUID) (*ValidationResult, error) {
	pools, err := v.store.ListPools(ctx, divisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	brackets, err := v.store.ListBrackets(ctx, divisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list brackets: %w", err)
	}
	games, err := v.store.ListGames(ctx, store.GameFilter{DivisionID: &divisionID})
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	result := ValidateStructure(pools, brackets, games)
	if !result.IsValid {
		v.log.Debug("division failed validation", "division_id", divisionID, "errors", len(result.Errors))
	}
	return &result, nil
}

// ValidateStructure cross-checks pools, brackets and games of one division.
// Warnings never make the result invalid.
func ValidateStructure(pools []bracket.Pool, brackets []bracket.Bracket, games []bracket.Game) ValidationResult {
	r := ValidationResult{Errors: []string{}, Warnings: []string{}}

	checkPools(&r, pools)
	checkBrackets(&r, brackets)
	checkAdvancementCapacity(&r, pools, brackets)
	checkGames(&r, pools, brackets, games)

	r.IsValid = len(r.Errors) == 0
	return r
}

func checkPools(r *ValidationResult, pools []bracket.Pool) {
	names := make(map[string]bool, len(pools))
	owner := make(map[string]string)

	for i := range pools {
		p := &pools[i]
		key := bracket.TeamKey(p.Name)
		if names[key] {
			r.errorf("duplicate pool name %q", p.Name)
		}
		names[key] = true

		if n := len(p.Teams); n < bracket.MinPoolTeams || n > bracket.MaxPoolTeams {
			r.errorf("pool %q has %d teams; a pool needs between %d and %d",
				p.Name, n, bracket.MinPoolTeams, bracket.MaxPoolTeams)
		}
		if p.AdvancementCount != nil && (*p.AdvancementCount < 0 || *p.AdvancementCount > len(p.Teams)) {
			r.errorf("pool %q advances %d teams but has %d", p.Name, *p.AdvancementCount, len(p.Teams))
		}

		inPool := make(map[string]bool, len(p.Teams))
		for _, team := range p.Teams {
			tk := bracket.TeamKey(team)
			if tk == "" {
				r.errorf("pool %q has an empty team name", p.Name)
				continue
			}
			if inPool[tk] {
				r.errorf("pool %q lists team %q more than once", p.Name, team)
				continue
			}
			inPool[tk] = true

			if other, ok := owner[tk]; ok {
				r.errorf("team %q is assigned to pools %q and %q", team, other, p.Name)
				continue
			}
			owner[tk] = p.Name
		}
	}
}

func checkBrackets(r *ValidationResult, brackets []bracket.Bracket) {
	names := make(map[string]bool, len(brackets))

	for i := range brackets {
		br := &brackets[i]
		key := bracket.TeamKey(br.Name)
		if names[key] {
			r.errorf("duplicate bracket name %q", br.Name)
		}
		names[key] = true

		if !bracket.ValidSize(br.Size) {
			r.errorf("bracket %q has invalid size %d; size must be one of %v", br.Name, br.Size, bracket.ValidSizes)
		}
		if len(br.Seeds) != br.Size {
			r.errorf("bracket %q has %d seeds for size %d", br.Name, len(br.Seeds), br.Size)
		}

		teams := make(map[string]int)
		positions := make(map[int]bool)
		var unseeded []string
		for _, seed := range br.Seeds {
			if seed.Position < 1 || seed.Position > br.Size {
				r.errorf("bracket %q has a seed at position %d outside 1..%d", br.Name, seed.Position, br.Size)
			} else if positions[seed.Position] {
				r.errorf("bracket %q has more than one seed at position %d", br.Name, seed.Position)
			}
			positions[seed.Position] = true

			if seed.Empty() {
				unseeded = append(unseeded, fmt.Sprint(seed.Position))
				continue
			}
			tk := bracket.TeamKey(seed.TeamName)
			if pos, ok := teams[tk]; ok {
				r.errorf("bracket %q seeds team %q at positions %d and %d", br.Name, seed.TeamName, pos, seed.Position)
				continue
			}
			teams[tk] = seed.Position
		}
		if br.SeedingSource == bracket.SeedingManual && len(unseeded) > 0 {
			r.warnf("bracket %q has unseeded positions: %s", br.Name, strings.Join(unseeded, ", "))
		}
	}
}

// checkAdvancementCapacity compares the teams pools send on with the room in
// brackets seeded from pools. A pool without an advancement count sends every
// team, as SeedBracketFromPools does.
func checkAdvancementCapacity(r *ValidationResult, pools []bracket.Pool, brackets []bracket.Bracket) {
	capacity := 0
	for _, br := range brackets {
		if br.SeedingSource == bracket.SeedingPools || br.SeedingSource == bracket.SeedingMixed {
			capacity += br.Size
		}
	}
	if len(pools) == 0 || capacity == 0 {
		return
	}

	advancing := 0
	for _, p := range pools {
		if p.AdvancementCount == nil {
			advancing += len(p.Teams)
			continue
		}
		advancing += *p.AdvancementCount
	}

	switch {
	case advancing > capacity:
		r.warnf("pools advance %d teams but pool-seeded brackets hold only %d; %d teams would not be placed",
			advancing, capacity, advancing-capacity)
	case advancing < capacity:
		r.warnf("pools advance %d teams into %d pool-seeded bracket positions; %d positions stay empty",
			advancing, capacity, capacity-advancing)
	}
}

func checkGames(r *ValidationResult, pools []bracket.Pool, brackets []bracket.Bracket, games []bracket.Game) {
	poolIDs := make(map[uuid.UUID]bool, len(pools))
	for _, p := range pools {
		poolIDs[p.ID] = true
	}
	bracketIDs := make(map[uuid.UUID]bool, len(brackets))
	for _, br := range brackets {
		bracketIDs[br.ID] = true
	}
	known := make(map[uuid.UUID]bool, len(games))
	for _, g := range games {
		known[g.ID] = true
	}
	structured := len(pools) > 0 || len(brackets) > 0

	for i := range games {
		g := &games[i]
		switch {
		case g.PoolID != nil && g.BracketID != nil:
			r.errorf("game %s belongs to both a pool and a bracket", g.ID)
		case g.PoolID == nil && g.BracketID == nil && structured:
			r.warnf("game %s belongs to neither a pool nor a bracket", g.ID)
		}
		if g.PoolID != nil && !poolIDs[*g.PoolID] {
			r.errorf("game %s references missing pool %s", g.ID, *g.PoolID)
		}
		if g.BracketID != nil && !bracketIDs[*g.BracketID] {
			r.errorf("game %s references missing bracket %s", g.ID, *g.BracketID)
		}

		if len(g.DependsOnGames) > bracket.MaxDependencies {
			r.errorf("game %s has %d dependencies; at most %d are allowed",
				g.ID, len(g.DependsOnGames), bracket.MaxDependencies)
		}
		for _, dep := range g.DependsOnGames {
			if !known[dep] {
				r.errorf("game %s depends on missing game %s", g.ID, dep)
			}
		}
		for _, feed := range []*uuid.UUID{g.WinnerFeedsIntoGame, g.LoserFeedsIntoGame} {
			if feed != nil && !known[*feed] {
				r.errorf("game %s feeds into missing game %s", g.ID, *feed)
			}
		}
	}

	if stuck := newGameGraph(games).cyclic(); stuck != nil {
		r.errorf("game dependencies contain a cycle involving %d games", len(stuck))
	}
}
