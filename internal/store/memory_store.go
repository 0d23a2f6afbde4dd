package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
	"github.com/AdamBeresnev/tourney-engine/internal/utils"
	"github.com/google/uuid"
)

// MemoryStore keeps documents in maps and hands out copies, so callers can
// never mutate stored state without going through Commit.
type MemoryStore struct {
	mu       sync.RWMutex
	pools    map[uuid.UUID]bracket.Pool
	brackets map[uuid.UUID]bracket.Bracket
	games    map[uuid.UUID]bracket.Game
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pools:    make(map[uuid.UUID]bracket.Pool),
		brackets: make(map[uuid.UUID]bracket.Bracket),
		games:    make(map[uuid.UUID]bracket.Game),
	}
}

func (m *MemoryStore) GetPool(_ context.Context, id uuid.UUID) (*bracket.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pools[id]
	if !ok {
		return nil, fmt.Errorf("%w: pool %s", bracket.ErrNotFound, id)
	}
	copied := copyPool(p)
	return &copied, nil
}

func (m *MemoryStore) ListPools(_ context.Context, divisionID uuid.UUID) ([]bracket.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pools := make([]bracket.Pool, 0)
	for _, p := range m.pools {
		if p.DivisionID == divisionID {
			pools = append(pools, copyPool(p))
		}
	}
	sort.Slice(pools, func(i, j int) bool {
		if pools[i].Name != pools[j].Name {
			return pools[i].Name < pools[j].Name
		}
		return pools[i].ID.String() < pools[j].ID.String()
	})
	return pools, nil
}

func (m *MemoryStore) GetBracket(_ context.Context, id uuid.UUID) (*bracket.Bracket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.brackets[id]
	if !ok {
		return nil, fmt.Errorf("%w: bracket %s", bracket.ErrNotFound, id)
	}
	copied := copyBracket(b)
	return &copied, nil
}

func (m *MemoryStore) ListBrackets(_ context.Context, divisionID uuid.UUID) ([]bracket.Bracket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	brackets := make([]bracket.Bracket, 0)
	for _, b := range m.brackets {
		if b.DivisionID == divisionID {
			brackets = append(brackets, copyBracket(b))
		}
	}
	sort.Slice(brackets, func(i, j int) bool {
		if brackets[i].Name != brackets[j].Name {
			return brackets[i].Name < brackets[j].Name
		}
		return brackets[i].ID.String() < brackets[j].ID.String()
	})
	return brackets, nil
}

func (m *MemoryStore) GetGame(_ context.Context, id uuid.UUID) (*bracket.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.games[id]
	if !ok {
		return nil, fmt.Errorf("%w: game %s", bracket.ErrNotFound, id)
	}
	copied := copyGame(g)
	return &copied, nil
}

func (m *MemoryStore) ListGames(_ context.Context, filter GameFilter) ([]bracket.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	games := make([]bracket.Game, 0)
	for _, g := range m.games {
		if filter.Matches(&g) {
			games = append(games, copyGame(g))
		}
	}
	sortGames(games)
	return games, nil
}

// Commit applies the batch to scratch copies of the maps and only swaps them
// in when every operation succeeded.
func (m *MemoryStore) Commit(_ context.Context, b *Batch) error {
	if b == nil || b.Len() == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pools := make(map[uuid.UUID]bracket.Pool, len(m.pools))
	for k, v := range m.pools {
		pools[k] = v
	}
	brackets := make(map[uuid.UUID]bracket.Bracket, len(m.brackets))
	for k, v := range m.brackets {
		brackets[k] = v
	}
	games := make(map[uuid.UUID]bracket.Game, len(m.games))
	for k, v := range m.games {
		games[k] = v
	}

	for _, op := range b.ops {
		switch op.entity {
		case entityPool:
			switch op.kind {
			case opSet:
				pools[op.id] = copyPool(op.pool)
			case opUpdate:
				p, ok := pools[op.id]
				if !ok {
					return fmt.Errorf("%w: pool %s", bracket.ErrNotFound, op.id)
				}
				p = copyPool(p)
				op.poolUpdate.Apply(&p)
				pools[op.id] = p
			case opDelete:
				if _, ok := pools[op.id]; !ok {
					return fmt.Errorf("%w: pool %s", bracket.ErrNotFound, op.id)
				}
				delete(pools, op.id)
			}
		case entityBracket:
			switch op.kind {
			case opSet:
				brackets[op.id] = copyBracket(op.bracket)
			case opUpdate:
				br, ok := brackets[op.id]
				if !ok {
					return fmt.Errorf("%w: bracket %s", bracket.ErrNotFound, op.id)
				}
				br = copyBracket(br)
				op.bracketUpdate.Apply(&br)
				brackets[op.id] = br
			case opDelete:
				if _, ok := brackets[op.id]; !ok {
					return fmt.Errorf("%w: bracket %s", bracket.ErrNotFound, op.id)
				}
				delete(brackets, op.id)
			}
		case entityGame:
			switch op.kind {
			case opSet:
				games[op.id] = copyGame(op.game)
			case opUpdate:
				g, ok := games[op.id]
				if !ok {
					return fmt.Errorf("%w: game %s", bracket.ErrNotFound, op.id)
				}
				g = copyGame(g)
				op.gameUpdate.Apply(&g)
				games[op.id] = g
			case opDelete:
				if _, ok := games[op.id]; !ok {
					return fmt.Errorf("%w: game %s", bracket.ErrNotFound, op.id)
				}
				delete(games, op.id)
			}
		}
	}

	m.pools = pools
	m.brackets = brackets
	m.games = games
	return nil
}

func copyPool(p bracket.Pool) bracket.Pool {
	p.Teams = append([]string(nil), p.Teams...)
	p.AdvancementCount = clonePtr(p.AdvancementCount)
	return p
}

func copyBracket(b bracket.Bracket) bracket.Bracket {
	b.Seeds = append([]bracket.BracketSeed(nil), b.Seeds...)
	for i := range b.Seeds {
		b.Seeds[i].SourcePoolID = clonePtr(b.Seeds[i].SourcePoolID)
		b.Seeds[i].SourcePoolRank = clonePtr(b.Seeds[i].SourcePoolRank)
	}
	return b
}

func copyGame(g bracket.Game) bracket.Game {
	g.DependsOnGames = append([]uuid.UUID(nil), g.DependsOnGames...)
	g.PoolID = clonePtr(g.PoolID)
	g.PoolGameNumber = clonePtr(g.PoolGameNumber)
	g.BracketID = clonePtr(g.BracketID)
	g.BracketRound = clonePtr(g.BracketRound)
	g.BracketPosition = clonePtr(g.BracketPosition)
	g.WinnerFeedsIntoGame = clonePtr(g.WinnerFeedsIntoGame)
	g.LoserFeedsIntoGame = clonePtr(g.LoserFeedsIntoGame)
	g.ScheduledAt = clonePtr(g.ScheduledAt)
	return g
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// sortGames orders games the same way the SQL store does.
func sortGames(games []bracket.Game) {
	key := utils.OrZero[int]
	sort.Slice(games, func(i, j int) bool {
		a, b := &games[i], &games[j]
		if key(a.BracketRound) != key(b.BracketRound) {
			return key(a.BracketRound) < key(b.BracketRound)
		}
		if key(a.BracketPosition) != key(b.BracketPosition) {
			return key(a.BracketPosition) < key(b.BracketPosition)
		}
		if key(a.PoolGameNumber) != key(b.PoolGameNumber) {
			return key(a.PoolGameNumber) < key(b.PoolGameNumber)
		}
		return a.ID.String() < b.ID.String()
	})
}
