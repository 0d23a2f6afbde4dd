package service

import (
	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
	"github.com/google/uuid"
)

// gameGraph is the dependency DAG of a set of games held in an index arena.
// An edge runs from a game to each game listing it in DependsOnGames.
// References to games outside the set are ignored.
type gameGraph struct {
	ids   []uuid.UUID
	index map[uuid.UUID]int
	out   [][]int
	in    []int
}

func newGameGraph(games []bracket.Game) *gameGraph {
	g := &gameGraph{
		ids:   make([]uuid.UUID, len(games)),
		index: make(map[uuid.UUID]int, len(games)),
		out:   make([][]int, len(games)),
		in:    make([]int, len(games)),
	}
	for i := range games {
		g.ids[i] = games[i].ID
		g.index[games[i].ID] = i
	}
	for i := range games {
		for _, dep := range games[i].DependsOnGames {
			g.addEdge(dep, games[i].ID)
		}
	}
	return g
}

// addEdge links from to to. It reports false when either game is unknown or
// the edge already exists.
func (g *gameGraph) addEdge(from, to uuid.UUID) bool {
	f, ok := g.index[from]
	if !ok {
		return false
	}
	t, ok := g.index[to]
	if !ok {
		return false
	}
	for _, n := range g.out[f] {
		if n == t {
			return false
		}
	}
	g.out[f] = append(g.out[f], t)
	g.in[t]++
	return true
}

// removeIncoming drops every edge into id.
func (g *gameGraph) removeIncoming(id uuid.UUID) {
	t, ok := g.index[id]
	if !ok {
		return
	}
	for f := range g.out {
		kept := g.out[f][:0]
		for _, n := range g.out[f] {
			if n == t {
				g.in[t]--
				continue
			}
			kept = append(kept, n)
		}
		g.out[f] = kept
	}
}

func (g *gameGraph) dependents(id uuid.UUID) []uuid.UUID {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]uuid.UUID, 0, len(g.out[i]))
	for _, n := range g.out[i] {
		out = append(out, g.ids[n])
	}
	return out
}

// descendants returns every game reachable from id in breadth-first order,
// excluding id itself.
func (g *gameGraph) descendants(id uuid.UUID) []uuid.UUID {
	start, ok := g.index[id]
	if !ok {
		return nil
	}
	visited := make([]bool, len(g.ids))
	visited[start] = true
	queue := []int{start}
	var out []uuid.UUID
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, next := range g.out[n] {
			if visited[next] {
				continue
			}
			visited[next] = true
			out = append(out, g.ids[next])
			queue = append(queue, next)
		}
	}
	return out
}

// cyclic runs Kahn's algorithm and returns the games that could not be
// ordered, which are exactly those on or behind a cycle. It is nil for a DAG.
func (g *gameGraph) cyclic() []uuid.UUID {
	in := append([]int(nil), g.in...)
	queue := make([]int, 0, len(g.ids))
	for i, d := range in {
		if d == 0 {
			queue = append(queue, i)
		}
	}
	ordered := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		ordered++
		for _, next := range g.out[n] {
			in[next]--
			if in[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if ordered == len(g.ids) {
		return nil
	}
	var stuck []uuid.UUID
	for i, d := range in {
		if d > 0 {
			stuck = append(stuck, g.ids[i])
		}
	}
	return stuck
}
