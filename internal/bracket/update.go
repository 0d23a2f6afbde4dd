package bracket

import (
	"time"

	"github.com/google/uuid"
)

// Field is one slot of a partial update. The zero value leaves the stored value alone.
type Field[T any] struct {
	Set   bool
	Value T
}

func Set[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

func (f Field[T]) apply(dst *T) {
	if f.Set {
		*dst = f.Value
	}
}

type PoolUpdate struct {
	Name             Field[string]
	Teams            Field[[]string]
	AdvancementCount Field[*int]
}

func (u PoolUpdate) Apply(p *Pool) {
	u.Name.apply(&p.Name)
	if u.Teams.Set {
		p.Teams = append([]string(nil), u.Teams.Value...)
	}
	u.AdvancementCount.apply(&p.AdvancementCount)
}

type BracketUpdate struct {
	Name          Field[string]
	SeedingSource Field[SeedingSource]
	Seeds         Field[[]BracketSeed]
}

func (u BracketUpdate) Apply(b *Bracket) {
	u.Name.apply(&b.Name)
	u.SeedingSource.apply(&b.SeedingSource)
	if u.Seeds.Set {
		b.Seeds = append([]BracketSeed(nil), u.Seeds.Value...)
	}
}

type GameUpdate struct {
	TeamA               Field[string]
	TeamB               Field[string]
	ScoreA              Field[int]
	ScoreB              Field[int]
	Status              Field[GameStatus]
	DependsOnGames      Field[[]uuid.UUID]
	WinnerFeedsIntoGame Field[*uuid.UUID]
	LoserFeedsIntoGame  Field[*uuid.UUID]
	Location            Field[string]
	ScheduledAt         Field[*time.Time]
}

func (u GameUpdate) Apply(g *Game) {
	u.TeamA.apply(&g.TeamA)
	u.TeamB.apply(&g.TeamB)
	u.ScoreA.apply(&g.ScoreA)
	u.ScoreB.apply(&g.ScoreB)
	u.Status.apply(&g.Status)
	if u.DependsOnGames.Set {
		g.DependsOnGames = append([]uuid.UUID(nil), u.DependsOnGames.Value...)
	}
	u.WinnerFeedsIntoGame.apply(&g.WinnerFeedsIntoGame)
	u.LoserFeedsIntoGame.apply(&g.LoserFeedsIntoGame)
	u.Location.apply(&g.Location)
	u.ScheduledAt.apply(&g.ScheduledAt)
}

// SetSlot sets the team slot fed by dependency index i (0 → TeamA, 1 → TeamB).
func (u *GameUpdate) SetSlot(i int, team string) {
	if i == 0 {
		u.TeamA = Set(team)
	} else {
		u.TeamB = Set(team)
	}
}

// Merge overlays the set fields of other onto u.
func (u GameUpdate) Merge(other GameUpdate) GameUpdate {
	merge(&u.TeamA, other.TeamA)
	merge(&u.TeamB, other.TeamB)
	merge(&u.ScoreA, other.ScoreA)
	merge(&u.ScoreB, other.ScoreB)
	merge(&u.Status, other.Status)
	merge(&u.DependsOnGames, other.DependsOnGames)
	merge(&u.WinnerFeedsIntoGame, other.WinnerFeedsIntoGame)
	merge(&u.LoserFeedsIntoGame, other.LoserFeedsIntoGame)
	merge(&u.Location, other.Location)
	merge(&u.ScheduledAt, other.ScheduledAt)
	return u
}

func merge[T any](dst *Field[T], src Field[T]) {
	if src.Set {
		*dst = src
	}
}
