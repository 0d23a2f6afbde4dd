package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
	"github.com/AdamBeresnev/tourney-engine/internal/cache"
	"github.com/AdamBeresnev/tourney-engine/internal/events"
	"github.com/AdamBeresnev/tourney-engine/internal/store"
	"github.com/google/uuid"
)

const DefaultStandingsTTL = 5 * time.Minute

// Deps are the collaborators every engine is built from. Only Store is required.
type Deps struct {
	Store        store.Store
	Cache        cache.Cache
	Publisher    events.Publisher
	Logger       *slog.Logger
	// Zero means DefaultStandingsTTL.
	StandingsTTL time.Duration
}

type base struct {
	store  store.Store
	cache  cache.Cache
	events events.Publisher
	log    *slog.Logger
	ttl    time.Duration
}

func newBase(d Deps) base {
	b := base{
		store:  d.Store,
		cache:  d.Cache,
		events: d.Publisher,
		log:    d.Logger,
		ttl:    d.StandingsTTL,
	}
	if b.cache == nil {
		b.cache = cache.Nop{}
	}
	if b.events == nil {
		b.events = events.NopPublisher{}
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	if b.ttl <= 0 {
		b.ttl = DefaultStandingsTTL
	}
	return b
}

// publish announces a committed change. Failures never reach the caller.
func (b *base) publish(ctx context.Context, typ events.Type, divisionID uuid.UUID, ids ...uuid.UUID) {
	e := events.Event{Type: typ, DivisionID: divisionID, IDs: ids}
	if err := b.events.Publish(ctx, e); err != nil {
		b.log.Warn("failed to publish event", "type", typ, "division_id", divisionID, "error", err)
	}
}

func (b *base) invalidate(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := b.cache.Invalidate(ctx, key); err != nil {
			b.log.Warn("failed to invalidate cache entry", "key", key, "error", err)
		}
	}
}

// invalidateGame drops every standings entry a change to g can affect.
func (b *base) invalidateGame(ctx context.Context, g *bracket.Game) {
	keys := []string{cache.DivisionStandingsKey(g.DivisionID)}
	if g.PoolID != nil {
		keys = append(keys, cache.PoolStandingsKey(*g.PoolID))
	}
	for _, team := range []string{g.TeamA, g.TeamB} {
		if team != "" {
			keys = append(keys, cache.TeamStatsKey(team, g.DivisionID))
		}
	}
	b.invalidate(ctx, keys...)
}

func hasCompleted(games []bracket.Game) bool {
	for i := range games {
		if games[i].IsCompleted() {
			return true
		}
	}
	return false
}

func gameIDs(games []bracket.Game) []uuid.UUID {
	ids := make([]uuid.UUID, len(games))
	for i := range games {
		ids[i] = games[i].ID
	}
	return ids
}
