package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Cache memoizes read results for a bounded time. Values are opaque bytes;
// a missing or expired key is reported with ok == false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

func TeamStatsKey(team string, divisionID uuid.UUID) string {
	return fmt.Sprintf("team-stats:%s:%s", team, divisionID)
}

func DivisionStandingsKey(divisionID uuid.UUID) string {
	return fmt.Sprintf("division-standings:%s", divisionID)
}

func PoolStandingsKey(poolID uuid.UUID) string {
	return fmt.Sprintf("pool-standings:%s", poolID)
}

// Nop never stores anything. It stands in when caching is disabled.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) Invalidate(context.Context, string) error                 { return nil }
