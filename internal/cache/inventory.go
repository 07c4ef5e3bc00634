package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fruitmap/internal/middleware"
)

const (
	ReviewStatsKeyPrefix = "reviews:stats:%s:%d"
	ReviewStatsGenPrefix = "reviews:stats-gen:%s"
	SpeciesListKey       = "species:list"
	SpeciesKeyPrefix     = "species:%d"
)

const (
	ReviewStatsTTL = 5 * time.Minute
	SpeciesTTL     = time.Hour
	// reviewStatsGenTTL outlives any stats entry written under an older generation.
	reviewStatsGenTTL = 24 * time.Hour
)

// ReviewStatsKey returns the stats key of the current generation for treeID.
// A fill that overlaps InvalidateReviewStats writes to a generation no reader
// uses anymore.
func ReviewStatsKey(ctx context.Context, treeID string) string {
	var gen int64
	if client != nil {
		if v, err := client.Get(ctx, reviewStatsGenKey(treeID)).Int64(); err == nil {
			gen = v
		}
	}
	return fmt.Sprintf(ReviewStatsKeyPrefix, treeID, gen)
}

func reviewStatsGenKey(treeID string) string {
	return fmt.Sprintf(ReviewStatsGenPrefix, treeID)
}

func SpeciesKey(id int) string {
	return fmt.Sprintf(SpeciesKeyPrefix, id)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateReviewStats starts a new stats generation for treeID and drops the old entry.
func InvalidateReviewStats(ctx context.Context, treeID string) {
	if client == nil {
		return
	}
	current := ReviewStatsKey(ctx, treeID)
	genKey := reviewStatsGenKey(treeID)

	pipe := client.TxPipeline()
	pipe.Incr(ctx, genKey)
	pipe.Expire(ctx, genKey, reviewStatsGenTTL)
	pipe.Del(ctx, current)
	if _, err := pipe.Exec(ctx); err != nil {
		middleware.Logger.WarnContext(ctx, "review stats invalidation failed",
			slog.String("tree_id", treeID), slog.String("error", err.Error()))
	}
}

func InvalidateSpecies(ctx context.Context, id int) {
	Invalidate(ctx, SpeciesListKey, SpeciesKey(id))
}
