package repository

import (
	"context"

	"damara/internal/cache"
)

func invalidatePosts(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, cache.PostKey(id))
	}
	cache.Invalidate(ctx, keys...)
}
