package queue

import (
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/instabrain/core/internal/domain"
)

func redisZ(score float64, member []byte) redis.Z {
	return redis.Z{Score: score, Member: member}
}

// DrainStoreFallback promotes a batch of jobs staged in the pending-fallback
// table (written there when Redis was unreachable at enqueue time) onto
// their priority lanes, then clears the staged rows.
func (q *RedisQueue) DrainStoreFallback(ctx domain.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	drained := 0
	for _, priority := range []domain.JobPriority{domain.PriorityHigh, domain.PriorityNormal} {
		staged, err := q.pending.OldestBatch(ctx, priority, limit)
		if err != nil {
			return drained, fmt.Errorf("op=queue.drain_store_fallback: %w", err)
		}
		for _, j := range staged {
			payload, err := json.Marshal(j)
			if err != nil {
				return drained, fmt.Errorf("op=queue.drain_store_fallback job=%s: %w", j.ID, err)
			}
			if err := q.redis.LPush(ctx, queueKey(priority), payload).Err(); err != nil {
				return drained, fmt.Errorf("op=queue.drain_store_fallback job=%s: %w", j.ID, err)
			}
			if err := q.pending.Delete(ctx, j.ID); err != nil {
				return drained, fmt.Errorf("op=queue.drain_store_fallback job=%s: %w", j.ID, err)
			}
			drained++
		}
	}
	return drained, nil
}
