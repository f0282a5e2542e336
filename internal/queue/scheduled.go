package queue

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/instabrain/core/internal/domain"
)

// moveScheduledLua atomically pops every member of the scheduled ZSET whose
// score (a unix timestamp) has passed and pushes it onto its priority lane,
// so a crash between the ZRANGEBYSCORE read and the LPUSH write can never
// duplicate or drop a job. Members are plain JSON job payloads; the script
// decodes each one and pushes a job whose Priority is "high" onto KEYS[3]
// and every other member (including one that fails to decode) onto KEYS[2].
const moveScheduledLua = `
local scheduled_key = KEYS[1]
local normal_key = KEYS[2]
local high_key = KEYS[3]
local now = tonumber(ARGV[1])

local due = redis.call("ZRANGEBYSCORE", scheduled_key, "-inf", now)
for _, member in ipairs(due) do
  local dest_key = normal_key
  local ok, job = pcall(cjson.decode, member)
  if ok and type(job) == "table" and job.Priority == "high" then
    dest_key = high_key
  end
  redis.call("ZREM", scheduled_key, member)
  redis.call("LPUSH", dest_key, member)
end
return #due
`

// ScheduleRetry marks a job's next-attempt time and parks it in the
// scheduled ZSET, scored by the retry timestamp.
func (q *RedisQueue) ScheduleRetry(ctx domain.Context, j domain.Job, delay time.Duration) error {
	next := time.Now().Add(delay)
	j.ScheduledAt = &next
	j.Status = domain.JobQueued

	if err := q.jobs.UpdateStatus(ctx, j.ID, domain.JobQueued, nil); err != nil {
		return fmt.Errorf("op=queue.schedule_retry job=%s: %w", j.ID, err)
	}
	payload, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("op=queue.schedule_retry job=%s: %w", j.ID, err)
	}
	if err := q.redis.ZAdd(ctx, keyScheduled, redisZ(float64(next.Unix()), payload)).Err(); err != nil {
		return fmt.Errorf("op=queue.schedule_retry job=%s: %w", j.ID, err)
	}
	return nil
}

// DrainScheduled moves every due job from the scheduled set onto the lane
// of the priority recorded in its payload (high, otherwise normal).
func (q *RedisQueue) DrainScheduled(ctx domain.Context) (int, error) {
	now := float64(time.Now().Unix())
	res, err := q.moveScheduledScript.Run(ctx, q.redis, []string{keyScheduled, keyNormal, keyHigh}, now).Result()
	if err != nil {
		return 0, fmt.Errorf("op=queue.drain_scheduled: %w", err)
	}
	n, _ := res.(int64)
	return int(n), nil
}

// MoveToDLQ records a permanently-failed job in the dead-letter set and
// updates its durable status; it never re-enters a priority lane.
func (q *RedisQueue) MoveToDLQ(ctx domain.Context, j domain.Job, reason string) error {
	j.Status = domain.JobDLQ
	j.LastError = reason
	if err := q.jobs.UpdateStatus(ctx, j.ID, domain.JobDLQ, &reason); err != nil {
		return fmt.Errorf("op=queue.move_to_dlq job=%s: %w", j.ID, err)
	}
	payload, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("op=queue.move_to_dlq job=%s: %w", j.ID, err)
	}
	now := float64(time.Now().Unix())
	if err := q.redis.ZAdd(ctx, keyDLQ, redisZ(now, payload)).Err(); err != nil {
		slog.Warn("queue dlq zadd failed, job remains dlq in store only", slog.String("job_id", j.ID), slog.Any("error", err))
	}
	return nil
}

// Stats returns a point-in-time depth snapshot across all four lanes.
func (q *RedisQueue) Stats(ctx domain.Context) (domain.QueueStats, error) {
	high, err := q.redis.LLen(ctx, keyHigh).Result()
	if err != nil {
		return domain.QueueStats{}, fmt.Errorf("op=queue.stats: %w", err)
	}
	normal, err := q.redis.LLen(ctx, keyNormal).Result()
	if err != nil {
		return domain.QueueStats{}, fmt.Errorf("op=queue.stats: %w", err)
	}
	scheduled, err := q.redis.ZCard(ctx, keyScheduled).Result()
	if err != nil {
		return domain.QueueStats{}, fmt.Errorf("op=queue.stats: %w", err)
	}
	dlq, err := q.redis.ZCard(ctx, keyDLQ).Result()
	if err != nil {
		return domain.QueueStats{}, fmt.Errorf("op=queue.stats: %w", err)
	}
	return domain.QueueStats{HighDepth: high, NormalDepth: normal, ScheduledDepth: scheduled, DLQDepth: dlq}, nil
}

// ListDLQ returns up to limit dead-lettered jobs, most recently moved first.
func (q *RedisQueue) ListDLQ(ctx domain.Context, limit int) ([]domain.Job, error) {
	raw, err := q.redis.ZRevRange(ctx, keyDLQ, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("op=queue.list_dlq: %w", err)
	}
	jobs := make([]domain.Job, 0, len(raw))
	for _, r := range raw {
		var j domain.Job
		if err := json.Unmarshal([]byte(r), &j); err != nil {
			slog.Warn("queue dlq entry unmarshal failed, skipping", slog.Any("error", err))
			continue
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// RequeueFromDLQ moves one dead-lettered job back onto its priority lane,
// resetting its retry count so it gets a fresh run of the retry schedule.
func (q *RedisQueue) RequeueFromDLQ(ctx domain.Context, jobID string) error {
	raw, err := q.redis.ZRange(ctx, keyDLQ, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("op=queue.requeue_dlq job=%s: %w", jobID, err)
	}
	for _, r := range raw {
		var j domain.Job
		if err := json.Unmarshal([]byte(r), &j); err != nil {
			continue
		}
		if j.ID != jobID {
			continue
		}
		if err := q.redis.ZRem(ctx, keyDLQ, r).Err(); err != nil {
			return fmt.Errorf("op=queue.requeue_dlq job=%s: %w", jobID, err)
		}
		j.Status = domain.JobQueued
		j.RetryCount = 0
		j.LastError = ""
		if err := q.jobs.UpdateStatus(ctx, j.ID, domain.JobQueued, nil); err != nil {
			return fmt.Errorf("op=queue.requeue_dlq job=%s: %w", jobID, err)
		}
		payload, err := json.Marshal(j)
		if err != nil {
			return fmt.Errorf("op=queue.requeue_dlq job=%s: %w", jobID, err)
		}
		if err := q.redis.LPush(ctx, queueKey(j.Priority), payload).Err(); err != nil {
			return fmt.Errorf("op=queue.requeue_dlq job=%s: %w", jobID, err)
		}
		return nil
	}
	return fmt.Errorf("op=queue.requeue_dlq job=%s: %w", jobID, domain.ErrNotFound)
}
