package retrier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	jobKeyPrefix  = "arena:job:"         // Job data: arena:job:{output_id}
	dueSetKey     = "arena:jobs:due"     // Sorted set scored by next run time (unix ms)
	runningSetKey = "arena:jobs:running" // Sorted set scored by lease deadline (unix ms)
	jobTTL        = 7 * 24 * time.Hour   // Safety net for orphaned job data
)

var claimScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, id in ipairs(ids) do
  redis.call('ZREM', KEYS[1], id)
  redis.call('ZADD', KEYS[2], ARGV[3], id)
end
return ids
`)

var requeueScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, id in ipairs(ids) do
  redis.call('ZREM', KEYS[1], id)
  redis.call('ZADD', KEYS[2], ARGV[1], id)
end
return #ids
`)

// RedisJobStore persists jobs in Redis
type RedisJobStore struct {
	client *redis.Client
}

// NewRedisJobStore creates a new RedisJobStore
func NewRedisJobStore(client *redis.Client) *RedisJobStore {
	return &RedisJobStore{client: client}
}

func (s *RedisJobStore) Schedule(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.jobKey(job.OutputID), data, jobTTL)
	pipe.ZAdd(ctx, dueSetKey, redis.Z{Score: float64(job.NextRunAt.UnixMilli()), Member: job.OutputID})
	pipe.ZRem(ctx, runningSetKey, job.OutputID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}
	return nil
}

func (s *RedisJobStore) ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]Job, error) {
	if limit <= 0 {
		limit = 100
	}
	ids, err := claimScript.Run(ctx, s.client,
		[]string{dueSetKey, runningSetKey},
		now.UnixMilli(), limit, now.Add(lease).UnixMilli(),
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to claim jobs: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.jobKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load claimed jobs: %w", err)
	}

	jobs := make([]Job, 0, len(ids))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// data expired or deleted under us
			s.client.ZRem(ctx, runningSetKey, ids[i])
			continue
		}
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job %s: %w", ids[i], err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *RedisJobStore) Delete(ctx context.Context, outputID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.jobKey(outputID))
	pipe.ZRem(ctx, dueSetKey, outputID)
	pipe.ZRem(ctx, runningSetKey, outputID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func (s *RedisJobStore) Get(ctx context.Context, outputID string) (Job, error) {
	data, err := s.client.Get(ctx, s.jobKey(outputID)).Result()
	if err == redis.Nil {
		return Job{}, ErrJobNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("failed to get job: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return Job{}, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return job, nil
}

func (s *RedisJobStore) RequeueExpired(ctx context.Context, now time.Time) (int, error) {
	n, err := requeueScript.Run(ctx, s.client, []string{runningSetKey, dueSetKey}, now.UnixMilli()).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to requeue expired jobs: %w", err)
	}
	return n, nil
}

func (s *RedisJobStore) jobKey(outputID string) string {
	return fmt.Sprintf("%s%s", jobKeyPrefix, outputID)
}
