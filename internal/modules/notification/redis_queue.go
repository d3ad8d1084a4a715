package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/georgemunganga/crafty-backend/internal/config"
)

// reserveScript promotes due delayed jobs and expired leases onto the
// ready end of the waiting list, then leases the next job until ARGV[3].
var reserveScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, id in ipairs(due) do
  redis.call('ZREM', KEYS[1], id)
  redis.call('RPUSH', KEYS[2], id)
end
local expired = redis.call('ZRANGEBYSCORE', KEYS[3], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, id in ipairs(expired) do
  redis.call('ZREM', KEYS[3], id)
  redis.call('RPUSH', KEYS[2], id)
end
local id = redis.call('RPOP', KEYS[2])
if not id then
  return false
end
redis.call('ZADD', KEYS[3], ARGV[3], id)
return id
`)

// recoverScript returns every job whose lease ran out to waiting.
var recoverScript = redis.NewScript(`
local expired = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, id in ipairs(expired) do
  redis.call('ZREM', KEYS[1], id)
  redis.call('RPUSH', KEYS[2], id)
end
return #expired
`)

// leaseMargin is added to the job timeout so a lease outlives the attempt
// it covers, including the Complete/Retry/Fail round trip.
const leaseMargin = 30 * time.Second

// RedisQueue keeps job bodies under <name>:job:<id> and moves ids between
// the waiting list and the active and delayed sorted sets. Active ids are
// scored by lease expiry, so several processes can share one queue and only
// abandoned reservations are ever handed out again. Finished jobs are kept
// in bounded completed and failed history lists.
type RedisQueue struct {
	rdb              redis.UniversalClient
	name             string
	removeOnComplete int64
	removeOnFail     int64
	lease            time.Duration
	now              func() time.Time
}

func NewRedisQueue(rdb redis.UniversalClient, cfg config.QueueConfig) *RedisQueue {
	jobTimeout := cfg.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}
	return &RedisQueue{
		rdb:              rdb,
		name:             cfg.Name,
		removeOnComplete: cfg.RemoveOnComplete,
		removeOnFail:     cfg.RemoveOnFail,
		lease:            jobTimeout + leaseMargin,
		now:              time.Now,
	}
}

func (q *RedisQueue) key(part string) string { return q.name + ":" + part }
func (q *RedisQueue) jobKey(id string) string { return q.name + ":job:" + id }

func (q *RedisQueue) Enqueue(ctx context.Context, job *Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, q.jobKey(job.ID), body, 0)
		pipe.LPush(ctx, q.key("waiting"), job.ID)
		return nil
	})
	return err
}

// Reserve polls once, and once more after wait if the queue was empty.
func (q *RedisQueue) Reserve(ctx context.Context, wait time.Duration) (*Job, error) {
	job, err := q.reserve(ctx)
	if job != nil || err != nil || wait <= 0 {
		return job, err
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.C:
	}
	return q.reserve(ctx)
}

func (q *RedisQueue) reserve(ctx context.Context) (*Job, error) {
	now := q.now()
	id, err := reserveScript.Run(ctx, q.rdb,
		[]string{q.key("delayed"), q.key("waiting"), q.key("active")},
		now.UnixMilli(), 100, now.Add(q.lease).UnixMilli(),
	).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reserve job: %w", err)
	}

	body, err := q.rdb.Get(ctx, q.jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		q.rdb.ZRem(ctx, q.key("active"), id)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

func (q *RedisQueue) Complete(ctx context.Context, job *Job) error {
	return q.finish(ctx, job, "completed", q.removeOnComplete)
}

func (q *RedisQueue) Fail(ctx context.Context, job *Job, cause error) error {
	if cause != nil {
		job.LastError = cause.Error()
	}
	return q.finish(ctx, job, "failed", q.removeOnFail)
}

// finish drops the job body and records it in a trimmed history list.
func (q *RedisQueue) finish(ctx context.Context, job *Job, outcome string, keep int64) error {
	at := q.now().UTC()
	job.FinishedAt = &at
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, q.key("active"), job.ID)
		pipe.Del(ctx, q.jobKey(job.ID))
		pipe.Incr(ctx, q.key("stats:"+outcome))
		if keep > 0 {
			pipe.LPush(ctx, q.key(outcome), body)
			pipe.LTrim(ctx, q.key(outcome), 0, keep-1)
		}
		return nil
	})
	return err
}

func (q *RedisQueue) Retry(ctx context.Context, job *Job, delay time.Duration) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	readyAt := float64(q.now().Add(delay).UnixMilli())
	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, q.jobKey(job.ID), body, 0)
		pipe.ZRem(ctx, q.key("active"), job.ID)
		pipe.ZAdd(ctx, q.key("delayed"), redis.Z{Score: readyAt, Member: job.ID})
		return nil
	})
	return err
}

func (q *RedisQueue) Stats(ctx context.Context) (Stats, error) {
	var (
		waiting, active   *redis.IntCmd
		delayed           *redis.IntCmd
		completed, failed *redis.StringCmd
	)
	_, err := q.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		waiting = pipe.LLen(ctx, q.key("waiting"))
		active = pipe.ZCard(ctx, q.key("active"))
		delayed = pipe.ZCard(ctx, q.key("delayed"))
		completed = pipe.Get(ctx, q.key("stats:completed"))
		failed = pipe.Get(ctx, q.key("stats:failed"))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return Stats{}, err
	}
	c, _ := completed.Int64()
	f, _ := failed.Int64()
	return Stats{
		Waiting:   waiting.Val(),
		Delayed:   delayed.Val(),
		Active:    active.Val(),
		Completed: c,
		Failed:    f,
	}, nil
}

// Recover returns jobs whose lease has expired to waiting. Jobs still
// leased by a live worker, in this process or another, are left alone.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	n, err := recoverScript.Run(ctx, q.rdb,
		[]string{q.key("active"), q.key("waiting")},
		q.now().UnixMilli(),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("recover expired leases: %w", err)
	}
	return n, nil
}

func (q *RedisQueue) FailedJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 20
	}
	raw, err := q.rdb.LRange(ctx, q.key("failed"), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}
	jobs := make([]*Job, 0, len(raw))
	for _, r := range raw {
		var job Job
		if err := json.Unmarshal([]byte(r), &job); err != nil {
			return nil, fmt.Errorf("decode failed job: %w", err)
		}
		jobs = append(jobs, &job)
	}
	return jobs, nil
}
