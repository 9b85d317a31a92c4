package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/northbound/crawlpipe/internal/logger"
)

// RedisQueue implements Queue on a Redis list, RPUSH on enqueue and BLPOP
// on dequeue — a simple FIFO frontier, not a stream or consumer group.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue wraps an already-connected client around key (default
// "jobs:default"), verifying the connection with a Ping.
func NewRedisQueue(client *redis.Client, key string) (Queue, error) {
	if key == "" {
		key = "jobs:default"
	}
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("queue: ping redis: %w", err)
	}
	return &RedisQueue{client: client, key: key}, nil
}

func (r *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job: %w", err)
	}
	if err := r.client.RPush(ctx, r.key, data).Err(); err != nil {
		return fmt.Errorf("queue: rpush: %w", err)
	}
	return nil
}

// Dequeue blocks on BLPOP, racing it against ctx cancellation since the
// go-redis client only returns once the server replies or the connection
// itself is closed.
func (r *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	type result struct {
		val []string
		err error
	}
	resultChan := make(chan result, 1)

	go func() {
		val, err := r.client.BLPop(ctx, 0, r.key).Result()
		resultChan <- result{val: val, err: err}
	}()

	select {
	case <-ctx.Done():
		return Job{}, ctx.Err()
	case res := <-resultChan:
		if res.err != nil {
			if res.err == redis.Nil {
				return Job{}, ctx.Err()
			}
			return Job{}, fmt.Errorf("queue: blpop: %w", res.err)
		}
		if len(res.val) < 2 {
			return Job{}, fmt.Errorf("queue: unexpected blpop reply shape")
		}

		var job Job
		if err := json.Unmarshal([]byte(res.val[1]), &job); err != nil {
			return Job{}, fmt.Errorf("queue: decode job: %w", err)
		}
		logger.Debugf("queue: dequeued job type=%s", job.Type)
		return job, nil
	}
}

