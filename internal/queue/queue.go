package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// ExportJob asks the worker to snapshot one class's presence matrix for a day
// and push it to the file host.
type ExportJob struct {
	ClassName string `json:"class_name"`
	Day       string `json:"day"`
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, job ExportJob) error
	Consume(ctx context.Context) (<-chan ExportJob, error)
}

// InMemory is a minimal channel-backed queue for dev/testing.
type InMemory struct {
	ch chan ExportJob
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan ExportJob, size)}
}

// Publish enqueues a job.
func (q *InMemory) Publish(ctx context.Context, job ExportJob) error {
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns a channel for workers.
func (q *InMemory) Consume(ctx context.Context) (<-chan ExportJob, error) {
	out := make(chan ExportJob)
	go func() {
		defer close(out)
		for {
			select {
			case job := <-q.ch:
				out <- job
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue implements a Redis list-backed queue using LPUSH/BRPOP semantics.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds a queue on the given list key.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "classmark:exports"
	}
	return &RedisQueue{client: client, key: key}
}

// Publish enqueues a job.
func (q *RedisQueue) Publish(ctx context.Context, job ExportJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, payload).Err()
}

// Consume streams jobs using BRPOP. Malformed entries are skipped.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan ExportJob, error) {
	out := make(chan ExportJob)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				continue
			}
			if len(res) == 2 {
				var job ExportJob
				if err := json.Unmarshal([]byte(res[1]), &job); err == nil {
					out <- job
				}
			}
		}
	}()
	return out, nil
}
