package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/neonarte/neon-backend/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	QueueEmail = "jobs:email"

	// MaxAttempts is how many times a job is tried before it is moved to
	// the dead letter queue.
	MaxAttempts = 3
)

// ErrEmpty is returned by Queue.Pop when nothing arrived before the timeout
var ErrEmpty = errors.New("worker: queue empty")

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Queue is a list of encoded jobs
type Queue interface {
	Push(ctx context.Context, queue string, data []byte) error
	Pop(ctx context.Context, timeout time.Duration, queues ...string) (string, []byte, error)
}

// RedisQueue stores jobs in Redis lists. Producers LPUSH and workers BRPOP,
// so jobs are consumed in arrival order.
type RedisQueue struct {
	rdb *redis.Client
}

// NewRedisQueue creates a queue backed by rdb
func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

// Push implements Queue
func (q *RedisQueue) Push(ctx context.Context, queue string, data []byte) error {
	return q.rdb.LPush(ctx, queue, data).Err()
}

// Pop implements Queue
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration, queues ...string) (string, []byte, error) {
	result, err := q.rdb.BRPop(ctx, timeout, queues...).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil, ErrEmpty
	}
	if err != nil {
		return "", nil, err
	}
	if len(result) < 2 {
		return "", nil, ErrEmpty
	}
	return result[0], []byte(result[1]), nil
}

// Len returns the number of jobs waiting in queue
func (q *RedisQueue) Len(ctx context.Context, queue string) (int64, error) {
	return q.rdb.LLen(ctx, queue).Result()
}

// Dispatcher enqueues async jobs.
type Dispatcher struct {
	queue Queue
}

// NewDispatcher creates a dispatcher writing to queue
func NewDispatcher(queue Queue) *Dispatcher {
	return &Dispatcher{queue: queue}
}

// EnqueueEmail pushes an email job.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, jobType string, payload interface{}) error {
	return d.enqueue(ctx, QueueEmail, jobType, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.queue.Push(ctx, queue, encoded)
}

// Handler processes the payload of one job type
type Handler func(ctx context.Context, payload json.RawMessage) error

// Pool runs workers that consume the job queues
type Pool struct {
	queue       Queue
	handlers    map[string]Handler
	pollTimeout time.Duration
	wg          sync.WaitGroup
	log         *logrus.Entry
}

// NewPool creates a pool reading from queue
func NewPool(queue Queue, pollTimeout time.Duration) *Pool {
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}
	return &Pool{
		queue:       queue,
		handlers:    make(map[string]Handler),
		pollTimeout: pollTimeout,
		log:         logger.Channel(logger.ChannelWorker),
	}
}

// Handle registers the handler for jobType. Not safe to call after Start.
func (p *Pool) Handle(jobType string, h Handler) {
	p.handlers[jobType] = h
}

// Start launches numWorkers goroutines. They stop when ctx is cancelled.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.log.WithField("workers", numWorkers).Info("worker pool started")
}

// Wait blocks until every worker has returned
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		if ctx.Err() != nil {
			p.log.WithField("worker", id).Info("worker shutting down")
			return
		}
		if _, err := p.ProcessNext(ctx); err != nil && ctx.Err() == nil {
			p.log.WithError(err).WithField("worker", id).Warn("queue read failed")
			time.Sleep(time.Second)
		}
	}
}

// ProcessNext waits for one job and processes it. It reports whether a job
// was found.
func (p *Pool) ProcessNext(ctx context.Context) (bool, error) {
	queue, raw, err := p.queue.Pop(ctx, p.pollTimeout, QueueEmail)
	if errors.Is(err, ErrEmpty) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	p.process(ctx, queue, raw)
	return true, nil
}

func (p *Pool) process(ctx context.Context, queue string, raw []byte) {
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		p.log.WithError(err).WithField("queue", queue).Error("failed to unmarshal job")
		SendRawToDLQ(ctx, p.queue, queue, raw, "invalid envelope")
		return
	}

	entry := p.log.WithFields(logrus.Fields{"queue": queue, "type": job.Type, "attempt": job.Attempts + 1})

	handler, ok := p.handlers[job.Type]
	if !ok {
		entry.Error("no handler registered")
		SendToDLQ(ctx, p.queue, queue, job, "no handler registered")
		return
	}

	err := handler(ctx, job.Payload)
	if err == nil {
		entry.Info("job processed")
		return
	}

	job.Attempts++
	if job.Attempts >= MaxAttempts {
		entry.WithError(err).Error("job failed permanently")
		SendToDLQ(ctx, p.queue, queue, job, err.Error())
		return
	}

	entry.WithError(err).Warn("job failed, requeueing")
	encoded, mErr := json.Marshal(job)
	if mErr == nil {
		mErr = p.queue.Push(ctx, queue, encoded)
	}
	if mErr != nil {
		entry.WithError(fmt.Errorf("requeue: %w", mErr)).Error("job lost")
	}
}
