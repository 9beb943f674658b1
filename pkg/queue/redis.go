package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"Jarvis/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// promoteDue moves due retries back onto the pending list. Running it as a
// script keeps two instances from promoting the same message twice.
var promoteDue = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, m in ipairs(due) do
	if redis.call('ZREM', KEYS[1], m) == 1 then
		redis.call('LPUSH', KEYS[2], m)
	end
end
return #due
`)

const promoteBatch = 100

// RedisQueue keeps pending messages in a list, delayed retries in a sorted
// set scored by due time and exhausted messages in a dead-letter list.
type RedisQueue struct {
	log    *logger.Logger
	cfg    Config
	client redis.UniversalClient
	prefix string
	now    func() time.Time

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type Option func(*RedisQueue)

// WithKeyPrefix namespaces the queue keys.
func WithKeyPrefix(prefix string) Option {
	return func(r *RedisQueue) { r.prefix = prefix }
}

func NewRedisQueue(l *logger.Logger, cfg Config, client redis.UniversalClient, opts ...Option) *RedisQueue {
	cfg.normalize()
	r := &RedisQueue{
		log:    l,
		cfg:    cfg,
		client: client,
		prefix: "jarvis:queue",
		now:    time.Now,
		jobs:   make(map[string]Job),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterJob binds a job to its message type. A second job for the same
// type is ignored.
func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.Type()]; ok {
		r.log.Warn("job already registered", logger.String("type", job.Type()))
		return
	}
	r.jobs[job.Type()] = job
	r.log.Info("job registered", logger.String("type", job.Type()))
}

// Start pings Redis and launches the workers and the retry promoter.
func (r *RedisQueue) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("queue already running")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	runCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = stop
	r.running = true

	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker(runCtx, i)
	}
	r.wg.Add(1)
	go r.promoter(runCtx)

	r.log.Info("redis queue started",
		logger.Int("workers", r.cfg.Workers),
		logger.String("prefix", r.prefix))
	return nil
}

// Stop cancels the workers and waits for them until ctx expires. A handler
// that is mid-run sees its context cancelled.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.log.Info("redis queue stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue stop: %w", ctx.Err())
	}
}

// Enqueue pushes a message for a registered job type.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	r.mu.RLock()
	running := r.running
	_, known := r.jobs[msgType]
	r.mu.RUnlock()
	if !running {
		return fmt.Errorf("queue not running")
	}
	if !known {
		return fmt.Errorf("no job registered for type %q", msgType)
	}

	msg, err := newMessage(uuid.NewString(), msgType, payload, r.now())
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, r.pendingKey(), data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

// Stats counts pending, retrying and dead messages.
func (r *RedisQueue) Stats(ctx context.Context) (Stats, error) {
	pipe := r.client.Pipeline()
	p := pipe.LLen(ctx, r.pendingKey())
	rt := pipe.ZCard(ctx, r.retryKey())
	d := pipe.LLen(ctx, r.deadKey())
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	return Stats{Pending: p.Val(), Retrying: rt.Val(), Dead: d.Val()}, nil
}

func (r *RedisQueue) worker(ctx context.Context, id int) {
	defer r.wg.Done()
	for ctx.Err() == nil {
		res, err := r.client.BRPop(ctx, r.cfg.PollTimeout, r.pendingKey()).Result()
		switch {
		case err == nil:
		case errors.Is(err, redis.Nil), ctx.Err() != nil:
			continue
		default:
			r.log.Error("queue pop failed", logger.Int("worker", id), logger.Error(err))
			sleep(ctx, r.cfg.PollTimeout)
			continue
		}
		if len(res) < 2 {
			continue
		}
		msg, err := decodeMessage(res[1])
		if err != nil {
			r.log.Error("dropping malformed message", logger.Error(err))
			continue
		}
		r.process(ctx, msg)
	}
}

func (r *RedisQueue) process(ctx context.Context, msg Message) {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.log.Error("no job for message", logger.String("type", msg.Type), logger.String("id", msg.ID))
		r.bury(msg)
		return
	}

	start := time.Now()
	err := job.Handle(ctx, msg.Payload)
	if err == nil {
		r.log.Debug("message processed",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID),
			logger.Duration("elapsed", time.Since(start)))
		return
	}
	if ctx.Err() != nil {
		// Shutdown interrupted the run; put it back for the next start.
		r.schedule(msg, r.now())
		return
	}

	msg.Attempts++
	msg.LastError = err.Error()
	if msg.Attempts > r.cfg.RetryLimit {
		r.log.Error("message exhausted retries",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID),
			logger.Int("attempts", msg.Attempts),
			logger.Error(err))
		r.bury(msg)
		return
	}
	at := r.cfg.retryAt(r.now(), msg.Attempts)
	r.log.Warn("message failed, retry scheduled",
		logger.String("type", msg.Type),
		logger.String("id", msg.ID),
		logger.Int("attempt", msg.Attempts),
		logger.Time("retry_at", at),
		logger.Error(err))
	r.schedule(msg, at)
}

// Writes below use a fresh context so shutdown does not lose the message.
func (r *RedisQueue) schedule(msg Message, at time.Time) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("marshal retry", logger.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.ZAdd(ctx, r.retryKey(), redis.Z{Score: float64(at.UnixMilli()), Member: data}).Err(); err != nil {
		r.log.Error("schedule retry", logger.Error(err))
	}
}

func (r *RedisQueue) bury(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("marshal dead letter", logger.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.LPush(ctx, r.deadKey(), data).Err(); err != nil {
		r.log.Error("push dead letter", logger.Error(err))
	}
}

func (r *RedisQueue) promoter(ctx context.Context) {
	defer r.wg.Done()
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			now := strconv.FormatInt(r.now().UnixMilli(), 10)
			err := promoteDue.Run(ctx, r.client, []string{r.retryKey(), r.pendingKey()}, now, promoteBatch).Err()
			if err != nil && ctx.Err() == nil && !errors.Is(err, redis.Nil) {
				r.log.Error("promote retries", logger.Error(err))
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (r *RedisQueue) pendingKey() string { return r.prefix + ":pending" }
func (r *RedisQueue) retryKey() string   { return r.prefix + ":retry" }
func (r *RedisQueue) deadKey() string    { return r.prefix + ":dead" }
