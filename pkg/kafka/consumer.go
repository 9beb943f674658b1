package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	applogger "Jarvis/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// MessageHandler handles every message of one topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

type delivery struct {
	reader *kafka.Reader
	run    HandleFunc
	msg    kafka.Message
}

// Consumer reads registered topics in one consumer group. Messages are
// routed to workers by partition, so each partition is handled in order.
// Offsets are committed only after the handler returns, or after the
// message has been dead-lettered.
type Consumer struct {
	cfg      ConsumerConfig
	log      *applogger.Logger
	m        *clientMetrics
	mws      []Middleware
	handlers map[string]MessageHandler

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	readers []*kafka.Reader
	queues  []chan delivery
	dlq     *kafka.Writer
	fetchWG sync.WaitGroup
	workWG  sync.WaitGroup
	stop    sync.Once
}

func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	return &Consumer{
		cfg:      cfg,
		log:      cfg.Logger,
		m:        kafkaMetrics(),
		handlers: make(map[string]MessageHandler),
	}, nil
}

// RegisterHandler must be called before Start.
func (c *Consumer) RegisterHandler(h MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.handlers[h.Topic()]; ok {
		c.log.Warn("kafka handler already registered", applogger.String("topic", h.Topic()))
		return
	}
	c.handlers[h.Topic()] = h
}

// Use adds handler middleware. Panics are always recovered; mws run inside
// that guard in the order given. Must be called before Start.
func (c *Consumer) Use(mws ...Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mws = append(c.mws, mws...)
}

// Start launches the readers and workers and returns.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return fmt.Errorf("kafka consumer already started")
	}
	if len(c.handlers) == 0 {
		return fmt.Errorf("kafka consumer has no handlers")
	}
	c.started = true

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel

	if c.cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{
			Addr:                   kafka.TCP(c.cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		}
	}

	c.queues = make([]chan delivery, c.cfg.Workers)
	for i := range c.queues {
		c.queues[i] = make(chan delivery, c.cfg.BufferSize)
		c.workWG.Add(1)
		go c.work(runCtx, i)
	}

	for topic, h := range c.handlers {
		r := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     c.cfg.Brokers,
			GroupID:     c.cfg.GroupID,
			Topic:       topic,
			MinBytes:    c.cfg.MinBytes,
			MaxBytes:    c.cfg.MaxBytes,
			StartOffset: kafka.LastOffset,
		})
		c.readers = append(c.readers, r)
		run := Chain(func(ctx context.Context, msg kafka.Message) error {
			return h.Handle(ctx, msg.Value)
		}, append([]Middleware{Recover()}, c.mws...)...)
		c.fetchWG.Add(1)
		go c.fetch(runCtx, r, topic, run)
	}

	c.log.Info("kafka consumer started",
		applogger.String("group", c.cfg.GroupID),
		applogger.Int("topics", len(c.handlers)),
		applogger.Int("workers", c.cfg.Workers))
	return nil
}

// Stop halts fetching, lets workers finish what they hold and closes the
// readers. Messages left unhandled are redelivered after restart.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return nil
	}

	var err error
	c.stop.Do(func() {
		c.cancel()
		c.fetchWG.Wait()
		for _, q := range c.queues {
			close(q)
		}
		done := make(chan struct{})
		go func() {
			c.workWG.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("kafka consumer stop: %w", ctx.Err())
		}
		for _, r := range c.readers {
			if cerr := r.Close(); cerr != nil {
				c.log.Warn("close kafka reader", applogger.Error(cerr))
			}
		}
		if c.dlq != nil {
			_ = c.dlq.Close()
		}
		c.log.Info("kafka consumer stopped")
	})
	return err
}

func (c *Consumer) fetch(ctx context.Context, r *kafka.Reader, topic string, run HandleFunc) {
	defer c.fetchWG.Done()
	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error("kafka fetch failed", applogger.String("topic", topic), applogger.Error(err))
			if !sleepCtx(ctx, c.cfg.BackoffMax) {
				return
			}
			continue
		}
		idx := msg.Partition % len(c.queues)
		select {
		case c.queues[idx] <- delivery{reader: r, run: run, msg: msg}:
			c.m.backlog.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(c.queues[idx])))
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) work(ctx context.Context, idx int) {
	defer c.workWG.Done()
	for d := range c.queues[idx] {
		c.handle(ctx, d)
		c.m.backlog.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(c.queues[idx])))
	}
}

func (c *Consumer) handle(ctx context.Context, d delivery) {
	topic := d.msg.Topic
	start := time.Now()
	err := c.attempt(ctx, d)
	c.m.handle.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	c.m.handled.WithLabelValues(topic, result(err)).Inc()

	if err != nil {
		if ctx.Err() != nil {
			// Shutting down: leave the offset so the message is redelivered.
			return
		}
		c.deadLetter(d, err)
	}
	c.commit(d)
}

// attempt runs the handler chain with retries.
func (c *Consumer) attempt(ctx context.Context, d delivery) error {
	for n := 1; ; n++ {
		err := d.run(ctx, d.msg)
		if err == nil || n > c.cfg.RetryMax {
			return err
		}
		if !sleepCtx(ctx, backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, n)) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) deadLetter(d delivery, cause error) {
	if c.dlq == nil {
		c.log.Error("kafka message dropped",
			applogger.String("topic", d.msg.Topic),
			applogger.Int64("offset", d.msg.Offset),
			applogger.Error(cause))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.dlq.WriteMessages(ctx, kafka.Message{
		Topic: c.cfg.DLQTopic,
		Key:   d.msg.Key,
		Value: d.msg.Value,
		Headers: []kafka.Header{
			{Key: "source_topic", Value: []byte(d.msg.Topic)},
			{Key: "source_offset", Value: []byte(strconv.FormatInt(d.msg.Offset, 10))},
			{Key: "error", Value: []byte(cause.Error())},
		},
	})
	if err != nil {
		c.log.Error("kafka dlq write failed", applogger.String("topic", c.cfg.DLQTopic), applogger.Error(err))
		return
	}
	c.m.dlq.WithLabelValues(d.msg.Topic).Inc()
}

func (c *Consumer) commit(d delivery) {
	var err error
	for n := 1; n <= 3; n++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = d.reader.CommitMessages(ctx, d.msg)
		cancel()
		if err == nil || errors.Is(err, io.ErrClosedPipe) {
			return
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, n))
	}
	c.log.Error("kafka commit failed",
		applogger.String("topic", d.msg.Topic),
		applogger.Int64("offset", d.msg.Offset),
		applogger.Error(err))
}

// backoffWithJitter doubles from lo up to hi and removes up to half of the
// result at random.
func backoffWithJitter(lo, hi time.Duration, attempt int) time.Duration {
	if lo <= 0 {
		lo = 50 * time.Millisecond
	}
	if hi < lo {
		hi = lo
	}
	d := hi
	if attempt >= 1 && attempt < 32 {
		if exp := lo << uint(attempt-1); exp > 0 && exp < hi {
			d = exp
		}
	}
	return d - time.Duration(rand.Int64N(int64(d)/2+1))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
