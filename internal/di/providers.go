package di

import (
	"context"
	"fmt"
	"time"

	domrepo "Jarvis/internal/domain/repository"
	domsvc "Jarvis/internal/domain/service"
	"Jarvis/internal/handler/api"
	mid "Jarvis/internal/middleware"
	internalrepo "Jarvis/internal/repository"
	"Jarvis/internal/service/ratelimit"
	"Jarvis/internal/services/confidence"
	"Jarvis/internal/services/datasource"
	"Jarvis/internal/services/execution"
	"Jarvis/internal/services/market"
	"Jarvis/internal/services/state"
	"Jarvis/internal/services/strategy"
	"Jarvis/internal/usecase"
	"Jarvis/pkg/cache"
	pkgch "Jarvis/pkg/clickhouse"
	"Jarvis/pkg/config"
	xhttp "Jarvis/pkg/http"
	pkgkafka "Jarvis/pkg/kafka"
	"Jarvis/pkg/logger"
	"Jarvis/pkg/metrics"
	"Jarvis/pkg/notify"
	"Jarvis/pkg/queue"
	"Jarvis/pkg/scheduler"
	"Jarvis/pkg/server"
	"Jarvis/pkg/ws"

	"github.com/labstack/echo/v4"
)

// Optional infrastructure providers return nil when the component is
// disabled. Providers that hand them on as interfaces must check for nil
// first so no typed nil leaks into a usecase.

// ProvideLogger builds the application logger. When Kafka is enabled the
// error-log collector ships aggregated errors through the producer.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil {
		l.AddCollector(&logger.CollectionConfig{
			TimeInterval:   cfg.Log.CollectorInterval,
			CountThreshold: cfg.Log.CollectorMax,
			Topic:          cfg.Log.CollectorTopic,
			Publisher:      producer,
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient connects and creates the candle and backtest
// tables. It returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx, pkgch.Config{
		Host:               cfg.ClickHouse.Host,
		Port:               cfg.ClickHouse.Port,
		Database:           cfg.ClickHouse.Database,
		User:               cfg.ClickHouse.User,
		Password:           cfg.ClickHouse.Password,
		HTTP:               cfg.ClickHouse.UseHTTP,
		DialTimeout:        cfg.ClickHouse.DialTimeout,
		ReadTimeout:        cfg.ClickHouse.ReadTimeout,
		WriteTimeout:       cfg.ClickHouse.WriteTimeout,
		AsyncInsert:        cfg.ClickHouse.AsyncInsert,
		WaitForAsyncInsert: cfg.ClickHouse.WaitForAsync,
		MaxExecutionTime:   cfg.ClickHouse.MaxExecutionTime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	stmts := []string{"CREATE DATABASE IF NOT EXISTS " + client.Database()}
	stmts = append(stmts, internalrepo.NewCHCandleStore(client, nil).Schema()...)
	stmts = append(stmts, internalrepo.NewCHBacktestStore(client, nil).Schema()...)
	if err := client.InitSchema(ctx, stmts...); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(pkgkafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		RequiredAcks: cfg.Kafka.RequiredAcks,
		Compression:  cfg.Kafka.Compression,
		MaxAttempts:  cfg.Kafka.Producer.MaxAttempts,
		BatchSize:    cfg.Kafka.Producer.BatchSize,
		BatchBytes:   cfg.Kafka.Producer.BatchBytes,
		Linger:       cfg.Kafka.Producer.Linger,
		WriteTimeout: cfg.Kafka.Producer.WriteTimeout,
		ReadTimeout:  cfg.Kafka.Producer.ReadTimeout,
		Async:        cfg.Kafka.Producer.Async,
		HashByKey:    true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideKafkaConsumer creates the price sample consumer, or nil when Kafka
// is off.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:    cfg.Kafka.Brokers,
		GroupID:    cfg.Kafka.Consumer.GroupID,
		Workers:    cfg.Kafka.Consumer.Workers,
		BufferSize: cfg.Kafka.Consumer.BufferSize,
		RetryMax:   cfg.Kafka.Consumer.RetryMax,
		BackoffMin: cfg.Kafka.Consumer.BackoffMin,
		BackoffMax: cfg.Kafka.Consumer.BackoffMax,
		DLQTopic:   cfg.Kafka.Consumer.DLQTopic,
		MinBytes:   cfg.Kafka.Consumer.MinBytes,
		MaxBytes:   cfg.Kafka.Consumer.MaxBytes,
		Logger:     l,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.Use(pkgkafka.Trace(), pkgkafka.Logging(l, cfg.Server.SlowThreshold))
	return consumer, nil
}

// ProvideEventPublisher publishes consensus and gate events to Kafka, or
// drops them when Kafka is off.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer, m domrepo.Metrics) domrepo.EventPublisher {
	if producer == nil {
		return internalrepo.NopPublisher{}
	}
	return internalrepo.NewKafkaEventPublisher(producer, m, cfg.Kafka.SignalsTopic, cfg.Kafka.ConfidenceTopic)
}

func ProvideNopPublisher() domrepo.EventPublisher { return internalrepo.NopPublisher{} }

// ProvideRedisCache connects to Redis, or returns nil when it is disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	rc, err := cache.NewRedisCache(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideCache layers a memory cache over Redis, or uses memory alone.
func ProvideCache(rc *cache.RedisCache) (cache.Service, func()) {
	if rc == nil {
		mc := cache.NewMemoryCache()
		return mc, func() { _ = mc.Close() }
	}
	lc := cache.NewLayeredCache(rc)
	return lc, func() { _ = lc.Close() }
}

// ProvideBacktestQueue creates the Redis job queue, or nil without Redis.
// The backtest job is registered by ProvideApp once the usecase exists.
func ProvideBacktestQueue(cfg *config.Config, l *logger.Logger, rc *cache.RedisCache) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	return queue.NewRedisQueue(l, queue.Config{
		Workers:    cfg.Redis.Queue.Workers,
		RetryLimit: cfg.Redis.Queue.RetryLimit,
		RetryDelay: cfg.Redis.Queue.RetryDelay,
	}, rc.Client(), queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
}

func ProvideCandleStore(ch *pkgch.Client, l *logger.Logger) domrepo.CandleStore {
	if ch == nil {
		return internalrepo.NewMemoryCandleStore(0)
	}
	return internalrepo.NewCHCandleStore(ch, l)
}

func ProvideBacktestStore(ch *pkgch.Client, l *logger.Logger) domrepo.BacktestStore {
	if ch == nil {
		return internalrepo.NewMemoryBacktestStore(0)
	}
	return internalrepo.NewCHBacktestStore(ch, l)
}

func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

func marketBase(cfg *config.Config, name, url string, rl *ratelimit.Limiter, m domrepo.Metrics, opts ...market.BaseOption) *market.HTTPServiceBase {
	opts = append([]market.BaseOption{
		market.WithLimiter(rl, cfg.Market.RateLimitBurst, cfg.Market.RateLimitRPS),
		market.WithMetrics(m),
	}, opts...)
	return market.NewHTTPServiceBase(name, url, cfg.Market.Timeout, opts...)
}

// ProvideLiveSource stitches the upstream clients together. Sentiment is
// only wired when a backend URL is configured.
func ProvideLiveSource(cfg *config.Config, rl *ratelimit.Limiter, m domrepo.Metrics) *datasource.Live {
	live := &datasource.Live{
		Markets:   market.NewDexScreener(marketBase(cfg, "dexscreener", cfg.Market.DexScreenerURL, rl, m)),
		OHLCV:     market.NewGeckoTerminal(marketBase(cfg, "geckoterminal", cfg.Market.GeckoTerminalURL, rl, m)),
		Prices:    market.NewJupiterPrice(marketBase(cfg, "jupiter_price", cfg.Market.JupiterPriceURL, rl, m)),
		ProbeMint: cfg.Market.QuoteMint,
	}
	bags := market.NewBags(marketBase(cfg, "bags", cfg.Market.BagsURL, rl, m,
		market.WithHeader("x-api-key", cfg.Market.BagsAPIKey)))
	live.GradFn = bags.Graduations
	if cfg.Market.SentimentURL != "" {
		live.SentimentFn = market.NewSentiment(marketBase(cfg, "sentiment", cfg.Market.SentimentURL, rl, m)).Sentiment
	}
	return live
}

// ProvideProbedSelector probes once before returning so one-shot commands
// start on live data when it is reachable.
func ProvideProbedSelector(cfg *config.Config, live *datasource.Live, l *logger.Logger) *datasource.Selector {
	sel := ProvideSelector(cfg, live, l)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Market.Timeout)
	defer cancel()
	_ = sel.Probe(ctx)
	return sel
}

// ProvideSelector falls back to deterministic demo data when the live
// probe fails or demo mode is forced.
func ProvideSelector(cfg *config.Config, live *datasource.Live, l *logger.Logger) *datasource.Selector {
	return datasource.NewSelector(live, live, market.NewDemo(), cfg.Market.DemoMode, l)
}

func ProvideMarketData(sel *datasource.Selector) domsvc.MarketData { return sel }

func ProvideMarketSource(sel *datasource.Selector) usecase.MarketSource { return sel }

func ProvideQuoteProvider(cfg *config.Config, rl *ratelimit.Limiter, m domrepo.Metrics) domsvc.QuoteProvider {
	return market.NewJupiterQuote(marketBase(cfg, "jupiter_quote", cfg.Market.JupiterQuoteURL, rl, m))
}

// ProvideSwapExecutor submits through Solana RPC with Jito as an optional
// first hop.
func ProvideSwapExecutor(cfg *config.Config, m domrepo.Metrics, l *logger.Logger) domsvc.SwapExecutor {
	rpc := market.NewHTTPServiceBase("solana_rpc", cfg.Execution.RPCURL, cfg.Execution.Timeout, market.WithMetrics(m))
	var jito *market.HTTPServiceBase
	if cfg.Execution.JitoURL != "" {
		jito = market.NewHTTPServiceBase("jito", cfg.Execution.JitoURL, cfg.Execution.Timeout, market.WithMetrics(m))
	}
	return execution.NewSubmitter(rpc, jito, cfg.Execution.SkipPreflight, l)
}

// ProvideNotifier sends gate alerts to Telegram when enabled. A bot that
// cannot be created only disables alerts.
func ProvideNotifier(cfg *config.Config, l *logger.Logger) domsvc.Notifier {
	if !cfg.Telegram.Enabled {
		return notify.Nop{}
	}
	t, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.Timeout, l)
	if err != nil {
		l.Warn("telegram alerts disabled", logger.Error(err))
		return notify.Nop{}
	}
	return t
}

func ProvideHub(l *logger.Logger) (*ws.Hub, func()) {
	h := ws.NewHub(l)
	return h, h.Close
}

func ProvideBroadcaster(h *ws.Hub) usecase.Broadcaster { return h }

// ProvideNoBroadcaster is used by one-shot commands that have no clients.
func ProvideNoBroadcaster() usecase.Broadcaster { return nil }

// ProvideAggregator times every rule's backtest into the metrics recorder.
func ProvideAggregator(cfg *config.Config, m domrepo.Metrics) *strategy.Aggregator {
	return strategy.NewAggregator(
		strategy.WithMajority(cfg.Strategy.Majority),
		strategy.WithObserver(func(rule string, elapsed time.Duration) {
			m.RecordBacktest(rule, elapsed.Seconds())
		}),
	)
}

func ProvideRegistry(cfg *config.Config) (*confidence.Registry, error) {
	return confidence.NewRegistry(confidence.Thresholds{
		TightMax:  cfg.Gate.TightMax,
		NormalMax: cfg.Gate.NormalMax,
		WideMax:   cfg.Gate.WideMax,
		Trip:      cfg.Gate.TripRatio,
		Recovery:  cfg.Gate.RecoveryRatio,
	})
}

func ProvideStrategyUseCase(
	cfg *config.Config,
	md domsvc.MarketData,
	agg *strategy.Aggregator,
	candles domrepo.CandleStore,
	pub domrepo.EventPublisher,
	hub usecase.Broadcaster,
	m domrepo.Metrics,
	l *logger.Logger,
) *usecase.StrategyUseCase {
	return usecase.NewStrategyUseCase(md, agg, candles, pub, hub, m, l, usecase.StrategyConfig{
		Pools:     cfg.Strategy.Pools,
		Timeframe: cfg.Strategy.Timeframe,
		Candles:   cfg.Strategy.Candles,
	})
}

func ProvideBacktestUseCase(
	st *usecase.StrategyUseCase,
	store domrepo.BacktestStore,
	c cache.Service,
	q *queue.RedisQueue,
	pub domrepo.EventPublisher,
	m domrepo.Metrics,
	l *logger.Logger,
) *usecase.BacktestUseCase {
	var enq usecase.Enqueuer
	if q != nil {
		enq = q
	}
	return usecase.NewBacktestUseCase(st, store, c, enq, pub, m, l)
}

func ProvideConfidenceUseCase(
	reg *confidence.Registry,
	pub domrepo.EventPublisher,
	hub usecase.Broadcaster,
	n domsvc.Notifier,
	m domrepo.Metrics,
	l *logger.Logger,
) *usecase.ConfidenceUseCase {
	return usecase.NewConfidenceUseCase(reg, pub, hub, n, m, l)
}

// ProvideSamplePipeline orders and throttles every sample before the gate
// sees it, whichever path it arrived on.
func ProvideSamplePipeline(conf *usecase.ConfidenceUseCase, m domrepo.Metrics) *mid.SamplePipeline {
	return mid.NewSamplePipeline(conf, m, mid.WithMaxRPS(10), mid.WithBufferSize(256))
}

func ProvideConfidencePoller(cfg *config.Config, md domsvc.MarketData, pipe *mid.SamplePipeline, m domrepo.Metrics, l *logger.Logger) *usecase.ConfidencePoller {
	return usecase.NewConfidencePoller(md, pipe, m, l, cfg.Gate.Mints)
}

func ProvidePriceSamplesHandler(cfg *config.Config, pipe *mid.SamplePipeline, m domrepo.Metrics) *usecase.PriceSamplesHandler {
	return usecase.NewPriceSamplesHandler(cfg.Kafka.SamplesTopic, pipe, m)
}

func ProvideMarketUseCase(cfg *config.Config, src usecase.MarketSource, c cache.Service, l *logger.Logger) *usecase.MarketUseCase {
	return usecase.NewMarketUseCase(src, c, cfg.Market.CacheTTL, l)
}

func ProvideFeedPoller(cfg *config.Config, mkt *usecase.MarketUseCase, hub usecase.Broadcaster, l *logger.Logger) *usecase.FeedPoller {
	return usecase.NewFeedPoller(mkt, hub, cfg.Gate.Mints, 20, l)
}

func ProvideStateStore(c cache.Service, l *logger.Logger) *state.Store {
	return state.NewStore(c, l)
}

func ProvideTradeUseCase(
	cfg *config.Config,
	quotes domsvc.QuoteProvider,
	exec domsvc.SwapExecutor,
	conf *usecase.ConfidenceUseCase,
	st *state.Store,
	m domrepo.Metrics,
	l *logger.Logger,
) *usecase.TradeUseCase {
	return usecase.NewTradeUseCase(quotes, exec, conf, st, m, l, cfg.Execution.UseJito)
}

// ProvideHandlers lists every HTTP handler in registration order.
func ProvideHandlers(
	l *logger.Logger,
	hub *ws.Hub,
	sel *datasource.Selector,
	pipe *mid.SamplePipeline,
	st *usecase.StrategyUseCase,
	bt *usecase.BacktestUseCase,
	candles *usecase.CandlesUseCase,
	conf *usecase.ConfidenceUseCase,
	mkt *usecase.MarketUseCase,
	dash *usecase.DashboardUseCase,
	stateUC *usecase.StateUseCase,
	trade *usecase.TradeUseCase,
) []xhttp.Handler {
	return []xhttp.Handler{
		api.NewStrategyHandler(l, st, bt, candles),
		api.NewConfidenceHandler(l, conf, pipe),
		api.NewMarketHandler(l, mkt, dash, sel),
		api.NewStateHandler(l, stateUC),
		api.NewTradeHandler(l, trade),
		api.NewStreamHandler(l, hub),
	}
}

func ProvideHTTPServer(cfg *config.Config, l *logger.Logger, rl *ratelimit.Limiter, handlers []xhttp.Handler) *xhttp.Server {
	return xhttp.NewServer(xhttp.ServerConfig{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		SlowThreshold:   cfg.Server.SlowThreshold,
		MetricsPath:     cfg.Metrics.Path,
		CORSOrigins:     cfg.Server.CORSOrigins,
		Logger:          l,
		Middleware:      []echo.MiddlewareFunc{api.RateLimit(rl, cfg.Server.RateBurst, cfg.Server.RateRPS, l)},
	}, handlers...)
}

// ProvideScheduler registers the periodic tasks: datasource probe,
// consensus refresh, gate polling and the feed pushes.
func ProvideScheduler(
	cfg *config.Config,
	l *logger.Logger,
	sel *datasource.Selector,
	st *usecase.StrategyUseCase,
	poller *usecase.ConfidencePoller,
	feeds *usecase.FeedPoller,
) (*scheduler.Scheduler, error) {
	s := scheduler.New(l)
	tasks := []struct {
		name     string
		interval time.Duration
		fn       scheduler.TaskFunc
	}{
		{"datasource_probe", cfg.Market.ProbeInterval, sel.ProbeTask},
		{"consensus_refresh", cfg.Strategy.Interval, st.RefreshTask},
		{"confidence_poll", cfg.Gate.PollInterval, poller.PollTask},
		{"graduations_feed", cfg.Feeds.GraduationsInterval, feeds.GraduationsTask},
		{"sentiment_feed", cfg.Feeds.SentimentInterval, feeds.SentimentTask},
	}
	for _, t := range tasks {
		if err := s.Add(t.name, t.interval, t.fn); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ProvideApp assembles the runtime. The backtest job is registered here
// because the queue and the usecase depend on each other.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	srv *xhttp.Server,
	sched *scheduler.Scheduler,
	pipe *mid.SamplePipeline,
	consumer *pkgkafka.Consumer,
	samples *usecase.PriceSamplesHandler,
	q *queue.RedisQueue,
	bt *usecase.BacktestUseCase,
) *server.App {
	app := server.New(cfg, l, srv, sched, pipe, bt.Wait)
	if consumer != nil {
		consumer.RegisterHandler(samples)
		app.WithConsumer(consumer)
	}
	if q != nil {
		q.RegisterJob(usecase.NewBacktestJob(bt))
		app.WithQueue(q)
	}
	return app
}

// Backtester is what the one-shot backtest command needs.
type Backtester struct {
	Strategy *usecase.StrategyUseCase
	Source   *datasource.Selector
}

func ProvideBacktester(st *usecase.StrategyUseCase, sel *datasource.Selector) *Backtester {
	return &Backtester{Strategy: st, Source: sel}
}
