//go:build wireinject
// +build wireinject

package di

import (
	"Jarvis/internal/usecase"
	"Jarvis/pkg/config"
	"Jarvis/pkg/server"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideKafkaProducer,
	ProvideLogger,
	ProvideMetrics,
	ProvideClickHouseClient,
	ProvideCandleStore,
	ProvideLimiter,
	ProvideLiveSource,
	ProvideMarketData,
	ProvideAggregator,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		infraSet,

		// Infrastructure clients
		ProvideKafkaConsumer,
		ProvideEventPublisher,
		ProvideRedisCache,
		ProvideCache,
		ProvideBacktestQueue,
		ProvideBacktestStore,
		ProvideHub,
		ProvideBroadcaster,
		ProvideNotifier,

		// Market data and execution
		ProvideSelector,
		ProvideMarketSource,
		ProvideQuoteProvider,
		ProvideSwapExecutor,
		ProvideRegistry,
		ProvideStateStore,

		// Use cases
		ProvideStrategyUseCase,
		ProvideBacktestUseCase,
		ProvideConfidenceUseCase,
		ProvideSamplePipeline,
		ProvideConfidencePoller,
		ProvidePriceSamplesHandler,
		ProvideMarketUseCase,
		ProvideFeedPoller,
		ProvideTradeUseCase,
		usecase.NewCandlesUseCase,
		usecase.NewDashboardUseCase,
		usecase.NewStateUseCase,

		// Application server
		ProvideHandlers,
		ProvideHTTPServer,
		ProvideScheduler,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeBacktester wires the one-shot backtest command. Results are not
// published anywhere; the command prints them.
func InitializeBacktester(cfg *config.Config) (*Backtester, func(), error) {
	wire.Build(
		infraSet,
		ProvideNopPublisher,
		ProvideNoBroadcaster,
		ProvideProbedSelector,
		ProvideStrategyUseCase,
		ProvideBacktester,
	)
	return nil, nil, nil
}
