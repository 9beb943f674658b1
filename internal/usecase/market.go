package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Jarvis/internal/domain/models"
	domsvc "Jarvis/internal/domain/service"
	"Jarvis/pkg/cache"
	"Jarvis/pkg/logger"
)

// MarketSource is everything the market panels read.
type MarketSource interface {
	domsvc.MarketData
	domsvc.SentimentSource
	domsvc.GraduationFeed
}

// MarketUseCase serves token, sentiment and graduation data with a short
// read-through cache.
type MarketUseCase struct {
	src   MarketSource
	cache cache.Service
	ttl   time.Duration
	log   *logger.Logger
}

func NewMarketUseCase(src MarketSource, c cache.Service, ttl time.Duration, l *logger.Logger) *MarketUseCase {
	return &MarketUseCase{src: src, cache: c, ttl: ttl, log: l}
}

// cached reads key into dest or fills it with load. Demo results are not
// cached so live data shows up as soon as it is back.
func cached[T any](ctx context.Context, uc *MarketUseCase, key string, isDemo func(T) bool, load func() (T, error)) (T, error) {
	var v T
	if uc.cache != nil && uc.ttl > 0 {
		if err := uc.cache.Get(ctx, key, &v); err == nil {
			return v, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			uc.log.Debug("market cache read failed", logger.String("key", key), logger.Error(err))
		}
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	if uc.cache != nil && uc.ttl > 0 && !isDemo(v) {
		if err := uc.cache.Set(ctx, key, v, uc.ttl); err != nil {
			uc.log.Debug("market cache write failed", logger.String("key", key), logger.Error(err))
		}
	}
	return v, nil
}

func (uc *MarketUseCase) TokenMarket(ctx context.Context, mint string) (models.TokenMarket, error) {
	return cached(ctx, uc, "market:token:"+mint,
		func(m models.TokenMarket) bool { return m.Demo },
		func() (models.TokenMarket, error) { return uc.src.TokenMarket(ctx, mint) })
}

func (uc *MarketUseCase) Sentiment(ctx context.Context, mints []string) ([]models.SentimentSignal, error) {
	if len(mints) == 0 {
		return nil, fmt.Errorf("at least one mint required")
	}
	return cached(ctx, uc, "market:sentiment:"+strings.Join(mints, ","),
		func(s []models.SentimentSignal) bool { return len(s) > 0 && s[0].Demo },
		func() ([]models.SentimentSignal, error) { return uc.src.Sentiment(ctx, mints) })
}

func (uc *MarketUseCase) Graduations(ctx context.Context, limit int) ([]models.Graduation, error) {
	return cached(ctx, uc, fmt.Sprintf("market:graduations:%d", limit),
		func(g []models.Graduation) bool { return len(g) > 0 && g[0].Demo },
		func() ([]models.Graduation, error) { return uc.src.Graduations(ctx, limit) })
}

func (uc *MarketUseCase) PriceSample(ctx context.Context, mint string) (models.PriceSample, error) {
	return uc.src.PriceSample(ctx, mint)
}
