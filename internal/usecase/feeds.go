package usecase

import (
	"context"
	"time"

	"Jarvis/pkg/logger"
	"Jarvis/pkg/scheduler"
	"Jarvis/pkg/ws"
)

// FeedPoller keeps the graduation and sentiment panels fresh by pushing
// them to websocket clients on a schedule.
type FeedPoller struct {
	market *MarketUseCase
	hub    Broadcaster
	mints  []string
	limit  int
	log    *logger.Logger
}

func NewFeedPoller(market *MarketUseCase, hub Broadcaster, mints []string, limit int, l *logger.Logger) *FeedPoller {
	if limit <= 0 {
		limit = 20
	}
	return &FeedPoller{market: market, hub: hub, mints: mints, limit: limit, log: l}
}

func (p *FeedPoller) GraduationsTask(ctx context.Context, _ scheduler.Run) error {
	gs, err := p.market.Graduations(ctx, p.limit)
	if err != nil {
		return err
	}
	if p.hub != nil {
		p.hub.Broadcast(ws.Message{Type: EventGraduation, Data: gs, Timestamp: time.Now().UnixMilli()})
	}
	return nil
}

// SentimentTask scores the watched mints. Each signal is keyed by its mint
// so clients can subscribe per token.
func (p *FeedPoller) SentimentTask(ctx context.Context, _ scheduler.Run) error {
	if len(p.mints) == 0 {
		return nil
	}
	sigs, err := p.market.Sentiment(ctx, p.mints)
	if err != nil {
		return err
	}
	if p.hub == nil {
		return nil
	}
	now := time.Now().UnixMilli()
	for _, s := range sigs {
		p.hub.Broadcast(ws.Message{Type: EventSentiment, Key: s.Mint, Data: s, Timestamp: now})
	}
	p.log.Debug("sentiment pushed", logger.Int("signals", len(sigs)))
	return nil
}
