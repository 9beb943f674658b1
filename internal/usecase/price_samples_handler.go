package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Jarvis/internal/domain/models"
	domrepo "Jarvis/internal/domain/repository"
	"Jarvis/internal/middleware"
	pkgkafka "Jarvis/pkg/kafka"
)

// PriceSamplesHandler consumes oracle samples published by external feeds
// and pushes them through the sample pipeline.
type PriceSamplesHandler struct {
	topic   string
	ingest  middleware.Proc
	metrics domrepo.Metrics
}

func NewPriceSamplesHandler(topic string, ingest middleware.Proc, metrics domrepo.Metrics) *PriceSamplesHandler {
	return &PriceSamplesHandler{topic: topic, ingest: ingest, metrics: metrics}
}

func (h *PriceSamplesHandler) Topic() string { return h.topic }

// incoming message schema: {mint, price, confidence, source, reliable, t}
// with t in seconds or milliseconds.
func (h *PriceSamplesHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Mint       string  `json:"mint"`
		Price      float64 `json:"price"`
		Confidence float64 `json:"confidence"`
		Source     string  `json:"source"`
		Reliable   *bool   `json:"reliable"`
		T          int64   `json:"t"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode sample: %w", err)
	}
	if m.T > 1e11 {
		m.T /= 1000
	}
	s := models.PriceSample{
		Mint:       m.Mint,
		Price:      m.Price,
		Confidence: m.Confidence,
		Source:     models.PriceSource(m.Source),
	}
	if s.Source == "" {
		s.Source = models.SourceQuoted
	}
	// Only quoted prices are reliable unless the producer says otherwise.
	s.Reliable = s.Source == models.SourceQuoted
	if m.Reliable != nil {
		s.Reliable = *m.Reliable && s.Source != models.SourceDemo
	}
	if m.T > 0 {
		s.At = time.Unix(m.T, 0).UTC()
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(s.At).Seconds())
	}

	err := h.ingest.Process(ctx, s)
	switch {
	case err == nil:
		h.metrics.RecordMessageSent("gate", m.Mint)
		return nil
	case errors.Is(err, middleware.ErrStaleSample):
		return nil
	}
	return err
}

var _ pkgkafka.MessageHandler = (*PriceSamplesHandler)(nil)
