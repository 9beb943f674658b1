package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"Jarvis/internal/domain/models"
	domrepo "Jarvis/internal/domain/repository"
	domsvc "Jarvis/internal/domain/service"
	"Jarvis/internal/services/state"
	"Jarvis/pkg/logger"
)

// UnsafeError refuses a submit while the mint's gate is not safe.
type UnsafeError struct {
	State models.ConfidenceState
}

func (e *UnsafeError) Error() string {
	reason := e.State.Reason
	if reason == "" {
		reason = "tier " + string(e.State.Tier)
	}
	return fmt.Sprintf("trading %s is not safe: %s", e.State.Mint, reason)
}

// TradeUseCase quotes swaps and forwards client-signed transactions after
// checking the confidence gate.
type TradeUseCase struct {
	quotes  domsvc.QuoteProvider
	exec    domsvc.SwapExecutor
	conf    *ConfidenceUseCase
	state   *state.Store
	metrics domrepo.Metrics
	log     *logger.Logger
	useJito bool
}

func NewTradeUseCase(
	quotes domsvc.QuoteProvider,
	exec domsvc.SwapExecutor,
	conf *ConfidenceUseCase,
	st *state.Store,
	metrics domrepo.Metrics,
	l *logger.Logger,
	useJito bool,
) *TradeUseCase {
	return &TradeUseCase{quotes: quotes, exec: exec, conf: conf, state: st, metrics: metrics, log: l, useJito: useJito}
}

func (uc *TradeUseCase) Quote(ctx context.Context, req models.QuoteRequest) (models.Quote, error) {
	q, err := uc.quotes.Quote(ctx, req)
	if err != nil {
		return q, fmt.Errorf("quote: %w", err)
	}
	return q, nil
}

// Submit forwards req when the gate says the mint is safe and records the
// attempt in the snipe history.
func (uc *TradeUseCase) Submit(ctx context.Context, req models.SubmitRequest) (models.SubmitResult, error) {
	if ok, st := uc.conf.IsSafe(req.Mint); !ok {
		uc.metrics.RecordError("trade_refused")
		return models.SubmitResult{}, &UnsafeError{State: st}
	}
	useJito := uc.useJito
	if req.UseJito != nil {
		useJito = *req.UseJito
	}
	res, err := uc.exec.Submit(ctx, req.Transaction, useJito)
	if err != nil {
		uc.metrics.RecordError("trade_submit")
		return res, fmt.Errorf("submit: %w", err)
	}
	uc.metrics.RecordMessageSent(res.Route, req.Mint)
	if uc.state != nil {
		if _, err := uc.state.AddSnipe(ctx, models.SnipeRecord{
			Mint:      req.Mint,
			AmountSOL: decimal.Zero,
			Signature: res.Signature,
			Status:    "submitted",
			At:        res.SubmittedAt,
		}); err != nil {
			uc.log.Warn("record snipe failed", logger.String("signature", res.Signature), logger.Error(err))
		}
	}
	return res, nil
}
