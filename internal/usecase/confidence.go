package usecase

import (
	"context"
	"fmt"
	"time"

	"Jarvis/internal/domain/models"
	domrepo "Jarvis/internal/domain/repository"
	domsvc "Jarvis/internal/domain/service"
	"Jarvis/internal/services/confidence"
	"Jarvis/pkg/logger"
	"Jarvis/pkg/ws"
)

// ConfidenceUseCase feeds samples into the gate registry and reports
// verdicts and breaker transitions.
type ConfidenceUseCase struct {
	reg      *confidence.Registry
	pub      domrepo.EventPublisher
	hub      Broadcaster
	notifier domsvc.Notifier
	metrics  domrepo.Metrics
	log      *logger.Logger
	alertTTL time.Duration
}

func NewConfidenceUseCase(
	reg *confidence.Registry,
	pub domrepo.EventPublisher,
	hub Broadcaster,
	notifier domsvc.Notifier,
	metrics domrepo.Metrics,
	l *logger.Logger,
) *ConfidenceUseCase {
	uc := &ConfidenceUseCase{
		reg:      reg,
		pub:      pub,
		hub:      hub,
		notifier: notifier,
		metrics:  metrics,
		log:      l,
		alertTTL: 10 * time.Second,
	}
	reg.Subscribe(uc.onState)
	return uc
}

// Process evaluates one sample. It satisfies the sample pipeline's
// downstream. Once the registry has seen the sample it counts as handled, so
// a failed publish is logged and never reported back for a retry.
func (uc *ConfidenceUseCase) Process(ctx context.Context, s models.PriceSample) error {
	st := uc.reg.Observe(s)
	if uc.hub != nil {
		uc.hub.Broadcast(ws.Message{Type: EventConfidence, Key: st.Mint, Data: st, Timestamp: time.Now().UnixMilli()})
	}
	if uc.pub != nil {
		if err := uc.pub.PublishConfidence(ctx, st); err != nil {
			uc.metrics.RecordError("publish_confidence")
			uc.log.Warn("publish confidence failed", logger.String("mint", st.Mint), logger.Error(err))
		}
	}
	return nil
}

func (uc *ConfidenceUseCase) State(mint string) models.ConfidenceState { return uc.reg.State(mint) }

func (uc *ConfidenceUseCase) Snapshot() []models.ConfidenceState { return uc.reg.Snapshot() }

// IsSafe is advisory; callers decide what to refuse.
func (uc *ConfidenceUseCase) IsSafe(mint string) (bool, models.ConfidenceState) {
	return uc.reg.IsSafe(mint)
}

func (uc *ConfidenceUseCase) onState(st models.ConfidenceState, tr *models.GateTransition) {
	ratio := st.Ratio
	if st.Tier == models.TierLoading {
		ratio = -1
	}
	uc.metrics.RecordGate(st.Mint, ratio, st.IsTripped)
	if tr == nil {
		return
	}
	uc.metrics.RecordGateTransition(tr.Mint, tr.Tripped)
	uc.log.Warn("confidence gate transition",
		logger.String("mint", tr.Mint),
		logger.Bool("tripped", tr.Tripped),
		logger.String("reason", st.Reason))
	if uc.hub != nil {
		uc.hub.Broadcast(ws.Message{Type: EventTrip, Key: tr.Mint, Data: tr, Timestamp: time.Now().UnixMilli()})
	}
	if uc.notifier != nil {
		go uc.alert(*tr)
	}
}

func (uc *ConfidenceUseCase) alert(tr models.GateTransition) {
	ctx, cancel := context.WithTimeout(context.Background(), uc.alertTTL)
	defer cancel()
	if err := uc.notifier.Notify(ctx, TransitionText(tr)); err != nil {
		uc.metrics.RecordError("notify")
		uc.log.Warn("gate alert failed", logger.String("mint", tr.Mint), logger.Error(err))
	}
}

// TransitionText renders the alert for a breaker trip or recovery.
func TransitionText(tr models.GateTransition) string {
	if tr.Tripped {
		return fmt.Sprintf("🔴 Circuit breaker TRIPPED for %s\nratio %.4f (%s)\n%s",
			tr.Mint, tr.State.Ratio, tr.State.Tier, tr.State.Reason)
	}
	return fmt.Sprintf("🟢 Circuit breaker recovered for %s\nratio %.4f (%s)",
		tr.Mint, tr.State.Ratio, tr.State.Tier)
}
