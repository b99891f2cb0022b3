package citycontrol

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/signal-service/internal/domain"
	"github.com/spec-kit/signal-service/internal/repository"
	"github.com/spec-kit/signal-service/internal/workflow"
)

// IncomingBridge handles StUF callbacks from CityControl. When the case
// handler closes a case out there, an actualiseerZaakstatus message moves
// the signal to DONE_EXTERNAL here.
type IncomingBridge struct {
	engine     *workflow.Engine
	signals    repository.SignalRepository
	roundtrips repository.RoundTripRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewIncomingBridge constructs the bridge.
func NewIncomingBridge(
	engine *workflow.Engine,
	signals repository.SignalRepository,
	roundtrips repository.RoundTripRepository,
	logger *zap.Logger,
) *IncomingBridge {
	return &IncomingBridge{
		engine:     engine,
		signals:    signals,
		roundtrips: roundtrips,
		logger:     logger,
		now:        time.Now,
	}
}

// HandleInbound processes one inbound SOAP message and returns the StUF
// response body and HTTP status to write back. Authorization failures are
// returned as errors so the HTTP layer can answer without a StUF body.
func (b *IncomingBridge) HandleInbound(ctx context.Context, soapAction string, body []byte, actor domain.Actor) ([]byte, int, error) {
	if !actor.HasCapability(domain.CapabilityCityControlCallback) {
		return nil, 0, workflow.ErrPermissionDenied
	}

	now := b.now()
	action := strings.TrimSpace(soapAction)
	switch action {
	case "":
		return BuildFault("SOAPAction header not set", now), http.StatusInternalServerError, nil
	case SOAPActionUpdateStatus:
	default:
		return BuildFault(fmt.Sprintf("SOAPAction: %s is not supported", action), now), http.StatusInternalServerError, nil
	}

	update, err := ParseStatusUpdate(body)
	if err != nil {
		return BuildFault(err.Error(), now), http.StatusInternalServerError, nil
	}

	signalID, sequence, err := ParseCaseID(update.CaseID)
	if err != nil {
		return BuildFault(err.Error(), now), http.StatusInternalServerError, nil
	}

	signal, err := b.signals.GetByID(ctx, signalID)
	if err != nil {
		b.logger.Warn("inbound status update for unknown signal",
			zap.String("case_id", update.CaseID), zap.Error(err))
		return BuildFault(fmt.Sprintf("signal for case %s not found", update.CaseID), now), http.StatusInternalServerError, nil
	}

	// Replayed callbacks are acknowledged without a second status row.
	if signal.Status != nil && signal.Status.State == domain.StateDoneExternal {
		return BuildAck(update.Reference, now), http.StatusOK, nil
	}

	_, err = b.engine.RequestTransition(ctx, signal, workflow.TransitionInput{
		TargetState: domain.StateDoneExternal,
		Text:        statusText(update),
		Actor:       actor,
	})
	switch {
	case err == nil:
	case errors.Is(err, workflow.ErrConcurrentModification):
		return BuildFault("signal status changed concurrently, retry later", now), http.StatusInternalServerError, nil
	default:
		var invalid *workflow.InvalidTransitionError
		if errors.As(err, &invalid) {
			b.logger.Warn("inbound status update rejected",
				zap.String("case_id", update.CaseID),
				zap.String("current_state", string(invalid.From)),
				zap.String("external_note", statusText(update)))
			// The case id proves CityControl issued this sequence. Bump
			// the ledger so a later dispatch never reuses it.
			if sequence > 0 {
				if bumpErr := b.roundtrips.EnsureCount(ctx, signalID, sequence); bumpErr != nil {
					b.logger.Error("ledger bump failed",
						zap.Int64("signal_id", signalID), zap.Error(bumpErr))
				}
			}
			return BuildFault(fmt.Sprintf("signal for case %s was not in a sent state", update.CaseID), now), http.StatusInternalServerError, nil
		}
		return BuildFault(err.Error(), now), http.StatusInternalServerError, nil
	}

	b.logger.Info("signal completed by citycontrol",
		zap.Int64("signal_id", signalID),
		zap.String("case_id", update.CaseID))

	return BuildAck(update.Reference, now), http.StatusOK, nil
}

func statusText(update *StatusUpdate) string {
	result := update.Result
	if result == "" {
		result = "No result provided by CityControl"
	}
	reason := update.Reason
	if reason == "" {
		reason = "No reason provided by CityControl"
	}
	return fmt.Sprintf("Case closed by CityControl. Result: %s. Reason: %s", result, reason)
}
