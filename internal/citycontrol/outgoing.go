package citycontrol

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/signal-service/internal/config"
	"github.com/spec-kit/signal-service/internal/domain"
	"github.com/spec-kit/signal-service/internal/repository"
)

// OutgoingBridge pushes a signal to CityControl as a StUF case plus a PDF
// summary attachment, and records the round trip in the ledger.
type OutgoingBridge struct {
	cfg        config.CityControlConfig
	client     *http.Client
	signals    repository.SignalRepository
	roundtrips repository.RoundTripRepository
	renderer   SummaryRenderer
	locker     DispatchLocker
	logger     *zap.Logger
	now        func() time.Time
}

// NewOutgoingBridge builds the bridge, configuring mutual TLS when a
// client certificate pair is set.
func NewOutgoingBridge(
	cfg config.CityControlConfig,
	signals repository.SignalRepository,
	roundtrips repository.RoundTripRepository,
	renderer SummaryRenderer,
	locker DispatchLocker,
	logger *zap.Logger,
) (*OutgoingBridge, error) {
	transport := http.DefaultTransport
	if cfg.ClientCertFile != "" && cfg.ClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertFile, cfg.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading citycontrol client certificate: %w", err)
		}
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{Certificates: []tls.Certificate{cert}},
		}
	}

	return &OutgoingBridge{
		cfg:        cfg,
		client:     &http.Client{Transport: transport, Timeout: cfg.Timeout()},
		signals:    signals,
		roundtrips: roundtrips,
		renderer:   renderer,
		locker:     locker,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Dispatch sends the signal identified by signalID to CityControl. It
// returns a confirmation line carrying the assigned case identifier. The
// round trip is committed to the ledger only after both StUF calls were
// acknowledged, so a failed dispatch reuses its sequence number on retry.
func (b *OutgoingBridge) Dispatch(ctx context.Context, signalID int64) (string, error) {
	if b.cfg.ServerURL == "" {
		return "", errors.New("citycontrol server URL is not configured")
	}

	release, err := b.locker.Acquire(ctx, signalID)
	if err != nil {
		return "", err
	}
	defer release()

	signal, err := b.signals.GetByID(ctx, signalID)
	if err != nil {
		return "", fmt.Errorf("loading signal %d: %w", signalID, err)
	}
	if signal.Status == nil || signal.Status.State != domain.StateReadyToSend {
		return "", ErrNotAwaitingDispatch
	}

	count, err := b.roundtrips.CountBySignal(ctx, signalID)
	if err != nil {
		return "", fmt.Errorf("reading round-trip ledger: %w", err)
	}
	if count >= b.cfg.MaxRoundTrips {
		return "", ErrRoundTripLimitExceeded
	}
	sequence := count + 1
	caseID := domain.CaseID(signalID, sequence)

	now := b.now()
	if err := b.send(ctx, SOAPActionCreateCase, BuildCreateCase(signal, sequence, now)); err != nil {
		return "", err
	}

	pdf, err := b.renderer.Render(ctx, signal)
	if err != nil {
		return "", fmt.Errorf("rendering summary for %s: %w", caseID, err)
	}
	if err := b.send(ctx, SOAPActionAttachDocument, BuildAttachDocument(signal, sequence, pdf, now)); err != nil {
		return "", err
	}

	if _, err := b.roundtrips.Create(ctx, signalID); err != nil {
		return "", fmt.Errorf("recording round trip for %s: %w", caseID, err)
	}

	b.logger.Info("signal dispatched to citycontrol",
		zap.Int64("signal_id", signalID),
		zap.String("case_id", caseID))

	return fmt.Sprintf("Signal %s registered with CityControl under case reference %s.",
		domain.SignalDisplayID(signalID), caseID), nil
}

func (b *OutgoingBridge) send(ctx context.Context, soapAction string, message []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.ServerURL, bytes.NewReader(message))
	if err != nil {
		return &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "text/xml; charset=UTF-8")
	req.Header.Set("SOAPAction", soapAction)
	if b.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Basic "+b.cfg.AuthToken)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &TransportError{Err: fmt.Errorf("unexpected HTTP status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}
	return ValidateAck(body)
}
