package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/signal-service/internal/config"
	"github.com/spec-kit/signal-service/internal/events"
)

// NotificationService emits notifications for domain events. Handlers are
// idempotent: delivery is at-least-once and a redelivered event only
// produces a duplicate log line, never a duplicate state change.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSignalCreated, n.handleSignalCreated)
	n.dispatcher.Subscribe(events.EventSignalStatusChanged, n.handleSignalStatusChanged)
}

func (n *NotificationService) handleSignalCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("SignalCreated", zap.Int64("signal_id", event.SignalID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleSignalStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("SignalStatusChanged", zap.Int64("signal_id", event.SignalID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.Int64("signal_id", event.SignalID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.Int64("signal_id", event.SignalID),
		zap.String("event_type", string(event.Type)))
}
