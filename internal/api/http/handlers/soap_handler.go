package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/signal-service/internal/auth"
	"github.com/spec-kit/signal-service/internal/citycontrol"
	"github.com/spec-kit/signal-service/internal/observability"
	"github.com/spec-kit/signal-service/internal/workflow"
	apperrors "github.com/spec-kit/signal-service/pkg/util"
)

// SoapHandler receives StUF callbacks from CityControl. Responses are
// StUF envelopes, not JSON, so this handler writes XML directly instead
// of going through the error middleware.
type SoapHandler struct {
	bridge  *citycontrol.IncomingBridge
	metrics *observability.Metrics
}

// NewSoapHandler constructs handler.
func NewSoapHandler(bridge *citycontrol.IncomingBridge, metrics *observability.Metrics) *SoapHandler {
	return &SoapHandler{bridge: bridge, metrics: metrics}
}

// Receive POST /citycontrol/soap.
func (h *SoapHandler) Receive(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}

	response, status, err := h.bridge.HandleInbound(c.UserContext(), c.Get("SOAPAction"), c.Body(), principal.Actor())
	if err != nil {
		h.metrics.RecordInbound("rejected")
		if errors.Is(err, workflow.ErrPermissionDenied) {
			return apperrors.NewForbidden("callback capability required")
		}
		return err
	}

	if status >= 400 {
		h.metrics.RecordInbound("fault")
	} else {
		h.metrics.RecordInbound("ok")
	}

	c.Set(fiber.HeaderContentType, "text/xml; charset=UTF-8")
	return c.Status(status).Send(response)
}
