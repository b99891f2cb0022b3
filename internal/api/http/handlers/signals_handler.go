package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/signal-service/internal/api/dto"
	"github.com/spec-kit/signal-service/internal/auth"
	"github.com/spec-kit/signal-service/internal/domain"
	"github.com/spec-kit/signal-service/internal/service"
	apperrors "github.com/spec-kit/signal-service/pkg/util"
)

// SignalsHandler manages signal endpoints.
type SignalsHandler struct {
	service *service.SignalService
}

// NewSignalsHandler constructs handler.
func NewSignalsHandler(signalService *service.SignalService) *SignalsHandler {
	return &SignalsHandler{service: signalService}
}

// CreateSignal POST /signals.
func (h *SignalsHandler) CreateSignal(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.CreateSignalRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Text) == "" {
		return apperrors.NewValidationError("title and text required", nil)
	}

	input := service.SignalCreateInput{
		Title:    req.Title,
		Text:     req.Text,
		Priority: req.Priority,
		Reporter: domain.Reporter{
			Email: req.Reporter.Email,
			Phone: req.Reporter.Phone,
		},
		Location: domain.Location{
			City:        req.Location.City,
			Street:      req.Location.Street,
			HouseNumber: req.Location.HouseNumber,
			PostalCode:  req.Location.PostalCode,
			Borough:     req.Location.Borough,
			Lat:         req.Location.Lat,
			Lng:         req.Location.Lng,
		},
		IncidentEndAt: req.IncidentEndAt,
	}
	signal, err := h.service.CreateSignal(c.UserContext(), principal.Actor(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewSignalResponse(signal)})
}

// GetSignal GET /signals/:id.
func (h *SignalsHandler) GetSignal(c *fiber.Ctx) error {
	id, err := parseSignalID(c)
	if err != nil {
		return err
	}
	signal, err := h.service.GetSignal(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSignalResponse(signal)})
}

// GetHistory GET /signals/:id/history.
func (h *SignalsHandler) GetHistory(c *fiber.Ctx) error {
	id, err := parseSignalID(c)
	if err != nil {
		return err
	}
	history, err := h.service.GetSignalHistory(c.UserContext(), id)
	if err != nil {
		return err
	}
	items := make([]dto.StatusResponse, 0, len(history))
	for i := range history {
		items = append(items, dto.NewStatusResponse(&history[i]))
	}
	return c.JSON(fiber.Map{"data": dto.SignalHistoryResponse{SignalID: id, History: items}})
}

// ChangeStatus POST /signals/:id/status.
func (h *SignalsHandler) ChangeStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	id, err := parseSignalID(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.State == "" {
		return apperrors.NewValidationError("state required", nil)
	}

	status, err := h.service.ChangeStatus(c.UserContext(), principal.Actor(), id, service.StatusChangeInput{
		TargetState: req.State,
		Text:        req.Text,
		TargetAPI:   req.TargetAPI,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStatusResponse(status)})
}

func parseSignalID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid signal id", nil)
	}
	return id, nil
}
