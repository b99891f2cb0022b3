package dto

import (
	"time"

	"github.com/spec-kit/signal-service/internal/domain"
)

// CreateSignalRequest payload.
type CreateSignalRequest struct {
	Title         string                `json:"title"`
	Text          string                `json:"text"`
	Priority      domain.SignalPriority `json:"priority"`
	Reporter      ReporterPayload       `json:"reporter"`
	Location      LocationPayload       `json:"location"`
	IncidentEndAt *time.Time            `json:"incident_end_at"`
}

// ReporterPayload carries reporter contact details.
type ReporterPayload struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// LocationPayload carries the reported address.
type LocationPayload struct {
	City        string  `json:"city"`
	Street      string  `json:"street"`
	HouseNumber string  `json:"house_number"`
	PostalCode  string  `json:"postal_code"`
	Borough     string  `json:"borough"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	State     domain.SignalState `json:"state"`
	Text      string             `json:"text"`
	TargetAPI *domain.TargetAPI  `json:"target_api,omitempty"`
}

// SignalResponse provides full signal info.
type SignalResponse struct {
	ID            int64                 `json:"id"`
	DisplayID     string                `json:"display_id"`
	Title         string                `json:"title"`
	Text          string                `json:"text"`
	Priority      domain.SignalPriority `json:"priority"`
	Reporter      ReporterPayload       `json:"reporter"`
	Location      LocationPayload       `json:"location"`
	IncidentEndAt *time.Time            `json:"incident_end_at,omitempty"`
	Status        *StatusResponse       `json:"status,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// StatusResponse represents one history entry.
type StatusResponse struct {
	ID        string             `json:"id"`
	State     domain.SignalState `json:"state"`
	Text      string             `json:"text,omitempty"`
	TargetAPI *domain.TargetAPI  `json:"target_api,omitempty"`
	CreatedBy *string            `json:"created_by,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// SignalHistoryResponse lists the full status trail, oldest first.
type SignalHistoryResponse struct {
	SignalID int64            `json:"signal_id"`
	History  []StatusResponse `json:"history"`
}

// NewSignalResponse maps the domain aggregate.
func NewSignalResponse(signal *domain.Signal) SignalResponse {
	resp := SignalResponse{
		ID:        signal.ID,
		DisplayID: domain.SignalDisplayID(signal.ID),
		Title:     signal.Title,
		Text:      signal.Text,
		Priority:  signal.Priority,
		Reporter: ReporterPayload{
			Email: signal.Reporter.Email,
			Phone: signal.Reporter.Phone,
		},
		Location: LocationPayload{
			City:        signal.Location.City,
			Street:      signal.Location.Street,
			HouseNumber: signal.Location.HouseNumber,
			PostalCode:  signal.Location.PostalCode,
			Borough:     signal.Location.Borough,
			Lat:         signal.Location.Lat,
			Lng:         signal.Location.Lng,
		},
		IncidentEndAt: signal.IncidentEndAt,
		CreatedAt:     signal.CreatedAt,
		UpdatedAt:     signal.UpdatedAt,
	}
	if signal.Status != nil {
		status := NewStatusResponse(signal.Status)
		resp.Status = &status
	}
	return resp
}

// NewStatusResponse maps one status row.
func NewStatusResponse(status *domain.Status) StatusResponse {
	return StatusResponse{
		ID:        status.ID,
		State:     status.State,
		Text:      status.Text,
		TargetAPI: status.TargetAPI,
		CreatedBy: status.CreatedBy,
		CreatedAt: status.CreatedAt,
	}
}
