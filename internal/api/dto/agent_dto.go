package dto

import (
	"time"

	"github.com/spec-kit/signal-service/internal/domain"
)

// AgentRegisterRequest payload for new agents.
type AgentRegisterRequest struct {
	Name         string              `json:"name"`
	Email        string              `json:"email"`
	Password     string              `json:"password"`
	Capabilities []domain.Capability `json:"capabilities"`
}

// AgentLoginRequest payload for login.
type AgentLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AgentResponse describes an agent account.
type AgentResponse struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Email        string              `json:"email"`
	Capabilities []domain.Capability `json:"capabilities"`
	IsActive     bool                `json:"is_active"`
	CreatedAt    time.Time           `json:"created_at"`
}

// NewAgentResponse maps the domain agent.
func NewAgentResponse(agent *domain.Agent) AgentResponse {
	return AgentResponse{
		ID:           agent.ID,
		Name:         agent.Name,
		Email:        agent.Email,
		Capabilities: agent.Capabilities,
		IsActive:     agent.IsActive,
		CreatedAt:    agent.CreatedAt,
	}
}
