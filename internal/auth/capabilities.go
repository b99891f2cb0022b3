package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/signal-service/internal/domain"
	apperrors "github.com/spec-kit/signal-service/pkg/util"
)

// RequireCapability ensures the authenticated agent holds every listed
// capability.
func RequireCapability(required ...domain.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Agent == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		for _, cap := range required {
			if !principal.Agent.HasCapability(cap) {
				return apperrors.NewForbidden("insufficient capabilities")
			}
		}
		return c.Next()
	}
}

// RequireAgent ensures the caller is authenticated.
func RequireAgent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
