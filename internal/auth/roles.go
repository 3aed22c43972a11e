package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// RequireAuth ensures the caller carries a valid session.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("Authentication required")
		}
		return c.Next()
	}
}

// RequireAdmin ensures the caller is authenticated and an admin.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("Authentication required")
		}
		if !principal.IsAdmin {
			return apperrors.NewForbidden("Admin access required")
		}
		return c.Next()
	}
}

// CanAccessTicket reports whether p may view or close a ticket created by creatorID.
func (p *Principal) CanAccessTicket(creatorID string) bool {
	return p != nil && (p.IsAdmin || p.ID == creatorID)
}
