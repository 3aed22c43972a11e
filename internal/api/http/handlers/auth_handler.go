package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AuthHandler exposes login, logout and identity endpoints.
type AuthHandler struct {
	auth          *service.AuthService
	secureCookies bool
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{auth: authService, secureCookies: secureCookies}
}

// DiscordLogin GET /auth/discord.
func (h *AuthHandler) DiscordLogin(c *fiber.Ctx) error {
	target, err := h.auth.StartDiscordLogin(c.UserContext())
	if err != nil {
		return err
	}
	return c.Redirect(target, fiber.StatusFound)
}

// DiscordCallback GET /auth/discord/callback.
func (h *AuthHandler) DiscordCallback(c *fiber.Ctx) error {
	session, err := h.auth.CompleteDiscordLogin(c.UserContext(), c.Query("state"), c.Query("code"))
	if err != nil {
		return err
	}
	h.setSessionCookie(c, session.Token, session.ExpiresAt)
	return c.Redirect("/", fiber.StatusFound)
}

// LocalLogin POST /auth/local/login.
func (h *AuthHandler) LocalLogin(c *fiber.Ctx) error {
	var req dto.LocalLoginRequest
	if err := dto.DecodeAndValidate(c.Body(), &req, "Invalid login data"); err != nil {
		return err
	}
	session, err := h.auth.LocalLogin(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return apperrors.Wrap(err, "Failed to log in")
	}
	h.setSessionCookie(c, session.Token, session.ExpiresAt)
	return c.JSON(dto.AuthResponse{Token: session.Token, ExpiresAt: session.ExpiresAt})
}

// Logout GET|POST /auth/logout. Browsers following a link are redirected
// home; API clients get 204.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if p, ok := auth.PrincipalFromContext(c); ok {
		if err := h.auth.Logout(c.UserContext(), p); err != nil {
			return err
		}
	}
	h.setSessionCookie(c, "", time.Unix(0, 0))
	if c.Method() == fiber.MethodGet {
		return c.Redirect("/", fiber.StatusFound)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Me GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewMeResponse(p))
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     auth.SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
