package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AdminHandler exposes dashboard statistics and guild configuration.
type AdminHandler struct {
	service *service.AdminService
}

func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{service: adminService}
}

// Stats GET /api/admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return apperrors.Wrap(err, "Failed to fetch stats")
	}
	return c.JSON(stats)
}

// ListServers GET /api/servers.
func (h *AdminHandler) ListServers(c *fiber.Ctx) error {
	servers, err := h.service.ListServers(c.UserContext())
	if err != nil {
		return apperrors.Wrap(err, "Failed to fetch servers")
	}
	return c.JSON(servers)
}

// GetServer GET /api/servers/:id.
func (h *AdminHandler) GetServer(c *fiber.Ctx) error {
	server, err := h.service.GetServer(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperrors.Wrap(err, "Failed to fetch server")
	}
	return c.JSON(server)
}

// CreateServer POST /api/servers.
func (h *AdminHandler) CreateServer(c *fiber.Ctx) error {
	var req dto.CreateServerRequest
	if err := dto.DecodeAndValidate(c.Body(), &req, "Invalid server data"); err != nil {
		return err
	}
	server, err := h.service.CreateServer(c.UserContext(), req.ToInput())
	if err != nil {
		return apperrors.Wrap(err, "Failed to create server")
	}
	return c.Status(http.StatusCreated).JSON(server)
}

// UpdateServer PATCH /api/servers/:id.
func (h *AdminHandler) UpdateServer(c *fiber.Ctx) error {
	var patch dto.UpdateServerRequest
	if err := dto.Decode(c.Body(), &patch, "Invalid server data"); err != nil {
		return err
	}
	server, err := h.service.UpdateServer(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return apperrors.Wrap(err, "Failed to update server")
	}
	return c.JSON(server)
}

// GetBotSettings GET /api/bot-settings/:serverId.
func (h *AdminHandler) GetBotSettings(c *fiber.Ctx) error {
	settings, err := h.service.GetBotSettings(c.UserContext(), c.Params("serverId"))
	if err != nil {
		return apperrors.Wrap(err, "Failed to fetch bot settings")
	}
	return c.JSON(settings)
}

// CreateBotSettings POST /api/bot-settings.
func (h *AdminHandler) CreateBotSettings(c *fiber.Ctx) error {
	var req dto.CreateBotSettingsRequest
	if err := dto.DecodeAndValidate(c.Body(), &req, "Invalid bot settings data"); err != nil {
		return err
	}
	settings, err := h.service.CreateBotSettings(c.UserContext(), req.ToInput())
	if err != nil {
		return apperrors.Wrap(err, "Failed to create bot settings")
	}
	return c.Status(http.StatusCreated).JSON(settings)
}

// UpdateBotSettings PATCH /api/bot-settings/:serverId.
func (h *AdminHandler) UpdateBotSettings(c *fiber.Ctx) error {
	var patch dto.UpdateBotSettingsRequest
	if err := dto.Decode(c.Body(), &patch, "Invalid bot settings data"); err != nil {
		return err
	}
	settings, err := h.service.UpdateBotSettings(c.UserContext(), c.Params("serverId"), patch)
	if err != nil {
		return apperrors.Wrap(err, "Failed to update bot settings")
	}
	return c.JSON(settings)
}
