package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// CategoriesHandler serves ticket categories.
type CategoriesHandler struct {
	service *service.CategoryService
}

func NewCategoriesHandler(categoryService *service.CategoryService) *CategoriesHandler {
	return &CategoriesHandler{service: categoryService}
}

// List GET /api/categories.
func (h *CategoriesHandler) List(c *fiber.Ctx) error {
	categories, err := h.service.List(c.UserContext())
	if err != nil {
		return apperrors.Wrap(err, "Failed to fetch categories")
	}
	return c.JSON(categories)
}

// ListByServer GET /api/categories/server/:serverId.
func (h *CategoriesHandler) ListByServer(c *fiber.Ctx) error {
	categories, err := h.service.ListByServer(c.UserContext(), c.Params("serverId"))
	if err != nil {
		return apperrors.Wrap(err, "Failed to fetch categories")
	}
	return c.JSON(categories)
}

// Create POST /api/categories.
func (h *CategoriesHandler) Create(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateCategoryRequest
	if err := dto.DecodeAndValidate(c.Body(), &req, "Invalid category data"); err != nil {
		return err
	}
	category, err := h.service.Create(c.UserContext(), service.ActorFromPrincipal(p), req.ToInput())
	if err != nil {
		return apperrors.Wrap(err, "Failed to create category")
	}
	return c.Status(http.StatusCreated).JSON(category)
}
