package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// List GET /api/tickets. Admins see every ticket, others their own.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var query dto.TicketListQuery
	if err := c.QueryParser(&query); err != nil {
		return apperrors.NewValidationError("Invalid ticket filter", nil)
	}
	if err := dto.Validate(query, "Invalid ticket filter"); err != nil {
		return err
	}

	var tickets []domain.Ticket
	switch {
	case !p.IsAdmin:
		tickets, err = h.service.ListForUser(c.UserContext(), p.ID)
	case query.Status != "":
		tickets, err = h.service.ListByStatus(c.UserContext(), domain.TicketStatus(query.Status))
	case query.CategoryID != 0:
		tickets, err = h.service.ListByCategory(c.UserContext(), query.CategoryID)
	default:
		tickets, err = h.service.ListAll(c.UserContext())
	}
	if err != nil {
		return apperrors.Wrap(err, "Failed to fetch tickets")
	}
	return c.JSON(filterTickets(tickets, query))
}

// ListByServer GET /api/tickets/server/:serverId.
func (h *TicketsHandler) ListByServer(c *fiber.Ctx) error {
	tickets, err := h.service.ListByServer(c.UserContext(), c.Params("serverId"))
	if err != nil {
		return apperrors.Wrap(err, "Failed to fetch tickets")
	}
	return c.JSON(tickets)
}

// Get GET /api/tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ticket, err := h.accessibleTicket(c, p)
	if err != nil {
		return err
	}
	return c.JSON(ticket)
}

// Create POST /api/tickets. Non-admins always create on their own behalf.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := dto.DecodeAndValidate(c.Body(), &req, "Invalid ticket data"); err != nil {
		return err
	}

	creatorID := p.ID
	if p.IsAdmin && req.CreatorID != "" {
		creatorID = req.CreatorID
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), service.ActorFromPrincipal(p), service.CreateTicketInput{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  *req.CategoryID,
		CreatorID:   creatorID,
		Priority:    domain.TicketPriority(req.Priority),
		DiscordID:   req.DiscordID,
		AssigneeID:  req.AssigneeID,
		ServerID:    req.ServerID,
	})
	if err != nil {
		return apperrors.Wrap(err, "Failed to create ticket")
	}
	return c.Status(http.StatusCreated).JSON(ticket)
}

// Update PATCH /api/tickets/:id. Creators may change the status of their
// own tickets; every other field is admin only.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "ticket")
	if err != nil {
		return err
	}
	var patch dto.UpdateTicketRequest
	if err := dto.Decode(c.Body(), &patch, "Invalid ticket data"); err != nil {
		return err
	}
	if !p.IsAdmin {
		ticket, err := h.service.GetTicket(c.UserContext(), id)
		if err != nil {
			return apperrors.Wrap(err, "Failed to update ticket")
		}
		if !p.CanAccessTicket(ticket.CreatorID) {
			return apperrors.NewForbidden("You do not have access to this ticket")
		}
		if !patch.OnlyStatus() {
			return apperrors.NewForbidden("Only admins can edit ticket details")
		}
	}

	ticket, err := h.service.UpdateTicket(c.UserContext(), service.ActorFromPrincipal(p), id, patch)
	if err != nil {
		return apperrors.Wrap(err, "Failed to update ticket")
	}
	return c.JSON(ticket)
}

// ListMessages GET /api/tickets/:id/messages.
func (h *TicketsHandler) ListMessages(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ticket, err := h.accessibleTicket(c, p)
	if err != nil {
		return err
	}
	messages, err := h.service.ListMessages(c.UserContext(), ticket.ID)
	if err != nil {
		return apperrors.Wrap(err, "Failed to fetch messages")
	}
	return c.JSON(messages)
}

// AddMessage POST /api/tickets/:id/messages. Closed tickets accept posts
// from their creator and admins only.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "ticket")
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := dto.DecodeAndValidate(c.Body(), &req, "Invalid message data"); err != nil {
		return err
	}

	ticket, err := h.service.GetTicket(c.UserContext(), id)
	if err != nil {
		return apperrors.Wrap(err, "Failed to add message")
	}
	if ticket.Status == domain.TicketStatusClosed && !p.CanAccessTicket(ticket.CreatorID) {
		return apperrors.NewForbidden("This ticket is closed")
	}

	senderID := p.ID
	if p.IsAdmin && req.SenderID != "" {
		senderID = req.SenderID
	}
	msg, err := h.service.AddMessage(c.UserContext(), service.ActorFromPrincipal(p), id, senderID, req.Content)
	if err != nil {
		return apperrors.Wrap(err, "Failed to add message")
	}
	return c.Status(http.StatusCreated).JSON(msg)
}

func (h *TicketsHandler) accessibleTicket(c *fiber.Ctx, p *auth.Principal) (*domain.Ticket, error) {
	id, err := parseID(c, "id", "ticket")
	if err != nil {
		return nil, err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), id)
	if err != nil {
		return nil, apperrors.Wrap(err, "Failed to fetch ticket")
	}
	if !p.CanAccessTicket(ticket.CreatorID) {
		return nil, apperrors.NewForbidden("You do not have access to this ticket")
	}
	return ticket, nil
}

// filterTickets applies the query filters not already served by storage.
func filterTickets(tickets []domain.Ticket, query dto.TicketListQuery) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if query.Status != "" && string(t.Status) != query.Status {
			continue
		}
		if query.CategoryID != 0 && (t.CategoryID == nil || *t.CategoryID != query.CategoryID) {
			continue
		}
		out = append(out, t)
	}
	return out
}
