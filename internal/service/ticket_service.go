package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// closureTimeLayout formats the time in closure notices.
const closureTimeLayout = "2006-01-02 15:04:05 MST"

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	categories repository.CategoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	MessageRepo  repository.TicketMessageRepository
	CategoryRepo repository.CategoryRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	Title       string
	Description string
	CategoryID  int64
	CreatorID   string
	// Priority defaults to normal when empty.
	Priority   domain.TicketPriority
	DiscordID  *string
	AssigneeID *string
	ServerID   *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		categories: deps.CategoryRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateTicket opens a ticket and seeds its thread with the description.
// Status is always open regardless of input.
func (s *TicketService) CreateTicket(ctx context.Context, actor Actor, input CreateTicketInput) (*domain.Ticket, error) {
	input.Title = normalizeText(input.Title)
	input.Description = normalizeText(input.Description)

	fields := map[string]any{}
	if input.Title == "" {
		fields["title"] = "required"
	}
	if input.Description == "" {
		fields["description"] = "required"
	}
	if input.CreatorID == "" {
		fields["creatorId"] = "required"
	}
	if input.CategoryID <= 0 {
		fields["categoryId"] = "required"
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityNormal
	} else if !input.Priority.Valid() {
		fields["priority"] = "must be one of low, normal, high, urgent"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("Invalid ticket data", fields)
	}
	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	categoryID := input.CategoryID
	ticket, err := s.tickets.Create(ctx, domain.TicketInput{
		DiscordID:   input.DiscordID,
		Title:       input.Title,
		Description: input.Description,
		Status:      domain.TicketStatusOpen,
		Priority:    input.Priority,
		CategoryID:  &categoryID,
		CreatorID:   input.CreatorID,
		AssigneeID:  input.AssigneeID,
		ServerID:    input.ServerID,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.messages.Create(ctx, domain.TicketMessageInput{
		TicketID: ticket.ID,
		SenderID: input.CreatorID,
		Content:  input.Description,
	}); err != nil {
		return nil, fmt.Errorf("seed message for ticket %d: %w", ticket.ID, err)
	}
	if seeded, err := s.tickets.GetByID(ctx, ticket.ID); err == nil {
		ticket = seeded
	}

	s.publishEvent(ctx, events.NewEvent(events.EventTicketCreated, actor.eventActor(), *ticket))
	return ticket, nil
}

// UpdateTicket merges patch into the ticket. Closing a ticket, even one that
// is already closed, appends a closure notice authored by the actor.
func (s *TicketService) UpdateTicket(ctx context.Context, actor Actor, id int64, patch domain.TicketPatch) (*domain.Ticket, error) {
	if err := s.validatePatch(ctx, &patch); err != nil {
		return nil, err
	}

	previous, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "Ticket")
	}

	updated, err := s.tickets.Update(ctx, id, patch)
	if err != nil {
		return nil, mapRepoErr(err, "Ticket")
	}

	if patch.Status.Set && patch.Status.Value == domain.TicketStatusClosed {
		if _, err := s.messages.Create(ctx, domain.TicketMessageInput{
			TicketID: id,
			SenderID: actor.ID,
			Content:  ClosureNotice(actor.DisplayName(), s.now()),
		}); err != nil {
			return nil, mapRepoErr(err, "Ticket")
		}
		if reread, err := s.tickets.GetByID(ctx, id); err == nil {
			updated = reread
		}
	}

	event := events.NewEvent(events.EventTicketUpdated, actor.eventActor(), *updated)
	event.PreviousStatus = previous.Status
	s.publishEvent(ctx, event)
	return updated, nil
}

// UpdateTicketStatus moves a ticket to open or closed.
func (s *TicketService) UpdateTicketStatus(ctx context.Context, actor Actor, id int64, status domain.TicketStatus) (*domain.Ticket, error) {
	return s.UpdateTicket(ctx, actor, id, domain.TicketPatch{Status: domain.Some(status)})
}

// ClosureNotice renders the system message appended when a ticket is closed.
func ClosureNotice(closedBy string, at time.Time) string {
	return fmt.Sprintf("Ticket closed by %s on %s", closedBy, at.Format(closureTimeLayout))
}

func (s *TicketService) validatePatch(ctx context.Context, patch *domain.TicketPatch) error {
	fields := map[string]any{}
	if patch.Title.Set {
		if patch.Title.Value = normalizeText(patch.Title.Value); patch.Title.Value == "" {
			fields["title"] = "must not be empty"
		}
	}
	if patch.Description.Set {
		if patch.Description.Value = normalizeText(patch.Description.Value); patch.Description.Value == "" {
			fields["description"] = "must not be empty"
		}
	}
	if patch.Status.Set && !patch.Status.Value.Settable() {
		fields["status"] = "must be open or closed"
	}
	if patch.Priority.Set && !patch.Priority.Value.Valid() {
		fields["priority"] = "must be one of low, normal, high, urgent"
	}
	if patch.CreatorID.Set && patch.CreatorID.Value == "" {
		fields["creatorId"] = "must not be empty"
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError("Invalid ticket data", fields)
	}
	if patch.CategoryID.Set && patch.CategoryID.Value != nil {
		return s.ensureCategory(ctx, *patch.CategoryID.Value)
	}
	return nil
}

func (s *TicketService) ensureCategory(ctx context.Context, id int64) error {
	if _, err := s.categories.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewValidationError("Invalid ticket data", map[string]any{"categoryId": "unknown category"})
		}
		return err
	}
	return nil
}

// AddMessage appends a message to a ticket thread. Storage accepts posts to
// closed tickets; the boundary decides who may post there.
func (s *TicketService) AddMessage(ctx context.Context, actor Actor, ticketID int64, senderID, content string) (*domain.TicketMessage, error) {
	content = normalizeText(content)
	if content == "" {
		return nil, apperrors.NewValidationError("Invalid message data", map[string]any{"content": "must not be empty"})
	}
	if senderID == "" {
		return nil, apperrors.NewValidationError("Invalid message data", map[string]any{"senderId": "required"})
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, mapRepoErr(err, "Ticket")
	}

	msg, err := s.messages.Create(ctx, domain.TicketMessageInput{TicketID: ticketID, SenderID: senderID, Content: content})
	if err != nil {
		return nil, mapRepoErr(err, "Ticket")
	}

	s.publishEvent(ctx, events.NewEvent(events.EventMessageCreated, actor.eventActor(), events.MessageCreatedPayload{
		TicketID: ticketID,
		Message:  *msg,
	}))
	return msg, nil
}

// GetTicket returns a ticket or a NotFound error.
func (s *TicketService) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	return ticket, mapRepoErr(err, "Ticket")
}

// ListMessages returns the thread ascending by creation time.
func (s *TicketService) ListMessages(ctx context.Context, ticketID int64) ([]domain.TicketMessage, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, mapRepoErr(err, "Ticket")
	}
	return s.messages.ListByTicket(ctx, ticketID)
}

func (s *TicketService) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	return s.tickets.List(ctx)
}

func (s *TicketService) ListForUser(ctx context.Context, creatorID string) ([]domain.Ticket, error) {
	return s.tickets.ListByCreator(ctx, creatorID)
}

func (s *TicketService) ListByCategory(ctx context.Context, categoryID int64) ([]domain.Ticket, error) {
	return s.tickets.ListByCategory(ctx, categoryID)
}

func (s *TicketService) ListByServer(ctx context.Context, serverID string) ([]domain.Ticket, error) {
	return s.tickets.ListByServer(ctx, serverID)
}

// ListByStatus accepts open, closed and pending.
func (s *TicketService) ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	if !status.Settable() && status != domain.TicketStatusPending {
		return nil, apperrors.NewValidationError("Invalid status filter", map[string]any{"status": string(status)})
	}
	return s.tickets.ListByStatus(ctx, status)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
