package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// ChannelPoster delivers a text message to a chat channel.
type ChannelPoster interface {
	PostToChannel(ctx context.Context, channelID, content string) error
}

// NotificationService writes every event to the operator log and mirrors
// ticket openings and closures to the server's log channel.
type NotificationService struct {
	dispatcher events.Dispatcher
	settings   repository.BotSettingsRepository
	poster     ChannelPoster
	appURL     string
	logger     *zap.Logger
}

// NotificationDependencies bundles collaborators. Poster may be nil when the
// bot is disabled.
type NotificationDependencies struct {
	Dispatcher      events.Dispatcher
	BotSettingsRepo repository.BotSettingsRepository
	Poster          ChannelPoster
	AppURL          string
	Logger          *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		settings:   deps.BotSettingsRepo,
		poster:     deps.Poster,
		appURL:     deps.AppURL,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	events.SubscribeAll(n.dispatcher, n.logEvent)
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("actor_type", string(event.Actor.Type)),
		zap.String("actor_id", event.Actor.ID),
	}
	switch data := event.Data.(type) {
	case domain.Ticket:
		fields = append(fields, zap.Int64("ticket_id", data.ID), zap.String("status", string(data.Status)))
	case events.MessageCreatedPayload:
		fields = append(fields, zap.Int64("ticket_id", data.TicketID), zap.Int64("message_id", data.Message.ID))
	case domain.TicketCategory:
		fields = append(fields, zap.Int64("category_id", data.ID))
	}
	n.logger.Info("event", fields...)
	return nil
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	ticket, ok := event.Data.(domain.Ticket)
	if !ok {
		return nil
	}
	content := fmt.Sprintf("New ticket #%d opened by %s: %s (priority %s)",
		ticket.ID, actorName(event.Actor), ticket.Title, ticket.Priority)
	if n.appURL != "" {
		content += "\n" + n.appURL + "/dashboard"
	}
	return n.postToLogChannel(ctx, ticket, content)
}

func (n *NotificationService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	ticket, ok := event.Data.(domain.Ticket)
	if !ok || ticket.Status != domain.TicketStatusClosed || event.PreviousStatus == domain.TicketStatusClosed {
		return nil
	}
	content := fmt.Sprintf("Ticket #%d closed by %s: %s", ticket.ID, actorName(event.Actor), ticket.Title)
	return n.postToLogChannel(ctx, ticket, content)
}

func (n *NotificationService) postToLogChannel(ctx context.Context, ticket domain.Ticket, content string) error {
	if n.poster == nil || n.settings == nil || ticket.ServerID == nil {
		return nil
	}
	settings, err := n.settings.GetByServerID(ctx, *ticket.ServerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if settings.LogChannelID == nil || *settings.LogChannelID == "" {
		return nil
	}
	if err := n.poster.PostToChannel(ctx, *settings.LogChannelID, content); err != nil {
		n.logger.Warn("log channel post failed",
			zap.Int64("ticket_id", ticket.ID),
			zap.String("channel_id", *settings.LogChannelID),
			zap.Error(err))
	}
	return nil
}

func actorName(a events.Actor) string {
	if a.Username != "" {
		return a.Username
	}
	return a.ID
}
