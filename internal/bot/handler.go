package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const (
	brandColor       = 0x5865F2
	closedColor      = 0xF04747
	messagesColor    = 0x36393F
	recentMessages   = 3
	descriptionClamp = 100
)

// InteractionMetrics counts handled interactions.
type InteractionMetrics interface {
	RecordBotInteraction(command, outcome string)
}

// Reply is the chat response to an invocation. Update replaces the message
// holding the pressed button instead of sending a new one.
type Reply struct {
	Content    string
	Embeds     []*discordgo.MessageEmbed
	Components []discordgo.MessageComponent
	Update     bool
}

// CommandHandler maps invocations onto service calls. It holds no state.
type CommandHandler struct {
	tickets    *service.TicketService
	categories *service.CategoryService
	identities *service.IdentityService
	appURL     string
	metrics    InteractionMetrics
	logger     *zap.Logger
}

// HandlerDependencies bundles collaborators for the command handler.
type HandlerDependencies struct {
	Tickets    *service.TicketService
	Categories *service.CategoryService
	Identities *service.IdentityService
	AppURL     string
	Metrics    InteractionMetrics
	Logger     *zap.Logger
}

func NewCommandHandler(deps HandlerDependencies) *CommandHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandHandler{
		tickets:    deps.Tickets,
		categories: deps.Categories,
		identities: deps.Identities,
		appURL:     strings.TrimRight(deps.AppURL, "/"),
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Handle runs one invocation. Every outcome, including failures, becomes a
// reply; errors are logged, never shown verbatim.
func (h *CommandHandler) Handle(ctx context.Context, inv Invocation) Reply {
	var (
		reply Reply
		err   error
	)
	switch inv.Kind {
	case SubcommandCreate:
		reply, err = h.create(ctx, inv)
	case SubcommandList:
		reply, err = h.list(ctx, inv)
	case SubcommandView:
		reply, err = h.view(ctx, inv)
	case SubcommandClose:
		reply, err = h.close(ctx, inv, false)
	case ButtonClose:
		reply, err = h.close(ctx, inv, true)
	default:
		reply = Reply{Content: "Unknown command."}
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		reply = h.failure(inv, err)
	}
	if h.metrics != nil {
		h.metrics.RecordBotInteraction(inv.Kind, outcome)
	}
	return reply
}

func (h *CommandHandler) create(ctx context.Context, inv Invocation) (Reply, error) {
	user, err := h.identities.EnsureDiscordUser(ctx, inv.User)
	if err != nil {
		return Reply{}, err
	}

	priority := domain.TicketPriorityNormal
	if inv.Urgent {
		priority = domain.TicketPriorityUrgent
	}
	var serverID *string
	if inv.GuildID != "" {
		guild := inv.GuildID
		serverID = &guild
	}
	ticket, err := h.tickets.CreateTicket(ctx, service.DiscordActor(user), service.CreateTicketInput{
		Title:       inv.Title,
		Description: inv.Description,
		CategoryID:  inv.CategoryID,
		CreatorID:   user.ID,
		Priority:    priority,
		ServerID:    serverID,
	})
	if err != nil {
		return Reply{}, err
	}

	priorityLabel := "🟢 Normal"
	if ticket.Priority == domain.TicketPriorityUrgent {
		priorityLabel = "🔴 Urgent"
	}
	embed := &discordgo.MessageEmbed{
		Title:       "🎫 Ticket Created",
		Description: fmt.Sprintf("Your support ticket has been created successfully.\n\n**%s**\n%s", ticket.Title, clamp(ticket.Description, descriptionClamp)),
		Color:       brandColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Ticket ID", Value: fmt.Sprintf("#%d", ticket.ID), Inline: true},
			{Name: "Status", Value: "✅ Open", Inline: true},
			{Name: "Priority", Value: priorityLabel, Inline: true},
			{Name: "Category", Value: h.categoryName(ctx, ticket.CategoryID), Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "View and manage this ticket in the web dashboard"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	return Reply{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "View in Dashboard", Style: discordgo.LinkButton, URL: h.DashboardURL()},
		}}},
	}, nil
}

func (h *CommandHandler) list(ctx context.Context, inv Invocation) (Reply, error) {
	tickets, err := h.tickets.ListForUser(ctx, inv.User.ID)
	if err != nil {
		return Reply{}, err
	}
	fields := make([]*discordgo.MessageEmbedField, 0, len(tickets))
	for _, t := range tickets {
		if t.Status == domain.TicketStatusClosed {
			continue
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("#ticket-%d: %s", t.ID, t.Title),
			Value: fmt.Sprintf("Status: %s | Priority: %s", t.Status, t.Priority),
		})
	}
	if len(fields) == 0 {
		return Reply{Content: "You have no open tickets."}, nil
	}
	return Reply{Embeds: []*discordgo.MessageEmbed{{
		Title:       "Your Tickets",
		Description: "Here are your current tickets:",
		Color:       brandColor,
		Fields:      fields,
	}}}, nil
}

func (h *CommandHandler) view(ctx context.Context, inv Invocation) (Reply, error) {
	ticket, denied, err := h.authorizedTicket(ctx, inv, "view")
	if err != nil || denied != nil {
		return derefReply(denied), err
	}
	messages, err := h.tickets.ListMessages(ctx, ticket.ID)
	if err != nil {
		return Reply{}, err
	}

	embeds := []*discordgo.MessageEmbed{{
		Title:       fmt.Sprintf("Ticket #%d: %s", ticket.ID, ticket.Title),
		Description: ticket.Description,
		Color:       brandColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Status", Value: string(ticket.Status), Inline: true},
			{Name: "Priority", Value: string(ticket.Priority), Inline: true},
			{Name: "Category", Value: h.categoryName(ctx, ticket.CategoryID), Inline: true},
			{Name: "Created", Value: ticket.CreatedAt.UTC().Format("2006-01-02 15:04 MST"), Inline: true},
		},
	}}
	if len(messages) > recentMessages {
		messages = messages[len(messages)-recentMessages:]
	}
	if len(messages) > 0 {
		recent := &discordgo.MessageEmbed{Title: "Recent Messages", Color: messagesColor}
		for i, m := range messages {
			recent.Fields = append(recent.Fields, &discordgo.MessageEmbedField{
				Name:  fmt.Sprintf("Message %d", i+1),
				Value: fmt.Sprintf("From: <@%s>\n%s\n%s", m.SenderID, clamp(m.Content, 900), m.CreatedAt.UTC().Format("2006-01-02 15:04 MST")),
			})
		}
		embeds = append(embeds, recent)
	}

	reply := Reply{Embeds: embeds}
	if ticket.Status != domain.TicketStatusClosed {
		reply.Components = []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Close Ticket", Style: discordgo.DangerButton, CustomID: closeButtonID(ticket.ID)},
		}}}
	}
	return reply, nil
}

func (h *CommandHandler) close(ctx context.Context, inv Invocation, fromButton bool) (Reply, error) {
	ticket, denied, err := h.authorizedTicket(ctx, inv, "close")
	if err != nil || denied != nil {
		return derefReply(denied), err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return Reply{Content: "This ticket is already closed."}, nil
	}

	user, err := h.identities.EnsureDiscordUser(ctx, inv.User)
	if err != nil {
		return Reply{}, err
	}
	if _, err := h.tickets.UpdateTicketStatus(ctx, service.DiscordActor(user), ticket.ID, domain.TicketStatusClosed); err != nil {
		return Reply{}, err
	}

	if fromButton {
		return Reply{Content: fmt.Sprintf("Ticket #%d has been closed.", ticket.ID), Update: true}, nil
	}
	return Reply{Embeds: []*discordgo.MessageEmbed{{
		Title:       "Ticket Closed",
		Description: fmt.Sprintf("Ticket #%d has been closed successfully.", ticket.ID),
		Color:       closedColor,
	}}}, nil
}

// authorizedTicket loads the ticket and checks that the invoking user created
// it or is an admin. A non-nil Reply means the request was refused.
func (h *CommandHandler) authorizedTicket(ctx context.Context, inv Invocation, action string) (*domain.Ticket, *Reply, error) {
	ticket, err := h.tickets.GetTicket(ctx, inv.TicketID)
	if apperrors.IsNotFound(err) {
		return nil, &Reply{Content: fmt.Sprintf("Ticket #%d not found.", inv.TicketID)}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if ticket.CreatorID == inv.User.ID {
		return ticket, nil, nil
	}
	user, err := h.identities.Get(ctx, inv.User.ID)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, nil, err
	}
	if user == nil || !user.Admin() {
		return nil, &Reply{Content: fmt.Sprintf("You do not have permission to %s this ticket.", action)}, nil
	}
	return ticket, nil, nil
}

// DashboardURL is where create replies link to.
func (h *CommandHandler) DashboardURL() string {
	return h.appURL + "/dashboard"
}

func (h *CommandHandler) categoryName(ctx context.Context, id *int64) string {
	if id == nil {
		return "None"
	}
	categories, err := h.categories.List(ctx)
	if err != nil {
		return "Unknown Category"
	}
	for _, c := range categories {
		if c.ID == *id {
			return c.Name
		}
	}
	return "Unknown Category"
}

func (h *CommandHandler) failure(inv Invocation, err error) Reply {
	de := apperrors.ToDomainError(err)
	if de.Code == apperrors.CodeValidation {
		return Reply{Content: validationMessage(de)}
	}
	h.logger.Error("bot command failed",
		zap.String("command", inv.Kind),
		zap.String("user_id", inv.User.ID),
		zap.Error(err))

	switch inv.Kind {
	case SubcommandCreate:
		return Reply{Content: "Failed to create ticket. Please try again later."}
	case SubcommandList:
		return Reply{Content: "Failed to list tickets. Please try again later."}
	case SubcommandView:
		return Reply{Content: "Failed to view ticket. Please try again later."}
	case SubcommandClose:
		return Reply{Content: "Failed to close ticket. Please try again later."}
	}
	return Reply{Content: "An error occurred while processing your request."}
}

func validationMessage(de *apperrors.DomainError) string {
	if len(de.Details) == 0 {
		return de.Message + "."
	}
	parts := make([]string, 0, len(de.Details))
	for field, reason := range de.Details {
		parts = append(parts, fmt.Sprintf("%s %v", field, reason))
	}
	sort.Strings(parts)
	return de.Message + ": " + strings.Join(parts, ", ") + "."
}

func clamp(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func derefReply(r *Reply) Reply {
	if r == nil {
		return Reply{}
	}
	return *r
}
