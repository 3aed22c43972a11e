package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
)

type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *countingMetrics) RecordBotInteraction(command, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[command+"/"+outcome]++
}

type botFixture struct {
	store   *repository.Store
	handler *CommandHandler
	metrics *countingMetrics
	events  *[]events.EventType
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher()
	var seen []events.EventType
	events.SubscribeAll(dispatcher, func(_ context.Context, e events.Event) error {
		seen = append(seen, e.Type)
		return nil
	})
	metrics := &countingMetrics{}
	handler := NewCommandHandler(HandlerDependencies{
		Tickets: service.NewTicketService(service.TicketDependencies{
			TicketRepo:   store.Tickets,
			MessageRepo:  store.Messages,
			CategoryRepo: store.Categories,
			Dispatcher:   dispatcher,
		}),
		Categories: service.NewCategoryService(store.Categories, dispatcher, nil),
		Identities: service.NewIdentityService(store.DiscordUsers),
		AppURL:     "https://help.example.com/",
		Metrics:    metrics,
	})
	return &botFixture{store: store, handler: handler, metrics: metrics, events: &seen}
}

func member(id string) domain.DiscordUser {
	return domain.DiscordUser{ID: id, Username: "user-" + id, Discriminator: "0"}
}

func (f *botFixture) createTicket(t *testing.T, creator string, urgent bool) Reply {
	t.Helper()
	return f.handler.Handle(context.Background(), Invocation{
		Kind:        SubcommandCreate,
		User:        member(creator),
		GuildID:     "g1",
		Title:       "Cannot login",
		Description: "The login page spins forever",
		CategoryID:  4,
		Urgent:      urgent,
	})
}

func linkButton(t *testing.T, r Reply) discordgo.Button {
	t.Helper()
	require.Len(t, r.Components, 1)
	row, ok := r.Components[0].(discordgo.ActionsRow)
	require.True(t, ok)
	require.Len(t, row.Components, 1)
	button, ok := row.Components[0].(discordgo.Button)
	require.True(t, ok)
	return button
}

func TestCreate_ProvisionsUserAndReplies(t *testing.T) {
	f := newBotFixture(t)
	reply := f.createTicket(t, "u1", true)

	require.Len(t, reply.Embeds, 1)
	embed := reply.Embeds[0]
	assert.Equal(t, "🎫 Ticket Created", embed.Title)
	assert.Equal(t, "#1", embed.Fields[0].Value)
	assert.Equal(t, "🔴 Urgent", embed.Fields[2].Value)
	assert.Equal(t, "Account Issues", embed.Fields[3].Value)

	button := linkButton(t, reply)
	assert.Equal(t, discordgo.LinkButton, button.Style)
	assert.Equal(t, "https://help.example.com/dashboard", button.URL)

	ctx := context.Background()
	stored, err := f.store.DiscordUsers.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "user-u1", stored.Username)

	ticket, err := f.store.Tickets.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityUrgent, ticket.Priority)
	require.NotNil(t, ticket.ServerID)
	assert.Equal(t, "g1", *ticket.ServerID)

	messages, err := f.store.Messages.ListByTicket(ctx, 1)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.NotNil(t, messages[0].SenderUsername)
	assert.Equal(t, "user-u1", *messages[0].SenderUsername)

	assert.Equal(t, []events.EventType{events.EventTicketCreated}, *f.events)
	assert.Equal(t, 1, f.metrics.counts["create/ok"])
}

func TestCreate_ValidationReply(t *testing.T) {
	f := newBotFixture(t)
	reply := f.handler.Handle(context.Background(), Invocation{
		Kind: SubcommandCreate, User: member("u1"), Title: "t", Description: "d", CategoryID: 99,
	})
	assert.Equal(t, "Invalid ticket data: categoryId unknown category.", reply.Content)
	assert.Equal(t, 1, f.metrics.counts["create/error"])
}

func TestList(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	reply := f.handler.Handle(ctx, Invocation{Kind: SubcommandList, User: member("u1")})
	assert.Equal(t, "You have no open tickets.", reply.Content)

	f.createTicket(t, "u1", false)
	f.createTicket(t, "u1", true)
	f.createTicket(t, "u2", false)
	f.handler.Handle(ctx, Invocation{Kind: SubcommandClose, User: member("u1"), TicketID: 1})

	reply = f.handler.Handle(ctx, Invocation{Kind: SubcommandList, User: member("u1")})
	require.Len(t, reply.Embeds, 1)
	require.Len(t, reply.Embeds[0].Fields, 1)
	assert.Equal(t, "#ticket-2: Cannot login", reply.Embeds[0].Fields[0].Name)
	assert.Equal(t, "Status: open | Priority: urgent", reply.Embeds[0].Fields[0].Value)
}

func TestView(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()
	f.createTicket(t, "u1", false)
	for i := 1; i <= 4; i++ {
		_, err := f.store.Messages.Create(ctx, domain.TicketMessageInput{TicketID: 1, SenderID: "u1", Content: fmt.Sprintf("follow-up %d", i)})
		require.NoError(t, err)
	}

	reply := f.handler.Handle(ctx, Invocation{Kind: SubcommandView, User: member("u1"), TicketID: 1})
	require.Len(t, reply.Embeds, 2)
	assert.Equal(t, "Ticket #1: Cannot login", reply.Embeds[0].Title)
	recent := reply.Embeds[1].Fields
	require.Len(t, recent, 3)
	assert.True(t, strings.Contains(recent[0].Value, "follow-up 2"))
	assert.True(t, strings.Contains(recent[2].Value, "follow-up 4"))
	assert.Equal(t, "closeTicket_1", linkButton(t, reply).CustomID)

	reply = f.handler.Handle(ctx, Invocation{Kind: SubcommandView, User: member("u2"), TicketID: 1})
	assert.Equal(t, "You do not have permission to view this ticket.", reply.Content)

	reply = f.handler.Handle(ctx, Invocation{Kind: SubcommandView, User: member("u1"), TicketID: 77})
	assert.Equal(t, "Ticket #77 not found.", reply.Content)

	admin := true
	_, err := f.store.DiscordUsers.Create(ctx, domain.DiscordUser{ID: "a1", Username: "admin", IsAdmin: &admin})
	require.NoError(t, err)
	reply = f.handler.Handle(ctx, Invocation{Kind: SubcommandView, User: member("a1"), TicketID: 1})
	assert.Len(t, reply.Embeds, 2)
}

func TestClose(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()
	f.createTicket(t, "u1", false)

	reply := f.handler.Handle(ctx, Invocation{Kind: SubcommandClose, User: member("u2"), TicketID: 1})
	assert.Equal(t, "You do not have permission to close this ticket.", reply.Content)

	reply = f.handler.Handle(ctx, Invocation{Kind: SubcommandClose, User: member("u1"), TicketID: 1})
	require.Len(t, reply.Embeds, 1)
	assert.Equal(t, "Ticket #1 has been closed successfully.", reply.Embeds[0].Description)

	reply = f.handler.Handle(ctx, Invocation{Kind: SubcommandClose, User: member("u1"), TicketID: 1})
	assert.Equal(t, "This ticket is already closed.", reply.Content)

	messages, err := f.store.Messages.ListByTicket(ctx, 1)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.True(t, strings.HasPrefix(messages[1].Content, "Ticket closed by user-u1 on "))
	assert.Equal(t, []events.EventType{events.EventTicketCreated, events.EventTicketUpdated}, *f.events)
}

func TestCloseButton(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()
	f.createTicket(t, "u1", false)

	reply := f.handler.Handle(ctx, Invocation{Kind: ButtonClose, User: member("u1"), TicketID: 1})
	assert.True(t, reply.Update)
	assert.Equal(t, "Ticket #1 has been closed.", reply.Content)

	ticket, err := f.store.Tickets.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, ticket.Status)

	reply = f.handler.Handle(ctx, Invocation{Kind: ButtonClose, User: member("u1"), TicketID: 9})
	assert.Equal(t, "Ticket #9 not found.", reply.Content)
	assert.Equal(t, 2, f.metrics.counts["button_close/ok"])
}
