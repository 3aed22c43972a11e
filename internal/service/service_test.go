package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store    *repository.Store
	tickets  *TicketService
	recorded *recordedEvents
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher()
	recorded := &recordedEvents{}
	events.SubscribeAll(dispatcher, recorded.handle)

	return &fixture{
		store: store,
		tickets: NewTicketService(TicketDependencies{
			TicketRepo:   store.Tickets,
			MessageRepo:  store.Messages,
			CategoryRepo: store.Categories,
			Dispatcher:   dispatcher,
		}),
		recorded: recorded,
	}
}

var alice = Actor{Type: domain.SubjectTypeDiscord, ID: "u1", Username: "alice"}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	de := apperrors.ToDomainError(err)
	require.NotNil(t, de)
	return de.HTTPStatus
}

func TestCreateTicket_OpensWithSeedMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.CreateTicket(ctx, alice, CreateTicketInput{
		Title:       "Cannot login",
		Description: "Password reset link is broken",
		CategoryID:  1,
		Priority:    domain.TicketPriorityUrgent,
		CreatorID:   "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityUrgent, ticket.Priority)

	messages, err := f.tickets.ListMessages(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "u1", messages[0].SenderID)
	assert.Equal(t, "Password reset link is broken", messages[0].Content)
	assert.Equal(t, []events.EventType{events.EventTicketCreated}, f.recorded.types())
}

func TestCreateTicket_DefaultsAndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.CreateTicket(ctx, alice, CreateTicketInput{
		Title: "  Slow dashboard ", Description: "It takes ages", CategoryID: 2, CreatorID: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityNormal, ticket.Priority)
	assert.Equal(t, "Slow dashboard", ticket.Title)

	tests := []struct {
		name  string
		input CreateTicketInput
		field string
	}{
		{"missing title", CreateTicketInput{Description: "d", CategoryID: 1, CreatorID: "u1"}, "title"},
		{"blank description", CreateTicketInput{Title: "t", Description: " \n\t ", CategoryID: 1, CreatorID: "u1"}, "description"},
		{"missing creator", CreateTicketInput{Title: "t", Description: "d", CategoryID: 1}, "creatorId"},
		{"missing category", CreateTicketInput{Title: "t", Description: "d", CreatorID: "u1"}, "categoryId"},
		{"unknown category", CreateTicketInput{Title: "t", Description: "d", CategoryID: 99, CreatorID: "u1"}, "categoryId"},
		{"bad priority", CreateTicketInput{Title: "t", Description: "d", CategoryID: 1, CreatorID: "u1", Priority: "meh"}, "priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tickets.CreateTicket(ctx, alice, tt.input)
			de := apperrors.ToDomainError(err)
			require.NotNil(t, de)
			assert.Equal(t, apperrors.CodeValidation, de.Code)
			assert.Contains(t, de.Details, tt.field)
		})
	}
	assert.Len(t, f.recorded.types(), 1)
}

func TestCreateTicket_KeepsAngleBrackets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	description := "Login fails when x<y and y>z; error shows <email> field"
	ticket, err := f.tickets.CreateTicket(ctx, alice, CreateTicketInput{
		Title: "<script> tag in title", Description: description, CategoryID: 1, CreatorID: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "<script> tag in title", ticket.Title)
	assert.Equal(t, description, ticket.Description)

	messages, err := f.tickets.ListMessages(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, description, messages[0].Content)

	msg, err := f.tickets.AddMessage(ctx, alice, ticket.ID, "u1", "<br>")
	require.NoError(t, err)
	assert.Equal(t, "<br>", msg.Content)
}

func TestUpdateTicket_CloseAppendsNotice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket, err := f.tickets.CreateTicket(ctx, alice, CreateTicketInput{
		Title: "Broken", Description: "desc", CategoryID: 1, CreatorID: "u1",
	})
	require.NoError(t, err)

	fixed := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	f.tickets.now = func() time.Time { return fixed }
	admin := Actor{Type: domain.SubjectTypeLocal, ID: "local:1", Username: "ops", IsAdmin: true}

	closed, err := f.tickets.UpdateTicketStatus(ctx, admin, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	assert.False(t, closed.UpdatedAt.Before(ticket.UpdatedAt))

	// Closing again succeeds and appends exactly one more notice.
	_, err = f.tickets.UpdateTicketStatus(ctx, admin, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)

	messages, err := f.tickets.ListMessages(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "Ticket closed by ops on 2026-03-04 05:06:07 UTC", messages[1].Content)
	assert.Equal(t, "local:1", messages[1].SenderID)
	assert.Equal(t, messages[1].Content, messages[2].Content)

	assert.Equal(t, []events.EventType{
		events.EventTicketCreated, events.EventTicketUpdated, events.EventTicketUpdated,
	}, f.recorded.types())
	assert.Equal(t, domain.TicketStatusOpen, f.recorded.events[1].PreviousStatus)
	assert.Equal(t, domain.TicketStatusClosed, f.recorded.events[2].PreviousStatus)
}

func TestUpdateTicket_MergesOnlySetFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	server := "g1"
	ticket, err := f.tickets.CreateTicket(ctx, alice, CreateTicketInput{
		Title: "Original", Description: "desc", CategoryID: 3, CreatorID: "u1",
		Priority: domain.TicketPriorityUrgent, ServerID: &server,
	})
	require.NoError(t, err)

	updated, err := f.tickets.UpdateTicket(ctx, alice, ticket.ID, domain.TicketPatch{Title: domain.Some("Renamed")})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, ticket.Description, updated.Description)
	assert.Equal(t, ticket.Priority, updated.Priority)
	assert.Equal(t, ticket.Status, updated.Status)
	assert.Equal(t, ticket.CategoryID, updated.CategoryID)
	assert.Equal(t, ticket.ServerID, updated.ServerID)
	assert.Equal(t, ticket.CreatedAt, updated.CreatedAt)
}

func TestUpdateTicket_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket, err := f.tickets.CreateTicket(ctx, alice, CreateTicketInput{
		Title: "t", Description: "d", CategoryID: 1, CreatorID: "u1",
	})
	require.NoError(t, err)

	_, err = f.tickets.UpdateTicketStatus(ctx, alice, 404, domain.TicketStatusClosed)
	assert.Equal(t, 404, statusOf(t, err))

	_, err = f.tickets.UpdateTicketStatus(ctx, alice, ticket.ID, domain.TicketStatusPending)
	assert.Equal(t, 400, statusOf(t, err))

	_, err = f.tickets.UpdateTicket(ctx, alice, ticket.ID, domain.TicketPatch{Title: domain.Some("   ")})
	assert.Equal(t, 400, statusOf(t, err))
}

func TestAddMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket, err := f.tickets.CreateTicket(ctx, alice, CreateTicketInput{
		Title: "t", Description: "d", CategoryID: 1, CreatorID: "u1",
	})
	require.NoError(t, err)

	msg, err := f.tickets.AddMessage(ctx, alice, ticket.ID, "u1", "  any update?  ")
	require.NoError(t, err)
	assert.Equal(t, "any update?", msg.Content)

	_, err = f.tickets.AddMessage(ctx, alice, ticket.ID, "u1", "   ")
	assert.Equal(t, 400, statusOf(t, err))

	before := len(f.recorded.types())
	_, err = f.tickets.AddMessage(ctx, alice, 999, "u1", "hello")
	assert.Equal(t, 404, statusOf(t, err))
	assert.Len(t, f.recorded.types(), before)

	last := f.recorded.events[len(f.recorded.events)-1]
	require.Equal(t, events.EventMessageCreated, last.Type)
	payload, ok := last.Data.(events.MessageCreatedPayload)
	require.True(t, ok)
	assert.Equal(t, ticket.ID, payload.TicketID)
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, creator := range []string{"u1", "u2", "u1"} {
		_, err := f.tickets.CreateTicket(ctx, alice, CreateTicketInput{
			Title: "t", Description: "d", CategoryID: 1, CreatorID: creator,
		})
		require.NoError(t, err)
	}
	_, err := f.tickets.UpdateTicketStatus(ctx, alice, 1, domain.TicketStatusClosed)
	require.NoError(t, err)

	mine, err := f.tickets.ListForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	closed, err := f.tickets.ListByStatus(ctx, domain.TicketStatusClosed)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, int64(1), closed[0].ID)

	_, err = f.tickets.ListByStatus(ctx, "archived")
	assert.Equal(t, 400, statusOf(t, err))

	_, err = f.tickets.ListMessages(ctx, 42)
	assert.Equal(t, 404, statusOf(t, err))
}

func TestCategoryService_Create(t *testing.T) {
	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher()
	recorded := &recordedEvents{}
	events.SubscribeAll(dispatcher, recorded.handle)
	svc := NewCategoryService(store.Categories, dispatcher, nil)
	ctx := context.Background()

	category, err := svc.Create(ctx, alice, domain.CategoryInput{Name: "Billing"})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCategoryColor, category.Color)
	assert.Equal(t, []events.EventType{events.EventCategoryCreated}, recorded.types())

	_, err = svc.Create(ctx, alice, domain.CategoryInput{Name: "Billing", Color: "blue"})
	assert.Equal(t, 400, statusOf(t, err))
	_, err = svc.Create(ctx, alice, domain.CategoryInput{Name: " "})
	assert.Equal(t, 400, statusOf(t, err))

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestAdminService_Stats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := true
	_, err := f.store.DiscordUsers.Create(ctx, domain.DiscordUser{ID: "u1", Username: "alice"})
	require.NoError(t, err)
	_, err = f.store.DiscordUsers.Create(ctx, domain.DiscordUser{ID: "u2", Username: "bob", IsAdmin: &admin})
	require.NoError(t, err)

	for _, category := range []int64{1, 1, 2} {
		_, err := f.tickets.CreateTicket(ctx, alice, CreateTicketInput{
			Title: "t", Description: "d", CategoryID: category, CreatorID: "u1",
		})
		require.NoError(t, err)
	}
	_, err = f.tickets.UpdateTicketStatus(ctx, alice, 2, domain.TicketStatusClosed)
	require.NoError(t, err)

	stats, err := NewAdminService(f.store).Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, TicketCounts{Total: 3, Open: 2, Closed: 1}, stats.TicketCounts)
	assert.Equal(t, UserStats{TotalUsers: 2, AdminUsers: 1}, stats.UserStats)
	require.Len(t, stats.CategoryStats, 4)
	assert.Equal(t, CategoryStat{ID: 1, Name: "General Support", Count: 2, OpenCount: 1}, stats.CategoryStats[0])
	assert.Equal(t, 1, stats.CategoryStats[1].OpenCount)
	assert.Zero(t, stats.CategoryStats[3].Count)
}

func TestAdminService_ServersAndSettings(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewAdminService(store)
	ctx := context.Background()

	_, err := svc.CreateServer(ctx, domain.ServerInput{})
	de := apperrors.ToDomainError(err)
	require.NotNil(t, de)
	assert.Contains(t, de.Details, "id")
	assert.Contains(t, de.Details, "name")

	server, err := svc.CreateServer(ctx, domain.ServerInput{ID: "g1", Name: "Guild"})
	require.NoError(t, err)
	assert.True(t, server.IsActive)

	_, err = svc.GetServer(ctx, "nope")
	assert.Equal(t, 404, statusOf(t, err))
	_, err = svc.UpdateServer(ctx, "nope", domain.ServerPatch{Name: domain.Some("x")})
	assert.Equal(t, 404, statusOf(t, err))

	logChannel := "c1"
	settings, err := svc.CreateBotSettings(ctx, domain.BotSettingsInput{ServerID: "g1", LogChannelID: &logChannel})
	require.NoError(t, err)

	dashboard := "https://help.example.com"
	updated, err := svc.UpdateBotSettings(ctx, "g1", domain.BotSettingsPatch{DashboardURL: domain.Some(&dashboard)})
	require.NoError(t, err)
	assert.Equal(t, settings.LogChannelID, updated.LogChannelID)
	assert.Equal(t, &dashboard, updated.DashboardURL)
	assert.False(t, updated.UpdatedAt.Before(settings.UpdatedAt))

	_, err = svc.GetBotSettings(ctx, "g2")
	assert.Equal(t, 404, statusOf(t, err))
}

func TestIdentityService_EnsureDiscordUser(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewIdentityService(store.DiscordUsers)
	ctx := context.Background()

	created, err := svc.EnsureDiscordUser(ctx, domain.DiscordUser{ID: "u1", Username: "alice", Discriminator: "0"})
	require.NoError(t, err)
	assert.Nil(t, created.IsAdmin)

	admin := true
	updated, err := svc.EnsureDiscordUser(ctx, domain.DiscordUser{ID: "u1", Username: "alice2", IsAdmin: &admin})
	require.NoError(t, err)
	assert.Equal(t, "alice2", updated.Username)
	assert.Equal(t, "0", updated.Discriminator)
	assert.True(t, updated.Admin())

	_, err = svc.Get(ctx, "ghost")
	assert.True(t, apperrors.IsNotFound(err))
}

type fakePoster struct {
	mu    sync.Mutex
	posts map[string][]string
	err   error
}

func (p *fakePoster) PostToChannel(_ context.Context, channelID, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.posts == nil {
		p.posts = map[string][]string{}
	}
	p.posts[channelID] = append(p.posts[channelID], content)
	return p.err
}

func TestNotificationService_PostsToLogChannel(t *testing.T) {
	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher()
	poster := &fakePoster{}
	NewNotificationService(NotificationDependencies{
		Dispatcher:      dispatcher,
		BotSettingsRepo: store.BotSettings,
		Poster:          poster,
		AppURL:          "http://localhost:5000",
	}).RegisterHandlers()
	tickets := NewTicketService(TicketDependencies{
		TicketRepo: store.Tickets, MessageRepo: store.Messages, CategoryRepo: store.Categories, Dispatcher: dispatcher,
	})
	ctx := context.Background()

	logChannel := "log-1"
	_, err := store.Servers.Create(ctx, domain.ServerInput{ID: "g1", Name: "Guild"})
	require.NoError(t, err)
	_, err = store.BotSettings.Create(ctx, domain.BotSettingsInput{ServerID: "g1", LogChannelID: &logChannel})
	require.NoError(t, err)

	server := "g1"
	ticket, err := tickets.CreateTicket(ctx, alice, CreateTicketInput{
		Title: "Refund", Description: "d", CategoryID: 1, CreatorID: "u1", ServerID: &server,
	})
	require.NoError(t, err)
	// No server, nothing posted.
	_, err = tickets.CreateTicket(ctx, alice, CreateTicketInput{Title: "x", Description: "d", CategoryID: 1, CreatorID: "u1"})
	require.NoError(t, err)

	_, err = tickets.UpdateTicketStatus(ctx, alice, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)
	_, err = tickets.UpdateTicketStatus(ctx, alice, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)

	posts := poster.posts["log-1"]
	require.Len(t, posts, 2)
	assert.True(t, strings.HasPrefix(posts[0], "New ticket #1 opened by alice: Refund"))
	assert.Contains(t, posts[0], "http://localhost:5000/dashboard")
	assert.Equal(t, "Ticket #1 closed by alice: Refund", posts[1])
}

func TestNotificationService_PosterFailureIsNotFatal(t *testing.T) {
	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(NotificationDependencies{
		Dispatcher:      dispatcher,
		BotSettingsRepo: store.BotSettings,
		Poster:          &fakePoster{err: errors.New("bot offline")},
	}).RegisterHandlers()
	tickets := NewTicketService(TicketDependencies{
		TicketRepo: store.Tickets, MessageRepo: store.Messages, CategoryRepo: store.Categories, Dispatcher: dispatcher,
	})
	ctx := context.Background()
	logChannel := "log-1"
	_, err := store.BotSettings.Create(ctx, domain.BotSettingsInput{ServerID: "g1", LogChannelID: &logChannel})
	require.NoError(t, err)

	server := "g1"
	_, err = tickets.CreateTicket(ctx, alice, CreateTicketInput{
		Title: "t", Description: "d", CategoryID: 1, CreatorID: "u1", ServerID: &server,
	})
	assert.NoError(t, err)
}
