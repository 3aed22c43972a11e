package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// memoryDB is the volatile backing state shared by the in-memory repositories.
type memoryDB struct {
	mu sync.RWMutex

	users        map[int64]domain.User
	discordUsers map[string]domain.DiscordUser
	servers      map[string]domain.Server
	botSettings  map[string]domain.BotSettings
	categories   map[int64]domain.TicketCategory
	tickets      map[int64]domain.Ticket
	messages     map[int64]domain.TicketMessage

	userSeq, settingsSeq, categorySeq, ticketSeq, messageSeq int64

	lastMessageAt time.Time

	now func() time.Time
}

// NewMemoryStore returns a process-lifetime Store seeded with the default
// categories.
func NewMemoryStore() *Store {
	db := &memoryDB{
		users:        make(map[int64]domain.User),
		discordUsers: make(map[string]domain.DiscordUser),
		servers:      make(map[string]domain.Server),
		botSettings:  make(map[string]domain.BotSettings),
		categories:   make(map[int64]domain.TicketCategory),
		tickets:      make(map[int64]domain.Ticket),
		messages:     make(map[int64]domain.TicketMessage),
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, c := range domain.DefaultCategories() {
		db.insertCategory(c)
	}
	return &Store{
		Users:        memUsers{db},
		DiscordUsers: memDiscordUsers{db},
		Servers:      memServers{db},
		BotSettings:  memBotSettings{db},
		Categories:   memCategories{db},
		Tickets:      memTickets{db},
		Messages:     memMessages{db},
	}
}

func sortedValues[K comparable, V any](m map[K]V, less func(a, b V) bool, keep func(V) bool) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

type memUsers struct{ db *memoryDB }

func (r memUsers) List(_ context.Context) ([]domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return sortedValues(r.db.users, func(a, b domain.User) bool { return a.ID < b.ID }, nil), nil
}

func (r memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, u := range r.db.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r memUsers) Create(_ context.Context, in domain.UserInput) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Username == in.Username {
			return nil, ErrConflict
		}
	}
	r.db.userSeq++
	u := domain.User{ID: r.db.userSeq, Username: in.Username, PasswordHash: in.PasswordHash}
	r.db.users[u.ID] = u
	return &u, nil
}

type memDiscordUsers struct{ db *memoryDB }

func (r memDiscordUsers) List(_ context.Context) ([]domain.DiscordUser, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return sortedValues(r.db.discordUsers, func(a, b domain.DiscordUser) bool { return a.ID < b.ID }, nil), nil
}

func (r memDiscordUsers) GetByID(_ context.Context, id string) (*domain.DiscordUser, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	u, ok := r.db.discordUsers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r memDiscordUsers) Create(_ context.Context, user domain.DiscordUser) (*domain.DiscordUser, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, exists := r.db.discordUsers[user.ID]; exists {
		return nil, ErrConflict
	}
	r.db.discordUsers[user.ID] = user
	return &user, nil
}

func (r memDiscordUsers) Update(_ context.Context, id string, patch domain.DiscordUserPatch) (*domain.DiscordUser, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.discordUsers[id]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(&u)
	r.db.discordUsers[id] = u
	return &u, nil
}

type memServers struct{ db *memoryDB }

func (r memServers) List(_ context.Context) ([]domain.Server, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return sortedValues(r.db.servers, func(a, b domain.Server) bool { return a.ID < b.ID }, nil), nil
}

func (r memServers) GetByID(_ context.Context, id string) (*domain.Server, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	s, ok := r.db.servers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r memServers) Create(_ context.Context, in domain.ServerInput) (*domain.Server, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, exists := r.db.servers[in.ID]; exists {
		return nil, ErrConflict
	}
	s := domain.Server{
		ID:            in.ID,
		Name:          in.Name,
		Icon:          in.Icon,
		OwnerID:       in.OwnerID,
		AdminRoleID:   in.AdminRoleID,
		SupportRoleID: in.SupportRoleID,
		IsActive:      in.IsActive == nil || *in.IsActive,
	}
	r.db.servers[s.ID] = s
	return &s, nil
}

func (r memServers) Update(_ context.Context, id string, patch domain.ServerPatch) (*domain.Server, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.servers[id]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(&s)
	r.db.servers[id] = s
	return &s, nil
}

type memBotSettings struct{ db *memoryDB }

func (r memBotSettings) GetByServerID(_ context.Context, serverID string) (*domain.BotSettings, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	s, ok := r.db.botSettings[serverID]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r memBotSettings) Create(_ context.Context, in domain.BotSettingsInput) (*domain.BotSettings, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, exists := r.db.botSettings[in.ServerID]; exists {
		return nil, ErrConflict
	}
	r.db.settingsSeq++
	now := r.db.now()
	s := domain.BotSettings{
		ID:              r.db.settingsSeq,
		ServerID:        in.ServerID,
		LogChannelID:    in.LogChannelID,
		TicketChannelID: in.TicketChannelID,
		DashboardURL:    in.DashboardURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.db.botSettings[s.ServerID] = s
	return &s, nil
}

func (r memBotSettings) Update(_ context.Context, serverID string, patch domain.BotSettingsPatch) (*domain.BotSettings, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.botSettings[serverID]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(&s)
	s.UpdatedAt = r.db.now()
	r.db.botSettings[serverID] = s
	return &s, nil
}

type memCategories struct{ db *memoryDB }

func byCategoryID(a, b domain.TicketCategory) bool { return a.ID < b.ID }

func (r memCategories) List(_ context.Context) ([]domain.TicketCategory, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return sortedValues(r.db.categories, byCategoryID, nil), nil
}

func (r memCategories) GetByID(_ context.Context, id int64) (*domain.TicketCategory, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	c, ok := r.db.categories[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r memCategories) ListByServer(_ context.Context, serverID string) ([]domain.TicketCategory, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return sortedValues(r.db.categories, byCategoryID, func(c domain.TicketCategory) bool {
		return c.ServerID != nil && *c.ServerID == serverID
	}), nil
}

func (r memCategories) Create(_ context.Context, in domain.CategoryInput) (*domain.TicketCategory, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := r.db.insertCategory(in)
	return &c, nil
}

// insertCategory requires the write lock.
func (db *memoryDB) insertCategory(in domain.CategoryInput) domain.TicketCategory {
	db.categorySeq++
	c := domain.TicketCategory{ID: db.categorySeq, Name: in.Name, Color: in.Color, ServerID: in.ServerID}
	if c.Color == "" {
		c.Color = domain.DefaultCategoryColor
	}
	db.categories[c.ID] = c
	return c
}

type memTickets struct{ db *memoryDB }

func byTicketID(a, b domain.Ticket) bool { return a.ID < b.ID }

func (r memTickets) filter(keep func(domain.Ticket) bool) []domain.Ticket {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return sortedValues(r.db.tickets, byTicketID, keep)
}

func (r memTickets) List(_ context.Context) ([]domain.Ticket, error) {
	return r.filter(nil), nil
}

func (r memTickets) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	t, ok := r.db.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (r memTickets) ListByCreator(_ context.Context, creatorID string) ([]domain.Ticket, error) {
	return r.filter(func(t domain.Ticket) bool { return t.CreatorID == creatorID }), nil
}

func (r memTickets) ListByServer(_ context.Context, serverID string) ([]domain.Ticket, error) {
	return r.filter(func(t domain.Ticket) bool { return t.ServerID != nil && *t.ServerID == serverID }), nil
}

func (r memTickets) ListByCategory(_ context.Context, categoryID int64) ([]domain.Ticket, error) {
	return r.filter(func(t domain.Ticket) bool { return t.CategoryID != nil && *t.CategoryID == categoryID }), nil
}

func (r memTickets) ListByStatus(_ context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	return r.filter(func(t domain.Ticket) bool { return t.Status == status }), nil
}

func (r memTickets) Create(_ context.Context, in domain.TicketInput) (*domain.Ticket, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.ticketSeq++
	now := r.db.now()
	t := domain.Ticket{
		ID:          r.db.ticketSeq,
		DiscordID:   in.DiscordID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		CategoryID:  in.CategoryID,
		CreatorID:   in.CreatorID,
		AssigneeID:  in.AssigneeID,
		ServerID:    in.ServerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Status == "" {
		t.Status = domain.TicketStatusOpen
	}
	if t.Priority == "" {
		t.Priority = domain.TicketPriorityNormal
	}
	r.db.tickets[t.ID] = t
	return &t, nil
}

func (r memTickets) Update(_ context.Context, id int64, patch domain.TicketPatch) (*domain.Ticket, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(&t)
	t.UpdatedAt = r.db.touch(t.UpdatedAt)
	r.db.tickets[id] = t
	return &t, nil
}

// touch returns a timestamp that never moves backwards from prev.
func (db *memoryDB) touch(prev time.Time) time.Time {
	now := db.now()
	if now.Before(prev) {
		return prev
	}
	return now
}

type memMessages struct{ db *memoryDB }

func (r memMessages) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketMessage, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return sortedValues(r.db.messages, func(a, b domain.TicketMessage) bool {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	}, func(m domain.TicketMessage) bool { return m.TicketID == ticketID }), nil
}

func (r memMessages) Create(_ context.Context, in domain.TicketMessageInput) (*domain.TicketMessage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tickets[in.TicketID]
	if !ok {
		return nil, ErrNotFound
	}
	r.db.messageSeq++
	m := domain.TicketMessage{
		ID:        r.db.messageSeq,
		TicketID:  in.TicketID,
		SenderID:  in.SenderID,
		Content:   in.Content,
		CreatedAt: r.db.touch(r.db.lastMessageAt),
	}
	r.db.lastMessageAt = m.CreatedAt
	if sender, ok := r.db.discordUsers[in.SenderID]; ok {
		name := sender.Username
		m.SenderUsername = &name
	}
	r.db.messages[m.ID] = m

	t.UpdatedAt = r.db.touch(t.UpdatedAt)
	r.db.tickets[t.ID] = t
	return &m, nil
}
