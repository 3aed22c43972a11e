package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/helpdesk/internal/domain"
)

var (
	// ErrNotFound is returned by Get and Update calls for unknown ids.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("record already exists")
)

// UserRepository stores local operator accounts.
type UserRepository interface {
	List(ctx context.Context) ([]domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, in domain.UserInput) (*domain.User, error)
}

// DiscordUserRepository stores chat-platform identities.
type DiscordUserRepository interface {
	List(ctx context.Context) ([]domain.DiscordUser, error)
	GetByID(ctx context.Context, id string) (*domain.DiscordUser, error)
	Create(ctx context.Context, user domain.DiscordUser) (*domain.DiscordUser, error)
	Update(ctx context.Context, id string, patch domain.DiscordUserPatch) (*domain.DiscordUser, error)
}

// ServerRepository stores guild records.
type ServerRepository interface {
	List(ctx context.Context) ([]domain.Server, error)
	GetByID(ctx context.Context, id string) (*domain.Server, error)
	Create(ctx context.Context, in domain.ServerInput) (*domain.Server, error)
	Update(ctx context.Context, id string, patch domain.ServerPatch) (*domain.Server, error)
}

// BotSettingsRepository stores per-server bot settings, keyed by server id.
type BotSettingsRepository interface {
	GetByServerID(ctx context.Context, serverID string) (*domain.BotSettings, error)
	Create(ctx context.Context, in domain.BotSettingsInput) (*domain.BotSettings, error)
	Update(ctx context.Context, serverID string, patch domain.BotSettingsPatch) (*domain.BotSettings, error)
}

// CategoryRepository stores ticket categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]domain.TicketCategory, error)
	GetByID(ctx context.Context, id int64) (*domain.TicketCategory, error)
	ListByServer(ctx context.Context, serverID string) ([]domain.TicketCategory, error)
	Create(ctx context.Context, in domain.CategoryInput) (*domain.TicketCategory, error)
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	List(ctx context.Context) ([]domain.Ticket, error)
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	ListByCreator(ctx context.Context, creatorID string) ([]domain.Ticket, error)
	ListByServer(ctx context.Context, serverID string) ([]domain.Ticket, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]domain.Ticket, error)
	ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error)
	Create(ctx context.Context, in domain.TicketInput) (*domain.Ticket, error)
	Update(ctx context.Context, id int64, patch domain.TicketPatch) (*domain.Ticket, error)
}

// TicketMessageRepository manages ticket thread messages.
//
// Create resolves the sender's username best-effort and refreshes the parent
// ticket's updatedAt in the same operation. It returns ErrNotFound when the
// ticket does not exist.
type TicketMessageRepository interface {
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketMessage, error)
	Create(ctx context.Context, in domain.TicketMessageInput) (*domain.TicketMessage, error)
}

// Store bundles every repository behind one value.
type Store struct {
	Users        UserRepository
	DiscordUsers DiscordUserRepository
	Servers      ServerRepository
	BotSettings  BotSettingsRepository
	Categories   CategoryRepository
	Tickets      TicketRepository
	Messages     TicketMessageRepository
}
