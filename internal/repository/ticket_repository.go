package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const ticketColumns = `id, discord_id, title, description, status, priority, category_id,
               creator_id, assignee_id, server_id, created_at, updated_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, in domain.TicketInput) (*domain.Ticket, error) {
	status := in.Status
	if status == "" {
		status = domain.TicketStatusOpen
	}
	priority := in.Priority
	if priority == "" {
		priority = domain.TicketPriorityNormal
	}
	const query = `
        INSERT INTO tickets (discord_id, title, description, status, priority, category_id, creator_id, assignee_id, server_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING ` + ticketColumns
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query,
		in.DiscordID,
		in.Title,
		in.Description,
		status,
		priority,
		in.CategoryID,
		in.CreatorID,
		in.AssigneeID,
		in.ServerID,
	))
	return ticket, mapPgError(err)
}

func (r *ticketRepository) Update(ctx context.Context, id int64, patch domain.TicketPatch) (*domain.Ticket, error) {
	var b setBuilder
	setOptional(&b, "discord_id", patch.DiscordID)
	setOptional(&b, "title", patch.Title)
	setOptional(&b, "description", patch.Description)
	setOptional(&b, "status", patch.Status)
	setOptional(&b, "priority", patch.Priority)
	setOptional(&b, "category_id", patch.CategoryID)
	setOptional(&b, "creator_id", patch.CreatorID)
	setOptional(&b, "assignee_id", patch.AssigneeID)
	setOptional(&b, "server_id", patch.ServerID)
	b.raw("updated_at=GREATEST(NOW(), updated_at)")

	query, args := b.build("tickets", "id", id, ticketColumns)
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, args...))
	return ticket, mapPgError(err)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	return ticket, mapPgError(err)
}

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	return r.list(ctx, "")
}

func (r *ticketRepository) ListByCreator(ctx context.Context, creatorID string) ([]domain.Ticket, error) {
	return r.list(ctx, "WHERE creator_id=$1", creatorID)
}

func (r *ticketRepository) ListByServer(ctx context.Context, serverID string) ([]domain.Ticket, error) {
	return r.list(ctx, "WHERE server_id=$1", serverID)
}

func (r *ticketRepository) ListByCategory(ctx context.Context, categoryID int64) ([]domain.Ticket, error) {
	return r.list(ctx, "WHERE category_id=$1", categoryID)
}

func (r *ticketRepository) ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	return r.list(ctx, "WHERE status=$1", status)
}

func (r *ticketRepository) list(ctx context.Context, where string, args ...any) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets ` + where + ` ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query, args...)
	return collect(rows, err, scanTicket)
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.DiscordID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CategoryID,
		&ticket.CreatorID,
		&ticket.AssigneeID,
		&ticket.ServerID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
