package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const messageColumns = `id, ticket_id, sender_id, content, sender_username, created_at`

type ticketMessageRepository struct {
	pool *pgxpool.Pool
}

// NewTicketMessageRepository builds repository.
func NewTicketMessageRepository(pool *pgxpool.Pool) TicketMessageRepository {
	return &ticketMessageRepository{pool: pool}
}

// Create inserts the message and touches the parent ticket in one transaction.
func (r *ticketMessageRepository) Create(ctx context.Context, in domain.TicketMessageInput) (*domain.TicketMessage, error) {
	senderUsername := r.lookupUsername(ctx, in.SenderID)

	var msg *domain.TicketMessage
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insert = `
            INSERT INTO ticket_messages (ticket_id, sender_id, content, sender_username)
            VALUES ($1,$2,$3,$4)
            RETURNING ` + messageColumns
		var err error
		msg, err = scanMessage(tx.QueryRow(ctx, insert, in.TicketID, in.SenderID, in.Content, senderUsername))
		if err != nil {
			return err
		}
		const touch = `UPDATE tickets SET updated_at=GREATEST(NOW(), updated_at) WHERE id=$1`
		_, err = tx.Exec(ctx, touch, in.TicketID)
		return err
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return msg, nil
}

// lookupUsername is best-effort; any failure leaves the snapshot empty.
func (r *ticketMessageRepository) lookupUsername(ctx context.Context, senderID string) *string {
	var username string
	if err := r.pool.QueryRow(ctx, `SELECT username FROM discord_users WHERE id=$1`, senderID).Scan(&username); err != nil {
		return nil
	}
	return &username
}

func (r *ticketMessageRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketMessage, error) {
	const query = `
        SELECT ` + messageColumns + `
        FROM ticket_messages WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	return collect(rows, err, scanMessage)
}

func scanMessage(row pgx.Row) (*domain.TicketMessage, error) {
	var msg domain.TicketMessage
	if err := row.Scan(
		&msg.ID,
		&msg.TicketID,
		&msg.SenderID,
		&msg.Content,
		&msg.SenderUsername,
		&msg.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &msg, nil
}
