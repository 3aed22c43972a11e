package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a Postgres-backed implementation.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) Create(ctx context.Context, in domain.CategoryInput) (*domain.TicketCategory, error) {
	color := in.Color
	if color == "" {
		color = domain.DefaultCategoryColor
	}
	const query = `
        INSERT INTO ticket_categories (name, color, server_id)
        VALUES ($1,$2,$3)
        RETURNING id, name, color, server_id`
	category, err := scanCategory(r.pool.QueryRow(ctx, query, in.Name, color, in.ServerID))
	return category, mapPgError(err)
}

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*domain.TicketCategory, error) {
	const query = `SELECT id, name, color, server_id FROM ticket_categories WHERE id=$1`
	category, err := scanCategory(r.pool.QueryRow(ctx, query, id))
	return category, mapPgError(err)
}

func (r *categoryRepository) List(ctx context.Context) ([]domain.TicketCategory, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, color, server_id FROM ticket_categories ORDER BY id ASC`)
	return collect(rows, err, scanCategory)
}

func (r *categoryRepository) ListByServer(ctx context.Context, serverID string) ([]domain.TicketCategory, error) {
	const query = `SELECT id, name, color, server_id FROM ticket_categories WHERE server_id=$1 ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query, serverID)
	return collect(rows, err, scanCategory)
}

func scanCategory(row pgx.Row) (*domain.TicketCategory, error) {
	var c domain.TicketCategory
	if err := row.Scan(&c.ID, &c.Name, &c.Color, &c.ServerID); err != nil {
		return nil, err
	}
	return &c, nil
}
