package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const serverColumns = `id, name, icon, owner_id, admin_role_id, support_role_id, is_active`

type serverRepository struct {
	pool *pgxpool.Pool
}

// NewServerRepository returns a Postgres-backed implementation.
func NewServerRepository(pool *pgxpool.Pool) ServerRepository {
	return &serverRepository{pool: pool}
}

func (r *serverRepository) Create(ctx context.Context, in domain.ServerInput) (*domain.Server, error) {
	active := in.IsActive == nil || *in.IsActive
	const query = `
        INSERT INTO servers (id, name, icon, owner_id, admin_role_id, support_role_id, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING ` + serverColumns
	server, err := scanServer(r.pool.QueryRow(ctx, query,
		in.ID, in.Name, in.Icon, in.OwnerID, in.AdminRoleID, in.SupportRoleID, active))
	return server, mapPgError(err)
}

func (r *serverRepository) Update(ctx context.Context, id string, patch domain.ServerPatch) (*domain.Server, error) {
	var b setBuilder
	setOptional(&b, "name", patch.Name)
	setOptional(&b, "icon", patch.Icon)
	setOptional(&b, "owner_id", patch.OwnerID)
	setOptional(&b, "admin_role_id", patch.AdminRoleID)
	setOptional(&b, "support_role_id", patch.SupportRoleID)
	setOptional(&b, "is_active", patch.IsActive)
	if b.empty() {
		return r.GetByID(ctx, id)
	}
	query, args := b.build("servers", "id", id, serverColumns)
	server, err := scanServer(r.pool.QueryRow(ctx, query, args...))
	return server, mapPgError(err)
}

func (r *serverRepository) GetByID(ctx context.Context, id string) (*domain.Server, error) {
	const query = `SELECT ` + serverColumns + ` FROM servers WHERE id=$1`
	server, err := scanServer(r.pool.QueryRow(ctx, query, id))
	return server, mapPgError(err)
}

func (r *serverRepository) List(ctx context.Context) ([]domain.Server, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+serverColumns+` FROM servers ORDER BY id ASC`)
	return collect(rows, err, scanServer)
}

func scanServer(row pgx.Row) (*domain.Server, error) {
	var s domain.Server
	if err := row.Scan(&s.ID, &s.Name, &s.Icon, &s.OwnerID, &s.AdminRoleID, &s.SupportRoleID, &s.IsActive); err != nil {
		return nil, err
	}
	return &s, nil
}
