package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const discordUserColumns = `id, username, discriminator, avatar, is_admin, server_id`

type discordUserRepository struct {
	pool *pgxpool.Pool
}

// NewDiscordUserRepository returns a Postgres-backed implementation.
func NewDiscordUserRepository(pool *pgxpool.Pool) DiscordUserRepository {
	return &discordUserRepository{pool: pool}
}

func (r *discordUserRepository) Create(ctx context.Context, u domain.DiscordUser) (*domain.DiscordUser, error) {
	const query = `
        INSERT INTO discord_users (id, username, discriminator, avatar, is_admin, server_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING ` + discordUserColumns
	user, err := scanDiscordUser(r.pool.QueryRow(ctx, query,
		u.ID, u.Username, u.Discriminator, u.Avatar, u.IsAdmin, u.ServerID))
	return user, mapPgError(err)
}

func (r *discordUserRepository) Update(ctx context.Context, id string, patch domain.DiscordUserPatch) (*domain.DiscordUser, error) {
	var b setBuilder
	setOptional(&b, "username", patch.Username)
	setOptional(&b, "discriminator", patch.Discriminator)
	setOptional(&b, "avatar", patch.Avatar)
	setOptional(&b, "is_admin", patch.IsAdmin)
	setOptional(&b, "server_id", patch.ServerID)
	if b.empty() {
		return r.GetByID(ctx, id)
	}
	query, args := b.build("discord_users", "id", id, discordUserColumns)
	user, err := scanDiscordUser(r.pool.QueryRow(ctx, query, args...))
	return user, mapPgError(err)
}

func (r *discordUserRepository) GetByID(ctx context.Context, id string) (*domain.DiscordUser, error) {
	const query = `SELECT ` + discordUserColumns + ` FROM discord_users WHERE id=$1`
	user, err := scanDiscordUser(r.pool.QueryRow(ctx, query, id))
	return user, mapPgError(err)
}

func (r *discordUserRepository) List(ctx context.Context) ([]domain.DiscordUser, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+discordUserColumns+` FROM discord_users ORDER BY id ASC`)
	return collect(rows, err, scanDiscordUser)
}

func scanDiscordUser(row pgx.Row) (*domain.DiscordUser, error) {
	var u domain.DiscordUser
	if err := row.Scan(&u.ID, &u.Username, &u.Discriminator, &u.Avatar, &u.IsAdmin, &u.ServerID); err != nil {
		return nil, err
	}
	return &u, nil
}
