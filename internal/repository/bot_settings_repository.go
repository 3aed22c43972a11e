package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const botSettingsColumns = `id, server_id, log_channel_id, ticket_channel_id, dashboard_url, created_at, updated_at`

type botSettingsRepository struct {
	pool *pgxpool.Pool
}

// NewBotSettingsRepository returns a Postgres-backed implementation.
func NewBotSettingsRepository(pool *pgxpool.Pool) BotSettingsRepository {
	return &botSettingsRepository{pool: pool}
}

func (r *botSettingsRepository) Create(ctx context.Context, in domain.BotSettingsInput) (*domain.BotSettings, error) {
	const query = `
        INSERT INTO bot_settings (server_id, log_channel_id, ticket_channel_id, dashboard_url)
        VALUES ($1,$2,$3,$4)
        RETURNING ` + botSettingsColumns
	settings, err := scanBotSettings(r.pool.QueryRow(ctx, query,
		in.ServerID, in.LogChannelID, in.TicketChannelID, in.DashboardURL))
	return settings, mapPgError(err)
}

func (r *botSettingsRepository) Update(ctx context.Context, serverID string, patch domain.BotSettingsPatch) (*domain.BotSettings, error) {
	var b setBuilder
	setOptional(&b, "log_channel_id", patch.LogChannelID)
	setOptional(&b, "ticket_channel_id", patch.TicketChannelID)
	setOptional(&b, "dashboard_url", patch.DashboardURL)
	b.raw("updated_at=NOW()")

	query, args := b.build("bot_settings", "server_id", serverID, botSettingsColumns)
	settings, err := scanBotSettings(r.pool.QueryRow(ctx, query, args...))
	return settings, mapPgError(err)
}

func (r *botSettingsRepository) GetByServerID(ctx context.Context, serverID string) (*domain.BotSettings, error) {
	const query = `SELECT ` + botSettingsColumns + ` FROM bot_settings WHERE server_id=$1`
	settings, err := scanBotSettings(r.pool.QueryRow(ctx, query, serverID))
	return settings, mapPgError(err)
}

func scanBotSettings(row pgx.Row) (*domain.BotSettings, error) {
	var s domain.BotSettings
	if err := row.Scan(&s.ID, &s.ServerID, &s.LogChannelID, &s.TicketChannelID, &s.DashboardURL, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
