package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// NewPostgresStore returns a Store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Users:        NewUserRepository(pool),
		DiscordUsers: NewDiscordUserRepository(pool),
		Servers:      NewServerRepository(pool),
		BotSettings:  NewBotSettingsRepository(pool),
		Categories:   NewCategoryRepository(pool),
		Tickets:      NewTicketRepository(pool),
		Messages:     NewTicketMessageRepository(pool),
	}
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// mapPgError folds driver errors into the repository sentinels.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}

// setBuilder accumulates "col=$n" assignments for partial updates.
type setBuilder struct {
	sets []string
	args []any
}

func (b *setBuilder) add(column string, value any) {
	b.args = append(b.args, value)
	b.sets = append(b.sets, fmt.Sprintf("%s=$%d", column, len(b.args)))
}

func (b *setBuilder) raw(expr string) {
	b.sets = append(b.sets, expr)
}

func (b *setBuilder) empty() bool {
	return len(b.sets) == 0
}

// build renders the UPDATE statement; the key is bound as the last argument.
func (b *setBuilder) build(table, keyColumn string, key any, returning string) (string, []any) {
	args := append(b.args, key)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s=$%d RETURNING %s",
		table, strings.Join(b.sets, ", "), keyColumn, len(args), returning)
	return query, args
}

func setOptional[T any](b *setBuilder, column string, o domain.Optional[T]) {
	if o.Set {
		b.add(column, o.Value)
	}
}

// collect drains rows with scan, always returning a non-nil slice.
func collect[T any](rows pgx.Rows, err error, scan func(pgx.Row) (*T, error)) ([]T, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	return result, rows.Err()
}
