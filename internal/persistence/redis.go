package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

const (
	oauthStatePrefix = "helpdesk:oauth_state:"
	revokedPrefix    = "helpdesk:revoked_session:"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// SaveState remembers an OAuth state value until ttl elapses.
func (r *Redis) SaveState(ctx context.Context, state string, ttl time.Duration) error {
	return r.Client.Set(ctx, oauthStatePrefix+state, "1", ttl).Err()
}

// ConsumeState deletes the state and reports whether it was present.
func (r *Redis) ConsumeState(ctx context.Context, state string) (bool, error) {
	err := r.Client.GetDel(ctx, oauthStatePrefix+state).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Revoke blacklists a session id until its token would have expired anyway.
func (r *Redis) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.Client.Set(ctx, revokedPrefix+sessionID, "1", ttl).Err()
}

// IsRevoked reports whether the session id was revoked.
func (r *Redis) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.Client.Exists(ctx, revokedPrefix+sessionID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
