package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
)

func TestEnsureBootstrapAdmin_ShortPasswordOnlyWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)
	store := repository.NewMemoryStore()
	authService := service.NewAuthService(service.AuthDependencies{UserRepo: store.Users, BcryptCost: 4, Logger: logger})
	ctx := context.Background()

	ensureBootstrapAdmin(ctx, authService, config.AuthConfig{AdminUsername: "ops", AdminPassword: "short"}, logger)

	warnings := logs.FilterMessage("bootstrap operator not created").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "ops", warnings[0].ContextMap()["username"])
	_, err := store.Users.GetByUsername(ctx, "ops")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	ensureBootstrapAdmin(ctx, authService, config.AuthConfig{AdminUsername: "ops", AdminPassword: "correct-horse"}, logger)
	user, err := store.Users.GetByUsername(ctx, "ops")
	require.NoError(t, err)
	assert.Equal(t, "ops", user.Username)
	assert.Equal(t, 1, logs.Len())
}
