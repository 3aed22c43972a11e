package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

type fakeProvider struct {
	profile *auth.DiscordProfile
	err     error
	codes   []string
}

func (p *fakeProvider) AuthURL(state string) string {
	return "https://discord.example/authorize?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (*auth.DiscordProfile, error) {
	p.codes = append(p.codes, code)
	return p.profile, p.err
}

type authFixture struct {
	store    *repository.Store
	tokens   *auth.TokenManager
	sessions *auth.MemorySessionStore
	provider *fakeProvider
	svc      *AuthService
}

func newAuthFixture(provider *fakeProvider) *authFixture {
	store := repository.NewMemoryStore()
	f := &authFixture{
		store:    store,
		tokens:   auth.NewTokenManager("test-secret", time.Hour),
		sessions: auth.NewMemorySessionStore(),
		provider: provider,
	}
	deps := AuthDependencies{
		UserRepo:   store.Users,
		Identities: NewIdentityService(store.DiscordUsers),
		Tokens:     f.tokens,
		Sessions:   f.sessions,
		Policy:     auth.DefaultAdminPolicy(),
		BcryptCost: 4,
	}
	if provider != nil {
		deps.Provider = provider
	}
	f.svc = NewAuthService(deps)
	return f
}

func stateFrom(t *testing.T, redirect string) string {
	t.Helper()
	u, err := url.Parse(redirect)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestDiscordLogin_FullFlow(t *testing.T) {
	provider := &fakeProvider{profile: &auth.DiscordProfile{
		ID:       "u1",
		Username: "alice",
		Guilds:   []auth.GuildMembership{{ID: "g1", Name: "Guild", Owner: true, Permissions: "0"}},
	}}
	f := newAuthFixture(provider)
	ctx := context.Background()

	redirect, err := f.svc.StartDiscordLogin(ctx)
	require.NoError(t, err)
	state := stateFrom(t, redirect)

	session, err := f.svc.CompleteDiscordLogin(ctx, state, "code-1")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)

	user, err := f.store.DiscordUsers.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, user.Admin())

	claims, err := f.tokens.ParseToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.SubjectID)
	assert.Equal(t, domain.SubjectTypeDiscord, claims.Subject)

	// State is single use.
	_, err = f.svc.CompleteDiscordLogin(ctx, state, "code-2")
	assert.Equal(t, 401, statusOf(t, err))
	assert.Equal(t, []string{"code-1"}, provider.codes)
}

func TestDiscordLogin_Failures(t *testing.T) {
	ctx := context.Background()

	disabled := newAuthFixture(nil)
	_, err := disabled.svc.StartDiscordLogin(ctx)
	assert.Equal(t, 503, statusOf(t, err))
	assert.False(t, disabled.svc.DiscordLoginEnabled())

	f := newAuthFixture(&fakeProvider{err: errors.New("invalid_grant")})
	_, err = f.svc.CompleteDiscordLogin(ctx, "", "code")
	assert.Equal(t, 400, statusOf(t, err))
	_, err = f.svc.CompleteDiscordLogin(ctx, "forged", "code")
	assert.Equal(t, 401, statusOf(t, err))

	redirect, err := f.svc.StartDiscordLogin(ctx)
	require.NoError(t, err)
	_, err = f.svc.CompleteDiscordLogin(ctx, stateFrom(t, redirect), "code")
	de := apperrors.ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, apperrors.CodeUpstream, de.Code)
	assert.NotContains(t, de.Message, "invalid_grant")
}

func TestDiscordLogin_RecomputesAdminFlag(t *testing.T) {
	provider := &fakeProvider{profile: &auth.DiscordProfile{ID: "u1", Username: "alice"}}
	f := newAuthFixture(provider)
	ctx := context.Background()
	admin := true
	_, err := f.store.DiscordUsers.Create(ctx, domain.DiscordUser{ID: "u1", Username: "alice", IsAdmin: &admin})
	require.NoError(t, err)

	redirect, err := f.svc.StartDiscordLogin(ctx)
	require.NoError(t, err)
	_, err = f.svc.CompleteDiscordLogin(ctx, stateFrom(t, redirect), "code")
	require.NoError(t, err)

	user, err := f.store.DiscordUsers.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, user.IsAdmin)
	assert.False(t, *user.IsAdmin)
}

func TestLocalLogin(t *testing.T) {
	f := newAuthFixture(nil)
	ctx := context.Background()
	require.NoError(t, f.svc.EnsureBootstrapAdmin(ctx, "ops", "correct-horse"))
	// Second call is a no-op.
	require.NoError(t, f.svc.EnsureBootstrapAdmin(ctx, "ops", "other-password"))

	session, err := f.svc.LocalLogin(ctx, "ops", "correct-horse")
	require.NoError(t, err)
	claims, err := f.tokens.ParseToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.SubjectTypeLocal, claims.Subject)

	_, err = f.svc.LocalLogin(ctx, "ops", "other-password")
	assert.Equal(t, 401, statusOf(t, err))
	_, err = f.svc.LocalLogin(ctx, "nobody", "correct-horse")
	assert.Equal(t, 401, statusOf(t, err))

	_, err = f.svc.CreateLocalUser(ctx, "ops", "another-password")
	assert.Equal(t, 400, statusOf(t, err))
	_, err = f.svc.CreateLocalUser(ctx, "short", "1234")
	assert.Equal(t, 400, statusOf(t, err))
}

func TestLogout_RevokesSession(t *testing.T) {
	f := newAuthFixture(nil)
	ctx := context.Background()
	_, err := f.svc.CreateLocalUser(ctx, "ops", "correct-horse")
	require.NoError(t, err)
	session, err := f.svc.LocalLogin(ctx, "ops", "correct-horse")
	require.NoError(t, err)

	middleware := auth.NewAuthMiddleware(f.tokens, f.store.Users, f.store.DiscordUsers, f.sessions, nil)
	principal, err := middleware.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.True(t, principal.IsAdmin)

	require.NoError(t, f.svc.Logout(ctx, principal))
	_, err = middleware.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, auth.ErrInvalidSession)

	assert.NoError(t, f.svc.Logout(ctx, nil))
}
