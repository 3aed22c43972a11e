package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const oauthStateTTL = 10 * time.Minute

// IdentityProvider runs the external OAuth flow.
type IdentityProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.DiscordProfile, error)
}

// Session is an issued login session.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates Discord and local operator logins.
type AuthService struct {
	users      repository.UserRepository
	identities *IdentityService
	tokens     *auth.TokenManager
	sessions   auth.SessionStore
	provider   IdentityProvider
	policy     auth.AdminPolicy
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates requirements for the auth service. Provider
// may be nil when Discord login is not configured.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Identities *IdentityService
	Tokens     *auth.TokenManager
	Sessions   auth.SessionStore
	Provider   IdentityProvider
	Policy     auth.AdminPolicy
	BcryptCost int
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		identities: deps.Identities,
		tokens:     deps.Tokens,
		sessions:   deps.Sessions,
		provider:   deps.Provider,
		policy:     deps.Policy,
		bcryptCost: deps.BcryptCost,
		logger:     logger,
	}
}

// DiscordLoginEnabled reports whether an identity provider is configured.
func (s *AuthService) DiscordLoginEnabled() bool {
	return s.provider != nil
}

// StartDiscordLogin returns the provider URL to redirect the browser to.
func (s *AuthService) StartDiscordLogin(ctx context.Context) (string, error) {
	if s.provider == nil {
		return "", apperrors.NewUnavailable("Discord login is not configured")
	}
	state := uuid.NewString()
	if err := s.sessions.SaveState(ctx, state, oauthStateTTL); err != nil {
		return "", apperrors.Wrap(err, "Failed to start login")
	}
	return s.provider.AuthURL(state), nil
}

// CompleteDiscordLogin validates state, exchanges the code, provisions the
// Discord user with a freshly computed admin flag and issues a session.
func (s *AuthService) CompleteDiscordLogin(ctx context.Context, state, code string) (*Session, error) {
	if s.provider == nil {
		return nil, apperrors.NewUnavailable("Discord login is not configured")
	}
	if state == "" || code == "" {
		return nil, apperrors.NewValidationError("Missing state or code", nil)
	}
	ok, err := s.sessions.ConsumeState(ctx, state)
	if err != nil {
		return nil, apperrors.Wrap(err, "Failed to complete login")
	}
	if !ok {
		return nil, apperrors.NewUnauthorized("Invalid or expired login state")
	}

	profile, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("discord login failed", zap.Error(err))
		return nil, apperrors.NewUpstreamError("Discord login failed", err)
	}

	isAdmin := s.policy.IsAdmin(profile.ID, profile.Guilds)
	user, err := s.identities.EnsureDiscordUser(ctx, domain.DiscordUser{
		ID:            profile.ID,
		Username:      profile.Username,
		Discriminator: profile.Discriminator,
		Avatar:        profile.Avatar,
		IsAdmin:       &isAdmin,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "Failed to complete login")
	}
	s.logger.Info("discord login", zap.String("user_id", user.ID), zap.Bool("is_admin", isAdmin))

	return s.issue(user.ID, domain.SubjectTypeDiscord, user.Username)
}

// LocalLogin authenticates an operator account.
func (s *AuthService) LocalLogin(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("Invalid username or password")
		}
		return nil, apperrors.Wrap(err, "Failed to log in")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("Invalid username or password")
	}
	return s.issue(strconv.FormatInt(user.ID, 10), domain.SubjectTypeLocal, user.Username)
}

// CreateLocalUser adds an operator account with a bcrypt hashed password.
func (s *AuthService) CreateLocalUser(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	fields := map[string]any{}
	if username == "" {
		fields["username"] = "required"
	}
	if len(password) < 8 {
		fields["password"] = "must be at least 8 characters"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("Invalid user data", fields)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Create(ctx, domain.UserInput{Username: username, PasswordHash: hash})
	return user, mapRepoErr(err, "User")
}

// EnsureBootstrapAdmin creates the configured operator if it does not exist.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if _, err := s.CreateLocalUser(ctx, username, password); err != nil {
		return err
	}
	s.logger.Info("bootstrap operator created", zap.String("username", username))
	return nil
}

// Logout revokes the principal's session until it would have expired.
func (s *AuthService) Logout(ctx context.Context, principal *auth.Principal) error {
	if principal == nil || principal.SessionID == "" {
		return nil
	}
	until := principal.ExpiresAt
	if until.IsZero() {
		until = time.Now().Add(s.tokens.TTL())
	}
	if err := s.sessions.Revoke(ctx, principal.SessionID, until); err != nil {
		return apperrors.Wrap(err, "Failed to log out")
	}
	return nil
}

func (s *AuthService) issue(subjectID string, subject domain.SubjectType, username string) (*Session, error) {
	token, claims, err := s.tokens.GenerateToken(subjectID, subject, username)
	if err != nil {
		return nil, apperrors.Wrap(err, "Failed to issue session")
	}
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}
