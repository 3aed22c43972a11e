package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const (
	principalKey = "auth_principal"

	// SessionCookie holds the session token for browser clients.
	SessionCookie = "helpdesk_session"

	localIDPrefix = "local:"
)

// ErrInvalidSession is returned for malformed, expired or revoked tokens.
var ErrInvalidSession = errors.New("invalid session")

// Principal represents the authenticated caller.
type Principal struct {
	SubjectType domain.SubjectType
	// ID is the Discord user id, or "local:<n>" for operator accounts.
	ID          string
	Username    string
	IsAdmin     bool
	DiscordUser *domain.DiscordUser
	User        *domain.User
	SessionID   string
	ExpiresAt   time.Time
}

// LocalPrincipalID renders the principal id of a local operator.
func LocalPrincipalID(userID int64) string {
	return localIDPrefix + strconv.FormatInt(userID, 10)
}

// AuthMiddleware validates session tokens and loads principals.
type AuthMiddleware struct {
	tokens       *TokenManager
	users        repository.UserRepository
	discordUsers repository.DiscordUserRepository
	sessions     SessionStore
	logger       *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, discordUsers repository.DiscordUserRepository, sessions SessionStore, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, users: users, discordUsers: discordUsers, sessions: sessions, logger: logger}
}

// Load attaches a principal when the request carries a valid session and
// continues anonymously otherwise.
func (m *AuthMiddleware) Load(c *fiber.Ctx) error {
	token := tokenFromRequest(c)
	if token == "" {
		return c.Next()
	}
	principal, err := m.Authenticate(c.UserContext(), token)
	switch {
	case errors.Is(err, ErrInvalidSession):
		m.logger.Debug("ignoring invalid session", zap.Error(err))
	case err != nil:
		return apperrors.Wrap(err, "Failed to load session")
	default:
		c.Locals(principalKey, principal)
	}
	return c.Next()
}

// Authenticate resolves a token into a fresh principal. Admin status is
// always re-read from storage.
func (m *AuthMiddleware) Authenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return nil, errors.Join(ErrInvalidSession, err)
	}

	if m.sessions != nil {
		revoked, err := m.sessions.IsRevoked(ctx, claims.ID)
		if err != nil {
			m.logger.Warn("session revocation check failed", zap.Error(err))
		} else if revoked {
			return nil, ErrInvalidSession
		}
	}

	principal := &Principal{
		SubjectType: claims.Subject,
		SessionID:   claims.ID,
	}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}

	switch claims.Subject {
	case domain.SubjectTypeDiscord:
		user, err := m.discordUsers.GetByID(ctx, claims.SubjectID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrInvalidSession
			}
			return nil, err
		}
		principal.DiscordUser = user
		principal.ID = user.ID
		principal.Username = user.Username
		principal.IsAdmin = user.Admin()
	case domain.SubjectTypeLocal:
		id, err := strconv.ParseInt(claims.SubjectID, 10, 64)
		if err != nil {
			return nil, ErrInvalidSession
		}
		user, err := m.users.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrInvalidSession
			}
			return nil, err
		}
		principal.User = user
		principal.ID = LocalPrincipalID(user.ID)
		principal.Username = user.Username
		principal.IsAdmin = true
	default:
		return nil, ErrInvalidSession
	}
	return principal, nil
}

func tokenFromRequest(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Cookies(SessionCookie)
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// WithPrincipal stores p on the request.
func WithPrincipal(c *fiber.Ctx, p *Principal) {
	c.Locals(principalKey, p)
}
