package service

import (
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
)

// Actor identifies who triggered a service operation.
type Actor struct {
	Type     domain.SubjectType
	ID       string
	Username string
	IsAdmin  bool
}

// ActorFromPrincipal converts an authenticated HTTP principal.
func ActorFromPrincipal(p *auth.Principal) Actor {
	if p == nil {
		return Actor{}
	}
	return Actor{Type: p.SubjectType, ID: p.ID, Username: p.Username, IsAdmin: p.IsAdmin}
}

// DiscordActor describes a chat-platform user invoking a command.
func DiscordActor(u *domain.DiscordUser) Actor {
	return Actor{Type: domain.SubjectTypeDiscord, ID: u.ID, Username: u.Username, IsAdmin: u.Admin()}
}

// DisplayName prefers the username and falls back to the id.
func (a Actor) DisplayName() string {
	if a.Username != "" {
		return a.Username
	}
	return a.ID
}

func (a Actor) eventActor() events.Actor {
	return events.Actor{Type: a.Type, ID: a.ID, Username: a.Username}
}
