package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// LocalLoginRequest payload for operator login.
type LocalLoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

// AuthResponse is returned by token-issuing endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MeResponse describes the current identity.
type MeResponse struct {
	ID            string             `json:"id"`
	SubjectType   domain.SubjectType `json:"subjectType"`
	Username      string             `json:"username"`
	Discriminator string             `json:"discriminator,omitempty"`
	Avatar        *string            `json:"avatar,omitempty"`
	IsAdmin       bool               `json:"isAdmin"`
	ServerID      *string            `json:"serverId,omitempty"`
}

// NewMeResponse builds the response from an authenticated principal.
func NewMeResponse(p *auth.Principal) MeResponse {
	resp := MeResponse{
		ID:          p.ID,
		SubjectType: p.SubjectType,
		Username:    p.Username,
		IsAdmin:     p.IsAdmin,
	}
	if u := p.DiscordUser; u != nil {
		resp.Discriminator = u.Discriminator
		resp.Avatar = u.Avatar
		resp.ServerID = u.ServerID
	}
	return resp
}
