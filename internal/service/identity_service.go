package service

import (
	"context"
	"errors"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// IdentityService provisions Discord identities on first contact.
type IdentityService struct {
	discordUsers repository.DiscordUserRepository
}

func NewIdentityService(discordUsers repository.DiscordUserRepository) *IdentityService {
	return &IdentityService{discordUsers: discordUsers}
}

// EnsureDiscordUser creates the user if unknown and otherwise refreshes the
// profile fields. IsAdmin is left untouched unless profile carries a value.
func (s *IdentityService) EnsureDiscordUser(ctx context.Context, profile domain.DiscordUser) (*domain.DiscordUser, error) {
	existing, err := s.discordUsers.GetByID(ctx, profile.ID)
	if errors.Is(err, repository.ErrNotFound) {
		created, err := s.discordUsers.Create(ctx, profile)
		if errors.Is(err, repository.ErrConflict) {
			// Lost a race with a concurrent first contact.
			return s.discordUsers.GetByID(ctx, profile.ID)
		}
		return created, err
	}
	if err != nil {
		return nil, err
	}

	patch := domain.DiscordUserPatch{}
	if profile.Username != "" && profile.Username != existing.Username {
		patch.Username = domain.Some(profile.Username)
	}
	if profile.Discriminator != "" && profile.Discriminator != existing.Discriminator {
		patch.Discriminator = domain.Some(profile.Discriminator)
	}
	if profile.Avatar != nil {
		patch.Avatar = domain.Some(profile.Avatar)
	}
	if profile.IsAdmin != nil {
		patch.IsAdmin = domain.Some(profile.IsAdmin)
	}
	if profile.ServerID != nil && existing.ServerID == nil {
		patch.ServerID = domain.Some(profile.ServerID)
	}
	if patch == (domain.DiscordUserPatch{}) {
		return existing, nil
	}
	return s.discordUsers.Update(ctx, profile.ID, patch)
}

// Get returns a Discord user by id.
func (s *IdentityService) Get(ctx context.Context, id string) (*domain.DiscordUser, error) {
	user, err := s.discordUsers.GetByID(ctx, id)
	return user, mapRepoErr(err, "User")
}
