package auth

import (
	"strconv"

	"github.com/spec-kit/helpdesk/internal/config"
)

// GuildMembership is one entry of the identity provider's guild list.
type GuildMembership struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner bool   `json:"owner"`
	// Permissions is the decimal bitset Discord sends as a string.
	Permissions string `json:"permissions"`
}

// PermissionBits parses Permissions; malformed values count as no permissions.
func (g GuildMembership) PermissionBits() int64 {
	bits, err := strconv.ParseInt(g.Permissions, 10, 64)
	if err != nil {
		return 0
	}
	return bits
}

// AdminPolicy decides whether a Discord identity is a helpdesk admin.
type AdminPolicy struct {
	// PermissionMask grants admin when all of its bits are present in any
	// considered guild. Zero disables the permission check.
	PermissionMask int64
	OwnerIsAdmin   bool
	// UserIDs are always admins.
	UserIDs []string
	// GuildID, when set, restricts the checks to that guild.
	GuildID string
}

// DefaultAdminPolicy grants admin to guild owners and holders of the
// Administrator permission (0x8).
func DefaultAdminPolicy() AdminPolicy {
	return AdminPolicy{PermissionMask: 0x8, OwnerIsAdmin: true}
}

// NewAdminPolicy builds the policy from configuration.
func NewAdminPolicy(cfg config.AdminConfig, guildID string) AdminPolicy {
	return AdminPolicy{
		PermissionMask: cfg.PermissionMask,
		OwnerIsAdmin:   cfg.OwnerIsAdmin,
		UserIDs:        cfg.UserIDs,
		GuildID:        guildID,
	}
}

// IsAdmin evaluates the policy for userID with its guild memberships.
func (p AdminPolicy) IsAdmin(userID string, guilds []GuildMembership) bool {
	for _, id := range p.UserIDs {
		if id == userID {
			return true
		}
	}
	for _, g := range guilds {
		if p.GuildID != "" && g.ID != p.GuildID {
			continue
		}
		if p.OwnerIsAdmin && g.Owner {
			return true
		}
		if p.PermissionMask != 0 && g.PermissionBits()&p.PermissionMask == p.PermissionMask {
			return true
		}
	}
	return false
}
