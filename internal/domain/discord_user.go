package domain

// DiscordUser is a chat-platform identity known to the helpdesk.
type DiscordUser struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Discriminator string  `json:"discriminator"`
	Avatar        *string `json:"avatar"`
	// IsAdmin stays nil until the admin policy has been evaluated.
	IsAdmin  *bool   `json:"isAdmin"`
	ServerID *string `json:"serverId"`
}

// Admin reports the effective admin flag; nil counts as false.
func (u DiscordUser) Admin() bool {
	return u.IsAdmin != nil && *u.IsAdmin
}

// DiscordUserPatch is a partial update for a DiscordUser.
type DiscordUserPatch struct {
	Username      Optional[string]  `json:"username"`
	Discriminator Optional[string]  `json:"discriminator"`
	Avatar        Optional[*string] `json:"avatar"`
	IsAdmin       Optional[*bool]   `json:"isAdmin"`
	ServerID      Optional[*string] `json:"serverId"`
}

// Apply merges the set fields of p into u.
func (p DiscordUserPatch) Apply(u *DiscordUser) {
	p.Username.ApplyTo(&u.Username)
	p.Discriminator.ApplyTo(&u.Discriminator)
	p.Avatar.ApplyTo(&u.Avatar)
	p.IsAdmin.ApplyTo(&u.IsAdmin)
	p.ServerID.ApplyTo(&u.ServerID)
}
