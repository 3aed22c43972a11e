package domain

// Server is a Discord guild the bot serves.
type Server struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Icon          *string `json:"icon"`
	OwnerID       *string `json:"ownerId"`
	AdminRoleID   *string `json:"adminRoleId"`
	SupportRoleID *string `json:"supportRoleId"`
	IsActive      bool    `json:"isActive"`
}

// ServerInput is the insert payload; a nil IsActive defaults to true.
type ServerInput struct {
	ID            string
	Name          string
	Icon          *string
	OwnerID       *string
	AdminRoleID   *string
	SupportRoleID *string
	IsActive      *bool
}

// ServerPatch is a partial update for a Server.
type ServerPatch struct {
	Name          Optional[string]  `json:"name"`
	Icon          Optional[*string] `json:"icon"`
	OwnerID       Optional[*string] `json:"ownerId"`
	AdminRoleID   Optional[*string] `json:"adminRoleId"`
	SupportRoleID Optional[*string] `json:"supportRoleId"`
	IsActive      Optional[bool]    `json:"isActive"`
}

// Apply merges the set fields of p into s.
func (p ServerPatch) Apply(s *Server) {
	p.Name.ApplyTo(&s.Name)
	p.Icon.ApplyTo(&s.Icon)
	p.OwnerID.ApplyTo(&s.OwnerID)
	p.AdminRoleID.ApplyTo(&s.AdminRoleID)
	p.SupportRoleID.ApplyTo(&s.SupportRoleID)
	p.IsActive.ApplyTo(&s.IsActive)
}
