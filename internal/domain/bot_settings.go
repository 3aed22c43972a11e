package domain

import "time"

// BotSettings stores per-server bot configuration.
type BotSettings struct {
	ID              int64     `json:"id"`
	ServerID        string    `json:"serverId"`
	LogChannelID    *string   `json:"logChannelId"`
	TicketChannelID *string   `json:"ticketChannelId"`
	DashboardURL    *string   `json:"dashboardUrl"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// BotSettingsInput is the insert payload.
type BotSettingsInput struct {
	ServerID        string
	LogChannelID    *string
	TicketChannelID *string
	DashboardURL    *string
}

// BotSettingsPatch is a partial update keyed by server id.
type BotSettingsPatch struct {
	LogChannelID    Optional[*string] `json:"logChannelId"`
	TicketChannelID Optional[*string] `json:"ticketChannelId"`
	DashboardURL    Optional[*string] `json:"dashboardUrl"`
}

// Apply merges the set fields of p into s.
func (p BotSettingsPatch) Apply(s *BotSettings) {
	p.LogChannelID.ApplyTo(&s.LogChannelID)
	p.TicketChannelID.ApplyTo(&s.TicketChannelID)
	p.DashboardURL.ApplyTo(&s.DashboardURL)
}
