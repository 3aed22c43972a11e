package dto

import "github.com/spec-kit/helpdesk/internal/domain"

// CreateServerRequest payload.
type CreateServerRequest struct {
	ID            string  `json:"id" validate:"required,numeric,max=32"`
	Name          string  `json:"name" validate:"required,max=100"`
	Icon          *string `json:"icon"`
	OwnerID       *string `json:"ownerId"`
	AdminRoleID   *string `json:"adminRoleId"`
	SupportRoleID *string `json:"supportRoleId"`
	IsActive      *bool   `json:"isActive"`
}

// ToInput converts the request into the server insert payload.
func (r CreateServerRequest) ToInput() domain.ServerInput {
	return domain.ServerInput{
		ID:            r.ID,
		Name:          r.Name,
		Icon:          r.Icon,
		OwnerID:       r.OwnerID,
		AdminRoleID:   r.AdminRoleID,
		SupportRoleID: r.SupportRoleID,
		IsActive:      r.IsActive,
	}
}

// UpdateServerRequest is a partial server update.
type UpdateServerRequest = domain.ServerPatch

// CreateBotSettingsRequest payload.
type CreateBotSettingsRequest struct {
	ServerID        string  `json:"serverId" validate:"required"`
	LogChannelID    *string `json:"logChannelId"`
	TicketChannelID *string `json:"ticketChannelId"`
	DashboardURL    *string `json:"dashboardUrl" validate:"omitempty,url"`
}

// ToInput converts the request into the bot settings insert payload.
func (r CreateBotSettingsRequest) ToInput() domain.BotSettingsInput {
	return domain.BotSettingsInput{
		ServerID:        r.ServerID,
		LogChannelID:    r.LogChannelID,
		TicketChannelID: r.TicketChannelID,
		DashboardURL:    r.DashboardURL,
	}
}

// UpdateBotSettingsRequest is a partial bot settings update.
type UpdateBotSettingsRequest = domain.BotSettingsPatch
