package dto

import (
	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload. Status is accepted and ignored; new tickets
// are always open.
type CreateTicketRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"required,max=4000"`
	CategoryID  *int64  `json:"categoryId" validate:"required,gt=0"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	CreatorID   string  `json:"creatorId" validate:"omitempty,max=64"`
	Status      string  `json:"status"`
	DiscordID   *string `json:"discordId"`
	AssigneeID  *string `json:"assigneeId"`
	ServerID    *string `json:"serverId"`
}

// UpdateTicketRequest is a partial ticket update; only supplied fields change.
type UpdateTicketRequest = domain.TicketPatch

// CreateMessageRequest payload. SenderID is honored for admins only.
type CreateMessageRequest struct {
	Content  string `json:"content" validate:"required,max=4000"`
	SenderID string `json:"senderId" validate:"omitempty,max=64"`
}

// TicketListQuery captures optional list filters.
type TicketListQuery struct {
	Status     string `query:"status" json:"status" validate:"omitempty,oneof=open closed pending"`
	CategoryID int64  `query:"categoryId" json:"categoryId" validate:"omitempty,gt=0"`
}

// CreateCategoryRequest payload.
type CreateCategoryRequest struct {
	Name     string  `json:"name" validate:"required,max=100"`
	Color    string  `json:"color" validate:"omitempty,hexcolor"`
	ServerID *string `json:"serverId"`
}

// ToInput converts the request into the category insert payload.
func (r CreateCategoryRequest) ToInput() domain.CategoryInput {
	return domain.CategoryInput{Name: r.Name, Color: r.Color, ServerID: r.ServerID}
}
