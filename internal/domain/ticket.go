package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
	// TicketStatusPending is only counted by stats; it cannot be set through updates.
	TicketStatusPending TicketStatus = "pending"
)

// Settable reports whether callers may move a ticket into this status.
func (s TicketStatus) Settable() bool {
	return s == TicketStatusOpen || s == TicketStatusClosed
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityNormal TicketPriority = "normal"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          int64          `json:"id"`
	DiscordID   *string        `json:"discordId"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      TicketStatus   `json:"status"`
	Priority    TicketPriority `json:"priority"`
	CategoryID  *int64         `json:"categoryId"`
	CreatorID   string         `json:"creatorId"`
	AssigneeID  *string        `json:"assigneeId"`
	ServerID    *string        `json:"serverId"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// TicketInput is the insert payload. Empty Status and Priority take the
// store defaults (open, normal).
type TicketInput struct {
	DiscordID   *string
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	CategoryID  *int64
	CreatorID   string
	AssigneeID  *string
	ServerID    *string
}

// TicketPatch is a shallow partial update; unset fields are preserved.
type TicketPatch struct {
	DiscordID   Optional[*string]        `json:"discordId"`
	Title       Optional[string]         `json:"title"`
	Description Optional[string]         `json:"description"`
	Status      Optional[TicketStatus]   `json:"status"`
	Priority    Optional[TicketPriority] `json:"priority"`
	CategoryID  Optional[*int64]         `json:"categoryId"`
	CreatorID   Optional[string]         `json:"creatorId"`
	AssigneeID  Optional[*string]        `json:"assigneeId"`
	ServerID    Optional[*string]        `json:"serverId"`
}

// Apply merges the set fields of p into t.
func (p TicketPatch) Apply(t *Ticket) {
	p.DiscordID.ApplyTo(&t.DiscordID)
	p.Title.ApplyTo(&t.Title)
	p.Description.ApplyTo(&t.Description)
	p.Status.ApplyTo(&t.Status)
	p.Priority.ApplyTo(&t.Priority)
	p.CategoryID.ApplyTo(&t.CategoryID)
	p.CreatorID.ApplyTo(&t.CreatorID)
	p.AssigneeID.ApplyTo(&t.AssigneeID)
	p.ServerID.ApplyTo(&t.ServerID)
}

// OnlyStatus reports whether the patch touches nothing but the status.
func (p TicketPatch) OnlyStatus() bool {
	return !p.DiscordID.Set && !p.Title.Set && !p.Description.Set && !p.Priority.Set &&
		!p.CategoryID.Set && !p.CreatorID.Set && !p.AssigneeID.Set && !p.ServerID.Set
}
