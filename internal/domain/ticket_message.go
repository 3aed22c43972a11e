package domain

import "time"

// TicketMessage captures communications in a ticket thread.
type TicketMessage struct {
	ID       int64  `json:"id"`
	TicketID int64  `json:"ticketId"`
	SenderID string `json:"senderId"`
	Content  string `json:"content"`
	// SenderUsername is a snapshot taken when the message was stored.
	SenderUsername *string   `json:"senderUsername"`
	CreatedAt      time.Time `json:"createdAt"`
}

// TicketMessageInput is the insert payload for a message.
type TicketMessageInput struct {
	TicketID int64
	SenderID string
	Content  string
}
