package domain

import "time"

type MessageType string

const (
	MessageText        MessageType = "text"
	MessageButton      MessageType = "button"
	MessageInteractive MessageType = "interactive"
)

// Message is an inbound WhatsApp message. Records are append-only.
type Message struct {
	ID        string      `json:"id"`
	From      string      `json:"from"`
	Body      string      `json:"body"`
	Type      MessageType `json:"type"`
	SourceID  string      `json:"sourceId"`
	CreatedAt time.Time   `json:"createdAt"`
}
