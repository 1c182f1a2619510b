package models

import "time"

// Message is a persisted chat message with its denormalized sender
// projection. Rows are append-only; id order is commit order.
type Message struct {
	ID        int64      `json:"id"`
	Text      string     `json:"text"`
	SenderID  string     `json:"senderId"`
	CreatedAt time.Time  `json:"createdAt"`
	Sender    PublicUser `json:"sender"`
}
