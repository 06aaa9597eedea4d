// internal/models/message.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Message kinds stored in the messages.kind column.
const (
	MessageKindText  = "text"
	MessageKindImage = "image"
	MessageKindFile  = "file"
)

// Message is a single direct message between two users. Body carries the
// decrypted plaintext on the way out to clients; the ciphertext and IV columns
// never leave the data layer.
type Message struct {
	ID       uuid.UUID `json:"id"`
	SenderID uuid.UUID `json:"sender_id"`
	Receiver uuid.UUID `json:"receiver_id"`

	Body       string `json:"body"`
	Ciphertext string `json:"-"`
	IV         string `json:"-"`

	CreatedAt time.Time  `json:"timestamp"`
	IsRead    bool       `json:"is_read"`
	IsDeleted bool       `json:"-"`
	Kind      string     `json:"kind"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
}

// Pagination describes one page of a conversation fetch.
type Pagination struct {
	Current int  `json:"current"`
	Total   int  `json:"total"`
	HasPrev bool `json:"has_prev"`
}
