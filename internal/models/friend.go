package models

import (
	"time"

	"github.com/google/uuid"
)

// Friend request statuses stored in friend_requests.status.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// FriendRequest is one ledger entry: SenderID asked ReceiverID to be friends.
type FriendRequest struct {
	ID         uuid.UUID `json:"id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`

	// SenderName is joined in for list views.
	SenderName string `json:"sender_name,omitempty"`
}

// Friend is the per-friend view returned by friend listing: the other user
// plus the fields the sidebar needs.
type Friend struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	IsGuest  bool      `json:"is_guest"`
	IsOnline bool      `json:"is_online"`
	LastSeen time.Time `json:"last_seen"`
	Bio      string    `json:"bio,omitempty"`
}
