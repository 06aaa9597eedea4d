package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`

	IsGuest  bool      `json:"is_guest"`
	IsOnline bool      `json:"is_online"`
	LastSeen time.Time `json:"last_seen"`

	Avatar string `json:"avatar,omitempty"`
	Bio    string `json:"bio,omitempty"`
}
