package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	Email         string      `json:"email" db:"email"`
	Username      string      `json:"username" db:"username"`
	PasswordHash  string      `json:"-" db:"password_hash"`
	Confirmed     bool        `json:"confirmed" db:"confirmed"`
	Preferences   Preferences `json:"preferences"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	LastLoginAt   *time.Time  `json:"last_login_at,omitempty" db:"last_login_at"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         *User  `json:"user"`
}
