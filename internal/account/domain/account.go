package domain

import "time"

// AccountStatus is the lifecycle state of a connected mailbox.
type AccountStatus string

const (
	StatusActive  AccountStatus = "active"
	StatusExpired AccountStatus = "expired"
	StatusError   AccountStatus = "error"
)

// Provider identifiers for connected accounts
const (
	ProviderGoogle = "google"
	ProviderIMAP   = "imap"
)

// Account represents a connected mailbox owned by a user.
// Created on a successful OAuth exchange (or IMAP credential entry),
// mutated on token refresh or status transitions, deleted on disconnect.
type Account struct {
	ID             string        `json:"id" gorm:"primaryKey"`
	UserID         string        `json:"user_id" gorm:"index;not null"`
	Email          string        `json:"email" gorm:"not null"`
	Provider       string        `json:"provider" gorm:"size:20;not null;default:'google'"`
	AccessToken    string        `json:"-" gorm:"type:text"`
	RefreshToken   string        `json:"-" gorm:"type:text"`
	TokenExpiresAt time.Time     `json:"token_expires_at"`
	IMAPHost       string        `json:"imap_host,omitempty"`
	IMAPUsername   string        `json:"imap_username,omitempty"`
	IMAPPassword   string        `json:"-" gorm:"type:text"`
	Status         AccountStatus `json:"status" gorm:"size:20;default:'active'"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Account) TableName() string {
	return "accounts"
}

// UsesOAuth reports whether the account authenticates with OAuth tokens
// (IMAP accounts use a stored password and never expire).
func (a *Account) UsesOAuth() bool {
	return a.Provider == ProviderGoogle
}
