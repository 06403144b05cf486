package domain

import "time"

// InboxStatus is the three-value severity classification of a digest.
type InboxStatus string

const (
	StatusAttentionNeeded InboxStatus = "attention_needed"
	StatusWorthALook      InboxStatus = "worth_a_look"
	StatusAllClear        InboxStatus = "all_clear"
)

// IsValid checks if the inbox status is one of the known values
func (s InboxStatus) IsValid() bool {
	switch s {
	case StatusAttentionNeeded, StatusWorthALook, StatusAllClear:
		return true
	}
	return false
}

// ImportantItem highlights one email the user should look at.
type ImportantItem struct {
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Reason  string `json:"reason"`
}

// Digest is the structured daily summary produced for one account for one
// calendar day. At most one digest exists per (account, date) unless a
// regenerate supersedes it.
type Digest struct {
	ID             string          `json:"id" gorm:"primaryKey"`
	UserID         string          `json:"user_id" gorm:"index;not null"`
	AccountID      string          `json:"account_id" gorm:"uniqueIndex:idx_account_date;not null"`
	DateProcessed  string          `json:"date_processed" gorm:"uniqueIndex:idx_account_date;size:10;not null"`
	Overview       []string        `json:"overview" gorm:"serializer:json;type:text"`
	Insight        string          `json:"insight" gorm:"type:text"`
	ImportantItems []ImportantItem `json:"important_items" gorm:"serializer:json;type:text"`
	Status         InboxStatus     `json:"status" gorm:"size:20;not null"`
	Suggestions    []string        `json:"suggestions,omitempty" gorm:"serializer:json;type:text"`
	EmailCount     int             `json:"email_count"`
	CreatedAt      time.Time       `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Digest) TableName() string {
	return "digests"
}

// DateKey formats a time as the digest date column value.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ProcessedMessage is a ledger entry recording that a message was already
// included in some past digest for an account. The unique index enforces
// "summarize each message at most once per account".
type ProcessedMessage struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	AccountID   string    `json:"account_id" gorm:"uniqueIndex:idx_account_message;not null"`
	MessageID   string    `json:"message_id" gorm:"uniqueIndex:idx_account_message;not null"`
	ProcessedAt time.Time `json:"processed_at"`
}

// TableName specifies the table name for GORM
func (ProcessedMessage) TableName() string {
	return "processed_messages"
}

// Delivery status values for notification records
const (
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
	DeliveryPending = "pending"
)

// NotificationRecord tracks one delivery attempt of a digest over a channel.
type NotificationRecord struct {
	ID       string    `json:"id" gorm:"primaryKey"`
	DigestID string    `json:"digest_id" gorm:"index;not null"`
	Channel  string    `json:"channel" gorm:"size:20;not null"`
	Status   string    `json:"status" gorm:"size:20;not null"`
	SentAt   time.Time `json:"sent_at"`
}

// TableName specifies the table name for GORM
func (NotificationRecord) TableName() string {
	return "notification_records"
}
