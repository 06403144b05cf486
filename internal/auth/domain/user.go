package domain

import "time"

// User owns connected accounts and digest notification preferences.
type User struct {
	ID       string `json:"id" gorm:"primaryKey"`
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-"` // Never return password in JSON
	Name     string `json:"name"`
	Provider string `json:"provider"` // "email" or "google"

	// Notification channel preferences for digest delivery
	EmailNotifications    bool   `json:"email_notifications" gorm:"default:true"`
	WhatsAppNotifications bool   `json:"whatsapp_notifications" gorm:"default:false"`
	PushNotifications     bool   `json:"push_notifications" gorm:"default:false"`
	WhatsAppNumber        string `json:"whatsapp_number,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RefreshToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FCMToken is a Firebase Cloud Messaging device token used as a push
// notification target for digest delivery.
type FCMToken struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	UserID     string    `json:"user_id" gorm:"index;not null"`
	Token      string    `json:"-" gorm:"uniqueIndex;not null"` // Don't expose token in JSON
	DeviceInfo string    `json:"device_info"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
