package models

import "time"

// Notification is the send log for outbound notifications. A row is recorded
// per attempted send so ignored delivery failures remain visible.
type Notification struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	UserID  string `gorm:"size:36;index;not null" json:"user_id"`
	Type    string `gorm:"size:50;not null" json:"type"` // ex: "account_confirmation"
	Subject string `gorm:"size:255" json:"subject,omitempty"`
	Sent    bool   `gorm:"not null" json:"sent"`
	Error   string `gorm:"size:500" json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
