package models

import "time"

// Notification types.
const (
	NotificationInfo    = "info"
	NotificationWarning = "warning"
	NotificationError   = "error"
	NotificationSuccess = "success"
)

// Notification is a bilingual in-app message, created on cancellation
// decisions and delivered by the background queue.
type Notification struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	Title     string     `db:"title" json:"title"`
	TitleTh   string     `db:"title_th" json:"title_th,omitempty"`
	Message   string     `db:"message" json:"message"`
	MessageTh string     `db:"message_th" json:"message_th,omitempty"`
	Type      string     `db:"type" json:"type"`
	Read      bool       `db:"read" json:"read"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
