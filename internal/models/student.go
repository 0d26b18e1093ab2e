package models

import "time"

// Student is the roster subset needed to report quota impact. The full
// registration profile lives in the legacy system.
type Student struct {
	ID         int64     `db:"id" json:"id"`
	UserID     *int64    `db:"user_id" json:"user_id,omitempty"`
	FirstName  string    `db:"first_name" json:"first_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	NicknameEn string    `db:"nickname_en" json:"nickname_en"`
	NicknameTh string    `db:"nickname_th" json:"nickname_th"`
	Phone      string    `db:"phone" json:"phone,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
