package models

import "time"

// User is an operator account used to sign in to the admin area. Whether a
// user is an admin is not a column: it is decided by the allow-list in
// configuration, keyed on the account email.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
