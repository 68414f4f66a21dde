package model

import "time"

// User is an account that can own machines. Passwords are stored as bcrypt
// hashes; the raw password never touches the database.
type User struct {
	ID           int64     `gorm:"primaryKey" json:"-"`
	Username     string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:256;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Firstname    string    `gorm:"size:128" json:"firstname"`
	Lastname     string    `gorm:"size:128" json:"lastname"`
	CreatedAt    time.Time `json:"-"`
}

// TableName keeps the table name used by the rest of the system.
func (User) TableName() string { return "users" }
