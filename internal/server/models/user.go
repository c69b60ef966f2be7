package models

import "time"

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash []byte
	ProfileImage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
