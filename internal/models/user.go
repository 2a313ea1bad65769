package models

import "time"

type User struct {
	ID          int64     `json:"id" example:"1"`                       // User ID
	Name        string    `json:"name" example:"John Doe"`              // Display name
	Email       string    `json:"email" example:"user@example.com"`     // User email
	PhoneNumber string    `json:"phoneNumber" example:"+2348012345678"` // User phone number
	Password    string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
