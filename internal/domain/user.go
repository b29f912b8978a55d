package domain

import "time"

// User is an account created at successful sign-up verification. Exactly one
// of Email/PhoneNumber is the identifier that triggered creation; phone
// sign-ups carry a placeholder email to satisfy the email uniqueness
// constraint on the users table.
type User struct {
	UserID              string    `json:"id" dynamodbav:"user_id"`
	Name                string    `json:"name" dynamodbav:"name"`
	Email               string    `json:"email" dynamodbav:"email"`
	// phone_number is the hash key of the phone_number-index GSI; omitempty
	// keeps the attribute absent (not NULL) for email-only users, so the
	// index stays sparse and PutItem never sees a mistyped key attribute.
	PhoneNumber         *string   `json:"phone_number,omitempty" dynamodbav:"phone_number,omitempty"`
	EmailVerified       bool      `json:"email_verified" dynamodbav:"email_verified"`
	PhoneNumberVerified bool      `json:"phone_number_verified" dynamodbav:"phone_number_verified"`
	Image               *string   `json:"image,omitempty" dynamodbav:"image"`
	CreatedAt           time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt           time.Time `json:"updated" dynamodbav:"updated_at"`
}

// UserDTO is the safe projection returned to authenticated callers.
type UserDTO struct {
	UserID string  `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Image  *string `json:"image,omitempty"`
}

// DTO projects a User onto its public shape.
func (u *User) DTO() UserDTO {
	return UserDTO{UserID: u.UserID, Name: u.Name, Email: u.Email, Image: u.Image}
}
