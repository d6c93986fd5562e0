package model

import "time"

// User is a Knoword account as stored in the users table.
type User struct {
	ID                       int        `json:"id"`
	Username                 string     `json:"username"`
	Email                    string     `json:"email"`
	Password                 string     `json:"-"`
	EmailVerified            bool       `json:"email_verified"`
	VerificationToken        string     `json:"-"`
	VerificationTokenExpires *time.Time `json:"-"`
	CreatedAt                time.Time  `json:"created_at"`
}

// UserSummary is the public part of a User returned by auth endpoints.
type UserSummary struct {
	ID            int    `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
	}
}
