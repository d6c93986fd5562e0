// file: model/token.go

package model

import "time"

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}

// LoginResult bundles the issued tokens with the authenticated user.
type LoginResult struct {
	Tokens TokenPair   `json:"tokens"`
	User   UserSummary `json:"user"`
}
