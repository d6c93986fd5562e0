// file: model/request.go

package model

// RegisterRequest defines the payload for creating a new user.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest defines the payload for user authentication.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the optional JSON body of POST /auth/refresh, used by
// clients that cannot send cookies.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type AvailabilityResponse struct {
	Available bool `json:"available"`
}

type LogoutResponse struct {
	TokensRevoked int64 `json:"tokens_revoked"`
}
