package model

import "github.com/golang-jwt/jwt/v5"

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// AppClaims is the signed payload of every token. The subject holds the
// decimal user ID.
type AppClaims struct {
	Kind TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// TokenClaims is the verified view of a token handed back to callers.
type TokenClaims struct {
	UserID int
	Kind   TokenKind
	ID     string
}
