package service

import (
	"errors"
	"fmt"
	"knoword-api/model"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenCodec signs and verifies HS256 tokens carrying a user ID. It holds no
// state besides its key, clock and ID source.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
	newID  func() string
}

type CodecOption func(*TokenCodec)

// WithClock replaces time.Now for both minting and verification.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) { c.now = now }
}

// WithIDSource replaces the random jti generator.
func WithIDSource(newID func() string) CodecOption {
	return func(c *TokenCodec) { c.newID = newID }
}

func NewTokenCodec(secret []byte, opts ...CodecOption) *TokenCodec {
	c := &TokenCodec{
		secret: secret,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mint returns a signed token for subject that expires after lifetime,
// together with its expiry time.
func (c *TokenCodec) Mint(subject int, kind model.TokenKind, lifetime time.Duration) (string, time.Time, error) {
	if len(c.secret) == 0 {
		return "", time.Time{}, errors.New("jwt secret is empty")
	}
	if subject <= 0 {
		return "", time.Time{}, fmt.Errorf("invalid token subject %d", subject)
	}

	issuedAt := c.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(lifetime)
	claims := &model.AppClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(subject),
			ID:        c.newID(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token string: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and expiry of raw and returns its claims.
// The error is one of ErrTokenMalformed, ErrTokenInvalidSignature or
// ErrTokenExpired.
func (c *TokenCodec) Verify(raw string) (*model.TokenClaims, error) {
	claims := &model.AppClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, ErrTokenInvalidSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrTokenMalformed
		}
	}
	if !token.Valid {
		return nil, ErrTokenMalformed
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil || userID <= 0 {
		return nil, ErrTokenMalformed
	}
	if claims.Kind != model.AccessToken && claims.Kind != model.RefreshToken {
		return nil, ErrTokenMalformed
	}

	return &model.TokenClaims{
		UserID: userID,
		Kind:   claims.Kind,
		ID:     claims.ID,
	}, nil
}
