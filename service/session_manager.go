// file: service/session_manager.go

package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"knoword-api/logger"
	"knoword-api/model"
	"knoword-api/repository"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
	DefaultStoreTimeout    = 3 * time.Second
)

// CredentialStore resolves users for login and confirms they still exist
// when a refresh token is presented.
type CredentialStore interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UserExists(ctx context.Context, id int) (bool, error)
}

// SessionStore holds at most one live refresh token per user.
// Get returns repository.ErrSessionNotFound when no record exists.
type SessionStore interface {
	Set(ctx context.Context, userID int, token string, ttl time.Duration) error
	Get(ctx context.Context, userID int) (string, error)
	Delete(ctx context.Context, userID int) (int64, error)
	CompareAndSwap(ctx context.Context, userID int, oldToken, newToken string, ttl time.Duration) (bool, error)
}

type SessionOptions struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	// StoreTimeout bounds every call into the credential and session stores.
	StoreTimeout time.Duration
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.AccessTokenTTL <= 0 {
		o.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if o.RefreshTokenTTL <= 0 {
		o.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = DefaultStoreTimeout
	}
	return o
}

// SessionManager issues access/refresh token pairs and rotates refresh
// tokens. A refresh token is accepted only while it is the exact value
// recorded for its user; presenting any other valid token revokes the
// user's session.
type SessionManager struct {
	codec       *TokenCodec
	credentials CredentialStore
	sessions    SessionStore
	opts        SessionOptions
}

func NewSessionManager(codec *TokenCodec, credentials CredentialStore, sessions SessionStore, opts SessionOptions) *SessionManager {
	return &SessionManager{
		codec:       codec,
		credentials: credentials,
		sessions:    sessions,
		opts:        opts.withDefaults(),
	}
}

func (m *SessionManager) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.opts.StoreTimeout)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

// Login checks the password of the user registered under email and starts a
// new session, replacing any session the user already had.
func (m *SessionManager) Login(ctx context.Context, email, password string) (*model.LoginResult, error) {
	email = normalizeEmail(email)

	lookupCtx, cancel := m.storeContext(ctx)
	user, err := m.credentials.GetUserByEmail(lookupCtx, email)
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Keep the response time close to the wrong-password case.
			CheckPasswordHash(password, dummyPasswordHash())
			loginsTotal.WithLabelValues("failed").Inc()
			return nil, ErrAuthenticationFailed
		}
		loginsTotal.WithLabelValues("error").Inc()
		return nil, unavailable("look up user", err)
	}

	if !CheckPasswordHash(password, user.Password) {
		logger.Log.WithField("user_id", user.ID).Info("Login rejected: wrong password")
		loginsTotal.WithLabelValues("failed").Inc()
		return nil, ErrAuthenticationFailed
	}

	pair, err := m.issue(user.ID)
	if err != nil {
		loginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	setCtx, cancel := m.storeContext(ctx)
	defer cancel()
	if err := m.sessions.Set(setCtx, user.ID, pair.RefreshToken, m.opts.RefreshTokenTTL); err != nil {
		loginsTotal.WithLabelValues("error").Inc()
		return nil, unavailable("store session record", err)
	}

	logger.Log.WithField("user_id", user.ID).Info("User logged in")
	loginsTotal.WithLabelValues("success").Inc()
	return &model.LoginResult{Tokens: *pair, User: user.Summary()}, nil
}

// Refresh exchanges the live refresh token of a user for a new token pair.
//
// The steps run in order and each failure stops the exchange: the token
// must be present, must verify, must belong to an existing user and must
// equal the recorded session value. A verified token that does not match
// the record is treated as replayed and the record is deleted.
func (m *SessionManager) Refresh(ctx context.Context, presented string) (*model.TokenPair, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		refreshTotal.WithLabelValues("missing").Inc()
		return nil, ErrMissingToken
	}

	claims, err := m.codec.Verify(presented)
	if err != nil || claims.Kind != model.RefreshToken {
		refreshTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidOrExpiredToken
	}
	userID := claims.UserID
	log := logger.Log.WithField("user_id", userID)

	existsCtx, cancel := m.storeContext(ctx)
	exists, err := m.credentials.UserExists(existsCtx, userID)
	cancel()
	if err != nil {
		refreshTotal.WithLabelValues("error").Inc()
		return nil, unavailable("look up user", err)
	}
	if !exists {
		log.Warn("Refresh rejected: user no longer exists")
		refreshTotal.WithLabelValues("denied").Inc()
		return nil, ErrAccessDenied
	}

	getCtx, cancel := m.storeContext(ctx)
	current, err := m.sessions.Get(getCtx, userID)
	cancel()
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		return nil, m.revoke(ctx, userID, "no live session")
	case err != nil:
		refreshTotal.WithLabelValues("error").Inc()
		return nil, unavailable("read session record", err)
	case subtle.ConstantTimeCompare([]byte(current), []byte(presented)) != 1:
		return nil, m.revoke(ctx, userID, "token does not match live session")
	}

	pair, err := m.issue(userID)
	if err != nil {
		refreshTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	swapCtx, cancel := m.storeContext(ctx)
	swapped, err := m.sessions.CompareAndSwap(swapCtx, userID, presented, pair.RefreshToken, m.opts.RefreshTokenTTL)
	cancel()
	if err != nil {
		refreshTotal.WithLabelValues("error").Inc()
		return nil, unavailable("rotate session record", err)
	}
	if !swapped {
		// Another request rotated or removed the record after our read.
		return nil, m.revoke(ctx, userID, "concurrent rotation")
	}

	log.Debug("Refresh token rotated")
	refreshTotal.WithLabelValues("rotated").Inc()
	return pair, nil
}

// revoke deletes the session record after a replayed or stale token was
// presented and always reports ErrTokenRevoked.
func (m *SessionManager) revoke(ctx context.Context, userID int, reason string) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id": userID,
		"reason":  reason,
	})
	log.Warn("Refresh token reuse detected, revoking session")
	refreshTotal.WithLabelValues("revoked").Inc()

	delCtx, cancel := m.storeContext(ctx)
	defer cancel()
	if _, err := m.sessions.Delete(delCtx, userID); err != nil {
		log.WithError(err).Error("Failed to delete session record during revocation")
	}
	return ErrTokenRevoked
}

// Logout deletes the session record of userID and returns how many records
// were removed (0 or 1).
func (m *SessionManager) Logout(ctx context.Context, userID int) (int64, error) {
	delCtx, cancel := m.storeContext(ctx)
	defer cancel()

	n, err := m.sessions.Delete(delCtx, userID)
	if err != nil {
		return 0, unavailable("delete session record", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id":        userID,
		"tokens_revoked": n,
	}).Info("User logged out")
	logoutsTotal.WithLabelValues(fmt.Sprint(n > 0)).Inc()
	return n, nil
}

// Authenticate verifies an access token and returns its user ID.
func (m *SessionManager) Authenticate(accessToken string) (int, error) {
	claims, err := m.codec.Verify(strings.TrimSpace(accessToken))
	if err != nil || claims.Kind != model.AccessToken {
		return 0, ErrInvalidOrExpiredToken
	}
	return claims.UserID, nil
}

func (m *SessionManager) issue(userID int) (*model.TokenPair, error) {
	access, accessExpires, err := m.codec.Mint(userID, model.AccessToken, m.opts.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, refreshExpires, err := m.codec.Mint(userID, model.RefreshToken, m.opts.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	return &model.TokenPair{
		AccessToken:           access,
		RefreshToken:          refresh,
		AccessTokenExpiresAt:  accessExpires,
		RefreshTokenExpiresAt: refreshExpires,
	}, nil
}
