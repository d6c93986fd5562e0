// file: repository/session_repository.go

package repository

import (
	"context"
	"errors"
	"fmt"
	"knoword-api/logger"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ISessionClient is the subset of the Redis client the session repository
// needs. *redis.Client and *redis.ClusterClient satisfy it.
type ISessionClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	redis.Scripter
}

// compareAndSwapScript replaces KEYS[1] with ARGV[2] (TTL ARGV[3] ms) only
// when it currently holds ARGV[1].
var compareAndSwapScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`)

// SessionRepository keeps the single live refresh token of each user in
// Redis under <prefix><userID>.
type SessionRepository struct {
	client ISessionClient
	prefix string
}

func NewSessionRepository(client ISessionClient, prefix string) *SessionRepository {
	return &SessionRepository{client: client, prefix: prefix}
}

func (r *SessionRepository) key(userID int) string {
	return r.prefix + strconv.Itoa(userID)
}

// Set overwrites the session record of userID.
func (r *SessionRepository) Set(ctx context.Context, userID int, token string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(userID), token, ttl).Err(); err != nil {
		logger.Log.WithError(err).WithField("user_id", userID).Error("Failed to store session record")
		return fmt.Errorf("set session record: %w", err)
	}
	return nil
}

// Get returns the live refresh token of userID or ErrSessionNotFound.
func (r *SessionRepository) Get(ctx context.Context, userID int) (string, error) {
	token, err := r.client.Get(ctx, r.key(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("get session record: %w", err)
	}
	return token, nil
}

// Delete removes the session record and reports how many keys were removed.
func (r *SessionRepository) Delete(ctx context.Context, userID int) (int64, error) {
	n, err := r.client.Del(ctx, r.key(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("delete session record: %w", err)
	}
	return n, nil
}

// CompareAndSwap atomically replaces oldToken with newToken. It returns
// false without writing when the record is absent or holds another value.
func (r *SessionRepository) CompareAndSwap(ctx context.Context, userID int, oldToken, newToken string, ttl time.Duration) (bool, error) {
	res, err := compareAndSwapScript.Run(ctx, r.client, []string{r.key(userID)}, oldToken, newToken, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("compare and swap session record: %w", err)
	}
	return res == 1, nil
}
