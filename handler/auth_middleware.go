package handler

import (
	"context"
	"knoword-api/common"
	"net/http"
	"strings"
)

type contextKey string

const UserIDKey contextKey = "userID"

// Authenticator resolves an access token to a user ID.
type Authenticator interface {
	Authenticate(accessToken string) (int, error)
}

// AuthMiddleware accepts the access token from the access_token cookie or
// an "Authorization: Bearer" header and stores the user ID in the request
// context under UserIDKey.
func AuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				if c, err := r.Cookie(AccessTokenCookie); err == nil {
					tokenString = c.Value
				}
			}
			if tokenString == "" {
				common.NewAppError(http.StatusUnauthorized, "Authentication required", nil).Send(w)
				return
			}

			userID, err := auth.Authenticate(tokenString)
			if err != nil {
				common.NewAppError(http.StatusUnauthorized, "Invalid or expired token", err).Send(w)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken returns the token of an "Authorization: Bearer <token>"
// header, or "" when there is none.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	headerParts := strings.Fields(authHeader)
	if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
		return ""
	}
	return headerParts[1]
}

func userIDFromContext(r *http.Request) (int, bool) {
	userID, ok := r.Context().Value(UserIDKey).(int)
	return userID, ok
}
