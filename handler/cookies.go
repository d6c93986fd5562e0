package handler

import (
	"net/http"
	"time"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// CookieConfig controls the attributes of the session cookies.
type CookieConfig struct {
	Domain          string
	Secure          bool
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

func (c CookieConfig) cookie(name, value string, maxAge time.Duration, sameSite http.SameSite) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(maxAge / time.Second),
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: sameSite,
	}
}

func (c CookieConfig) setSessionCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, c.cookie(AccessTokenCookie, accessToken, c.AccessTokenTTL, http.SameSiteLaxMode))
	http.SetCookie(w, c.cookie(RefreshTokenCookie, refreshToken, c.RefreshTokenTTL, http.SameSiteStrictMode))
}

// clearSessionCookies expires both session cookies on the client.
func (c CookieConfig) clearSessionCookies(w http.ResponseWriter) {
	access := c.cookie(AccessTokenCookie, "", 0, http.SameSiteLaxMode)
	access.MaxAge = -1
	refresh := c.cookie(RefreshTokenCookie, "", 0, http.SameSiteStrictMode)
	refresh.MaxAge = -1
	http.SetCookie(w, access)
	http.SetCookie(w, refresh)
}
