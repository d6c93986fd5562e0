// file: router/router_test.go

package router_test

import (
	"context"
	"encoding/json"
	"knoword-api/app"
	"knoword-api/config"
	"knoword-api/logger"
	"knoword-api/model"
	"knoword-api/service"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	logger.Init()

	config.AppConfig.JWT.SecretKey = "router-test-secret"
	config.AppConfig.JWT.AccessTokenTTL = 15 * time.Minute
	config.AppConfig.JWT.RefreshTokenTTL = 30 * 24 * time.Hour
	config.AppConfig.Session.Store = "redis"
	config.AppConfig.Session.KeyPrefix = "refresh_token:"
	config.AppConfig.Session.StoreTimeout = 500 * time.Millisecond
	config.AppConfig.Cookie.Secure = false
	config.AppConfig.Mail.VerifyURL = "http://localhost:8080/auth/verify-email"
	config.AppConfig.Mail.VerificationTTL = 24 * time.Hour

	os.Exit(m.Run())
}

type outbox struct {
	mu   sync.Mutex
	sent []service.Message
}

func (o *outbox) Send(_ context.Context, msg service.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

type testEnv struct {
	app  *app.TestApp
	sql  sqlmock.Sqlmock
	mini *miniredis.Miniredis
	mail *outbox
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	mail := &outbox{}
	return &testEnv{
		app:  app.NewTestApp(db, client, mail, service.WithBcryptCost(bcrypt.MinCost)),
		sql:  mock,
		mini: mini,
		mail: mail,
	}
}

func (e *testEnv) do(method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, target, nil)
	} else {
		req, _ = http.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.RequestURI = target
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	e.app.Router.ServeHTTP(rr, req)
	return rr
}

var userRowColumns = []string{"id", "username", "email", "password", "email_verified",
	"verification_token", "verification_token_expires", "created_at"}

func (e *testEnv) expectUserByEmail(t *testing.T, id int, email, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	e.sql.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
		WithArgs(email).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(id, "alice", email, string(hash), true, nil, nil, time.Now()))
}

func (e *testEnv) expectUserExists(id int, exists bool) {
	e.sql.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

func sessionCookies(rr *httptest.ResponseRecorder) (access, refresh *http.Cookie) {
	for _, c := range rr.Result().Cookies() {
		switch c.Name {
		case "access_token":
			access = c
		case "refresh_token":
			refresh = c
		}
	}
	return access, refresh
}

func TestHealthCheck_Integration(t *testing.T) {
	env := newTestEnv(t)
	env.sql.ExpectPing()

	rr := env.do("GET", "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	expectedBody := `{"status":"API is healthy and running"}`
	assert.JSONEq(t, expectedBody, rr.Body.String())
	assert.NoError(t, env.sql.ExpectationsWereMet())
}

func TestHealthCheck_RedisDown(t *testing.T) {
	env := newTestEnv(t)
	env.sql.ExpectPing()
	env.mini.Close()

	rr := env.do("GET", "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"redis"`)
}

func TestRegisterAndVerify_Integration(t *testing.T) {
	env := newTestEnv(t)

	env.sql.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`)).
		WithArgs("new@knoword.app").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	env.sql.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE lower(username) = lower($1))`)).
		WithArgs("newbie").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	env.sql.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(5, time.Now()))

	rr := env.do("POST", "/auth/register", `{"username":"newbie","email":"New@knoword.app","password":"password123"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var summary model.UserSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	assert.Equal(t, 5, summary.ID)
	assert.Equal(t, "new@knoword.app", summary.Email)
	assert.False(t, summary.EmailVerified)

	require.Len(t, env.mail.sent, 1)
	start := strings.Index(env.mail.sent[0].Body, "http://")
	require.GreaterOrEqual(t, start, 0)
	rawLink, _, _ := strings.Cut(env.mail.sent[0].Body[start:], "\n")
	link, err := url.Parse(rawLink)
	require.NoError(t, err)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	env.sql.ExpectExec(regexp.QuoteMeta(`UPDATE users`)).
		WithArgs(token, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rr = env.do("GET", "/auth/verify-email?token="+url.QueryEscape(token), "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NoError(t, env.sql.ExpectationsWereMet())
}

func TestSessionLifecycle_Integration(t *testing.T) {
	env := newTestEnv(t)

	env.expectUserByEmail(t, 42, "alice@knoword.app", "password123")
	rr := env.do("POST", "/auth/login", `{"email":"alice@knoword.app","password":"password123"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	access1, refresh1 := sessionCookies(rr)
	require.NotNil(t, access1)
	require.NotNil(t, refresh1)

	stored, err := env.mini.Get("refresh_token:42")
	require.NoError(t, err)
	assert.Equal(t, refresh1.Value, stored)
	assert.Equal(t, 30*24*time.Hour, env.mini.TTL("refresh_token:42"))

	// Rotation.
	env.expectUserExists(42, true)
	rr = env.do("POST", "/auth/refresh", "", refresh1)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	_, refresh2 := sessionCookies(rr)
	require.NotNil(t, refresh2)

	stored, err = env.mini.Get("refresh_token:42")
	require.NoError(t, err)
	assert.Equal(t, refresh2.Value, stored)

	// Replaying the rotated-away token revokes the session.
	env.expectUserExists(42, true)
	rr = env.do("POST", "/auth/refresh", "", refresh1)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, env.mini.Exists("refresh_token:42"))

	env.expectUserExists(42, true)
	rr = env.do("POST", "/auth/refresh", "", refresh2)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Logging out with the still valid access token reports nothing revoked.
	rr = env.do("POST", "/auth/logout", "", access1)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"tokens_revoked":0}`, rr.Body.String())

	assert.NoError(t, env.sql.ExpectationsWereMet())
}

func TestRefresh_RedisOutage_Integration(t *testing.T) {
	env := newTestEnv(t)

	env.expectUserByEmail(t, 42, "alice@knoword.app", "password123")
	rr := env.do("POST", "/auth/login", `{"email":"alice@knoword.app","password":"password123"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	_, refresh := sessionCookies(rr)

	env.mini.Close()
	env.expectUserExists(42, true)
	rr = env.do("POST", "/auth/refresh", "", refresh)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Empty(t, rr.Result().Cookies())
}

func TestUsersMe_Integration(t *testing.T) {
	env := newTestEnv(t)

	env.expectUserByEmail(t, 42, "alice@knoword.app", "password123")
	rr := env.do("POST", "/auth/login", `{"email":"alice@knoword.app","password":"password123"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	access, _ := sessionCookies(rr)

	env.sql.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(42, "alice", "alice@knoword.app", "hash", true, nil, nil, time.Now()))

	rr = env.do("GET", "/users/me", "", access)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":42,"username":"alice","email":"alice@knoword.app","email_verified":true}`, rr.Body.String())
}

func TestSwaggerDocs(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do("GET", "/swagger/doc.json", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "/auth/refresh")
}
