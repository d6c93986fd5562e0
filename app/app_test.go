package app

import (
	"knoword-api/config"
	"knoword-api/logger"
	"knoword-api/repository"
	"knoword-api/service"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func TestNewSessionStore(t *testing.T) {
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var cfg config.Config
	cfg.Session.Store = "redis"
	cfg.Session.KeyPrefix = "refresh_token:"
	assert.IsType(t, &repository.SessionRepository{}, newSessionStore(cfg, client))

	cfg.Session.Store = "memory"
	assert.IsType(t, &repository.MemorySessionRepository{}, newSessionStore(cfg, client))

	cfg.Session.Store = "redis"
	assert.IsType(t, &repository.MemorySessionRepository{}, newSessionStore(cfg, nil))
}

func TestNewMailer(t *testing.T) {
	var cfg config.Config
	assert.IsType(t, service.LogMailer{}, newMailer(cfg))

	cfg.Mail.Host = "smtp.example.com"
	cfg.Mail.Port = "587"
	assert.IsType(t, &service.SMTPMailer{}, newMailer(cfg))
}
