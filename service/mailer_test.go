package service

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPMailer_Send(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	mailer := NewSMTPMailer(SMTPConfig{
		Host:     "smtp.example.com",
		Port:     "587",
		Username: "apikey",
		Password: "secret",
		From:     "Knoword <no-reply@knoword.app>",
	})
	mailer.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, string(msg)
		return nil
	}

	err := mailer.Send(context.Background(), Message{To: "bob@example.com", Subject: "Hello", Body: "body text"})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "no-reply@knoword.app", gotFrom)
	assert.Equal(t, []string{"bob@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(gotMsg, "From: Knoword <no-reply@knoword.app>\r\n"))
	assert.Contains(t, gotMsg, "Subject: Hello\r\n")
	assert.True(t, strings.HasSuffix(gotMsg, "\r\n\r\nbody text"))
}

func TestSMTPMailer_SendError(t *testing.T) {
	mailer := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: "25", From: "a@b.c"})
	mailer.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("550 rejected")
	}

	err := mailer.Send(context.Background(), Message{To: "x@y.z"})
	assert.ErrorContains(t, err, "550 rejected")
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	called := false
	mailer := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: "25"})
	mailer.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, mailer.Send(ctx, Message{To: "x@y.z"}), context.Canceled)
	assert.False(t, called)
}

func TestEnvelopeAddress(t *testing.T) {
	assert.Equal(t, "a@b.c", envelopeAddress("Name <a@b.c>"))
	assert.Equal(t, "a@b.c", envelopeAddress(" a@b.c "))
}
