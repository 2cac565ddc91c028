package mail

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	addr string
	from string
	to   []string
	raw  string
}

func newCapturingSMTP(t *testing.T, cfg SMTPConfig) (*SMTP, *captured) {
	t.Helper()

	s, err := NewSMTP(cfg)
	require.NoError(t, err)

	c := &captured{}
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		c.addr, c.from, c.to, c.raw = addr, from, to, string(msg)
		return nil
	}
	return s, c
}

func TestNewSMTP_RequiresHostPort(t *testing.T) {
	_, err := NewSMTP(SMTPConfig{Host: "localhost"})
	assert.ErrorIs(t, err, ErrSMTPHostPortRequired)
}

func TestSMTP_Send(t *testing.T) {
	s, c := newCapturingSMTP(t, SMTPConfig{Host: "mail.local", Port: 1025, From: "security@shop.test"})

	err := s.Send(context.Background(), Message{
		To:       []string{"alice@example.com"},
		Bcc:      []string{"audit@shop.test"},
		Subject:  "Two-factor authentication enabled",
		TextBody: "hello",
	})
	require.NoError(t, err)

	assert.Equal(t, "mail.local:1025", c.addr)
	assert.Equal(t, "security@shop.test", c.from)
	assert.Equal(t, []string{"alice@example.com", "audit@shop.test"}, c.to)
	assert.Contains(t, c.raw, "To: alice@example.com\r\n")
	assert.NotContains(t, c.raw, "audit@shop.test")
	assert.Contains(t, c.raw, "Content-Type: text/plain; charset=UTF-8\r\n\r\nhello")
}

func TestSMTP_SendErrors(t *testing.T) {
	s, _ := newCapturingSMTP(t, SMTPConfig{Host: "mail.local", Port: 1025})

	assert.ErrorIs(t, s.Send(context.Background(), Message{}), ErrSMTPNoRecipients)
	assert.ErrorIs(t, s.Send(context.Background(), Message{To: []string{"a@b.c"}}), ErrSMTPNoSender)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{To: []string{"a@b.c"}, From: "x@y.z"}), context.Canceled)
}

func TestBuildBody_Multipart(t *testing.T) {
	body, ct := buildBody(Message{TextBody: "plain", HTMLBody: "<p>html</p>"})

	require.True(t, strings.HasPrefix(ct, "multipart/alternative; boundary=shopauth-"))
	boundary := strings.TrimPrefix(ct, "multipart/alternative; boundary=")
	assert.Equal(t, 3, strings.Count(body, "--"+boundary))
	assert.Contains(t, body, "plain")
	assert.Contains(t, body, "<p>html</p>")

	body, ct = buildBody(Message{HTMLBody: "<b>x</b>"})
	assert.Equal(t, "<b>x</b>", body)
	assert.Equal(t, "text/html; charset=UTF-8", ct)
}

func TestLog(t *testing.T) {
	l := NewLog()
	assert.NoError(t, l.Send(context.Background(), Message{To: []string{"a@b.c"}, Subject: "s"}))
	assert.ErrorIs(t, l.Send(context.Background(), Message{}), ErrSMTPNoRecipients)
	assert.NoError(t, l.Close())
}
