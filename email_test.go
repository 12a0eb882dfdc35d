package gotauth_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ga "github.com/gotmoney/gotauth"
)

type captureSender struct {
	msgs []ga.Message
}

func (c *captureSender) SendMessage(ctx context.Context, msg ga.Message) error {
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestNotificationMessages(t *testing.T) {
	m := ga.NewAccountMessage("ana@example.com", "abc123")
	assert.Equal(t, "ana@example.com", m.To)
	assert.Equal(t, ga.SubjectNewAccount, m.Subject)
	assert.Contains(t, m.HTML, "Sua senha de acesso é: abc123")
	assert.Contains(t, m.HTML, "Your password is: abc123")

	r := ga.RecoveryMessage("ana@example.com", "xyz789")
	assert.Equal(t, ga.SubjectRecovery, r.Subject)
	assert.Contains(t, r.HTML, "Sua nova senha de acesso é: xyz789")
	assert.Contains(t, r.HTML, "Your new password is: xyz789")
}

func TestNotificationEscapesPassword(t *testing.T) {
	m := ga.NewAccountMessage("ana@example.com", "<b>&pw</b>")
	assert.NotContains(t, m.HTML, "<b>&pw</b>")
	assert.Contains(t, m.HTML, "&lt;b&gt;&amp;pw&lt;/b&gt;")
}

func TestTemplateMailer(t *testing.T) {
	sender := &captureSender{}
	mailer := ga.NewTemplateMailer(sender)
	ctx := context.Background()

	require.NoError(t, mailer.SendNewAccountEmail(ctx, "a@example.com", "pw1"))
	require.NoError(t, mailer.SendRecoveryEmail(ctx, "b@example.com", "pw2"))
	require.Len(t, sender.msgs, 2)
	assert.Equal(t, ga.SubjectNewAccount, sender.msgs[0].Subject)
	assert.Equal(t, "b@example.com", sender.msgs[1].To)
	assert.Equal(t, ga.SubjectRecovery, sender.msgs[1].Subject)
}

func TestConsoleSender(t *testing.T) {
	var buf bytes.Buffer
	sender := &ga.ConsoleSender{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	require.NoError(t, sender.SendMessage(context.Background(), ga.RecoveryMessage("c@example.com", "pw")))
	assert.Contains(t, buf.String(), "c@example.com")
	assert.Contains(t, buf.String(), ga.SubjectRecovery)
}
