package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestParseDefaults(t *testing.T) {
	t.Setenv("GOTAUTH_JWT_SECRET_KEY", testSecret)
	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, StoreFS, cfg.Store.Driver)
	assert.Equal(t, MailConsole, cfg.Mail.Transport)
	assert.Equal(t, 24*time.Hour, cfg.Session.Lifetime)
	assert.Equal(t, "gotmoney", cfg.Session.CookieName)
	assert.Equal(t, 465, cfg.Mail.SMTPPort)
	assert.Equal(t, "gotauth", cfg.JWT.Issuer)
}

func TestParseFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/gotmoney")
	t.Setenv("SESSION_LIFETIME", "2h")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/gotmoney", cfg.Store.DatabaseURL)
	assert.Equal(t, 2*time.Hour, cfg.Session.Lifetime)
	assert.Equal(t, "localhost:6379", cfg.Session.RedisAddr)
	assert.True(t, cfg.DevMode)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		msg  string
	}{
		{"gorm without url", map[string]string{"STORE_DRIVER": "postgres"}, "DATABASE_URL"},
		{"gae without project", map[string]string{"STORE_DRIVER": "datastore"}, "DATASTORE_PROJECT"},
		{"unknown store", map[string]string{"STORE_DRIVER": "mongo"}, "unknown STORE_DRIVER"},
		{"smtp without host", map[string]string{"MAIL_TRANSPORT": "smtp"}, "SMTP_HOST"},
		{"amqp without url", map[string]string{"MAIL_TRANSPORT": "amqp"}, "AMQP_URL"},
		{"relay without smtp", map[string]string{"MAIL_TRANSPORT": "amqp", "AMQP_URL": "amqp://localhost", "MAIL_RELAY": "true"}, "MAIL_RELAY"},
		{"unknown mail", map[string]string{"MAIL_TRANSPORT": "pigeon"}, "unknown MAIL_TRANSPORT"},
		{"no jwt secret", map[string]string{"GOTAUTH_JWT_SECRET_KEY": ""}, "GOTAUTH_JWT_SECRET_KEY is required"},
		{"short jwt secret", map[string]string{"GOTAUTH_JWT_SECRET_KEY": "short"}, "at least 32 bytes"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			for k, v := range c.env {
				t.Setenv(k, v)
			}
			_, err := Parse()
			require.Error(t, err)
			assert.Contains(t, err.Error(), c.msg)
		})
	}
}

func TestDevModeAllowsMissingSecret(t *testing.T) {
	t.Setenv("DEV_MODE", "true")
	_, err := Parse()
	assert.NoError(t, err)
}

func TestParseBadDuration(t *testing.T) {
	t.Setenv("SESSION_LIFETIME", "forever")
	_, err := Parse()
	assert.Error(t, err)
}
