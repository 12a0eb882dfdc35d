// Package config loads the gotauth-server settings from the environment,
// reading a .env file first when one is present.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// STORE_DRIVER values
const (
	StoreFS        = "fs"
	StorePostgres  = "postgres"
	StoreDatastore = "datastore"
)

// MAIL_TRANSPORT values
const (
	MailConsole = "console"
	MailSMTP    = "smtp"
	MailAMQP    = "amqp"
)

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	DevMode    bool   `env:"DEV_MODE"`

	Log struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
	}

	Store struct {
		Driver      string `env:"STORE_DRIVER" envDefault:"fs"`
		FSPath      string `env:"STORE_FS_PATH" envDefault:"./data"`
		DatabaseURL string `env:"DATABASE_URL"`
		Project     string `env:"DATASTORE_PROJECT"`
		Namespace   string `env:"DATASTORE_NAMESPACE"`
	}

	Session struct {
		Lifetime   time.Duration `env:"SESSION_LIFETIME" envDefault:"24h"`
		CookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"gotmoney"`
		Secure     bool          `env:"SESSION_COOKIE_SECURE"`
		RedisAddr  string        `env:"REDIS_ADDR"`
		RedisPass  string        `env:"REDIS_PASSWORD"`
		RedisDB    int           `env:"REDIS_DB"`
	}

	Mail struct {
		Transport string        `env:"MAIL_TRANSPORT" envDefault:"console"`
		Timeout   time.Duration `env:"MAIL_TIMEOUT" envDefault:"30s"`
		// Run the queue relay in this process
		Relay bool `env:"MAIL_RELAY"`

		SMTPHost     string `env:"SMTP_HOST"`
		SMTPPort     int    `env:"SMTP_PORT" envDefault:"465"`
		SMTPUser     string `env:"SMTP_USER"`
		SMTPPassword string `env:"SMTP_PASSWORD"`
		SMTPFrom     string `env:"SMTP_FROM"`

		AMQPURL   string `env:"AMQP_URL"`
		AMQPQueue string `env:"AMQP_QUEUE" envDefault:"gotauth.mail"`
	}

	JWT struct {
		SecretKey string `env:"GOTAUTH_JWT_SECRET_KEY"`
		Issuer    string `env:"GOTAUTH_JWT_ISSUER" envDefault:"gotauth"`
	}

	Facebook struct {
		AppID       string `env:"FACEBOOK_APP_ID"`
		AppSecret   string `env:"FACEBOOK_APP_SECRET"`
		CallbackURL string `env:"FACEBOOK_CALLBACK_URL"`
	}

	Google struct {
		ClientID     string `env:"OAUTH2_GOOGLE_CLIENT_ID"`
		ClientSecret string `env:"OAUTH2_GOOGLE_CLIENT_SECRET"`
		CallbackURL  string `env:"OAUTH2_GOOGLE_CALLBACK_URL"`
	}
}

// Load reads .env, if present, then the environment.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}
	return Parse()
}

// Parse reads the environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MinJWTSecretLen is the shortest HMAC key accepted for API tokens.
const MinJWTSecretLen = 32

// Validate checks the settings that depend on each other.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreFS:
		if c.Store.FSPath == "" {
			return fmt.Errorf("STORE_FS_PATH is required for the fs store")
		}
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreDatastore:
		if c.Store.Project == "" {
			return fmt.Errorf("DATASTORE_PROJECT is required for the datastore store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.Mail.Transport {
	case MailConsole:
	case MailSMTP:
		if c.Mail.SMTPHost == "" || c.Mail.SMTPFrom == "" {
			return fmt.Errorf("SMTP_HOST and SMTP_FROM are required for smtp mail")
		}
	case MailAMQP:
		if c.Mail.AMQPURL == "" {
			return fmt.Errorf("AMQP_URL is required for amqp mail")
		}
		if c.Mail.Relay && c.Mail.SMTPHost == "" {
			return fmt.Errorf("MAIL_RELAY needs SMTP_HOST to deliver to")
		}
	default:
		return fmt.Errorf("unknown MAIL_TRANSPORT %q", c.Mail.Transport)
	}

	switch {
	case c.JWT.SecretKey == "" && !c.DevMode:
		return fmt.Errorf("GOTAUTH_JWT_SECRET_KEY is required outside DEV_MODE")
	case c.JWT.SecretKey != "" && len(c.JWT.SecretKey) < MinJWTSecretLen:
		return fmt.Errorf("GOTAUTH_JWT_SECRET_KEY must be at least %d bytes", MinJWTSecretLen)
	}
	return nil
}
