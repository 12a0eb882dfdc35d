// Command gotauth-server serves the GotMoney session and user endpoints.
// All settings come from the environment (or a .env file); see
// internal/config.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ga "github.com/gotmoney/gotauth"
	"github.com/gotmoney/gotauth/internal/config"
	"github.com/gotmoney/gotauth/internal/logger"
	mailqueue "github.com/gotmoney/gotauth/notify/amqp"
	"github.com/gotmoney/gotauth/oauth2"
	"github.com/gotmoney/gotauth/stores"
	gaestore "github.com/gotmoney/gotauth/stores/gae"
	gormstore "github.com/gotmoney/gotauth/stores/gorm"
	redisstore "github.com/gotmoney/gotauth/stores/redis"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	log := logger.NewSlog(logger.SlogConfig{Level: cfg.Log.Level, Format: cfg.Log.Format})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

// closer is a resource released on shutdown.
type closer func() error

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	var closers []closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("error releasing resource", "err", err)
			}
		}
	}()

	store, release, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	closers = append(closers, release...)

	session := scs.New()
	session.Lifetime = cfg.Session.Lifetime
	session.Cookie.Name = cfg.Session.CookieName
	session.Cookie.Secure = cfg.Session.Secure
	session.Cookie.HttpOnly = true
	if cfg.Session.RedisAddr != "" {
		client, err := redisstore.Connect(ctx, cfg.Session.RedisAddr, cfg.Session.RedisPass, cfg.Session.RedisDB)
		if err != nil {
			return err
		}
		closers = append(closers, client.Close)
		session.Store = redisstore.NewSessionStore(client)
		log.Info("sessions stored in redis", "addr", cfg.Session.RedisAddr)
	}

	sender, queue, err := openMail(cfg, log)
	if err != nil {
		return err
	}
	if queue != nil {
		closers = append(closers, queue.Close)
		if cfg.Mail.Relay {
			go func() {
				if err := queue.Relay(ctx, smtpSender(cfg)); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("mail relay stopped", "err", err)
				}
			}()
		}
	}

	metrics := ga.NewMetrics(prometheus.DefaultRegisterer)
	tokens := ga.NewTokenIssuer(cfg.JWT.SecretKey, cfg.JWT.Issuer)

	auth := &ga.Authenticator{
		Store:       store,
		Mailer:      ga.NewTemplateMailer(sender),
		Logger:      log,
		Metrics:     metrics,
		MailTimeout: cfg.Mail.Timeout,
	}
	auth.EnsureDefaults()

	gate := &ga.SessionGate{Session: session, Tokens: tokens, Logger: log, Metrics: metrics}
	gate.EnsureDefaults()

	srv := &ga.Server{
		Auth:      auth,
		Gate:      gate,
		Providers: providers(cfg, log),
		Tokens:    tokens,
		Logger:    log,
		DevMode:   cfg.DevMode,
	}
	srv.EnsureDefaults()

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	srv.Routes(r)
	r.Use(ga.RequestID, ga.RequestLogger(log))

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           session.LoadAndSave(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.ListenAddr, "store", cfg.Store.Driver, "mail", cfg.Mail.Transport)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	auth.WaitForMail()
	log.Info("server stopped cleanly")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (ga.CredentialStore, []closer, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := gormstore.OpenPostgres(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := gormstore.AutoMigrate(db); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		log.Info("using postgres store")
		return gormstore.NewUserStore(db), []closer{sqlDB.Close}, nil

	case config.StoreDatastore:
		client, err := datastore.NewClient(ctx, cfg.Store.Project)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create datastore client: %w", err)
		}
		log.Info("using datastore store", "project", cfg.Store.Project, "namespace", cfg.Store.Namespace)
		return gaestore.NewUserStore(client, cfg.Store.Namespace), []closer{client.Close}, nil

	default:
		log.Info("using file store", "path", cfg.Store.FSPath)
		return stores.NewFSUserStore(cfg.Store.FSPath), nil, nil
	}
}

func smtpSender(cfg *config.Config) *ga.SMTPSender {
	return &ga.SMTPSender{
		Host:     cfg.Mail.SMTPHost,
		Port:     strconv.Itoa(cfg.Mail.SMTPPort),
		Username: cfg.Mail.SMTPUser,
		Password: cfg.Mail.SMTPPassword,
		From:     cfg.Mail.SMTPFrom,
	}
}

// openMail returns the sender the mailer renders into.  For the amqp
// transport the queue publisher is also returned so it can be closed and
// relayed.
func openMail(cfg *config.Config, log *slog.Logger) (ga.MessageSender, *mailqueue.Publisher, error) {
	switch cfg.Mail.Transport {
	case config.MailSMTP:
		return smtpSender(cfg), nil, nil
	case config.MailAMQP:
		p, err := mailqueue.Dial(cfg.Mail.AMQPURL, cfg.Mail.AMQPQueue, log)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	default:
		return &ga.ConsoleSender{Logger: log}, nil, nil
	}
}

func providers(cfg *config.Config, log *slog.Logger) *ga.ProviderRegistry {
	reg := ga.NewProviderRegistry()
	if cfg.Facebook.AppID != "" {
		reg.Register(oauth2.NewFacebookProvider(cfg.Facebook.AppID, cfg.Facebook.AppSecret, cfg.Facebook.CallbackURL))
	}
	if cfg.Google.ClientID != "" {
		reg.Register(oauth2.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.CallbackURL))
	}
	log.Info("providers enabled", "providers", reg.Names())
	return reg
}
