package gotauth

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultMailTimeout bounds each fire-and-forget notification email.
const DefaultMailTimeout = 30 * time.Second

// Authenticator implements the local credential flows, the provider
// account-linking flow and identity resolution over a CredentialStore.
//
// Session handling is not done here: the returned projections are handed to a
// SessionGate by the routing layer.
type Authenticator struct {
	// Must be passed in
	Store CredentialStore

	// Optional collaborators.  A nil Mailer disables notification emails.
	Mailer  Mailer
	Hasher  *PasswordHasher
	IDs     IDGenerator
	Logger  *slog.Logger
	Metrics *Metrics

	// Clock used for creation timestamps.  Defaults to time.Now
	Now func() time.Time

	// OAuthBirthdate picks the birthdate of users provisioned from a provider
	// assertion, which never carries one.  Defaults to the provisioning time.
	// Return nil to leave it unset.
	OAuthBirthdate func(now time.Time) *time.Time

	// How long a notification email may take.  Defaults to DefaultMailTimeout
	MailTimeout time.Duration

	mail sync.WaitGroup
}

// New creates an Authenticator with default collaborators.
func New(store CredentialStore, mailer Mailer) *Authenticator {
	return (&Authenticator{Store: store, Mailer: mailer}).EnsureDefaults()
}

func (a *Authenticator) EnsureDefaults() *Authenticator {
	if a.Hasher == nil {
		a.Hasher = NewPasswordHasher(DefaultHashCost)
	}
	if a.IDs == nil {
		a.IDs = NewClockIDGenerator()
	}
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
	if a.Now == nil {
		a.Now = time.Now
	}
	if a.OAuthBirthdate == nil {
		a.OAuthBirthdate = BirthdateNow
	}
	if a.MailTimeout <= 0 {
		a.MailTimeout = DefaultMailTimeout
	}
	return a
}

// BirthdateNow sets the birthdate of provisioned users to the provisioning
// time.
func BirthdateNow(now time.Time) *time.Time { return &now }

// NoBirthdate leaves the birthdate of provisioned users unset.
func NoBirthdate(time.Time) *time.Time { return nil }

type mailKind string

const (
	mailNewAccount mailKind = "new_account"
	mailRecovery   mailKind = "recovery"
)

// sendMail delivers a notification in the background.  Failures are logged
// and never reach the caller; the send outlives the request context.
func (a *Authenticator) sendMail(ctx context.Context, kind mailKind, to, password string) {
	if a.Mailer == nil {
		return
	}
	if to == "" {
		a.Logger.Warn("user has no email, notification not sent", "kind", string(kind))
		return
	}
	ctx = context.WithoutCancel(ctx)
	a.mail.Add(1)
	go func() {
		defer a.mail.Done()
		ctx, cancel := context.WithTimeout(ctx, a.MailTimeout)
		defer cancel()

		var err error
		switch kind {
		case mailNewAccount:
			err = a.Mailer.SendNewAccountEmail(ctx, to, password)
		case mailRecovery:
			err = a.Mailer.SendRecoveryEmail(ctx, to, password)
		}
		a.Metrics.observeMail(kind, err)
		if err != nil {
			a.Logger.Error("error sending email", "kind", string(kind), "to", to, "err", err)
			return
		}
		a.Logger.Info("email sent", "kind", string(kind), "to", to)
	}()
}

// WaitForMail blocks until every notification email started so far has
// finished.  Used on shutdown.
func (a *Authenticator) WaitForMail() {
	a.mail.Wait()
}
