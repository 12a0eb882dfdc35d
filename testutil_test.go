package gotauth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	ga "github.com/gotmoney/gotauth"
	"github.com/gotmoney/gotauth/stores"
)

type sentMail struct {
	Kind     string
	To       string
	Password string
}

// recordingMailer keeps every notification instead of sending it.
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) SendNewAccountEmail(ctx context.Context, to, password string) error {
	return m.record("new_account", to, password)
}

func (m *recordingMailer) SendRecoveryEmail(ctx context.Context, to, password string) error {
	return m.record("recovery", to, password)
}

func (m *recordingMailer) record(kind, to, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{Kind: kind, To: to, Password: password})
	return m.err
}

func (m *recordingMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

// last returns the most recent mail of kind sent to `to`.
func (m *recordingMailer) last(t *testing.T, kind, to string) sentMail {
	t.Helper()
	sent := m.Sent()
	for i := len(sent) - 1; i >= 0; i-- {
		if sent[i].Kind == kind && sent[i].To == to {
			return sent[i]
		}
	}
	t.Fatalf("no %s mail sent to %s", kind, to)
	return sentMail{}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestAuth returns an Authenticator over a fresh file store in a temp
// dir.  bcrypt runs at its minimum cost to keep the tests fast.
func setupTestAuth(t *testing.T) (*ga.Authenticator, *recordingMailer) {
	t.Helper()
	return setupTestAuthWithStore(t, stores.NewFSUserStore(t.TempDir()))
}

func setupTestAuthWithStore(t *testing.T, store ga.CredentialStore) (*ga.Authenticator, *recordingMailer) {
	t.Helper()
	mailer := &recordingMailer{}
	auth := &ga.Authenticator{
		Store:  store,
		Mailer: mailer,
		Hasher: ga.NewPasswordHasher(bcrypt.MinCost),
		Logger: discardLogger(),
	}
	auth.EnsureDefaults()
	t.Cleanup(auth.WaitForMail)
	return auth, mailer
}

var errStoreDown = errors.New("store unavailable")

// flakyStore wraps a store and fails the selected operations.
type flakyStore struct {
	ga.CredentialStore
	failFindByProvider bool
	failFindByEmail    bool
	failCreate         bool
	failUpdate         bool
	creates            int
	updates            int
}

func (s *flakyStore) FindByProvider(ctx context.Context, p ga.Provider, id string) (ga.User, error) {
	if s.failFindByProvider {
		return ga.User{}, errStoreDown
	}
	return s.CredentialStore.FindByProvider(ctx, p, id)
}

func (s *flakyStore) FindByEmail(ctx context.Context, email string) (ga.User, error) {
	if s.failFindByEmail {
		return ga.User{}, errStoreDown
	}
	return s.CredentialStore.FindByEmail(ctx, email)
}

func (s *flakyStore) Create(ctx context.Context, u ga.User) error {
	s.creates++
	if s.failCreate {
		return errStoreDown
	}
	return s.CredentialStore.Create(ctx, u)
}

func (s *flakyStore) Update(ctx context.Context, id int64, patch ga.UserPatch) error {
	s.updates++
	if s.failUpdate {
		return errStoreDown
	}
	return s.CredentialStore.Update(ctx, id, patch)
}

func signup(t *testing.T, auth *ga.Authenticator, email, password string) ga.Projection {
	t.Helper()
	p, err := auth.LocalSignup(context.Background(), ga.Profile{
		Name:     "Test " + email,
		Email:    email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	return p
}
