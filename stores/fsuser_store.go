package stores

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	ga "github.com/gotmoney/gotauth"
)

// fsUser is the on-disk form of a user.  User hides the hash from JSON so it
// is carried separately.
type fsUser struct {
	ga.User
	PasswordHash string `json:"passwd,omitempty"`
}

type fsIndexEntry struct {
	UserID int64 `json:"iduser"`
}

// FSUserStore stores users as JSON files, one per user, with small index
// files for the email and provider id lookups:
//
//	<root>/users/<id>.json
//	<root>/index/email/<hex(email)>.json
//	<root>/index/<provider>/<hex(providerId)>.json
//
// It is meant for development and single process deployments.
type FSUserStore struct {
	StoragePath string

	mu sync.RWMutex
}

func NewFSUserStore(storagePath string) *FSUserStore {
	return &FSUserStore{StoragePath: storagePath}
}

func (s *FSUserStore) getUserPath(id int64) string {
	return filepath.Join(s.StoragePath, "users", strconv.FormatInt(id, 10)+".json")
}

func (s *FSUserStore) getIndexPath(kind, value string) string {
	return filepath.Join(s.StoragePath, "index", filepath.Base(kind), hex.EncodeToString([]byte(value))+".json")
}

func (s *FSUserStore) FindByID(ctx context.Context, id int64) (ga.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readUser(id)
}

func (s *FSUserStore) FindByEmail(ctx context.Context, email string) (ga.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readIndexed("email", email)
}

func (s *FSUserStore) FindByProvider(ctx context.Context, provider ga.Provider, providerID string) (ga.User, error) {
	if providerID == "" {
		return ga.User{}, ga.ErrUserNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readIndexed(string(provider), providerID)
}

func (s *FSUserStore) Create(ctx context.Context, user ga.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.getUserPath(user.ID)); err == nil {
		return fmt.Errorf("user %d already exists", user.ID)
	}
	return s.writeUser(user, ga.User{})
}

func (s *FSUserStore) Update(ctx context.Context, id int64, patch ga.UserPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, err := s.readUser(id)
	if err != nil {
		return err
	}
	return s.writeUser(patch.Apply(old), old)
}

func (s *FSUserStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, err := s.readUser(id)
	if err != nil {
		return err
	}
	if err := os.Remove(s.getUserPath(id)); err != nil {
		return err
	}
	for kind, value := range indexKeys(old) {
		s.removeIndex(kind, value, id)
	}
	return nil
}

func (s *FSUserStore) readUser(id int64) (ga.User, error) {
	data, err := os.ReadFile(s.getUserPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return ga.User{}, fmt.Errorf("%w: %d", ga.ErrUserNotFound, id)
		}
		return ga.User{}, err
	}
	var rec fsUser
	if err := json.Unmarshal(data, &rec); err != nil {
		return ga.User{}, fmt.Errorf("corrupt user file %d: %w", id, err)
	}
	user := rec.User
	user.PasswordHash = rec.PasswordHash
	return user, nil
}

func (s *FSUserStore) readIndexed(kind, value string) (ga.User, error) {
	data, err := os.ReadFile(s.getIndexPath(kind, value))
	if err != nil {
		if os.IsNotExist(err) {
			return ga.User{}, fmt.Errorf("%w: %s", ga.ErrUserNotFound, kind)
		}
		return ga.User{}, err
	}
	var entry fsIndexEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return ga.User{}, fmt.Errorf("corrupt %s index: %w", kind, err)
	}
	user, err := s.readUser(entry.UserID)
	if err != nil {
		return ga.User{}, err
	}
	// A stale entry left by an interrupted write
	if current, ok := indexKeys(user)[kind]; !ok || current != value {
		return ga.User{}, fmt.Errorf("%w: %s", ga.ErrUserNotFound, kind)
	}
	return user, nil
}

// writeUser persists user and moves its index entries away from the values
// held by old.
func (s *FSUserStore) writeUser(user, old ga.User) error {
	path := s.getUserPath(user.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(fsUser{User: user, PasswordHash: user.PasswordHash}, "", "  ")
	if err != nil {
		return err
	}
	if err := writeAtomicFile(path, data); err != nil {
		return err
	}

	oldKeys, newKeys := indexKeys(old), indexKeys(user)
	for kind, value := range oldKeys {
		if newKeys[kind] != value {
			s.removeIndex(kind, value, user.ID)
		}
	}
	for kind, value := range newKeys {
		if err := s.writeIndex(kind, value, user.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *FSUserStore) writeIndex(kind, value string, id int64) error {
	path := s.getIndexPath(kind, value)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.Marshal(fsIndexEntry{UserID: id})
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}

// removeIndex drops an index entry if it still points at id.
func (s *FSUserStore) removeIndex(kind, value string, id int64) {
	path := s.getIndexPath(kind, value)
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var entry fsIndexEntry
	if json.Unmarshal(data, &entry) == nil && entry.UserID != id {
		return
	}
	os.Remove(path)
}

// indexKeys returns the indexed lookup values of u.
func indexKeys(u ga.User) map[string]string {
	keys := make(map[string]string, 3)
	if u.Email != "" {
		keys["email"] = u.Email
	}
	if u.Facebook != "" {
		keys[string(ga.ProviderFacebook)] = u.Facebook
	}
	if u.Google != "" {
		keys[string(ga.ProviderGoogle)] = u.Google
	}
	return keys
}
