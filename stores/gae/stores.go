//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"

	ga "github.com/gotmoney/gotauth"
)

// KindUser is the Datastore kind of user entities
const KindUser = "User"

// UserStore implements ga.CredentialStore using Google Cloud Datastore
type UserStore struct {
	client    *datastore.Client
	namespace string
}

// NewUserStore creates a new Datastore-backed UserStore
func NewUserStore(client *datastore.Client, namespace string) *UserStore {
	return &UserStore{client: client, namespace: namespace}
}

func (s *UserStore) idKey(id int64) *datastore.Key {
	key := datastore.IDKey(KindUser, id, nil)
	key.Namespace = s.namespace
	return key
}

func (s *UserStore) FindByID(ctx context.Context, id int64) (ga.User, error) {
	var entity UserEntity
	if err := s.client.Get(ctx, s.idKey(id), &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return ga.User{}, fmt.Errorf("%w: %d", ga.ErrUserNotFound, id)
		}
		return ga.User{}, err
	}
	return entity.ToUser(), nil
}

// findOne returns the first user whose field equals value.  Queries are
// eventually consistent.
func (s *UserStore) findOne(ctx context.Context, field, value string) (ga.User, error) {
	query := datastore.NewQuery(KindUser).
		FilterField(field, "=", value).
		Limit(1)
	if s.namespace != "" {
		query = query.Namespace(s.namespace)
	}

	it := s.client.Run(ctx, query)
	var entity UserEntity
	_, err := it.Next(&entity)
	if err == iterator.Done {
		return ga.User{}, fmt.Errorf("%w: %s", ga.ErrUserNotFound, field)
	}
	if err != nil {
		return ga.User{}, err
	}
	return entity.ToUser(), nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (ga.User, error) {
	return s.findOne(ctx, "email", email)
}

func (s *UserStore) FindByProvider(ctx context.Context, provider ga.Provider, providerID string) (ga.User, error) {
	if providerID == "" {
		return ga.User{}, ga.ErrUserNotFound
	}
	switch provider {
	case ga.ProviderFacebook:
		return s.findOne(ctx, "facebook", providerID)
	case ga.ProviderGoogle:
		return s.findOne(ctx, "google", providerID)
	}
	return ga.User{}, fmt.Errorf("unknown provider %q", provider)
}

func (s *UserStore) Create(ctx context.Context, user ga.User) error {
	key := s.idKey(user.ID)
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing UserEntity
		err := tx.Get(key, &existing)
		if err == nil {
			return fmt.Errorf("user %d already exists", user.ID)
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		_, err = tx.Put(key, UserToEntity(user, key))
		return err
	})
	return err
}

func (s *UserStore) Update(ctx context.Context, id int64, patch ga.UserPatch) error {
	key := s.idKey(id)
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity UserEntity
		if err := tx.Get(key, &entity); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return fmt.Errorf("%w: %d", ga.ErrUserNotFound, id)
			}
			return err
		}
		entity.Key = key
		updated := patch.Apply(entity.ToUser())
		_, err := tx.Put(key, UserToEntity(updated, key))
		return err
	})
	return err
}

func (s *UserStore) Delete(ctx context.Context, id int64) error {
	key := s.idKey(id)
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity UserEntity
		if err := tx.Get(key, &entity); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return fmt.Errorf("%w: %d", ga.ErrUserNotFound, id)
			}
			return err
		}
		return tx.Delete(key)
	})
	return err
}
