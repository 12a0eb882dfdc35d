// Package storetest holds the behaviour every gotauth.CredentialStore must
// show, run against each implementation from its own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ga "github.com/gotmoney/gotauth"
)

func sampleUser(id int64, email string) ga.User {
	birth := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	return ga.User{
		ID:           id,
		Name:         "Sample " + email,
		Gender:       ga.DefaultGender,
		Birthdate:    &birth,
		Email:        email,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuuJ6dYxkGzK8dS3Jm9e4qU1eXkqk5a2pG",
		Alert:        true,
		Active:       true,
		CreatedOn:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// Run exercises store.  newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) ga.CredentialStore) {
	ctx := context.Background()

	t.Run("CreateAndFind", func(t *testing.T) {
		s := newStore(t)
		u := sampleUser(1001, "create@example.com").WithProviderID(ga.ProviderGoogle, "g-1001")
		require.NoError(t, s.Create(ctx, u))

		byID, err := s.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Email, byID.Email)
		assert.Equal(t, u.Name, byID.Name)
		assert.Equal(t, u.PasswordHash, byID.PasswordHash)
		assert.True(t, byID.Active)
		assert.True(t, byID.Alert)

		byEmail, err := s.FindByEmail(ctx, u.Email)
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)

		byGoogle, err := s.FindByProvider(ctx, ga.ProviderGoogle, "g-1001")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byGoogle.ID)
	})

	t.Run("MissesAreNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.FindByID(ctx, 42)
		assert.True(t, errors.Is(err, ga.ErrUserNotFound), "got %v", err)
		_, err = s.FindByEmail(ctx, "nobody@example.com")
		assert.True(t, errors.Is(err, ga.ErrUserNotFound), "got %v", err)
		_, err = s.FindByProvider(ctx, ga.ProviderFacebook, "fb-none")
		assert.True(t, errors.Is(err, ga.ErrUserNotFound), "got %v", err)
		_, err = s.FindByProvider(ctx, ga.ProviderFacebook, "")
		assert.True(t, errors.Is(err, ga.ErrUserNotFound), "got %v", err)
		assert.True(t, errors.Is(s.Update(ctx, 42, ga.UserPatch{}), ga.ErrUserNotFound))
		name := "x"
		assert.True(t, errors.Is(s.Update(ctx, 42, ga.UserPatch{Name: &name}), ga.ErrUserNotFound))
		assert.True(t, errors.Is(s.Delete(ctx, 42), ga.ErrUserNotFound))
	})

	t.Run("UpdateOverwritesProviderID", func(t *testing.T) {
		s := newStore(t)
		u := sampleUser(2002, "link@example.com")
		require.NoError(t, s.Create(ctx, u))

		require.NoError(t, s.Update(ctx, u.ID, ga.ProviderPatch(ga.ProviderFacebook, "fb-1")))
		require.NoError(t, s.Update(ctx, u.ID, ga.ProviderPatch(ga.ProviderFacebook, "fb-2")))

		got, err := s.FindByProvider(ctx, ga.ProviderFacebook, "fb-2")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, "fb-2", got.Facebook)

		_, err = s.FindByProvider(ctx, ga.ProviderFacebook, "fb-1")
		assert.True(t, errors.Is(err, ga.ErrUserNotFound), "old link still resolves: %v", err)
	})

	t.Run("UpdateOnlyTouchesPatchedFields", func(t *testing.T) {
		s := newStore(t)
		u := sampleUser(3003, "patch@example.com")
		require.NoError(t, s.Create(ctx, u))

		name, alert, hash := "Renamed", false, "$2a$10$newhashnewhashnewhashnewhashnewhashnewhashnewhashnewha"
		require.NoError(t, s.Update(ctx, u.ID, ga.UserPatch{Name: &name, Alert: &alert}))
		got, err := s.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
		assert.False(t, got.Alert)
		assert.Equal(t, u.PasswordHash, got.PasswordHash)
		assert.Equal(t, u.Email, got.Email)

		require.NoError(t, s.Update(ctx, u.ID, ga.UserPatch{PasswordHash: &hash}))
		got, err = s.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, hash, got.PasswordHash)
		assert.Equal(t, "Renamed", got.Name)
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		u := sampleUser(4004, "delete@example.com").WithProviderID(ga.ProviderGoogle, "g-4004")
		require.NoError(t, s.Create(ctx, u))
		require.NoError(t, s.Delete(ctx, u.ID))

		_, err := s.FindByID(ctx, u.ID)
		assert.True(t, errors.Is(err, ga.ErrUserNotFound))
		_, err = s.FindByEmail(ctx, u.Email)
		assert.True(t, errors.Is(err, ga.ErrUserNotFound))
		_, err = s.FindByProvider(ctx, ga.ProviderGoogle, "g-4004")
		assert.True(t, errors.Is(err, ga.ErrUserNotFound))
	})
}
