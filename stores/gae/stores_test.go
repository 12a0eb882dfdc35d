//go:build !wasm
// +build !wasm

package gae_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ga "github.com/gotmoney/gotauth"
	"github.com/gotmoney/gotauth/stores/gae"
	"github.com/gotmoney/gotauth/stores/storetest"
)

func TestEntityRoundTripKeepsHashAndBirthdate(t *testing.T) {
	birth := time.Date(1985, 3, 1, 0, 0, 0, 0, time.UTC)
	u := ga.User{ID: 77, Email: "e@example.com", PasswordHash: "$2a$10$x", Birthdate: &birth, Google: "g-77", Active: true}
	key := datastore.IDKey(gae.KindUser, u.ID, nil)

	got := gae.UserToEntity(u, key).ToUser()
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, u.PasswordHash, got.PasswordHash)
	assert.Equal(t, "g-77", got.Google)
	require.NotNil(t, got.Birthdate)
	assert.True(t, birth.Equal(*got.Birthdate))

	u.Birthdate = nil
	assert.Nil(t, gae.UserToEntity(u, key).ToUser().Birthdate)
}

// Runs against the Datastore emulator when DATASTORE_EMULATOR_HOST is set.
// Start it with --consistency=1.0 so lookups by email see fresh writes.
func TestUserStoreEmulator(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if os.Getenv("DATASTORE_EMULATOR_HOST") == "" {
		t.Skip("Skipping integration test: DATASTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	client, err := datastore.NewClient(ctx, "gotauth-test")
	require.NoError(t, err)
	defer client.Close()

	n := 0
	storetest.Run(t, func(t *testing.T) ga.CredentialStore {
		n++
		return gae.NewUserStore(client, fmt.Sprintf("test-%d-%d", time.Now().UnixNano(), n))
	})
}
