package gotauth

import (
	"context"
	"errors"
	"fmt"
)

// FindByID looks a user up by internal id.
func (a *Authenticator) FindByID(ctx context.Context, id int64) (User, error) {
	u, err := a.Store.FindByID(ctx, id)
	return resolved(u, err, fmt.Sprintf("failed to look up user %d", id))
}

// FindByEmail looks a user up by email.
func (a *Authenticator) FindByEmail(ctx context.Context, email string) (User, error) {
	u, err := a.Store.FindByEmail(ctx, email)
	return resolved(u, err, "failed to look up user by email")
}

// FindByFacebook looks a user up by linked facebook id.
func (a *Authenticator) FindByFacebook(ctx context.Context, facebookID string) (User, error) {
	return a.FindByProvider(ctx, ProviderFacebook, facebookID)
}

// FindByGoogle looks a user up by linked google id.
func (a *Authenticator) FindByGoogle(ctx context.Context, googleID string) (User, error) {
	return a.FindByProvider(ctx, ProviderGoogle, googleID)
}

// FindByProvider looks a user up by the id linked for provider.
func (a *Authenticator) FindByProvider(ctx context.Context, provider Provider, providerID string) (User, error) {
	if providerID == "" {
		return User{}, errNotFound()
	}
	u, err := a.Store.FindByProvider(ctx, provider, providerID)
	return resolved(u, err, fmt.Sprintf("failed to look up user by %s id", provider))
}

// resolved turns a raw store result into NotFound or Infrastructure errors.
func resolved(u User, err error, op string) (User, error) {
	if err == nil {
		return u, nil
	}
	if errors.Is(err, ErrUserNotFound) {
		return User{}, errNotFound()
	}
	return User{}, errInfrastructure(op, err)
}

// storeWriteError maps a store write failure the same way lookups are mapped.
func storeWriteError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUserNotFound) {
		return errNotFound()
	}
	return errInfrastructure(op, err)
}
