package gotauth

import "context"

// CredentialStore persists one record per user keyed by User.ID.
//
// Lookups return ErrUserNotFound (optionally wrapped) on a miss.  Any other
// error is reported to callers as an infrastructure failure, never as "not
// found".  Email uniqueness is enforced by the flows through lookups, not by
// the store.
type CredentialStore interface {
	// FindByID retrieves a user by internal id
	FindByID(ctx context.Context, id int64) (User, error)

	// FindByEmail retrieves a user by email address
	FindByEmail(ctx context.Context, email string) (User, error)

	// FindByProvider retrieves the user linked to an external provider id
	FindByProvider(ctx context.Context, provider Provider, providerID string) (User, error)

	// Create inserts a new user
	Create(ctx context.Context, user User) error

	// Update overwrites the non-nil fields of patch on the user with the given
	// id.  Returns ErrUserNotFound when there is no such user.
	Update(ctx context.Context, id int64, patch UserPatch) error

	// Delete removes the user.  Returns ErrUserNotFound when there is no such
	// user.
	Delete(ctx context.Context, id int64) error
}
