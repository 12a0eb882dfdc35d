package gotauth

import (
	"encoding/gob"
	"time"
)

// Provider names an external identity provider.
type Provider string

const (
	ProviderFacebook Provider = "facebook"
	ProviderGoogle   Provider = "google"
)

// DefaultGender is applied when a profile does not carry one.
const DefaultGender = "F"

// User is the stored identity record.  Values are treated as immutable: every
// change goes through one of the With* methods, which return a new value.
type User struct {
	ID           int64      `json:"iduser"`
	Name         string     `json:"name"`
	Gender       string     `json:"gender"`
	Birthdate    *time.Time `json:"birthdate"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Alert        bool       `json:"alert"`
	Active       bool       `json:"active"`
	Facebook     string     `json:"facebook,omitempty"`
	Google       string     `json:"google,omitempty"`
	CreatedOn    time.Time  `json:"createdon"`
}

// Projection is the minimal view of a user that is safe to keep in a session
// or hand to clients.
type Projection struct {
	ID          int64  `json:"iduser"`
	Email       string `json:"email"`
	DisplayName string `json:"name"`
}

func init() {
	// scs encodes session values with gob.
	gob.Register(Projection{})
}

// IsZero reports whether the projection is empty.
func (p Projection) IsZero() bool { return p.ID == 0 && p.Email == "" }

// Projection returns the session-safe view of the user.
func (u User) Projection() Projection {
	return Projection{ID: u.ID, Email: u.Email, DisplayName: u.Name}
}

// HasPassword is false for accounts that were only ever used through an
// external provider and were never given a local hash.
func (u User) HasPassword() bool { return u.PasswordHash != "" }

// ProviderID returns the linked external id for the provider, if any.
func (u User) ProviderID(p Provider) string {
	switch p {
	case ProviderFacebook:
		return u.Facebook
	case ProviderGoogle:
		return u.Google
	}
	return ""
}

// WithProviderID returns a copy of u linked to providerID.  An existing link
// for the same provider is overwritten.
func (u User) WithProviderID(p Provider, providerID string) User {
	switch p {
	case ProviderFacebook:
		u.Facebook = providerID
	case ProviderGoogle:
		u.Google = providerID
	}
	return u
}

// WithPasswordHash returns a copy of u carrying hash.
func (u User) WithPasswordHash(hash string) User {
	u.PasswordHash = hash
	return u
}

// WithProfile returns a copy of u with the editable profile fields replaced.
func (u User) WithProfile(name string, alert bool) User {
	u.Name = name
	u.Alert = alert
	return u
}

// UserPatch lists the fields to overwrite in CredentialStore.Update.  Nil
// fields are left untouched.
type UserPatch struct {
	Name         *string
	Alert        *bool
	PasswordHash *string
	Facebook     *string
	Google       *string
}

// ProviderPatch builds the patch that links providerID to a user.
func ProviderPatch(p Provider, providerID string) UserPatch {
	switch p {
	case ProviderFacebook:
		return UserPatch{Facebook: &providerID}
	case ProviderGoogle:
		return UserPatch{Google: &providerID}
	}
	return UserPatch{}
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Alert == nil && p.PasswordHash == nil && p.Facebook == nil && p.Google == nil
}

// Apply returns a copy of u with the patch applied.
func (p UserPatch) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Alert != nil {
		u.Alert = *p.Alert
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Facebook != nil {
		u.Facebook = *p.Facebook
	}
	if p.Google != nil {
		u.Google = *p.Google
	}
	return u
}
