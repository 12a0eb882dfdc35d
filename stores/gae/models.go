//go:build !wasm
// +build !wasm

package gae

import (
	"time"

	"cloud.google.com/go/datastore"

	ga "github.com/gotmoney/gotauth"
)

// UserEntity is the Datastore entity for users, keyed by IDKey(iduser)
type UserEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	Name      string         `datastore:"name,noindex"`
	Gender    string         `datastore:"gender,noindex"`
	Birthdate time.Time      `datastore:"birthdate,noindex"` // zero when unset
	Email     string         `datastore:"email"`
	Passwd    string         `datastore:"passwd,noindex"`
	Alert     bool           `datastore:"alert,noindex"`
	Active    bool           `datastore:"active"`
	Facebook  string         `datastore:"facebook"`
	Google    string         `datastore:"google"`
	CreatedOn time.Time      `datastore:"createdon"`
	UpdatedAt time.Time      `datastore:"updated_at,noindex"`
}

func (e *UserEntity) ToUser() ga.User {
	var birthdate *time.Time
	if !e.Birthdate.IsZero() {
		b := e.Birthdate
		birthdate = &b
	}
	return ga.User{
		ID:           e.Key.ID,
		Name:         e.Name,
		Gender:       e.Gender,
		Birthdate:    birthdate,
		Email:        e.Email,
		PasswordHash: e.Passwd,
		Alert:        e.Alert,
		Active:       e.Active,
		Facebook:     e.Facebook,
		Google:       e.Google,
		CreatedOn:    e.CreatedOn,
	}
}

func UserToEntity(u ga.User, key *datastore.Key) *UserEntity {
	var birthdate time.Time
	if u.Birthdate != nil {
		birthdate = *u.Birthdate
	}
	return &UserEntity{
		Key:       key,
		Name:      u.Name,
		Gender:    u.Gender,
		Birthdate: birthdate,
		Email:     u.Email,
		Passwd:    u.PasswordHash,
		Alert:     u.Alert,
		Active:    u.Active,
		Facebook:  u.Facebook,
		Google:    u.Google,
		CreatedOn: u.CreatedOn,
		UpdatedAt: time.Now(),
	}
}
