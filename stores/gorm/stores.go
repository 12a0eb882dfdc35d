//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	ga "github.com/gotmoney/gotauth"
)

// AutoMigrate runs database migrations for the gotauth tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserModel{})
}

// OpenPostgres connects to Postgres with the given DSN.  GORM's own logging is
// silenced; store errors are reported by the callers.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// UserStore implements ga.CredentialStore using GORM
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) first(ctx context.Context, query string, args ...any) (ga.User, error) {
	var model UserModel
	err := s.db.WithContext(ctx).Order("iduser").First(&model, append([]any{query}, args...)...).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ga.User{}, ga.ErrUserNotFound
	}
	if err != nil {
		return ga.User{}, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) FindByID(ctx context.Context, id int64) (ga.User, error) {
	return s.first(ctx, "iduser = ?", id)
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (ga.User, error) {
	return s.first(ctx, "email = ?", email)
}

func (s *UserStore) FindByProvider(ctx context.Context, provider ga.Provider, providerID string) (ga.User, error) {
	if providerID == "" {
		return ga.User{}, ga.ErrUserNotFound
	}
	switch provider {
	case ga.ProviderFacebook:
		return s.first(ctx, "facebook = ?", providerID)
	case ga.ProviderGoogle:
		return s.first(ctx, "google = ?", providerID)
	}
	return ga.User{}, fmt.Errorf("unknown provider %q", provider)
}

func (s *UserStore) Create(ctx context.Context, user ga.User) error {
	return s.db.WithContext(ctx).Create(UserToModel(user)).Error
}

func (s *UserStore) Update(ctx context.Context, id int64, patch ga.UserPatch) error {
	cols := patchColumns(patch)
	if len(cols) == 0 {
		_, err := s.FindByID(ctx, id)
		return err
	}
	result := s.db.WithContext(ctx).Model(&UserModel{}).Where("iduser = ?", id).Updates(cols)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ga.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) Delete(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&UserModel{}, "iduser = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ga.ErrUserNotFound
	}
	return nil
}
