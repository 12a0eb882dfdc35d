//go:build !wasm
// +build !wasm

// Package gorm provides a GORM-based gotauth.CredentialStore.  It works with
// any database GORM supports; OpenPostgres is provided for the common case.
//
// # Database Schema
//
// AutoMigrate creates a single users table keyed by iduser, with non-unique
// indexes on email, facebook and google.
//
// # Usage
//
//	db, _ := gormstore.OpenPostgres(dsn)
//	gormstore.AutoMigrate(db)
//	store := gormstore.NewUserStore(db)
package gorm
