//go:build !wasm
// +build !wasm

// Package gae provides a Google Cloud Datastore gotauth.CredentialStore.
//
// Users are stored under the User kind keyed by their numeric iduser.  Email
// and provider id lookups are property queries, so they are eventually
// consistent: a user created a moment ago may not be found by email yet.
//
// # Namespacing
//
// Pass a namespace to isolate tenants:
//
//	store := gae.NewUserStore(client, "tenant-123")
//
// # Usage
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	store := gae.NewUserStore(client, "")  // default namespace
package gae
