// Package gotauth is the authentication and per-user authorization core of the
// GotMoney backend.
//
// A user logs in either with an email and password or with an access token
// from an external provider (Facebook, Google).  Either way the result is a
// Projection, the minimal {iduser, email, name} view of the user, which is
// the only thing ever written to the session.
//
// # Architecture
//
// CredentialStore: persistence of User records, keyed by a generated numeric
// id.  Implementations live in the stores packages (JSON files, gorm/Postgres,
// Cloud Datastore).
//
// Authenticator: the flows.  Local login, signup and password recovery,
// identity lookups and the provider account-linking sequence, which logs in a
// user already linked to the provider id, else links the provider id to the
// user with the same email, else provisions a new user with a generated
// password.
//
// SessionGate: logs projections in and out of an scs session and guards
// routes, accepting a session cookie or a bearer token from a TokenIssuer.
//
// Server: the HTTP routes, mounted on a gorilla/mux router.
//
// Other Go programs use the client package to log in and obtain bearer
// tokens, and the grpc package to verify them on incoming calls.
//
// # Basic Usage
//
//	store := stores.NewFSUserStore("/path/to/storage")
//	auth := gotauth.New(store, gotauth.NewTemplateMailer(&gotauth.ConsoleSender{}))
//	gate := gotauth.NewSessionGate(scs.New(), gotauth.NewTokenIssuer(secret, "gotauth"))
//	srv := gotauth.NewServer(auth, gate)
//	srv.Providers.Register(oauth2.NewGoogleProvider(clientID, clientSecret, callbackURL))
//	http.ListenAndServe(":8080", srv.Handler())
//
// # Errors
//
// Every flow returns *AuthError values tagged with an ErrorKind.  Login never
// says whether the email exists: a missing user and a wrong password give the
// same Unauthorized error.  Storage failures are never reported as "not
// found".
//
// # Security
//
// Passwords are stored as bcrypt(base64(sha256(password))) at cost 10.
// Notification emails carrying a password are sent in the background and
// their failures are only logged.
package gotauth
