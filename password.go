package gotauth

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost is the bcrypt work factor used for stored passwords.
const DefaultHashCost = 10

// autoPasswordSeparator joins the random and clock inputs of generated passwords.
const autoPasswordSeparator = "gotMONEYapp"

// PreHash is the fast deterministic digest applied before bcrypt.  It bounds
// the bcrypt input to 44 bytes whatever the length or encoding of the
// plaintext.
func PreHash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// PasswordHasher hashes and verifies passwords as bcrypt(PreHash(p)).
type PasswordHasher struct {
	// bcrypt cost.  Defaults to DefaultHashCost
	Cost int
}

// NewPasswordHasher returns a hasher with the given cost.  A cost of zero
// selects DefaultHashCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	return (&PasswordHasher{Cost: cost}).EnsureDefaults()
}

func (h *PasswordHasher) EnsureDefaults() *PasswordHasher {
	if h.Cost == 0 {
		h.Cost = DefaultHashCost
	}
	return h
}

// Hash returns the self-describing bcrypt hash of the pre-hashed plaintext.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	h.EnsureDefaults()
	out, err := bcrypt.GenerateFromPassword([]byte(PreHash(plaintext)), h.Cost)
	if err != nil {
		return "", errHashing("failed to hash password", err)
	}
	return string(out), nil
}

// Verify checks plaintext against storedHash.  A mismatch is an Unauthorized
// error, a malformed or empty hash is a hashing failure.
func (h *PasswordHasher) Verify(plaintext, storedHash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(PreHash(plaintext)))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return &AuthError{Kind: KindUnauthorized, Message: MsgInvalidPassword}
	}
	return errHashing("failed to verify password", err)
}

// GenerateRandomPassword returns a 32 character hex password derived from a
// random source and the wall clock.  It is only used for provisioned and
// recovered accounts, and is hashed before it is stored.
func GenerateRandomPassword() (string, error) {
	return generatePassword(time.Now())
}

func generatePassword(now time.Time) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", errHashing("failed to generate password", err)
	}
	seed := fmt.Sprintf("%s%s%s", hex.EncodeToString(b), autoPasswordSeparator, now.UTC().Format(time.RFC3339Nano))
	inner := sha256.Sum256([]byte(seed))
	outer := md5.Sum([]byte(hex.EncodeToString(inner[:])))
	return hex.EncodeToString(outer[:]), nil
}
