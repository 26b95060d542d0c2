// Package security gates the privileged DiciPoints operations behind an
// administrative master password.
//
// The secret is compared as a plain string, exactly as the system it
// replaces did. That is a known weakness kept deliberately for behavioral
// parity; a constant-time comparison is the only hardening applied.
package security

import (
	"crypto/subtle"
	"errors"
	"os"
	"strings"
)

// EnvFallbackKey is consulted only while no secret has ever been stored
// (bootstrap). Once SetSecret succeeds the environment value is ignored.
const EnvFallbackKey = "DICILO_MASTER_KEY"

const minSecretLength = 6

var ErrSecretTooShort = errors.New("master password must be at least 6 characters")

// SecretStore is the single-document capability the verifier needs. It is
// satisfied by the settings store and faked in tests.
type SecretStore interface {
	Lookup(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

type Verifier struct {
	store     SecretStore
	secretKey string
}

func NewVerifier(store SecretStore, secretKey string) *Verifier {
	return &Verifier{store: store, secretKey: secretKey}
}

// IsConfigured reports whether a non-empty secret has been stored.
func (v *Verifier) IsConfigured() bool {
	value, ok, err := v.store.Lookup(v.secretKey)
	if err != nil {
		return false
	}
	return ok && value != ""
}

// Verify checks candidate against the stored secret, or against the
// environment fallback while no secret exists. Fails closed when neither is
// set.
func (v *Verifier) Verify(candidate string) bool {
	stored, ok, err := v.store.Lookup(v.secretKey)
	if err != nil {
		return false
	}

	if !ok || stored == "" {
		fallback := strings.TrimSpace(os.Getenv(EnvFallbackKey))
		if fallback == "" {
			return false
		}
		stored = fallback
	}

	return subtle.ConstantTimeCompare([]byte(candidate), []byte(stored)) == 1
}

// SetSecret overwrites the stored secret. Operations gated on the old
// password start failing immediately.
func (v *Verifier) SetSecret(newPassword string) error {
	if len(newPassword) < minSecretLength {
		return ErrSecretTooShort
	}
	return v.store.Set(v.secretKey, newPassword)
}
