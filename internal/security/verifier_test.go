package security

import (
	"errors"
	"testing"
)

// fakeStore is an in-memory SecretStore.
type fakeStore struct {
	values map[string]string
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]string)}
}

func (f *fakeStore) Lookup(key string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeStore) Set(key, value string) error {
	if f.err != nil {
		return f.err
	}
	f.values[key] = value
	return nil
}

func TestVerifyStoredSecret(t *testing.T) {
	fs := newFakeStore()
	fs.values["master"] = "hunter22"
	v := NewVerifier(fs, "master")

	if !v.IsConfigured() {
		t.Error("expected configured")
	}
	if !v.Verify("hunter22") {
		t.Error("correct password rejected")
	}
	if v.Verify("hunter23") {
		t.Error("wrong password accepted")
	}
	if v.Verify("") {
		t.Error("empty candidate accepted")
	}
}

func TestVerifyFailsClosed(t *testing.T) {
	v := NewVerifier(newFakeStore(), "master")

	if v.IsConfigured() {
		t.Error("expected unconfigured")
	}
	if v.Verify("anything") {
		t.Error("accepted with no secret and no fallback")
	}
	if v.Verify("") {
		t.Error("accepted empty candidate with no secret")
	}
}

func TestVerifyEnvFallback(t *testing.T) {
	t.Setenv(EnvFallbackKey, "bootstrap-secret")
	fs := newFakeStore()
	v := NewVerifier(fs, "master")

	// No stored secret: the environment value is authoritative.
	if !v.Verify("bootstrap-secret") {
		t.Error("env fallback rejected")
	}
	if v.Verify("other") {
		t.Error("wrong candidate accepted against env fallback")
	}

	// Once a secret is stored the fallback is ignored.
	if err := v.SetSecret("stored-secret"); err != nil {
		t.Fatalf("set secret: %v", err)
	}
	if v.Verify("bootstrap-secret") {
		t.Error("env fallback still accepted after SetSecret")
	}
	if !v.Verify("stored-secret") {
		t.Error("stored secret rejected")
	}
}

func TestSetSecretMinLength(t *testing.T) {
	v := NewVerifier(newFakeStore(), "master")

	if err := v.SetSecret("12345"); !errors.Is(err, ErrSecretTooShort) {
		t.Errorf("err = %v, want ErrSecretTooShort", err)
	}
	if err := v.SetSecret("123456"); err != nil {
		t.Errorf("six characters rejected: %v", err)
	}
}

func TestVerifyStoreErrorFailsClosed(t *testing.T) {
	fs := newFakeStore()
	fs.values["master"] = "hunter22"
	fs.err = errors.New("db gone")
	v := NewVerifier(fs, "master")

	if v.Verify("hunter22") {
		t.Error("accepted despite store error")
	}
	if v.IsConfigured() {
		t.Error("configured despite store error")
	}
}
