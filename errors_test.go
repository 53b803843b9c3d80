package saltmap

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestValidationErrorWrapsSentinel(t *testing.T) {
	err := newValidationError("passphrase", "shorter than the 16-byte minimum", ErrShortPassphrase)
	if !errors.Is(err, ErrShortPassphrase) {
		t.Fatal("expected errors.Is to find the wrapped sentinel")
	}
	if !IsValidationError(err) {
		t.Fatal("expected IsValidationError to report true")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("expected errors.As to recover a *ValidationError")
	}
	if ve.Field != "passphrase" {
		t.Fatalf("got field %q", ve.Field)
	}
	if got := err.Error(); got == "" {
		t.Fatal("expected a non-empty Error() string")
	}
}

func TestAuthenticationErrorWrapsSentinel(t *testing.T) {
	err := newAuthenticationError("/tmp/x", "header hmac mismatch", ErrNotAuthenticated)
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatal("expected errors.Is to find the wrapped sentinel")
	}
	if !IsAuthenticationError(err) {
		t.Fatal("expected IsAuthenticationError to report true")
	}
	if IsValidationError(err) {
		t.Fatal("an AuthenticationError must not also report as a ValidationError")
	}
}

func TestIOErrorAndCorruptionErrorHelpers(t *testing.T) {
	ioErr := newIOError("rand", "/tmp/x", errors.New("disk full"))
	if !IsIOError(ioErr) {
		t.Fatal("expected IsIOError to report true")
	}
	if !errors.Is(ioErr, errors.Unwrap(ioErr)) {
		t.Fatal("IOError.Unwrap should return the wrapped cause")
	}

	corruptErr := newCorruptionError("/tmp/.keystore", "entry region truncated")
	if !IsCorruptionError(corruptErr) {
		t.Fatal("expected IsCorruptionError to report true")
	}
	if IsIOError(corruptErr) {
		t.Fatal("a CorruptionError must not also report as an IOError")
	}
}

func TestFromArgonPreconditionMissProducesValidationError(t *testing.T) {
	_, ok, err := FromArgon("short", make([]byte, minSaltLen), make([]byte, minSaltLen), testParams())
	if ok {
		t.Fatal("expected precondition miss")
	}
	if !IsValidationError(err) || !errors.Is(err, ErrShortPassphrase) {
		t.Fatalf("expected a ValidationError wrapping ErrShortPassphrase, got %v", err)
	}
}

func TestOpenPreconditionMissProducesValidationError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".keystore")

	_, ok, err := Open("too short", path, testParams())
	if ok {
		t.Fatal("expected precondition miss")
	}
	if !IsValidationError(err) {
		t.Fatalf("expected a ValidationError, got %v", err)
	}
}

func TestOpenHmacMismatchRetainsAuthenticationError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".keystore")
	params := testParams()

	ks, ok, err := Open("a passphrase of sixteen+", path, params)
	if err != nil || !ok {
		t.Fatalf("create: ok=%v err=%v", ok, err)
	}
	ks.Close()

	ks2, ok, err := Open("a different passphrase!!", path, params)
	if err != nil || !ok {
		t.Fatalf("reopen: ok=%v err=%v", ok, err)
	}
	defer ks2.Close()

	if ks2.Authenticated() {
		t.Fatal("wrong passphrase must not authenticate")
	}
	authErr := ks2.AuthError()
	if !IsAuthenticationError(authErr) {
		t.Fatalf("expected KeyStore.AuthError to retain an *AuthenticationError, got %v", authErr)
	}
	if !errors.Is(authErr, ErrNotAuthenticated) {
		t.Fatalf("expected errors.Is(authErr, ErrNotAuthenticated), got %v", authErr)
	}
}

func TestGetEntryBadLengthProducesValidationError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".keystore")
	ks, ok, err := Open("a passphrase of sixteen+", path, testParams())
	if err != nil || !ok {
		t.Fatalf("create: ok=%v err=%v", ok, err)
	}
	defer ks.Close()

	_, _, err = ks.GetEntry(make([]byte, 3))
	if !IsValidationError(err) || !errors.Is(err, ErrBadLength) {
		t.Fatalf("expected a ValidationError wrapping ErrBadLength, got %v", err)
	}
}

func TestAddEntryBadLengthProducesValidationError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".keystore")
	ks, ok, err := Open("a passphrase of sixteen+", path, testParams())
	if err != nil || !ok {
		t.Fatalf("create: ok=%v err=%v", ok, err)
	}
	defer ks.Close()

	_, err = ks.AddEntry(make([]byte, tagLen), make([]byte, 1), make([]byte, saltLen), make([]byte, tagLen))
	if !IsValidationError(err) || !errors.Is(err, ErrBadLength) {
		t.Fatalf("expected a ValidationError wrapping ErrBadLength, got %v", err)
	}
}

func TestUpdateEntryByTagBadLengthProducesValidationError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".keystore")
	ks, ok, err := Open("a passphrase of sixteen+", path, testParams())
	if err != nil || !ok {
		t.Fatalf("create: ok=%v err=%v", ok, err)
	}
	defer ks.Close()

	_, err = ks.UpdateEntryByTag(make([]byte, tagLen), make([]byte, 2))
	if !IsValidationError(err) || !errors.Is(err, ErrBadLength) {
		t.Fatalf("expected a ValidationError wrapping ErrBadLength, got %v", err)
	}
}

func TestCryptLastAuthErrorRetainedOnTamper(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "data.bin", make([]byte, chunkSize+10))
	pass := "a passphrase of sixteen+"
	params := testParams()

	c, ok, err := Init(pass, path, params)
	if err != nil || !ok {
		t.Fatalf("Init: ok=%v err=%v", ok, err)
	}
	if ok, err := c.Encrypt(); err != nil || !ok {
		t.Fatalf("Encrypt: ok=%v err=%v", ok, err)
	}
	c.Close()

	mf, err := openMapped(path, false)
	if err != nil {
		t.Fatalf("openMapped: %v", err)
	}
	mf.Bytes()[0] ^= 0xFF
	if err := mf.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	c2, ok, err := Init(pass, path, params)
	if err != nil || !ok {
		t.Fatalf("reInit: ok=%v err=%v", ok, err)
	}
	defer c2.Close()

	if authOK, err := c2.Authenticate(); err != nil || authOK {
		t.Fatalf("Authenticate: ok=%v err=%v, expected false/nil", authOK, err)
	}
	lastErr := c2.LastAuthError()
	if !IsAuthenticationError(lastErr) {
		t.Fatalf("expected Crypt.LastAuthError to retain an *AuthenticationError, got %v", lastErr)
	}
	if !errors.Is(lastErr, ErrNotAuthenticated) {
		t.Fatalf("expected errors.Is(lastErr, ErrNotAuthenticated), got %v", lastErr)
	}
}
