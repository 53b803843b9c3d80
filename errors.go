package saltmap

import (
	"errors"
	"fmt"
)

// ValidationError represents a precondition miss: a passphrase or salt
// shorter than the format requires, or a slice of the wrong fixed length.
// The boolean result at the API boundary (Cipher.FromArgon, KeyStore.Open,
// KeyStore.AddEntry, KeyStore.GetEntry, ...) is what most callers check, but
// the error return in that same case is this type, wrapping one of the
// sentinels below, so a caller that wants detail can pull it out with
// errors.As or errors.Is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IOError wraps a file I/O failure (open, read, write, flush, mmap) with
// the operation and path that failed.
type IOError struct {
	Operation string
	Path      string
	Err       error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io: %s %s: %s", e.Operation, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// CorruptionError represents a structural problem with the on-disk format
// (wrong length, truncated region) as distinct from a cryptographic
// authentication failure.
type CorruptionError struct {
	Path    string
	Message string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corruption: %s: %s", e.Path, e.Message)
}

// AuthenticationError wraps a keyed-hash mismatch: the keystore header
// hmac, or a file's stored commitment. The boolean results the core
// surface returns are derived from whether this occurred; the error
// itself never crosses the Crypt/KeyStore API boundary as a returned
// error — it is retained on the KeyStore/Crypt instead, for inspection
// via KeyStore.AuthError/Crypt.LastAuthError.
type AuthenticationError struct {
	Path    string
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s: %s", e.Path, e.Message)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// Sentinel errors used internally with errors.Is.
var (
	ErrShortPassphrase  = errors.New("passphrase shorter than 16 bytes")
	ErrShortSalt        = errors.New("salt shorter than 16 bytes")
	ErrBadLength        = errors.New("value has the wrong fixed length")
	ErrNotAuthenticated = errors.New("keystore is not authenticated")
	ErrEntryNotFound    = errors.New("no entry for name tag")
)

func newValidationError(field, message string, sentinel error) error {
	return &ValidationError{Field: field, Message: message, Err: sentinel}
}

func newIOError(op, path string, err error) error {
	return &IOError{Operation: op, Path: path, Err: err}
}

func newCorruptionError(path, message string) error {
	return &CorruptionError{Path: path, Message: message}
}

func newAuthenticationError(path, message string, sentinel error) error {
	return &AuthenticationError{Path: path, Message: message, Err: sentinel}
}

// IsValidationError reports whether err is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsIOError reports whether err is an *IOError.
func IsIOError(err error) bool {
	var ie *IOError
	return errors.As(err, &ie)
}

// IsCorruptionError reports whether err is a *CorruptionError.
func IsCorruptionError(err error) bool {
	var ce *CorruptionError
	return errors.As(err, &ce)
}

// IsAuthenticationError reports whether err is an *AuthenticationError.
func IsAuthenticationError(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}
