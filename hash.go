package saltmap

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// keccak512 hashes the concatenation of parts with the original Keccak-512
// sponge (not NIST SHA3-512) — the hash used throughout the format for the
// keystore header hmac, the per-file name tag, and the final chunk-tag
// fold.
func keccak512(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak512()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// foldTags folds an ordered sequence of 64-byte chunk tags into a single
// Keccak-512 commitment, seeded with seed (the file Cipher's final-auth key).
// The caller must pass tags in ascending chunk-index order — the fold is
// order-sensitive by design.
func foldTags(seed []byte, tags [][]byte) []byte {
	h := sha3.NewLegacyKeccak512()
	h.Write(seed)
	for _, t := range tags {
		h.Write(t)
	}
	return h.Sum(nil)
}

// blake2bKeyed returns the 64-byte BLAKE2b digest of data keyed with key
// (the per-chunk authentication tag).
func blake2bKeyed(key, data []byte) ([]byte, error) {
	h, err := blake2b.New(64, key)
	if err != nil {
		return nil, err
	}
	h.Write(data)
	return h.Sum(nil), nil
}

// constantTimeEqual reports whether a and b are equal, without leaking
// timing information about where they first differ. Unequal lengths are
// also reported via ordinary (non-secret-dependent) length comparison.
func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// randBytes returns n cryptographically secure random bytes.
func randBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
