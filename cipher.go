package saltmap

import (
	"golang.org/x/crypto/argon2"
)

// Argon2id parameters fixed by the format: two lanes, three passes, a
// 64-byte raw digest per salt, version 0x13. Only the memory cost is a
// caller-supplied knob.
const (
	argon2Lanes      = 2
	argon2Time       = 3
	argon2RawKeyLen  = 64
	minSaltLen       = 16
	minPassphraseLen = 16

	streamKeyLen   = 32
	streamNonceLen = 24
	authKeyLen     = 16
	finalKeyLen    = 16
)

// Argon2idParams controls the memory cost of the KDF. Everything else about
// the derivation (lanes, time cost, output length, version) is pinned by the
// format and is not configurable.
type Argon2idParams struct {
	MemoryKiB uint32
}

// DefaultArgon2idParams returns a moderate memory cost (64 MiB) suitable
// for tests and interactive use.
func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{MemoryKiB: 64 * 1024}
}

// ProductionArgon2idParams returns a higher memory cost suitable for
// protecting real data at rest.
func ProductionArgon2idParams() Argon2idParams {
	return Argon2idParams{MemoryKiB: 512 * 1024}
}

// Cipher holds the four secrets derived from a passphrase and two
// independent salts: the XChaCha20 stream key and nonce, and the two
// BLAKE2b/Keccak authentication keys. Every instance must be released with
// Zero once it is no longer needed.
type Cipher struct {
	streamKey    [streamKeyLen]byte
	streamNonce  [streamNonceLen]byte
	authKey      [authKeyLen]byte
	finalAuthKey [finalKeyLen]byte
	zeroed       bool
}

// FromArgon derives a Cipher from a passphrase and two independent salts.
// It reports false if the passphrase or either salt is shorter than the
// format's 16-byte minimum — a precondition miss, not a runtime fault. In
// that case the returned error is always a *ValidationError wrapping
// ErrShortPassphrase or ErrShortSalt, so a caller that only checks the bool
// can ignore it, while one that wants detail (tests, the CLI's verbose
// mode) can pull it out with errors.As/errors.Is.
func FromArgon(pass string, csalt, asalt []byte, params Argon2idParams) (*Cipher, bool, error) {
	if len(pass) < minPassphraseLen {
		return nil, false, newValidationError("passphrase", "shorter than the 16-byte minimum", ErrShortPassphrase)
	}
	if len(csalt) < minSaltLen {
		return nil, false, newValidationError("csalt", "shorter than the 16-byte minimum", ErrShortSalt)
	}
	if len(asalt) < minSaltLen {
		return nil, false, newValidationError("asalt", "shorter than the 16-byte minimum", ErrShortSalt)
	}

	passBytes := []byte(pass)
	craw := argon2.IDKey(passBytes, csalt, argon2Time, params.MemoryKiB, argon2Lanes, argon2RawKeyLen)
	araw := argon2.IDKey(passBytes, asalt, argon2Time, params.MemoryKiB, argon2Lanes, argon2RawKeyLen)
	defer zero(craw)
	defer zero(araw)

	c := &Cipher{}
	copy(c.streamKey[:], craw[0:streamKeyLen])
	copy(c.streamNonce[:], craw[streamKeyLen:streamKeyLen+streamNonceLen])
	copy(c.authKey[:], araw[0:authKeyLen])
	copy(c.finalAuthKey[:], araw[authKeyLen:authKeyLen+finalKeyLen])

	return c, true, nil
}

// StreamKey returns the 32-byte XChaCha20 key.
func (c *Cipher) StreamKey() []byte { return c.streamKey[:] }

// StreamNonce returns the 24-byte XChaCha20 nonce.
func (c *Cipher) StreamNonce() []byte { return c.streamNonce[:] }

// AuthKey returns the 16-byte BLAKE2b per-chunk authentication key.
func (c *Cipher) AuthKey() []byte { return c.authKey[:] }

// FinalAuthKey returns the 16-byte key seeding the final Keccak-512 fold
// and the keystore/name-tag hmacs.
func (c *Cipher) FinalAuthKey() []byte { return c.finalAuthKey[:] }

// Zero overwrites every derived secret with zeros. Safe to call more than
// once.
func (c *Cipher) Zero() {
	if c == nil || c.zeroed {
		return
	}
	zero(c.streamKey[:])
	zero(c.streamNonce[:])
	zero(c.authKey[:])
	zero(c.finalAuthKey[:])
	c.zeroed = true
}

// Debug returns a redacted description of the Cipher's state: lengths and a
// live/zeroed flag, never the secret bytes themselves.
func (c *Cipher) Debug() string {
	if c == nil {
		return "Cipher(nil)"
	}
	state := "live"
	if c.zeroed {
		state = "zeroed"
	}
	return "Cipher(stream=32+24, auth=16+16, state=" + state + ")"
}
