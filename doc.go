// Package saltmap implements a self-authenticating on-disk keystore and a
// per-file encrypt/decrypt/authenticate workflow built on Argon2id, XChaCha20,
// BLAKE2b, and Keccak-512.
//
// # Overview
//
// A directory's files are protected by a single ".keystore" file sitting
// alongside them. The keystore holds, per protected file, two random salts
// and a 64-byte commitment tag — all encrypted under a key derived from a
// shared passphrase and authenticated by a Keccak-512 hmac over the whole
// entries region. Crypt derives a second, file-specific key from the same
// passphrase and the entry's own salts, and uses it to XOR the file in
// place and to fold a per-chunk BLAKE2b tag sequence into the commitment
// recorded back in the keystore.
//
// # Basic Usage
//
//	params := saltmap.DefaultArgon2idParams()
//
//	c, ok, err := saltmap.Init("a passphrase at least 16 bytes", "/data/report.csv", params)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if !ok {
//		log.Fatal("wrong passphrase or unreadable keystore")
//	}
//	defer c.Close()
//
//	if ok, err := c.Encrypt(); err != nil || !ok {
//		log.Fatal("encrypt failed")
//	}
//
//	// later, with the same Crypt (a fresh process calls Init again first):
//	if ok, err := c.Decrypt(); err != nil || !ok {
//		log.Fatal("authentication failed or file tampered with")
//	}
//
// # Security Considerations
//
// Protected against:
//   - Unauthorized access to encrypted files at rest
//   - Tampering with the keystore itself, or with any whole 1 MiB chunk
//     of a protected file
//   - Offline brute-force attacks on the passphrase (Argon2id memory cost)
//
// Not protected against:
//   - Tampering with the trailing partial chunk of a file whose length is
//     not a multiple of 1 MiB: that chunk is encrypted but not folded into
//     the commitment, so a file shorter than 1 MiB is not authenticated at
//     all
//   - Memory dumps while a Cipher is live and not yet Zero'd
//   - Concurrent writers to the same keystore or protected file
//   - Metadata leakage (file sizes, directory layout, access times)
//
// # Key Derivation
//
// Every Cipher is derived from Argon2id with fixed lanes (2), time cost
// (3 passes) and a 64-byte raw digest per salt; only the memory cost is a
// caller-supplied knob via Argon2idParams. Two independent salts produce two
// independent 64-byte digests: one split into the XChaCha20 stream key and
// nonce, the other into the per-chunk BLAKE2b key and the final-fold key.
//
// # On-Disk Format
//
// The keystore file is a 96-byte header (crypt-salt, auth-salt, hmac)
// followed by zero or more 160-byte entries (name tag, crypt-salt,
// auth-salt, file tag), each entry encrypted independently with the
// keystore's own stream under an initial counter offset by three
// blocks per slot. Protected files carry no header of their own: they are
// XOR'd in place, 1 MiB at a time, and authenticated purely through the tag
// recorded in their keystore entry.
package saltmap
