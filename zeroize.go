package saltmap

// zero overwrites b with zero bytes in place. Cipher.Zero, KeyStore.Close
// (for its cached current entry) and FromArgon (for the raw Argon2id output
// buffers) call this; header values and the temporary entry buffers built
// inside AddEntry, GetEntry and UpdateEntryByTag are not zeroed. Nothing in
// this module's dependency surface offers a zeroization primitive of its
// own, so it is hand-rolled.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
