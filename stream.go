package saltmap

import "golang.org/x/crypto/chacha20"

// blockSize is the XChaCha20 keystream block size; initial counters
// throughout the format are expressed in units of this many bytes.
const blockSize = 64

// xorKeystreamIC XORs buf in place with the XChaCha20 keystream for
// (key, nonce) starting at block index ic. This is the format's one
// primitive operation for both keystore-entry (de)cryption and file-chunk
// (de)cryption — XChaCha20 is symmetric, so the same call serves both
// directions.
func xorKeystreamIC(buf, key, nonce []byte, ic uint32) error {
	c, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		return err
	}
	c.SetCounter(ic)
	c.XORKeyStream(buf, buf)
	return nil
}
