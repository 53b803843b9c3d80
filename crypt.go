package saltmap

import "strings"

// Crypt is the per-file operation façade: given a passphrase and a file
// path, it resolves or creates the matching keystore entry, derives a
// file-specific Cipher from that entry's salts, and performs chunked
// parallel encrypt/decrypt/verify against the file's memory map, updating
// the entry's stored tag on encrypt.
type Crypt struct {
	path       string
	cipher     *Cipher
	keystore   *KeyStore
	nameTag    [tagLen]byte
	maxWorkers int

	authChecked bool
	authOK      bool
	authErr     error
}

// Init resolves the keystore in path's directory, authenticating it with
// pass, and either loads or creates the entry for path. It reports
// (nil, false, err) if the passphrase fails the format's length
// precondition — err is then a *ValidationError, inspectable with
// errors.As — or (nil, false, nil) if the keystore exists but fails to
// authenticate (that failure's detail never crosses this boundary; it is
// not retrievable once Init discards the keystore).
func Init(pass, path string, params Argon2idParams) (*Crypt, bool, error) {
	ksPath := keystorePathFor(path)

	ks, ok, err := Open(pass, ksPath, params)
	if !ok {
		return nil, false, err
	}
	if err != nil {
		return nil, true, err
	}
	if !ks.Authenticated() {
		ks.Close()
		return nil, false, nil
	}

	nameTag := keccak512(ks.cipher.FinalAuthKey(), []byte(path))

	_, found, err := ks.GetEntry(nameTag)
	if err != nil {
		ks.Close()
		return nil, true, err
	}

	if !found {
		csalt, err := randBytes(saltLen)
		if err != nil {
			ks.Close()
			return nil, true, newIOError("rand", path, err)
		}
		asalt, err := randBytes(saltLen)
		if err != nil {
			ks.Close()
			return nil, true, newIOError("rand", path, err)
		}
		zeroTag := make([]byte, tagLen)

		added, err := ks.AddEntry(nameTag, csalt, asalt, zeroTag)
		if err != nil {
			ks.Close()
			return nil, true, err
		}
		if !added {
			ks.Close()
			return nil, false, nil
		}
		if _, found, err = ks.GetEntry(nameTag); err != nil {
			ks.Close()
			return nil, true, err
		} else if !found {
			ks.Close()
			return nil, true, newCorruptionError(ksPath, "entry vanished immediately after insert")
		}
	}

	cipher, ok, verr := FromArgon(pass, ks.CurrentCSalt(), ks.CurrentASalt(), params)
	if !ok {
		ks.Close()
		return nil, false, verr
	}

	c := &Crypt{path: path, cipher: cipher, keystore: ks}
	copy(c.nameTag[:], nameTag)
	return c, true, nil
}

// keystorePathFor returns dir + ".keystore", where dir is path up to and
// including its last "/" (or "" if path has no directory component).
func keystorePathFor(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i+1] + ".keystore"
	}
	return ".keystore"
}

// Close zeroizes the Crypt's own cipher and its keystore's cipher.
func (c *Crypt) Close() {
	c.cipher.Zero()
	c.keystore.Close()
}

// Encrypt memory-maps the file, XORs each 1 MiB chunk in place with the
// XChaCha20 keystream at that chunk's initial counter, folds the ordered
// per-chunk BLAKE2b tags into a final Keccak-512 commitment, and records
// that commitment in the keystore entry.
func (c *Crypt) Encrypt() (bool, error) {
	mf, err := openMapped(c.path, false)
	if err != nil {
		return false, err
	}

	data := mf.Bytes()
	size := int64(len(data))
	ranges := planChunks(size)
	tags := make([][]byte, len(ranges))

	err = runParallel(len(ranges), c.maxWorkers, func(i int) error {
		r := ranges[i]
		buf := data[r.start:r.end]
		if err := xorKeystreamIC(buf, c.cipher.StreamKey(), c.cipher.StreamNonce(), uint32(r.index*blocksPerChunk)); err != nil {
			return err
		}
		tag, err := blake2bKeyed(c.cipher.AuthKey(), buf)
		if err != nil {
			return err
		}
		tags[i] = tag
		return nil
	})
	if err != nil {
		mf.Close()
		return false, err
	}

	folded := foldedChunkCount(size)
	fileTag := foldTags(c.cipher.FinalAuthKey(), tags[:folded])

	if err := mf.Close(); err != nil {
		return false, err
	}

	ok, err := c.keystore.UpdateEntryByTag(c.nameTag[:], fileTag)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	c.authChecked = true
	c.authOK = true
	return true, nil
}

// Authenticate recomputes the chunked BLAKE2b/Keccak commitment over the
// file as currently stored (no decryption) and compares it against the
// keystore's recorded tag in constant time, without mutating either the
// file or the keystore.
func (c *Crypt) Authenticate() (bool, error) {
	mf, err := openMapped(c.path, false)
	if err != nil {
		return false, err
	}
	defer mf.Close()

	data := mf.Bytes()
	size := int64(len(data))
	ranges := planChunks(size)
	tags := make([][]byte, len(ranges))

	err = runParallel(len(ranges), c.maxWorkers, func(i int) error {
		r := ranges[i]
		tag, err := blake2bKeyed(c.cipher.AuthKey(), data[r.start:r.end])
		if err != nil {
			return err
		}
		tags[i] = tag
		return nil
	})
	if err != nil {
		return false, err
	}

	folded := foldedChunkCount(size)
	found := foldTags(c.cipher.FinalAuthKey(), tags[:folded])

	ok := constantTimeEqual(found, c.keystore.CurrentFileTag())
	c.authChecked = true
	c.authOK = ok
	if ok {
		c.authErr = nil
	} else {
		c.authErr = newAuthenticationError(c.path, "file tag mismatch", ErrNotAuthenticated)
	}
	return ok, nil
}

// LastAuthError returns the *AuthenticationError recorded by the most
// recent Authenticate (including one run implicitly by Decrypt), or nil if
// that check passed or none has run yet. Like KeyStore.AuthError, it never
// crosses the normal error-return boundary of Authenticate/Decrypt itself.
func (c *Crypt) LastAuthError() error {
	return c.authErr
}

// Decrypt authenticates the file first (unless already checked this
// session) and, on success, memory-maps it read-write and XORs each chunk
// with the inverse keystream — XChaCha20 is symmetric, so this is the same
// xorKeystreamIC call Encrypt used. The keystore is not touched.
func (c *Crypt) Decrypt() (bool, error) {
	if !c.authChecked {
		ok, err := c.Authenticate()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	} else if !c.authOK {
		return false, nil
	}

	mf, err := openMapped(c.path, false)
	if err != nil {
		return false, err
	}
	defer mf.Close()

	data := mf.Bytes()
	ranges := planChunks(int64(len(data)))

	err = runParallel(len(ranges), c.maxWorkers, func(i int) error {
		r := ranges[i]
		return xorKeystreamIC(data[r.start:r.end], c.cipher.StreamKey(), c.cipher.StreamNonce(), uint32(r.index*blocksPerChunk))
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
