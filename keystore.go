package saltmap

import (
	"os"
)

const (
	saltLen    = 16
	tagLen     = 64
	headerSize = saltLen + saltLen + tagLen // 96
	entrySize  = tagLen + saltLen + saltLen + tagLen // 160

	// entryBlockStride is the number of 64-byte XChaCha20 blocks reserved
	// per entry slot. An entry is 160 bytes (2.5 blocks); the stride is
	// rounded up to 3 blocks so consecutive entries never share a block of
	// keystream.
	entryBlockStride = 3
)

var noEntriesSentinel = []byte("no entries")

// header is the keystore's 96-byte on-disk prefix.
type header struct {
	csalt [saltLen]byte
	asalt [saltLen]byte
	hmac  [tagLen]byte
}

func (h *header) bytes() []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:16], h.csalt[:])
	copy(buf[16:32], h.asalt[:])
	copy(buf[32:96], h.hmac[:])
	return buf
}

func headerFromBytes(b []byte) *header {
	h := &header{}
	copy(h.csalt[:], b[0:16])
	copy(h.asalt[:], b[16:32])
	copy(h.hmac[:], b[32:96])
	return h
}

// entry is the keystore's 160-byte per-file record.
type entry struct {
	nameTag [tagLen]byte
	csalt   [saltLen]byte
	asalt   [saltLen]byte
	fileTag [tagLen]byte
}

func (e *entry) bytes() []byte {
	buf := make([]byte, entrySize)
	copy(buf[0:64], e.nameTag[:])
	copy(buf[64:80], e.csalt[:])
	copy(buf[80:96], e.asalt[:])
	copy(buf[96:160], e.fileTag[:])
	return buf
}

func entryFromBytes(b []byte) *entry {
	e := &entry{}
	copy(e.nameTag[:], b[0:64])
	copy(e.csalt[:], b[64:80])
	copy(e.asalt[:], b[80:96])
	copy(e.fileTag[:], b[96:160])
	return e
}

func (e *entry) zero() {
	zero(e.nameTag[:])
	zero(e.csalt[:])
	zero(e.asalt[:])
	zero(e.fileTag[:])
}

// KeyStore owns the on-disk keystore file: a 96-byte header plus a
// sequence of 160-byte entries, the entries encrypted under the
// keystore's own XChaCha20 stream and the whole trailing region
// authenticated by a Keccak-512 hmac stored in the header.
//
// Not safe for concurrent use by multiple goroutines, and not safe for two
// processes to operate on the same file simultaneously.
type KeyStore struct {
	path          string
	cipher        *Cipher
	authenticated bool
	authErr       error

	current      entry
	currentIndex int
	haveCurrent  bool
}

// Open creates a new keystore at path if none exists, or opens and
// authenticates an existing one. Whenever the returned error is nil the
// *KeyStore is non-nil, including when authentication failed; callers
// must check Authenticated() before performing any mutating operation.
// The second return value is false only when the passphrase is shorter
// than the format's 16-byte minimum — a precondition miss, not a runtime
// fault. In that case the returned error is a *ValidationError (see
// Cipher.FromArgon); every other non-nil error is a genuine I/O fault.
func Open(pass, path string, params Argon2idParams) (*KeyStore, bool, error) {
	_, statErr := os.Stat(path)
	switch {
	case os.IsNotExist(statErr):
		return createKeyStore(pass, path, params)
	case statErr != nil:
		return nil, true, newIOError("stat", path, statErr)
	default:
		return openKeyStore(pass, path, params)
	}
}

func createKeyStore(pass, path string, params Argon2idParams) (*KeyStore, bool, error) {
	csalt, err := randBytes(saltLen)
	if err != nil {
		return nil, true, newIOError("rand", path, err)
	}
	asalt, err := randBytes(saltLen)
	if err != nil {
		return nil, true, newIOError("rand", path, err)
	}

	cipher, ok, verr := FromArgon(pass, csalt, asalt, params)
	if !ok {
		return nil, false, verr
	}

	h := &header{}
	copy(h.csalt[:], csalt)
	copy(h.asalt[:], asalt)
	copy(h.hmac[:], keccak512(cipher.AuthKey(), cipher.FinalAuthKey(), noEntriesSentinel))

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		cipher.Zero()
		return nil, true, newIOError("open", path, err)
	}
	defer f.Close()
	if _, err := f.Write(h.bytes()); err != nil {
		cipher.Zero()
		return nil, true, newIOError("write", path, err)
	}

	return &KeyStore{path: path, cipher: cipher, authenticated: true}, true, nil
}

func openKeyStore(pass, path string, params Argon2idParams) (*KeyStore, bool, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		return nil, true, newIOError("open", path, err)
	}
	defer f.Close()

	raw := make([]byte, headerSize)
	if _, err := readFull(f, raw); err != nil {
		return nil, true, newIOError("read", path, err)
	}
	h := headerFromBytes(raw)

	cipher, ok, verr := FromArgon(pass, h.csalt[:], h.asalt[:], params)
	if !ok {
		return nil, false, verr
	}

	info, err := f.Stat()
	if err != nil {
		cipher.Zero()
		return nil, true, newIOError("stat", path, err)
	}

	var tail []byte
	if info.Size() > headerSize {
		tail = make([]byte, info.Size()-headerSize)
		if _, err := f.ReadAt(tail, headerSize); err != nil {
			cipher.Zero()
			return nil, true, newIOError("read", path, err)
		}
	} else {
		tail = noEntriesSentinel
	}

	computed := keccak512(cipher.AuthKey(), cipher.FinalAuthKey(), tail)
	authenticated := constantTimeEqual(computed, h.hmac[:])

	var authErr error
	if !authenticated {
		authErr = newAuthenticationError(path, "header hmac mismatch", ErrNotAuthenticated)
	}

	return &KeyStore{path: path, cipher: cipher, authenticated: authenticated, authErr: authErr}, true, nil
}

// Authenticated reports whether the keystore's header hmac matched on
// open. Every mutating operation below refuses (returns false, nil) when
// this is false.
func (ks *KeyStore) Authenticated() bool {
	return ks.authenticated
}

// AuthError returns the *AuthenticationError recorded when the header hmac
// failed to verify on open, or nil if the keystore authenticated. It never
// crosses the normal error-return boundary of Open/AddEntry/GetEntry/
// UpdateEntryByTag — callers that want the reason behind Authenticated()
// being false call this explicitly.
func (ks *KeyStore) AuthError() error {
	return ks.authErr
}

// Close zeroizes the keystore's cipher and any cached entry.
func (ks *KeyStore) Close() {
	ks.current.zero()
	ks.cipher.Zero()
}

// CurrentCSalt returns the per-file crypt-salt of the most recently
// loaded entry (via GetEntry or AddEntry+GetEntry).
func (ks *KeyStore) CurrentCSalt() []byte { return ks.current.csalt[:] }

// CurrentASalt returns the per-file auth-salt of the most recently
// loaded entry.
func (ks *KeyStore) CurrentASalt() []byte { return ks.current.asalt[:] }

// CurrentFileTag returns the stored commitment of the most recently
// loaded entry.
func (ks *KeyStore) CurrentFileTag() []byte { return ks.current.fileTag[:] }

// AddEntry appends a new encrypted entry and re-issues the header hmac
// over the extended tail. Refuses (returns false, nil) if the keystore is
// not authenticated; if any argument has the wrong fixed length it returns
// false with a *ValidationError wrapping ErrBadLength.
func (ks *KeyStore) AddEntry(nameTag, csalt, asalt, fileTag []byte) (bool, error) {
	if len(nameTag) != tagLen || len(csalt) != saltLen || len(asalt) != saltLen || len(fileTag) != tagLen {
		return false, newValidationError("entry", "nameTag/csalt/asalt/fileTag have the wrong fixed length", ErrBadLength)
	}
	if !ks.authenticated {
		return false, nil
	}

	e := &entry{}
	copy(e.nameTag[:], nameTag)
	copy(e.csalt[:], csalt)
	copy(e.asalt[:], asalt)
	copy(e.fileTag[:], fileTag)
	plain := e.bytes()

	info, err := os.Stat(ks.path)
	if err != nil {
		return false, newIOError("stat", ks.path, err)
	}
	count := (info.Size() - headerSize) / entrySize

	if err := xorKeystreamIC(plain, ks.cipher.StreamKey(), ks.cipher.StreamNonce(), uint32(count*entryBlockStride)); err != nil {
		return false, newIOError("encrypt", ks.path, err)
	}

	f, err := os.OpenFile(ks.path, os.O_RDWR|os.O_APPEND, 0600)
	if err != nil {
		return false, newIOError("open", ks.path, err)
	}
	_, werr := f.Write(plain)
	cerr := f.Close()
	if werr != nil {
		return false, newIOError("write", ks.path, werr)
	}
	if cerr != nil {
		return false, newIOError("close", ks.path, cerr)
	}

	if err := ks.updateHMAC(); err != nil {
		return false, err
	}
	return true, nil
}

// GetEntry scans the entries region in order, decrypting each slot into
// ks.current and comparing its name tag against nameTag in constant time.
// On a match it reports (index, true, nil); on a miss (0, false, nil) —
// ks.current is left holding the last slot scanned either way.
func (ks *KeyStore) GetEntry(nameTag []byte) (int, bool, error) {
	if len(nameTag) != tagLen {
		return 0, false, newValidationError("nameTag", "must be exactly tagLen bytes", ErrBadLength)
	}
	if !ks.authenticated {
		return 0, false, nil
	}

	mf, err := openMapped(ks.path, false)
	if err != nil {
		return 0, false, err
	}
	defer mf.Close()

	region := mf.Bytes()
	if len(region) <= headerSize {
		return 0, false, nil
	}
	tail := region[headerSize:]

	count := len(tail) / entrySize
	for i := 0; i < count; i++ {
		slot := make([]byte, entrySize)
		copy(slot, tail[i*entrySize:(i+1)*entrySize])

		if err := xorKeystreamIC(slot, ks.cipher.StreamKey(), ks.cipher.StreamNonce(), uint32(i*entryBlockStride)); err != nil {
			return 0, false, newIOError("decrypt", ks.path, err)
		}

		e := entryFromBytes(slot)
		ks.current = *e
		ks.currentIndex = i
		ks.haveCurrent = true

		if constantTimeEqual(e.nameTag[:], nameTag) {
			return i, true, nil
		}
	}
	return 0, false, nil
}

// UpdateEntryByTag overwrites the stored file tag for the entry matching
// nameTag and re-issues the header hmac. If the in-memory current entry
// does not already match nameTag, GetEntry is run first; the operation
// fails (false, nil) if no entry matches.
func (ks *KeyStore) UpdateEntryByTag(nameTag, newFileTag []byte) (bool, error) {
	if len(nameTag) != tagLen || len(newFileTag) != tagLen {
		return false, newValidationError("entry", "nameTag/newFileTag have the wrong fixed length", ErrBadLength)
	}
	if !ks.authenticated {
		return false, nil
	}

	if !ks.haveCurrent || !constantTimeEqual(ks.current.nameTag[:], nameTag) {
		idx, found, err := ks.GetEntry(nameTag)
		if err != nil {
			return false, err
		}
		if !found {
			return false, nil
		}
		ks.currentIndex = idx
	}

	copy(ks.current.fileTag[:], newFileTag)
	plain := ks.current.bytes()

	if err := xorKeystreamIC(plain, ks.cipher.StreamKey(), ks.cipher.StreamNonce(), uint32(ks.currentIndex*entryBlockStride)); err != nil {
		return false, newIOError("encrypt", ks.path, err)
	}

	f, err := os.OpenFile(ks.path, os.O_RDWR, 0600)
	if err != nil {
		return false, newIOError("open", ks.path, err)
	}
	offset := int64(headerSize + ks.currentIndex*entrySize)
	_, werr := f.WriteAt(plain, offset)
	serr := f.Sync()
	cerr := f.Close()
	if werr != nil {
		return false, newIOError("write", ks.path, werr)
	}
	if serr != nil {
		return false, newIOError("sync", ks.path, serr)
	}
	if cerr != nil {
		return false, newIOError("close", ks.path, cerr)
	}

	if err := ks.updateHMAC(); err != nil {
		return false, err
	}
	return true, nil
}

// updateHMAC recomputes Keccak-512(authKey || finalAuthKey || tail) over
// the current on-disk entries region and rewrites header[32:96].
func (ks *KeyStore) updateHMAC() error {
	mf, err := openMapped(ks.path, false)
	if err != nil {
		return err
	}

	region := mf.Bytes()
	var tail []byte
	if len(region) > headerSize {
		tail = region[headerSize:]
	} else {
		tail = noEntriesSentinel
	}

	digest := keccak512(ks.cipher.AuthKey(), ks.cipher.FinalAuthKey(), tail)
	copy(region[32:96], digest)
	return mf.Close()
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
