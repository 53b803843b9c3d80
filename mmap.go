package saltmap

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// mappedFile is a read-write memory map of an entire *os.File, closed by
// unmapping (which also flushes) before the underlying file handle is
// closed. Both KeyStore (the entries region) and Crypt (the protected
// file) go through this wrapper rather than calling mmap.Map
// directly, so the flush/unmap/close ordering lives in one place.
type mappedFile struct {
	f   *os.File
	m   mmap.MMap
	own bool
}

// openMapped opens path read-write (creating it if create is true) and
// memory-maps its entire current contents. The file must be non-empty to
// map; callers that need to grow the file first (KeyStore.AddEntry) do the
// truncate/append with ordinary writes and only mmap afterward.
func openMapped(path string, create bool) (*mappedFile, error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0600)
	if err != nil {
		return nil, newIOError("open", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, newIOError("stat", path, err)
	}
	if info.Size() == 0 {
		return &mappedFile{f: f}, nil
	}

	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, newIOError("mmap", path, err)
	}
	return &mappedFile{f: f, m: m}, nil
}

// Bytes returns the mapped region, or nil if the file was empty at open
// time.
func (mf *mappedFile) Bytes() []byte {
	return mf.m
}

// Close flushes and unmaps the region (if any) and closes the file.
func (mf *mappedFile) Close() error {
	var err error
	if mf.m != nil {
		if ferr := mf.m.Flush(); ferr != nil {
			err = ferr
		}
		if uerr := mf.m.Unmap(); uerr != nil && err == nil {
			err = uerr
		}
	}
	if cerr := mf.f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
