// Package securebuf owns document bytes while they are processed and wipes them on release.
//
// Release zero-fills the full backing array of the buffer and overwrites any file the bytes
// were spooled to before unlinking it. The guarantee is process-visible only: the Go runtime
// may have moved or copied memory, the kernel may have paged it to swap, the filesystem may
// keep old blocks, and extraction libraries can hold their own copies. On the HTTP path the
// multipart reader buffers the part body in its own bufio.Reader before the bytes reach
// this package, and net/http may hold request bytes in its connection buffers. None of
// that is covered here.
package securebuf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

const (
	chunkSize   = 32 << 10
	initialSize = 512
)

var (
	// ErrTooLarge is returned when the source holds more bytes than the configured limit.
	ErrTooLarge = errors.New("document exceeds size limit")
	// ErrWipeFailed is returned when memory or spooled storage could not be wiped.
	ErrWipeFailed = errors.New("wipe failed")
)

// Buffer holds the raw bytes of one document. It is owned by a single request.
type Buffer struct {
	mu       sync.Mutex
	data     []byte
	files    []string
	released bool
	err      error
}

// Acquire takes ownership of data. The caller must not use data after Release.
func Acquire(data []byte) *Buffer {
	return &Buffer{data: data}
}

// ReadAll reads r into a new buffer, rejecting sources larger than limit.
// Intermediate arrays are zeroed when the buffer grows.
func ReadAll(r io.Reader, limit int64) (*Buffer, error) {
	data, err := readAllWiped(r, limit)
	if err != nil {
		return nil, err
	}
	return &Buffer{data: data}, nil
}

// Attach records a file holding a copy of the bytes so Release overwrites and removes it.
func (b *Buffer) Attach(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files = append(b.files, path)
}

// Bytes returns the document bytes, or nil once the buffer has been released.
// The slice aliases the buffer and must not be retained past Release.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return nil
	}
	return b.data
}

// Len returns the document length in bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Released reports whether Release has run.
func (b *Buffer) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

// Release wipes memory and spooled files. Only the first call does work; later calls
// return the first call's result.
func (b *Buffer) Release() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return b.err
	}
	b.released = true

	var errs []error
	full := b.data[:cap(b.data)]
	clear(full)
	if !allZero(full) {
		errs = append(errs, errors.New("memory region not zeroed"))
	}
	b.data = nil

	for _, path := range b.files {
		if err := wipeFile(path); err != nil {
			errs = append(errs, err)
		}
	}
	b.files = nil

	if len(errs) > 0 {
		b.err = fmt.Errorf("%w: %w", ErrWipeFailed, errors.Join(errs...))
	}
	return b.err
}

func readAllWiped(r io.Reader, limit int64) ([]byte, error) {
	data := make([]byte, 0, initialSize)
	for {
		if len(data) == cap(data) {
			grown := make([]byte, len(data), 2*cap(data))
			copy(grown, data)
			clear(data[:cap(data)])
			data = grown
		}
		n, err := r.Read(data[len(data):cap(data)])
		data = data[:len(data)+n]
		if int64(len(data)) > limit {
			clear(data[:cap(data)])
			return nil, ErrTooLarge
		}
		if errors.Is(err, io.EOF) {
			return data, nil
		}
		if err != nil {
			clear(data[:cap(data)])
			return nil, fmt.Errorf("read document: %w", err)
		}
	}
}

// wipeFile overwrites the full byte range of path with zeros, syncs it and unlinks it.
func wipeFile(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat %s: %w", path, err)
	}

	zeros := make([]byte, chunkSize)
	remaining := info.Size()
	var offset int64
	for remaining > 0 {
		n := int64(len(zeros))
		if remaining < n {
			n = remaining
		}
		written, err := f.WriteAt(zeros[:n], offset)
		if err != nil {
			_ = f.Close()
			return fmt.Errorf("overwrite %s: %w", path, err)
		}
		offset += int64(written)
		remaining -= int64(written)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
