package securebuf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Spool streams r into a temp file under dir, then loads it into memory. The file stays
// attached to the returned buffer and is overwritten and removed on Release. On any error
// the partial file is wiped before returning.
func Spool(r io.Reader, dir string, limit int64) (*Buffer, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "mp-"+uuid.NewString()+".spool")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("spool create: %w", err)
	}
	buf := &Buffer{files: []string{path}}

	n, copyErr := copyWiped(f, r, limit+1)
	if closeErr := f.Close(); copyErr == nil && closeErr != nil {
		copyErr = fmt.Errorf("spool close: %w", closeErr)
	}
	if copyErr == nil && n > limit {
		copyErr = ErrTooLarge
	}
	if copyErr != nil {
		return nil, abandon(buf, copyErr)
	}

	data := make([]byte, n)
	in, err := os.Open(path)
	if err != nil {
		return nil, abandon(buf, fmt.Errorf("spool reopen: %w", err))
	}
	_, err = io.ReadFull(in, data)
	_ = in.Close()
	if err != nil {
		clear(data)
		return nil, abandon(buf, fmt.Errorf("spool load: %w", err))
	}

	buf.data = data
	return buf, nil
}

func abandon(buf *Buffer, cause error) error {
	if err := buf.Release(); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// copyWiped copies at most limit bytes through a chunk that is zeroed afterwards.
func copyWiped(dst io.Writer, src io.Reader, limit int64) (int64, error) {
	chunk := make([]byte, chunkSize)
	defer clear(chunk)

	src = io.LimitReader(src, limit)
	var total int64
	for {
		n, err := src.Read(chunk)
		if n > 0 {
			written, werr := dst.Write(chunk[:n])
			total += int64(written)
			if werr != nil {
				return total, fmt.Errorf("spool write: %w", werr)
			}
		}
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, fmt.Errorf("spool read: %w", err)
		}
	}
}
