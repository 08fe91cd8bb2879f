package shared

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// WriteFileAtomic writes data to path so readers observe either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := ensureParent(path); err != nil {
		return err
	}
	return renameio.WriteFile(path, data, perm)
}

// CopyFileAtomic streams r into path through a temporary file in the same directory.
//
// The destination only appears once the stream completes. progress, when non-nil,
// is called with the cumulative number of bytes written after each chunk.
func CopyFileAtomic(path string, r io.Reader, progress func(written int64)) (int64, error) {
	if err := ensureParent(path); err != nil {
		return 0, err
	}

	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0644))
	if err != nil {
		return 0, fmt.Errorf("failed to create pending file: %w", err)
	}
	defer pf.Cleanup()

	var written int64
	buf := make([]byte, 256*1024)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := pf.Write(buf[:n]); werr != nil {
				return written, fmt.Errorf("failed to write %s: %w", filepath.Base(path), werr)
			}
			written += int64(n)
			if progress != nil {
				progress(written)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return written, fmt.Errorf("failed to read stream: %w", rerr)
		}
	}

	if err := pf.CloseAtomicallyReplace(); err != nil {
		return written, fmt.Errorf("failed to finalize %s: %w", filepath.Base(path), err)
	}
	return written, nil
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
