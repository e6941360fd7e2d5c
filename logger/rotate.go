package logger

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// RotatingFile is a size-bounded append-only file sink. No rotation
// library appears anywhere in the retrieval pack; this hand-rolls the
// same single-file-append-then-rename shape as
// nabbar-golib/logger/hookfile.go.
type RotatingFile struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	file     *os.File
	size     int64
}

// NewRotatingFile opens (or creates) path for append and rotates it
// once it exceeds maxBytes.
func NewRotatingFile(path string, maxBytes int64) (*RotatingFile, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("logger: stat %s: %w", path, err)
	}
	return &RotatingFile{path: path, maxBytes: maxBytes, file: f, size: info.Size()}, nil
}

func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxBytes > 0 && r.size+int64(len(p)) > r.maxBytes {
		if err := r.rotateLocked(); err != nil {
			return 0, err
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *RotatingFile) rotateLocked() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("logger: close %s: %w", r.path, err)
	}
	rotated := fmt.Sprintf("%s.%d", r.path, time.Now().UnixNano())
	if err := os.Rename(r.path, rotated); err != nil {
		return fmt.Errorf("logger: rotate %s: %w", r.path, err)
	}
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("logger: reopen %s: %w", r.path, err)
	}
	r.file = f
	r.size = 0
	return nil
}

func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}
