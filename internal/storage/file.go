package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// MaxConfigSize bounds how much of a configuration file is read.
const MaxConfigSize = 4 * 1024 * 1024 // 4MB

var (
	ErrFileTooLarge = errors.New("file exceeds size limit")
	ErrNotRegular   = errors.New("not a regular file")
)

// ReadFile reads a regular file of at most limit bytes.
func ReadFile(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegular, path)
	}
	if info.Size() > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrFileTooLarge, path, info.Size(), limit)
	}

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s (max %d)", ErrFileTooLarge, path, limit)
	}
	return data, nil
}
