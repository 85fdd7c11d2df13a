package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const tempSuffix = ".tmp"

// LocalStorage persists file content on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./data/files"
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: abs}, nil
}

// Put streams r into key. Content goes to a temp file first and is renamed
// into place only after it has been fully written and synced, so readers
// never observe a partial object.
func (s *LocalStorage) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) (*ObjectInfo, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("prepare content directory: %w", err)
	}
	tmpPath := path + tempSuffix
	file, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create content file: %w", err)
	}

	src := newChecksumReader(&contextReader{ctx: ctx, r: r})
	if _, err := io.Copy(file, src); err != nil {
		file.Close() //nolint:errcheck
		os.Remove(tmpPath) //nolint:errcheck
		return nil, fmt.Errorf("write content stream: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close() //nolint:errcheck
		os.Remove(tmpPath) //nolint:errcheck
		return nil, fmt.Errorf("sync content file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return nil, fmt.Errorf("close content file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return nil, fmt.Errorf("commit content file: %w", err)
	}
	return &ObjectInfo{Key: key, Size: src.read, Checksum: src.Checksum()}, nil
}

// Open returns a read-only handle for the stored content.
func (s *LocalStorage) Open(_ context.Context, key string) (*Object, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open content file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, fmt.Errorf("stat content file: %w", err)
	}
	return &Object{ReadCloser: file, Size: info.Size()}, nil
}

// Delete removes stored content if present.
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete content file: %w", err)
	}
	return nil
}

// CleanupTemp removes temp files left behind by interrupted uploads that are
// older than ttl and returns their relative paths.
func (s *LocalStorage) CleanupTemp(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	deleted := make([]string, 0)
	err := filepath.WalkDir(s.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, tempSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			rel = path
		}
		deleted = append(deleted, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup temp content: %w", err)
	}
	return deleted, nil
}

// resolve maps key to a path inside baseDir, rejecting keys that escape it.
func (s *LocalStorage) resolve(key string) (string, error) {
	if key == "" || filepath.IsAbs(key) {
		return "", fmt.Errorf("invalid content key %q", key)
	}
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.baseDir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid content key %q", key)
	}
	return path, nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
