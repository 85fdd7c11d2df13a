package storage

import (
	"context"
	"crypto/md5" //nolint:gosec // md5 is the content checksum format, not a security primitive
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"

	"go.uber.org/zap"

	"github.com/noah-isme/deposit-api/pkg/config"
)

// ErrObjectNotFound is returned when a content key has no stored object.
var ErrObjectNotFound = errors.New("storage: object not found")

// ChecksumAlgorithm prefixes every checksum produced by the content stores.
const ChecksumAlgorithm = "md5"

// ObjectInfo describes content persisted under a key.
type ObjectInfo struct {
	Key      string
	Size     int64
	Checksum string
}

// Object is an open handle on stored content. Callers must close it.
type Object struct {
	io.ReadCloser
	Size int64
}

// ContentStore persists raw file bytes addressed by key.
type ContentStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*ObjectInfo, error)
	Open(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// NewContentStore builds the content backend selected by cfg.Driver.
func NewContentStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (ContentStore, error) {
	switch cfg.Driver {
	case "", config.StorageDriverLocal:
		return NewLocalStorage(cfg.Dir)
	case config.StorageDriverMinio:
		return NewMinioStorage(ctx, cfg.Minio, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// checksumReader hashes everything read through it.
type checksumReader struct {
	r    io.Reader
	h    hash.Hash
	read int64
}

func newChecksumReader(r io.Reader) *checksumReader {
	return &checksumReader{r: r, h: md5.New()} //nolint:gosec
}

func (c *checksumReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		_, _ = c.h.Write(p[:n])
		c.read += int64(n)
	}
	return n, err
}

func (c *checksumReader) Checksum() string {
	return ChecksumAlgorithm + ":" + hex.EncodeToString(c.h.Sum(nil))
}
