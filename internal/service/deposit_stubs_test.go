package service

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/noah-isme/deposit-api/internal/models"
	"github.com/noah-isme/deposit-api/internal/repository"
	"github.com/noah-isme/deposit-api/pkg/storage"
)

type depositStoreStub struct {
	mu        sync.Mutex
	deposits  map[string]*models.Deposit
	seq       int
	commitErr error
	commits   int
}

func newDepositStoreStub() *depositStoreStub {
	return &depositStoreStub{deposits: make(map[string]*models.Deposit)}
}

func (s *depositStoreStub) Create(ctx context.Context, d *models.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if d.ID == "" {
		d.ID = fmt.Sprintf("dep-%d", s.seq)
	}
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	d.Version = 1
	s.deposits[d.ID] = d.Clone()
	return nil
}

func (s *depositStoreStub) GetByID(ctx context.Context, id string) (*models.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deposits[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return d.Clone(), nil
}

func (s *depositStoreStub) Commit(ctx context.Context, d *models.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return s.commitErr
	}
	stored, ok := s.deposits[d.ID]
	if !ok || stored.Version != d.Version {
		return repository.ErrStaleVersion
	}
	seen := make(map[string]struct{}, len(d.Files))
	for _, f := range d.Files {
		if _, dup := seen[f.Filename]; dup {
			return repository.ErrDuplicateFilename
		}
		seen[f.Filename] = struct{}{}
	}
	d.Renumber()
	d.Version++
	d.UpdatedAt = time.Now().UTC()
	s.deposits[d.ID] = d.Clone()
	s.commits++
	return nil
}

func (s *depositStoreStub) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deposits[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.deposits, id)
	return nil
}

func (s *depositStoreStub) ListSummaries(ctx context.Context, filter models.DepositFilter) ([]models.DepositSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]models.DepositSummary, 0, len(s.deposits))
	for _, d := range s.deposits {
		rows = append(rows, d.Summary())
	}
	return rows, nil
}

func (s *depositStoreStub) put(d *models.Deposit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.Version == 0 {
		d.Version = 1
	}
	s.deposits[d.ID] = d.Clone()
}

type contentStub struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	putErr  error
}

func newContentStub() *contentStub {
	return &contentStub{objects: make(map[string][]byte)}
}

func (c *contentStub) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*storage.ObjectInfo, error) {
	if c.putErr != nil {
		return nil, c.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	sum := md5.Sum(data) //nolint:gosec
	c.mu.Lock()
	c.objects[key] = data
	c.mu.Unlock()
	return &storage.ObjectInfo{Key: key, Size: int64(len(data)), Checksum: "md5:" + hex.EncodeToString(sum[:])}, nil
}

func (c *contentStub) Open(ctx context.Context, key string) (*storage.Object, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return &storage.Object{ReadCloser: io.NopCloser(bytes.NewReader(data)), Size: int64(len(data))}, nil
}

func (c *contentStub) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, key)
	c.deleted = append(c.deleted, key)
	return nil
}

func (c *contentStub) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.objects)
}

type auditLoggerStub struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (a *auditLoggerStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *auditLoggerStub) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

type indexStub struct {
	mu  sync.Mutex
	ids []string
}

func (i *indexStub) Index(depositID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ids = append(i.ids, depositID)
}

func owner() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Role: models.RoleUser}
}

func stranger() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-2", Role: models.RoleUser}
}

func admin() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func draftDeposit(id string) *models.Deposit {
	return &models.Deposit{ID: id, OwnerID: "user-1", Status: models.DepositStatusDraft, Files: []models.FileEntry{}}
}

func textUpload(name, body string) FileUpload {
	return FileUpload{Filename: name, MimeType: "text/plain", Size: int64(len(body)), Content: bytes.NewBufferString(body)}
}
