package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/deposit-api/internal/models"
	appErrors "github.com/noah-isme/deposit-api/pkg/errors"
	"github.com/noah-isme/deposit-api/pkg/storage"
)

// File operation labels used for metrics.
const (
	opUpload   = "upload"
	opRename   = "rename"
	opReorder  = "reorder"
	opDelete   = "delete"
	opDownload = "download"
)

type fileContentStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*storage.ObjectInfo, error)
	Open(ctx context.Context, key string) (*storage.Object, error)
	Delete(ctx context.Context, key string) error
}

type downloadSigner interface {
	Generate(fileID, key string) (string, time.Time, error)
	Parse(token string) (fileID, key string, expiresAt time.Time, err error)
}

// FileUpload carries one uploaded file stream. Size is -1 when unknown.
type FileUpload struct {
	Filename string
	MimeType string
	Size     int64
	Content  io.Reader
}

// FileDownload is an open content stream for a deposit file.
type FileDownload struct {
	Content   io.ReadCloser
	Filename  string
	MimeType  string
	SizeBytes int64
	Checksum  string
	ExpiresAt time.Time
}

// DepositFileServiceConfig bounds what a draft may hold.
type DepositFileServiceConfig struct {
	MaxFileSize int64
	MaxFiles    int
	APIPrefix   string
}

// DepositFileService mediates every change to the files of a draft deposit.
type DepositFileService struct {
	depositAccess
	content fileContentStore
	signer  downloadSigner
	locker  Locker
	cfg     DepositFileServiceConfig
}

// NewDepositFileService constructs the service with defaults.
func NewDepositFileService(store depositStore, content fileContentStore, locker Locker, signer downloadSigner, audit auditLogger, index depositIndexer, metrics *MetricsService, logger *zap.Logger, cfg DepositFileServiceConfig) *DepositFileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewKeyedLocker()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 100 * 1024 * 1024
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 100
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &DepositFileService{
		depositAccess: depositAccess{
			store:   store,
			audit:   audit,
			index:   index,
			metrics: metrics,
			logger:  logger,
			agent:   "deposit-file-service",
		},
		content: content,
		signer:  signer,
		locker:  locker,
		cfg:     cfg,
	}
}

// Upload stores the content and appends a new entry to the deposit's files.
func (s *DepositFileService) Upload(ctx context.Context, depositID string, upload FileUpload, actor *models.JWTClaims) (entry *models.FileEntry, err error) {
	defer func() { s.metrics.RecordFileOperation(opUpload, err) }()

	current, err := s.load(ctx, depositID)
	if err != nil {
		return nil, err
	}
	if err := s.checkUpload(current, upload, actor); err != nil {
		return nil, err
	}

	fileID := uuid.NewString()
	key := contentKey(depositID, fileID)
	info, err := s.content.Put(ctx, key, io.LimitReader(upload.Content, s.cfg.MaxFileSize+1), upload.Size, upload.MimeType)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to store file content")
	}
	if info.Size > s.cfg.MaxFileSize {
		s.discardContent(key)
		return nil, s.fileTooLarge()
	}

	created := models.FileEntry{
		ID:         fileID,
		DepositID:  depositID,
		Filename:   upload.Filename,
		Size:       info.Size,
		Checksum:   info.Checksum,
		ContentKey: key,
		MimeType:   upload.MimeType,
		CreatedAt:  time.Now().UTC(),
	}
	err = withDepositLock(ctx, s.locker, depositID, func() error {
		d, err := s.load(ctx, depositID)
		if err != nil {
			return err
		}
		if err := s.checkUpload(d, upload, actor); err != nil {
			return err
		}
		d.Files = append(d.Files, created)
		return s.commit(ctx, d)
	})
	if err != nil {
		s.discardContent(key)
		return nil, err
	}

	s.metrics.AddUploadedBytes(created.Size)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionFileUpload,
		Resource:   "deposit",
		ResourceID: &depositID,
		NewValues:  auditJSON(map[string]interface{}{"file_id": created.ID, "filename": created.Filename, "size": created.Size}),
	})
	s.reindex(depositID)
	return &created, nil
}

func (s *DepositFileService) checkUpload(d *models.Deposit, upload FileUpload, actor *models.JWTClaims) error {
	if err := ensureMutable(d, actor); err != nil {
		return err
	}
	if upload.Content == nil {
		return appErrors.Validation("file", "file is required")
	}
	if err := ValidateFilename(upload.Filename); err != nil {
		return err
	}
	if upload.Size > s.cfg.MaxFileSize {
		return s.fileTooLarge()
	}
	if d.HasFilename(upload.Filename, "") {
		return duplicateFilenameError()
	}
	if len(d.Files) >= s.cfg.MaxFiles {
		return appErrors.Validation("files", fmt.Sprintf("a deposit may hold at most %d files", s.cfg.MaxFiles))
	}
	return nil
}

func (s *DepositFileService) fileTooLarge() error {
	return appErrors.Validation("file", fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
}

// List returns the deposit's files in their stored order.
func (s *DepositFileService) List(ctx context.Context, depositID string, actor *models.JWTClaims) ([]models.FileEntry, error) {
	d, err := s.load(ctx, depositID)
	if err != nil {
		return nil, err
	}
	if err := ensureReadable(d, actor); err != nil {
		return nil, err
	}
	return d.Files, nil
}

// Get returns one file entry.
func (s *DepositFileService) Get(ctx context.Context, depositID, fileID string, actor *models.JWTClaims) (*models.FileEntry, error) {
	d, err := s.load(ctx, depositID)
	if err != nil {
		return nil, err
	}
	if err := ensureReadable(d, actor); err != nil {
		return nil, err
	}
	idx := d.FileIndex(fileID)
	if idx < 0 {
		return nil, fileNotFound()
	}
	entry := d.Files[idx]
	return &entry, nil
}

// Delete removes a file entry and then its content.
func (s *DepositFileService) Delete(ctx context.Context, depositID, fileID string, actor *models.JWTClaims) (err error) {
	defer func() { s.metrics.RecordFileOperation(opDelete, err) }()

	var removed models.FileEntry
	err = withDepositLock(ctx, s.locker, depositID, func() error {
		d, err := s.load(ctx, depositID)
		if err != nil {
			return err
		}
		if err := ensureMutable(d, actor); err != nil {
			return err
		}
		idx := d.FileIndex(fileID)
		if idx < 0 {
			return fileNotFound()
		}
		removed = d.Files[idx]
		d.Files = append(d.Files[:idx], d.Files[idx+1:]...)
		return s.commit(ctx, d)
	})
	if err != nil {
		return err
	}

	if err := s.content.Delete(ctx, removed.ContentKey); err != nil {
		s.logger.Warn("failed to remove deposit file content", zap.Error(err), zap.String("deposit_id", depositID), zap.String("key", removed.ContentKey))
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionFileDelete,
		Resource:   "deposit",
		ResourceID: &depositID,
		OldValues:  auditJSON(map[string]interface{}{"file_id": removed.ID, "filename": removed.Filename}),
	})
	s.reindex(depositID)
	return nil
}

// Rename changes a file's name in place.
func (s *DepositFileService) Rename(ctx context.Context, depositID, fileID, filename string, actor *models.JWTClaims) (entry *models.FileEntry, err error) {
	defer func() { s.metrics.RecordFileOperation(opRename, err) }()

	var (
		renamed  models.FileEntry
		previous string
	)
	err = withDepositLock(ctx, s.locker, depositID, func() error {
		d, err := s.load(ctx, depositID)
		if err != nil {
			return err
		}
		if err := ensureMutable(d, actor); err != nil {
			return err
		}
		idx := d.FileIndex(fileID)
		if idx < 0 {
			return fileNotFound()
		}
		if err := ValidateFilename(filename); err != nil {
			return err
		}
		previous = d.Files[idx].Filename
		if previous == filename {
			renamed = d.Files[idx]
			return nil
		}
		if d.HasFilename(filename, fileID) {
			return appErrors.Validation("filename", appErrors.ErrDuplicateFile.Message)
		}
		d.Files[idx].Filename = filename
		if err := s.commit(ctx, d); err != nil {
			return err
		}
		renamed = d.Files[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}
	if previous == filename {
		return &renamed, nil
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionFileRename,
		Resource:   "deposit",
		ResourceID: &depositID,
		OldValues:  auditJSON(map[string]interface{}{"file_id": fileID, "filename": previous}),
		NewValues:  auditJSON(map[string]interface{}{"file_id": fileID, "filename": filename}),
	})
	s.reindex(depositID)
	return &renamed, nil
}

// Reorder replaces the file order. ids must be a permutation of the
// current file ids.
func (s *DepositFileService) Reorder(ctx context.Context, depositID string, ids []string, actor *models.JWTClaims) (files []models.FileEntry, err error) {
	defer func() { s.metrics.RecordFileOperation(opReorder, err) }()

	err = withDepositLock(ctx, s.locker, depositID, func() error {
		d, err := s.load(ctx, depositID)
		if err != nil {
			return err
		}
		if err := ensureMutable(d, actor); err != nil {
			return err
		}
		ordered, err := permute(d.Files, ids)
		if err != nil {
			return err
		}
		d.Files = ordered
		if err := s.commit(ctx, d); err != nil {
			return err
		}
		files = d.Files
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionFileReorder,
		Resource:   "deposit",
		ResourceID: &depositID,
		NewValues:  auditJSON(map[string]interface{}{"order": ids}),
	})
	s.reindex(depositID)
	return files, nil
}

func permute(files []models.FileEntry, ids []string) ([]models.FileEntry, error) {
	if len(ids) != len(files) {
		return nil, appErrors.Validation("files", fmt.Sprintf("expected %d file ids, got %d", len(files), len(ids)))
	}
	byID := make(map[string]models.FileEntry, len(files))
	for _, f := range files {
		byID[f.ID] = f
	}
	seen := make(map[string]struct{}, len(ids))
	ordered := make([]models.FileEntry, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, appErrors.Validation("files", fmt.Sprintf("file id %q listed more than once", id))
		}
		seen[id] = struct{}{}
		f, ok := byID[id]
		if !ok {
			return nil, appErrors.Validation("files", fmt.Sprintf("unknown file id %q", id))
		}
		ordered = append(ordered, f)
	}
	return ordered, nil
}

// DownloadURL returns a signed download link for a file.
func (s *DepositFileService) DownloadURL(depositID string, f models.FileEntry) (string, error) {
	if s.signer == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	token, _, err := s.signer.Generate(f.ID, f.ContentKey)
	if err != nil {
		return "", appErrors.Internal(err, "failed to generate download token")
	}
	base := strings.TrimRight(s.cfg.APIPrefix, "/")
	return fmt.Sprintf("%s/deposits/%s/files/%s/download?token=%s", base, depositID, f.ID, url.QueryEscape(token)), nil
}

// Open validates a download token and opens the file content.
func (s *DepositFileService) Open(ctx context.Context, depositID, fileID, token string, actor *models.JWTClaims) (download *FileDownload, err error) {
	defer func() { s.metrics.RecordFileOperation(opDownload, err) }()

	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	entry, err := s.Get(ctx, depositID, fileID, actor)
	if err != nil {
		return nil, err
	}
	tokenFileID, key, expiresAt, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired token")
	}
	if tokenFileID != entry.ID || key != entry.ContentKey {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	obj, err := s.content.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file content not found")
		}
		return nil, appErrors.Internal(err, "failed to open file content")
	}
	size := obj.Size
	if size < 0 {
		size = entry.Size
	}
	return &FileDownload{
		Content:   obj,
		Filename:  entry.Filename,
		MimeType:  entry.MimeType,
		SizeBytes: size,
		Checksum:  entry.Checksum,
		ExpiresAt: expiresAt,
	}, nil
}

// discardContent removes content that never became part of a deposit.
func (s *DepositFileService) discardContent(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.content.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to discard orphaned file content", zap.Error(err), zap.String("key", key))
	}
}

func contentKey(depositID, fileID string) string {
	return "deposits/" + depositID + "/" + fileID
}

func fileNotFound() error {
	return appErrors.Clone(appErrors.ErrNotFound, "file not found")
}
