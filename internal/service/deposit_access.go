package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/deposit-api/internal/models"
	"github.com/noah-isme/deposit-api/internal/repository"
	appErrors "github.com/noah-isme/deposit-api/pkg/errors"
)

type depositStore interface {
	Create(ctx context.Context, d *models.Deposit) error
	GetByID(ctx context.Context, id string) (*models.Deposit, error)
	Commit(ctx context.Context, d *models.Deposit) error
	Delete(ctx context.Context, id string) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type depositIndexer interface {
	Index(depositID string)
}

// depositAccess bundles the store plumbing shared by the deposit services.
type depositAccess struct {
	store   depositStore
	audit   auditLogger
	index   depositIndexer
	metrics *MetricsService
	logger  *zap.Logger
	agent   string
}

func (a *depositAccess) load(ctx context.Context, id string) (*models.Deposit, error) {
	start := time.Now()
	d, err := a.store.GetByID(ctx, id)
	a.metrics.ObserveDBQuery("deposit_get", time.Since(start))
	if err != nil {
		return nil, mapStoreError(err, "failed to load deposit")
	}
	return d, nil
}

func (a *depositAccess) commit(ctx context.Context, d *models.Deposit) error {
	start := time.Now()
	err := a.store.Commit(ctx, d)
	a.metrics.ObserveDBQuery("deposit_commit", time.Since(start))
	if err != nil {
		return mapStoreError(err, "failed to save deposit")
	}
	return nil
}

func (a *depositAccess) reindex(depositID string) {
	if a.index != nil {
		a.index.Index(depositID)
	}
}

func (a *depositAccess) emitAudit(ctx context.Context, log *models.AuditLog) {
	if a.audit == nil || log == nil {
		return
	}
	log.IPAddress, log.UserAgent = "system", a.agent
	if origin, ok := models.AuditOriginFrom(ctx); ok {
		log.IPAddress = origin.IPAddress
		if origin.UserAgent != "" {
			log.UserAgent = origin.UserAgent
		}
	}
	if err := a.audit.CreateAuditLog(ctx, log); err != nil {
		a.logger.Warn("failed to create deposit audit", zap.Error(err), zap.String("action", log.Action))
	}
}

// CallerOwns reports whether actor may act as the owner of d.
func CallerOwns(d *models.Deposit, actor *models.JWTClaims) bool {
	if d == nil || actor == nil {
		return false
	}
	return actor.IsAdmin() || d.OwnerID == actor.UserID
}

func ensureReadable(d *models.Deposit, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if d.Status == models.DepositStatusPublished || CallerOwns(d, actor) {
		return nil
	}
	return appErrors.ErrForbidden
}

func ensureMutable(d *models.Deposit, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !CallerOwns(d, actor) {
		return appErrors.ErrForbidden
	}
	if !d.IsDraft() {
		return appErrors.ErrDepositNotDraft
	}
	return nil
}

func mapStoreError(err error, message string) error {
	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "deposit not found")
	case errors.Is(err, repository.ErrStaleVersion):
		return appErrors.Wrap(err, appErrors.ErrStaleDeposit.Code, appErrors.ErrStaleDeposit.Status, appErrors.ErrStaleDeposit.Message)
	case errors.Is(err, repository.ErrDuplicateFilename):
		return duplicateFilenameError()
	default:
		return appErrors.Internal(err, message)
	}
}

func duplicateFilenameError() *appErrors.Error {
	return appErrors.WithFields(appErrors.ErrDuplicateFile, appErrors.FieldError{
		Field:   "filename",
		Code:    appErrors.ErrDuplicateFile.Code,
		Message: appErrors.ErrDuplicateFile.Message,
	})
}

func auditJSON(v interface{}) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
