package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/deposit-api/internal/dto"
	"github.com/noah-isme/deposit-api/internal/models"
	appErrors "github.com/noah-isme/deposit-api/pkg/errors"
)

// MissingFilesMessage is reported when a deposit without files is published.
const MissingFilesMessage = "Minimum one file must be provided."

type depositContentRemover interface {
	Delete(ctx context.Context, key string) error
}

type depositSearcher interface {
	Search(filter models.DepositFilter) ([]models.DepositSummary, int)
}

// DepositService manages the deposit lifecycle from draft to publication.
type DepositService struct {
	depositAccess
	content   depositContentRemover
	search    depositSearcher
	locker    Locker
	validator *validator.Validate
	now       func() time.Time
}

// NewDepositService constructs the service.
func NewDepositService(store depositStore, content depositContentRemover, locker Locker, search depositSearcher, audit auditLogger, index depositIndexer, metrics *MetricsService, logger *zap.Logger) *DepositService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewKeyedLocker()
	}
	return &DepositService{
		depositAccess: depositAccess{
			store:   store,
			audit:   audit,
			index:   index,
			metrics: metrics,
			logger:  logger,
			agent:   "deposit-service",
		},
		content:   content,
		search:    search,
		locker:    locker,
		validator: newMetadataValidator(),
		now:       time.Now,
	}
}

// Create opens a new draft owned by actor.
func (s *DepositService) Create(ctx context.Context, req dto.DepositRequest, actor *models.JWTClaims) (*models.Deposit, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validateMetadata(req.Metadata); err != nil {
		return nil, err
	}
	d := &models.Deposit{
		OwnerID:  actor.UserID,
		Status:   models.DepositStatusDraft,
		Metadata: req.Metadata,
		Files:    []models.FileEntry{},
	}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, appErrors.Internal(err, "failed to create deposit")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionDepositCreate,
		Resource:   "deposit",
		ResourceID: &d.ID,
		NewValues:  auditJSON(d.Metadata),
	})
	s.reindex(d.ID)
	return d, nil
}

// Get returns a deposit visible to actor.
func (s *DepositService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Deposit, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureReadable(d, actor); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateMetadata replaces the metadata of a draft.
func (s *DepositService) UpdateMetadata(ctx context.Context, id string, req dto.DepositRequest, actor *models.JWTClaims) (*models.Deposit, error) {
	if err := s.validateMetadata(req.Metadata); err != nil {
		return nil, err
	}
	var (
		updated  *models.Deposit
		previous models.DepositMetadata
	)
	err := withDepositLock(ctx, s.locker, id, func() error {
		d, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if err := ensureMutable(d, actor); err != nil {
			return err
		}
		previous = d.Metadata
		d.Metadata = req.Metadata
		if err := s.commit(ctx, d); err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionDepositUpdate,
		Resource:   "deposit",
		ResourceID: &id,
		OldValues:  auditJSON(previous),
		NewValues:  auditJSON(updated.Metadata),
	})
	s.reindex(id)
	return updated, nil
}

// Delete discards a draft along with its file contents.
func (s *DepositService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	var removed []models.FileEntry
	err := withDepositLock(ctx, s.locker, id, func() error {
		d, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if err := ensureMutable(d, actor); err != nil {
			return err
		}
		if err := s.store.Delete(ctx, id); err != nil {
			return mapStoreError(err, "failed to delete deposit")
		}
		removed = d.Files
		return nil
	})
	if err != nil {
		return err
	}
	if s.content != nil {
		for _, f := range removed {
			if err := s.content.Delete(ctx, f.ContentKey); err != nil {
				s.logger.Warn("failed to remove deposit file content", zap.Error(err), zap.String("deposit_id", id), zap.String("key", f.ContentKey))
			}
		}
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionDepositDelete,
		Resource:   "deposit",
		ResourceID: &id,
	})
	s.reindex(id)
	return nil
}

// PreparePublish checks that d may be published. A deposit without files
// yields a report with exactly one error.
func (s *DepositService) PreparePublish(d *models.Deposit) error {
	if d == nil {
		return appErrors.ErrNotFound
	}
	if len(d.Files) == 0 {
		return appErrors.WithFields(appErrors.Clone(appErrors.ErrMissingFiles, MissingFilesMessage), appErrors.FieldError{
			Field:   "files",
			Code:    appErrors.ErrMissingFiles.Code,
			Message: MissingFilesMessage,
		})
	}
	return nil
}

// Publish moves a draft to the terminal published state.
func (s *DepositService) Publish(ctx context.Context, id string, actor *models.JWTClaims) (*models.Deposit, error) {
	var published *models.Deposit
	err := withDepositLock(ctx, s.locker, id, func() error {
		d, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if err := ensureMutable(d, actor); err != nil {
			return err
		}
		if err := s.PreparePublish(d); err != nil {
			return err
		}
		candidate := d.Clone()
		ts := s.now().UTC()
		candidate.Status = models.DepositStatusPublished
		candidate.PublishedAt = &ts
		if err := s.commit(ctx, candidate); err != nil {
			return err
		}
		published = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionDepositPublish,
		Resource:   "deposit",
		ResourceID: &id,
		NewValues:  auditJSON(map[string]interface{}{"files": len(published.Files)}),
	})
	s.reindex(id)
	return published, nil
}

// Search lists deposits from the search view. Non-admin callers only see
// their own deposits.
func (s *DepositService) Search(ctx context.Context, query dto.DepositSearchQuery, actor *models.JWTClaims) ([]models.DepositSummary, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if s.search == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrInternal, "search view unavailable")
	}
	status := models.DepositStatus(strings.ToLower(strings.TrimSpace(query.Status)))
	switch status {
	case "", models.DepositStatusDraft, models.DepositStatusPublished:
	default:
		return nil, nil, appErrors.Validation("status", fmt.Sprintf("unknown status %q", query.Status))
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 || size > 200 {
		size = 20
	}
	filter := models.DepositFilter{Status: status, Limit: size, Offset: (page - 1) * size}
	if !actor.IsAdmin() {
		filter.OwnerID = actor.UserID
	}
	rows, total := s.search.Search(filter)
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *DepositService) validateMetadata(meta models.DepositMetadata) error {
	err := s.validator.Struct(meta)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return appErrors.Internal(err, "failed to validate metadata")
	}
	fields := make([]appErrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, appErrors.FieldError{
			Field:   metadataField(fe.Namespace()),
			Code:    appErrors.ErrValidation.Code,
			Message: fmt.Sprintf("failed on '%s' validation", fe.Tag()),
		})
	}
	return appErrors.WithFields(appErrors.Clone(appErrors.ErrValidation, "invalid deposit metadata"), fields...)
}

func newMetadataValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// metadataField rewrites a validator namespace such as
// "DepositMetadata.creators[0].name" to "metadata.creators[0].name".
func metadataField(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return "metadata" + namespace[i:]
	}
	return "metadata"
}
