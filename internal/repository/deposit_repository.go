package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/deposit-api/internal/models"
	"github.com/noah-isme/deposit-api/pkg/database"
)

var (
	// ErrStaleVersion is returned by Commit when the stored deposit changed
	// since it was loaded.
	ErrStaleVersion = errors.New("repository: stale deposit version")
	// ErrDuplicateFilename is returned when a commit would store two files
	// with the same name in one deposit.
	ErrDuplicateFilename = errors.New("repository: duplicate filename in deposit")
)

const uniqueViolation = "23505"

const depositColumns = `id, owner_id, status, metadata, version, created_at, updated_at, published_at`

const fileColumns = `id, deposit_id, filename, size_bytes, checksum, content_key, mime_type, position, created_at`

// DepositRepository persists deposits and their ordered file lists.
type DepositRepository struct {
	db *sqlx.DB
}

// NewDepositRepository constructs the repository.
func NewDepositRepository(db *sqlx.DB) *DepositRepository {
	return &DepositRepository{db: db}
}

// Create inserts a new deposit row. Files are not written; a new deposit
// starts empty.
func (r *DepositRepository) Create(ctx context.Context, d *models.Deposit) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = d.CreatedAt
	if d.Status == "" {
		d.Status = models.DepositStatusDraft
	}
	d.Version = 1
	const query = `INSERT INTO deposits (id, owner_id, status, metadata, version, created_at, updated_at, published_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query, d.ID, d.OwnerID, string(d.Status), d.Metadata, d.Version, d.CreatedAt, d.UpdatedAt, d.PublishedAt); err != nil {
		return fmt.Errorf("create deposit: %w", err)
	}
	return nil
}

// GetByID loads a deposit and its files in list order. It returns
// sql.ErrNoRows when the deposit does not exist.
func (r *DepositRepository) GetByID(ctx context.Context, id string) (*models.Deposit, error) {
	var d models.Deposit
	if err := r.db.GetContext(ctx, &d, `SELECT `+depositColumns+` FROM deposits WHERE id = $1`, id); err != nil {
		return nil, err
	}
	files := make([]models.FileEntry, 0)
	if err := r.db.SelectContext(ctx, &files, `SELECT `+fileColumns+` FROM deposit_files WHERE deposit_id = $1 ORDER BY position ASC`, id); err != nil {
		return nil, fmt.Errorf("list deposit files: %w", err)
	}
	d.Files = files
	return &d, nil
}

// ListSummaries returns search view rows for deposits matching filter.
func (r *DepositRepository) ListSummaries(ctx context.Context, filter models.DepositFilter) ([]models.DepositSummary, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT d.id, d.owner_id, COALESCE(d.metadata->>'title', '') AS title, d.status,
       (SELECT COUNT(*) FROM deposit_files f WHERE f.deposit_id = d.id) AS file_count,
       d.created_at, d.updated_at, d.published_at
	FROM deposits d`)
	args := make([]interface{}, 0, 2)
	conditions := make([]string, 0, 2)
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("d.owner_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("d.status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY d.updated_at DESC")
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset))
	}

	var rows []models.DepositSummary
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	return rows, nil
}

// Commit writes the deposit row and replaces its file list in one
// transaction. The update only applies if the stored version still equals
// d.Version; on success d.Version is advanced.
func (r *DepositRepository) Commit(ctx context.Context, d *models.Deposit) error {
	now := time.Now().UTC()
	d.Renumber()
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const update = `UPDATE deposits SET status = $1, metadata = $2, updated_at = $3, published_at = $4, version = version + 1
	WHERE id = $5 AND version = $6`
		res, err := tx.ExecContext(ctx, update, string(d.Status), d.Metadata, now, d.PublishedAt, d.ID, d.Version)
		if err != nil {
			return fmt.Errorf("update deposit: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("check deposit update rows: %w", err)
		}
		if affected == 0 {
			return ErrStaleVersion
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM deposit_files WHERE deposit_id = $1`, d.ID); err != nil {
			return fmt.Errorf("clear deposit files: %w", err)
		}
		const insert = `INSERT INTO deposit_files (` + fileColumns + `)
	VALUES (:id, :deposit_id, :filename, :size_bytes, :checksum, :content_key, :mime_type, :position, :created_at)`
		for i := range d.Files {
			d.Files[i].DepositID = d.ID
			if _, err := tx.NamedExecContext(ctx, insert, &d.Files[i]); err != nil {
				if isUniqueViolation(err) {
					return ErrDuplicateFilename
				}
				return fmt.Errorf("insert deposit file: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	d.Version++
	d.UpdatedAt = now
	return nil
}

// Delete removes a deposit together with its file rows.
func (r *DepositRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM deposits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete deposit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deposit delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
