package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DepositStatus tracks the publication lifecycle of a deposit.
type DepositStatus string

const (
	DepositStatusDraft     DepositStatus = "draft"
	DepositStatusPublished DepositStatus = "published"
)

// Creator is one author of the deposited work.
type Creator struct {
	Name        string `json:"name" validate:"required,max=255"`
	Affiliation string `json:"affiliation,omitempty" validate:"max=255"`
}

// DepositMetadata is the descriptive metadata of a deposit. Every field is
// optional while the deposit is a draft, but present fields must be valid.
type DepositMetadata struct {
	UploadType      string    `json:"upload_type,omitempty" validate:"omitempty,oneof=publication poster presentation dataset image video software lesson physicalobject other"`
	Title           string    `json:"title,omitempty" validate:"max=500"`
	Creators        []Creator `json:"creators,omitempty" validate:"omitempty,dive"`
	Description     string    `json:"description,omitempty"`
	PublicationDate string    `json:"publication_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AccessRight     string    `json:"access_right,omitempty" validate:"omitempty,oneof=open embargoed restricted closed"`
	Keywords        []string  `json:"keywords,omitempty" validate:"omitempty,dive,required,max=100"`
}

// Value stores metadata as a JSON document.
func (m DepositMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan loads metadata from a JSON column.
func (m *DepositMetadata) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = DepositMetadata{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata column type %T", src)
	}
}

// FileEntry is one file attached to a deposit.
type FileEntry struct {
	ID         string    `db:"id" json:"id"`
	DepositID  string    `db:"deposit_id" json:"-"`
	Filename   string    `db:"filename" json:"filename"`
	Size       int64     `db:"size_bytes" json:"filesize"`
	Checksum   string    `db:"checksum" json:"checksum"`
	ContentKey string    `db:"content_key" json:"-"`
	MimeType   string    `db:"mime_type" json:"mime_type"`
	Position   int       `db:"position" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Deposit is a draft record with its ordered file list.
type Deposit struct {
	ID          string          `db:"id" json:"id"`
	OwnerID     string          `db:"owner_id" json:"owner_id"`
	Status      DepositStatus   `db:"status" json:"state"`
	Metadata    DepositMetadata `db:"metadata" json:"metadata"`
	Version     int64           `db:"version" json:"-"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
	PublishedAt *time.Time      `db:"published_at" json:"published_at,omitempty"`
	Files       []FileEntry     `db:"-" json:"files"`
}

// IsDraft reports whether the deposit still accepts mutations.
func (d *Deposit) IsDraft() bool {
	return d != nil && d.Status == DepositStatusDraft
}

// FileIndex returns the position of the file with id, or -1.
func (d *Deposit) FileIndex(id string) int {
	for i := range d.Files {
		if d.Files[i].ID == id {
			return i
		}
	}
	return -1
}

// HasFilename reports whether a file other than exceptID already uses name.
// Names compare case-sensitively.
func (d *Deposit) HasFilename(name, exceptID string) bool {
	for i := range d.Files {
		if d.Files[i].Filename == name && d.Files[i].ID != exceptID {
			return true
		}
	}
	return false
}

// Clone returns a copy whose file list can be mutated independently.
func (d *Deposit) Clone() *Deposit {
	if d == nil {
		return nil
	}
	clone := *d
	clone.Files = append([]FileEntry(nil), d.Files...)
	clone.Metadata.Creators = append([]Creator(nil), d.Metadata.Creators...)
	clone.Metadata.Keywords = append([]string(nil), d.Metadata.Keywords...)
	if d.PublishedAt != nil {
		ts := *d.PublishedAt
		clone.PublishedAt = &ts
	}
	return &clone
}

// Renumber sets each file's Position to its index.
func (d *Deposit) Renumber() {
	for i := range d.Files {
		d.Files[i].Position = i
	}
}

// DepositFilter narrows deposit listings.
type DepositFilter struct {
	OwnerID string
	Status  DepositStatus
	Limit   int
	Offset  int
}

// DepositSummary is the denormalised row kept in the search view.
type DepositSummary struct {
	ID          string        `db:"id" json:"id"`
	OwnerID     string        `db:"owner_id" json:"owner_id"`
	Title       string        `db:"title" json:"title"`
	Status      DepositStatus `db:"status" json:"state"`
	FileCount   int           `db:"file_count" json:"file_count"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
	PublishedAt *time.Time    `db:"published_at" json:"published_at,omitempty"`
}

// Summary projects a deposit into its search view row.
func (d *Deposit) Summary() DepositSummary {
	return DepositSummary{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		Title:       d.Metadata.Title,
		Status:      d.Status,
		FileCount:   len(d.Files),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		PublishedAt: d.PublishedAt,
	}
}
