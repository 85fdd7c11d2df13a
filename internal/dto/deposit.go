package dto

import (
	"time"

	"github.com/noah-isme/deposit-api/internal/models"
)

// DepositRequest is the body accepted when creating a deposit or replacing
// its metadata.
type DepositRequest struct {
	Metadata models.DepositMetadata `json:"metadata"`
}

// RenameFileRequest is the only accepted rename payload. Filename is a
// pointer so a missing key is distinguishable from an empty string.
type RenameFileRequest struct {
	Filename *string `json:"filename"`
}

// SortFileItem is one element of a reorder payload.
type SortFileItem struct {
	ID *string `json:"id"`
}

// DepositSearchQuery captures list query parameters.
type DepositSearchQuery struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// FileLinks are the hypermedia links of a deposit file.
type FileLinks struct {
	Self     string `json:"self"`
	Download string `json:"download"`
}

// FileResponse is the wire representation of a deposit file.
type FileResponse struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Filesize  int64     `json:"filesize"`
	Checksum  string    `json:"checksum"`
	MimeType  string    `json:"mime_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Links     FileLinks `json:"links"`
}

// DepositLinks are the hypermedia links of a deposit.
type DepositLinks struct {
	Self    string `json:"self"`
	Files   string `json:"files"`
	Publish string `json:"publish"`
}

// DepositResponse is the wire representation of a deposit.
type DepositResponse struct {
	ID          string                 `json:"id"`
	OwnerID     string                 `json:"owner_id"`
	State       models.DepositStatus   `json:"state"`
	Metadata    models.DepositMetadata `json:"metadata"`
	Files       []FileResponse         `json:"files"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	PublishedAt *time.Time             `json:"published_at,omitempty"`
	Links       DepositLinks           `json:"links"`
}

// DepositSummaryResponse is one row of a deposit listing.
type DepositSummaryResponse struct {
	models.DepositSummary
	Links DepositLinks `json:"links"`
}
