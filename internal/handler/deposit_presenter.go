package handler

import (
	"strings"

	"github.com/noah-isme/deposit-api/internal/dto"
	"github.com/noah-isme/deposit-api/internal/models"
)

type downloadLinker interface {
	DownloadURL(depositID string, f models.FileEntry) (string, error)
}

// depositPresenter renders deposits and files with their hypermedia links.
type depositPresenter struct {
	prefix string
	links  downloadLinker
}

func newDepositPresenter(apiPrefix string, links downloadLinker) depositPresenter {
	return depositPresenter{prefix: strings.TrimRight(apiPrefix, "/"), links: links}
}

func (p depositPresenter) depositURL(id string) string {
	return p.prefix + "/deposits/" + id
}

func (p depositPresenter) fileURL(depositID, fileID string) string {
	return p.depositURL(depositID) + "/files/" + fileID
}

func (p depositPresenter) depositLinks(id string) dto.DepositLinks {
	return dto.DepositLinks{
		Self:    p.depositURL(id),
		Files:   p.depositURL(id) + "/files",
		Publish: p.depositURL(id) + "/actions/publish",
	}
}

func (p depositPresenter) file(depositID string, f models.FileEntry) dto.FileResponse {
	out := dto.FileResponse{
		ID:        f.ID,
		Filename:  f.Filename,
		Filesize:  f.Size,
		Checksum:  f.Checksum,
		MimeType:  f.MimeType,
		CreatedAt: f.CreatedAt,
		Links:     dto.FileLinks{Self: p.fileURL(depositID, f.ID)},
	}
	if p.links != nil {
		if link, err := p.links.DownloadURL(depositID, f); err == nil {
			out.Links.Download = link
		}
	}
	return out
}

func (p depositPresenter) files(depositID string, files []models.FileEntry) []dto.FileResponse {
	out := make([]dto.FileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, p.file(depositID, f))
	}
	return out
}

func (p depositPresenter) deposit(d *models.Deposit) dto.DepositResponse {
	return dto.DepositResponse{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		State:       d.Status,
		Metadata:    d.Metadata,
		Files:       p.files(d.ID, d.Files),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		PublishedAt: d.PublishedAt,
		Links:       p.depositLinks(d.ID),
	}
}

func (p depositPresenter) summaries(rows []models.DepositSummary) []dto.DepositSummaryResponse {
	out := make([]dto.DepositSummaryResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.DepositSummaryResponse{DepositSummary: row, Links: p.depositLinks(row.ID)})
	}
	return out
}
