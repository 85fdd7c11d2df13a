package handler

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/deposit-api/internal/dto"
	"github.com/noah-isme/deposit-api/internal/models"
	"github.com/noah-isme/deposit-api/internal/service"
	appErrors "github.com/noah-isme/deposit-api/pkg/errors"
	"github.com/noah-isme/deposit-api/pkg/response"
)

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and the name field.
const multipartOverhead = 1 << 20

type depositFileService interface {
	Upload(ctx context.Context, depositID string, upload service.FileUpload, actor *models.JWTClaims) (*models.FileEntry, error)
	List(ctx context.Context, depositID string, actor *models.JWTClaims) ([]models.FileEntry, error)
	Get(ctx context.Context, depositID, fileID string, actor *models.JWTClaims) (*models.FileEntry, error)
	Delete(ctx context.Context, depositID, fileID string, actor *models.JWTClaims) error
	Rename(ctx context.Context, depositID, fileID, filename string, actor *models.JWTClaims) (*models.FileEntry, error)
	Reorder(ctx context.Context, depositID string, ids []string, actor *models.JWTClaims) ([]models.FileEntry, error)
	DownloadURL(depositID string, f models.FileEntry) (string, error)
	Open(ctx context.Context, depositID, fileID, token string, actor *models.JWTClaims) (*service.FileDownload, error)
}

// DepositFileHandler serves the files collection of a deposit.
type DepositFileHandler struct {
	service        depositFileService
	present        depositPresenter
	maxUploadBytes int64
}

// NewDepositFileHandler constructs the handler. maxUploadBytes caps the
// request body of uploads; zero disables the cap.
func NewDepositFileHandler(svc depositFileService, apiPrefix string, maxUploadBytes int64) *DepositFileHandler {
	h := &DepositFileHandler{service: svc, maxUploadBytes: maxUploadBytes}
	if svc != nil {
		h.present = newDepositPresenter(apiPrefix, svc)
	}
	return h
}

// Upload godoc
// @Summary Upload a file to a draft deposit
// @Tags Deposit Files
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Deposit ID"
// @Param file formData file true "File content"
// @Param name formData string false "Filename, defaults to the uploaded file name"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /deposits/{id}/files [post]
func (h *DepositFileHandler) Upload(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "deposit file service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(c, appErrors.Validation("file", fmt.Sprintf("file exceeds %d bytes limit", h.maxUploadBytes)))
			return
		}
		response.Error(c, appErrors.Validation("file", "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to open file"))
		return
	}
	defer src.Close()

	filename := c.PostForm("name")
	if filename == "" {
		filename = partFilename(fileHeader)
	}
	if err := service.ValidateFilename(filename); err != nil {
		response.Error(c, err)
		return
	}
	upload := service.FileUpload{
		Filename: filename,
		Size:     fileHeader.Size,
		MimeType: detectMimeType(fileHeader.Header.Get("Content-Type"), filename),
		Content:  src,
	}
	depositID := c.Param("id")
	entry, err := h.service.Upload(c.Request.Context(), depositID, upload, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, h.present.file(depositID, *entry), h.present.fileURL(depositID, entry.ID))
}

// List godoc
// @Summary List the files of a deposit in order
// @Tags Deposit Files
// @Produce json
// @Param id path string true "Deposit ID"
// @Success 200 {object} response.Envelope
// @Router /deposits/{id}/files [get]
func (h *DepositFileHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "deposit file service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	depositID := c.Param("id")
	files, err := h.service.List(c.Request.Context(), depositID, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.present.files(depositID, files), nil)
}

// Get godoc
// @Summary Get one deposit file
// @Tags Deposit Files
// @Produce json
// @Param id path string true "Deposit ID"
// @Param fileId path string true "File ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /deposits/{id}/files/{fileId} [get]
func (h *DepositFileHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "deposit file service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	depositID := c.Param("id")
	entry, err := h.service.Get(c.Request.Context(), depositID, c.Param("fileId"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.present.file(depositID, *entry), nil)
}

// Rename godoc
// @Summary Rename a deposit file
// @Tags Deposit Files
// @Accept json
// @Produce json
// @Param id path string true "Deposit ID"
// @Param fileId path string true "File ID"
// @Param payload body dto.RenameFileRequest true "New filename"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /deposits/{id}/files/{fileId} [put]
func (h *DepositFileHandler) Rename(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "deposit file service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RenameFileRequest
	if err := bindStrictJSON(c, &req); err != nil {
		response.Error(c, appErrors.Validation("filename", "payload must be exactly {\"filename\": string}"))
		return
	}
	if req.Filename == nil {
		response.Error(c, appErrors.Validation("filename", "filename is required"))
		return
	}
	depositID := c.Param("id")
	entry, err := h.service.Rename(c.Request.Context(), depositID, c.Param("fileId"), *req.Filename, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.present.file(depositID, *entry), nil)
}

// Sort godoc
// @Summary Reorder the files of a deposit
// @Tags Deposit Files
// @Accept json
// @Produce json
// @Param id path string true "Deposit ID"
// @Param payload body []dto.SortFileItem true "Every file id in the new order"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /deposits/{id}/files [put]
func (h *DepositFileHandler) Sort(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "deposit file service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var items []dto.SortFileItem
	if err := bindStrictJSON(c, &items); err != nil || items == nil {
		response.Error(c, appErrors.Validation("files", "payload must be a list of {\"id\": string}"))
		return
	}
	ids := make([]string, 0, len(items))
	for i, item := range items {
		if item.ID == nil {
			response.Error(c, appErrors.Validation("files", fmt.Sprintf("entry %d has no id", i)))
			return
		}
		ids = append(ids, *item.ID)
	}
	depositID := c.Param("id")
	files, err := h.service.Reorder(c.Request.Context(), depositID, ids, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.present.files(depositID, files), nil)
}

// Delete godoc
// @Summary Delete a deposit file
// @Tags Deposit Files
// @Param id path string true "Deposit ID"
// @Param fileId path string true "File ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /deposits/{id}/files/{fileId} [delete]
func (h *DepositFileHandler) Delete(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "deposit file service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), c.Param("fileId"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Download godoc
// @Summary Download file content via signed token
// @Tags Deposit Files
// @Produce octet-stream
// @Param id path string true "Deposit ID"
// @Param fileId path string true "File ID"
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /deposits/{id}/files/{fileId}/download [get]
func (h *DepositFileHandler) Download(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "deposit file service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	token := c.Query("token")
	if strings.TrimSpace(token) == "" {
		response.Error(c, appErrors.Validation("token", "token is required"))
		return
	}
	result, err := h.service.Open(c.Request.Context(), c.Param("id"), c.Param("fileId"), token, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.Content.Close() //nolint:errcheck
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.Filename}))
	c.Header("Cache-Control", "no-store")
	if result.Checksum != "" {
		c.Header("Digest", result.Checksum)
	}
	c.DataFromReader(http.StatusOK, result.SizeBytes, result.MimeType, result.Content, nil)
}

// partFilename returns the filename exactly as the client sent it. The
// multipart reader reduces FileHeader.Filename to its last path element.
func partFilename(fh *multipart.FileHeader) string {
	if _, params, err := mime.ParseMediaType(fh.Header.Get("Content-Disposition")); err == nil {
		if raw, ok := params["filename"]; ok {
			return raw
		}
	}
	return fh.Filename
}

func detectMimeType(declared, filename string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		return byExt
	}
	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}
