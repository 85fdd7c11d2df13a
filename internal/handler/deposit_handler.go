package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/deposit-api/internal/dto"
	"github.com/noah-isme/deposit-api/internal/models"
	appErrors "github.com/noah-isme/deposit-api/pkg/errors"
	"github.com/noah-isme/deposit-api/pkg/response"
)

type depositService interface {
	Create(ctx context.Context, req dto.DepositRequest, actor *models.JWTClaims) (*models.Deposit, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Deposit, error)
	UpdateMetadata(ctx context.Context, id string, req dto.DepositRequest, actor *models.JWTClaims) (*models.Deposit, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
	Publish(ctx context.Context, id string, actor *models.JWTClaims) (*models.Deposit, error)
	Search(ctx context.Context, query dto.DepositSearchQuery, actor *models.JWTClaims) ([]models.DepositSummary, *models.Pagination, error)
}

// DepositHandler serves deposit resources and lifecycle actions.
type DepositHandler struct {
	service depositService
	present depositPresenter
}

// NewDepositHandler constructs a deposit handler. links may be nil, in which
// case file download links are omitted.
func NewDepositHandler(svc depositService, apiPrefix string, links downloadLinker) *DepositHandler {
	return &DepositHandler{service: svc, present: newDepositPresenter(apiPrefix, links)}
}

// Create godoc
// @Summary Create a draft deposit
// @Tags Deposits
// @Accept json
// @Produce json
// @Param payload body dto.DepositRequest false "Initial metadata"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /deposits [post]
func (h *DepositHandler) Create(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "deposit service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.DepositRequest
	if err := bindStrictJSON(c, &req); err != nil && !errors.Is(err, errEmptyBody) {
		response.Error(c, appErrors.Validation("metadata", err.Error()))
		return
	}
	d, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, h.present.deposit(d), h.present.depositURL(d.ID))
}

// List godoc
// @Summary Search deposits
// @Tags Deposits
// @Produce json
// @Param status query string false "draft or published"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /deposits [get]
func (h *DepositHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "deposit service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var query dto.DepositSearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	rows, pagination, err := h.service.Search(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.present.summaries(rows), pagination)
}

// Get godoc
// @Summary Get a deposit
// @Tags Deposits
// @Produce json
// @Param id path string true "Deposit ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /deposits/{id} [get]
func (h *DepositHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "deposit service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	d, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.present.deposit(d), nil)
}

// Update godoc
// @Summary Replace the metadata of a draft deposit
// @Tags Deposits
// @Accept json
// @Produce json
// @Param id path string true "Deposit ID"
// @Param payload body dto.DepositRequest true "Metadata"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /deposits/{id} [put]
func (h *DepositHandler) Update(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "deposit service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.DepositRequest
	if err := bindStrictJSON(c, &req); err != nil {
		response.Error(c, appErrors.Validation("metadata", err.Error()))
		return
	}
	d, err := h.service.UpdateMetadata(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.present.deposit(d), nil)
}

// Delete godoc
// @Summary Discard a draft deposit
// @Tags Deposits
// @Param id path string true "Deposit ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /deposits/{id} [delete]
func (h *DepositHandler) Delete(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "deposit service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Publish godoc
// @Summary Publish a draft deposit
// @Tags Deposits
// @Produce json
// @Param id path string true "Deposit ID"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope "Deposit has no files"
// @Failure 409 {object} response.Envelope
// @Router /deposits/{id}/actions/publish [post]
func (h *DepositHandler) Publish(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "deposit service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	d, err := h.service.Publish(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, h.present.deposit(d))
}
