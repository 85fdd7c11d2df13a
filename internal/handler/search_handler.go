package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/deposit-api/pkg/errors"
	"github.com/noah-isme/deposit-api/pkg/response"
)

type searchRefresher interface {
	Refresh(ctx context.Context) error
}

// SearchHandler exposes administrative controls over the deposit search view.
type SearchHandler struct {
	search searchRefresher
}

// NewSearchHandler constructs the handler.
func NewSearchHandler(search searchRefresher) *SearchHandler {
	return &SearchHandler{search: search}
}

// Refresh godoc
// @Summary Wait until the search view reflects every committed change
// @Tags Admin
// @Success 204
// @Failure 503 {object} response.Envelope
// @Router /admin/search/refresh [post]
func (h *SearchHandler) Refresh(c *gin.Context) {
	if h.search == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "search view not configured"))
		return
	}
	if err := h.search.Refresh(c.Request.Context()); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			response.Error(c, appErrors.Wrap(err, "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, "search view refresh timed out"))
			return
		}
		response.Error(c, appErrors.Internal(err, "failed to refresh search view"))
		return
	}
	response.NoContent(c)
}
