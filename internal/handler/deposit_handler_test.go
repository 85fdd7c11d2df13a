package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/deposit-api/internal/dto"
	"github.com/noah-isme/deposit-api/internal/models"
	appErrors "github.com/noah-isme/deposit-api/pkg/errors"
)

type depositServiceStub struct {
	created *dto.DepositRequest
	query   dto.DepositSearchQuery
	err     error
}

func (s *depositServiceStub) deposit(id string) *models.Deposit {
	return &models.Deposit{
		ID:        id,
		OwnerID:   "user-1",
		Status:    models.DepositStatusDraft,
		Metadata:  models.DepositMetadata{Title: "Test"},
		Files:     []models.FileEntry{},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func (s *depositServiceStub) Create(ctx context.Context, req dto.DepositRequest, actor *models.JWTClaims) (*models.Deposit, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = &req
	return s.deposit("dep-1"), nil
}

func (s *depositServiceStub) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Deposit, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.deposit(id), nil
}

func (s *depositServiceStub) UpdateMetadata(ctx context.Context, id string, req dto.DepositRequest, actor *models.JWTClaims) (*models.Deposit, error) {
	if s.err != nil {
		return nil, s.err
	}
	d := s.deposit(id)
	d.Metadata = req.Metadata
	return d, nil
}

func (s *depositServiceStub) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	return s.err
}

func (s *depositServiceStub) Publish(ctx context.Context, id string, actor *models.JWTClaims) (*models.Deposit, error) {
	if s.err != nil {
		return nil, s.err
	}
	d := s.deposit(id)
	now := time.Now().UTC()
	d.Status, d.PublishedAt = models.DepositStatusPublished, &now
	return d, nil
}

func (s *depositServiceStub) Search(ctx context.Context, query dto.DepositSearchQuery, actor *models.JWTClaims) ([]models.DepositSummary, *models.Pagination, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	s.query = query
	return []models.DepositSummary{{ID: "dep-1", Title: "Test"}}, &models.Pagination{Page: 2, PageSize: 5, TotalCount: 6}, nil
}

func TestDepositHandlerCreate(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"empty body", "", http.StatusCreated},
		{"metadata", `{"metadata":{"title":"Test"}}`, http.StatusCreated},
		{"unknown key", `{"title":"Test"}`, http.StatusBadRequest},
		{"malformed", `{"metadata":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &depositServiceStub{}
			h := NewDepositHandler(stub, "/api/v1", nil)
			c, w := newTestContext(http.MethodPost, "/deposits", stringsReader(tc.body), ownerClaims())
			h.Create(c)
			require.Equal(t, tc.status, w.Code, w.Body.String())
			if tc.status != http.StatusCreated {
				assert.Nil(t, stub.created)
				return
			}
			assert.Equal(t, "/api/v1/deposits/dep-1", w.Header().Get("Location"))
			var envelope struct {
				Data dto.DepositResponse `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
			assert.Equal(t, models.DepositStatusDraft, envelope.Data.State)
			assert.Equal(t, "/api/v1/deposits/dep-1/actions/publish", envelope.Data.Links.Publish)
			assert.NotNil(t, envelope.Data.Files)
		})
	}
}

func TestDepositHandlerRequiresClaims(t *testing.T) {
	h := NewDepositHandler(&depositServiceStub{}, "/api/v1", nil)
	c, w := newTestContext(http.MethodGet, "/deposits/dep-1", nil, nil)
	c.Params = gin.Params{{Key: "id", Value: "dep-1"}}
	h.Get(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDepositHandlerListPassesQuery(t *testing.T) {
	stub := &depositServiceStub{}
	h := NewDepositHandler(stub, "/api/v1", nil)
	c, w := newTestContext(http.MethodGet, "/deposits?status=draft&page=2&page_size=5", nil, ownerClaims())
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.DepositSearchQuery{Status: "draft", Page: 2, PageSize: 5}, stub.query)
	var envelope struct {
		Data       []dto.DepositSummaryResponse `json:"data"`
		Pagination models.Pagination            `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "/api/v1/deposits/dep-1", envelope.Data[0].Links.Self)
	assert.Equal(t, 6, envelope.Pagination.TotalCount)
}

func TestDepositHandlerListRejectsBadPage(t *testing.T) {
	h := NewDepositHandler(&depositServiceStub{}, "/api/v1", nil)
	c, w := newTestContext(http.MethodGet, "/deposits?page=abc", nil, ownerClaims())
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDepositHandlerUpdateRequiresBody(t *testing.T) {
	h := NewDepositHandler(&depositServiceStub{}, "/api/v1", nil)
	c, w := newTestContext(http.MethodPut, "/deposits/dep-1", nil, ownerClaims())
	c.Params = gin.Params{{Key: "id", Value: "dep-1"}}
	h.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDepositHandlerPublish(t *testing.T) {
	h := NewDepositHandler(&depositServiceStub{}, "/api/v1", nil)
	c, w := newTestContext(http.MethodPost, "/deposits/dep-1/actions/publish", nil, ownerClaims())
	c.Params = gin.Params{{Key: "id", Value: "dep-1"}}
	h.Publish(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	var envelope struct {
		Data dto.DepositResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, models.DepositStatusPublished, envelope.Data.State)
	assert.NotNil(t, envelope.Data.PublishedAt)
}

func TestDepositHandlerErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{appErrors.Clone(appErrors.ErrNotFound, "deposit not found"), http.StatusNotFound},
		{appErrors.ErrForbidden, http.StatusForbidden},
		{appErrors.ErrDepositNotDraft, http.StatusForbidden},
		{appErrors.ErrStaleDeposit, http.StatusConflict},
		{appErrors.ErrUnavailable, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		h := NewDepositHandler(&depositServiceStub{err: tc.err}, "/api/v1", nil)
		c, w := newTestContext(http.MethodDelete, "/deposits/dep-1", nil, ownerClaims())
		c.Params = gin.Params{{Key: "id", Value: "dep-1"}}
		h.Delete(c)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		assert.Len(t, decodeErrors(t, w.Body.Bytes()), 1)
	}
}
