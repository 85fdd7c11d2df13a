package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/deposit-api/internal/middleware"
	"github.com/noah-isme/deposit-api/internal/models"
	"github.com/noah-isme/deposit-api/internal/repository"
)

// memoryDepositStore satisfies the service store and search loader contracts.
type memoryDepositStore struct {
	mu       sync.Mutex
	seq      int
	deposits map[string]*models.Deposit
}

func newMemoryDepositStore() *memoryDepositStore {
	return &memoryDepositStore{deposits: make(map[string]*models.Deposit)}
}

func (s *memoryDepositStore) Create(ctx context.Context, d *models.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if d.ID == "" {
		d.ID = fmt.Sprintf("dep-%d", s.seq)
	}
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt, d.Version = now, now, 1
	s.deposits[d.ID] = d.Clone()
	return nil
}

func (s *memoryDepositStore) GetByID(ctx context.Context, id string) (*models.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deposits[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return d.Clone(), nil
}

func (s *memoryDepositStore) Commit(ctx context.Context, d *models.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.deposits[d.ID]
	if !ok || stored.Version != d.Version {
		return repository.ErrStaleVersion
	}
	d.Renumber()
	d.Version++
	d.UpdatedAt = time.Now().UTC()
	s.deposits[d.ID] = d.Clone()
	return nil
}

func (s *memoryDepositStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deposits[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.deposits, id)
	return nil
}

func (s *memoryDepositStore) ListSummaries(ctx context.Context, filter models.DepositFilter) ([]models.DepositSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.DepositSummary, 0, len(s.deposits))
	for _, d := range s.deposits {
		out = append(out, d.Summary())
	}
	return out, nil
}

func ownerClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Role: models.RoleUser}
}

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextUserKey, claims)
		}
		c.Next()
	}
}

func newTestContext(method, target string, body io.Reader, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, body)
	c.Request.Header.Set("Content-Type", "application/json")
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

// multipartBody builds an upload form. A blank name omits the name field.
func multipartBody(filename, name string, content []byte) (*bytes.Buffer, string) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	if name != "" {
		_ = mw.WriteField("name", name)
	}
	part, _ := mw.CreateFormFile("file", filename)
	_, _ = part.Write(content)
	_ = mw.Close()
	return buf, mw.FormDataContentType()
}

func uploadRequest(target, filename string, content []byte) *http.Request {
	body, contentType := multipartBody(filename, filename, content)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", contentType)
	return req
}

func httptestRequest(method, target string, body io.Reader) *http.Request {
	return httptest.NewRequest(method, target, body)
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func stringsReader(s string) io.Reader {
	return strings.NewReader(s)
}

type httptestRecorder struct {
	*httptest.ResponseRecorder
}

func (r *httptestRecorder) data(t *testing.T, dst interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(r.Body.Bytes(), &envelope), r.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, dst))
}

func (r *httptestRecorder) pagination(t *testing.T) models.Pagination {
	t.Helper()
	var envelope struct {
		Pagination models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(r.Body.Bytes(), &envelope), r.Body.String())
	return envelope.Pagination
}
