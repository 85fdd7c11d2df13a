package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/deposit-api/pkg/errors"
)

func TestErrorRendersErrorsList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Error(c, appErrors.ErrNotFound)

	require.Equal(t, http.StatusNotFound, w.Code)
	var body struct {
		Error  appErrors.Error        `json:"error"`
		Errors []appErrors.FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestCreatedSetsLocation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	Created(c, gin.H{"id": "dep-1"}, "/api/v1/deposits/dep-1")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/api/v1/deposits/dep-1", w.Header().Get("Location"))
	assert.JSONEq(t, `{"data":{"id":"dep-1"}}`, w.Body.String())
}
