package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/deposit-api/internal/models"
	"github.com/noah-isme/deposit-api/internal/service"
)

func newProtectedRouter(tokens TokenValidator, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWT(tokens))
	handler := func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.String(http.StatusOK, claims.UserID)
	}
	if len(roles) > 0 {
		router.GET("/", RequireRoles(roles...), handler)
	} else {
		router.GET("/", handler)
	}
	return router
}

func TestJWTMiddleware(t *testing.T) {
	tokens := service.NewTokenService(service.TokenConfig{Secret: "secret", Expiration: time.Hour})
	token, _, err := tokens.Issue("user-1", models.RoleUser, "")
	require.NoError(t, err)
	router := newProtectedRouter(tokens)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			require.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "user-1", rec.Body.String())
				return
			}
			var body struct {
				Errors []map[string]string `json:"errors"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Len(t, body.Errors, 1)
			assert.Equal(t, "UNAUTHORIZED", body.Errors[0]["code"])
		})
	}
}

func TestRequireRoles(t *testing.T) {
	tokens := service.NewTokenService(service.TokenConfig{Secret: "secret", Expiration: time.Hour})
	router := newProtectedRouter(tokens, models.RoleAdmin)

	userToken, _, err := tokens.Issue("user-1", models.RoleUser, "")
	require.NoError(t, err)
	adminToken, _, err := tokens.Issue("admin-1", models.RoleAdmin, "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsMiddlewareRecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/deposits/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/deposits/dep-1", nil))

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(rec.Body.String(), `path="/deposits/:id"`))
}

func TestAuditAttachesOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Audit())
	var origin models.AuditOrigin
	router.GET("/", func(c *gin.Context) {
		origin, _ = models.AuditOriginFrom(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	req.Header.Set("User-Agent", "deposit-cli/1.0")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "192.0.2.10", origin.IPAddress)
	assert.Equal(t, "deposit-cli/1.0", origin.UserAgent)
}
