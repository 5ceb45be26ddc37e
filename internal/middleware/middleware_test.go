package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/barangay-api/internal/models"
	appErrors "github.com/noah-isme/barangay-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
	err    error
}

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, v.err
}

type auditRecorder struct {
	mu      sync.Mutex
	entries []*models.AuditLog
	err     error
}

func (a *auditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, log)
	return a.err
}

type observerStub struct {
	method, path string
	status       int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.method, o.path, o.status = method, path, status
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func serve(r *gin.Engine, method, target, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	r := newRouter()
	r.GET("/me", JWT(validatorStub{claims: &models.JWTClaims{UserID: "u1"}}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "Bearer bad").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/me", "Bearer good").Code)
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	r := newRouter()
	var seen bool
	r.GET("/verify", OptionalJWT(validatorStub{claims: &models.JWTClaims{UserID: "u1"}}), func(c *gin.Context) {
		_, seen = c.Get(ContextUserKey)
		c.Status(http.StatusOK)
	})

	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/verify", "Bearer bad").Code)
	assert.False(t, seen)
	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/verify", "Bearer good").Code)
	assert.True(t, seen)
}

func TestRequireAuthority(t *testing.T) {
	for _, tc := range []struct {
		role   models.UserRole
		status int
	}{
		{models.RoleCaptain, http.StatusOK},
		{models.RoleAdmin, http.StatusOK},
		{models.RoleSecretary, http.StatusForbidden},
		{models.RoleStaff, http.StatusForbidden},
	} {
		t.Run(string(tc.role), func(t *testing.T) {
			r := newRouter()
			r.GET("/officials", JWT(validatorStub{claims: &models.JWTClaims{UserID: "u1", Role: tc.role}}), RequireAuthority(), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})
			assert.Equal(t, tc.status, serve(r, http.MethodGet, "/officials", "Bearer good").Code)
		})
	}
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	r := newRouter()
	r.GET("/x", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/x", "").Code)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	recorder := &auditRecorder{err: errors.New("db down")}
	r := newRouter()
	r.POST("/certificates/:id/approve",
		JWT(validatorStub{claims: &models.JWTClaims{UserID: "user-captain", Role: models.RoleCaptain}}),
		Audit(recorder, nil, models.AuditActionStatusChange, "certificate_request"),
		func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/certificates/:id/reject",
		JWT(validatorStub{claims: &models.JWTClaims{UserID: "user-captain", Role: models.RoleCaptain}}),
		Audit(recorder, nil, models.AuditActionStatusChange, "certificate_request"),
		func(c *gin.Context) { c.Status(http.StatusUnprocessableEntity) })

	require.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/certificates/req-42/approve", "Bearer good").Code)
	require.Equal(t, http.StatusUnprocessableEntity, serve(r, http.MethodPost, "/certificates/req-42/reject", "Bearer good").Code)

	require.Len(t, recorder.entries, 1)
	entry := recorder.entries[0]
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "user-captain", *entry.UserID)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "req-42", *entry.ResourceID)
	assert.Contains(t, string(entry.NewValues), "/certificates/:id/approve")
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	observer := &observerStub{}
	r := newRouter()
	r.Use(Metrics(observer))
	r.GET("/blotters/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/blotters/case-1", "")
	assert.Equal(t, "/blotters/:id", observer.path)
	assert.Equal(t, http.StatusOK, observer.status)

	serve(r, http.MethodGet, "/nowhere", "")
	assert.Equal(t, "unmatched", observer.path)
	assert.Equal(t, http.StatusNotFound, observer.status)
}
