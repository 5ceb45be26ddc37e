package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/barangay-api/internal/models"
	appErrors "github.com/noah-isme/barangay-api/pkg/errors"
)

type authServiceMock struct {
	login     *models.LoginResponse
	me        *models.UserInfo
	err       error
	lastLogin models.LoginRequest
	lastUser  string
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.lastLogin = req
	return m.login, m.err
}

func (m *authServiceMock) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	m.lastUser = userID
	return m.me, m.err
}

func TestAuthHandlerLoginCapturesClientMeta(t *testing.T) {
	mockSvc := &authServiceMock{login: &models.LoginResponse{AccessToken: "token"}}
	h := NewAuthHandler(mockSvc)

	c, w := newContext(t, http.MethodPost, "/auth/login", map[string]string{"email": "captain@barangay.local", "password": "secret"}, nil)
	c.Request.Header.Set("User-Agent", "kiosk/1.0")
	h.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "captain@barangay.local", mockSvc.lastLogin.Email)
	assert.Equal(t, "kiosk/1.0", mockSvc.lastLogin.UserAgent)
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{err: appErrors.ErrInvalidCredentials})

	c, w := newContext(t, http.MethodPost, "/auth/login", map[string]string{"email": "x@y.z", "password": "bad"}, nil)
	h.Login(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerMeRequiresClaims(t *testing.T) {
	mockSvc := &authServiceMock{}
	h := NewAuthHandler(mockSvc)

	c, w := newContext(t, http.MethodGet, "/auth/me", nil, nil)
	h.Me(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, mockSvc.lastUser)
}

func TestAuthHandlerMe(t *testing.T) {
	mockSvc := &authServiceMock{me: &models.UserInfo{ID: "user-captain", Role: models.RoleCaptain}}
	h := NewAuthHandler(mockSvc)

	c, w := newContext(t, http.MethodGet, "/auth/me", nil, captain())
	h.Me(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-captain", mockSvc.lastUser)
}
