package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-backoffice/internal/auth"
	"github.com/ukydev/fleet-backoffice/internal/middleware"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

// MockUserCollection is a mock implementation of UserCollection
type MockUserCollection struct {
	mock.Mock
}

func (m *MockUserCollection) InsertUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserCollection) UpdateUser(ctx context.Context, id string, user models.User) error {
	args := m.Called(ctx, id, user)
	return args.Error(0)
}

func (m *MockUserCollection) DeleteUser(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestAuthService(t *testing.T) *auth.Service {
	t.Helper()
	authService, err := auth.NewService("test-secret", time.Hour)
	require.NoError(t, err)
	return authService
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func withClaims(req *http.Request, userID string, role models.Role) *http.Request {
	claims := &models.Claims{UserID: userID, Username: userID, Role: role}
	return req.WithContext(middleware.WithUser(req.Context(), claims))
}

func TestAuthHandler_Login(t *testing.T) {
	authService := newTestAuthService(t)
	passwordHash, err := authService.HashPassword("password123")
	require.NoError(t, err)
	user := &models.User{
		ID:           "u1",
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: passwordHash,
		Role:         models.RoleOperator,
		IsActive:     true,
	}

	t.Run("successful login", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection, newTestLogger())
		mockUserCollection.On("FindUserByUsername", mock.Anything, "testuser").Return(user, nil)
		mockUserCollection.On("UpdateLastLogin", mock.Anything, "u1").Return(nil)

		req := httptest.NewRequest("POST", "/api/auth/login",
			jsonBody(t, models.LoginRequest{Username: "testuser", Password: "password123"}))
		w := httptest.NewRecorder()
		handler.Login(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var response models.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.NotEmpty(t, response.Token)
		assert.NotEmpty(t, response.RefreshToken)
		assert.Equal(t, "u1", response.User.ID)
		assert.NotContains(t, w.Body.String(), passwordHash)

		claims, err := authService.ValidateToken(response.Token)
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.UserID)
		mockUserCollection.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection, newTestLogger())
		mockUserCollection.On("FindUserByUsername", mock.Anything, "testuser").Return(user, nil)

		req := httptest.NewRequest("POST", "/api/auth/login",
			jsonBody(t, models.LoginRequest{Username: "testuser", Password: "wrong"}))
		w := httptest.NewRecorder()
		handler.Login(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockUserCollection.AssertNotCalled(t, "UpdateLastLogin", mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection, newTestLogger())
		mockUserCollection.On("FindUserByUsername", mock.Anything, "ghost").Return(nil, models.NotFound("user", "ghost"))

		req := httptest.NewRequest("POST", "/api/auth/login",
			jsonBody(t, models.LoginRequest{Username: "ghost", Password: "password123"}))
		w := httptest.NewRecorder()
		handler.Login(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("inactive user", func(t *testing.T) {
		inactive := *user
		inactive.IsActive = false
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection, newTestLogger())
		mockUserCollection.On("FindUserByUsername", mock.Anything, "testuser").Return(&inactive, nil)

		req := httptest.NewRequest("POST", "/api/auth/login",
			jsonBody(t, models.LoginRequest{Username: "testuser", Password: "password123"}))
		w := httptest.NewRecorder()
		handler.Login(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "deactivated")
	})

	t.Run("missing fields and bad JSON", func(t *testing.T) {
		handler := NewAuthHandler(authService, new(MockUserCollection), newTestLogger())

		w := httptest.NewRecorder()
		handler.Login(w, httptest.NewRequest("POST", "/api/auth/login", jsonBody(t, models.LoginRequest{Username: "x"})))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = httptest.NewRecorder()
		handler.Login(w, httptest.NewRequest("POST", "/api/auth/login", bytes.NewBufferString("{")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_Register(t *testing.T) {
	authService := newTestAuthService(t)
	registerReq := models.RegisterRequest{
		Username: "newuser",
		Email:    "new@example.com",
		Password: "password123",
	}

	t.Run("successful registration", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection, newTestLogger())
		mockUserCollection.On("FindUserByUsername", mock.Anything, "newuser").Return(nil, models.NotFound("user", "newuser"))
		mockUserCollection.On("FindUserByEmail", mock.Anything, "new@example.com").Return(nil, models.NotFound("user", "new@example.com"))
		mockUserCollection.On("InsertUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
			return u.ID != "" && u.Username == "newuser" && u.IsActive && u.PasswordHash != "password123" &&
				u.Role == models.RoleViewer && !u.CreatedAt.IsZero()
		})).Return(nil)

		w := httptest.NewRecorder()
		handler.Register(w, httptest.NewRequest("POST", "/api/auth/register", jsonBody(t, registerReq)))

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp models.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, models.RoleViewer, resp.User.Role)
		assert.False(t, resp.User.CreatedAt.IsZero())
		assert.False(t, resp.User.UpdatedAt.IsZero())
		mockUserCollection.AssertExpectations(t)
	})

	t.Run("elevated role rejected", func(t *testing.T) {
		for _, role := range []models.Role{models.RoleAdmin, models.RoleManager, models.RoleOperator} {
			mockUserCollection := new(MockUserCollection)
			handler := NewAuthHandler(authService, mockUserCollection, newTestLogger())
			req := registerReq
			req.Role = role

			w := httptest.NewRecorder()
			handler.Register(w, httptest.NewRequest("POST", "/api/auth/register", jsonBody(t, req)))

			assert.Equal(t, http.StatusBadRequest, w.Code, role)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "role", resp.Field)
			mockUserCollection.AssertNotCalled(t, "InsertUser", mock.Anything, mock.Anything)
		}
	})

	t.Run("username taken", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection, newTestLogger())
		mockUserCollection.On("FindUserByUsername", mock.Anything, "newuser").Return(&models.User{ID: "other"}, nil)

		w := httptest.NewRecorder()
		handler.Register(w, httptest.NewRequest("POST", "/api/auth/register", jsonBody(t, registerReq)))

		assert.Equal(t, http.StatusConflict, w.Code)
		mockUserCollection.AssertNotCalled(t, "InsertUser", mock.Anything, mock.Anything)
	})

	t.Run("invalid input", func(t *testing.T) {
		handler := NewAuthHandler(authService, new(MockUserCollection), newTestLogger())
		bad := registerReq
		bad.Password = "short"

		w := httptest.NewRecorder()
		handler.Register(w, httptest.NewRequest("POST", "/api/auth/register", jsonBody(t, bad)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "password", resp.Field)
	})
}

func TestAuthHandler_CreateUser(t *testing.T) {
	authService := newTestAuthService(t)
	createReq := models.RegisterRequest{
		Username: "fleetmgr",
		Email:    "mgr@example.com",
		Password: "password123",
		Role:     models.RoleManager,
	}

	t.Run("creates user with role", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection, newTestLogger())
		mockUserCollection.On("FindUserByUsername", mock.Anything, "fleetmgr").Return(nil, models.NotFound("user", "fleetmgr"))
		mockUserCollection.On("FindUserByEmail", mock.Anything, "mgr@example.com").Return(nil, models.NotFound("user", "mgr@example.com"))
		mockUserCollection.On("InsertUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
			return u.Role == models.RoleManager
		})).Return(nil)

		w := httptest.NewRecorder()
		handler.CreateUser(w, withClaims(httptest.NewRequest("POST", "/api/users", jsonBody(t, createReq)), "admin-1", models.RoleAdmin))

		assert.Equal(t, http.StatusCreated, w.Code)
		var user models.User
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
		assert.Equal(t, models.RoleManager, user.Role)
		assert.NotContains(t, w.Body.String(), "token")
		mockUserCollection.AssertExpectations(t)
	})

	t.Run("invalid role", func(t *testing.T) {
		handler := NewAuthHandler(authService, new(MockUserCollection), newTestLogger())
		bad := createReq
		bad.Role = "root"

		w := httptest.NewRecorder()
		handler.CreateUser(w, withClaims(httptest.NewRequest("POST", "/api/users", jsonBody(t, bad)), "admin-1", models.RoleAdmin))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_GetProfile(t *testing.T) {
	authService := newTestAuthService(t)

	t.Run("found", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection, newTestLogger())
		mockUserCollection.On("FindUserByID", mock.Anything, "u1").Return(&models.User{ID: "u1", Username: "testuser"}, nil)

		w := httptest.NewRecorder()
		handler.GetProfile(w, withClaims(httptest.NewRequest("GET", "/api/auth/profile", nil), "u1", models.RoleViewer))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "testuser")
	})

	t.Run("no claims", func(t *testing.T) {
		handler := NewAuthHandler(authService, new(MockUserCollection), newTestLogger())
		w := httptest.NewRecorder()
		handler.GetProfile(w, httptest.NewRequest("GET", "/api/auth/profile", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("deleted user", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection, newTestLogger())
		mockUserCollection.On("FindUserByID", mock.Anything, "u1").Return(nil, models.NotFound("user", "u1"))

		w := httptest.NewRecorder()
		handler.GetProfile(w, withClaims(httptest.NewRequest("GET", "/api/auth/profile", nil), "u1", models.RoleViewer))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAuthHandler_UpdateProfile(t *testing.T) {
	authService := newTestAuthService(t)
	mockUserCollection := new(MockUserCollection)
	handler := NewAuthHandler(authService, mockUserCollection, newTestLogger())

	mockUserCollection.On("FindUserByID", mock.Anything, "u1").Return(&models.User{ID: "u1", Email: "old@example.com"}, nil)
	mockUserCollection.On("FindUserByEmail", mock.Anything, "taken@example.com").Return(&models.User{ID: "u2"}, nil)
	mockUserCollection.On("FindUserByEmail", mock.Anything, "new@example.com").Return(nil, models.NotFound("user", "new@example.com"))
	mockUserCollection.On("UpdateUser", mock.Anything, "u1", mock.MatchedBy(func(u models.User) bool {
		return u.Email == "new@example.com" && u.FirstName == "Ana"
	})).Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/api/auth/profile", jsonBody(t, map[string]string{"email": "taken@example.com"}))
	handler.UpdateProfile(w, withClaims(req, "u1", models.RoleViewer))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest("PUT", "/api/auth/profile", jsonBody(t, map[string]string{"email": "new@example.com", "first_name": "Ana"}))
	handler.UpdateProfile(w, withClaims(req, "u1", models.RoleViewer))
	assert.Equal(t, http.StatusOK, w.Code)
	mockUserCollection.AssertExpectations(t)
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	authService := newTestAuthService(t)
	currentHash, err := authService.HashPassword("oldpassword1")
	require.NoError(t, err)

	newHandler := func() (*AuthHandler, *MockUserCollection) {
		mockUserCollection := new(MockUserCollection)
		mockUserCollection.On("FindUserByID", mock.Anything, "u1").Return(&models.User{ID: "u1", PasswordHash: currentHash}, nil)
		return NewAuthHandler(authService, mockUserCollection, newTestLogger()), mockUserCollection
	}

	t.Run("success", func(t *testing.T) {
		handler, mockUserCollection := newHandler()
		mockUserCollection.On("UpdateUser", mock.Anything, "u1", mock.MatchedBy(func(u models.User) bool {
			return authService.CheckPassword("newpassword1", u.PasswordHash)
		})).Return(nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/auth/password", jsonBody(t, map[string]string{
			"current_password": "oldpassword1", "new_password": "newpassword1",
		}))
		handler.ChangePassword(w, withClaims(req, "u1", models.RoleViewer))
		assert.Equal(t, http.StatusOK, w.Code)
		mockUserCollection.AssertExpectations(t)
	})

	t.Run("wrong current password", func(t *testing.T) {
		handler, mockUserCollection := newHandler()

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/auth/password", jsonBody(t, map[string]string{
			"current_password": "nope-nope", "new_password": "newpassword1",
		}))
		handler.ChangePassword(w, withClaims(req, "u1", models.RoleViewer))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockUserCollection.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("weak new password", func(t *testing.T) {
		handler, _ := newHandler()

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/auth/password", jsonBody(t, map[string]string{
			"current_password": "oldpassword1", "new_password": "short",
		}))
		handler.ChangePassword(w, withClaims(req, "u1", models.RoleViewer))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
