package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"anoa.com/labeebacademy/internal/entity"
	"anoa.com/labeebacademy/internal/modules/user/dto"
	"anoa.com/labeebacademy/internal/navigation"
	"anoa.com/labeebacademy/pkg/apperror"
	"anoa.com/labeebacademy/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuthService struct {
	signInErr  error
	signedOut  string
	routeCalls []uuid.UUID
}

func (s *stubAuthService) SignUp(_ context.Context, in dto.SignupInput) (*dto.SignupResponse, error) {
	if in.Email == "taken@x.com" {
		return nil, apperror.New(http.StatusConflict, "email address is already in use", apperror.ErrConflict)
	}
	return &dto.SignupResponse{
		Message:     "Account created successfully! Redirecting to login...",
		Profile:     &entity.Profile{Name: in.Name, Email: in.Email, Role: entity.RoleStudent},
		Destination: navigation.AfterSignUp(),
	}, nil
}

func (s *stubAuthService) SignIn(context.Context, dto.LoginInput) (*dto.AuthResponse, error) {
	if s.signInErr != nil {
		return nil, s.signInErr
	}
	return &dto.AuthResponse{
		AccessToken: "tok",
		TokenType:   "Bearer",
		Destination: navigation.Destination{Route: navigation.StudentDashboard, Replace: true},
	}, nil
}

func (s *stubAuthService) SignOut(_ context.Context, token string) (*dto.SignOutResponse, error) {
	s.signedOut = token
	return &dto.SignOutResponse{Message: "signed out", Destination: navigation.AfterSignOut()}, nil
}

func (s *stubAuthService) Session(_ context.Context, id uuid.UUID) (*dto.SessionResponse, error) {
	return &dto.SessionResponse{Profile: &entity.Profile{ID: id}}, nil
}

func (s *stubAuthService) CheckRoute(_ context.Context, id uuid.UUID, route string) (*dto.RouteAccessResponse, error) {
	s.routeCalls = append(s.routeCalls, id)
	r, err := navigation.Parse(route)
	if err != nil {
		return nil, err
	}
	return &dto.RouteAccessResponse{Route: r, Allowed: true}, nil
}

func newRouter(svc *stubAuthService, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(svc)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set(response.ContextUserID, userID)
			c.Set(response.ContextToken, "tok-"+userID)
		}
	})
	r.POST("/signup", h.SignUp)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.GET("/session", h.Session)
	r.GET("/navigation", h.CheckRoute)
	return r
}

func postJSON(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSignUpHandler(t *testing.T) {
	r := newRouter(&stubAuthService{}, "")

	w := postJSON(r, "/signup", gin.H{"name": "Jane", "email": "jane@x.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code)

	var res dto.SignupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "Account created successfully! Redirecting to login...", res.Message)
	assert.Equal(t, navigation.Login, res.Destination.Route)

	w = postJSON(r, "/signup", gin.H{"name": "Jane", "email": "not-an-email", "password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(r, "/signup", gin.H{"name": "Jane", "email": "taken@x.com", "password": "secret123"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginHandlerMapsResolverErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"ok", nil, http.StatusOK, ""},
		{"bad credentials", apperror.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{"no profile", apperror.ErrProfileNotFound, http.StatusForbidden, "User profile not found. Please contact support."},
		{"bad role", apperror.ErrInvalidRole, http.StatusForbidden, "Invalid role. Please contact support."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(&stubAuthService{signInErr: tt.err}, "")
			w := postJSON(r, "/login", gin.H{"email": "jane@x.com", "password": "secret123"})
			assert.Equal(t, tt.code, w.Code)
			if tt.msg != "" {
				assert.Contains(t, w.Body.String(), tt.msg)
			}
		})
	}
}

func TestLogoutHandler(t *testing.T) {
	svc := &stubAuthService{}
	id := uuid.NewString()
	r := newRouter(svc, id)

	w := postJSON(r, "/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok-"+id, svc.signedOut)
	assert.Contains(t, w.Body.String(), `"route":"/"`)

	w = postJSON(newRouter(&stubAuthService{}, ""), "/logout", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckRouteHandler(t *testing.T) {
	svc := &stubAuthService{}
	r := newRouter(svc, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/navigation?route=/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.routeCalls, 1)
	assert.Equal(t, uuid.Nil, svc.routeCalls[0])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/navigation?route=/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/navigation", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler(t *testing.T) {
	id := uuid.New()
	r := newRouter(&stubAuthService{}, id.String())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/session", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id.String())

	w = httptest.NewRecorder()
	newRouter(&stubAuthService{}, "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/session", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
