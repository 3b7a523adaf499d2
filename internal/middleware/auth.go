package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"anoa.com/labeebacademy/internal/entity"
	userRepo "anoa.com/labeebacademy/internal/modules/user/repository"
	"anoa.com/labeebacademy/pkg/apperror"
	"anoa.com/labeebacademy/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*jwt.RegisteredClaims, error)
}

type AuthMiddleware struct {
	userRepo userRepo.UserRepository
	tokens   TokenVerifier
}

func NewAuthMiddleware(userRepo userRepo.UserRepository, tokens TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}

	// Fallback to query parameter "token" (browsers cannot set headers on WebSockets)
	return c.Query("token")
}

func (m *AuthMiddleware) authenticate(c *gin.Context) error {
	tokenString := bearerToken(c)
	if tokenString == "" {
		return apperror.New(http.StatusUnauthorized, "authorization required", apperror.ErrUnauthorized)
	}

	claims, err := m.tokens.Verify(c.Request.Context(), tokenString)
	if err != nil {
		return err
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return apperror.New(http.StatusUnauthorized, "invalid token claims", apperror.ErrUnauthorized)
	}

	c.Set(response.ContextUserID, claims.Subject)
	c.Set(response.ContextToken, tokenString)
	return nil
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.authenticate(c); err != nil {
			response.ResponseError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and
// otherwise lets the request through anonymously.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if bearerToken(c) != "" {
			_ = m.authenticate(c)
		}
		c.Next()
	}
}

// RequireRole loads the caller's profile and only admits the given role. It
// must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(role entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := response.GetUserID(c)
		if err != nil {
			response.ResponseError(c, apperror.New(http.StatusUnauthorized, "user not authenticated", apperror.ErrUnauthorized))
			c.Abort()
			return
		}

		profile, err := m.userRepo.FindProfileByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = apperror.ErrProfileNotFound
			}
			response.ResponseError(c, err)
			c.Abort()
			return
		}

		if !profile.Role.Valid() {
			response.ResponseError(c, apperror.ErrInvalidRole)
			c.Abort()
			return
		}

		if profile.Role != role {
			c.JSON(http.StatusForbidden, gin.H{"error": role.String() + " access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
