package response

import (
	"log"
	"net/http"

	"anoa.com/labeebacademy/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys set by the auth middleware.
const (
	ContextUserID = "user_id"
	ContextToken  = "access_token"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	s, ok := userIDStr.(string)
	if !ok {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Log internal errors
	if code == http.StatusInternalServerError {
		log.Printf("[Internal Error] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}

	c.JSON(code, gin.H{"error": err.Error()})
}

// ResponseMessage answers with a plain message payload.
func ResponseMessage(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"message": message})
}
