package response

import (
	"errors"
	"log"
	"net/http"

	"github.com/andydwyer/flix/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(userIDStr.(string))
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// ResponseError standardized error response. ValidationErrors carry their
// per-field messages so forms can be re-rendered with the full list.
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Log internal errors
	if code == http.StatusInternalServerError {
		log.Printf("[Internal Error]: %v", err)
	}

	var ve *apperror.ValidationError
	if errors.As(err, &ve) {
		c.JSON(code, gin.H{"error": ve.Error(), "errors": ve.Fields})
		return
	}

	c.JSON(code, gin.H{"error": err.Error()})
}
