package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/citypulse/server/internal/models"
	"github.com/citypulse/server/internal/utils"
)

// AbortWithError writes err as a models.APIError and stops the chain.
// Errors that are not AppErrors become 500s and are logged.
func AbortWithError(c *gin.Context, err error) {
	appErr := utils.AsAppError(err)
	if appErr.StatusCode >= 500 {
		utils.LogError(c.Request.Context(), appErr.Message, err)
	}

	body := models.APIError{
		Error:   string(appErr.Code),
		Message: appErr.Message,
	}
	if field, ok := appErr.Details["field"].(string); ok {
		body.Details = field
	}
	c.AbortWithStatusJSON(appErr.StatusCode, body)
}
