package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-notes-api/internal/middleware"
	"github.com/noah-isme/sma-notes-api/internal/models"
	appErrors "github.com/noah-isme/sma-notes-api/pkg/errors"
	"github.com/noah-isme/sma-notes-api/pkg/response"
)

func sessionFromContext(c *gin.Context) *models.Session {
	return middleware.Session(c)
}

// bindJSON decodes the body into dest and writes a validation error when
// decoding fails.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}
