package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-notes-api/internal/models"
	"github.com/noah-isme/sma-notes-api/pkg/response"
)

type profileService interface {
	Stats(ctx context.Context, session *models.Session) (*models.UserStats, error)
	MyNotes(ctx context.Context, session *models.Session) ([]models.NoteView, error)
}

// ProfileHandler serves the caller's own statistics and uploads.
type ProfileHandler struct {
	profiles profileService
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(profiles profileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Stats godoc
// @Summary My statistics
// @Tags Profile
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /me/stats [get]
func (h *ProfileHandler) Stats(c *gin.Context) {
	stats, err := h.profiles.Stats(c.Request.Context(), sessionFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// MyNotes godoc
// @Summary My uploads
// @Tags Profile
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /me/notes [get]
func (h *ProfileHandler) MyNotes(c *gin.Context) {
	views, err := h.profiles.MyNotes(c.Request.Context(), sessionFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, map[string]interface{}{"count": len(views)})
}
