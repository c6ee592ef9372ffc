package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-notes-api/internal/dto"
	"github.com/noah-isme/sma-notes-api/internal/models"
	"github.com/noah-isme/sma-notes-api/pkg/response"
)

type ratingService interface {
	Rate(ctx context.Context, session *models.Session, noteID string, req dto.RateNoteRequest) (*models.RatingSummary, error)
	ListForNote(ctx context.Context, noteID string) ([]models.RatingView, error)
}

// RatingHandler serves note ratings.
type RatingHandler struct {
	ratings ratingService
}

// NewRatingHandler constructs a RatingHandler.
func NewRatingHandler(ratings ratingService) *RatingHandler {
	return &RatingHandler{ratings: ratings}
}

// Rate godoc
// @Summary Rate note
// @Description Create or replace the caller's rating
// @Tags Ratings
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param payload body dto.RateNoteRequest true "Rating payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notes/{id}/ratings [post]
func (h *RatingHandler) Rate(c *gin.Context) {
	var req dto.RateNoteRequest
	if !bindJSON(c, &req, "invalid rating payload") {
		return
	}
	summary, err := h.ratings.Rate(c.Request.Context(), sessionFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// List godoc
// @Summary List ratings
// @Tags Ratings
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notes/{id}/ratings [get]
func (h *RatingHandler) List(c *gin.Context) {
	ratings, err := h.ratings.ListForNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ratings, map[string]interface{}{"count": len(ratings)})
}
