package dto

// RateNoteRequest carries a 1 to 5 score and an optional review.
type RateNoteRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Review string `json:"review" validate:"max=2000"`
}
