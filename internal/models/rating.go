package models

import "time"

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Rating is one user's score for a note. At most one exists per (note, user).
type Rating struct {
	ID        string    `db:"id" json:"id"`
	NoteID    string    `db:"note_id" json:"note_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Rating    int       `db:"rating" json:"rating"`
	Review    string    `db:"review" json:"review"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RatingView adds the reviewer's username for listings.
type RatingView struct {
	Rating
	Username string `db:"username" json:"username"`
}

// RatingSummary is a note's aggregate after a rating write.
type RatingSummary struct {
	NoteID      string  `json:"note_id"`
	RatingSum   int64   `json:"rating_sum"`
	RatingCount int64   `json:"rating_count"`
	AvgRating   float64 `json:"avg_rating"`
}
