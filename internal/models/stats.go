package models

import "time"

// UserStats summarises a user's activity.
type UserStats struct {
	Username                string   `json:"username"`
	Email                   string   `json:"email"`
	Role                    UserRole `json:"role"`
	MemberSince             string   `json:"member_since"`
	TotalUploads            int64    `json:"total_uploads"`
	TotalDownloadsOfUploads int64    `json:"total_downloads_of_uploads"`
	PersonalDownloads       int64    `json:"personal_downloads"`
	RatingsGiven            int64    `json:"ratings_given"`
}

// ActivityCounts holds the aggregate part of UserStats as read from storage.
type ActivityCounts struct {
	TotalUploads            int64 `db:"total_uploads"`
	TotalDownloadsOfUploads int64 `db:"total_downloads_of_uploads"`
	PersonalDownloads       int64 `db:"personal_downloads"`
	RatingsGiven            int64 `db:"ratings_given"`
}

// MemberSinceDate formats an account creation time as YYYY-MM-DD.
func MemberSinceDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
