package models

import "time"

// DownloadEvent records one download of a note by a user.
type DownloadEvent struct {
	ID           string    `db:"id" json:"id"`
	NoteID       string    `db:"note_id" json:"note_id"`
	UserID       string    `db:"user_id" json:"user_id"`
	DownloadDate time.Time `db:"download_date" json:"download_date"`
}

// DownloadTicket is returned after a counted download and grants temporary
// access to the file.
type DownloadTicket struct {
	NoteID    string    `json:"note_id"`
	FileName  string    `json:"file_name"`
	FileSize  int64     `json:"file_size"`
	Downloads int64     `json:"downloads"`
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	Locator   string    `json:"-"`
}
