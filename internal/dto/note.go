package dto

// CreateNoteRequest contains metadata submitted alongside a file upload.
// Tags arrive as a comma separated list.
type CreateNoteRequest struct {
	Title       string `form:"title" json:"title"`
	Category    string `form:"category" json:"category"`
	Subject     string `form:"subject" json:"subject"`
	Description string `form:"description" json:"description"`
	Tags        string `form:"tags" json:"tags"`
}

// SearchNotesQuery binds the browse query string.
type SearchNotesQuery struct {
	Text     string `form:"q"`
	Category string `form:"category"`
	Sort     string `form:"sort"`
	Format   string `form:"format"`
}
