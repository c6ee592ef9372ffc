package models

// Session is the authenticated identity a request acts as. A nil *Session
// means the caller is anonymous.
type Session struct {
	SessionID string   `json:"session_id"`
	UserID    string   `json:"user_id"`
	Username  string   `json:"username"`
	Role      UserRole `json:"role"`
}

// Authenticated reports whether s identifies a user.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != ""
}

// IsAdmin reports whether the session holds the admin role.
func (s *Session) IsAdmin() bool {
	return s.Authenticated() && s.Role == RoleAdmin
}

// CanUpload reports whether the session may add notes to the catalog.
func CanUpload(s *Session) bool {
	return s.Authenticated()
}

// CanDownload reports whether the session may fetch note files.
func CanDownload(s *Session) bool {
	return s.Authenticated()
}

// CanRate reports whether the session may rate notes.
func CanRate(s *Session) bool {
	return s.Authenticated()
}

// CanDeleteNote allows the note's uploader and administrators.
func CanDeleteNote(s *Session, note *Note) bool {
	if !s.Authenticated() || note == nil {
		return false
	}
	return note.UploaderID == s.UserID || s.IsAdmin()
}
