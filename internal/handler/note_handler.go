package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-notes-api/internal/dto"
	"github.com/noah-isme/sma-notes-api/internal/models"
	"github.com/noah-isme/sma-notes-api/internal/service"
	appErrors "github.com/noah-isme/sma-notes-api/pkg/errors"
	"github.com/noah-isme/sma-notes-api/pkg/response"
)

// multipartOverhead is the allowance for form fields on top of the file limit.
const multipartOverhead int64 = 1 << 20

type noteService interface {
	Create(ctx context.Context, session *models.Session, req dto.CreateNoteRequest, upload service.NoteUpload) (*models.Note, error)
	Find(ctx context.Context, id string) (*models.NoteView, error)
	ListCategories(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, session *models.Session, id string) error
}

type searchService interface {
	Search(ctx context.Context, q models.SearchQuery) ([]models.NoteView, error)
}

type exportService interface {
	Export(ctx context.Context, q models.SearchQuery, format string) (*service.ExportFile, error)
}

type downloadService interface {
	Download(ctx context.Context, session *models.Session, noteID string) (*models.DownloadTicket, error)
	Open(ctx context.Context, noteID, token string) (io.ReadCloser, *models.Note, error)
}

// NoteHandler serves the catalog endpoints.
type NoteHandler struct {
	notes       noteService
	search      searchService
	exports     exportService
	downloads   downloadService
	maxFileSize int64
}

// NewNoteHandler constructs a NoteHandler. maxFileSize bounds the multipart
// body; the service enforces the exact file limit.
func NewNoteHandler(notes noteService, search searchService, exports exportService, downloads downloadService, maxFileSize int64) *NoteHandler {
	return &NoteHandler{notes: notes, search: search, exports: exports, downloads: downloads, maxFileSize: maxFileSize}
}

func searchQueryFrom(c *gin.Context) (dto.SearchNotesQuery, models.SearchQuery, bool) {
	var raw dto.SearchNotesQuery
	if err := c.ShouldBindQuery(&raw); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return raw, models.SearchQuery{}, false
	}
	return raw, models.SearchQuery{Text: raw.Text, Category: raw.Category, Sort: models.SortKey(raw.Sort)}, true
}

// Search godoc
// @Summary Search notes
// @Description Filter the catalog by text and category and sort by recent, popular or rating
// @Tags Notes
// @Produce json
// @Param q query string false "Free text"
// @Param category query string false "Category or All"
// @Param sort query string false "recent, popular or rating"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /notes [get]
func (h *NoteHandler) Search(c *gin.Context) {
	_, query, ok := searchQueryFrom(c)
	if !ok {
		return
	}
	views, err := h.search.Search(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, map[string]interface{}{"count": len(views)})
}

// Categories godoc
// @Summary List categories
// @Tags Notes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notes/categories [get]
func (h *NoteHandler) Categories(c *gin.Context) {
	categories, err := h.notes.ListCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories)
}

// Export godoc
// @Summary Export search results
// @Tags Notes
// @Security BearerAuth
// @Produce text/csv
// @Produce application/pdf
// @Param q query string false "Free text"
// @Param category query string false "Category or All"
// @Param sort query string false "recent, popular or rating"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /notes/export [get]
func (h *NoteHandler) Export(c *gin.Context) {
	raw, query, ok := searchQueryFrom(c)
	if !ok {
		return
	}
	file, err := h.exports.Export(c.Request.Context(), query, raw.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

// Create godoc
// @Summary Upload note
// @Tags Notes
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param category formData string true "Category"
// @Param subject formData string true "Subject"
// @Param description formData string false "Markdown description"
// @Param tags formData string false "Comma separated tags"
// @Param file formData file true "Note file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /notes [post]
func (h *NoteHandler) Create(c *gin.Context) {
	if h.maxFileSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileSize+multipartOverhead)
	}

	var req dto.CreateNoteRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, uploadError(err, "invalid upload form"))
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, uploadError(err, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload"))
		return
	}
	defer file.Close()

	note, err := h.notes.Create(c.Request.Context(), sessionFromContext(c), req, service.NoteUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, note)
}

func uploadError(err error, message string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}

// Get godoc
// @Summary Get note
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notes/{id} [get]
func (h *NoteHandler) Get(c *gin.Context) {
	view, err := h.notes.Find(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Delete godoc
// @Summary Delete note
// @Description Uploader or admin only. Removes ratings and download history too.
// @Tags Notes
// @Security BearerAuth
// @Param id path string true "Note ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notes/{id} [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	if err := h.notes.Delete(c.Request.Context(), sessionFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Download godoc
// @Summary Download note
// @Description Counts a download and returns a short-lived file link
// @Tags Notes
// @Security BearerAuth
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notes/{id}/download [post]
func (h *NoteHandler) Download(c *gin.Context) {
	ticket, err := h.downloads.Download(c.Request.Context(), sessionFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ticket)
}

// File godoc
// @Summary Fetch note file
// @Description Streams the file for a token issued by the download endpoint
// @Tags Notes
// @Produce octet-stream
// @Param id path string true "Note ID"
// @Param token query string true "File token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /notes/{id}/file [get]
func (h *NoteHandler) File(c *gin.Context) {
	rc, note, err := h.downloads.Open(c.Request.Context(), c.Param("id"), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(filepath.Ext(note.FileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "private, no-store")
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": note.FileName})
	if disposition == "" {
		disposition = "attachment"
	}
	c.DataFromReader(http.StatusOK, note.FileSize, contentType, rc, map[string]string{
		"Content-Disposition": disposition,
	})
}
