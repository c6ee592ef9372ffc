package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-notes-api/internal/dto"
	"github.com/noah-isme/sma-notes-api/internal/models"
	"github.com/noah-isme/sma-notes-api/internal/service"
	appErrors "github.com/noah-isme/sma-notes-api/pkg/errors"
)

type fakeNoteService struct {
	created    dto.CreateNoteRequest
	uploadBody string
	uploadName string
	createdBy  *models.Session
	deletedID  string
	deleteErr  error
	findErr    error
	categories []string
}

func (f *fakeNoteService) Create(_ context.Context, session *models.Session, req dto.CreateNoteRequest, upload service.NoteUpload) (*models.Note, error) {
	f.created, f.createdBy, f.uploadName = req, session, upload.Filename
	body, err := io.ReadAll(upload.Content)
	if err != nil {
		return nil, err
	}
	f.uploadBody = string(body)
	return &models.Note{ID: "n1", Title: req.Title, BlobLocator: "secret-locator"}, nil
}

func (f *fakeNoteService) Find(_ context.Context, id string) (*models.NoteView, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return &models.NoteView{Note: models.Note{ID: id, Title: "Limits"}, UploaderName: "alice", AvgRating: 4.5}, nil
}

func (f *fakeNoteService) ListCategories(context.Context) ([]string, error) {
	return f.categories, nil
}

func (f *fakeNoteService) Delete(_ context.Context, _ *models.Session, id string) error {
	f.deletedID = id
	return f.deleteErr
}

type fakeSearchService struct {
	query models.SearchQuery
	err   error
}

func (f *fakeSearchService) Search(_ context.Context, q models.SearchQuery) ([]models.NoteView, error) {
	f.query = q
	if f.err != nil {
		return nil, f.err
	}
	return []models.NoteView{{Note: models.Note{ID: "n1"}}, {Note: models.Note{ID: "n2"}}}, nil
}

type fakeExportService struct {
	format string
}

func (f *fakeExportService) Export(_ context.Context, _ models.SearchQuery, format string) (*service.ExportFile, error) {
	f.format = format
	return &service.ExportFile{Filename: "notes.csv", ContentType: "text/csv; charset=utf-8", Payload: []byte("ID\nn1\n")}, nil
}

type fakeDownloadService struct {
	token    string
	fileName string
	openErr  error
}

func (f *fakeDownloadService) Download(_ context.Context, session *models.Session, noteID string) (*models.DownloadTicket, error) {
	if session == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.DownloadTicket{NoteID: noteID, Downloads: 3, Token: "tok", URL: "/api/v1/notes/" + noteID + "/file?token=tok", Locator: "secret-locator"}, nil
}

func (f *fakeDownloadService) Open(_ context.Context, noteID, token string) (io.ReadCloser, *models.Note, error) {
	f.token = token
	if f.openErr != nil {
		return nil, nil, f.openErr
	}
	name := f.fileName
	if name == "" {
		name = "calc.pdf"
	}
	return io.NopCloser(strings.NewReader("file-bytes")), &models.Note{ID: noteID, FileName: name, FileSize: 10}, nil
}

type noteFixture struct {
	notes     *fakeNoteService
	search    *fakeSearchService
	exports   *fakeExportService
	downloads *fakeDownloadService
}

func newNoteFixture() *noteFixture {
	return &noteFixture{
		notes:     &fakeNoteService{categories: []string{"All", "Math"}},
		search:    &fakeSearchService{},
		exports:   &fakeExportService{},
		downloads: &fakeDownloadService{},
	}
}

func (f *noteFixture) router(session *models.Session) http.Handler {
	h := NewNoteHandler(f.notes, f.search, f.exports, f.downloads, 1024)
	r := newRouter(session)
	r.GET("/notes", h.Search)
	r.GET("/notes/categories", h.Categories)
	r.GET("/notes/export", h.Export)
	r.POST("/notes", h.Create)
	r.GET("/notes/:id", h.Get)
	r.DELETE("/notes/:id", h.Delete)
	r.POST("/notes/:id/download", h.Download)
	r.GET("/notes/:id/file", h.File)
	return r
}

func TestNoteHandlerSearch(t *testing.T) {
	f := newNoteFixture()
	w := perform(f.router(nil), httptest.NewRequest(http.MethodGet, "/notes?q=calc&category=Math&sort=popular", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SearchQuery{Text: "calc", Category: "Math", Sort: models.SortPopular}, f.search.query)
	assert.Equal(t, float64(2), decode(t, w).Meta["count"])
}

func TestNoteHandlerSearchValidationError(t *testing.T) {
	f := newNoteFixture()
	f.search.err = appErrors.Clone(appErrors.ErrValidation, "sort must be recent, popular or rating")
	w := perform(f.router(nil), httptest.NewRequest(http.MethodGet, "/notes?sort=oldest", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNoteHandlerCategories(t *testing.T) {
	f := newNoteFixture()
	w := perform(f.router(nil), httptest.NewRequest(http.MethodGet, "/notes/categories", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var categories []string
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &categories))
	assert.Equal(t, []string{"All", "Math"}, categories)
}

func multipartRequest(t *testing.T, fields map[string]string, fileName, content string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/notes", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestNoteHandlerCreate(t *testing.T) {
	f := newNoteFixture()
	req := multipartRequest(t, map[string]string{"title": "T", "category": "Math", "subject": "Calc", "tags": "a, b ,c"}, "calc.pdf", "pdf-bytes")
	w := perform(f.router(testSession), req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, dto.CreateNoteRequest{Title: "T", Category: "Math", Subject: "Calc", Tags: "a, b ,c"}, f.notes.created)
	assert.Equal(t, "pdf-bytes", f.notes.uploadBody)
	assert.Equal(t, "calc.pdf", f.notes.uploadName)
	assert.Equal(t, "u1", f.notes.createdBy.UserID)
	assert.NotContains(t, w.Body.String(), "secret-locator")
}

func TestNoteHandlerCreateRequiresFile(t *testing.T) {
	f := newNoteFixture()
	req := multipartRequest(t, map[string]string{"title": "T"}, "", "")
	w := perform(f.router(testSession), req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "file is required", decode(t, w).Error.Message)
}

func TestNoteHandlerCreateRejectsOversizedBody(t *testing.T) {
	f := newNoteFixture()
	req := multipartRequest(t, map[string]string{"title": "T"}, "big.pdf", strings.Repeat("x", int(1024+multipartOverhead+10)))
	w := perform(f.router(testSession), req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestNoteHandlerGetAndDelete(t *testing.T) {
	f := newNoteFixture()
	w := perform(f.router(nil), httptest.NewRequest(http.MethodGet, "/notes/n7", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"uploader_name":"alice"`)

	w = perform(f.router(testSession), httptest.NewRequest(http.MethodDelete, "/notes/n7", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "n7", f.notes.deletedID)

	f.notes.findErr = appErrors.Clone(appErrors.ErrNotFound, "note not found")
	f.notes.deleteErr = appErrors.Clone(appErrors.ErrForbidden, "only the uploader or an admin can delete this note")
	w = perform(f.router(nil), httptest.NewRequest(http.MethodGet, "/notes/n7", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = perform(f.router(testSession), httptest.NewRequest(http.MethodDelete, "/notes/n7", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNoteHandlerDownloadAndFile(t *testing.T) {
	f := newNoteFixture()
	w := perform(f.router(testSession), httptest.NewRequest(http.MethodPost, "/notes/n1/download", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"url":"/api/v1/notes/n1/file?token=tok"`)
	assert.NotContains(t, w.Body.String(), "secret-locator")

	w = perform(f.router(nil), httptest.NewRequest(http.MethodPost, "/notes/n1/download", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(f.router(nil), httptest.NewRequest(http.MethodGet, "/notes/n1/file?token=tok", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok", f.downloads.token)
	assert.Equal(t, "file-bytes", w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=calc.pdf", w.Header().Get("Content-Disposition"))

	f.downloads.openErr = appErrors.Clone(appErrors.ErrForbidden, "download link has expired")
	w = perform(f.router(nil), httptest.NewRequest(http.MethodGet, "/notes/n1/file?token=old", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNoteHandlerFileKeepsUnicodeName(t *testing.T) {
	for _, name := range []string{"Конспект лекций.pdf", "微积分.pdf", "Résumé (final).docx"} {
		f := newNoteFixture()
		f.downloads.fileName = name
		w := perform(f.router(nil), httptest.NewRequest(http.MethodGet, "/notes/n1/file?token=tok", nil))
		require.Equal(t, http.StatusOK, w.Code)

		disposition, params, err := mime.ParseMediaType(w.Header().Get("Content-Disposition"))
		require.NoError(t, err, name)
		assert.Equal(t, "attachment", disposition)
		assert.Equal(t, name, params["filename"])
	}
}

func TestNoteHandlerExport(t *testing.T) {
	f := newNoteFixture()
	w := perform(f.router(testSession), httptest.NewRequest(http.MethodGet, "/notes/export?format=csv&category=Math", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", f.exports.format)
	assert.Equal(t, `attachment; filename="notes.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "ID\nn1\n", w.Body.String())
}
