package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-notes-api/internal/models"
	appErrors "github.com/noah-isme/sma-notes-api/pkg/errors"
	"github.com/noah-isme/sma-notes-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type catalogSearcher interface {
	Search(ctx context.Context, q models.SearchQuery) ([]models.NoteView, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile is a rendered catalog listing ready to be sent to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
	Rows        int
}

// ExportService renders search results as CSV or PDF documents.
type ExportService struct {
	search catalogSearcher
	csv    datasetRenderer
	pdf    datasetRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to
// the pkg/export implementations.
func NewExportService(search catalogSearcher, csv, pdf datasetRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{search: search, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// Export runs the query and renders the result in the requested format.
func (s *ExportService) Export(ctx context.Context, q models.SearchQuery, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}

	var (
		renderer    datasetRenderer
		contentType string
	)
	switch format {
	case ExportFormatCSV:
		renderer, contentType = s.csv, "text/csv; charset=utf-8"
	case ExportFormatPDF:
		renderer, contentType = s.pdf, "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	views, err := s.search.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	payload, err := renderer.Render(buildNotesDataset(views, s.now()))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("catalog exported", zap.String("format", format), zap.Int("rows", len(views)))
	return &ExportFile{
		Filename:    fmt.Sprintf("notes_%s.%s", s.now().UTC().Format("20060102_150405"), format),
		ContentType: contentType,
		Payload:     payload,
		Rows:        len(views),
	}, nil
}

func buildNotesDataset(views []models.NoteView, generatedAt time.Time) export.Dataset {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{
			v.ID,
			v.Title,
			v.Category,
			v.Subject,
			v.UploaderName,
			strconv.FormatInt(v.Downloads, 10),
			strconv.FormatFloat(v.AvgRating, 'f', 1, 64),
			v.FileSizeHuman,
		})
	}
	return export.Dataset{
		Title: "Notes catalog " + generatedAt.UTC().Format("2006-01-02 15:04 MST"),
		Columns: []export.Column{
			{Header: "ID", Width: 2},
			{Header: "Title", Width: 3},
			{Header: "Category", Width: 1.5},
			{Header: "Subject", Width: 1.5},
			{Header: "Uploader", Width: 1.5},
			{Header: "Downloads", Width: 1},
			{Header: "Rating", Width: 0.8},
			{Header: "Size", Width: 1},
		},
		Rows: rows,
	}
}
