package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/export"
)

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

var complaintExportHeaders = []string{"id", "title", "category", "urgency", "status", "created_by", "created_at", "assigned_to"}

type visibleComplaintLister interface {
	VisibleComplaints(actor models.Actor) []*models.Complaint
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the complaints an actor can see as CSV or PDF.
type ExportService struct {
	complaints visibleComplaintLister
	csv        csvRenderer
	pdf        pdfRenderer
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(complaints visibleComplaintLister, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{complaints: complaints, csv: csv, pdf: pdf, logger: defaultLogger(logger), now: time.Now}
}

// Export renders the actor's visible complaints in the requested format.
func (s *ExportService) Export(_ context.Context, actor models.Actor, format string) (*ExportFile, error) {
	f := ExportFormat(strings.ToLower(strings.TrimSpace(format)))
	if f == "" {
		f = ExportCSV
	}
	if f != ExportCSV && f != ExportPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	complaints := s.complaints.VisibleComplaints(actor)
	data := export.Dataset{Headers: complaintExportHeaders, Rows: make([]map[string]string, 0, len(complaints))}
	for _, c := range complaints {
		assigned := ""
		if c.AssignedTo != nil {
			assigned = *c.AssignedTo
		}
		data.Rows = append(data.Rows, map[string]string{
			"id":          strconv.FormatInt(c.ID, 10),
			"title":       c.Title,
			"category":    string(c.Category),
			"urgency":     string(c.Urgency),
			"status":      string(c.Status),
			"created_by":  c.CreatedBy,
			"created_at":  c.CreatedAt.UTC().Format(time.RFC3339),
			"assigned_to": assigned,
		})
	}

	stamp := s.now().UTC().Format("20060102-150405")
	var (
		file ExportFile
		err  error
	)
	switch f {
	case ExportPDF:
		file.Data, err = s.pdf.Render(data, "Complaints")
		file.ContentType = "application/pdf"
	default:
		file.Data, err = s.csv.Render(sanitized(data))
		file.ContentType = "text/csv; charset=utf-8"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	file.Filename = fmt.Sprintf("complaints-%s.%s", stamp, f)
	s.logger.Info("complaints exported", zap.String("actor", actor.ID), zap.String("format", string(f)), zap.Int("rows", len(complaints)))
	return &file, nil
}

// sanitized copies data with every cell safe to open in a spreadsheet.
func sanitized(data export.Dataset) export.Dataset {
	out := export.Dataset{Headers: data.Headers, Rows: make([]map[string]string, len(data.Rows))}
	for i, row := range data.Rows {
		clean := make(map[string]string, len(row))
		for k, v := range row {
			clean[k] = export.SanitizeCell(v)
		}
		out.Rows[i] = clean
	}
	return out
}
