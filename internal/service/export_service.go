package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/curricle/catalog-api/internal/models"
	appErrors "github.com/curricle/catalog-api/pkg/errors"
	"github.com/curricle/catalog-api/pkg/export"
)

// ExportFormat selects a search-result export encoding.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportService renders a search result set to a downloadable document.
type ExportService struct {
	search *SearchService
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
}

// NewExportService creates an export service instance.
func NewExportService(search *SearchService) *ExportService {
	return &ExportService{
		search: search,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
	}
}

var exportHeaders = []string{"Course ID", "Title", "Subject", "School", "Department", "Component", "Semester", "Units"}

// Export runs the search and renders its page of results.
func (s *ExportService) Export(ctx context.Context, req SearchRequest, format ExportFormat) ([]byte, string, error) {
	connection, err := s.search.Search(ctx, req)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{Headers: exportHeaders, Rows: make([]map[string]string, 0, len(connection.Edges))}
	for _, edge := range connection.Edges {
		dataset.Rows = append(dataset.Rows, courseRow(edge.Node))
	}

	switch format {
	case ExportCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return payload, "text/csv", nil
	case ExportPDF:
		payload, err := s.pdf.Render(dataset, "Course Search Results")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func courseRow(c models.Course) map[string]string {
	return map[string]string{
		"Course ID":  fmt.Sprintf("%s %d", c.Subject, c.CatalogNumber),
		"Title":      c.Title,
		"Subject":    c.Subject,
		"School":     c.AcademicGroup,
		"Department": c.SubjectAcademicOrgDescription,
		"Component":  c.Component,
		"Semester":   c.TermName + " " + strconv.Itoa(c.TermYear),
		"Units":      strconv.FormatFloat(c.UnitsMaximum, 'f', -1, 64),
	}
}
