package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curricle/catalog-api/internal/models"
	appErrors "github.com/curricle/catalog-api/pkg/errors"
)

func newExportService() *ExportService {
	courses := &fakeCourses{courses: map[int]models.Course{
		7: {
			ID:                            7,
			Title:                         "Intro to Phonology",
			Subject:                       "LING",
			CatalogNumber:                 102,
			AcademicGroup:                 "Faculty of Arts and Sciences",
			SubjectAcademicOrgDescription: "Linguistics",
			Component:                     "Lecture",
			TermName:                      "Fall",
			TermYear:                      2024,
			UnitsMaximum:                  4,
		},
	}}
	return NewExportService(newSearchService(nil, courses, &fakeAnnotations{}))
}

func TestExportCSV(t *testing.T) {
	svc := newExportService()

	payload, contentType, err := svc.Export(context.Background(), SearchRequest{IDs: []int{7}}, ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	body := string(payload)
	assert.True(t, strings.HasPrefix(body, "Course ID,Title,Subject,School,Department,Component,Semester,Units"))
	assert.Contains(t, body, "LING 102")
	assert.Contains(t, body, "Intro to Phonology")
	assert.Contains(t, body, "Fall 2024")
}

func TestExportPDF(t *testing.T) {
	svc := newExportService()

	payload, contentType, err := svc.Export(context.Background(), SearchRequest{IDs: []int{7}}, ExportPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc := newExportService()

	_, _, err := svc.Export(context.Background(), SearchRequest{IDs: []int{7}}, ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportPropagatesSearchErrors(t *testing.T) {
	idx := &fakeIndex{err: appErrors.ErrSearchUnavailable}
	svc := NewExportService(newSearchService(idx, &fakeCourses{}, &fakeAnnotations{}))

	_, _, err := svc.Export(context.Background(), SearchRequest{Basic: "chem"}, ExportCSV)
	require.Error(t, err)
}
