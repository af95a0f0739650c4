package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyCourseID(t *testing.T) {
	kw := Keyword{Text: "genetic 333", Fields: []FieldTag{FieldCourseID}, Active: true}

	node := Classify(kw)
	all, ok := node.(All)
	require.True(t, ok, "course id keyword should classify to a conjunction")
	require.Len(t, all.Nodes, 2)
	assert.Equal(t, FieldEq{Field: "subject", Value: "GENETIC"}, all.Nodes[0])
	assert.Equal(t, FieldEq{Field: "catalog_number", Value: 333}, all.Nodes[1])
}

func TestClassifyMalformedCourseID(t *testing.T) {
	// A course id keyword that does not look like "SUBJECT 123" must match
	// nothing rather than degrade into an unconstrained query.
	kw := Keyword{Text: "genetic", Fields: []FieldTag{FieldCourseID}, Active: true}

	node := Classify(kw)
	assert.Equal(t, FieldEq{Field: "id", Value: 0}, node)
}

func TestClassifyNumericID(t *testing.T) {
	kw := Keyword{Text: "123456", Fields: []FieldTag{FieldID}, Active: true}

	node := Classify(kw)
	assert.Equal(t, FieldEq{Field: "id", Value: 123456}, node)
}

func TestClassifyNonNumericID(t *testing.T) {
	// An ID-only keyword with non-numeric text falls through to fulltext
	// with no mapped fields.
	kw := Keyword{Text: "abc", Fields: []FieldTag{FieldID}, Active: true}

	node := Classify(kw)
	ft, ok := node.(Fulltext)
	require.True(t, ok)
	assert.Equal(t, "abc", ft.Text)
	assert.Empty(t, ft.Fields)
}

func TestClassifyFulltextFields(t *testing.T) {
	kw := Keyword{
		Text:   "immunology",
		Fields: []FieldTag{FieldTitle, FieldDescription, FieldInstructor},
		Active: true,
	}

	node := Classify(kw)
	ft, ok := node.(Fulltext)
	require.True(t, ok)
	assert.Equal(t, "immunology", ft.Text)
	assert.Equal(t, []string{"title", "course_description_long", "first_name", "last_name"}, ft.Fields)
}

func TestClassifyUnmappedFieldsIgnored(t *testing.T) {
	kw := Keyword{
		Text:   "weekly readings",
		Fields: []FieldTag{FieldTitle, FieldNotes, FieldReadings},
		Active: true,
	}

	node := Classify(kw)
	ft, ok := node.(Fulltext)
	require.True(t, ok)
	assert.Equal(t, []string{"title"}, ft.Fields)
}

func TestClassifyCourseIDWithOtherFields(t *testing.T) {
	// COURSE_ID wins over any other field the moment the text matches the
	// course id shape.
	kw := Keyword{
		Text:   "MATH 55",
		Fields: []FieldTag{FieldTitle, FieldCourseID},
		Active: true,
	}

	node := Classify(kw)
	all, ok := node.(All)
	require.True(t, ok)
	assert.Equal(t, FieldEq{Field: "subject", Value: "MATH"}, all.Nodes[0])
	assert.Equal(t, FieldEq{Field: "catalog_number", Value: 55}, all.Nodes[1])
}
