package search

import (
	"regexp"
	"strconv"
	"strings"
)

// FieldTag names a searchable course attribute as exposed to clients.
type FieldTag string

const (
	FieldTitle       FieldTag = "TITLE"
	FieldDescription FieldTag = "DESCRIPTION"
	FieldInstructor  FieldTag = "INSTRUCTOR"
	FieldNotes       FieldTag = "NOTES"
	FieldReadings    FieldTag = "READINGS"
	FieldCourseID    FieldTag = "COURSE_ID"
	FieldID          FieldTag = "ID"
)

// fulltextFields maps field tags onto physical index fields. Tags absent
// from the table (NOTES, READINGS) are never queried.
var fulltextFields = map[FieldTag][]string{
	FieldDescription: {"course_description_long"},
	FieldInstructor:  {"first_name", "last_name"},
	FieldTitle:       {"title"},
}

// Keyword is a structured search term carrying its target fields. Inactive
// keywords stay in session state but contribute nothing to the query.
type Keyword struct {
	Text   string     `json:"text"`
	Fields []FieldTag `json:"fields"`
	Active bool       `json:"active"`
	Ident  string     `json:"ident,omitempty"`
}

var (
	courseIDPattern = regexp.MustCompile(`^[A-Za-z]+ \d+$`)
	numericPattern  = regexp.MustCompile(`^\d+$`)
)

// Classify turns one keyword into a query clause. The checks form a strict
// priority chain:
//
//  1. a COURSE_ID keyword shaped like "GENETIC 333" becomes an exact
//     subject + catalog number lookup;
//  2. an ID-only numeric keyword becomes an exact id lookup;
//  3. any other field set becomes a fulltext clause OR'd across its mapped
//     index fields;
//  4. a COURSE_ID keyword that failed the pattern matches nothing: the
//     sentinel id filter prevents a malformed course id from degrading into
//     an unconstrained query.
func Classify(k Keyword) Node {
	switch {
	case k.hasField(FieldCourseID) && courseIDPattern.MatchString(k.Text):
		return classifyCourseID(k.Text)
	case k.onlyField(FieldID) && numericPattern.MatchString(k.Text):
		id, _ := strconv.Atoi(k.Text)
		return FieldEq{Field: "id", Value: id}
	case !k.onlyField(FieldCourseID):
		return classifyFulltext(k)
	default:
		return FieldEq{Field: "id", Value: 0}
	}
}

func classifyCourseID(text string) Node {
	parts := strings.SplitN(text, " ", 2)
	catalogNumber, _ := strconv.Atoi(parts[1])
	return All{Nodes: []Node{
		FieldEq{Field: "subject", Value: strings.ToUpper(parts[0])},
		FieldEq{Field: "catalog_number", Value: catalogNumber},
	}}
}

func classifyFulltext(k Keyword) Node {
	var fields []string
	for _, tag := range k.Fields {
		fields = append(fields, fulltextFields[tag]...)
	}
	return Fulltext{Text: k.Text, Fields: fields}
}

func (k Keyword) hasField(tag FieldTag) bool {
	for _, f := range k.Fields {
		if f == tag {
			return true
		}
	}
	return false
}

func (k Keyword) onlyField(tag FieldTag) bool {
	return len(k.Fields) == 1 && k.Fields[0] == tag
}
