package search

import "strings"

const (
	// Every indexed course document is a class section with section "1";
	// the constraint is structural and always applied.
	classSectionValue = "1"

	DefaultPage    = 1
	DefaultPerPage = 50
)

// Facet dimension names as exposed in search responses.
const (
	FacetAcademicGroups = "academic_groups"
	FacetComponents     = "components"
	FacetDepartments    = "departments"
	FacetSubjects       = "subjects"
)

// FacetDimensions lists every facet dimension in response order.
var FacetDimensions = []string{FacetAcademicGroups, FacetComponents, FacetDepartments, FacetSubjects}

// facetFilterFields maps facet dimensions onto the index fields their
// selections filter.
var facetFilterFields = map[string]string{
	FacetAcademicGroups: "academic_group",
	FacetComponents:     "component",
	FacetDepartments:    "subject_academic_org_description",
	FacetSubjects:       "subject",
}

// basicSearchFields is the field set a plain free-text search runs against.
var basicSearchFields = []string{"title", "course_description_long", "first_name", "last_name"}

// TimeRange restricts results to courses meeting on a day within a
// time-of-day window.
type TimeRange struct {
	DayName   string `json:"day_name"`
	TimeStart string `json:"time_start"`
	TimeEnd   string `json:"time_end"`
}

var meetsOnFields = map[string]string{
	"MONDAY":    "meets_on_monday",
	"TUESDAY":   "meets_on_tuesday",
	"WEDNESDAY": "meets_on_wednesday",
	"THURSDAY":  "meets_on_thursday",
	"FRIDAY":    "meets_on_friday",
	"SATURDAY":  "meets_on_saturday",
	"SUNDAY":    "meets_on_sunday",
}

// CompileRequest carries everything the compiler folds into one query.
// Facet value lists hold already-formatted enum constants; AnnotatedIDs is
// non-nil only when the caller restricts results to the current user's
// annotated courses.
type CompileRequest struct {
	Keywords      []Keyword
	Basic         string
	SemesterRange *SemesterRange
	TimeRanges    []TimeRange
	Schools       []string
	Departments   []string
	Subjects      []string
	Components    []string
	AnnotatedIDs  []int
	SortBy        SortKey
	Page          int
	PerPage       int
}

// Compile folds keywords, the semester range, facet selections and the sort
// directive into a single Query. Active keywords are ANDed together; each
// keyword's internal OR across fields is preserved by its classified clause.
func Compile(req CompileRequest) (*Query, error) {
	q := &Query{
		Page:    req.Page,
		PerPage: req.PerPage,
		Sort:    ResolveSort(req.SortBy),
	}
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.PerPage <= 0 {
		q.PerPage = DefaultPerPage
	}

	for _, kw := range req.Keywords {
		if !kw.Active {
			continue
		}
		q.Clauses = append(q.Clauses, Classify(kw))
	}

	if basic := strings.TrimSpace(req.Basic); basic != "" {
		q.Clauses = append(q.Clauses, Fulltext{Text: basic, Fields: basicSearchFields})
	}

	q.Clauses = append(q.Clauses, FieldEq{Field: "class_section", Value: classSectionValue})

	if req.SemesterRange != nil {
		if err := req.SemesterRange.Validate(); err != nil {
			return nil, err
		}
		q.Clauses = append(q.Clauses, semesterClause(*req.SemesterRange))
	}

	if node := timeRangeClause(req.TimeRanges); node != nil {
		q.Clauses = append(q.Clauses, node)
	}

	// Facet clauses are emitted in FacetDimensions order so identical
	// requests always compile to the same clause sequence.
	for _, fv := range []struct {
		dim    string
		values []string
	}{
		{FacetAcademicGroups, req.Schools},
		{FacetComponents, req.Components},
		{FacetDepartments, req.Departments},
		{FacetSubjects, req.Subjects},
	} {
		dim, values := fv.dim, fv.values
		if len(values) == 0 {
			continue
		}
		boxed := make([]interface{}, len(values))
		for i, v := range values {
			boxed[i] = v
		}
		q.Clauses = append(q.Clauses, FieldIn{Field: facetFilterFields[dim], Values: boxed})
	}

	if req.AnnotatedIDs != nil {
		boxed := make([]interface{}, len(req.AnnotatedIDs))
		for i, id := range req.AnnotatedIDs {
			boxed[i] = id
		}
		q.Clauses = append(q.Clauses, FieldIn{Field: "id", Values: boxed})
	}

	return q, nil
}

// semesterClause expands a semester range into index constraints. A
// rangeless semester is a plain term/year equality. A true range is the OR
// of: the start year's trailing terms, the end year's leading terms, and,
// only when intermediate years exist, all terms of those years.
func semesterClause(r SemesterRange) Node {
	if r.End == nil {
		return All{Nodes: []Node{
			FieldEq{Field: "term_name", Value: string(r.Start.TermName)},
			FieldEq{Field: "term_year", Value: r.Start.TermYear},
		}}
	}

	clauses := []Node{
		All{Nodes: []Node{
			termsIn("term_name", TermsFrom(r.Start.TermName)),
			FieldEq{Field: "term_year", Value: r.Start.TermYear},
		}},
		All{Nodes: []Node{
			termsIn("term_name", TermsThrough(r.End.TermName)),
			FieldEq{Field: "term_year", Value: r.End.TermYear},
		}},
	}

	if years := r.IntermediateYears(); len(years) > 0 {
		clauses = append(clauses, All{Nodes: []Node{
			termsIn("term_name", AllTerms),
			yearsIn("term_year", years),
		}})
	}

	return Any{Nodes: clauses}
}

func timeRangeClause(ranges []TimeRange) Node {
	var clauses []Node
	for _, tr := range ranges {
		field, ok := meetsOnFields[strings.ToUpper(tr.DayName)]
		if !ok {
			continue
		}
		clauses = append(clauses, All{Nodes: []Node{
			FieldEq{Field: field, Value: true},
			FieldRange{Field: "meeting_time_start_tod", Min: tr.TimeStart, Max: tr.TimeEnd},
		}})
	}

	switch len(clauses) {
	case 0:
		return nil
	case 1:
		return clauses[0]
	default:
		return Any{Nodes: clauses}
	}
}
