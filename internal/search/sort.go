package search

// SortKey is a symbolic sort order selectable by clients.
type SortKey string

const (
	SortRelevance  SortKey = "RELEVANCE"
	SortTitle      SortKey = "TITLE"
	SortSchool     SortKey = "SCHOOL"
	SortSemester   SortKey = "SEMESTER"
	SortDepartment SortKey = "DEPARTMENT"
	SortCourseID   SortKey = "COURSE_ID"
)

// sortFields is the closed table resolving each sort key into its ranking
// field chain. Declared order is the tie-break order. Only the relevance
// score sorts descending.
var sortFields = map[SortKey][]string{
	SortCourseID:   {"subject", "catalog_number"},
	SortDepartment: {"subject"},
	SortRelevance:  {"score", "academic_year", "term_name"},
	SortSchool:     {"academic_group"},
	SortSemester:   {"academic_year", "term_name"},
	SortTitle:      {"title_sortable"},
}

// ResolveSort maps a sort key to its ordered ranking fields. Unknown keys
// fall back to relevance.
func ResolveSort(key SortKey) []SortField {
	fields, ok := sortFields[key]
	if !ok {
		fields = sortFields[SortRelevance]
	}

	out := make([]SortField, len(fields))
	for i, f := range fields {
		out[i] = SortField{Field: f, Desc: f == "score"}
	}
	return out
}
