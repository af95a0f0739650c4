package models

import "time"

// Course is the canonical catalog record held in the relational store. The
// search index carries a denormalized projection of these fields; hydration
// always goes back to this table.
type Course struct {
	ID                            int     `db:"id" json:"id"`
	Title                         string  `db:"title" json:"title"`
	TitleSortable                 string  `db:"title_sortable" json:"title_sortable"`
	Subject                       string  `db:"subject" json:"subject"`
	CatalogNumber                 int     `db:"catalog_number" json:"catalog_number"`
	AcademicGroup                 string  `db:"academic_group" json:"academic_group"`
	SubjectAcademicOrgDescription string  `db:"subject_academic_org_description" json:"subject_academic_org_description"`
	Component                     string  `db:"component" json:"component"`
	CourseDescriptionLong         string  `db:"course_description_long" json:"course_description_long"`
	TermName                      string  `db:"term_name" json:"term_name"`
	TermYear                      int     `db:"term_year" json:"term_year"`
	AcademicYear                  int     `db:"academic_year" json:"academic_year"`
	ClassSection                  string  `db:"class_section" json:"class_section"`
	UnitsMaximum                  float64 `db:"units_maximum" json:"units_maximum"`

	Instructors     []CourseInstructor     `db:"-" json:"course_instructors,omitempty"`
	MeetingPatterns []CourseMeetingPattern `db:"-" json:"course_meeting_patterns,omitempty"`
}

// CourseInstructor links an instructor appearance to a course offering.
type CourseInstructor struct {
	ID          int    `db:"id" json:"id"`
	CourseID    int    `db:"course_id" json:"course_id"`
	DisplayName string `db:"display_name" json:"display_name"`
	FirstName   string `db:"first_name" json:"first_name"`
	LastName    string `db:"last_name" json:"last_name"`
	Email       string `db:"email" json:"email"`
	TermYear    int    `db:"term_year" json:"term_year"`
}

// CourseMeetingPattern records when a course section meets.
type CourseMeetingPattern struct {
	ID                  int     `db:"id" json:"id"`
	CourseID            int     `db:"course_id" json:"course_id"`
	MeetingTimeStartTod string  `db:"meeting_time_start_tod" json:"meeting_time_start_tod"`
	MeetingTimeEndTod   string  `db:"meeting_time_end_tod" json:"meeting_time_end_tod"`
	MeetsOnMonday       bool    `db:"meets_on_monday" json:"meets_on_monday"`
	MeetsOnTuesday      bool    `db:"meets_on_tuesday" json:"meets_on_tuesday"`
	MeetsOnWednesday    bool    `db:"meets_on_wednesday" json:"meets_on_wednesday"`
	MeetsOnThursday     bool    `db:"meets_on_thursday" json:"meets_on_thursday"`
	MeetsOnFriday       bool    `db:"meets_on_friday" json:"meets_on_friday"`
	MeetsOnSaturday     bool    `db:"meets_on_saturday" json:"meets_on_saturday"`
	MeetsOnSunday       bool    `db:"meets_on_sunday" json:"meets_on_sunday"`
}

// Pagination carries page metadata on list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// FacetCount is one bucket of a facet dimension.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CourseEdge wraps a course node in a connection.
type CourseEdge struct {
	Node Course `json:"node"`
}

// PageInfo reports pagination position for a connection.
type PageInfo struct {
	Page        int  `json:"page"`
	PerPage     int  `json:"per_page"`
	HasNextPage bool `json:"has_next_page"`
}

// CourseConnection is the paginated search result contract: one page of
// matched courses plus facet breakdowns computed over the same filtered
// query.
type CourseConnection struct {
	Edges      []CourseEdge            `json:"edges"`
	TotalCount int                     `json:"total_count"`
	PageInfo   PageInfo                `json:"page_info"`
	Facets     map[string][]FacetCount `json:"facets"`
}

// DepartmentCount aggregates courses per department within a school.
type DepartmentCount struct {
	Department string `db:"department" json:"department"`
	Count      int    `db:"count" json:"count"`
}

// FacetValues enumerates the distinct values backing the facet enums.
type FacetValues struct {
	Schools     []string `json:"schools"`
	Departments []string `json:"departments"`
	Subjects    []string `json:"subjects"`
	Components  []string `json:"components"`
}

// SearchEvent is a committed-search analytics record.
type SearchEvent struct {
	ID           string    `db:"id" json:"id"`
	SessionID    string    `db:"session_id" json:"session_id"`
	KeywordCount int       `db:"keyword_count" json:"keyword_count"`
	SortBy       string    `db:"sort_by" json:"sort_by"`
	SemesterSpan int       `db:"semester_span" json:"semester_span"`
	HitCount     int       `db:"hit_count" json:"hit_count"`
	DurationMS   int64     `db:"duration_ms" json:"duration_ms"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
