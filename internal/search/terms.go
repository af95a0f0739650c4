package search

import (
	"fmt"
	"strings"

	appErrors "github.com/curricle/catalog-api/pkg/errors"
)

// TermName identifies one of the three academic terms that make up a
// catalog year. Ordering within a year is Spring < Summer < Fall.
type TermName string

const (
	TermSpring TermName = "Spring"
	TermSummer TermName = "Summer"
	TermFall   TermName = "Fall"
)

// AllTerms lists every term in year order.
var AllTerms = []TermName{TermSpring, TermSummer, TermFall}

// ParseTermName normalises client-supplied term names ("FALL", "fall") into
// the canonical index spelling.
func ParseTermName(raw string) (TermName, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SPRING":
		return TermSpring, nil
	case "SUMMER":
		return TermSummer, nil
	case "FALL":
		return TermFall, nil
	}
	return "", fmt.Errorf("unknown term name %q", raw)
}

func (t TermName) order() int {
	switch t {
	case TermSpring:
		return 0
	case TermSummer:
		return 1
	default:
		return 2
	}
}

// TermsFrom returns the terms of a year from the given term through Fall,
// inclusive. Used for the first year of a semester range.
func TermsFrom(start TermName) []TermName {
	return AllTerms[start.order():]
}

// TermsThrough returns the terms of a year from Spring through the given
// term, inclusive. Used for the last year of a semester range.
func TermsThrough(end TermName) []TermName {
	return AllTerms[:end.order()+1]
}

// Semester is one (term, year) pair.
type Semester struct {
	TermName TermName `json:"term_name"`
	TermYear int      `json:"term_year"`
}

// Before reports whether s is chronologically earlier than other.
func (s Semester) Before(other Semester) bool {
	if s.TermYear != other.TermYear {
		return s.TermYear < other.TermYear
	}
	return s.TermName.order() < other.TermName.order()
}

// SemesterRange is an inclusive span of semesters. A nil End denotes
// exactly the start semester.
type SemesterRange struct {
	Start Semester  `json:"start"`
	End   *Semester `json:"end,omitempty"`
}

// Validate rejects ranges whose start is chronologically after their end.
func (r SemesterRange) Validate() error {
	if r.End == nil {
		return nil
	}
	if r.End.Before(r.Start) {
		return appErrors.Clone(appErrors.ErrInvalidRange,
			fmt.Sprintf("semester range starts %s %d but ends %s %d",
				r.Start.TermName, r.Start.TermYear, r.End.TermName, r.End.TermYear))
	}
	return nil
}

// Semesters expands the range into the ordered list of semesters it covers.
func (r SemesterRange) Semesters() []Semester {
	if r.End == nil {
		return []Semester{r.Start}
	}

	var out []Semester
	for year := r.Start.TermYear; year <= r.End.TermYear; year++ {
		terms := AllTerms
		if year == r.Start.TermYear {
			terms = TermsFrom(r.Start.TermName)
		}
		if year == r.End.TermYear {
			// a single-year range needs both bounds applied
			terms = intersectTerms(terms, TermsThrough(r.End.TermName))
		}
		for _, t := range terms {
			out = append(out, Semester{TermName: t, TermYear: year})
		}
	}
	return out
}

// IntermediateYears lists the full calendar years strictly between the
// range's start and end years.
func (r SemesterRange) IntermediateYears() []int {
	if r.End == nil || r.End.TermYear-r.Start.TermYear <= 1 {
		return nil
	}
	years := make([]int, 0, r.End.TermYear-r.Start.TermYear-1)
	for y := r.Start.TermYear + 1; y < r.End.TermYear; y++ {
		years = append(years, y)
	}
	return years
}

func intersectTerms(a, b []TermName) []TermName {
	keep := make(map[TermName]struct{}, len(b))
	for _, t := range b {
		keep[t] = struct{}{}
	}
	var out []TermName
	for _, t := range a {
		if _, ok := keep[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
