package session

import (
	"regexp"
	"sort"
	"strings"

	"github.com/curricle/catalog-api/internal/search"
)

// Phase is the search lifecycle position of a session. Both terminal phases
// re-enter searching on the next trigger.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSearching Phase = "searching"
	PhaseComplete  Phase = "complete"
	PhaseFailed    Phase = "failed"
)

// FacetItem is one selectable facet value with its current result count.
type FacetItem struct {
	ID       string `json:"id"`
	Value    string `json:"value"`
	Count    int    `json:"count"`
	Selected bool   `json:"selected"`
}

// HistoryLength bounds the search history ring.
const HistoryLength = 5

// Snapshot is the serialized subset of state captured into history on each
// committed search. Restoring a snapshot and re-running reproduces the same
// compiled query.
type Snapshot struct {
	TermStart  string             `json:"term_start"`
	YearStart  int                `json:"year_start"`
	TermEnd    string             `json:"term_end"`
	YearEnd    int                `json:"year_end"`
	UseRange   bool               `json:"use_range"`
	Keywords   []search.Keyword   `json:"keywords"`
	SortBy     string             `json:"sort_by"`
	TimeRanges []search.TimeRange `json:"time_ranges,omitempty"`
}

// State is the session-scoped search aggregate: the single source of truth
// for what the next query will ask.
type State struct {
	Basic      string                          `json:"basic"`
	Keywords   []search.Keyword                `json:"keywords"`
	Facets     map[string]map[string]FacetItem `json:"facets"`
	TermStart  string                          `json:"term_start"`
	YearStart  int                             `json:"year_start"`
	TermEnd    string                          `json:"term_end"`
	YearEnd    int                             `json:"year_end"`
	UseRange   bool                            `json:"use_range"`
	TimeRanges []search.TimeRange              `json:"time_ranges,omitempty"`
	UseFilters bool                            `json:"use_filters"`
	SortBy     string                          `json:"sort_by"`

	ResultsPage       int   `json:"results_page"`
	ResultsPerPage    int   `json:"results_per_page"`
	ResultIDs         []int `json:"result_ids"`
	ResultsTotalCount int   `json:"results_total_count"`
	MoreAvailable     bool  `json:"more_available"`

	Phase   Phase      `json:"phase"`
	History []Snapshot `json:"history"`
}

// NewState seeds a state at the given current semester with catalog
// defaults.
func NewState(currentTerm search.TermName, currentYear, perPage int) *State {
	if perPage <= 0 {
		perPage = search.DefaultPerPage
	}
	return &State{
		Keywords:       []search.Keyword{},
		Facets:         map[string]map[string]FacetItem{},
		TermStart:      string(currentTerm),
		YearStart:      currentYear,
		TermEnd:        string(currentTerm),
		YearEnd:        currentYear + 1,
		SortBy:         string(search.SortRelevance),
		ResultsPage:    1,
		ResultsPerPage: perPage,
		Phase:          PhaseIdle,
	}
}

// ActiveKeywords returns the keywords contributing to the next query.
func (s State) ActiveKeywords() []search.Keyword {
	var out []search.Keyword
	for _, kw := range s.Keywords {
		if kw.Active {
			out = append(out, kw)
		}
	}
	return out
}

var enumConstantScrubber = regexp.MustCompile(`[^a-zA-Z0-9_]`)
var enumConstantSeparators = regexp.MustCompile(`[\s\-/.]`)

// FormatEnumConstant converts a raw facet value into its enum constant
// spelling, e.g. "Social Sciences" -> "SOCIAL_SCIENCES".
func FormatEnumConstant(value string) string {
	replaced := enumConstantSeparators.ReplaceAllString(value, "_")
	return strings.ToUpper(enumConstantScrubber.ReplaceAllString(replaced, ""))
}

// SelectedFilters returns the enum-formatted selected values of a facet, or
// nil when filtering is off or the facet is unpopulated.
func (s *State) SelectedFilters(facet string) []string {
	if !s.UseFilters {
		return nil
	}
	items, ok := s.Facets[facet]
	if !ok {
		return nil
	}

	var values []string
	for _, item := range items {
		if item.Selected {
			values = append(values, FormatEnumConstant(item.Value))
		}
	}
	sort.Strings(values)
	return values
}

// TakeSnapshot captures the history subset of the state; only active
// keywords are retained.
func (s *State) TakeSnapshot() Snapshot {
	return Snapshot{
		TermStart:  s.TermStart,
		YearStart:  s.YearStart,
		TermEnd:    s.TermEnd,
		YearEnd:    s.YearEnd,
		UseRange:   s.UseRange,
		Keywords:   s.ActiveKeywords(),
		SortBy:     s.SortBy,
		TimeRanges: s.TimeRanges,
	}
}

// PushHistory records a snapshot most-recent-first, keeping the ring
// bounded.
func (s *State) PushHistory(snap Snapshot) {
	s.History = append([]Snapshot{snap}, s.History...)
	if len(s.History) > HistoryLength {
		s.History = s.History[:HistoryLength]
	}
}

// Apply restores a snapshot into the state. Facets are reset; restored
// keywords are all reactivated since only active ones were captured.
func (s *State) Apply(snap Snapshot) {
	s.Facets = map[string]map[string]FacetItem{}
	s.TermStart = snap.TermStart
	s.YearStart = snap.YearStart
	s.TermEnd = snap.TermEnd
	s.YearEnd = snap.YearEnd
	s.UseRange = snap.UseRange
	s.SortBy = snap.SortBy
	s.TimeRanges = snap.TimeRanges
	s.Keywords = make([]search.Keyword, len(snap.Keywords))
	for i, kw := range snap.Keywords {
		kw.Active = true
		s.Keywords[i] = kw
	}
}

// SemesterRange builds the range the state currently selects.
func (s *State) SemesterRange() (*search.SemesterRange, error) {
	startTerm, err := search.ParseTermName(s.TermStart)
	if err != nil {
		return nil, err
	}
	srange := &search.SemesterRange{
		Start: search.Semester{TermName: startTerm, TermYear: s.YearStart},
	}
	if s.UseRange {
		endTerm, err := search.ParseTermName(s.TermEnd)
		if err != nil {
			return nil, err
		}
		srange.End = &search.Semester{TermName: endTerm, TermYear: s.YearEnd}
	}
	return srange, nil
}
