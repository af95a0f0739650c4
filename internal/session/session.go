package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/curricle/catalog-api/internal/models"
	"github.com/curricle/catalog-api/internal/search"
	"github.com/curricle/catalog-api/internal/service"
	appErrors "github.com/curricle/catalog-api/pkg/errors"
)

// Executor runs a compiled catalog search. Satisfied by
// service.SearchService.
type Executor interface {
	Search(ctx context.Context, req service.SearchRequest) (*models.CourseConnection, error)
}

// Recorder receives committed search events for analytics. Pagination and
// restores do not produce events.
type Recorder interface {
	RecordSearch(event *models.SearchEvent)
}

// StaleCounter counts search completions discarded because a newer search
// had already been issued.
type StaleCounter interface {
	RecordStaleSearch()
}

// Session owns one client's search state and serializes all access to it.
// Each search trigger stamps a monotonically increasing generation; a
// completion is applied only while its generation is still the latest, so a
// slow early response can never overwrite the results of a later search.
type Session struct {
	ID     string
	UserID string

	mu         sync.Mutex
	state      *State
	generation uint64

	executor Executor
	recorder Recorder
	stale    StaleCounter
	logger   *zap.Logger
}

// NewSession wires a session around a fresh state.
func NewSession(id string, state *State, executor Executor, recorder Recorder, stale StaleCounter, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		ID:       id,
		state:    state,
		executor: executor,
		recorder: recorder,
		stale:    stale,
		logger:   logger,
	}
}

// State returns a deep-enough copy of the current state for serialization.
// Callers must not mutate the session through it.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotState()
}

func (s *Session) snapshotState() State {
	st := *s.state
	st.Keywords = append([]search.Keyword(nil), s.state.Keywords...)
	st.ResultIDs = append([]int(nil), s.state.ResultIDs...)
	st.History = append([]Snapshot(nil), s.state.History...)
	st.TimeRanges = append([]search.TimeRange(nil), s.state.TimeRanges...)
	st.Facets = make(map[string]map[string]FacetItem, len(s.state.Facets))
	for dim, items := range s.state.Facets {
		copied := make(map[string]FacetItem, len(items))
		for id, item := range items {
			copied[id] = item
		}
		st.Facets[dim] = copied
	}
	return st
}

// AddKeyword registers a keyword for the next search. Duplicate text is a
// no-op returning the existing keyword.
func (s *Session) AddKeyword(text string, fields []search.FieldTag) search.Keyword {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kw := range s.state.Keywords {
		if kw.Text == text {
			return kw
		}
	}
	kw := search.Keyword{
		Text:   text,
		Fields: fields,
		Active: true,
		Ident:  uuid.NewString(),
	}
	s.state.Keywords = append(s.state.Keywords, kw)
	return kw
}

// RemoveKeyword drops the keyword with the given ident.
func (s *Session) RemoveKeyword(ident string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.state.Keywords[:0]
	for _, kw := range s.state.Keywords {
		if kw.Ident != ident {
			kept = append(kept, kw)
		}
	}
	s.state.Keywords = kept
}

// SetKeywordActive toggles whether a keyword contributes to the next
// search without removing it.
func (s *Session) SetKeywordActive(ident string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Keywords {
		if s.state.Keywords[i].Ident == ident {
			s.state.Keywords[i].Active = active
			return
		}
	}
}

// SetSemesterStart sets the range start semester.
func (s *Session) SetSemesterStart(term string, year int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TermStart = term
	s.state.YearStart = year
}

// SetSemesterEnd sets the range end semester, effective when the range
// toggle is on.
func (s *Session) SetSemesterEnd(term string, year int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TermEnd = term
	s.state.YearEnd = year
}

// SetUseRange toggles between single-semester and range selection.
func (s *Session) SetUseRange(use bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.UseRange = use
}

// SetTimeRanges replaces the meeting-time constraints.
func (s *Session) SetTimeRanges(ranges []search.TimeRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TimeRanges = ranges
}

// SetUseFilters toggles whether facet selections constrain the next search.
func (s *Session) SetUseFilters(use bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.UseFilters = use
}

// SetPerPage adjusts the page size for subsequent searches.
func (s *Session) SetPerPage(perPage int) {
	if perPage <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ResultsPerPage = perPage
}

// FacetSetItemSelection marks one facet value selected or deselected.
func (s *Session) FacetSetItemSelection(facet, id string, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.state.Facets[facet]
	if !ok {
		return appErrors.ErrNotFound
	}
	item, ok := items[id]
	if !ok {
		return appErrors.ErrNotFound
	}
	item.Selected = selected
	items[id] = item
	return nil
}

// FacetSetAllSelections sets every value of one facet at once.
func (s *Session) FacetSetAllSelections(facet string, selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, item := range s.state.Facets[facet] {
		item.Selected = selected
		s.state.Facets[facet][id] = item
	}
}

// ResetFacets clears all facet values and selections.
func (s *Session) ResetFacets() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Facets = map[string]map[string]FacetItem{}
}

// RunKeywordSearch executes a search from the current keywords and filters,
// replacing results and committing to history.
func (s *Session) RunKeywordSearch(ctx context.Context) error {
	s.mu.Lock()
	s.state.Basic = ""
	s.state.ResultsPage = 1
	s.mu.Unlock()
	return s.run(ctx, runCommit)
}

// RunBasicSearch executes a free-text search, replacing results and
// committing to history.
func (s *Session) RunBasicSearch(ctx context.Context, text string) error {
	s.mu.Lock()
	s.state.Basic = text
	s.state.ResultsPage = 1
	s.mu.Unlock()
	return s.run(ctx, runCommit)
}

// LoadMore fetches the next page and appends it to the current results. It
// does not commit to history or analytics.
func (s *Session) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if !s.state.MoreAvailable {
		s.mu.Unlock()
		return nil
	}
	s.state.ResultsPage++
	s.mu.Unlock()
	return s.run(ctx, runAppend)
}

// ChangeSortBy updates the sort order and re-runs the search when the
// order actually changed and results are on screen.
func (s *Session) ChangeSortBy(ctx context.Context, key search.SortKey) error {
	s.mu.Lock()
	changed := s.state.SortBy != string(key)
	s.state.SortBy = string(key)
	rerun := changed && len(s.state.ResultIDs) > 0
	if rerun {
		s.state.ResultsPage = 1
	}
	s.mu.Unlock()
	if !rerun {
		return nil
	}
	return s.run(ctx, 0)
}

// Restore re-applies a history snapshot and re-runs the search it captured.
func (s *Session) Restore(ctx context.Context, index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.state.History) {
		s.mu.Unlock()
		return appErrors.ErrNotFound
	}
	s.state.Apply(s.state.History[index])
	s.state.Basic = ""
	s.state.ResultsPage = 1
	s.mu.Unlock()
	return s.run(ctx, 0)
}

// ResetAdvancedSearch clears keywords, facets and constraints back to a
// blank slate. Results and history are kept.
func (s *Session) ResetAdvancedSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Keywords = []search.Keyword{}
	s.state.Facets = map[string]map[string]FacetItem{}
	s.state.TimeRanges = nil
	s.state.UseFilters = false
	s.state.SortBy = string(search.SortRelevance)
	s.state.Phase = PhaseIdle
}

type runFlags int

const (
	runCommit runFlags = 1 << iota
	runAppend
)

// run stamps a generation, executes outside the lock, then applies the
// result only if no newer generation was issued meanwhile.
func (s *Session) run(ctx context.Context, flags runFlags) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	req := s.buildRequest()
	span := s.semesterSpan()
	s.state.Phase = PhaseSearching
	s.mu.Unlock()

	start := time.Now()
	conn, err := s.executor.Search(ctx, req)
	elapsed := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		if s.stale != nil {
			s.stale.RecordStaleSearch()
		}
		s.logger.Debug("discarding stale search completion",
			zap.String("session_id", s.ID),
			zap.Uint64("generation", gen),
			zap.Uint64("latest", s.generation))
		return nil
	}

	if err != nil {
		s.state.Phase = PhaseFailed
		return err
	}

	s.applyResult(conn, flags&runAppend != 0)

	if flags&runCommit != 0 {
		s.state.PushHistory(s.state.TakeSnapshot())
		if s.recorder != nil {
			s.recorder.RecordSearch(&models.SearchEvent{
				SessionID:    s.ID,
				KeywordCount: len(req.DeluxeKeywords),
				SortBy:       req.SortBy,
				SemesterSpan: span,
				HitCount:     conn.TotalCount,
				DurationMS:   elapsed.Milliseconds(),
			})
		}
	}
	return nil
}

// buildRequest translates the state into the executor's input. Callers
// hold the lock.
func (s *Session) buildRequest() service.SearchRequest {
	st := s.state
	req := service.SearchRequest{
		DeluxeKeywords: st.ActiveKeywords(),
		Basic:          st.Basic,
		TimeRanges:     st.TimeRanges,
		Schools:        st.selectedValues(search.FacetAcademicGroups),
		Departments:    st.selectedValues(search.FacetDepartments),
		Subjects:       st.selectedValues(search.FacetSubjects),
		Components:     st.selectedValues(search.FacetComponents),
		SortBy:         st.SortBy,
		Page:           st.ResultsPage,
		PerPage:        st.ResultsPerPage,
		UserID:         s.UserID,
	}
	srange := service.SemesterRangeInput{
		Start: service.SemesterInput{TermName: st.TermStart, TermYear: st.YearStart},
	}
	if st.UseRange {
		srange.End = &service.SemesterInput{TermName: st.TermEnd, TermYear: st.YearEnd}
	}
	req.SemesterRange = &srange
	return req
}

// selectedValues returns the raw selected facet values fed into filtering,
// independent of the enum-constant view SelectedFilters exposes. Values are
// sorted so repeated builds of the same state produce the same request.
func (s *State) selectedValues(facet string) []string {
	if !s.UseFilters {
		return nil
	}
	var values []string
	for _, item := range s.Facets[facet] {
		if item.Selected {
			values = append(values, item.Value)
		}
	}
	sort.Strings(values)
	return values
}

func (s *Session) semesterSpan() int {
	srange, err := s.state.SemesterRange()
	if err != nil {
		return 0
	}
	if err := srange.Validate(); err != nil {
		return 0
	}
	return len(srange.Semesters())
}

// applyResult writes a completed search into the state. Facets come back
// repopulated with every returned value selected, matching what the query
// just matched.
func (s *Session) applyResult(conn *models.CourseConnection, appendResults bool) {
	ids := make([]int, len(conn.Edges))
	for i, edge := range conn.Edges {
		ids[i] = edge.Node.ID
	}
	if appendResults {
		s.state.ResultIDs = append(s.state.ResultIDs, ids...)
	} else {
		s.state.ResultIDs = ids
	}
	s.state.ResultsTotalCount = conn.TotalCount
	s.state.MoreAvailable = conn.PageInfo.HasNextPage
	s.state.Phase = PhaseComplete

	facets := make(map[string]map[string]FacetItem, len(conn.Facets))
	for dim, counts := range conn.Facets {
		items := make(map[string]FacetItem, len(counts))
		for _, fc := range counts {
			id := FormatEnumConstant(fc.Value)
			items[id] = FacetItem{ID: id, Value: fc.Value, Count: fc.Count, Selected: true}
		}
		facets[dim] = items
	}
	s.state.Facets = facets
}
