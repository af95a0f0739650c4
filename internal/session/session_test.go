package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curricle/catalog-api/internal/models"
	"github.com/curricle/catalog-api/internal/search"
	"github.com/curricle/catalog-api/internal/service"
)

type fakeExecutor struct {
	mu       sync.Mutex
	requests []service.SearchRequest
	results  []*models.CourseConnection
	errs     []error
	// started signals each call's arrival; gate, when non-nil, is received
	// from before the call returns so a test can control completion order.
	started chan struct{}
	gate    chan struct{}
}

func (f *fakeExecutor) Search(ctx context.Context, req service.SearchRequest) (*models.CourseConnection, error) {
	f.mu.Lock()
	call := len(f.requests)
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}

	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	if call < len(f.results) {
		return f.results[call], nil
	}
	return connectionWithIDs(), nil
}

func connectionWithIDs(ids ...int) *models.CourseConnection {
	edges := make([]models.CourseEdge, len(ids))
	for i, id := range ids {
		edges[i] = models.CourseEdge{Node: models.Course{ID: id}}
	}
	return &models.CourseConnection{
		Edges:      edges,
		TotalCount: len(ids),
		PageInfo:   models.PageInfo{Page: 1, PerPage: 50},
		Facets: map[string][]models.FacetCount{
			"academic_groups": {{Value: "Harvard Divinity School", Count: len(ids)}},
		},
	}
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []*models.SearchEvent
}

func (f *fakeRecorder) RecordSearch(event *models.SearchEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

type fakeStale struct {
	mu    sync.Mutex
	count int
}

func (f *fakeStale) RecordStaleSearch() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
}

func newTestSession(exec Executor) *Session {
	state := NewState(search.TermFall, 2024, 50)
	return NewSession("sess-1", state, exec, &fakeRecorder{}, &fakeStale{}, nil)
}

func TestNewStateDefaults(t *testing.T) {
	state := NewState(search.TermFall, 2024, 0)
	assert.Equal(t, "Fall", state.TermStart)
	assert.Equal(t, 2024, state.YearStart)
	assert.Equal(t, 2025, state.YearEnd)
	assert.False(t, state.UseRange)
	assert.Equal(t, "RELEVANCE", state.SortBy)
	assert.Equal(t, 50, state.ResultsPerPage)
	assert.Equal(t, PhaseIdle, state.Phase)
}

func TestAddKeywordDeduplicates(t *testing.T) {
	sess := newTestSession(&fakeExecutor{})

	first := sess.AddKeyword("biology", []search.FieldTag{search.FieldTitle})
	second := sess.AddKeyword("biology", []search.FieldTag{search.FieldDescription})

	assert.Equal(t, first.Ident, second.Ident)
	assert.Len(t, sess.State().Keywords, 1)
	assert.NotEmpty(t, first.Ident)
	assert.True(t, first.Active)
}

func TestKeywordLifecycle(t *testing.T) {
	sess := newTestSession(&fakeExecutor{})

	kw := sess.AddKeyword("ethics", []search.FieldTag{search.FieldTitle})
	sess.SetKeywordActive(kw.Ident, false)
	assert.Empty(t, sess.State().ActiveKeywords())

	sess.SetKeywordActive(kw.Ident, true)
	assert.Len(t, sess.State().ActiveKeywords(), 1)

	sess.RemoveKeyword(kw.Ident)
	assert.Empty(t, sess.State().Keywords)
}

func TestRunBasicSearchAppliesResults(t *testing.T) {
	exec := &fakeExecutor{results: []*models.CourseConnection{connectionWithIDs(5, 8)}}
	recorder := &fakeRecorder{}
	state := NewState(search.TermFall, 2024, 50)
	sess := NewSession("sess-1", state, exec, recorder, &fakeStale{}, nil)

	require.NoError(t, sess.RunBasicSearch(context.Background(), "religion"))

	st := sess.State()
	assert.Equal(t, []int{5, 8}, st.ResultIDs)
	assert.Equal(t, 2, st.ResultsTotalCount)
	assert.Equal(t, PhaseComplete, st.Phase)
	require.Len(t, st.History, 1)
	require.Len(t, recorder.events, 1)
	assert.Equal(t, "sess-1", recorder.events[0].SessionID)
	assert.Equal(t, 2, recorder.events[0].HitCount)

	// facets come back fully selected
	items := st.Facets["academic_groups"]
	require.Len(t, items, 1)
	item := items["HARVARD_DIVINITY_SCHOOL"]
	assert.Equal(t, "Harvard Divinity School", item.Value)
	assert.True(t, item.Selected)
}

func TestSearchEventDurationInMilliseconds(t *testing.T) {
	exec := &fakeExecutor{
		results: []*models.CourseConnection{connectionWithIDs(1)},
		started: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
	recorder := &fakeRecorder{}
	state := NewState(search.TermFall, 2024, 50)
	sess := NewSession("sess-1", state, exec, recorder, &fakeStale{}, nil)

	done := make(chan error, 1)
	go func() {
		done <- sess.RunBasicSearch(context.Background(), "religion")
	}()
	<-exec.started
	time.Sleep(30 * time.Millisecond)
	close(exec.gate)
	require.NoError(t, <-done)

	require.Len(t, recorder.events, 1)
	// the executor was held for 30ms; a nanosecond value would blow past
	// the upper bound
	ms := recorder.events[0].DurationMS
	assert.GreaterOrEqual(t, ms, int64(20))
	assert.Less(t, ms, int64(10_000))
}

func TestLoadMoreAppendsResults(t *testing.T) {
	full := connectionWithIDs(1, 2)
	full.PageInfo.HasNextPage = true
	exec := &fakeExecutor{results: []*models.CourseConnection{full, connectionWithIDs(3)}}
	sess := newTestSession(exec)

	require.NoError(t, sess.RunKeywordSearch(context.Background()))
	require.NoError(t, sess.LoadMore(context.Background()))

	st := sess.State()
	assert.Equal(t, []int{1, 2, 3}, st.ResultIDs)
	assert.Equal(t, 2, st.ResultsPage)
	assert.False(t, st.MoreAvailable)

	// pagination does not commit to history or analytics
	assert.Len(t, st.History, 1)
	require.Len(t, exec.requests, 2)
	assert.Equal(t, 1, exec.requests[0].Page)
	assert.Equal(t, 2, exec.requests[1].Page)
}

func TestLoadMoreNoopWithoutMore(t *testing.T) {
	exec := &fakeExecutor{}
	sess := newTestSession(exec)

	require.NoError(t, sess.LoadMore(context.Background()))
	assert.Empty(t, exec.requests)
}

func TestChangeSortByRerunsOnlyWhenChanged(t *testing.T) {
	full := connectionWithIDs(1)
	exec := &fakeExecutor{results: []*models.CourseConnection{full, full, full}}
	sess := newTestSession(exec)

	require.NoError(t, sess.RunKeywordSearch(context.Background()))
	require.Len(t, exec.requests, 1)

	require.NoError(t, sess.ChangeSortBy(context.Background(), search.SortTitle))
	require.Len(t, exec.requests, 2)
	assert.Equal(t, "TITLE", exec.requests[1].SortBy)

	// same key again is a no-op
	require.NoError(t, sess.ChangeSortBy(context.Background(), search.SortTitle))
	assert.Len(t, exec.requests, 2)
}

func TestChangeSortByWithoutResultsDoesNotRun(t *testing.T) {
	exec := &fakeExecutor{}
	sess := newTestSession(exec)

	require.NoError(t, sess.ChangeSortBy(context.Background(), search.SortTitle))
	assert.Empty(t, exec.requests)
	assert.Equal(t, "TITLE", sess.State().SortBy)
}

func TestHistoryBounded(t *testing.T) {
	exec := &fakeExecutor{}
	sess := newTestSession(exec)

	for i := 0; i < 8; i++ {
		require.NoError(t, sess.RunBasicSearch(context.Background(), fmt.Sprintf("query %d", i)))
	}

	st := sess.State()
	require.Len(t, st.History, HistoryLength)
	// most recent first
	assert.Equal(t, "RELEVANCE", st.History[0].SortBy)
}

func TestSnapshotRestoreReproducesRequest(t *testing.T) {
	exec := &fakeExecutor{}
	sess := newTestSession(exec)

	sess.AddKeyword("GENETIC 333", []search.FieldTag{search.FieldCourseID})
	sess.SetUseRange(true)
	sess.SetSemesterStart("Spring", 2023)
	sess.SetSemesterEnd("Fall", 2024)
	require.NoError(t, sess.RunKeywordSearch(context.Background()))

	// drift the state away from the committed search
	sess.SetSemesterStart("Fall", 2026)
	kw := sess.AddKeyword("other", []search.FieldTag{search.FieldTitle})
	sess.RemoveKeyword(kw.Ident)

	require.NoError(t, sess.Restore(context.Background(), 0))
	require.Len(t, exec.requests, 2)

	original, restored := exec.requests[0], exec.requests[1]
	assert.Equal(t, original.DeluxeKeywords, restored.DeluxeKeywords)
	assert.Equal(t, original.SemesterRange, restored.SemesterRange)
	assert.Equal(t, original.SortBy, restored.SortBy)
	assert.Equal(t, original.Page, restored.Page)
}

func TestRestoreOutOfRange(t *testing.T) {
	sess := newTestSession(&fakeExecutor{})
	assert.Error(t, sess.Restore(context.Background(), 0))
	assert.Error(t, sess.Restore(context.Background(), -1))
}

func TestStaleCompletionDiscarded(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{})
	exec := &fakeExecutor{
		results: []*models.CourseConnection{connectionWithIDs(1), connectionWithIDs(2)},
		started: started,
		gate:    gate,
	}
	stale := &fakeStale{}
	state := NewState(search.TermFall, 2024, 50)
	sess := NewSession("sess-1", state, exec, &fakeRecorder{}, stale, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = sess.RunBasicSearch(context.Background(), "first")
	}()
	go func() {
		defer wg.Done()
		_ = sess.RunBasicSearch(context.Background(), "second")
	}()

	// wait until both searches hold a stamped generation, then let them
	// finish in whatever order; exactly one completion is superseded
	<-started
	<-started
	gate <- struct{}{}
	gate <- struct{}{}
	wg.Wait()

	assert.Equal(t, 1, stale.count)
	st := sess.State()
	assert.Equal(t, PhaseComplete, st.Phase)
	require.Len(t, st.History, 1)
}

func TestFailedSearchSetsPhase(t *testing.T) {
	exec := &fakeExecutor{errs: []error{assert.AnError}}
	sess := newTestSession(exec)

	err := sess.RunKeywordSearch(context.Background())
	require.Error(t, err)
	assert.Equal(t, PhaseFailed, sess.State().Phase)
	assert.Empty(t, sess.State().History)
}

func TestFacetSelectionFlow(t *testing.T) {
	exec := &fakeExecutor{results: []*models.CourseConnection{connectionWithIDs(1), connectionWithIDs(1)}}
	sess := newTestSession(exec)

	require.NoError(t, sess.RunKeywordSearch(context.Background()))
	require.NoError(t, sess.FacetSetItemSelection("academic_groups", "HARVARD_DIVINITY_SCHOOL", false))
	sess.SetUseFilters(true)

	require.NoError(t, sess.RunKeywordSearch(context.Background()))
	// the deselected school must not be sent as a filter
	assert.Empty(t, exec.requests[1].Schools)

	sess.FacetSetAllSelections("academic_groups", true)
	st := sess.State()
	assert.True(t, st.Facets["academic_groups"]["HARVARD_DIVINITY_SCHOOL"].Selected)

	assert.Error(t, sess.FacetSetItemSelection("academic_groups", "NOPE", true))
	assert.Error(t, sess.FacetSetItemSelection("unknown_facet", "X", true))
}

func TestSelectedFiltersFormatting(t *testing.T) {
	state := NewState(search.TermFall, 2024, 50)
	state.UseFilters = true
	state.Facets = map[string]map[string]FacetItem{
		"academic_groups": {
			"A": {ID: "A", Value: "Arts & Sciences - Social", Selected: true},
			"B": {ID: "B", Value: "Not Selected", Selected: false},
		},
	}

	assert.Equal(t, []string{"ARTS__SCIENCES___SOCIAL"}, state.SelectedFilters("academic_groups"))

	state.UseFilters = false
	assert.Nil(t, state.SelectedFilters("academic_groups"))
}

func TestSelectedValuesSorted(t *testing.T) {
	state := NewState(search.TermFall, 2024, 50)
	state.UseFilters = true
	state.Facets = map[string]map[string]FacetItem{
		"academic_groups": {
			"C": {ID: "C", Value: "Divinity School", Selected: true},
			"A": {ID: "A", Value: "Business School", Selected: true},
			"B": {ID: "B", Value: "College", Selected: true},
		},
	}

	want := []string{"Business School", "College", "Divinity School"}
	// Map iteration order varies between builds of the same state; the
	// request must not.
	for i := 0; i < 100; i++ {
		assert.Equal(t, want, state.selectedValues("academic_groups"))
	}
}

func TestFormatEnumConstant(t *testing.T) {
	assert.Equal(t, "SOCIAL_SCIENCES", FormatEnumConstant("Social Sciences"))
	assert.Equal(t, "LIFE_SCIENCES_A", FormatEnumConstant("Life-Sciences/A"))
	assert.Equal(t, "GEN__ED", FormatEnumConstant("Gen. Ed"))
	assert.Equal(t, "CO_OP", FormatEnumConstant("Co-op!"))
}

func TestResetAdvancedSearch(t *testing.T) {
	exec := &fakeExecutor{}
	sess := newTestSession(exec)

	sess.AddKeyword("biology", []search.FieldTag{search.FieldTitle})
	sess.SetUseFilters(true)
	require.NoError(t, sess.RunKeywordSearch(context.Background()))

	sess.ResetAdvancedSearch()

	st := sess.State()
	assert.Empty(t, st.Keywords)
	assert.Empty(t, st.Facets)
	assert.False(t, st.UseFilters)
	assert.Equal(t, "RELEVANCE", st.SortBy)
	assert.Len(t, st.History, 1, "history survives a reset")
}
