package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curricle/catalog-api/internal/search"
	appErrors "github.com/curricle/catalog-api/pkg/errors"
)

// fakePersistence round-trips values through JSON the way the Redis
// repository does.
type fakePersistence struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newFakePersistence() *fakePersistence {
	return &fakePersistence{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakePersistence) Get(ctx context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakePersistence) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = raw
	f.ttls[key] = ttl
	return nil
}

func newTestManager(store Persistence) *Manager {
	return NewManager(ManagerConfig{
		Executor:    &fakeExecutor{},
		Recorder:    &fakeRecorder{},
		Stale:       &fakeStale{},
		Persistence: store,
		TTL:         time.Hour,
		PerPage:     50,
	})
}

func TestCurrentSemester(t *testing.T) {
	term, year := CurrentSemester(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, search.TermSpring, term)
	assert.Equal(t, 2024, year)

	term, year = CurrentSemester(time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, search.TermFall, term)
	assert.Equal(t, 2024, year)

	term, _ = CurrentSemester(time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, search.TermSpring, term)
}

func TestManagerCreatePersists(t *testing.T) {
	store := newFakePersistence()
	mgr := newTestManager(store)

	sess, err := mgr.Create(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "user-1", sess.UserID)

	store.mu.Lock()
	_, saved := store.data["session:"+sess.ID]
	ttl := store.ttls["session:"+sess.ID]
	store.mu.Unlock()
	assert.True(t, saved)
	assert.Equal(t, time.Hour, ttl)
}

func TestManagerGetRebuildsFromPersistence(t *testing.T) {
	store := newFakePersistence()
	first := newTestManager(store)

	sess, err := first.Create(context.Background(), "user-1")
	require.NoError(t, err)
	sess.AddKeyword("biology", []search.FieldTag{search.FieldTitle})
	require.NoError(t, first.Save(context.Background(), sess))

	// a second instance sharing the store sees the session
	second := newTestManager(store)
	rebuilt, err := second.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", rebuilt.UserID)
	require.Len(t, rebuilt.State().Keywords, 1)
	assert.Equal(t, "biology", rebuilt.State().Keywords[0].Text)
}

func TestManagerGetUnknownSession(t *testing.T) {
	mgr := newTestManager(newFakePersistence())
	_, err := mgr.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSessionNotFound.Code, appErrors.FromError(err).Code)
}

func TestManagerWithoutPersistence(t *testing.T) {
	mgr := newTestManager(nil)

	sess, err := mgr.Create(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, mgr.Save(context.Background(), sess))

	got, err := mgr.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)

	_, err = mgr.Get(context.Background(), "elsewhere")
	assert.Error(t, err)
}

func TestStateSerializationRoundTrip(t *testing.T) {
	state := NewState(search.TermFall, 2024, 25)
	state.Keywords = []search.Keyword{{Text: "ethics", Fields: []search.FieldTag{search.FieldTitle}, Active: true, Ident: "k1"}}
	state.Facets = map[string]map[string]FacetItem{
		"subjects": {"PHIL": {ID: "PHIL", Value: "Phil", Count: 3, Selected: true}},
	}
	state.History = []Snapshot{{TermStart: "Fall", YearStart: 2024, SortBy: "TITLE"}}

	raw, err := json.Marshal(state)
	require.NoError(t, err)

	var decoded State
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, *state, decoded)
}
