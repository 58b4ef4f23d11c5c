package suggest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	results []SearchResult
	err     error
	queries []string
	limits  []int
}

func (f *fakeStore) Suggestions(_ context.Context, query string, limit int) ([]SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.limits = append(f.limits, limit)
	return f.results, f.err
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type fakeConnector struct {
	urls []string
}

func (f *fakeConnector) SpeculativeConnect(url string) {
	f.urls = append(f.urls, url)
}

type panickyConnector struct{}

func (panickyConnector) SpeculativeConnect(string) {
	panic("connection refused")
}

type fakeLoader struct {
	loaded []string
}

func (f *fakeLoader) LoadURL(_ context.Context, url string) error {
	f.loaded = append(f.loaded, url)
	return nil
}

func distinctResults(n int) []SearchResult {
	out := make([]SearchResult, 0, n)
	for i := 0; i < n; i++ {
		url := fmt.Sprintf("http://www.mozilla.com/%d", i)
		out = append(out, SearchResult{ID: url, URL: url, Score: float64(i)})
	}
	return out
}

func TestEmptyInputSkipsStoreAndConnector(t *testing.T) {
	store := &fakeStore{results: distinctResults(5)}
	conn := &fakeConnector{}
	p := NewProvider(store, nil, WithConnector(conn))

	got, err := p.OnInputChanged(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 0, store.calls())
	assert.Empty(t, conn.urls)
}

func TestWhitespaceInputIsQueried(t *testing.T) {
	store := &fakeStore{results: distinctResults(3)}
	p := NewProvider(store, nil)

	got, err := p.OnInputChanged(context.Background(), "  ")
	require.NoError(t, err)
	assert.Len(t, got, 3)
	require.Equal(t, 1, store.calls())
	assert.Equal(t, "  ", store.queries[0])
}

func TestDefaultMaxSuggestions(t *testing.T) {
	store := &fakeStore{results: distinctResults(100)}
	p := NewProvider(store, nil)

	got, err := p.OnInputChanged(context.Background(), "moz")
	require.NoError(t, err)
	assert.Len(t, got, 20)
	assert.Equal(t, []int{20}, store.limits)
}

func TestCustomMaxSuggestions(t *testing.T) {
	for _, n := range []int{2, 22} {
		t.Run(fmt.Sprintf("max %d", n), func(t *testing.T) {
			store := &fakeStore{results: distinctResults(50)}
			p := NewProvider(store, nil, WithMaxSuggestions(n))

			got, err := p.OnInputChanged(context.Background(), "moz")
			require.NoError(t, err)
			assert.Len(t, got, n)
			assert.Equal(t, n, p.MaxSuggestions())
		})
	}
}

func TestInvalidMaxKeepsDefault(t *testing.T) {
	p := NewProvider(&fakeStore{}, nil, WithMaxSuggestions(0))
	assert.Equal(t, DefaultMaxSuggestions, p.MaxSuggestions())
}

func TestDuplicatesCollapseToHighestScore(t *testing.T) {
	const id = "http://www.mozilla.com/"
	store := &fakeStore{results: []SearchResult{
		{ID: id, URL: id, Score: 1},
		{ID: id, URL: id, Score: 2},
		{ID: id, URL: id, Score: 3},
	}}
	p := NewProvider(store, nil)

	got, err := p.OnInputChanged(context.Background(), "moz")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].URL)
	assert.Equal(t, id, got[0].Description)
	assert.Equal(t, 3.0, got[0].Score)
}

func TestSuggestionsOrderedByScore(t *testing.T) {
	store := &fakeStore{results: []SearchResult{
		{ID: "a", URL: "http://a.example/", Score: 2},
		{ID: "b", URL: "http://b.example/", Score: 5},
		{ID: "c", URL: "http://c.example/", Score: 3},
	}}
	p := NewProvider(store, nil)

	got, err := p.OnInputChanged(context.Background(), "ex")
	require.NoError(t, err)

	scores := make([]float64, 0, len(got))
	for _, s := range got {
		scores = append(scores, s.Score)
	}
	assert.Equal(t, []float64{5, 3, 2}, scores)
}

func TestSpeculativeConnectToTopSuggestion(t *testing.T) {
	store := &fakeStore{results: []SearchResult{
		{ID: "a", URL: "http://a.example/", Score: 2},
		{ID: "b", URL: "http://b.example/", Score: 5},
	}}
	conn := &fakeConnector{}
	p := NewProvider(store, nil, WithConnector(conn))

	_, err := p.OnInputChanged(context.Background(), "ex")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://b.example/"}, conn.urls)
}

func TestNoSpeculativeConnectWithoutResults(t *testing.T) {
	conn := &fakeConnector{}
	p := NewProvider(&fakeStore{}, nil, WithConnector(conn))

	got, err := p.OnInputChanged(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, conn.urls)
}

func TestConnectorPanicIsContained(t *testing.T) {
	store := &fakeStore{results: distinctResults(3)}
	p := NewProvider(store, nil, WithConnector(panickyConnector{}))

	var got []Suggestion
	var err error
	assert.NotPanics(t, func() {
		got, err = p.OnInputChanged(context.Background(), "moz")
	})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestStoreFailurePropagates(t *testing.T) {
	storeErr := errors.New("index corrupted")
	conn := &fakeConnector{}
	p := NewProvider(&fakeStore{err: storeErr}, nil, WithConnector(conn))

	got, err := p.OnInputChanged(context.Background(), "moz")
	assert.ErrorIs(t, err, storeErr)
	assert.Nil(t, got)
	assert.Empty(t, conn.urls)
}

func TestClickEmitsOneEvent(t *testing.T) {
	store := &fakeStore{results: distinctResults(2)}
	emitter := NewEmitter()
	var events []Event
	emitter.Register(ObserverFunc(func(e Event) { events = append(events, e) }))

	p := NewProvider(store, nil, WithEmitter(emitter))

	got, err := p.OnInputChanged(context.Background(), "moz")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Empty(t, events)

	got[0].OnClicked()

	require.Len(t, events, 1)
	assert.Equal(t, EventComponent, events[0].Component)
	assert.Equal(t, EventAction, events[0].Action)
	assert.Equal(t, EventItem, events[0].Item)
}

func TestAsyncDeliversOneResponse(t *testing.T) {
	store := &fakeStore{results: distinctResults(4)}
	p := NewProvider(store, nil)

	ch := p.OnInputChangedAsync(context.Background(), "moz")

	res, ok := <-ch
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Len(t, res.Suggestions, 4)

	_, ok = <-ch
	assert.False(t, ok, "channel should be closed after one response")
}

func TestAsyncDeliversStoreError(t *testing.T) {
	storeErr := errors.New("unavailable")
	p := NewProvider(&fakeStore{err: storeErr}, nil)

	res := <-p.OnInputChangedAsync(context.Background(), "moz")
	assert.ErrorIs(t, res.Err, storeErr)
}

func TestConcurrentQueries(t *testing.T) {
	store := &fakeStore{results: distinctResults(30)}
	p := NewProvider(store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := p.OnInputChanged(context.Background(), "moz")
			assert.NoError(t, err)
			assert.Len(t, got, 20)
		}()
	}
	wg.Wait()

	assert.Equal(t, 16, store.calls())
}

func TestLoadDelegatesToLoader(t *testing.T) {
	loader := &fakeLoader{}
	p := NewProvider(&fakeStore{}, loader)

	require.NoError(t, p.Load(context.Background(), "http://www.mozilla.com/"))
	assert.Equal(t, []string{"http://www.mozilla.com/"}, loader.loaded)
}

func TestLoadWithoutLoader(t *testing.T) {
	p := NewProvider(&fakeStore{}, nil)
	assert.Error(t, p.Load(context.Background(), "http://www.mozilla.com/"))
}
