package history

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uvalib/virgo4-history-suggestor-ws/suggest"
)

type failingStore struct{ err error }

func (f failingStore) Suggestions(context.Context, string, int) ([]suggest.SearchResult, error) {
	return nil, f.err
}

func TestMergedConcatenates(t *testing.T) {
	a := NewMemory()
	b := NewMemory()
	require.NoError(t, a.Add(suggest.SearchResult{URL: "http://www.mozilla.com/", Score: 1}))
	require.NoError(t, b.Add(suggest.SearchResult{URL: "http://www.mozilla.com/", Score: 4}))
	require.NoError(t, b.Add(suggest.SearchResult{URL: "http://www.mozilla.org/", Score: 2}))

	got, err := Merged{a, b}.Suggestions(context.Background(), "moz", 10)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	ranked := suggest.Rank(got, 10)
	require.Len(t, ranked, 2)
	assert.Equal(t, 4.0, ranked[0].Score)
}

func TestMergedPropagatesFailure(t *testing.T) {
	boom := errors.New("solr down")

	_, err := Merged{NewMemory(), failingStore{err: boom}}.Suggestions(context.Background(), "moz", 10)
	assert.ErrorIs(t, err, boom)
}
