package history

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solrServer(t *testing.T, body map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/history/admin/ping" {
			w.WriteHeader(http.StatusOK)
			return
		}
		assert.Equal(t, "/history/select", r.URL.Path)
		assert.Equal(t, "moz", r.URL.Query().Get("q"))
		assert.Equal(t, "20", r.URL.Query().Get("rows"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSolrParsesDocuments(t *testing.T) {
	srv := solrServer(t, map[string]any{
		"responseHeader": map[string]any{"status": 0, "QTime": 1},
		"response": map[string]any{
			"numFound": 3,
			"docs": []map[string]any{
				{"id": "1", "url": "http://www.mozilla.com/", "score": 3.5},
				{"url": "http://www.mozilla.org/", "score": 1},
				{"id": "3", "score": 1},
			},
		},
	})

	s, err := NewSolr(SolrConfig{Host: srv.URL, Core: "history", Verbose: true})
	require.NoError(t, err)

	got, err := s.Suggestions(context.Background(), "moz", 20)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, 3.5, got[0].Score)
	assert.Equal(t, "http://www.mozilla.org/", got[1].ID)

	assert.NoError(t, s.Ping(context.Background()))
}

func TestSolrErrorStatus(t *testing.T) {
	srv := solrServer(t, map[string]any{
		"responseHeader": map[string]any{"status": 400},
		"error":          map[string]any{"code": 400, "msg": "undefined field url"},
	})

	s, err := NewSolr(SolrConfig{Host: srv.URL, Core: "history"})
	require.NoError(t, err)

	_, err = s.Suggestions(context.Background(), "moz", 20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined field url")
}

func TestSolrUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := srv.URL
	srv.Close()

	s, err := NewSolr(SolrConfig{Host: host, Core: "history"})
	require.NoError(t, err)

	_, err = s.Suggestions(context.Background(), "moz", 20)
	assert.Error(t, err)
	assert.Error(t, s.Ping(context.Background()))
}

func TestSolrNotConfigured(t *testing.T) {
	_, err := NewSolr(SolrConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestStats(t *testing.T) {
	st := Stats([]SolrDocument{{Score: 1}, {Score: 2}, {Score: 3}})
	assert.Equal(t, 3, st.Count)
	assert.InDelta(t, 2.0, st.Mean, 1e-9)
	assert.InDelta(t, 2.0, st.Median, 1e-9)
	assert.InDelta(t, 1.0, st.StdDev, 1e-9)

	assert.Equal(t, ScoreStats{}, Stats(nil))
}
