package history

import (
	"context"

	"github.com/uvalib/virgo4-history-suggestor-ws/suggest"
)

// Merged queries several stores in order and concatenates their results. The
// same entry may come back from more than one store; the suggestion provider
// collapses those duplicates. Any store failure fails the whole query.
type Merged []suggest.HistoryStore

// Suggestions implements suggest.HistoryStore
func (m Merged) Suggestions(ctx context.Context, query string, limit int) ([]suggest.SearchResult, error) {
	var out []suggest.SearchResult

	for _, store := range m {
		results, err := store.Suggestions(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		out = append(out, results...)
	}

	return out, nil
}
