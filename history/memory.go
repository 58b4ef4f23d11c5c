// Package history provides the history stores that back the suggestion provider.
package history

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/uvalib/virgo4-history-suggestor-ws/suggest"
)

// ErrInvalidURL is returned when a URL cannot be recorded in history
var ErrInvalidURL = errors.New("invalid url")

// Memory is an in-memory history store. Entries are indexed by their URL with
// the scheme removed, and again with a leading "www." removed, so "moz" and
// "www.moz" both match http://www.mozilla.com/.
type Memory struct {
	mu      sync.RWMutex
	trie    *patricia.Trie
	entries map[string]*suggest.SearchResult

	// byURL maps a normalized URL to the ID of the entry holding it
	byURL map[string]string
}

// NewMemory creates an empty store
func NewMemory() *Memory {
	return &Memory{
		trie:    patricia.NewTrie(),
		entries: make(map[string]*suggest.SearchResult),
		byURL:   make(map[string]string),
	}
}

// Len reports the number of entries in the store
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Add inserts or replaces an entry. An empty ID defaults to the URL. An
// existing entry with the same URL under another ID is replaced.
func (m *Memory) Add(e suggest.SearchResult) error {
	e.URL = strings.TrimSpace(e.URL)
	if e.URL == "" {
		return ErrInvalidURL
	}
	if e.ID == "" {
		e.ID = e.URL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.entries[e.ID]; ok {
		m.unindex(old)
	}
	if id, ok := m.byURL[urlKey(e.URL)]; ok && id != e.ID {
		m.unindex(m.entries[id])
		delete(m.entries, id)
	}

	entry := e
	m.entries[e.ID] = &entry
	m.index(&entry)

	return nil
}

// Visit records a visit to url and returns the updated entry. The score of a
// history entry is its visit count.
func (m *Memory) Visit(url string) (suggest.SearchResult, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return suggest.SearchResult{}, ErrInvalidURL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var entry *suggest.SearchResult
	if id, ok := m.byURL[urlKey(url)]; ok {
		entry = m.entries[id]
	} else {
		if old, ok := m.entries[url]; ok {
			m.unindex(old)
		}
		entry = &suggest.SearchResult{ID: url, URL: url}
		m.entries[url] = entry
		m.index(entry)
	}
	entry.Score++

	log.Debug().Msgf("visit %s (score %.0f)", entry.URL, entry.Score)

	return *entry, nil
}

// Entries returns a copy of all entries, highest score first
func (m *Memory) Entries() []suggest.SearchResult {
	m.mu.RLock()
	out := make([]suggest.SearchResult, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, *e)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ID < out[j].ID
		}
		return out[i].Score > out[j].Score
	})

	return out
}

// Suggestions returns entries whose URL starts with query, highest score
// first. Results are cut off once limit distinct entries have been collected;
// an entry reachable through both of its index keys is returned twice.
func (m *Memory) Suggestions(ctx context.Context, query string, limit int) ([]suggest.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := stripScheme(strings.ToLower(query))
	if prefix == "" {
		return []suggest.SearchResult{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []suggest.SearchResult

	err := m.trie.VisitSubtree(patricia.Prefix(prefix), func(_ patricia.Prefix, item patricia.Item) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, id := range item.([]string) {
			if e, ok := m.entries[id]; ok {
				matches = append(matches, *e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if limit <= 0 {
		return matches, nil
	}

	distinct := make(map[string]struct{}, limit)
	out := matches[:0]
	for _, e := range matches {
		if _, seen := distinct[e.ID]; !seen {
			if len(distinct) >= limit {
				break
			}
			distinct[e.ID] = struct{}{}
		}
		out = append(out, e)
	}

	return out, nil
}

func (m *Memory) index(e *suggest.SearchResult) {
	m.byURL[urlKey(e.URL)] = e.ID

	for _, key := range indexKeys(e.URL) {
		ids, _ := m.trie.Get(patricia.Prefix(key)).([]string)
		if containsString(ids, e.ID) {
			continue
		}
		m.trie.Set(patricia.Prefix(key), append(ids, e.ID))
	}
}

func (m *Memory) unindex(e *suggest.SearchResult) {
	if m.byURL[urlKey(e.URL)] == e.ID {
		delete(m.byURL, urlKey(e.URL))
	}

	for _, key := range indexKeys(e.URL) {
		ids, _ := m.trie.Get(patricia.Prefix(key)).([]string)
		kept := make([]string, 0, len(ids))
		for _, id := range ids {
			if id != e.ID {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			m.trie.Delete(patricia.Prefix(key))
		} else {
			m.trie.Set(patricia.Prefix(key), kept)
		}
	}
}

// urlKey identifies a URL for visit counting
func urlKey(url string) string {
	return strings.ToLower(strings.TrimSpace(url))
}

func indexKeys(url string) []string {
	key := stripScheme(strings.ToLower(url))
	if key == "" {
		return nil
	}

	if short := strings.TrimPrefix(key, "www."); short != key && short != "" {
		return []string{key, short}
	}

	return []string{key}
}

func stripScheme(s string) string {
	if i := strings.Index(s, "://"); i >= 0 {
		return s[i+3:]
	}
	return s
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
