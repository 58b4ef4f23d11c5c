// Package suggest turns partial user input into ranked history suggestions.
package suggest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// DefaultMaxSuggestions is used when a provider is built without WithMaxSuggestions
const DefaultMaxSuggestions = 20

// SearchResult is a single candidate returned by a history store
type SearchResult struct {
	ID    string  `json:"id" yaml:"id"`
	URL   string  `json:"url" yaml:"url"`
	Score float64 `json:"score" yaml:"score"`
}

// Suggestion is a ranked, presentable history entry
type Suggestion struct {
	ID          string
	URL         string
	Description string
	Score       float64

	// OnClicked emits the click interaction event for this suggestion
	OnClicked func()
}

// HistoryStore finds history entries matching a partial query. The limit is a
// hint; implementations may return more results than asked for.
type HistoryStore interface {
	Suggestions(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// Connector pre-establishes a connection to a URL the user is likely to visit.
// Implementations must not block.
type Connector interface {
	SpeculativeConnect(url string)
}

// URLLoader performs the primary action for a chosen suggestion
type URLLoader interface {
	LoadURL(ctx context.Context, url string) error
}

type noopConnector struct{}

func (noopConnector) SpeculativeConnect(string) {}

// Option configures a Provider
type Option func(*Provider)

// WithConnector sets the connector used for speculative connects. A nil
// connector disables them.
func WithConnector(c Connector) Option {
	return func(p *Provider) {
		if c != nil {
			p.connector = c
		}
	}
}

// WithMaxSuggestions caps the number of suggestions returned per query.
// Values below one keep the default.
func WithMaxSuggestions(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.maxSuggestions = n
		}
	}
}

// WithEmitter sets the emitter that receives click events
func WithEmitter(e *Emitter) Option {
	return func(p *Provider) {
		if e != nil {
			p.emitter = e
		}
	}
}

// Provider produces history suggestions for text input. It keeps no per-call
// state, so OnInputChanged may be called concurrently. It does not cancel or
// reorder overlapping queries; callers that issue them must drop stale results.
type Provider struct {
	store          HistoryStore
	loader         URLLoader
	connector      Connector
	emitter        *Emitter
	maxSuggestions int
}

// NewProvider creates a provider reading from store
func NewProvider(store HistoryStore, loader URLLoader, opts ...Option) *Provider {
	p := &Provider{
		store:          store,
		loader:         loader,
		connector:      noopConnector{},
		emitter:        NewEmitter(),
		maxSuggestions: DefaultMaxSuggestions,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// MaxSuggestions reports the configured suggestion limit
func (p *Provider) MaxSuggestions() int {
	return p.maxSuggestions
}

// Emitter returns the emitter that receives this provider's click events
func (p *Provider) Emitter() *Emitter {
	return p.emitter
}

// OnInputChanged returns suggestions for text. Only the empty string is
// treated as no input; whitespace is passed to the store as typed. Store
// failures are returned to the caller.
func (p *Provider) OnInputChanged(ctx context.Context, text string) ([]Suggestion, error) {
	if text == "" {
		return []Suggestion{}, nil
	}

	results, err := p.store.Suggestions(ctx, text, p.maxSuggestions)
	if err != nil {
		return nil, fmt.Errorf("history query: %w", err)
	}

	ranked := Rank(results, p.maxSuggestions)

	if len(ranked) > 0 {
		p.speculativeConnect(ranked[0].URL)
	}

	suggestions := make([]Suggestion, 0, len(ranked))
	for _, r := range ranked {
		suggestions = append(suggestions, p.newSuggestion(r))
	}

	return suggestions, nil
}

// Response carries the outcome of an asynchronous query
type Response struct {
	Suggestions []Suggestion
	Err         error
}

// OnInputChangedAsync runs OnInputChanged in its own goroutine. The returned
// channel receives exactly one Response and is then closed.
func (p *Provider) OnInputChangedAsync(ctx context.Context, text string) <-chan Response {
	ch := make(chan Response, 1)

	go func() {
		defer close(ch)
		s, err := p.OnInputChanged(ctx, text)
		ch <- Response{Suggestions: s, Err: err}
	}()

	return ch
}

// Load performs the primary action for a chosen suggestion URL
func (p *Provider) Load(ctx context.Context, url string) error {
	if p.loader == nil {
		return errors.New("no url loader configured")
	}
	return p.loader.LoadURL(ctx, url)
}

func (p *Provider) speculativeConnect(url string) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug().Msgf("speculative connect to %s failed: %v", url, r)
		}
	}()

	p.connector.SpeculativeConnect(url)
}

func (p *Provider) newSuggestion(r SearchResult) Suggestion {
	emitter := p.emitter

	return Suggestion{
		ID:          r.ID,
		URL:         r.URL,
		Description: r.URL,
		Score:       r.Score,
		OnClicked: func() {
			emitter.Emit(ClickEvent())
		},
	}
}
