package history

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/uvalib/virgo4-history-suggestor-ws/suggest"
)

// Visitor records that a URL was visited
type Visitor interface {
	Visit(url string) (suggest.SearchResult, error)
}

// LoadURLUseCase handles a user choosing a URL: the URL is validated and the
// visit is written to history.
type LoadURLUseCase struct {
	visitor Visitor
}

// NewLoadURLUseCase creates a use case recording visits in v
func NewLoadURLUseCase(v Visitor) *LoadURLUseCase {
	return &LoadURLUseCase{visitor: v}
}

// LoadURL implements suggest.URLLoader
func (uc *LoadURLUseCase) LoadURL(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	u, err := url.ParseRequestURI(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	if _, err := uc.visitor.Visit(u.String()); err != nil {
		return fmt.Errorf("record visit: %w", err)
	}

	return nil
}
