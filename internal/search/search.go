// Package search provides the web-search collaborator used to augment
// responses, plus the formatting of its results.
package search

import (
	"context"

	"github.com/merpai/merp/internal/models"
)

// Searcher is the external search collaborator
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error)
}

// Noop stands in when no search collaborator is configured. It always
// finds nothing, which callers already treat as a graceful outcome.
type Noop struct{}

func (Noop) Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	return nil, nil
}
