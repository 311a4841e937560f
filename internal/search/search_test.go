package search

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/merpai/merp/internal/models"
)

const resultPage = `<html><body>
<div class="result">
  <a class="result__a" href="https://example.com/espresso">History of Espresso</a>
  <a class="result__snippet" href="#">Espresso was invented in Italy.</a>
</div>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fcoffee.example%2Fguide">Coffee Guide</a>
  <a class="result__snippet" href="#">A complete guide to coffee brewing.</a>
</div>
<div class="result">
  <a class="result__a" href="https://example.org/beans">All About Beans</a>
  <a class="result__snippet" href="#">Bean varieties explained.</a>
</div>
</body></html>`

func TestDuckDuckGoSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "espresso history", r.PostForm.Get("q"))
		io.WriteString(w, resultPage)
	}))
	defer server.Close()

	d := NewDuckDuckGo(zap.NewNop())
	d.endpoint = server.URL

	results, err := d.Search(context.Background(), "espresso history", 8)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "History of Espresso", results[0].Title)
	assert.Equal(t, "https://example.com/espresso", results[0].Link)
	assert.Equal(t, "Espresso was invented in Italy.", results[0].Description)

	// redirect links are unwrapped to their target
	assert.Equal(t, "https://coffee.example/guide", results[1].Link)
}

func TestDuckDuckGoSearchLimitsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, resultPage)
	}))
	defer server.Close()

	d := NewDuckDuckGo(zap.NewNop())
	d.endpoint = server.URL

	results, err := d.Search(context.Background(), "coffee", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestDuckDuckGoSearchErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	d := NewDuckDuckGo(zap.NewNop())
	d.endpoint = server.URL

	_, err := d.Search(context.Background(), "coffee", 8)
	assert.Error(t, err)

	unreachable := NewDuckDuckGo(zap.NewNop())
	unreachable.endpoint = "http://127.0.0.1:1"
	unreachable.client.Timeout = 200 * time.Millisecond

	_, err = unreachable.Search(context.Background(), "coffee", 8)
	assert.Error(t, err)
}

func TestNoopFindsNothing(t *testing.T) {
	results, err := Noop{}.Search(context.Background(), "anything", 8)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFormatResults(t *testing.T) {
	results := []models.SearchResult{
		{Title: "First", Link: "https://a.example", Description: "one"},
		{Title: "Second", Link: "https://b.example", Description: "two"},
	}

	formatted := FormatResults(results, "espresso")

	assert.Contains(t, formatted, "Web Search Results for 'espresso':")
	assert.Contains(t, formatted, "1. First\n   https://a.example\n   one\n")
	assert.Contains(t, formatted, "2. Second\n   https://b.example\n   two\n")
}

func TestFormatResultsEmpty(t *testing.T) {
	formatted := FormatResults(nil, "espresso")
	assert.Equal(t, "No results found for 'espresso'. Try a different search term.", formatted)
}

func TestResourceLinks(t *testing.T) {
	links := ResourceLinks("black holes")

	assert.Contains(t, links, "Here are some helpful links for 'black holes':")
	assert.Contains(t, links, "https://www.google.com/search?q=black+holes")
	assert.Contains(t, links, "https://www.google.com/search?tbm=bks&q=black+holes")
	assert.Contains(t, links, "https://en.wikipedia.org/w/index.php?search=black+holes")
	assert.Contains(t, links, "https://scholar.google.com/scholar?q=black+holes")
	assert.Contains(t, links, "https://www.amazon.com/s?k=black+holes")
}

func TestGenericLinks(t *testing.T) {
	links := GenericLinks()
	assert.Contains(t, links, "https://www.google.com/")
	assert.Contains(t, links, "https://en.wikipedia.org/")
	assert.Contains(t, links, "https://scholar.google.com/")
}
