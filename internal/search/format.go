package search

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/merpai/merp/internal/models"
)

// FormatResults renders results as a numbered listing with a divider
// header, or a fixed no-results message.
func FormatResults(results []models.SearchResult, query string) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for '%s'. Try a different search term.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Web Search Results for '%s':\n%s\n", query, strings.Repeat("─", 70))
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s\n   %s\n   %s\n", i+1, r.Title, r.Link, r.Description)
	}
	return b.String()
}

// ResourceLinks builds a block of search-engine and reference links for
// a query, each with the query percent-encoded into a fixed template.
func ResourceLinks(query string) string {
	q := url.QueryEscape(query)

	var b strings.Builder
	fmt.Fprintf(&b, "Here are some helpful links for '%s':\n%s\n", query, strings.Repeat("─", 50))
	fmt.Fprintf(&b, "\nGoogle search: https://www.google.com/search?q=%s\n", q)
	fmt.Fprintf(&b, "\nGoogle Books: https://www.google.com/search?tbm=bks&q=%s\n", q)
	fmt.Fprintf(&b, "\nWikipedia search: https://en.wikipedia.org/w/index.php?search=%s\n", q)
	fmt.Fprintf(&b, "\nGoogle Scholar: https://scholar.google.com/scholar?q=%s\n", q)
	fmt.Fprintf(&b, "\nAmazon search: https://www.amazon.com/s?k=%s\n", q)
	b.WriteString("\n\nIf you'd like direct article links, say 'search for: <topic>' or 'links for <topic>'.")
	return b.String()
}

// GenericLinks is the fallback shown when a link request carries no
// topic at all.
func GenericLinks() string {
	return "Here are some useful links:\n" +
		"\nhttps://www.google.com/\n" +
		"\nhttps://en.wikipedia.org/\n" +
		"\nhttps://scholar.google.com/\n" +
		"\nTell me the topic you want links for and I'll search specifically."
}
