package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/merpai/merp/internal/models"
)

const ddgEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGo queries the HTML (non-JS) DuckDuckGo frontend and scrapes
// the result list.
type DuckDuckGo struct {
	client   *http.Client
	endpoint string
	logger   *zap.Logger
}

func NewDuckDuckGo(logger *zap.Logger) *DuckDuckGo {
	return &DuckDuckGo{
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: ddgEndpoint,
		logger:   logger,
	}
}

func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "merp/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	results := parseResults(doc, maxResults)
	d.logger.Debug("web search completed",
		zap.String("query", query),
		zap.Int("results", len(results)))
	return results, nil
}

// parseResults walks the document collecting result titles, links and
// snippets from the anchor classes the HTML frontend uses.
func parseResults(doc *html.Node, maxResults int) []models.SearchResult {
	var results []models.SearchResult
	var current *models.SearchResult

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if maxResults > 0 && len(results) >= maxResults {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			switch {
			case hasClass(n, "result__a"):
				if current != nil && current.Title != "" {
					results = append(results, *current)
				}
				current = &models.SearchResult{
					Title: nodeText(n),
					Link:  resolveLink(attr(n, "href")),
				}
			case hasClass(n, "result__snippet"):
				if current != nil {
					current.Description = nodeText(n)
					results = append(results, *current)
					current = nil
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if current != nil && current.Title != "" && (maxResults <= 0 || len(results) < maxResults) {
		results = append(results, *current)
	}
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// resolveLink unwraps DuckDuckGo's redirect URLs to the target address
func resolveLink(href string) string {
	if href == "" {
		return "#"
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
