package models

// SearchResult is one hit returned by the web-search collaborator
type SearchResult struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
}

// LearningSummary is a snapshot of what the engine has picked up so far
type LearningSummary struct {
	Name      string   `json:"name"`
	Topics    []string `json:"topics"`
	Emotions  int      `json:"emotions"`
	Model     string   `json:"model"`
	Connected bool     `json:"connected"`
}
