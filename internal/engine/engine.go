// Package engine orchestrates a chat session: it routes each input
// through the intent classifier, builds prompts, calls the generation
// backend, and keeps the profile and history in sync with storage.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/merpai/merp/internal/backend"
	"github.com/merpai/merp/internal/classifier"
	"github.com/merpai/merp/internal/models"
	"github.com/merpai/merp/internal/prompt"
	"github.com/merpai/merp/internal/search"
	"github.com/merpai/merp/internal/storage"
)

const (
	notConnectedReply = "Ollama not connected. Please install Ollama and run: ollama serve"
	greetingTemplate  = "Nice to meet you, %s! I'm your AI companion. What would you like to talk about?"
	anonymousName     = "Anonymous"
)

// Leading phrases stripped from a link request before building links
var linkPrefixes = []string{
	"send me a", "send me", "give me", "show me", "i want",
	"i need", "links for", "link for", "links to", "link to",
}

var negativeWords = []string{"sad", "angry", "frustrated", "depressed", "lonely", "hurt", "heartbreak", "bad"}
var positiveWords = []string{"happy", "great", "awesome", "love", "excellent", "wonderful"}

type Engine struct {
	connector  backend.Connector
	classifier classifier.Classifier
	searcher   search.Searcher
	store      storage.Store
	logger     *zap.Logger
	maxResults int

	mu      sync.Mutex
	profile *models.UserProfile
	history []models.HistoryEntry
}

func New(connector backend.Connector, clf classifier.Classifier, searcher search.Searcher,
	store storage.Store, maxResults int, logger *zap.Logger) *Engine {
	if searcher == nil {
		searcher = search.Noop{}
	}
	if maxResults <= 0 {
		maxResults = 8
	}
	return &Engine{
		connector:  connector,
		classifier: clf,
		searcher:   searcher,
		store:      store,
		logger:     logger,
		maxResults: maxResults,
		profile:    models.NewUserProfile(),
	}
}

// ProcessInput routes one user message and returns the response text.
// Routing is strict-order, first match wins: connectivity, name
// capture, link request, web search, plain generation. The caller is
// responsible for appending both the input and the returned response to
// history.
func (e *Engine) ProcessInput(input string) string {
	if !e.connector.Connected() {
		return notConnectedReply
	}

	if e.profile.Name == "" {
		if name, ok := e.classifier.ExtractName(input); ok {
			e.mu.Lock()
			e.profile.Name = name
			e.mu.Unlock()
			if err := e.store.SaveProfile(e.profile); err != nil {
				e.logger.Warn("failed to persist profile", zap.Error(err))
			}
			return fmt.Sprintf(greetingTemplate, name)
		}
	}

	if e.classifier.IsLinkRequest(input) {
		return e.linkResponse(input)
	}

	if shouldSearch, query := e.classifier.ShouldSearchWeb(input); shouldSearch && query != "" {
		return e.searchResponse(input, query)
	}

	return e.chatResponse(input)
}

// linkResponse builds resource links for the topic left after stripping
// the request phrasing, or a generic list when nothing remains.
func (e *Engine) linkResponse(input string) string {
	query := input
	for _, prefix := range linkPrefixes {
		if strings.HasPrefix(strings.ToLower(query), prefix) {
			query = strings.TrimSpace(query[len(prefix):])
			break
		}
	}
	query = strings.ReplaceAll(query, "google", "")
	query = strings.ReplaceAll(query, "please", "")
	query = strings.TrimSpace(query)

	if query == "" {
		return search.GenericLinks()
	}
	return search.ResourceLinks(query)
}

// searchResponse runs the search augmentation flow: format the hits,
// ask the backend for an analysis of them, and return both. When the
// search comes back empty the plain generation path handles the input.
func (e *Engine) searchResponse(input, query string) string {
	results, err := e.searcher.Search(context.Background(), query, e.maxResults)
	if err != nil {
		e.logger.Warn("web search failed", zap.String("query", query), zap.Error(err))
		results = nil
	}

	if len(results) == 0 {
		return e.chatResponse(input)
	}

	formatted := search.FormatResults(results, query)
	ctx := prompt.BuildContext(e.History(), e.profile)
	analysisInput := fmt.Sprintf(
		"Based on these web search results for '%s', provide a comprehensive analysis and answer. "+
			"Include key findings, important links mentioned, and relevant information:\n\n%s",
		query, formatted)
	analysis := e.connector.Generate(prompt.CreatePrompt(analysisInput, ctx, e.profile))

	response := formatted + "\n\nDetailed Analysis:\n" + analysis
	e.learn(input, response)
	return response
}

func (e *Engine) chatResponse(input string) string {
	ctx := prompt.BuildContext(e.History(), e.profile)
	response := e.connector.Generate(prompt.CreatePrompt(input, ctx, e.profile))
	e.learn(input, response)
	return response
}

// learn records an emotion when the input mentions one (negative words
// win on overlap) and upserts the preference for this exact input text.
func (e *Engine) learn(input, response string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lower := strings.ToLower(input)
	now := time.Now()

	if containsAny(lower, negativeWords) {
		e.profile.Emotions = append(e.profile.Emotions, models.Emotion{Kind: models.EmotionNegative, Timestamp: now})
	} else if containsAny(lower, positiveWords) {
		e.profile.Emotions = append(e.profile.Emotions, models.Emotion{Kind: models.EmotionPositive, Timestamp: now})
	}

	e.profile.Preferences[input] = models.Preference{Response: response, Timestamp: now}
}

func containsAny(text string, words []string) bool {
	for _, word := range words {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}

// AddToHistory appends one turn to the active session
func (e *Engine) AddToHistory(role, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, models.HistoryEntry{
		Role:      role,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// History returns a copy of the active session's turns
func (e *Engine) History() []models.HistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.HistoryEntry(nil), e.history...)
}

// ClearHistory drops the active session without saving it
func (e *Engine) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = nil
}

// NewConversation ends the active session, optionally saving it first.
// It returns the saved location when a save happened.
func (e *Engine) NewConversation(save bool) (string, bool) {
	location := ""
	saved := false
	if save {
		location, saved = e.SaveCurrentConversation()
	}
	e.ClearHistory()
	return location, saved
}

// GetUserData returns the live profile
func (e *Engine) GetUserData() *models.UserProfile {
	return e.profile
}

// UpdateProfile applies an external profile edit and persists it
func (e *Engine) UpdateProfile(name string, interests, dislikes []string) bool {
	e.mu.Lock()
	e.profile.Name = name
	if interests != nil {
		e.profile.Interests = interests
	}
	if dislikes != nil {
		e.profile.Dislikes = dislikes
	}
	e.mu.Unlock()

	if err := e.store.SaveProfile(e.profile); err != nil {
		e.logger.Warn("failed to persist profile", zap.Error(err))
		return false
	}
	return true
}

func (e *Engine) GetAvailableModels() []string {
	return e.connector.ListModels()
}

func (e *Engine) SwitchModel(name string) {
	e.connector.SwitchModel(name)
}

// SaveCurrentConversation writes the active session to storage and
// returns its location. An empty session cannot be saved.
func (e *Engine) SaveCurrentConversation() (string, bool) {
	history := e.History()
	if len(history) == 0 {
		return "", false
	}

	userName := e.profile.Name
	if userName == "" {
		userName = anonymousName
	}

	record := &models.SessionRecord{
		Timestamp:    time.Now(),
		UserName:     userName,
		MessageCount: len(history),
		Messages:     history,
	}

	location, err := e.store.SaveSession(record)
	if err != nil {
		e.logger.Warn("failed to save conversation", zap.Error(err))
		return "", false
	}
	return location, true
}

func (e *Engine) GetConversationList() []models.SessionSummary {
	return e.store.ListSessions()
}

// LoadConversationByFile replaces the active history with the saved
// session's messages. On failure the current history is left untouched.
func (e *Engine) LoadConversationByFile(location string) bool {
	record, err := e.store.LoadSession(location)
	if err != nil {
		e.logger.Warn("failed to load conversation",
			zap.String("location", location), zap.Error(err))
		return false
	}

	e.mu.Lock()
	e.history = append([]models.HistoryEntry(nil), record.Messages...)
	e.mu.Unlock()
	return true
}

func (e *Engine) RenameConversation(location, title string) bool {
	if err := e.store.RenameSession(location, title); err != nil {
		e.logger.Warn("failed to rename conversation",
			zap.String("location", location), zap.Error(err))
		return false
	}
	return true
}

func (e *Engine) DeleteConversation(location string) bool {
	if err := e.store.DeleteSession(location); err != nil {
		e.logger.Warn("failed to delete conversation",
			zap.String("location", location), zap.Error(err))
		return false
	}
	return true
}

// SaveUserData persists the durable profile fields
func (e *Engine) SaveUserData() bool {
	if err := e.store.SaveProfile(e.profile); err != nil {
		e.logger.Warn("failed to save user data", zap.Error(err))
		return false
	}
	return true
}

// LoadUserData restores the durable profile fields. A missing record
// leaves the profile at defaults and still counts as success.
func (e *Engine) LoadUserData() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.LoadProfile(e.profile); err != nil {
		e.logger.Warn("failed to load user data", zap.Error(err))
		return false
	}
	return true
}

// GetLearningSummary reports what the engine has picked up so far
func (e *Engine) GetLearningSummary() models.LearningSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.LearningSummary{
		Name:      e.profile.Name,
		Topics:    e.profile.Topics(),
		Emotions:  len(e.profile.Emotions),
		Model:     e.connector.Model(),
		Connected: e.connector.Connected(),
	}
}

func (e *Engine) RegisterStatusCallback(cb backend.Callback) {
	e.connector.RegisterStatusCallback(cb)
}

func (e *Engine) RegisterModelCallback(cb backend.Callback) {
	e.connector.RegisterModelCallback(cb)
}

func (e *Engine) CheckConnection() bool {
	return e.connector.CheckConnection()
}

func (e *Engine) StartHealthMonitor(intervalSeconds int) error {
	return e.connector.StartHealthMonitor(intervalSeconds)
}

func (e *Engine) StopHealthMonitor() {
	e.connector.StopHealthMonitor()
}
