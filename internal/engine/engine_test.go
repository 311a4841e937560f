package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/merpai/merp/internal/backend"
	"github.com/merpai/merp/internal/classifier"
	"github.com/merpai/merp/internal/models"
	"github.com/merpai/merp/internal/storage"
	"github.com/merpai/merp/pkg/config"
)

// fakeSearcher returns a fixed result set
type fakeSearcher struct {
	results []models.SearchResult
	err     error
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

// newOllamaServer fakes the backend: /api/tags lists one model,
// /api/generate echoes a canned completion.
func newOllamaServer(t *testing.T, completion string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{{"name": "mistral"}},
		})
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"response": completion})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

type testEnv struct {
	engine   *Engine
	store    *storage.FileStore
	searcher *fakeSearcher
}

func newTestEngine(t *testing.T, completion string, results []models.SearchResult) *testEnv {
	t.Helper()

	server := newOllamaServer(t, completion)
	logger := zap.NewNop()

	connector := backend.NewOllamaConnector(config.BackendConfig{
		URL:         server.URL,
		Model:       "mistral",
		Temperature: 0.5,
		TopP:        0.9,
		MaxTokens:   80,
	}, logger)

	store, err := storage.NewFileStore(t.TempDir(), logger)
	require.NoError(t, err)

	searcher := &fakeSearcher{results: results}
	eng := New(connector, classifier.NewHeuristicClassifier(), searcher, store, 8, logger)

	require.True(t, eng.CheckConnection())
	return &testEnv{engine: eng, store: store, searcher: searcher}
}

func TestProcessInputNotConnected(t *testing.T) {
	server := newOllamaServer(t, "hello")
	logger := zap.NewNop()

	connector := backend.NewOllamaConnector(config.BackendConfig{URL: server.URL, Model: "mistral"}, logger)
	store, err := storage.NewFileStore(t.TempDir(), logger)
	require.NoError(t, err)

	eng := New(connector, classifier.NewHeuristicClassifier(), nil, store, 8, logger)

	// no CheckConnection yet, so the engine treats the backend as down
	response := eng.ProcessInput("hello")
	assert.Equal(t, notConnectedReply, response)
	assert.Empty(t, eng.GetUserData().Preferences)
}

func TestProcessInputNameCapture(t *testing.T) {
	env := newTestEngine(t, "hello", nil)

	response := env.engine.ProcessInput("my name is Max")
	assert.Equal(t, "Nice to meet you, Max! I'm your AI companion. What would you like to talk about?", response)
	assert.Equal(t, "Max", env.engine.GetUserData().Name)

	// the greeting short-circuits everything: no backend call, no learning
	assert.Empty(t, env.engine.GetUserData().Preferences)

	// the captured name is persisted
	restored := models.NewUserProfile()
	require.NoError(t, env.store.LoadProfile(restored))
	assert.Equal(t, "Max", restored.Name)
}

func TestProcessInputNameCaptureOnlyWithoutName(t *testing.T) {
	env := newTestEngine(t, "sure thing", nil)
	env.engine.GetUserData().Name = "Max"

	// with a name already known, an introduction goes to the backend
	response := env.engine.ProcessInput("my name is Bob")
	assert.Equal(t, "sure thing", response)
	assert.Equal(t, "Max", env.engine.GetUserData().Name)
}

func TestProcessInputLinkRequest(t *testing.T) {
	env := newTestEngine(t, "unused", nil)
	env.engine.GetUserData().Name = "Max"

	response := env.engine.ProcessInput("send me links for golang please")
	assert.Contains(t, response, "https://www.google.com/search?q=")
	assert.Contains(t, response, "https://scholar.google.com/scholar?q=")

	// link requests never reach the backend or the learning step
	assert.Empty(t, env.engine.GetUserData().Preferences)
}

func TestProcessInputLinkRequestEmptyQuery(t *testing.T) {
	env := newTestEngine(t, "unused", nil)
	env.engine.GetUserData().Name = "Max"

	response := env.engine.ProcessInput("links for google please")
	assert.Contains(t, response, "https://www.google.com/\n")
	assert.Contains(t, response, "https://en.wikipedia.org/\n")
}

func TestProcessInputWebSearch(t *testing.T) {
	results := []models.SearchResult{
		{Title: "Espresso History", Link: "https://example.com/1", Description: "origins"},
		{Title: "Espresso Machines", Link: "https://example.com/2", Description: "hardware"},
		{Title: "Espresso Culture", Link: "https://example.com/3", Description: "culture"},
	}
	env := newTestEngine(t, "espresso analysis", results)
	env.engine.GetUserData().Name = "Max"

	response := env.engine.ProcessInput("search for the history of espresso")

	assert.Contains(t, response, "espresso")
	for _, r := range results {
		assert.Contains(t, response, r.Link)
	}
	assert.Contains(t, response, "Detailed Analysis:")
	assert.Contains(t, response, "espresso analysis")

	// the interaction is recorded by the learning step
	assert.Contains(t, env.engine.GetUserData().Preferences, "search for the history of espresso")
}

func TestProcessInputWebSearchEmptyFallsBack(t *testing.T) {
	env := newTestEngine(t, "plain answer", nil)
	env.engine.GetUserData().Name = "Max"

	response := env.engine.ProcessInput("what is the capital of France")
	assert.Equal(t, "plain answer", response)
	require.Len(t, env.searcher.queries, 1)
	assert.Equal(t, "what is the capital of France", env.searcher.queries[0])
}

func TestProcessInputPlainChat(t *testing.T) {
	env := newTestEngine(t, "nice weather indeed", nil)
	env.engine.GetUserData().Name = "Max"

	response := env.engine.ProcessInput("the weather sure seems pleasant")
	assert.Equal(t, "nice weather indeed", response)
	assert.Empty(t, env.searcher.queries)
}

func TestLearnRecordsEmotions(t *testing.T) {
	env := newTestEngine(t, "sorry to hear that", nil)
	env.engine.GetUserData().Name = "Max"

	env.engine.ProcessInput("feeling pretty sad and lonely")
	profile := env.engine.GetUserData()
	require.Len(t, profile.Emotions, 1)
	assert.Equal(t, models.EmotionNegative, profile.Emotions[0].Kind)

	env.engine.ProcessInput("that pizza made everything wonderful")
	require.Len(t, profile.Emotions, 2)
	assert.Equal(t, models.EmotionPositive, profile.Emotions[1].Kind)

	// negative wins when both appear
	env.engine.ProcessInput("happy but also sad")
	require.Len(t, profile.Emotions, 3)
	assert.Equal(t, models.EmotionNegative, profile.Emotions[2].Kind)
}

func TestLearnUpsertsPreferences(t *testing.T) {
	env := newTestEngine(t, "first reply", nil)
	env.engine.GetUserData().Name = "Max"

	env.engine.ProcessInput("the weather sure seems pleasant")
	pref := env.engine.GetUserData().Preferences["the weather sure seems pleasant"]
	assert.Equal(t, "first reply", pref.Response)

	env.engine.ProcessInput("the weather sure seems pleasant")
	assert.Len(t, env.engine.GetUserData().Preferences, 1)
}

func TestSaveCurrentConversation(t *testing.T) {
	env := newTestEngine(t, "hello", nil)

	_, saved := env.engine.SaveCurrentConversation()
	assert.False(t, saved, "an empty session cannot be saved")

	env.engine.AddToHistory(models.RoleUser, "hi")
	env.engine.AddToHistory(models.RoleAssistant, "hello")

	location, saved := env.engine.SaveCurrentConversation()
	require.True(t, saved)

	list := env.engine.GetConversationList()
	require.Len(t, list, 1)
	assert.Equal(t, location, list[0].Location)
	assert.Equal(t, "Anonymous", list[0].UserName)
	assert.Equal(t, 2, list[0].MessageCount)
}

func TestLoadConversationByFileReplacesHistory(t *testing.T) {
	env := newTestEngine(t, "hello", nil)

	env.engine.AddToHistory(models.RoleUser, "first session")
	location, saved := env.engine.SaveCurrentConversation()
	require.True(t, saved)

	env.engine.ClearHistory()
	env.engine.AddToHistory(models.RoleUser, "second session")

	require.True(t, env.engine.LoadConversationByFile(location))
	history := env.engine.History()
	require.Len(t, history, 1)
	assert.Equal(t, "first session", history[0].Message)
}

func TestLoadConversationByFileFailureKeepsHistory(t *testing.T) {
	env := newTestEngine(t, "hello", nil)
	env.engine.AddToHistory(models.RoleUser, "keep me")

	assert.False(t, env.engine.LoadConversationByFile("/nonexistent/session.json"))
	require.Len(t, env.engine.History(), 1)
	assert.Equal(t, "keep me", env.engine.History()[0].Message)
}

func TestNewConversationSavesThenClears(t *testing.T) {
	env := newTestEngine(t, "hello", nil)
	env.engine.AddToHistory(models.RoleUser, "hi")

	location, saved := env.engine.NewConversation(true)
	require.True(t, saved)
	assert.NotEmpty(t, location)
	assert.Empty(t, env.engine.History())
}

func TestRenameAndDeleteConversation(t *testing.T) {
	env := newTestEngine(t, "hello", nil)
	env.engine.AddToHistory(models.RoleUser, "hi")

	location, saved := env.engine.SaveCurrentConversation()
	require.True(t, saved)

	require.True(t, env.engine.RenameConversation(location, "espresso chat"))
	assert.Equal(t, "espresso chat", env.engine.GetConversationList()[0].Title)

	assert.False(t, env.engine.RenameConversation("/nonexistent.json", "x"))

	require.True(t, env.engine.DeleteConversation(location))
	assert.False(t, env.engine.DeleteConversation(location))
}

func TestUserDataRoundTrip(t *testing.T) {
	env := newTestEngine(t, "hello", nil)

	require.True(t, env.engine.UpdateProfile("Max", []string{"jazz"}, []string{"spiders"}))
	require.True(t, env.engine.SaveUserData())

	profile := env.engine.GetUserData()
	profile.Name = ""
	profile.Interests = nil

	require.True(t, env.engine.LoadUserData())
	assert.Equal(t, "Max", env.engine.GetUserData().Name)
	assert.Equal(t, []string{"jazz"}, env.engine.GetUserData().Interests)
}

func TestGetLearningSummary(t *testing.T) {
	env := newTestEngine(t, "hello", nil)
	env.engine.GetUserData().Name = "Max"

	summary := env.engine.GetLearningSummary()
	assert.Equal(t, "Max", summary.Name)
	assert.Equal(t, "mistral", summary.Model)
	assert.True(t, summary.Connected)
	assert.Zero(t, summary.Emotions)
}

func TestGetAvailableModels(t *testing.T) {
	env := newTestEngine(t, "hello", nil)
	assert.Equal(t, []string{"mistral"}, env.engine.GetAvailableModels())

	env.engine.SwitchModel("llama2")
	assert.Equal(t, "llama2", env.engine.GetLearningSummary().Model)
}

func TestSaveConversationExport(t *testing.T) {
	env := newTestEngine(t, "hello", nil)
	env.engine.GetUserData().Name = "Max"
	env.engine.AddToHistory(models.RoleUser, "hi")
	env.engine.AddToHistory(models.RoleAssistant, "hello")

	path := t.TempDir() + "/exports/chat.json"
	require.NoError(t, env.engine.SaveConversation(path))
	assert.True(t, env.engine.LoadConversation(path))
	assert.False(t, env.engine.LoadConversation(path+".missing"))
}
