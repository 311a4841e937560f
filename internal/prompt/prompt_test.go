package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merpai/merp/internal/models"
)

func entry(role, message string) models.HistoryEntry {
	return models.HistoryEntry{Role: role, Message: message, Timestamp: time.Now()}
}

func TestBuildContextOmitsEmptyProfileLines(t *testing.T) {
	profile := models.NewUserProfile()
	ctx := BuildContext(nil, profile)

	assert.Contains(t, ctx, "Conversation history:")
	assert.NotContains(t, ctx, "User's name:")
	assert.NotContains(t, ctx, "interests")
	assert.NotContains(t, ctx, "dislikes")
	assert.NotContains(t, ctx, "Topics discussed:")
}

func TestBuildContextIncludesProfileLines(t *testing.T) {
	profile := models.NewUserProfile()
	profile.Name = "Max"
	profile.Interests = []string{"jazz", "hiking"}
	profile.Dislikes = []string{"spiders"}
	profile.TopicsDiscussed["coffee"] = struct{}{}

	ctx := BuildContext(nil, profile)

	assert.Contains(t, ctx, "User's name: Max")
	assert.Contains(t, ctx, "User's interests: jazz, hiking")
	assert.Contains(t, ctx, "User dislikes: spiders")
	assert.Contains(t, ctx, "Topics discussed: coffee")
}

func TestBuildContextWindowsHistory(t *testing.T) {
	profile := models.NewUserProfile()
	var history []models.HistoryEntry
	for _, msg := range []string{"one", "two", "three", "four", "five", "six", "seven", "eight"} {
		history = append(history, entry(models.RoleUser, msg))
	}

	ctx := BuildContext(history, profile)

	assert.NotContains(t, ctx, "User: one\n")
	assert.NotContains(t, ctx, "User: two\n")
	assert.Contains(t, ctx, "User: three\n")
	assert.Contains(t, ctx, "User: eight\n")
}

func TestBuildContextRendersRoles(t *testing.T) {
	profile := models.NewUserProfile()
	history := []models.HistoryEntry{
		entry(models.RoleUser, "hi"),
		entry(models.RoleAssistant, "hello"),
	}

	ctx := BuildContext(history, profile)

	assert.Contains(t, ctx, "User: hi\n")
	assert.Contains(t, ctx, "Assistant: hello\n")
}

func TestCreatePromptRelevantProfile(t *testing.T) {
	profile := models.NewUserProfile()
	profile.Name = "Max"
	profile.Interests = []string{"jazz"}
	profile.Dislikes = []string{"spiders"}

	ctx := BuildContext(nil, profile)
	p := CreatePrompt("tell me something about jazz", ctx, profile)

	assert.Contains(t, p, "- Name: Max")
	assert.Contains(t, p, "- Interests: jazz")
	assert.Contains(t, p, "- Dislikes: spiders")
	assert.Contains(t, p, "Avoid discussing their dislikes.")
	assert.True(t, strings.HasSuffix(p, "User: tell me something about jazz\nAssistant:"))
}

func TestCreatePromptIrrelevantProfile(t *testing.T) {
	profile := models.NewUserProfile()
	profile.Name = "Max"
	profile.Interests = []string{"astronomy"}

	p := CreatePrompt("how do I boil an egg", "Conversation history:\n", profile)

	assert.Contains(t, p, "Only use the user's interests and dislikes")
	assert.NotContains(t, p, "- Interests:")
}

func TestCreatePromptDefaultsName(t *testing.T) {
	profile := models.NewUserProfile()
	p := CreatePrompt("hi", "Conversation history:\n", profile)

	require.Contains(t, p, "- Name: friend")
}
