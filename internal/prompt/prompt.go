// Package prompt assembles conversation context and the final prompt
// sent to the generation backend.
package prompt

import (
	"sort"
	"strings"

	"github.com/merpai/merp/internal/models"
)

const historyWindow = 6

// BuildContext renders the last few turns of history plus the known
// profile facts. Profile lines are omitted entirely when their source
// field is empty.
func BuildContext(history []models.HistoryEntry, profile *models.UserProfile) string {
	var b strings.Builder
	b.WriteString("Conversation history:\n")

	recent := history
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}

	for _, msg := range recent {
		role := "Assistant"
		if msg.Role == models.RoleUser {
			role = "User"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(msg.Message)
		b.WriteString("\n")
	}

	if profile.Name != "" {
		b.WriteString("\nUser's name: " + profile.Name + "\n")
	}
	if len(profile.Interests) > 0 {
		b.WriteString("User's interests: " + strings.Join(profile.Interests, ", ") + "\n")
	}
	if len(profile.Dislikes) > 0 {
		b.WriteString("User dislikes: " + strings.Join(profile.Dislikes, ", ") + "\n")
	}
	if len(profile.TopicsDiscussed) > 0 {
		topics := profile.Topics()
		sort.Strings(topics)
		b.WriteString("Topics discussed: " + strings.Join(topics, ", ") + "\n")
	}

	return b.String()
}

// CreatePrompt wraps the user input and context in the persona template.
// Interests and dislikes are spelled out only when one of them already
// appears in the current input or context.
func CreatePrompt(userInput, context string, profile *models.UserProfile) string {
	name := profile.Name
	if name == "" {
		name = "friend"
	}

	interests := "not specified"
	if len(profile.Interests) > 0 {
		interests = strings.Join(profile.Interests, ", ")
	}
	dislikes := "not specified"
	if len(profile.Dislikes) > 0 {
		dislikes = strings.Join(profile.Dislikes, ", ")
	}

	var profileLines string
	if profileRelevant(userInput, context, profile) {
		profileLines = "- Interests: " + interests + "\n" +
			"- Dislikes: " + dislikes + "\n\n" +
			"Use their interests in conversation when relevant. Avoid discussing their dislikes. Be personal and reference what you know about them.\n\n"
	} else {
		profileLines = "Only use the user's interests and dislikes if they are directly relevant to the user's current question or topic.\n\n"
	}

	return "You are a friendly, conversational AI.\n" +
		"- Name: " + name + "\n" +
		profileLines +
		"\n" + context + "\n\n" +
		"User: " + userInput + "\nAssistant:"
}

func profileRelevant(userInput, context string, profile *models.UserProfile) bool {
	combined := strings.ToLower(userInput + " " + context)
	for _, item := range profile.Interests {
		if item != "" && strings.Contains(combined, strings.ToLower(item)) {
			return true
		}
	}
	for _, item := range profile.Dislikes {
		if item != "" && strings.Contains(combined, strings.ToLower(item)) {
			return true
		}
	}
	for topic := range profile.TopicsDiscussed {
		if topic != "" && strings.Contains(combined, strings.ToLower(topic)) {
			return true
		}
	}
	return false
}
