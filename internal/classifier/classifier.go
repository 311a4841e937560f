package classifier

import (
	"regexp"
	"strings"
	"unicode"
)

// Classifier decides which response path an input should take
type Classifier interface {
	ExtractName(text string) (string, bool)
	IsLinkRequest(text string) bool
	ShouldSearchWeb(text string) (bool, string)
}

type HeuristicClassifier struct{}

func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{}
}

// Introduction patterns tried in priority order against the raw text
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:my name is|i'm|i am|call me|it's|it is|change my name to|name me)\s+([A-Za-z]+)`),
	regexp.MustCompile(`(?i)(?:you can call me|name is|i go by|i'm called)\s+([A-Za-z]+)`),
	regexp.MustCompile(`(?i)^(?:it's|its?|i'm|i'm called)\s+([A-Za-z]+)$`),
	regexp.MustCompile(`(?i)(?:change my name to|just call me)\s+([A-Za-z]+)`),
}

// Words that disqualify a short bare input from being read as a name.
// Matched as substrings, which is deliberately loose.
var nameStopWords = []string{
	"what", "why", "how", "do", "can", "should", "would", "could",
	"is", "are", "change", "name", "to",
}

var searchKeywords = []string{
	"search", "find", "look up", "what is", "who is", "link to",
	"url", "website", "latest", "current", "recent", "today",
	"news about", "information about", "tell me about", "get me",
	"show me", "help me find", "where is", "when is", "how to",
	"tutorial", "guide", "documentation", "research", "learn about",
	"facts about", "details about", "background on", "history of",
}

var searchPrefixes = []string{"search ", "find ", "look up ", "search for "}

// ExtractName pulls a name out of an introduction like "my name is X" or
// "call me X". Failing that, a short single bare word is treated as the
// name itself unless it looks like the start of a question.
func (c *HeuristicClassifier) ExtractName(text string) (string, bool) {
	for _, pattern := range namePatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return capitalize(m[1]), true
		}
	}

	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 15 && !strings.Contains(trimmed, " ") && isAlpha(trimmed) {
		lower := strings.ToLower(text)
		for _, word := range nameStopWords {
			if strings.Contains(lower, word) {
				return "", false
			}
		}
		return capitalize(trimmed), true
	}

	return "", false
}

// IsLinkRequest reports whether the user is asking for links
func (c *HeuristicClassifier) IsLinkRequest(text string) bool {
	return strings.Contains(strings.ToLower(text), "link")
}

// ShouldSearchWeb reports whether the input calls for a web search and,
// when it does, the query with any leading "search"-style phrase removed.
func (c *HeuristicClassifier) ShouldSearchWeb(text string) (bool, string) {
	lower := strings.ToLower(text)

	for _, keyword := range searchKeywords {
		if strings.Contains(lower, keyword) {
			query := text
			for _, prefix := range searchPrefixes {
				if strings.HasPrefix(strings.ToLower(query), prefix) {
					query = query[len(prefix):]
					break
				}
			}
			return true, strings.TrimSpace(query)
		}
	}

	return false, ""
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
