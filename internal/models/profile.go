package models

import "time"

type EmotionKind string

const (
	EmotionPositive EmotionKind = "positive"
	EmotionNegative EmotionKind = "negative"
)

// Emotion records that the user mentioned a feeling during a turn
type Emotion struct {
	Kind      EmotionKind `json:"kind"`
	Timestamp time.Time   `json:"timestamp"`
}

// Preference is the last response given for an exact input text
type Preference struct {
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// UserProfile holds durable facts about the user. Name, interests,
// dislikes and topics survive across sessions; emotions and preferences
// are in-memory learning state.
type UserProfile struct {
	Name            string                `json:"name"`
	Interests       []string              `json:"interests"`
	Dislikes        []string              `json:"dislikes"`
	TopicsDiscussed map[string]struct{}   `json:"-"`
	Emotions        []Emotion             `json:"-"`
	Preferences     map[string]Preference `json:"-"`
}

func NewUserProfile() *UserProfile {
	return &UserProfile{
		Interests:       []string{},
		Dislikes:        []string{},
		TopicsDiscussed: make(map[string]struct{}),
		Preferences:     make(map[string]Preference),
	}
}

// Topics returns the discussed topics as a slice, order unspecified.
func (p *UserProfile) Topics() []string {
	topics := make([]string, 0, len(p.TopicsDiscussed))
	for t := range p.TopicsDiscussed {
		topics = append(topics, t)
	}
	return topics
}
