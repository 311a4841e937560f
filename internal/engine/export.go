package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/merpai/merp/internal/models"
)

// exportRecord is the shape written by SaveConversation: the history
// plus a small profile snapshot.
type exportRecord struct {
	History  []models.HistoryEntry `json:"history"`
	UserData exportProfile         `json:"user_data"`
}

type exportProfile struct {
	Name              string   `json:"name"`
	TopicsDiscussed   []string `json:"topics_discussed"`
	EmotionsMentioned int      `json:"emotions_mentioned"`
}

// SaveConversation exports the active session to an explicit path,
// creating parent directories as needed.
func (e *Engine) SaveConversation(path string) error {
	e.mu.Lock()
	record := exportRecord{
		History: append([]models.HistoryEntry(nil), e.history...),
		UserData: exportProfile{
			Name:              e.profile.Name,
			TopicsDiscussed:   e.profile.Topics(),
			EmotionsMentioned: len(e.profile.Emotions),
		},
	}
	e.mu.Unlock()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write conversation: %w", err)
	}
	return nil
}

// LoadConversation reports whether path holds a readable export. The
// active history is not replaced; use LoadConversationByFile for saved
// session records.
func (e *Engine) LoadConversation(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		e.logger.Warn("failed to read conversation export",
			zap.String("path", path), zap.Error(err))
		return false
	}

	var record exportRecord
	if err := json.Unmarshal(data, &record); err != nil {
		e.logger.Warn("failed to parse conversation export",
			zap.String("path", path), zap.Error(err))
		return false
	}
	return true
}
