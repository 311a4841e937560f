package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merpai/merp/internal/models"
)

const (
	appDirName      = "merp-ai"
	profileFileName = "user_data.json"
	sessionsDirName = "conversations"
)

// profileRecord is the on-disk profile shape. Its field names are a
// compatibility surface shared with earlier releases.
type profileRecord struct {
	Name            string   `json:"name"`
	Interests       []string `json:"interests"`
	Dislikes        []string `json:"dislikes"`
	TopicsDiscussed []string `json:"topics_discussed"`
}

// FileStore keeps the profile and sessions as JSON files in a data
// directory, one file per saved session.
type FileStore struct {
	dataDir string
	logger  *zap.Logger
}

func NewFileStore(dataDir string, logger *zap.Logger) (*FileStore, error) {
	if dataDir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve data directory: %w", err)
		}
		dataDir = filepath.Join(configDir, appDirName)
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &FileStore{dataDir: dataDir, logger: logger}
	s.migrateLegacyData()
	return s, nil
}

// DataDir returns the resolved data directory
func (s *FileStore) DataDir() string { return s.dataDir }

// migrateLegacyData moves the contents of a legacy ./data directory
// into the resolved data directory, merging subdirectories and
// overwriting on name collision. Failures are logged, not fatal.
func (s *FileStore) migrateLegacyData() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	legacy := filepath.Join(cwd, "data")

	legacyAbs, err1 := filepath.Abs(legacy)
	dataAbs, err2 := filepath.Abs(s.dataDir)
	if err1 != nil || err2 != nil || legacyAbs == dataAbs {
		return
	}
	if _, err := os.Stat(legacy); err != nil {
		return
	}

	entries, err := os.ReadDir(legacy)
	if err != nil {
		s.logger.Warn("failed to read legacy data directory", zap.Error(err))
		return
	}

	for _, entry := range entries {
		src := filepath.Join(legacy, entry.Name())
		dst := filepath.Join(s.dataDir, entry.Name())

		srcInfo, err := os.Stat(src)
		dstInfo, dstErr := os.Stat(dst)
		if err == nil && dstErr == nil && srcInfo.IsDir() && dstInfo.IsDir() {
			// merge directory contents one level down
			subEntries, err := os.ReadDir(src)
			if err != nil {
				s.logger.Warn("failed to migrate legacy directory",
					zap.String("path", src), zap.Error(err))
				continue
			}
			for _, sub := range subEntries {
				if err := moveEntry(filepath.Join(src, sub.Name()), filepath.Join(dst, sub.Name())); err != nil {
					s.logger.Warn("failed to migrate legacy file",
						zap.String("path", sub.Name()), zap.Error(err))
				}
			}
			_ = os.Remove(src)
			continue
		}

		if err := moveEntry(src, dst); err != nil {
			s.logger.Warn("failed to migrate legacy entry",
				zap.String("path", src), zap.Error(err))
		}
	}

	if err := os.Remove(legacy); err == nil {
		s.logger.Info("migrated legacy data directory",
			zap.String("from", legacy), zap.String("to", s.dataDir))
	}
}

func moveEntry(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		if err := os.RemoveAll(dst); err != nil {
			return err
		}
	}
	return os.Rename(src, dst)
}

func (s *FileStore) profilePath() string {
	return filepath.Join(s.dataDir, profileFileName)
}

func (s *FileStore) sessionsDir() string {
	return filepath.Join(s.dataDir, sessionsDirName)
}

func (s *FileStore) LoadProfile(profile *models.UserProfile) error {
	data, err := os.ReadFile(s.profilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read profile: %w", err)
	}

	var record profileRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("failed to parse profile: %w", err)
	}

	profile.Name = record.Name
	profile.Interests = record.Interests
	profile.Dislikes = record.Dislikes
	if profile.Interests == nil {
		profile.Interests = []string{}
	}
	if profile.Dislikes == nil {
		profile.Dislikes = []string{}
	}
	profile.TopicsDiscussed = make(map[string]struct{}, len(record.TopicsDiscussed))
	for _, topic := range record.TopicsDiscussed {
		profile.TopicsDiscussed[topic] = struct{}{}
	}
	return nil
}

func (s *FileStore) SaveProfile(profile *models.UserProfile) error {
	record := profileRecord{
		Name:            profile.Name,
		Interests:       profile.Interests,
		Dislikes:        profile.Dislikes,
		TopicsDiscussed: profile.Topics(),
	}
	sort.Strings(record.TopicsDiscussed)

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := os.WriteFile(s.profilePath(), data, 0o644); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

// SaveSession writes the record under a timestamp-derived name. A short
// uuid suffix keeps two saves within the same second from colliding
// while leaving the reverse-lexicographic listing order intact.
func (s *FileStore) SaveSession(record *models.SessionRecord) (string, error) {
	if err := os.MkdirAll(s.sessionsDir(), 0o755); err != nil {
		return "", fmt.Errorf("failed to create sessions directory: %w", err)
	}

	stamp := record.Timestamp.Format("20060102_150405")
	name := fmt.Sprintf("conversation_%s_%s.json", stamp, uuid.New().String()[:8])
	path := filepath.Join(s.sessionsDir(), name)

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write session: %w", err)
	}

	s.logger.Info("conversation saved", zap.String("path", path))
	return path, nil
}

func (s *FileStore) ListSessions() []models.SessionSummary {
	entries, err := os.ReadDir(s.sessionsDir())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read sessions directory", zap.Error(err))
		}
		return []models.SessionSummary{}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	summaries := make([]models.SessionSummary, 0, len(names))
	for _, name := range names {
		path := filepath.Join(s.sessionsDir(), name)
		record, err := s.LoadSession(path)
		if err != nil {
			// one unreadable file aborts the whole listing
			s.logger.Warn("corrupt session file aborts listing",
				zap.String("path", path), zap.Error(err))
			return []models.SessionSummary{}
		}
		summaries = append(summaries, models.SessionSummary{
			Location:     path,
			Timestamp:    record.Timestamp,
			UserName:     record.UserName,
			Title:        record.Title,
			MessageCount: record.MessageCount,
		})
	}
	return summaries
}

func (s *FileStore) LoadSession(location string) (*models.SessionRecord, error) {
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var record models.SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	return &record, nil
}

// RenameSession rewrites only the title field, leaving everything else
// in the file untouched.
func (s *FileStore) RenameSession(location, title string) error {
	data, err := os.ReadFile(location)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse session: %w", err)
	}
	raw["title"] = title

	out, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.WriteFile(location, out, 0o644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (s *FileStore) DeleteSession(location string) error {
	if err := os.Remove(location); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)
