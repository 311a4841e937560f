package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/merpai/merp/internal/models"
	"github.com/merpai/merp/pkg/config"
)

//go:embed migrations.sql
var migrations embed.FS

// PostgresStore keeps the profile and sessions in Postgres behind the
// same Store interface as the file backend. Session locations are
// record ids rather than file paths.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStore(cfg config.DatabaseConfig, logger *zap.Logger) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	store := &PostgresStore{db: db, logger: logger}
	if err := store.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}
	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadProfile(profile *models.UserProfile) error {
	var name string
	var interests, dislikes, topics []string

	err := s.db.QueryRow(`
		SELECT name, interests, dislikes, topics_discussed
		FROM profile WHERE id = 1`).
		Scan(&name, pq.Array(&interests), pq.Array(&dislikes), pq.Array(&topics))
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error loading profile: %w", err)
	}

	profile.Name = name
	profile.Interests = interests
	profile.Dislikes = dislikes
	if profile.Interests == nil {
		profile.Interests = []string{}
	}
	if profile.Dislikes == nil {
		profile.Dislikes = []string{}
	}
	profile.TopicsDiscussed = make(map[string]struct{}, len(topics))
	for _, topic := range topics {
		profile.TopicsDiscussed[topic] = struct{}{}
	}
	return nil
}

func (s *PostgresStore) SaveProfile(profile *models.UserProfile) error {
	_, err := s.db.Exec(`
		INSERT INTO profile (id, name, interests, dislikes, topics_discussed)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			interests = EXCLUDED.interests,
			dislikes = EXCLUDED.dislikes,
			topics_discussed = EXCLUDED.topics_discussed`,
		profile.Name,
		pq.Array(profile.Interests),
		pq.Array(profile.Dislikes),
		pq.Array(profile.Topics()))
	if err != nil {
		return fmt.Errorf("error saving profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveSession(record *models.SessionRecord) (string, error) {
	messages, err := json.Marshal(record.Messages)
	if err != nil {
		return "", fmt.Errorf("error encoding session messages: %w", err)
	}

	id := uuid.New().String()
	_, err = s.db.Exec(`
		INSERT INTO sessions (id, created_at, user_name, title, message_count, messages)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`,
		id, record.Timestamp, record.UserName, record.Title, record.MessageCount, messages)
	if err != nil {
		return "", fmt.Errorf("error saving session: %w", err)
	}

	s.logger.Info("conversation saved", zap.String("id", id))
	return id, nil
}

func (s *PostgresStore) ListSessions() []models.SessionSummary {
	rows, err := s.db.Query(`
		SELECT id, created_at, user_name, COALESCE(title, ''), message_count
		FROM sessions
		ORDER BY created_at DESC`)
	if err != nil {
		s.logger.Warn("error listing sessions", zap.Error(err))
		return []models.SessionSummary{}
	}
	defer rows.Close()

	summaries := make([]models.SessionSummary, 0)
	for rows.Next() {
		var summary models.SessionSummary
		if err := rows.Scan(&summary.Location, &summary.Timestamp, &summary.UserName,
			&summary.Title, &summary.MessageCount); err != nil {
			s.logger.Warn("error scanning session row", zap.Error(err))
			return []models.SessionSummary{}
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("error listing sessions", zap.Error(err))
		return []models.SessionSummary{}
	}
	return summaries
}

func (s *PostgresStore) LoadSession(location string) (*models.SessionRecord, error) {
	record := &models.SessionRecord{}
	var title sql.NullString
	var messages []byte

	err := s.db.QueryRow(`
		SELECT created_at, user_name, title, message_count, messages
		FROM sessions WHERE id = $1`, location).
		Scan(&record.Timestamp, &record.UserName, &title, &record.MessageCount, &messages)
	if err != nil {
		return nil, fmt.Errorf("error loading session: %w", err)
	}

	record.Title = title.String
	if err := json.Unmarshal(messages, &record.Messages); err != nil {
		return nil, fmt.Errorf("error decoding session messages: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) RenameSession(location, title string) error {
	result, err := s.db.Exec(`UPDATE sessions SET title = $1 WHERE id = $2`, title, location)
	if err != nil {
		return fmt.Errorf("error renaming session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session not found")
	}
	return nil
}

func (s *PostgresStore) DeleteSession(location string) error {
	result, err := s.db.Exec(`DELETE FROM sessions WHERE id = $1`, location)
	if err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session not found")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var _ Store = (*PostgresStore)(nil)
