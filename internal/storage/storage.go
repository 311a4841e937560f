package storage

import (
	"github.com/merpai/merp/internal/models"
)

// Store persists the user profile and saved conversation sessions. A
// session's location is backend-specific: a file path for the file
// store, a record id for Postgres.
type Store interface {
	// LoadProfile fills the durable profile fields in place. A profile
	// that was never saved is not an error; the fields stay as given.
	LoadProfile(profile *models.UserProfile) error
	SaveProfile(profile *models.UserProfile) error

	// SaveSession writes a new record and returns its location
	SaveSession(record *models.SessionRecord) (string, error)
	// ListSessions returns summaries, most recent first. One unreadable
	// record aborts the whole listing and yields an empty slice.
	ListSessions() []models.SessionSummary
	LoadSession(location string) (*models.SessionRecord, error)
	// RenameSession rewrites only the record's title
	RenameSession(location, title string) error
	DeleteSession(location string) error

	Close() error
}
