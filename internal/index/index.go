package index

import "github.com/starford/notegraph/internal/models"

// NoteIndex defines the note store operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type NoteIndex interface {
	UpsertNote(n NoteRow, body string, links []models.Link) error
	DeleteNote(id string) error
	GetNote(id string) (*NoteRow, error)
	GetByPath(path string) (*NoteRow, error)
	FileChecksum(path string) (string, error)
	AllFileChecksums() (map[string]string, error)
	ListNotes(limit, offset int, tag, sort string) ([]NoteRow, int, error)
	AllNotes() ([]*models.Note, error)
	Search(query string, limit int) ([]SearchResult, error)
	Backlinks(target string) ([]string, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
