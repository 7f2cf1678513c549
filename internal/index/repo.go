package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/notegraph/internal/apperr"
	"github.com/starford/notegraph/internal/models"
)

// NoteRow is a stored note plus the vault file it is mirrored to.
type NoteRow struct {
	models.Note
	Path         string
	FileChecksum string
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

const noteColumns = `id, path, title, content, color, tags, tasks, flags, position,
	checksum, file_checksum, created_at, updated_at`

// UpsertNote inserts or replaces a note, its FTS entry and its outgoing
// links within a transaction. body is the plain text used for search.
func (db *DB) UpsertNote(n NoteRow, body string, links []models.Link) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tags, err := marshalColumn(nonNil(n.Tags))
	if err != nil {
		return err
	}
	tasks, err := marshalColumn(nonNil(n.Tasks))
	if err != nil {
		return err
	}
	flags, err := marshalColumn(n.Flags)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO notes (id, path, title, content, body, color, tags, tasks, flags, position,
			checksum, file_checksum, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path          = excluded.path,
			title         = excluded.title,
			content       = excluded.content,
			body          = excluded.body,
			color         = excluded.color,
			tags          = excluded.tags,
			tasks         = excluded.tasks,
			flags         = excluded.flags,
			position      = excluded.position,
			checksum      = excluded.checksum,
			file_checksum = excluded.file_checksum,
			created_at    = excluded.created_at,
			updated_at    = excluded.updated_at
	`, n.ID, n.Path, n.Title, n.Content, body, n.Color, tags, tasks, flags, n.Position,
		n.Checksum, n.FileChecksum, formatTime(n.CreatedAt), formatTime(n.UpdatedAt))
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	// FTS upsert (no-op when FTS5 is not compiled in).
	if err := ftsUpsert(tx, n.ID, n.Title, body, n.Tags); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, n.ID); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, type) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			if _, err := stmt.Exec(n.ID, l.Target, l.Type); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note, its FTS entry and its outgoing links. Links
// pointing at the note are kept; they are dangling from now on.
func (db *DB) DeleteNote(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	ftsDelete(tx, id)
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, id)

	return tx.Commit()
}

// GetNote returns the note with id or apperr.ErrNotFound.
func (db *DB) GetNote(id string) (*NoteRow, error) {
	row := db.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	return scanNote(row)
}

// GetByPath returns the note mirrored to the vault file at path.
func (db *DB) GetByPath(path string) (*NoteRow, error) {
	row := db.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE path = ? LIMIT 1`, path)
	return scanNote(row)
}

// FileChecksum returns the checksum of the vault file last written or read
// for path, or "" when no note is stored under it.
func (db *DB) FileChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT file_checksum FROM notes WHERE path = ? LIMIT 1`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: file checksum: %w", err)
	}
	return cs, nil
}

// AllFileChecksums returns the file checksum of every note by vault path.
func (db *DB) AllFileChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, file_checksum FROM notes WHERE path != ''`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

var listOrder = map[string]string{
	"":           "updated_at DESC, id",
	"updated_at": "updated_at DESC, id",
	"created_at": "created_at, id",
	"title":      "title COLLATE NOCASE, id",
	"position":   "position, created_at, id",
}

// ListNotes returns a page of notes and the total number of notes matching
// tag. limit <= 0 means 50. sort is one of updated_at, created_at, title or
// position.
func (db *DB) ListNotes(limit, offset int, tag, sort string) ([]NoteRow, int, error) {
	order, ok := listOrder[sort]
	if !ok {
		return nil, 0, fmt.Errorf("index: unknown sort %q: %w", sort, apperr.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where, args := "", []any{}
	if tag != "" {
		where = ` WHERE EXISTS (SELECT 1 FROM json_each(notes.tags) WHERE json_each.value = ?)`
		args = append(args, tag)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notes: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+noteColumns+` FROM notes`+where+
		` ORDER BY `+order+` LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *n)
	}
	return out, total, rows.Err()
}

// AllNotes returns every note ordered by position, then creation time.
// This is the collection order used by graph builds.
func (db *DB) AllNotes() ([]*models.Note, error) {
	rows, err := db.conn.Query(`SELECT ` + noteColumns + ` FROM notes ORDER BY ` + listOrder["position"])
	if err != nil {
		return nil, fmt.Errorf("index: all notes: %w", err)
	}
	defer rows.Close()

	var out []*models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, &n.Note)
	}
	return out, rows.Err()
}

// Backlinks returns the ids of notes that link to or embed target.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT source FROM links WHERE target = ? ORDER BY source`, target)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (*NoteRow, error) {
	var (
		n                    NoteRow
		tags, tasks, flags   string
		createdAt, updatedAt string
	)
	err := s.Scan(&n.ID, &n.Path, &n.Title, &n.Content, &n.Color, &tags, &tasks, &flags,
		&n.Position, &n.Checksum, &n.FileChecksum, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: scan note: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
		return nil, fmt.Errorf("index: note %s tags: %w", n.ID, err)
	}
	if err := json.Unmarshal([]byte(tasks), &n.Tasks); err != nil {
		return nil, fmt.Errorf("index: note %s tasks: %w", n.ID, err)
	}
	if err := json.Unmarshal([]byte(flags), &n.Flags); err != nil {
		return nil, fmt.Errorf("index: note %s flags: %w", n.ID, err)
	}
	n.CreatedAt = parseTime(createdAt)
	n.UpdatedAt = parseTime(updatedAt)
	return &n, nil
}

func marshalColumn(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("index: encode column: %w", err)
	}
	return string(b), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
