package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/google/uuid"
)

// AttachmentDir is the vault directory holding uploaded files.
const AttachmentDir = "attachments"

// ErrInvalidName is returned for attachment names that are empty, hidden or
// contain a path separator.
var ErrInvalidName = errors.New("invalid attachment name")

// Attachments stores binary files below AttachmentDir.
type Attachments struct {
	store Provider
}

// NewAttachments returns an attachment store writing through store.
func NewAttachments(store Provider) *Attachments {
	return &Attachments{store: store}
}

// Save writes data under a cleaned form of name and returns the stored name.
// The name gets a UUID prefix when unique is set or when the name is taken.
func (a *Attachments) Save(name string, data []byte, unique bool) (string, error) {
	stored := CleanAttachmentName(name)
	if unique || a.store.Exists(path.Join(AttachmentDir, stored)) {
		stored = uuid.NewString() + "-" + stored
	}
	if err := a.store.Write(path.Join(AttachmentDir, stored), data); err != nil {
		return "", fmt.Errorf("save attachment %s: %w", stored, err)
	}
	return stored, nil
}

// Read returns the attachment stored as name. A missing file yields an error
// wrapping fs.ErrNotExist.
func (a *Attachments) Read(name string) ([]byte, error) {
	if !ValidAttachmentName(name) {
		return nil, ErrInvalidName
	}
	rel := path.Join(AttachmentDir, name)
	if !a.store.Exists(rel) {
		return nil, fmt.Errorf("attachment %s: %w", name, fs.ErrNotExist)
	}
	return a.store.Read(rel)
}

// AttachmentURL is the API path serving the attachment stored as name.
func AttachmentURL(name string) string { return "/api/attachments/" + name }

// ValidAttachmentName reports whether name is a plain visible file name.
func ValidAttachmentName(name string) bool {
	return name != "" && !strings.HasPrefix(name, ".") && !strings.ContainsAny(name, `/\`)
}

// CleanAttachmentName reduces an uploaded file name to its base name made of
// letters, digits, '.', '_' and '-'. Other characters become '_'.
func CleanAttachmentName(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, base)
	base = strings.TrimLeft(base, ".")
	if base == "" {
		return "file"
	}
	return base
}
