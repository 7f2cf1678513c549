package notefile

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/notegraph/internal/storage"
)

// Match selects the vault entries holding notes. It fits storage.Match:
// hidden entries and the attachment directory are skipped, and of the
// remaining files only those ending in Ext are notes.
func Match(rel string, dir bool) bool {
	rel = path.Clean(filepath.ToSlash(rel))
	if rel == storage.AttachmentDir || strings.HasPrefix(rel, storage.AttachmentDir+"/") {
		return false
	}
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return false
		}
	}
	return dir || strings.HasSuffix(rel, Ext)
}

var _ storage.Match = Match
