// Package rename works out what a note's title change means for the notes
// that reference it.
//
// Links are keyed by note id, so a rename never has to rewrite them. Two
// things still follow a rename: links imported from the older title-keyed
// format are migrated to ids while the old title still identifies the note,
// and markdown files that print the old title must be written again.
package rename

import (
	"fmt"
	"strings"

	"github.com/starford/notegraph/internal/document"
	"github.com/starford/notegraph/internal/models"
	"github.com/starford/notegraph/internal/resolve"
)

// Result lists the effects of a rename.
type Result struct {
	// Updated holds the new documents of notes whose legacy links were
	// migrated, by note id.
	Updated map[string]*document.Document
	// Stale lists, in collection order, the notes other than the renamed one
	// whose markdown shows the renamed note's title.
	Stale []string
}

// Propagate migrates legacy links that name oldTitle to renamedID and
// reports the notes referencing renamedID. notes must already hold the new
// title.
func Propagate(notes *models.Collection, trees resolve.Trees, renamedID, oldTitle string) (*Result, error) {
	res := &Result{Updated: make(map[string]*document.Document)}
	for _, n := range notes.All() {
		doc := trees.Tree(n)
		migrated, changed, err := migrate(doc, renamedID, oldTitle)
		if err != nil {
			return nil, fmt.Errorf("rename: note %s: %w", n.ID, err)
		}
		if changed {
			res.Updated[n.ID] = migrated
		}
		if n.ID != renamedID && references(migrated, renamedID) {
			res.Stale = append(res.Stale, n.ID)
		}
	}
	return res, nil
}

// migrate replaces every legacy reference to oldTitle in doc with an
// id-keyed one. doc is not modified.
func migrate(doc *document.Document, id, oldTitle string) (*document.Document, bool, error) {
	want := strings.ToLower(strings.TrimSpace(oldTitle))
	if want == "" {
		return doc, false, nil
	}
	out, changed := doc, false
	for _, r := range document.Refs(doc) {
		if r.TargetID != "" || strings.ToLower(strings.TrimSpace(r.LegacyTitle)) != want {
			continue
		}
		var with document.Node = document.NewWikiLink(id)
		if r.Embed {
			with = document.NewEmbeddedNote(id)
		}
		next, err := out.Replace(r.Key, with)
		if err != nil {
			return nil, false, err
		}
		out, changed = next, true
	}
	return out, changed, nil
}

func references(doc *document.Document, id string) bool {
	for _, r := range document.Refs(doc) {
		if r.TargetID == id {
			return true
		}
	}
	return false
}
