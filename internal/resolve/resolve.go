// Package resolve decides how note references render: as an embed of the
// target's content, as a plain link when embedding would recurse, or as a
// missing reference.
package resolve

import (
	"fmt"

	"github.com/starford/notegraph/internal/models"
)

// Lookup finds notes by id.
type Lookup interface {
	Get(id string) (*models.Note, bool)
}

// TitleLookup is implemented by lookups that can also map a title to an id.
// It is used for legacy links that stored the target's title.
type TitleLookup interface {
	IDFor(title string) (string, bool)
}

// Outcome is the result of resolving one reference.
type Outcome int

const (
	Resolved Outcome = iota + 1
	Circular
	Dangling
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Circular:
		return "circular"
	case Dangling:
		return "dangling"
	}
	return "unknown"
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Outcome) UnmarshalText(b []byte) error {
	for _, c := range []Outcome{Resolved, Circular, Dangling} {
		if c.String() == string(b) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("resolve: unknown outcome %q", b)
}

// Resolution is the outcome for one target. Note is set when the target
// exists.
type Resolution struct {
	Outcome  Outcome
	TargetID string
	Note     *models.Note
}

// Resolve classifies targetID against the chain of notes currently being
// expanded. An unknown target is Dangling, even when its id is on the
// chain; a known target already on the chain is Circular.
func Resolve(targetID string, notes Lookup, chain Chain) Resolution {
	r := Resolution{TargetID: targetID}
	if targetID != "" {
		r.Note, _ = notes.Get(targetID)
	}
	switch {
	case r.Note == nil:
		r.Outcome = Dangling
	case chain.Contains(targetID):
		r.Outcome = Circular
	default:
		r.Outcome = Resolved
	}
	return r
}

// ResolveLegacy resolves a link that recorded a title instead of an id.
func ResolveLegacy(title string, notes Lookup, chain Chain) Resolution {
	if tl, ok := notes.(TitleLookup); ok {
		if id, ok := tl.IDFor(title); ok {
			return Resolve(id, notes, chain)
		}
	}
	return Resolution{Outcome: Dangling}
}
