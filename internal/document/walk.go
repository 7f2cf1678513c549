package document

// Walk visits n and its descendants depth-first in document order. When fn
// returns false the children of that node are skipped.
func Walk(n Node, fn func(n Node) bool) {
	if !fn(n) {
		return
	}
	if e, ok := n.(*Element); ok {
		for _, c := range e.Children {
			Walk(c, fn)
		}
	}
}

// Ref is one occurrence of a note reference in a tree.
type Ref struct {
	Key         Key
	TargetID    string
	LegacyTitle string
	Embed       bool
}

// Refs returns every wiki-link and embed in document order.
func Refs(d *Document) []Ref {
	var refs []Ref
	Walk(d.Root, func(n Node) bool {
		switch v := n.(type) {
		case *WikiLink:
			refs = append(refs, Ref{Key: v.Key(), TargetID: v.TargetID, LegacyTitle: v.LegacyTitle})
		case *EmbeddedNote:
			refs = append(refs, Ref{Key: v.Key(), TargetID: v.TargetID, LegacyTitle: v.LegacyTitle, Embed: true})
		}
		return true
	})
	return refs
}

// References returns the distinct target ids referenced by d, in order of
// first appearance. Legacy title-keyed links are not included.
func References(d *Document) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, r := range Refs(d) {
		if r.TargetID == "" {
			continue
		}
		if _, ok := seen[r.TargetID]; ok {
			continue
		}
		seen[r.TargetID] = struct{}{}
		ids = append(ids, r.TargetID)
	}
	return ids
}
