package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type serializedDocument struct {
	Root json.RawMessage `json:"root"`
}

type serializedElement struct {
	Type        Type              `json:"type"`
	Version     int               `json:"version"`
	Children    []json.RawMessage `json:"children"`
	Tag         string            `json:"tag,omitempty"`
	ListType    ListType          `json:"listType,omitempty"`
	Start       int               `json:"start,omitempty"`
	Checked     *bool             `json:"checked,omitempty"`
	Language    string            `json:"language,omitempty"`
	HeaderState int               `json:"headerState,omitempty"`
	Align       []Alignment       `json:"colAlign,omitempty"`
	URL         string            `json:"url,omitempty"`
	Title       string            `json:"title,omitempty"`
	Rel         string            `json:"rel,omitempty"`
	Target      string            `json:"target,omitempty"`
	Indent      int               `json:"indent,omitempty"`
}

type serializedText struct {
	Type    Type   `json:"type"`
	Version int    `json:"version"`
	Text    string `json:"text"`
	Format  Format `json:"format,omitempty"`
}

type serializedLink struct {
	Type        Type   `json:"type"`
	Version     int    `json:"version"`
	TargetID    string `json:"targetId,omitempty"`
	TargetTitle string `json:"targetTitle,omitempty"`
}

type serializedImage struct {
	Type    Type      `json:"type"`
	Version int       `json:"version"`
	Src     string    `json:"src"`
	AltText string    `json:"altText"`
	Title   string    `json:"title,omitempty"`
	Width   Dimension `json:"width"`
	Height  Dimension `json:"height"`
}

type serializedVideo struct {
	Type     Type      `json:"type"`
	Version  int       `json:"version"`
	Src      string    `json:"src"`
	AltText  string    `json:"altText"`
	Width    Dimension `json:"width"`
	Height   Dimension `json:"height"`
	Controls bool      `json:"controls"`
}

type serializedAudio struct {
	Type     Type   `json:"type"`
	Version  int    `json:"version"`
	Src      string `json:"src"`
	AltText  string `json:"altText"`
	Controls bool   `json:"controls"`
	Loop     bool   `json:"loop"`
}

type serializedMediaReference struct {
	Type    Type   `json:"type"`
	Version int    `json:"version"`
	ID      string `json:"id"`
}

type serializedMath struct {
	Type     Type       `json:"type"`
	Version  int        `json:"version"`
	Equation string     `json:"equation"`
	Format   MathFormat `json:"format"`
}

type serializedHTML struct {
	Type    Type   `json:"type"`
	Version int    `json:"version"`
	HTML    string `json:"html"`
}

type serializedBare struct {
	Type    Type `json:"type"`
	Version int  `json:"version"`
}

// MarshalJSON writes the tree as {"root": {...}}.
func (d *Document) MarshalJSON() ([]byte, error) {
	root, err := ExportNode(d.Root)
	if err != nil {
		return nil, err
	}
	return json.Marshal(serializedDocument{Root: root})
}

// UnmarshalJSON replaces d with the tree in data and assigns fresh keys.
func (d *Document) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// Encode serializes d. It only fails for trees holding invalid raw JSON.
func (d *Document) Encode() (string, error) {
	b, err := d.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Parse reads a serialized tree.
func Parse(data []byte) (*Document, error) {
	var sd serializedDocument
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(sd.Root) == 0 {
		return nil, fmt.Errorf("%w: missing root", ErrMalformed)
	}
	n, err := ImportNode(sd.Root)
	if err != nil {
		return nil, err
	}
	root, ok := n.(*Element)
	if !ok || root.Kind != TypeRoot {
		return nil, fmt.Errorf("%w: top-level node is %q, want root", ErrMalformed, n.Type())
	}
	d := &Document{Root: root}
	d.assignKeys(root)
	return d, nil
}

// ExportNode serializes a single node and its descendants.
func ExportNode(n Node) (json.RawMessage, error) {
	var v any
	switch n := n.(type) {
	case *Element:
		children := make([]json.RawMessage, 0, len(n.Children))
		for _, c := range n.Children {
			raw, err := ExportNode(c)
			if err != nil {
				return nil, err
			}
			children = append(children, raw)
		}
		v = serializedElement{
			Type:        n.Kind,
			Version:     n.exportVersion(),
			Children:    children,
			Tag:         n.Tag,
			ListType:    n.ListType,
			Start:       n.Start,
			Checked:     n.Checked,
			Language:    n.Language,
			HeaderState: n.HeaderState,
			Align:       n.Align,
			URL:         n.URL,
			Title:       n.Title,
			Rel:         n.Rel,
			Target:      n.Target,
			Indent:      n.Indent,
		}
	case *Text:
		v = serializedText{Type: TypeText, Version: n.exportVersion(), Text: n.Text, Format: n.Format}
	case *LineBreak:
		v = serializedBare{Type: TypeLineBreak, Version: n.exportVersion()}
	case *WikiLink:
		v = serializedLink{Type: TypeWikiLink, Version: n.exportVersion(), TargetID: n.TargetID, TargetTitle: n.LegacyTitle}
	case *EmbeddedNote:
		v = serializedLink{Type: TypeEmbeddedNote, Version: n.exportVersion(), TargetID: n.TargetID, TargetTitle: n.LegacyTitle}
	case *Image:
		v = serializedImage{Type: TypeImage, Version: n.exportVersion(), Src: n.Src, AltText: n.Alt, Title: n.Title, Width: n.Width, Height: n.Height}
	case *Video:
		v = serializedVideo{Type: TypeVideo, Version: n.exportVersion(), Src: n.Src, AltText: n.Alt, Width: n.Width, Height: n.Height, Controls: n.Controls}
	case *Audio:
		v = serializedAudio{Type: TypeAudio, Version: n.exportVersion(), Src: n.Src, AltText: n.Alt, Controls: n.Controls, Loop: n.Loop}
	case *MediaReference:
		v = serializedMediaReference{Type: TypeMediaReference, Version: n.exportVersion(), ID: n.MediaID}
	case *Math:
		v = serializedMath{Type: TypeMath, Version: n.exportVersion(), Equation: n.Equation, Format: n.Format}
	case *HTML:
		v = serializedHTML{Type: TypeHTML, Version: n.exportVersion(), HTML: n.Raw}
	case *HorizontalRule:
		v = serializedBare{Type: TypeHorizontalRule, Version: n.exportVersion()}
	case *Unreadable:
		return n.Raw, nil
	default:
		return nil, fmt.Errorf("document: cannot export %T", n)
	}
	return json.Marshal(v)
}

// ImportNode reads a single serialized node. Unknown types become
// Unreadable placeholders. Nodes from a newer version are read by the
// fields this build knows and fall back to Unreadable when that fails.
func ImportNode(raw json.RawMessage) (Node, error) {
	return importNode(raw, true)
}

func importNode(raw json.RawMessage, blockParent bool) (Node, error) {
	var head struct {
		Type    *string `json:"type"`
		Version int     `json:"version"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if head.Type == nil {
		return nil, fmt.Errorf("%w: node without type", ErrMalformed)
	}
	t := Type(*head.Type)

	n, known, err := decodeKnown(t, raw)
	switch {
	case !known:
		return unreadable(raw, t, blockParent), nil
	case err != nil && head.Version > CurrentVersion:
		return unreadable(raw, t, blockParent), nil
	case err != nil:
		return nil, err
	}
	n.meta().version = head.Version
	return n, nil
}

func unreadable(raw json.RawMessage, t Type, block bool) *Unreadable {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	return &Unreadable{Raw: buf.Bytes(), OriginalType: string(t), Block: block}
}

func decodeKnown(t Type, raw json.RawMessage) (Node, bool, error) {
	malformed := func(err error) (Node, bool, error) {
		return nil, true, fmt.Errorf("%w: %s: %v", ErrMalformed, t, err)
	}
	if isContainerKind(t) {
		var s serializedElement
		if err := json.Unmarshal(raw, &s); err != nil {
			return malformed(err)
		}
		e := &Element{
			Kind:        t,
			Tag:         s.Tag,
			ListType:    s.ListType,
			Start:       s.Start,
			Checked:     s.Checked,
			Language:    s.Language,
			HeaderState: s.HeaderState,
			Align:       s.Align,
			URL:         s.URL,
			Title:       s.Title,
			Rel:         s.Rel,
			Target:      s.Target,
			Indent:      s.Indent,
		}
		acceptsBlocks := e.AcceptsBlocks() || t == TypeList || t == TypeTable || t == TypeTableRow
		for _, c := range s.Children {
			child, err := importNode(c, acceptsBlocks)
			if err != nil {
				return nil, true, err
			}
			e.Children = append(e.Children, child)
		}
		return e, true, nil
	}

	switch t {
	case TypeText:
		var s serializedText
		if err := json.Unmarshal(raw, &s); err != nil {
			return malformed(err)
		}
		return &Text{Text: s.Text, Format: s.Format}, true, nil
	case TypeLineBreak:
		return &LineBreak{}, true, nil
	case TypeWikiLink, TypeEmbeddedNote:
		var s serializedLink
		if err := json.Unmarshal(raw, &s); err != nil {
			return malformed(err)
		}
		if t == TypeWikiLink {
			return &WikiLink{TargetID: s.TargetID, LegacyTitle: s.TargetTitle}, true, nil
		}
		return &EmbeddedNote{TargetID: s.TargetID, LegacyTitle: s.TargetTitle}, true, nil
	case TypeImage:
		var s serializedImage
		if err := json.Unmarshal(raw, &s); err != nil {
			return malformed(err)
		}
		return &Image{Src: s.Src, Alt: s.AltText, Title: s.Title, Width: s.Width, Height: s.Height}, true, nil
	case TypeVideo:
		var s serializedVideo
		if err := json.Unmarshal(raw, &s); err != nil {
			return malformed(err)
		}
		return &Video{Src: s.Src, Alt: s.AltText, Width: s.Width, Height: s.Height, Controls: s.Controls}, true, nil
	case TypeAudio:
		var s serializedAudio
		if err := json.Unmarshal(raw, &s); err != nil {
			return malformed(err)
		}
		return &Audio{Src: s.Src, Alt: s.AltText, Controls: s.Controls, Loop: s.Loop}, true, nil
	case TypeMediaReference:
		var s serializedMediaReference
		if err := json.Unmarshal(raw, &s); err != nil {
			return malformed(err)
		}
		return &MediaReference{MediaID: s.ID}, true, nil
	case TypeMath:
		var s serializedMath
		if err := json.Unmarshal(raw, &s); err != nil {
			return malformed(err)
		}
		if s.Format != MathBlock {
			s.Format = MathInline
		}
		return &Math{Equation: s.Equation, Format: s.Format}, true, nil
	case TypeHTML:
		var s serializedHTML
		if err := json.Unmarshal(raw, &s); err != nil {
			return malformed(err)
		}
		return &HTML{Raw: s.HTML}, true, nil
	case TypeHorizontalRule:
		return &HorizontalRule{}, true, nil
	}
	return nil, false, nil
}
