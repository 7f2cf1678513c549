package document

import (
	"encoding/json"
	"strconv"
)

// WikiLink is an inline reference to another note by id. Trees written
// before links were keyed by id carry LegacyTitle instead.
type WikiLink struct {
	nodeMeta
	TargetID    string
	LegacyTitle string
}

func NewWikiLink(targetID string) *WikiLink { return &WikiLink{TargetID: targetID} }

func (*WikiLink) Type() Type     { return TypeWikiLink }
func (*WikiLink) IsInline() bool { return true }

func (l *WikiLink) PlainText() string { return "[[" + l.Target() + "]]" }

// Target returns the id, or the legacy title when no id is set.
func (l *WikiLink) Target() string {
	if l.TargetID == "" {
		return l.LegacyTitle
	}
	return l.TargetID
}

// EmbeddedNote transcludes another note's content as a block.
type EmbeddedNote struct {
	nodeMeta
	TargetID    string
	LegacyTitle string
}

func NewEmbeddedNote(targetID string) *EmbeddedNote { return &EmbeddedNote{TargetID: targetID} }

func (*EmbeddedNote) Type() Type     { return TypeEmbeddedNote }
func (*EmbeddedNote) IsInline() bool { return false }

func (e *EmbeddedNote) PlainText() string { return "![[" + e.Target() + "]]" }

func (e *EmbeddedNote) Target() string {
	if e.TargetID == "" {
		return e.LegacyTitle
	}
	return e.TargetID
}

// Dimension is a media width or height in pixels. Zero means "inherit".
type Dimension int

const inherit = "inherit"

func (d Dimension) String() string {
	if d <= 0 {
		return inherit
	}
	return strconv.Itoa(int(d))
}

func (d Dimension) MarshalJSON() ([]byte, error) {
	if d <= 0 {
		return []byte(`"inherit"`), nil
	}
	return []byte(strconv.Itoa(int(d))), nil
}

func (d *Dimension) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*d = Dimension(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == inherit || s == "" {
		*d = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*d = Dimension(n)
	return nil
}

// Image is a picture with optional title and dimensions.
type Image struct {
	nodeMeta
	Src    string
	Alt    string
	Title  string
	Width  Dimension
	Height Dimension
}

func NewImage(src, alt string) *Image { return &Image{Src: src, Alt: alt} }

func (*Image) Type() Type          { return TypeImage }
func (*Image) IsInline() bool      { return false }
func (i *Image) PlainText() string { return i.Alt }

type Video struct {
	nodeMeta
	Src      string
	Alt      string
	Width    Dimension
	Height   Dimension
	Controls bool
}

func NewVideo(src, alt string) *Video { return &Video{Src: src, Alt: alt, Controls: true} }

func (*Video) Type() Type          { return TypeVideo }
func (*Video) IsInline() bool      { return false }
func (v *Video) PlainText() string { return v.Alt }

type Audio struct {
	nodeMeta
	Src      string
	Alt      string
	Controls bool
	Loop     bool
}

func NewAudio(src, alt string) *Audio { return &Audio{Src: src, Alt: alt, Controls: true} }

func (*Audio) Type() Type          { return TypeAudio }
func (*Audio) IsInline() bool      { return false }
func (a *Audio) PlainText() string { return a.Alt }

// MediaReference points at an uploaded media object by id.
type MediaReference struct {
	nodeMeta
	MediaID string
}

func NewMediaReference(id string) *MediaReference { return &MediaReference{MediaID: id} }

func (*MediaReference) Type() Type        { return TypeMediaReference }
func (*MediaReference) IsInline() bool    { return false }
func (*MediaReference) PlainText() string { return "" }

// MathFormat selects inline or display math.
type MathFormat string

const (
	MathInline MathFormat = "inline"
	MathBlock  MathFormat = "block"
)

type Math struct {
	nodeMeta
	Equation string
	Format   MathFormat
}

func NewInlineMath(eq string) *Math { return &Math{Equation: eq, Format: MathInline} }
func NewBlockMath(eq string) *Math  { return &Math{Equation: eq, Format: MathBlock} }

func (*Math) Type() Type          { return TypeMath }
func (m *Math) IsInline() bool    { return m.Format != MathBlock }
func (m *Math) PlainText() string { return m.Equation }

// HTML holds raw markup that is passed through untouched.
type HTML struct {
	nodeMeta
	Raw string
}

func NewHTML(raw string) *HTML { return &HTML{Raw: raw} }

func (*HTML) Type() Type        { return TypeHTML }
func (*HTML) IsInline() bool    { return true }
func (*HTML) PlainText() string { return "" }

type HorizontalRule struct{ nodeMeta }

func NewHorizontalRule() *HorizontalRule { return &HorizontalRule{} }

func (*HorizontalRule) Type() Type        { return TypeHorizontalRule }
func (*HorizontalRule) IsInline() bool    { return false }
func (*HorizontalRule) PlainText() string { return "" }

// Unreadable stands in for a serialized node this build cannot interpret.
// The original JSON is kept and exported unchanged.
type Unreadable struct {
	nodeMeta
	Raw json.RawMessage
	// OriginalType is the discriminator found in Raw.
	OriginalType string
	// Block is set when the node was found directly under a block container.
	Block bool
}

func (*Unreadable) Type() Type        { return TypeUnreadable }
func (u *Unreadable) IsInline() bool  { return !u.Block }
func (*Unreadable) PlainText() string { return "" }
