// Package document models the host document an enhancement is written back
// into: offset-addressable text fields, rich regions made of structural
// blocks, and static text that cannot be edited.
//
// Anchors refer to a region by identity plus offsets and never own it. The
// region may be edited or removed while a request is in flight, so every
// anchor must pass Probe before it is used.
package document

import (
	"errors"
	"maps"
)

type RegionKind int

const (
	// TextField is a plain value addressed by byte offsets (input, textarea).
	TextField RegionKind = iota + 1
	// Rich is a sequence of structural blocks (contenteditable).
	Rich
	// Static is page text that cannot be edited.
	Static
)

func (k RegionKind) String() string {
	switch k {
	case TextField:
		return "text_field"
	case Rich:
		return "rich"
	case Static:
		return "static"
	default:
		return "unknown"
	}
}

type BlockKind string

const (
	Paragraph BlockKind = "paragraph"
	Heading   BlockKind = "heading"
	ListItem  BlockKind = "list_item"
	Quote     BlockKind = "quote"
	// Raw is source kept byte for byte, such as code, HTML, rules, tables
	// and nested lists. It cannot be selected for enhancement.
	Raw BlockKind = "raw"
)

// Block is one structural element of a rich region. A "\n" inside Text is a
// soft line break within the block.
type Block struct {
	ID    string
	Kind  BlockKind
	Attrs map[string]string
	Text  string
}

// Clone returns b with its own copy of Attrs.
func (b Block) Clone() Block {
	b.Attrs = maps.Clone(b.Attrs)
	return b
}

// Point is a byte offset inside one block.
type Point struct {
	BlockID string
	Offset  int
}

// Range spans from Start to End in document order.
type Range struct {
	Start Point
	End   Point
}

// MultiBlock reports whether the range crosses a block boundary.
func (r Range) MultiBlock() bool {
	return r.Start.BlockID != r.End.BlockID
}

// Anchor locates a captured span. Text fields use Start and End; rich
// regions use Range. The zero Anchor means there is nowhere to write back.
type Anchor struct {
	RegionID string
	Kind     RegionKind
	Start    int
	End      int
	Range    Range
}

func (a Anchor) IsZero() bool { return a.RegionID == "" }

// Region is a snapshot of one region's content.
type Region struct {
	ID     string
	Kind   RegionKind
	Value  string
	Blocks []Block
}

func (r Region) clone() Region {
	if r.Blocks != nil {
		blocks := make([]Block, len(r.Blocks))
		for i, b := range r.Blocks {
			blocks[i] = b.Clone()
		}
		r.Blocks = blocks
	}
	return r
}

// BlockIndex returns the position of the block with the given id.
func (r Region) BlockIndex(id string) int {
	for i, b := range r.Blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// Selection is the live selection as the host reports it.
type Selection struct {
	Text   string
	Anchor Anchor
}

// Caret is a collapsed cursor position after an edit.
type Caret struct {
	RegionID string
	Offset   int
	Point    Point
}

// Edit replaces a region's content. Value applies to text fields and Blocks
// to rich regions.
type Edit struct {
	Value  string
	Blocks []Block
	Caret  Caret
}

// Event is a change notification emitted for host-side listeners.
type Event struct {
	RegionID string
	Type     string
}

var (
	ErrNoRegion    = errors.New("document: region not found")
	ErrStaleAnchor = errors.New("document: anchor no longer valid")
	ErrNotEditable = errors.New("document: region is not editable")
	ErrBadRange    = errors.New("document: invalid selection range")
)
