package engine

import (
	"regexp"
	"strings"

	"github.com/scramble-ai/scramble/internal/document"
)

var (
	blankLine = regexp.MustCompile(`\n[ \t]*\n`)
	lineBreak = regexp.MustCompile(`[ \t]*\n[ \t\n]*`)
)

// spliceText writes result over value[start:end] and returns the new value
// with the caret offset just after the inserted text.
func spliceText(value string, start, end int, result string) (string, int) {
	return value[:start] + result + value[end:], start + len(result)
}

// splitParagraphs splits text on blank lines, dropping empty segments.
func splitParagraphs(text string) []string {
	var out []string
	for _, seg := range blankLine.Split(text, -1) {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}

// singleRun folds line breaks and the whitespace around them into one space.
func singleRun(text string) string {
	return lineBreak.ReplaceAllString(text, " ")
}

// rebuildBlocks writes result over rng inside blocks.
//
// A range crossing block boundaries is replaced paragraph by paragraph: the
// first paragraph of result continues the first block, every further one
// becomes a new block with the first block's kind and attributes, blocks
// wholly inside the range are dropped and the last block keeps only the text
// after the range.
//
// A range inside one block keeps soft breaks from result only when the
// selected text had them too; otherwise result goes in as a single run.
func rebuildBlocks(blocks []document.Block, rng document.Range, selected, result string, newID func() string) ([]document.Block, document.Point, bool) {
	region := document.Region{Blocks: blocks}
	si := region.BlockIndex(rng.Start.BlockID)
	ei := region.BlockIndex(rng.End.BlockID)
	if si < 0 || ei < si {
		return nil, document.Point{}, false
	}

	first := blocks[si].Clone()
	prefix := first.Text[:rng.Start.Offset]
	suffix := blocks[ei].Text[rng.End.Offset:]

	out := make([]document.Block, 0, len(blocks)+2)
	out = append(out, blocks[:si]...)

	if !rng.MultiBlock() {
		insert := result
		if !strings.Contains(selected, "\n") || !strings.Contains(result, "\n") {
			insert = singleRun(result)
		}
		first.Text = prefix + insert + suffix
		out = append(out, first)
		out = append(out, blocks[si+1:]...)
		return out, document.Point{BlockID: first.ID, Offset: len(prefix) + len(insert)}, true
	}

	segments := splitParagraphs(result)
	first.Text = prefix + segments[0]
	out = append(out, first)
	caret := document.Point{BlockID: first.ID, Offset: len(first.Text)}
	for _, seg := range segments[1:] {
		b := first.Clone()
		b.ID = newID()
		b.Text = seg
		out = append(out, b)
		caret = document.Point{BlockID: b.ID, Offset: len(seg)}
	}
	if suffix != "" {
		last := blocks[ei].Clone()
		last.Text = suffix
		out = append(out, last)
	}
	out = append(out, blocks[ei+1:]...)
	return out, caret, true
}
