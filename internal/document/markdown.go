package document

import (
	"bytes"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Block attributes written by FromMarkdown.
const (
	attrLevel  = "level"
	attrList   = "list"
	attrMarker = "marker"
	attrStart  = "start"
	// attrTight marks a block written on the line right after a Raw block,
	// or a Raw block written right after the previous block.
	attrTight = "tight"
	// attrLoose marks a list item separated from the previous item by a
	// blank line.
	attrLoose = "loose"
)

// FromMarkdown parses src into blocks. Headings, paragraphs, top-level list
// items and single-paragraph quotes become editable blocks whose soft line
// breaks are "\n". Everything between them, such as code, HTML, thematic
// breaks, link definitions and nested lists, is kept as Raw blocks holding
// the exact source. Block ids are "b1", "b2", ... in document order.
func FromMarkdown(src []byte) []Block {
	p := &mdParser{src: src}
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			sp, ok := p.span(node)
			if !ok {
				continue
			}
			if !p.atx(sp.start) {
				// setext underline
				sp.stop = nextLineEnd(src, sp.stop)
			}
			p.add(Heading, map[string]string{attrLevel: strconv.Itoa(node.Level)}, lines(node, src), sp)
		case *ast.Paragraph:
			if sp, ok := p.span(node); ok {
				p.add(Paragraph, nil, lines(node, src), sp)
			}
		case *ast.List:
			attrs := map[string]string{attrList: "bullet", attrMarker: string(node.Marker)}
			if node.IsOrdered() {
				attrs[attrList] = "ordered"
				attrs[attrStart] = strconv.Itoa(node.Start)
			}
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				lead := item.FirstChild()
				if lead == nil || (lead.Kind() != ast.KindParagraph && lead.Kind() != ast.KindTextBlock) {
					continue
				}
				sp, ok := p.span(lead)
				if !ok || !p.markerBefore(sp.start, lead) {
					continue
				}
				p.add(ListItem, maps.Clone(attrs), lines(lead, src), sp)
			}
		case *ast.Blockquote:
			body := node.FirstChild()
			if body == nil || body.NextSibling() != nil || body.Kind() != ast.KindParagraph {
				continue
			}
			if sp, ok := p.span(body); ok && p.markerBefore(sp.start, body) {
				p.add(Quote, nil, lines(body, src), sp)
			}
		}
	}
	p.gap(len(src))
	return p.blocks
}

type srcSpan struct{ start, stop int }

type mdParser struct {
	src    []byte
	pos    int
	blocks []Block
}

func (p *mdParser) push(kind BlockKind, attrs map[string]string, body string) {
	p.blocks = append(p.blocks, Block{
		ID:    "b" + strconv.Itoa(len(p.blocks)+1),
		Kind:  kind,
		Attrs: attrs,
		Text:  body,
	})
}

func (p *mdParser) add(kind BlockKind, attrs map[string]string, body string, sp srcSpan) {
	if sp.start < p.pos {
		return
	}
	blank := p.gap(sp.start)
	if n := len(p.blocks); n > 0 {
		prev := p.blocks[n-1]
		cur := Block{Kind: kind, Attrs: attrs}
		switch {
		case prev.Kind == Raw && !blank:
			attrs = withAttr(attrs, attrTight)
		case sameList(prev, cur) && blank:
			attrs = withAttr(attrs, attrLoose)
		}
	}
	p.push(kind, attrs, body)
	p.pos = sp.stop
}

// gap keeps the source between the last block and end as a Raw block and
// reports whether a blank line separates end from what precedes it.
func (p *mdParser) gap(end int) bool {
	g := p.src[p.pos:end]
	p.pos = end

	first := bytes.IndexFunc(g, func(r rune) bool { return !unicode.IsSpace(r) })
	if first < 0 {
		return bytes.IndexByte(g, '\n') >= 0
	}
	start := bytes.LastIndexByte(g[:first], '\n') + 1
	stop := len(bytes.TrimRightFunc(g, unicode.IsSpace))

	var attrs map[string]string
	if start == 0 && len(p.blocks) > 0 {
		attrs = withAttr(nil, attrTight)
	}
	p.push(Raw, attrs, string(g[start:stop]))
	return bytes.Count(g[stop:], []byte("\n")) > 1
}

// span covers every source line of a leaf block.
func (p *mdParser) span(n ast.Node) (srcSpan, bool) {
	segs := n.Lines()
	if segs.Len() == 0 {
		return srcSpan{}, false
	}
	return srcSpan{
		start: lineStart(p.src, segs.At(0).Start),
		stop:  lineEnd(p.src, segs.At(segs.Len()-1).Stop),
	}, true
}

// atx reports whether the line at start opens with "#" markers rather than
// being the text line of a setext heading.
func (p *mdParser) atx(start int) bool {
	line := bytes.TrimLeft(p.src[start:nextLineEnd(p.src, start)], " ")
	rest := bytes.TrimLeft(line, "#")
	n := len(line) - len(rest)
	return n >= 1 && n <= 6 && (len(rest) == 0 || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '\n' || rest[0] == '\r')
}

// markerBefore reports whether the container marker ("-", "1.", ">") sits on
// the first line of n, ahead of its text.
func (p *mdParser) markerBefore(lineStart int, n ast.Node) bool {
	return len(bytes.TrimSpace(p.src[lineStart:n.Lines().At(0).Start])) > 0
}

func withAttr(attrs map[string]string, key string) map[string]string {
	attrs = maps.Clone(attrs)
	if attrs == nil {
		attrs = map[string]string{}
	}
	attrs[key] = "true"
	return attrs
}

func lineStart(src []byte, i int) int {
	return bytes.LastIndexByte(src[:i], '\n') + 1
}

func lineEnd(src []byte, i int) int {
	if i > 0 && src[i-1] == '\n' {
		return i
	}
	return nextLineEnd(src, i)
}

func nextLineEnd(src []byte, i int) int {
	if i >= len(src) {
		return len(src)
	}
	j := bytes.IndexByte(src[i:], '\n')
	if j < 0 {
		return len(src)
	}
	return i + j + 1
}

// lines joins a leaf block's source lines with soft breaks.
func lines(n ast.Node, src []byte) string {
	segs := n.Lines()
	parts := make([]string, 0, segs.Len())
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		parts = append(parts, strings.TrimRight(string(seg.Value(src)), "\r\n"))
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// Markdown renders blocks back to Markdown. Consecutive items of the same
// list stay in one list, and Raw blocks are written exactly as parsed.
func Markdown(blocks []Block) string {
	var b strings.Builder
	ordinal := 0
	var list *Block
	for i, blk := range blocks {
		if i > 0 {
			b.WriteString(separator(blocks[i-1], blk))
		}

		switch blk.Kind {
		case Heading:
			level, err := strconv.Atoi(blk.Attrs[attrLevel])
			if err != nil || level < 1 || level > 6 {
				level = 1
			}
			b.WriteString(strings.Repeat("#", level) + " " + strings.ReplaceAll(blk.Text, "\n", " "))
		case ListItem:
			if list == nil || !sameList(*list, blk) {
				ordinal = listStart(blk) - 1
			}
			ordinal++
			marker := listMarker(blk, ordinal)
			b.WriteString(marker + indent(blk.Text, strings.Repeat(" ", len(marker))))
		case Quote:
			b.WriteString("> " + indent(blk.Text, "> "))
		default:
			b.WriteString(blk.Text)
		}

		switch {
		case blk.Kind == ListItem:
			list = &blocks[i]
		case blk.Kind == Raw && indented(blk.Text):
			// content nested under the current item
		default:
			list = nil
		}
	}
	if len(blocks) > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

func indented(s string) bool {
	return strings.HasPrefix(s, " ") || strings.HasPrefix(s, "\t")
}

func separator(prev, cur Block) string {
	switch {
	case prev.Kind == Raw || cur.Kind == Raw:
		if cur.Attrs[attrTight] == "true" {
			return "\n"
		}
	case sameList(prev, cur) && cur.Attrs[attrLoose] != "true":
		return "\n"
	}
	return "\n\n"
}

func listStart(blk Block) int {
	if n, err := strconv.Atoi(blk.Attrs[attrStart]); err == nil && n >= 0 {
		return n
	}
	return 1
}

func listMarker(blk Block, ordinal int) string {
	marker := blk.Attrs[attrMarker]
	if blk.Attrs[attrList] == "ordered" {
		if marker == "" {
			marker = "."
		}
		return fmt.Sprintf("%d%s ", ordinal, marker)
	}
	if marker == "" {
		marker = "-"
	}
	return marker + " "
}

func sameList(prev, cur Block) bool {
	return prev.Kind == ListItem && cur.Kind == ListItem &&
		prev.Attrs[attrList] == cur.Attrs[attrList] &&
		prev.Attrs[attrMarker] == cur.Attrs[attrMarker]
}

// indent prefixes every line after the first.
func indent(s, prefix string) string {
	return strings.ReplaceAll(s, "\n", "\n"+prefix)
}
