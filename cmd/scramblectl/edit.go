package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/urfave/cli/v2"

	"github.com/scramble-ai/scramble/internal/dispatch"
	"github.com/scramble-ai/scramble/internal/document"
	"github.com/scramble-ai/scramble/internal/engine"
	"github.com/scramble-ai/scramble/internal/notify"
)

const regionID = "file"

func editCommand() *cli.Command {
	return &cli.Command{
		Name:  "edit",
		Usage: "Enhance spans of a file in place",
		Description: "Plain text files are edited as a single text field. Markdown files (.md) are\n" +
			"parsed into blocks and edited as a rich region, so paragraph and list\n" +
			"structure survives; code, HTML and nested lists are kept verbatim. Each\n" +
			"--match or --blocks selector is applied in turn. With no selector the whole\n" +
			"file is enhanced, one Markdown block at a time.",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "prompt",
				Aliases: []string{"p"},
				Usage:   "prompt `ID`",
				Value:   "fix_grammar",
			},
			&cli.StringSliceFlag{
				Name:    "match",
				Aliases: []string{"m"},
				Usage:   "select the first occurrence of `TEXT` (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:    "blocks",
				Aliases: []string{"b"},
				Usage:   "select Markdown blocks by 1-based `N` or N-M (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "read-only",
				Usage: "treat the file as static text; results are printed instead of written",
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "print the diff without writing the file",
			},
			&cli.BoolFlag{
				Name:  "undo",
				Usage: "after editing, pop the last change and print the text it replaced",
			},
		},
		Action: runEdit,
	}
}

type editOptions struct {
	Path     string
	PromptID string
	Matches  []string
	Blocks   []string
	ReadOnly bool
	DryRun   bool
	Undo     bool
	Verbose  bool
}

// editReport is what one edit run produced.
type editReport struct {
	Before    string
	After     string
	Replaced  int
	Clipboard []string
	Undone    string
}

func runEdit(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: FILE")
	}
	opts := editOptions{
		Path:     c.Args().First(),
		PromptID: c.String("prompt"),
		Matches:  c.StringSlice("match"),
		Blocks:   c.StringSlice("blocks"),
		ReadOnly: c.Bool("read-only"),
		DryRun:   c.Bool("dry-run"),
		Undo:     c.Bool("undo"),
		Verbose:  c.Bool("verbose"),
	}

	rep, err := editFile(c.Context, opts, newClient(c), c.App.ErrWriter)
	if err != nil {
		return err
	}

	out := c.App.Writer
	for _, text := range rep.Clipboard {
		fmt.Fprintln(out, text)
	}
	if rep.Replaced > 0 {
		fmt.Fprint(out, unifiedDiff(opts.Path, rep.Before, rep.After))
		if !opts.DryRun {
			if err := os.WriteFile(opts.Path, []byte(rep.After), 0644); err != nil {
				return fmt.Errorf("write %s: %w", opts.Path, err)
			}
			fmt.Fprintf(c.App.ErrWriter, "wrote %s (%d change(s))\n", opts.Path, rep.Replaced)
		}
	}
	if opts.Undo && rep.Undone != "" {
		fmt.Fprintf(out, "undo: text before the last change:\n%s\n", rep.Undone)
	}
	return nil
}

// editFile loads the file into an in-memory document and runs each selector
// through the capture engine. The file itself is not touched.
func editFile(ctx context.Context, opts editOptions, enhancer dispatch.Enhancer, errOut io.Writer) (editReport, error) {
	src, err := os.ReadFile(opts.Path)
	if err != nil {
		return editReport{}, fmt.Errorf("read %s: %w", opts.Path, err)
	}
	rep := editReport{Before: string(src), After: string(src)}

	doc := document.New()
	markdown := isMarkdown(opts.Path)
	switch {
	case opts.ReadOnly:
		doc.AddStatic(regionID, string(src))
	case markdown:
		doc.AddRich(regionID, document.FromMarkdown(src))
	default:
		doc.AddTextField(regionID, string(src))
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	clip := &document.MemoryClipboard{}
	eng := engine.New(engine.Options{
		Host:      doc,
		Enhancer:  enhancer,
		Clipboard: clip,
		Notifier: notify.Func(func(msg string, sev notify.Severity) {
			fmt.Fprintf(errOut, "[%s] %s\n", sev, msg)
		}),
		Logger: logger,
		OnTransition: func(from, to engine.State) {
			logger.Debug("engine", "from", from, "to", to)
		},
	})

	selectors := make([]func() error, 0, len(opts.Matches)+len(opts.Blocks))
	for _, m := range opts.Matches {
		selectors = append(selectors, func() error { return selectMatch(doc, m) })
	}
	for _, b := range opts.Blocks {
		if !markdown || opts.ReadOnly {
			return rep, fmt.Errorf("--blocks needs a writable Markdown file")
		}
		selectors = append(selectors, func() error { return selectBlocks(doc, b) })
	}
	if len(selectors) == 0 {
		if markdown && !opts.ReadOnly {
			region, _ := doc.Region(regionID)
			for _, id := range editableBlocks(region.Blocks) {
				selectors = append(selectors, func() error { return selectBlock(doc, id) })
			}
			if len(selectors) == 0 {
				return rep, fmt.Errorf("%s has no editable text", opts.Path)
			}
		} else {
			selectors = append(selectors, func() error { return selectAll(doc) })
		}
	}

	for _, sel := range selectors {
		if err := sel(); err != nil {
			return rep, err
		}
		writes := clip.Writes()
		outcome, err := eng.Trigger(ctx, opts.PromptID)
		if err != nil {
			return rep, err
		}
		switch outcome {
		case engine.OutcomeReplaced:
			rep.Replaced++
		case engine.OutcomeClipboard:
			if clip.Writes() > writes {
				rep.Clipboard = append(rep.Clipboard, clip.Text())
			}
		}
	}

	region, _ := doc.Region(regionID)
	switch region.Kind {
	case document.TextField:
		rep.After = region.Value
	case document.Rich:
		if rep.Replaced > 0 {
			rep.After = document.Markdown(region.Blocks)
		}
	}

	if opts.Undo {
		if entry, ok := eng.Undo(); ok {
			rep.Undone = entry.OriginalText
		}
	}
	return rep, nil
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func selectAll(doc *document.Doc) error {
	r, ok := doc.Region(regionID)
	if !ok {
		return document.ErrNoRegion
	}
	return doc.SelectText(regionID, 0, len(r.Value))
}

// editableBlocks lists the blocks a whole-file run enhances one by one, so
// each keeps its kind. Raw blocks and blocks too short to select are skipped.
func editableBlocks(blocks []document.Block) []string {
	var ids []string
	for _, b := range blocks {
		if b.Kind == document.Raw || utf8.RuneCountInString(strings.TrimSpace(b.Text)) <= engine.DefaultMinLength {
			continue
		}
		ids = append(ids, b.ID)
	}
	return ids
}

func selectBlock(doc *document.Doc, id string) error {
	r, ok := doc.Region(regionID)
	if !ok {
		return document.ErrNoRegion
	}
	i := r.BlockIndex(id)
	if i < 0 {
		return fmt.Errorf("block %s no longer exists", id)
	}
	return doc.SelectRange(regionID, document.Range{
		Start: document.Point{BlockID: id},
		End:   document.Point{BlockID: id, Offset: len(r.Blocks[i].Text)},
	})
}

// selectMatch selects the first occurrence of text. In a rich region the
// match must lie inside one editable block.
func selectMatch(doc *document.Doc, text string) error {
	r, ok := doc.Region(regionID)
	if !ok {
		return document.ErrNoRegion
	}
	if r.Kind != document.Rich {
		i := strings.Index(r.Value, text)
		if i < 0 {
			return fmt.Errorf("no match for %q", text)
		}
		return doc.SelectText(regionID, i, i+len(text))
	}
	for _, b := range r.Blocks {
		if b.Kind == document.Raw {
			continue
		}
		if i := strings.Index(b.Text, text); i >= 0 {
			return doc.SelectRange(regionID, document.Range{
				Start: document.Point{BlockID: b.ID, Offset: i},
				End:   document.Point{BlockID: b.ID, Offset: i + len(text)},
			})
		}
	}
	return fmt.Errorf("no match for %q within a single block", text)
}

// selectBlocks selects whole blocks given as "N" or "N-M", 1-based and
// inclusive, counted against the document as it is now.
func selectBlocks(doc *document.Doc, span string) error {
	r, ok := doc.Region(regionID)
	if !ok {
		return document.ErrNoRegion
	}
	first, last, err := parseBlockSpan(span, len(r.Blocks))
	if err != nil {
		return err
	}
	end := r.Blocks[last]
	return doc.SelectRange(regionID, document.Range{
		Start: document.Point{BlockID: r.Blocks[first].ID},
		End:   document.Point{BlockID: end.ID, Offset: len(end.Text)},
	})
}

// parseBlockSpan returns zero-based inclusive indices.
func parseBlockSpan(span string, n int) (int, int, error) {
	lo, hi, found := strings.Cut(strings.TrimSpace(span), "-")
	first, err := strconv.Atoi(lo)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid block span %q", span)
	}
	last := first
	if found {
		if last, err = strconv.Atoi(hi); err != nil {
			return 0, 0, fmt.Errorf("invalid block span %q", span)
		}
	}
	if first < 1 || last < first || last > n {
		return 0, 0, fmt.Errorf("block span %q out of range (document has %d blocks)", span, n)
	}
	return first - 1, last - 1, nil
}
