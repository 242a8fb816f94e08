// Package engine captures a user's selection, sends it for enhancement and
// writes the result back into the document without breaking its structure.
//
// One Engine serves one document context. It allows at most one enhancement
// in flight; results that arrive after the capture was cancelled are
// dropped.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/scramble-ai/scramble/internal/apperr"
	"github.com/scramble-ai/scramble/internal/clock"
	"github.com/scramble-ai/scramble/internal/dispatch"
	"github.com/scramble-ai/scramble/internal/document"
	"github.com/scramble-ai/scramble/internal/notify"
	"github.com/scramble-ai/scramble/internal/undo"
)

const (
	DefaultFocusGrace = 150 * time.Millisecond
	// DefaultMinLength is exclusive: a selection must be longer than this.
	DefaultMinLength = 2
)

// User-facing messages.
const (
	msgLoading      = "Enhancing your text..."
	msgSuccess      = "Text enhanced!"
	msgUndo         = "Undo: previous text copied to clipboard"
	msgNotEditable  = "This text can't be edited in place. The result was copied to your clipboard."
	msgAnchorGone   = "The original selection changed before the result arrived. The result was copied to your clipboard."
	msgClipboardErr = "Couldn't place the result or copy it to the clipboard."
)

// ErrBusy is returned by Capture while an enhancement is in flight.
var ErrBusy = errors.New("engine: an enhancement is already in progress")

// Host is the document the engine reads selections from and writes into.
type Host interface {
	Selection() (document.Selection, bool)
	Probe(a document.Anchor) error
	Region(id string) (document.Region, bool)
	Commit(regionID string, e document.Edit) error
}

// Capture is a selection recorded at the moment of the triggering event.
type Capture struct {
	ID         string
	Text       string
	Anchor     document.Anchor
	CapturedAt time.Time
}

type Options struct {
	Host      Host
	Enhancer  dispatch.Enhancer
	Clipboard document.Clipboard
	Notifier  notify.Notifier
	Ledger    *undo.Ledger
	Clock     clock.Clock
	Logger    *slog.Logger

	FocusGrace time.Duration
	MinLength  int
	// OnTransition observes every state change. It runs with the engine
	// locked and must not call back into it.
	OnTransition func(from, to State)
}

type Engine struct {
	host      Host
	enhancer  dispatch.Enhancer
	clipboard document.Clipboard
	notifier  notify.Notifier
	ledger    *undo.Ledger
	clock     clock.Clock
	logger    *slog.Logger
	grace     time.Duration
	minLength int
	observe   func(from, to State)

	mu      sync.Mutex
	state   State
	capture *Capture
	gen     uint64
	blur    clock.Timer
}

func New(opts Options) *Engine {
	e := &Engine{
		host:      opts.Host,
		enhancer:  opts.Enhancer,
		clipboard: opts.Clipboard,
		notifier:  opts.Notifier,
		ledger:    opts.Ledger,
		clock:     opts.Clock,
		logger:    opts.Logger,
		grace:     opts.FocusGrace,
		minLength: opts.MinLength,
		observe:   opts.OnTransition,
	}
	if e.clipboard == nil {
		e.clipboard = &document.MemoryClipboard{}
	}
	if e.notifier == nil {
		e.notifier = notify.Log{}
	}
	if e.ledger == nil {
		e.ledger = undo.New(undo.DefaultCapacity)
	}
	if e.clock == nil {
		e.clock = clock.Real()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.grace <= 0 {
		e.grace = DefaultFocusGrace
	}
	if e.minLength <= 0 {
		e.minLength = DefaultMinLength
	}
	return e
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Current returns the live capture, if any.
func (e *Engine) Current() (Capture, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.capture == nil {
		return Capture{}, false
	}
	return *e.capture, true
}

func (e *Engine) setState(to State) {
	from := e.state
	if !canTransition(from, to) {
		e.logger.Error("illegal engine transition", "from", from, "to", to)
		return
	}
	e.state = to
	e.logger.Debug("engine transition", "from", from, "to", to)
	if e.observe != nil {
		e.observe(from, to)
	}
}

// Capture records the host's live selection. It must run synchronously with
// the selection event, before any picker UI can collapse the selection.
func (e *Engine) Capture() (Capture, error) {
	sel, ok := e.host.Selection()
	text := strings.TrimSpace(sel.Text)
	if !ok || utf8.RuneCountInString(text) <= e.minLength {
		return Capture{}, apperr.NoSelection()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Pending {
		return Capture{}, ErrBusy
	}

	c := Capture{
		ID:         uuid.NewString(),
		Text:       text,
		Anchor:     e.narrow(sel),
		CapturedAt: e.clock.Now(),
	}
	e.stopBlurLocked()
	e.capture = &c
	e.setState(Captured)
	return c, nil
}

// narrow shrinks the anchor to the trimmed text so surrounding whitespace
// survives reconciliation.
func (e *Engine) narrow(sel document.Selection) document.Anchor {
	a := sel.Anchor
	lead := len(sel.Text) - len(strings.TrimLeftFunc(sel.Text, unicode.IsSpace))
	trail := len(sel.Text) - len(strings.TrimRightFunc(sel.Text, unicode.IsSpace))
	switch a.Kind {
	case document.TextField:
		a.Start += lead
		a.End -= trail
	case document.Rich:
		if !a.Range.MultiBlock() {
			a.Range.Start.Offset += lead
			a.Range.End.Offset -= trail
			break
		}
		if lead > 0 && !strings.Contains(sel.Text[:lead], "\n\n") {
			a.Range.Start.Offset += lead
		}
		if trail > 0 && !strings.Contains(sel.Text[len(sel.Text)-trail:], "\n\n") {
			a.Range.End.Offset -= trail
		}
	}
	return a
}

// Enhance sends the captured text through the enhancer and reconciles the
// result. A call while another is in flight is ignored.
func (e *Engine) Enhance(ctx context.Context, promptID string) (Outcome, error) {
	e.mu.Lock()
	if e.state == Pending {
		e.mu.Unlock()
		e.logger.Debug("enhance ignored, already pending", "prompt_id", promptID)
		return OutcomeIgnored, nil
	}
	if e.state != Captured || e.capture == nil {
		e.mu.Unlock()
		return OutcomeFailed, apperr.NoSelection()
	}
	e.gen++
	gen := e.gen
	c := *e.capture
	e.setState(Pending)
	e.mu.Unlock()

	e.notifier.Notify(msgLoading, notify.Loading)
	res, err := e.enhancer.Enhance(ctx, promptID, c.Text)

	e.mu.Lock()
	if gen != e.gen || e.state != Pending {
		e.mu.Unlock()
		e.logger.Debug("discarding result for cancelled capture", "capture_id", c.ID)
		return OutcomeDiscarded, nil
	}
	if err != nil {
		e.setState(Failed)
		e.capture = nil
		e.setState(Idle)
		e.mu.Unlock()
		e.logger.Warn("enhancement failed", "capture_id", c.ID, "prompt_id", promptID, "error", err)
		e.notifier.Notify(err.Error(), notify.Error)
		return OutcomeFailed, err
	}

	outcome, msg, severity, rerr := e.reconcile(c, res.Text)
	if outcome == OutcomeFailed {
		e.setState(Failed)
	} else {
		e.setState(Reconciled)
	}
	e.capture = nil
	e.stopBlurLocked()
	e.setState(Idle)
	e.mu.Unlock()

	e.notifier.Notify(msg, severity)
	return outcome, rerr
}

// reconcile writes result at the capture's anchor, or falls back to the
// clipboard when there is no usable anchor. It runs with e.mu held.
func (e *Engine) reconcile(c Capture, result string) (Outcome, string, notify.Severity, error) {
	a := c.Anchor
	if a.IsZero() {
		return e.fallback(result, msgNotEditable)
	}
	if err := e.host.Probe(a); err != nil {
		e.logger.Info("anchor is stale, using clipboard", "capture_id", c.ID, "region", a.RegionID, "error", err)
		return e.fallback(result, msgAnchorGone)
	}
	region, ok := e.host.Region(a.RegionID)
	if !ok {
		return e.fallback(result, msgAnchorGone)
	}

	var edit document.Edit
	switch a.Kind {
	case document.TextField:
		value, caret := spliceText(region.Value, a.Start, a.End, result)
		edit = document.Edit{Value: value, Caret: document.Caret{Offset: caret}}
	case document.Rich:
		blocks, caret, ok := rebuildBlocks(region.Blocks, a.Range, c.Text, result, uuid.NewString)
		if !ok {
			return e.fallback(result, msgAnchorGone)
		}
		edit = document.Edit{Blocks: blocks, Caret: document.Caret{Point: caret}}
	default:
		return e.fallback(result, msgNotEditable)
	}

	if err := e.host.Commit(a.RegionID, edit); err != nil {
		e.logger.Warn("commit failed, using clipboard", "capture_id", c.ID, "error", err)
		return e.fallback(result, msgAnchorGone)
	}
	e.ledger.Push(undo.Entry{
		ID:           c.ID,
		OriginalText: c.Text,
		Anchor:       a,
		Timestamp:    e.clock.Now(),
	})
	return OutcomeReplaced, msgSuccess, notify.Success, nil
}

func (e *Engine) fallback(result, msg string) (Outcome, string, notify.Severity, error) {
	if err := e.clipboard.WriteText(result); err != nil {
		return OutcomeFailed, msgClipboardErr, notify.Error, err
	}
	return OutcomeClipboard, msg, notify.Warning, nil
}

// Trigger is the keyboard-shortcut path: capture and enhance in one step.
func (e *Engine) Trigger(ctx context.Context, promptID string) (Outcome, error) {
	if _, err := e.Capture(); err != nil {
		if errors.Is(err, ErrBusy) {
			return OutcomeIgnored, nil
		}
		e.notifier.Notify(err.Error(), notify.Warning)
		return OutcomeFailed, err
	}
	return e.Enhance(ctx, promptID)
}

// Cancel discards the live capture. An in-flight request is not aborted;
// its result is dropped when it arrives.
func (e *Engine) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelLocked()
}

func (e *Engine) cancelLocked() bool {
	if e.state != Captured && e.state != Pending {
		return false
	}
	e.gen++
	e.capture = nil
	e.stopBlurLocked()
	e.setState(Cancelled)
	e.setState(Idle)
	return true
}

// FocusLost starts the grace period after which the capture is cancelled.
func (e *Engine) FocusLost() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Captured && e.state != Pending {
		return
	}
	e.stopBlurLocked()
	gen := e.gen
	capture := e.capture
	var t clock.Timer
	t = e.clock.AfterFunc(e.grace, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.blur != t || e.gen != gen || e.capture != capture {
			return
		}
		e.blur = nil
		e.logger.Debug("focus lost beyond grace period, cancelling")
		e.cancelLocked()
	})
	e.blur = t
}

// FocusRegained stops a pending focus-loss cancellation.
func (e *Engine) FocusRegained() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopBlurLocked()
}

func (e *Engine) stopBlurLocked() {
	if e.blur != nil {
		e.blur.Stop()
		e.blur = nil
	}
}

// Undo copies the most recently replaced text back to the clipboard. The
// document is left as it is.
func (e *Engine) Undo() (undo.Entry, bool) {
	entry, ok := e.ledger.Pop()
	if !ok {
		return undo.Entry{}, false
	}
	if err := e.clipboard.WriteText(entry.OriginalText); err != nil {
		e.notifier.Notify(msgClipboardErr, notify.Error)
		return entry, false
	}
	e.notifier.Notify(msgUndo, notify.Info)
	return entry, true
}

// History returns the undo ledger, most recent first.
func (e *Engine) History() []undo.Entry {
	return e.ledger.Entries()
}
