package document

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Doc is an in-memory document host. It backs the CLI editor and tests.
type Doc struct {
	mu        sync.Mutex
	regions   map[string]*Region
	order     []string
	selection *Selection
	caret     Caret
	events    []Event
	listeners []func(Event)
}

func New() *Doc {
	return &Doc{regions: make(map[string]*Region)}
}

func (d *Doc) add(r Region) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.regions[r.ID]; !exists {
		d.order = append(d.order, r.ID)
	}
	d.regions[r.ID] = &r
}

func (d *Doc) AddTextField(id, value string) {
	d.add(Region{ID: id, Kind: TextField, Value: value})
}

func (d *Doc) AddStatic(id, text string) {
	d.add(Region{ID: id, Kind: Static, Value: text})
}

// AddRich adds a rich region. Block ids must be unique within the region.
func (d *Doc) AddRich(id string, blocks []Block) {
	d.add(Region{ID: id, Kind: Rich, Blocks: blocks}.clone())
}

// Remove deletes a region, invalidating every anchor into it.
func (d *Doc) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.regions, id)
	for i, rid := range d.order {
		if rid == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	if d.selection != nil && d.selection.Anchor.RegionID == id {
		d.selection = nil
	}
}

func (d *Doc) Region(id string) (Region, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.regions[id]
	if !ok {
		return Region{}, false
	}
	return r.clone(), true
}

// Regions returns every region in insertion order.
func (d *Doc) Regions() []Region {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Region, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.regions[id].clone())
	}
	return out
}

// SelectText selects [start, end) of a text field or static region.
func (d *Doc) SelectText(regionID string, start, end int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.regions[regionID]
	if !ok {
		return ErrNoRegion
	}
	if r.Kind == Rich {
		return fmt.Errorf("%w: %s is a rich region", ErrBadRange, regionID)
	}
	if start < 0 || start > end || end > len(r.Value) {
		return fmt.Errorf("%w: [%d,%d) of %d bytes", ErrBadRange, start, end, len(r.Value))
	}

	sel := Selection{Text: r.Value[start:end]}
	if r.Kind == TextField {
		sel.Anchor = Anchor{RegionID: regionID, Kind: TextField, Start: start, End: end}
	}
	d.selection = &sel
	return nil
}

// SelectRange selects a span of a rich region.
func (d *Doc) SelectRange(regionID string, rng Range) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.regions[regionID]
	if !ok {
		return ErrNoRegion
	}
	if r.Kind != Rich {
		return fmt.Errorf("%w: %s is not a rich region", ErrBadRange, regionID)
	}
	text, err := rangeText(*r, rng)
	if err != nil {
		return err
	}
	for _, b := range r.Blocks[r.BlockIndex(rng.Start.BlockID) : r.BlockIndex(rng.End.BlockID)+1] {
		if b.Kind == Raw {
			return fmt.Errorf("%w: block %s is kept verbatim", ErrNotEditable, b.ID)
		}
	}
	d.selection = &Selection{
		Text:   text,
		Anchor: Anchor{RegionID: regionID, Kind: Rich, Range: rng},
	}
	return nil
}

// ClearSelection collapses the live selection, as happens when the user
// interacts with a picker.
func (d *Doc) ClearSelection() {
	d.mu.Lock()
	d.selection = nil
	d.mu.Unlock()
}

// Selection returns the live selection.
func (d *Doc) Selection() (Selection, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.selection == nil {
		return Selection{}, false
	}
	return *d.selection, true
}

// Probe reports whether a still addresses existing content.
func (d *Doc) Probe(a Anchor) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if a.IsZero() {
		return ErrStaleAnchor
	}
	r, ok := d.regions[a.RegionID]
	if !ok || r.Kind != a.Kind {
		return ErrStaleAnchor
	}
	switch r.Kind {
	case TextField:
		if a.Start < 0 || a.Start > a.End || a.End > len(r.Value) {
			return ErrStaleAnchor
		}
		return nil
	case Rich:
		if _, err := rangeText(*r, a.Range); err != nil {
			return ErrStaleAnchor
		}
		return nil
	default:
		return ErrNotEditable
	}
}

// Commit replaces a region's content, moves the caret and emits the events
// a host editor would: "input" and "change" for text fields, "input" for
// rich regions.
func (d *Doc) Commit(regionID string, e Edit) error {
	d.mu.Lock()
	r, ok := d.regions[regionID]
	if !ok {
		d.mu.Unlock()
		return ErrNoRegion
	}

	var types []string
	switch r.Kind {
	case TextField:
		r.Value = e.Value
		types = []string{"input", "change"}
	case Rich:
		r.Blocks = Region{Blocks: e.Blocks}.clone().Blocks
		types = []string{"input"}
	default:
		d.mu.Unlock()
		return ErrNotEditable
	}

	d.caret = e.Caret
	d.caret.RegionID = regionID
	d.selection = nil
	evs := make([]Event, 0, len(types))
	for _, t := range types {
		evs = append(evs, Event{RegionID: regionID, Type: t})
	}
	d.events = append(d.events, evs...)
	listeners := slices.Clone(d.listeners)
	d.mu.Unlock()

	for _, ev := range evs {
		for _, fn := range listeners {
			fn(ev)
		}
	}
	return nil
}

// OnEvent registers a listener for change events.
func (d *Doc) OnEvent(fn func(Event)) {
	d.mu.Lock()
	d.listeners = append(d.listeners, fn)
	d.mu.Unlock()
}

func (d *Doc) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Event(nil), d.events...)
}

func (d *Doc) Caret() Caret {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.caret
}

// rangeText returns the text covered by rng. Block boundaries inside the
// range read as blank lines.
func rangeText(r Region, rng Range) (string, error) {
	si := r.BlockIndex(rng.Start.BlockID)
	ei := r.BlockIndex(rng.End.BlockID)
	if si < 0 || ei < 0 || si > ei {
		return "", ErrBadRange
	}
	start, end := r.Blocks[si], r.Blocks[ei]
	if rng.Start.Offset < 0 || rng.Start.Offset > len(start.Text) ||
		rng.End.Offset < 0 || rng.End.Offset > len(end.Text) {
		return "", ErrBadRange
	}
	if si == ei {
		if rng.Start.Offset > rng.End.Offset {
			return "", ErrBadRange
		}
		return start.Text[rng.Start.Offset:rng.End.Offset], nil
	}

	parts := []string{start.Text[rng.Start.Offset:]}
	for _, b := range r.Blocks[si+1 : ei] {
		parts = append(parts, b.Text)
	}
	parts = append(parts, end.Text[:rng.End.Offset])
	return strings.Join(parts, "\n\n"), nil
}
