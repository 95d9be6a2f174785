// Package overlay positions signature fields over a rendered document
// surface and tracks drag relocation of completed fields.
//
// All field coordinates are percentages of the document's content box, the
// rendered rectangle minus any padding the renderer adds around it.
// Converting pixel deltas against the padded container instead of the
// content box misplaces fields by the padding amount, so the content box is
// measured explicitly.
package overlay

import "signline/internal/domain"

// Point is a pointer position in container-relative pixels.
type Point struct {
	X float64
	Y float64
}

// Rect is a measured rectangle in pixels.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// ContentBox returns the container rectangle shrunk by per-edge padding.
func ContentBox(container Rect, padTop, padRight, padBottom, padLeft float64) Rect {
	return Rect{
		X:      container.X + padLeft,
		Y:      container.Y + padTop,
		Width:  container.Width - padLeft - padRight,
		Height: container.Height - padTop - padBottom,
	}
}

// Position is a field location in content-box percentages.
type Position struct {
	X float64
	Y float64
}

// Effective returns the field's display position: the committed override if
// one exists, else the catalog position.
func Effective(f domain.SignatureField, overrides map[string]Position) Position {
	if p, ok := overrides[catalogKey(f)]; ok {
		return p
	}
	return Position{X: f.XPercent, Y: f.YPercent}
}

func catalogKey(f domain.SignatureField) string {
	return f.DocumentID + "_" + f.ID
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Tracker drives one drag gesture at a time over a content box. Moves are
// tracked incrementally against the last pointer position, so the grab point
// inside the rectangle does not matter. The committed override map is only
// touched on End or Leave; intermediate moves stay in the tracker.
type Tracker struct {
	box       Rect
	committed map[string]Position

	dragging bool
	fieldID  string
	current  Position
	last     Point
}

// NewTracker creates a tracker over a measured content box. Committed holds
// previously committed overrides and receives new commits.
func NewTracker(box Rect, committed map[string]Position) *Tracker {
	if committed == nil {
		committed = make(map[string]Position)
	}
	return &Tracker{box: box, committed: committed}
}

// Resize updates the measured content box, e.g. after a window resize.
func (t *Tracker) Resize(box Rect) { t.box = box }

// Dragging reports whether a gesture is in progress and for which field.
func (t *Tracker) Dragging() (string, bool) { return t.fieldID, t.dragging }

// Overrides exposes the committed override map.
func (t *Tracker) Overrides() map[string]Position { return t.committed }

// Begin starts a drag for a completed field at the pointer position.
// Incomplete fields are inert: Begin is a no-op for them.
func (t *Tracker) Begin(fieldID string, completed bool, start Position, pointer Point) {
	if !completed || t.dragging {
		return
	}
	if p, ok := t.committed[fieldID]; ok {
		start = p
	}
	t.dragging = true
	t.fieldID = fieldID
	t.current = start
	t.last = pointer
}

// Move advances the drag by the pointer delta since the last move, converted
// to percentage deltas against the content box and clamped to [0,100] per
// axis. No-op when no drag is in progress or the box has no area.
func (t *Tracker) Move(pointer Point) {
	if !t.dragging {
		return
	}
	if t.box.Width <= 0 || t.box.Height <= 0 {
		t.last = pointer
		return
	}
	dx := (pointer.X - t.last.X) / t.box.Width * 100
	dy := (pointer.Y - t.last.Y) / t.box.Height * 100
	t.current.X = clampPercent(t.current.X + dx)
	t.current.Y = clampPercent(t.current.Y + dy)
	t.last = pointer
}

// End commits the running position into the override map and clears the
// drag. Returns the committed position and whether a commit happened.
func (t *Tracker) End() (string, Position, bool) {
	if !t.dragging {
		return "", Position{}, false
	}
	id := t.fieldID
	pos := t.current
	t.committed[id] = pos
	t.dragging = false
	t.fieldID = ""
	return id, pos, true
}

// Leave commits like End. The pointer leaving the container mid-drag keeps
// the last known position rather than reverting the field.
func (t *Tracker) Leave() (string, Position, bool) {
	return t.End()
}

// Clamp bounds an arbitrary position to [0,100] per axis.
func Clamp(p Position) Position {
	return Position{X: clampPercent(p.X), Y: clampPercent(p.Y)}
}
