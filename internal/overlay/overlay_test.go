package overlay_test

import (
	"testing"

	"signline/internal/domain"
	"signline/internal/overlay"
)

func TestContentBox(t *testing.T) {
	box := overlay.ContentBox(overlay.Rect{X: 10, Y: 20, Width: 820, Height: 1060}, 30, 10, 30, 10)
	if box.X != 20 || box.Y != 50 || box.Width != 800 || box.Height != 1000 {
		t.Fatalf("content box = %+v", box)
	}
}

func TestEffectivePrefersOverride(t *testing.T) {
	f := domain.SignatureField{ID: "sig-1", DocumentID: "doc-1", XPercent: 10, YPercent: 20}
	overrides := map[string]overlay.Position{"doc-1_sig-1": {X: 55, Y: 66}}
	if p := overlay.Effective(f, overrides); p.X != 55 || p.Y != 66 {
		t.Fatalf("effective = %+v, want override", p)
	}
	if p := overlay.Effective(f, nil); p.X != 10 || p.Y != 20 {
		t.Fatalf("effective = %+v, want catalog position", p)
	}
}

func TestDragIncompleteFieldIsNoop(t *testing.T) {
	tr := overlay.NewTracker(overlay.Rect{Width: 1000, Height: 1000}, nil)
	tr.Begin("f1", false, overlay.Position{X: 10, Y: 10}, overlay.Point{X: 100, Y: 100})
	if _, dragging := tr.Dragging(); dragging {
		t.Fatalf("incomplete field must not start a drag")
	}
	tr.Move(overlay.Point{X: 500, Y: 500})
	if _, _, committed := tr.End(); committed {
		t.Fatalf("no drag, no commit")
	}
	if len(tr.Overrides()) != 0 {
		t.Fatalf("override map must stay empty")
	}
}

func TestDragTracksIncrementally(t *testing.T) {
	tr := overlay.NewTracker(overlay.Rect{Width: 1000, Height: 500}, nil)
	tr.Begin("f1", true, overlay.Position{X: 10, Y: 10}, overlay.Point{X: 100, Y: 100})
	// 100px right on a 1000px box is +10%; 50px down on 500px is +10%.
	tr.Move(overlay.Point{X: 200, Y: 150})
	id, pos, committed := tr.End()
	if !committed || id != "f1" {
		t.Fatalf("expected commit for f1, got %v %v", id, committed)
	}
	if pos.X != 20 || pos.Y != 20 {
		t.Fatalf("position = %+v, want (20, 20)", pos)
	}
}

func TestDragClampsPerAxis(t *testing.T) {
	tr := overlay.NewTracker(overlay.Rect{Width: 100, Height: 100}, nil)
	tr.Begin("f1", true, overlay.Position{X: 95, Y: 50}, overlay.Point{X: 0, Y: 0})
	// +20% in x clamps at 100, y stays free.
	tr.Move(overlay.Point{X: 20, Y: 10})
	_, pos, _ := tr.End()
	if pos.X != 100 {
		t.Fatalf("x = %v, want clamp at 100", pos.X)
	}
	if pos.Y != 60 {
		t.Fatalf("y = %v, want 60", pos.Y)
	}

	tr.Begin("f2", true, overlay.Position{X: 2, Y: 3}, overlay.Point{X: 0, Y: 0})
	tr.Move(overlay.Point{X: -50, Y: -50})
	_, pos, _ = tr.End()
	if pos.X != 0 || pos.Y != 0 {
		t.Fatalf("position = %+v, want clamp at origin", pos)
	}
}

func TestLeaveCommitsLastPosition(t *testing.T) {
	committed := map[string]overlay.Position{}
	tr := overlay.NewTracker(overlay.Rect{Width: 100, Height: 100}, committed)
	tr.Begin("f1", true, overlay.Position{X: 10, Y: 10}, overlay.Point{X: 0, Y: 0})
	tr.Move(overlay.Point{X: 30, Y: 0})
	if len(committed) != 0 {
		t.Fatalf("mid-drag moves must not commit")
	}
	id, pos, ok := tr.Leave()
	if !ok || id != "f1" {
		t.Fatalf("leave should commit the running drag")
	}
	if pos.X != 40 || pos.Y != 10 {
		t.Fatalf("position = %+v, want (40, 10)", pos)
	}
	if got := committed["f1"]; got != pos {
		t.Fatalf("committed map = %+v", committed)
	}
}

func TestNextDragStartsFromCommittedOverride(t *testing.T) {
	committed := map[string]overlay.Position{"f1": {X: 50, Y: 50}}
	tr := overlay.NewTracker(overlay.Rect{Width: 100, Height: 100}, committed)
	// Catalog position passed in, but the committed override wins.
	tr.Begin("f1", true, overlay.Position{X: 10, Y: 10}, overlay.Point{X: 0, Y: 0})
	tr.Move(overlay.Point{X: 10, Y: 0})
	_, pos, _ := tr.End()
	if pos.X != 60 || pos.Y != 50 {
		t.Fatalf("position = %+v, want (60, 50)", pos)
	}
}

func TestClamp(t *testing.T) {
	if p := overlay.Clamp(overlay.Position{X: -5, Y: 120}); p.X != 0 || p.Y != 100 {
		t.Fatalf("clamp = %+v", p)
	}
}
