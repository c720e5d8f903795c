package compositor

import "testing"

func TestRectangleContainsRectInclusiveBounds(t *testing.T) {
	root := Rectangle{X: 0, Y: 0, Width: 100, Height: 100}

	// Exactly matching bounds must count as contained: the containment
	// check is inclusive on all four edges.
	if !root.containsRect(Rectangle{X: 0, Y: 0, Width: 100, Height: 100}) {
		t.Fatalf("expected an exactly-matching rectangle to be contained")
	}
	if root.containsRect(Rectangle{X: 0, Y: 0, Width: 101, Height: 100}) {
		t.Fatalf("expected a rectangle exceeding root's width not to be contained")
	}
}

func TestRectangleUnionIgnoresEmptyOperands(t *testing.T) {
	r := Rectangle{}
	r = r.union(Rectangle{X: 1, Y: 2, Width: 10, Height: 20})
	if r != (Rectangle{X: 1, Y: 2, Width: 10, Height: 20}) {
		t.Fatalf("expected union with an empty accumulator to equal the other operand, got %v", r)
	}
	r = r.union(Rectangle{})
	if r != (Rectangle{X: 1, Y: 2, Width: 10, Height: 20}) {
		t.Fatalf("expected union with an empty operand to be a no-op, got %v", r)
	}
}

// An opaque view union that fully covers the output root means the
// background is not visible.
func TestIsVisibleOpaqueViewCoveringOutputHidesBackground(t *testing.T) {
	o, _, _, _ := newTestOutput(t, true)
	view := &fakeView{
		geom:     Rectangle{X: 0, Y: 0, Width: o.Resolution.Width, Height: o.Resolution.Height},
		opaque:   true,
		attached: true,
		created:  true,
	}
	o.FocusedSpace().AddView(view)

	if o.isVisible() {
		t.Fatalf("expected background not visible when an opaque view fully covers the output")
	}
}

func TestIsVisibleNoOpaqueCoverageMeansVisible(t *testing.T) {
	o, _, _, _ := newTestOutput(t, true)
	view := &fakeView{
		geom:     Rectangle{X: 0, Y: 0, Width: 10, Height: 10},
		opaque:   true,
		attached: true,
		created:  true,
	}
	o.FocusedSpace().AddView(view)

	if !o.isVisible() {
		t.Fatalf("expected background visible when the opaque union doesn't cover the output root")
	}
}

func TestIsVisibleNonOpaqueViewOverBareBackgroundIsVisible(t *testing.T) {
	o, _, _, _ := newTestOutput(t, true)
	opaque := &fakeView{
		geom:     Rectangle{X: 0, Y: 0, Width: o.Resolution.Width, Height: o.Resolution.Height},
		opaque:   true,
		attached: true,
		created:  true,
	}
	nonOpaqueOutside := &fakeView{
		geom:     Rectangle{X: o.Resolution.Width + 10, Y: 0, Width: 5, Height: 5},
		opaque:   false,
		attached: true,
		created:  true,
	}
	o.FocusedSpace().AddView(opaque)
	o.FocusedSpace().AddView(nonOpaqueOutside)

	if !o.isVisible() {
		t.Fatalf("expected background visible when a non-opaque view sits outside the opaque union")
	}
}

func TestIsVisibleNoSpaceIsVisible(t *testing.T) {
	o, _, _, _ := newTestOutput(t, true)
	for _, s := range append([]*Space(nil), o.Spaces()...) {
		o.RemoveSpace(s)
	}
	if !o.isVisible() {
		t.Fatalf("expected an output with no focused space to report visible")
	}
}
