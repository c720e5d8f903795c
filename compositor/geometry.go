package compositor

// Rectangle is an output-root-space axis-aligned box used for view
// layout queries and pixel readback regions. It carries no owner.
type Rectangle struct {
	X, Y          int32
	Width, Height int32
}

// containsRect reports whether r fully covers o, using inclusive bounds
// on all four edges. The inclusive boundary is load-bearing: the
// background-visibility check depends on a rectangle exactly matching
// the root counting as contained.
func (r Rectangle) containsRect(o Rectangle) bool {
	return o.X >= r.X && o.Y >= r.Y &&
		o.X+o.Width <= r.X+r.Width &&
		o.Y+o.Height <= r.Y+r.Height
}

func (r Rectangle) empty() bool { return r.Width <= 0 || r.Height <= 0 }

// union returns the smallest rectangle containing both r and o. An empty
// operand is ignored so folding over a view list starts cleanly from the
// zero Rectangle.
func (r Rectangle) union(o Rectangle) Rectangle {
	if r.empty() {
		return o
	}
	if o.empty() {
		return r
	}
	minX, minY := min(r.X, o.X), min(r.Y, o.Y)
	maxX, maxY := max(r.X+r.Width, o.X+o.Width), max(r.Y+r.Height, o.Y+o.Height)
	return Rectangle{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
