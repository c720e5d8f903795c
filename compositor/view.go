package compositor

// FrameCallback is a client's request to be told when its last commit
// has been shown. Delivery is always post-swap, with the swap's own
// frame time, never the time of the flip event that follows it.
type FrameCallback interface {
	Done(frameTimeMs uint32)
}

// View is a non-owning reference to layout-policy state: views are
// created and destroyed by a layout collaborator that lives elsewhere.
// The scheduler and renderer only need this much of a view to paint it
// and to batch its frame callbacks.
type View interface {
	// Geometry returns the view's rectangle in output-root coordinates.
	Geometry() Rectangle
	// Opaque reports whether the view's content fully occludes what is
	// behind it, used by the background-visibility check.
	Opaque() bool
	// Attached reports whether the view currently has a committed,
	// renderer-backed surface.
	Attached() bool
	// Created reports whether the view has completed at least one
	// commit and is eligible to be painted.
	Created() bool
	// TakeFrameCallbacks removes and returns every frame callback staged
	// since the view's last paint, clearing the view's internal list.
	TakeFrameCallbacks() []FrameCallback
}
