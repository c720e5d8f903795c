package compositor

// Renderer is the collaborator contract consumed by the scheduler.
// glrenderer.Renderer is the concrete implementation; tests use a fake
// that records calls.
type Renderer interface {
	// Bind makes this output's context current and prepares the
	// renderer to draw into it. Returning false degrades the current
	// frame silently: the frame is skipped, not fatal.
	Bind(o *Output) bool
	// Time gives the renderer the compositor clock for this frame, used
	// for animation and frame-callback timestamps.
	Time(ms uint32)
	// Background paints the decorative/idle background.
	Background()
	// Clear paints a neutral color when backgrounds are disabled.
	Clear()
	// ViewPaint draws one view's current buffer, back-to-front order
	// being the caller's responsibility.
	ViewPaint(v View)
	// Swap presents the frame, including any post-draw flush the
	// renderer needs before the context's buffer swap.
	Swap()
	// SurfaceAttach binds buffer as surface's current GPU-backed
	// content. False means the attach failed; no partial state may be
	// left behind.
	SurfaceAttach(s *Surface, buffer Buffer) bool
	// SurfaceDestroy releases surface's GPU resources, if any.
	SurfaceDestroy(s *Surface)
	// ReadPixels fills out with w*h*4 bytes of RGBA8 starting at geom's
	// origin. Called after the frame is drawn but before swap.
	ReadPixels(geom Rectangle, out []byte)
	// Free releases every GPU resource the renderer owns. Must tolerate
	// being called on a renderer that never successfully bound.
	Free()
}
