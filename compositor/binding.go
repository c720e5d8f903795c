package compositor

import "time"

// BindTarget identifies one client's binding of the output global. It
// is opaque to this package (concretely a wire client plus resource id)
// and is only ever handed back to OutputBinding.
type BindTarget any

// OutputBinding is the Wayland wire protocol collaborator. The core
// never encodes or decodes wire messages; it only calls these methods
// in protocol order.
type OutputBinding interface {
	// RegisterGlobal advertises o as a bindable wl_output global.
	RegisterGlobal(o *Output)
	// Unregister withdraws the global; called during output teardown.
	Unregister(o *Output)

	// Geometry, Scale, Mode, and Done are sent, in that order, to a
	// single newly-bound client. Scale is sent only when version is at
	// least the protocol's scale version; Done only when version is at
	// least its done version. version is already negotiated to
	// min(requested, 2) by the time these are called.
	Geometry(target BindTarget, version uint32, o *Output)
	Scale(target BindTarget, version uint32, scale int32)
	Mode(target BindTarget, version uint32, m Mode)
	Done(target BindTarget, version uint32)

	// Resolution and SpaceActivated are broadcasts to every bound
	// client, fired on resolution change and focus change respectively.
	Resolution(o *Output, width, height int32)
	SpaceActivated(s *Space)
}

// Context is the lifecycle handle for the dynamically-loaded GL
// context. The core only ever needs to tear it down; everything else
// about a Context is glcontext's concern, reached through the Renderer
// collaborator which composes one internally.
type Context interface {
	Terminate()
}

// ContextFactory builds a Context bound to a backend's native
// display/window. Renderer setup on top of the fresh context is
// RendererFactory's job.
type ContextFactory func(backend Backend) (Context, error)

// RendererFactory builds the Renderer that will draw through ctx.
type RendererFactory func(ctx Context) (Renderer, error)

// Timer is one output's idle/repaint timer. Arm replaces any pending
// fire time; Disarm cancels it. There is exactly one Timer per Output
// for the lifetime of that Output.
type Timer interface {
	Arm(d time.Duration)
	Disarm()
}

// EventLoop creates Timers. eventloop.Loop implements this; tests can
// supply a fake that fires synchronously.
type EventLoop interface {
	NewTimer(fn func()) Timer
}
