package compositor

// NativeDisplay and NativeWindow are opaque platform handles (an X11
// Display*, a Wayland wl_display*, an EGLNativeWindowType, ...). The core
// never interprets them; only glcontext and a concrete Backend do.
type NativeDisplay uintptr
type NativeWindow uintptr

// Backend is the neutral platform abstraction consumed by the GL context
// loader. A concrete backend (e.g. sdlbackend.Backend) owns the real
// window/event pump; this core only ever sees the contract.
//
// EventFD may legitimately be negative, meaning the backend has no
// file-descriptor-based readiness primitive. The event loop then falls
// back to timer-only polling instead of treating -1 as an error; see
// eventloop.Loop.Run.
type Backend interface {
	Name() string
	Display() NativeDisplay
	Window() NativeWindow
	PollEvents()
	EventFD() int

	// PageFlip returns the backend's optional kernel-level flip
	// notification hook, or nil if it has none. Context.Swap calls it
	// after eglSwapBuffers.
	PageFlip() func()
}

// ModeFlag bits, matching the wire protocol's wl_output.mode flags.
type ModeFlag uint32

const (
	ModeCurrent   ModeFlag = 1 << 0
	ModePreferred ModeFlag = 1 << 1
)

// Mode describes one display mode an output can run in.
type Mode struct {
	Flags      ModeFlag
	Width      int32
	Height     int32
	RefreshMHz int32 // milli-Hertz, matching wl_output.mode's refresh units
}

func (m Mode) isCurrent() bool   { return m.Flags&ModeCurrent != 0 }
func (m Mode) isPreferred() bool { return m.Flags&ModePreferred != 0 }

// Subpixel orientation, as in wl_output.geometry.
type Subpixel int32

const (
	SubpixelUnknown Subpixel = iota
	SubpixelNone
	SubpixelHorizontalRGB
	SubpixelHorizontalBGR
	SubpixelVerticalRGB
	SubpixelVerticalBGR
)

// Transform mirrors wl_output.transform.
type Transform int32

const (
	TransformNormal Transform = iota
	Transform90
	Transform180
	Transform270
	TransformFlipped
	TransformFlipped90
	TransformFlipped180
	TransformFlipped270
)

// Information is the output's static (well, set-once-at-bind-time)
// descriptive state: physical size, subpixel layout, transform, scale,
// make/model strings, and every supported mode.
type Information struct {
	Name            string
	Make            string
	Model           string
	PhysicalWidthMM int32
	PhysicalHeightMM int32
	Subpixel        Subpixel
	Transform       Transform
	Scale           int32
	Modes           []Mode
}
