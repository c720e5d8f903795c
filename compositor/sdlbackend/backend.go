// Package sdlbackend adapts github.com/veandco/go-sdl2 into
// compositor.Backend. It never calls window.GLCreateContext: it only
// creates a plain native window and hands its native display/window
// handles to glcontext, which brings up GLES through a dynamically
// loaded EGL instead of SDL's own GL context path.
package sdlbackend

import (
	"fmt"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"wlcompositor/compositor"
)

// InputSink receives forwarded pointer/keyboard events, decoupling this
// backend from any particular wire-protocol client (compositor/wire
// implements it).
type InputSink interface {
	PointerMotion(x, y int32)
	PointerButton(button uint32, pressed bool)
	PointerAxis(horizontal, vertical float64)
	Key(linuxKeycode uint32, pressed bool)
}

// Backend is the concrete compositor.Backend for an SDL2 window. SDL
// delivers events through polling rather than a file descriptor, so
// EventFD always reports -1 and the caller drives PollEvents from a
// timer of its own (the demo binary's tick timer).
type Backend struct {
	window   *sdl.Window
	input    InputSink
	quitting bool

	// onPageFlip is left nil: SDL has no separate kernel page-flip
	// notification distinct from the EGL buffer swap itself. A caller
	// that needs one (e.g. to drive Output.FinishFrame) sets it with
	// SetPageFlip.
	onPageFlip func()
}

// Open creates an SDL2 window of size width x height titled title. SDL
// must already have been initialized with sdl.INIT_VIDEO by the caller.
func Open(title string, width, height int32, input InputSink) (*Backend, error) {
	window, err := sdl.CreateWindow(title,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		width, height,
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return nil, fmt.Errorf("sdlbackend: create window: %w", err)
	}
	return &Backend{window: window, input: input}, nil
}

func (b *Backend) Name() string { return "sdl2" }

// Display returns the platform native display handle extracted from
// SDL's window-manager info, for glcontext to pass to eglGetDisplay.
// go-sdl2's syswm surface only exposes the X11 union member on Linux, so
// a window created under any other subsystem yields 0. eglGetDisplay
// reads 0 as EGL_DEFAULT_DISPLAY, and Window yields 0 as well, so
// bring-up fails by eglCreateWindowSurface at the latest rather than
// crashing later.
func (b *Backend) Display() compositor.NativeDisplay {
	info, err := b.window.GetWMInfo()
	if err != nil || info.Subsystem != sdl.SYSWM_X11 {
		return 0
	}
	x11 := info.GetX11Info()
	return compositor.NativeDisplay(uintptr(unsafe.Pointer(x11.Display)))
}

// Window returns the platform native window handle, for glcontext's
// eglCreateWindowSurface. X11-only, same constraint as Display.
func (b *Backend) Window() compositor.NativeWindow {
	info, err := b.window.GetWMInfo()
	if err != nil || info.Subsystem != sdl.SYSWM_X11 {
		return 0
	}
	x11 := info.GetX11Info()
	return compositor.NativeWindow(uintptr(x11.Window))
}

// PollEvents drains SDL's event queue, forwarding pointer and keyboard
// events to the InputSink.
func (b *Backend) PollEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			b.quitting = true
		case *sdl.MouseMotionEvent:
			if b.input != nil {
				b.input.PointerMotion(e.X, e.Y)
			}
		case *sdl.MouseButtonEvent:
			if b.input != nil {
				b.input.PointerButton(mouseButtonCode(e.Button), e.Type == sdl.MOUSEBUTTONDOWN)
			}
		case *sdl.MouseWheelEvent:
			if b.input != nil {
				b.input.PointerAxis(float64(e.X), float64(e.Y))
			}
		case *sdl.KeyboardEvent:
			if b.input != nil && e.Repeat == 0 {
				b.input.Key(scancodeToLinux(e.Keysym.Scancode), e.Type == sdl.KEYDOWN)
			}
		}
	}
}

// Quitting reports whether PollEvents has observed a QuitEvent. The flag
// is never cleared once set.
func (b *Backend) Quitting() bool { return b.quitting }

// EventFD always reports -1: SDL has no pollable fd, only a polling
// API. A negative fd tells the event loop to run timer-only.
func (b *Backend) EventFD() int { return -1 }

// PageFlip implements compositor.Backend. SDL has no kernel-level flip
// notification of its own; a caller wires one in through SetPageFlip,
// typically to drive Output.FinishFrame after each swap.
func (b *Backend) PageFlip() func() { return b.onPageFlip }

// SetPageFlip installs the hook glcontext.Context.Swap invokes after
// each eglSwapBuffers call.
func (b *Backend) SetPageFlip(fn func()) { b.onPageFlip = fn }

// Destroy releases the SDL window.
func (b *Backend) Destroy() {
	if b.window != nil {
		b.window.Destroy()
		b.window = nil
	}
}

func mouseButtonCode(button uint8) uint32 {
	switch button {
	case sdl.BUTTON_LEFT:
		return 0x110 // BTN_LEFT
	case sdl.BUTTON_RIGHT:
		return 0x111 // BTN_RIGHT
	case sdl.BUTTON_MIDDLE:
		return 0x112 // BTN_MIDDLE
	default:
		return 0
	}
}
