// Package glcontext brings up a GLES2 rendering context through a
// dynamically loaded EGL: it locates and dlopens the platform EGL
// library at runtime, resolves its entry points by name, and drives the
// display/config/context/surface bring-up sequence, without linking
// against EGL at build time. The library may simply not be present on
// the host, and that must surface as a typed error, not a link failure.
package glcontext

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"wlcompositor/compositor"
)

// libraryNames is the dlopen search order: the versioned soname first,
// then the bare development name.
var libraryNames = []string{"libEGL.so.1", "libEGL.so"}

// entryPoints is the fixed symbol set bring-up needs. Any name here
// that fails to resolve aborts bring-up with ErrSymbolMissing; there is
// no partial/optional subset.
var entryPoints = []string{
	"eglGetDisplay",
	"eglInitialize",
	"eglTerminate",
	"eglBindAPI",
	"eglQueryString",
	"eglChooseConfig",
	"eglCreateContext",
	"eglCreateWindowSurface",
	"eglDestroySurface",
	"eglDestroyContext",
	"eglMakeCurrent",
	"eglSwapBuffers",
	"eglGetError",
}

type eglFuncs struct {
	getDisplay         func(nativeDisplay uintptr) uintptr
	initialize         func(display uintptr, major, minor *int32) int32
	terminate          func(display uintptr) int32
	bindAPI            func(api int32) int32
	queryString        func(display uintptr, name int32) uintptr
	chooseConfig       func(display uintptr, attribs *int32, configs *uintptr, configSize int32, numConfig *int32) int32
	createContext      func(display, config, shareContext uintptr, attribs *int32) uintptr
	createWindowSurface func(display, config uintptr, win uintptr, attribs *int32) uintptr
	destroySurface     func(display, surface uintptr) int32
	destroyContext     func(display, ctx uintptr) int32
	makeCurrent        func(display, draw, read, ctx uintptr) int32
	swapBuffers        func(display, surface uintptr) int32
	getError           func() int32
}

// Context is the concrete, dynamically-bound EGL triple (display, config,
// context, surface) behind compositor.Context. Everything about it is
// reached through glrenderer, which composes one and calls Swap each
// frame; the core only ever calls Terminate.
type Context struct {
	backend compositor.Backend

	lib     uintptr
	fn      eglFuncs
	display uintptr
	config  uintptr
	ctx     uintptr
	surface uintptr

	extensions map[string]bool
}

// New performs the full bring-up sequence against backend's native
// display and window: open the library, bind entry points, get and
// initialize the display, bind the ES API, cache the extensions string,
// choose a config, create the context and window surface, make
// current. On any failure it tears down whatever it already brought up
// before returning the classified error.
func New(backend compositor.Backend) (*Context, error) {
	c := &Context{backend: backend}

	lib, name, err := retainLibrary()
	if err != nil {
		return nil, err
	}
	c.lib = lib

	if err := c.bindEntryPoints(name); err != nil {
		c.Terminate()
		return nil, err
	}

	c.display = c.fn.getDisplay(uintptr(backend.Display()))
	if c.display == 0 {
		c.Terminate()
		return nil, glErr(compositor.ErrDisplayInitFailed, "eglGetDisplay returned EGL_NO_DISPLAY", nil)
	}

	var major, minor int32
	if c.fn.initialize(c.display, &major, &minor) == eglFalse {
		c.Terminate()
		return nil, glErr(compositor.ErrDisplayInitFailed, "eglInitialize failed", c.lastError())
	}

	if c.fn.bindAPI(eglOpenGLESAPI) == eglFalse {
		c.Terminate()
		return nil, glErr(compositor.ErrDisplayInitFailed, "eglBindAPI(EGL_OPENGL_ES_API) failed", c.lastError())
	}

	c.extensions = c.queryExtensions()

	if err := c.chooseConfig(); err != nil {
		c.Terminate()
		return nil, err
	}

	contextAttribs := []int32{eglContextClientVersion, 2, eglNone}
	c.ctx = c.fn.createContext(c.display, c.config, 0, &contextAttribs[0])
	if c.ctx == 0 {
		c.Terminate()
		return nil, glErr(compositor.ErrContextCreateFailed, "eglCreateContext failed", c.lastError())
	}

	c.surface = c.fn.createWindowSurface(c.display, c.config, uintptr(backend.Window()), nil)
	if c.surface == 0 {
		c.Terminate()
		return nil, glErr(compositor.ErrSurfaceCreateFailed, "eglCreateWindowSurface failed", c.lastError())
	}

	if c.fn.makeCurrent(c.display, c.surface, c.surface, c.ctx) == eglFalse {
		c.Terminate()
		return nil, glErr(compositor.ErrMakeCurrentFailed, "eglMakeCurrent failed", c.lastError())
	}

	return c, nil
}

// HasExtension reports whether name appears as a whole token in the
// display's advertised extension string. Matching is on whole tokens,
// never substrings: a query for "EGL_KHR_image" must not match
// "EGL_KHR_image_base".
func (c *Context) HasExtension(name string) bool {
	return c.extensions[name]
}

// Swap issues eglSwapBuffers and then, if the backend exposes a
// page-flip notification hook, invokes it.
func (c *Context) Swap() error {
	if c.fn.swapBuffers == nil || c.surface == 0 {
		return nil
	}
	if c.fn.swapBuffers(c.display, c.surface) == eglFalse {
		return glErr(compositor.ErrMakeCurrentFailed, "eglSwapBuffers failed", c.lastError())
	}
	if flip := c.backend.PageFlip(); flip != nil {
		flip()
	}
	return nil
}

// Terminate reverses bring-up in the opposite order. Idempotent, and
// tolerates partial initialization at every step so a failed New can
// call it on whatever half-built state exists.
func (c *Context) Terminate() {
	if c.fn.destroySurface != nil && c.display != 0 && c.surface != 0 {
		c.fn.destroySurface(c.display, c.surface)
	}
	c.surface = 0
	if c.fn.destroyContext != nil && c.display != 0 && c.ctx != 0 {
		c.fn.destroyContext(c.display, c.ctx)
	}
	c.ctx = 0
	if c.fn.terminate != nil && c.display != 0 {
		c.fn.terminate(c.display)
	}
	c.display = 0
	if c.lib != 0 {
		releaseLibrary()
		c.lib = 0
	}
}

// PollEvents and EventFD pass through to the backend, so callers
// holding a Context never need to reach around it for the event pump.
func (c *Context) PollEvents() { c.backend.PollEvents() }

func (c *Context) EventFD() int { return c.backend.EventFD() }

// MakeCurrent rebinds the context for drawing. The renderer calls this
// at the top of every frame: the GL context is owned by exactly one
// output at a time, and binding an output's renderer must make its
// context current before any draw calls.
func (c *Context) MakeCurrent() bool {
	if c.fn.makeCurrent == nil || c.display == 0 {
		return false
	}
	return c.fn.makeCurrent(c.display, c.surface, c.surface, c.ctx) != eglFalse
}

// sharedLibrary is the process-wide EGL library handle: dlopened once,
// refcounted per live Context, closed only when the last context
// terminates.
var sharedLibrary struct {
	sync.Mutex
	handle uintptr
	name   string
	refs   int
}

func retainLibrary() (uintptr, string, error) {
	sharedLibrary.Lock()
	defer sharedLibrary.Unlock()
	if sharedLibrary.refs > 0 {
		sharedLibrary.refs++
		return sharedLibrary.handle, sharedLibrary.name, nil
	}
	var lastErr error
	for _, name := range libraryNames {
		lib, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			sharedLibrary.handle = lib
			sharedLibrary.name = name
			sharedLibrary.refs = 1
			return lib, name, nil
		}
		lastErr = err
	}
	return 0, "", glErr(compositor.ErrLibraryNotFound, fmt.Sprintf("tried %v", libraryNames), lastErr)
}

func releaseLibrary() {
	sharedLibrary.Lock()
	defer sharedLibrary.Unlock()
	if sharedLibrary.refs == 0 {
		return
	}
	sharedLibrary.refs--
	if sharedLibrary.refs == 0 {
		_ = purego.Dlclose(sharedLibrary.handle)
		sharedLibrary.handle = 0
		sharedLibrary.name = ""
	}
}

// bindEntryPoints resolves every name in entryPoints against lib. It
// checks presence with Dlsym first so a single missing symbol reports
// exactly which one, then binds the typed function pointer with
// RegisterFunc against that resolved address.
func (c *Context) bindEntryPoints(libName string) error {
	addr := make(map[string]uintptr, len(entryPoints))
	for _, sym := range entryPoints {
		a, err := purego.Dlsym(c.lib, sym)
		if err != nil || a == 0 {
			return glErr(compositor.ErrSymbolMissing, fmt.Sprintf("%s: %s", libName, sym), err)
		}
		addr[sym] = a
	}

	purego.RegisterFunc(&c.fn.getDisplay, addr["eglGetDisplay"])
	purego.RegisterFunc(&c.fn.initialize, addr["eglInitialize"])
	purego.RegisterFunc(&c.fn.terminate, addr["eglTerminate"])
	purego.RegisterFunc(&c.fn.bindAPI, addr["eglBindAPI"])
	purego.RegisterFunc(&c.fn.queryString, addr["eglQueryString"])
	purego.RegisterFunc(&c.fn.chooseConfig, addr["eglChooseConfig"])
	purego.RegisterFunc(&c.fn.createContext, addr["eglCreateContext"])
	purego.RegisterFunc(&c.fn.createWindowSurface, addr["eglCreateWindowSurface"])
	purego.RegisterFunc(&c.fn.destroySurface, addr["eglDestroySurface"])
	purego.RegisterFunc(&c.fn.destroyContext, addr["eglDestroyContext"])
	purego.RegisterFunc(&c.fn.makeCurrent, addr["eglMakeCurrent"])
	purego.RegisterFunc(&c.fn.swapBuffers, addr["eglSwapBuffers"])
	purego.RegisterFunc(&c.fn.getError, addr["eglGetError"])
	return nil
}

func (c *Context) queryExtensions() map[string]bool {
	if c.fn.queryString == nil {
		return nil
	}
	raw := c.fn.queryString(c.display, eglExtensions)
	if raw == 0 {
		return nil
	}
	set := make(map[string]bool)
	for _, tok := range splitTokens(cString(raw)) {
		set[tok] = true
	}
	return set
}

// chooseConfig asks EGL for exactly one window-surface-capable,
// ES2-renderable config with at least one bit per RGB channel, no
// alpha, and at least one bit of depth.
func (c *Context) chooseConfig() error {
	attribs := []int32{
		eglSurfaceType, eglWindowBit,
		eglRedSize, 1,
		eglGreenSize, 1,
		eglBlueSize, 1,
		eglAlphaSize, 0,
		eglDepthSize, 1,
		eglRenderableType, eglOpenGLES2Bit,
		eglNone,
	}
	var config uintptr
	var numConfig int32
	if c.fn.chooseConfig(c.display, &attribs[0], &config, 1, &numConfig) == eglFalse || numConfig == 0 {
		return glErr(compositor.ErrConfigChooseFailed, "no matching EGLConfig", c.lastError())
	}
	c.config = config
	return nil
}

func (c *Context) lastError() error {
	if c.fn.getError == nil {
		return nil
	}
	return fmt.Errorf("egl error code 0x%x", c.fn.getError())
}

// cString walks a NUL-terminated C string returned by eglQueryString. EGL
// guarantees these strings live for the lifetime of the display, so no
// copy-before-free race applies here.
func cString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	var buf []byte
	for i := uintptr(0); ; i++ {
		b := *(*byte)(unsafe.Pointer(ptr + i))
		if b == 0 {
			break
		}
		buf = append(buf, b)
	}
	return string(buf)
}

func glErr(kind compositor.Kind, detail string, err error) error {
	return &compositor.Error{Kind: kind, Detail: detail, Err: err}
}

func splitTokens(s string) []string {
	var toks []string
	start := -1
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] != ' ' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			toks = append(toks, s[start:i])
			start = -1
		}
	}
	return toks
}
