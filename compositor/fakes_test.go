package compositor

import "time"

// fakeTimer is a synchronous stand-in for eventloop.Timer: Arm/Disarm just
// record state, and tests fire the callback explicitly with Fire, playing
// the role the real event loop's deadline-driven dispatch would.
type fakeTimer struct {
	fn       func()
	armed    bool
	armCount int
	lastDur  time.Duration
}

func (t *fakeTimer) Arm(d time.Duration) {
	t.armed = true
	t.armCount++
	t.lastDur = d
}

func (t *fakeTimer) Disarm() { t.armed = false }

func (t *fakeTimer) Fire() {
	t.armed = false
	t.fn()
}

type fakeLoop struct {
	timers []*fakeTimer
}

func (l *fakeLoop) NewTimer(fn func()) Timer {
	t := &fakeTimer{fn: fn}
	l.timers = append(l.timers, t)
	return t
}

type fakeBinding struct {
	registered   []*Output
	unregistered []*Output
	geometry     []bindCall
	scale        []bindCall
	modes        []bindCall
	done         []bindCall
	resolutions  []resolutionCall
	activations  []*Space
}

type bindCall struct {
	target  BindTarget
	version uint32
	extra   any
}

type resolutionCall struct {
	output        *Output
	width, height int32
}

func (b *fakeBinding) RegisterGlobal(o *Output)  { b.registered = append(b.registered, o) }
func (b *fakeBinding) Unregister(o *Output)      { b.unregistered = append(b.unregistered, o) }
func (b *fakeBinding) Geometry(target BindTarget, version uint32, o *Output) {
	b.geometry = append(b.geometry, bindCall{target, version, o})
}
func (b *fakeBinding) Scale(target BindTarget, version uint32, scale int32) {
	b.scale = append(b.scale, bindCall{target, version, scale})
}
func (b *fakeBinding) Mode(target BindTarget, version uint32, m Mode) {
	b.modes = append(b.modes, bindCall{target, version, m})
}
func (b *fakeBinding) Done(target BindTarget, version uint32) {
	b.done = append(b.done, bindCall{target, version, nil})
}
func (b *fakeBinding) Resolution(o *Output, width, height int32) {
	b.resolutions = append(b.resolutions, resolutionCall{o, width, height})
}
func (b *fakeBinding) SpaceActivated(s *Space) { b.activations = append(b.activations, s) }

type fakeBackend struct {
	name     string
	flipHook func()
}

func (b *fakeBackend) Name() string             { return b.name }
func (b *fakeBackend) Display() NativeDisplay    { return 0 }
func (b *fakeBackend) Window() NativeWindow      { return 0 }
func (b *fakeBackend) PollEvents()               {}
func (b *fakeBackend) EventFD() int              { return -1 }
func (b *fakeBackend) PageFlip() func()          { return b.flipHook }

type fakeContext struct {
	terminated bool
}

func (c *fakeContext) Terminate() { c.terminated = true }

type fakeRenderer struct {
	bindOK       bool
	boundOutput  *Output
	freed        bool
	swapCount    int
	clearCount   int
	bgCount      int
	viewsPainted []View
	attached     map[*Surface]Buffer
	readPixelsW  int32
	readPixelsH  int32
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{bindOK: true, attached: make(map[*Surface]Buffer)}
}

func (r *fakeRenderer) Bind(o *Output) bool { r.boundOutput = o; return r.bindOK }
func (r *fakeRenderer) Time(ms uint32)      {}
func (r *fakeRenderer) Background()         { r.bgCount++ }
func (r *fakeRenderer) Clear()              { r.clearCount++ }
func (r *fakeRenderer) ViewPaint(v View)    { r.viewsPainted = append(r.viewsPainted, v) }
func (r *fakeRenderer) Swap()               { r.swapCount++ }
func (r *fakeRenderer) SurfaceAttach(s *Surface, buffer Buffer) bool {
	r.attached[s] = buffer
	return true
}
func (r *fakeRenderer) SurfaceDestroy(s *Surface) { delete(r.attached, s) }
func (r *fakeRenderer) ReadPixels(geom Rectangle, out []byte) {
	r.readPixelsW, r.readPixelsH = geom.Width, geom.Height
}
func (r *fakeRenderer) Free() { r.freed = true }

type fakeFrameCallback struct {
	doneMs []uint32
}

func (c *fakeFrameCallback) Done(frameTimeMs uint32) { c.doneMs = append(c.doneMs, frameTimeMs) }

type fakeView struct {
	geom      Rectangle
	opaque    bool
	attached  bool
	created   bool
	callbacks []FrameCallback
}

func (v *fakeView) Geometry() Rectangle { return v.geom }
func (v *fakeView) Opaque() bool        { return v.opaque }
func (v *fakeView) Attached() bool      { return v.attached }
func (v *fakeView) Created() bool       { return v.created }
func (v *fakeView) TakeFrameCallbacks() []FrameCallback {
	cb := v.callbacks
	v.callbacks = nil
	return cb
}

// newTestOutput builds an Output wired entirely to fakes, ready to drive
// the scheduler's invariants directly in tests without any real GL/SDL/
// wire dependency.
func newTestOutput(t testHelper, backgroundsEnabled bool) (*Output, *fakeLoop, *fakeBinding, *fakeRenderer) {
	t.Helper()
	loop := &fakeLoop{}
	binding := &fakeBinding{}
	renderer := newFakeRenderer()
	backend := &fakeBackend{name: "fake"}

	newContext := func(b Backend) (Context, error) { return &fakeContext{}, nil }
	newRenderer := func(ctx Context) (Renderer, error) { return renderer, nil }

	info := Information{
		Name: "WL-TEST",
		Modes: []Mode{
			{Flags: ModeCurrent, Width: 800, Height: 600, RefreshMHz: 60000},
		},
		Scale: 1,
	}

	o, err := NewOutput(loop, Signals{}, binding, newContext, newRenderer, backend, info, nil, backgroundsEnabled)
	if err != nil {
		t.Fatalf("NewOutput: %v", err)
	}
	return o, loop, binding, renderer
}

// testHelper is the subset of *testing.T used by newTestOutput, so this
// file has no import-cycle-risking dependency on the testing package
// beyond what's needed.
type testHelper interface {
	Helper()
	Fatalf(format string, args ...any)
}
