package compositor

import "time"

// Negotiated wl_output protocol versions. A client's requested version
// is clamped to min(requested, 2).
const (
	outputMaxVersion   uint32 = 2
	outputScaleVersion uint32 = 2
	outputDoneVersion  uint32 = 2
)

const (
	idleIntervalFloorMs   = 1.0
	idleIntervalCeilingMs = 41.0
	coalesceDelay         = time.Millisecond
)

// pixelsTask is a one-shot pixel readback request, serviced inside the
// next repaint after drawing but before swap.
type pixelsTask struct {
	callback func(width, height int32, rgba []byte)
}

// Output owns display state and orchestrates repaint for one physical
// output. Every field below is touched only on the event-loop
// goroutine; there is no internal locking.
type Output struct {
	signals Signals
	binding OutputBinding
	active  func() bool // session-foreground query; nil means always-foreground

	newContext  ContextFactory
	newRenderer RendererFactory

	Information Information
	Resolution  struct{ Width, Height int32 }
	modeIndex   int

	spaces       []*Space
	focusedSpace *Space

	backendSurface Backend
	ctx            Context
	renderer       Renderer

	resources map[BindTarget]uint32

	// Scheduler state.
	activity           bool
	scheduled          bool
	pendingFlip        bool
	terminating        bool
	backgroundsEnabled bool
	backgroundVisible  bool

	idleTimer      Timer
	frameTimeMs    uint32
	idleIntervalMs float64

	pixelsTask *pixelsTask

	hasPointer   bool
	paintPointer func()
}

// NewOutput allocates an output, creates its idle timer on loop, registers
// the wl_output global through binding, copies information (including
// its modes), creates one initial space, brings up the backend surface,
// and sets the initial resolution from the elected current mode.
//
// active may be nil, meaning the compositor is always considered
// foreground. backgroundsEnabled selects whether repaint runs the
// background-visibility policy or clears to a neutral color.
func NewOutput(
	loop EventLoop,
	signals Signals,
	binding OutputBinding,
	newContext ContextFactory,
	newRenderer RendererFactory,
	backend Backend,
	info Information,
	active func() bool,
	backgroundsEnabled bool,
) (*Output, error) {
	modeIndex, err := electMode(info.Modes)
	if err != nil {
		return nil, err
	}

	o := &Output{
		signals:            signals,
		binding:            binding,
		active:             active,
		newContext:         newContext,
		newRenderer:        newRenderer,
		Information:        copyInformation(info),
		modeIndex:          modeIndex,
		resources:          make(map[BindTarget]uint32),
		backgroundsEnabled: backgroundsEnabled,
		idleIntervalMs:     idleIntervalFloorMs,
	}
	o.idleTimer = loop.NewTimer(func() { o.repaint() })
	o.binding.RegisterGlobal(o)
	o.NewSpace()

	if !o.SetSurface(backend) {
		o.idleTimer.Disarm()
		o.binding.Unregister(o)
		return nil, newError(ErrContextCreateFailed, "initial SetSurface failed", nil)
	}

	m := o.Information.Modes[modeIndex]
	o.Resolution.Width, o.Resolution.Height = m.Width, m.Height
	return o, nil
}

func electMode(modes []Mode) (int, error) {
	for i, m := range modes {
		if m.isCurrent() {
			return i, nil
		}
	}
	for i, m := range modes {
		if m.isPreferred() {
			return i, nil
		}
	}
	return 0, newError(ErrAllocationFailed, "output has no current or preferred mode", nil)
}

func copyInformation(info Information) Information {
	out := info
	out.Modes = append([]Mode(nil), info.Modes...)
	return out
}

// Resources returns the set of currently bound client targets and their
// negotiated versions. Used by OutputBinding implementations to iterate
// when broadcasting Resolution/SpaceActivated.
func (o *Output) Resources() map[BindTarget]uint32 { return o.resources }

// Spaces returns the output's spaces in creation order.
func (o *Output) Spaces() []*Space { return o.spaces }

// FocusedSpace returns the currently focused space, or nil iff Spaces()
// is empty.
func (o *Output) FocusedSpace() *Space { return o.focusedSpace }

// SetPointerPainter records whether this output currently carries the
// pointer and wires the paint callback repaint invokes after the views
// are drawn. The seat/pointer stack itself lives elsewhere.
func (o *Output) SetPointerPainter(hasPointer bool, paint func()) {
	o.hasPointer = hasPointer
	o.paintPointer = paint
}

// Bind handles one client's wl_output bind request, sending geometry,
// scale (if negotiated), every mode, then done.
func (o *Output) Bind(target BindTarget, requestedVersion uint32) {
	version := requestedVersion
	if version > outputMaxVersion {
		version = outputMaxVersion
	}
	o.resources[target] = version

	o.binding.Geometry(target, version, o)
	if version >= outputScaleVersion {
		o.binding.Scale(target, version, o.Information.Scale)
	}
	for _, m := range o.Information.Modes {
		o.binding.Mode(target, version, m)
	}
	if version >= outputDoneVersion {
		o.binding.Done(target, version)
	}
}

// Unbind forgets a client binding (called when a client disconnects).
func (o *Output) Unbind(target BindTarget) {
	delete(o.resources, target)
}

// NewSpace creates a space at the tail of the output's space list. The
// very first space created becomes focused without emitting
// space.activated: there is no client yet for whom the event matters,
// and the invariant (focused iff non-empty) must hold from the first
// space onward regardless.
func (o *Output) NewSpace() *Space {
	s := newSpace(o)
	o.spaces = append(o.spaces, s)
	if o.focusedSpace == nil {
		o.focusedSpace = s
	}
	return s
}

// RemoveSpace destroys a space. If it was focused, focus moves to its
// previous sibling, or to the new head if it had none, or to nil if the
// space list is now empty.
func (o *Output) RemoveSpace(s *Space) {
	idx := -1
	for i, sp := range o.spaces {
		if sp == s {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	o.spaces = append(o.spaces[:idx], o.spaces[idx+1:]...)
	if o.focusedSpace != s {
		return
	}
	switch {
	case idx > 0:
		o.focusedSpace = o.spaces[idx-1]
	case len(o.spaces) > 0:
		o.focusedSpace = o.spaces[0]
	default:
		o.focusedSpace = nil
	}
	if o.focusedSpace != nil {
		o.binding.SpaceActivated(o.focusedSpace)
	}
}

// FocusSpace switches the focused space, scheduling a repaint and
// emitting space.activated. A no-op if s is already focused.
func (o *Output) FocusSpace(s *Space) {
	if o.focusedSpace == s {
		return
	}
	o.focusedSpace = s
	o.scheduleRepaint()
	o.binding.SpaceActivated(s)
}

// SetResolution updates the output's resolution, emitting
// output.resolution and scheduling a repaint. A no-op if size is
// unchanged.
func (o *Output) SetResolution(width, height int32) {
	if o.Resolution.Width == width && o.Resolution.Height == height {
		return
	}
	o.Resolution.Width, o.Resolution.Height = width, height
	o.binding.Resolution(o, width, height)
	o.scheduleRepaint()
}

// SetSurface atomically swaps the (backend surface, context, renderer)
// triple. Calling it again with the same backend is a no-op. On success
// the old triple, if any, is fully released before the new one is built
// in order context from surface, renderer from context; any failure
// rolls back to the null triple rather than leaving partial state.
func (o *Output) SetSurface(backend Backend) bool {
	if backend == o.backendSurface {
		return true
	}
	if o.backendSurface != nil {
		o.releaseSurface()
	}

	ctx, err := o.newContext(backend)
	if err != nil {
		return false
	}
	renderer, err := o.newRenderer(ctx)
	if err != nil {
		ctx.Terminate()
		return false
	}

	o.backendSurface = backend
	o.ctx = ctx
	o.renderer = renderer
	return true
}

func (o *Output) releaseSurface() {
	if o.renderer != nil {
		o.renderer.Free()
	}
	if o.ctx != nil {
		o.ctx.Terminate()
	}
	o.backendSurface = nil
	o.ctx = nil
	o.renderer = nil
}

// GetPixels requests a one-shot pixel readback, delivered inside the
// next repaint after drawing but before swap. A second call while one
// is already pending is silently ignored.
func (o *Output) GetPixels(callback func(width, height int32, rgba []byte)) {
	if o.pixelsTask != nil {
		return
	}
	o.pixelsTask = &pixelsTask{callback: callback}
	o.scheduleRepaint()
}

// Terminate marks the output as shutting down and schedules a repaint so
// the next FinishFrame observes the flag and emits OutputEventRemove
// exactly once.
func (o *Output) Terminate() {
	o.terminating = true
	o.scheduleRepaint()
}

// Destroy releases the timer, every client resource, every space, the
// renderer/context/backend-surface triple, and the global registration,
// in that order. Infallible: tolerates any prior partial teardown.
func (o *Output) Destroy() {
	if o.idleTimer != nil {
		o.idleTimer.Disarm()
	}
	for target := range o.resources {
		delete(o.resources, target)
	}
	o.spaces = nil
	o.focusedSpace = nil
	o.releaseSurface()
	o.Information = Information{}
	o.binding.Unregister(o)
}

// shouldRender: the session is foreground, no flip is outstanding, and
// the context/renderer pair exists.
func (o *Output) shouldRender() bool {
	if o.active != nil && !o.active() {
		return false
	}
	return !o.pendingFlip && o.ctx != nil && o.renderer != nil
}

// scheduleRepaint coalesces repeated requests into a single 1ms-delayed
// timer arming. The 1ms floor yields to the event loop so a burst of
// activity in one dispatch becomes one render.
func (o *Output) scheduleRepaint() {
	o.activity = true
	if o.scheduled {
		return
	}
	o.scheduled = true
	o.idleTimer.Arm(coalesceDelay)
}

// repaint is the timer callback driving one frame. It returns false
// whenever the frame was dropped; dropping also clears the pending
// activity on purpose, since when the blocking reason goes away (e.g. a
// page flip arrives) FinishFrame re-arms.
func (o *Output) repaint() bool {
	if !o.shouldRender() {
		o.activity = false
		o.scheduled = false
		return false
	}
	if !o.renderer.Bind(o) {
		o.activity = false
		o.scheduled = false
		return false
	}

	o.renderer.Time(o.frameTimeMs)

	if o.backgroundsEnabled && !o.backgroundVisible {
		if o.isVisible() {
			o.backgroundVisible = true
			o.renderer.Background()
		}
	} else if !o.backgroundsEnabled {
		o.renderer.Clear()
	}

	var callbacks []FrameCallback
	if o.focusedSpace != nil {
		for _, v := range o.focusedSpace.views {
			if !v.Attached() || !v.Created() {
				continue
			}
			o.renderer.ViewPaint(v)
			callbacks = append(callbacks, v.TakeFrameCallbacks()...)
		}
	}

	if o.hasPointer && o.paintPointer != nil {
		o.paintPointer()
	}

	if o.pixelsTask != nil {
		width, height := o.Resolution.Width, o.Resolution.Height
		rgba := make([]byte, int(width)*int(height)*4)
		o.renderer.ReadPixels(Rectangle{Width: width, Height: height}, rgba)
		callback := o.pixelsTask.callback
		o.pixelsTask = nil
		callback(width, height, rgba)
	}

	o.pendingFlip = true
	o.renderer.Swap()

	for _, cb := range callbacks {
		cb.Done(o.frameTimeMs)
	}
	return true
}

// FinishFrame is called by the backend once the display has flipped. It
// clears pendingFlip, advances the compositor clock (a uint32 of
// milliseconds that wraps roughly every 50 days, matching the wire
// protocol's timestamp width), and either re-arms the idle timer with
// an adaptively adjusted interval or quiesces.
func (o *Output) FinishFrame(tsMs uint32) {
	o.pendingFlip = false
	o.frameTimeMs = tsMs

	if o.backgroundsEnabled {
		o.backgroundVisible = o.isVisible()
	}

	if (o.backgroundVisible || o.activity) && !o.terminating {
		if o.activity {
			o.idleIntervalMs *= 0.9
		} else {
			o.idleIntervalMs *= 1.1
		}
		o.idleIntervalMs = clamp(o.idleIntervalMs, idleIntervalFloorMs, idleIntervalCeilingMs)
		o.idleTimer.Arm(time.Duration(o.idleIntervalMs * float64(time.Millisecond)))
		o.scheduled = true
		o.activity = false
	} else {
		o.scheduled = false
	}

	if o.terminating {
		o.signals.emitOutput(OutputEventRemove, o)
		o.terminating = false
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// isVisible implements the background-visibility check: true iff the
// union of opaque view rectangles does not cover the output root, or
// any non-opaque view sits over bare background. The containment test
// is inclusive on all four edges; see Rectangle.containsRect.
func (o *Output) isVisible() bool {
	if o.focusedSpace == nil {
		return true
	}
	root := Rectangle{Width: o.Resolution.Width, Height: o.Resolution.Height}

	var opaqueUnion Rectangle
	for _, v := range o.focusedSpace.views {
		if !v.Attached() || !v.Created() || !v.Opaque() {
			continue
		}
		opaqueUnion = opaqueUnion.union(v.Geometry())
	}
	if !opaqueUnion.containsRect(root) {
		return true
	}
	for _, v := range o.focusedSpace.views {
		if !v.Attached() || !v.Created() || v.Opaque() {
			continue
		}
		if !opaqueUnion.containsRect(v.Geometry()) {
			return true
		}
	}
	return false
}
