package compositor

import "testing"

func TestScheduleRepaintCoalescesBurst(t *testing.T) {
	o, loop, _, _ := newTestOutput(t, false)
	ft := loop.timers[0]
	armsBefore := ft.armCount

	for i := 0; i < 1000; i++ {
		o.scheduleRepaint()
	}

	if got := ft.armCount - armsBefore; got != 1 {
		t.Fatalf("expected exactly one timer arming for 1000 schedule_repaint calls, got %d", got)
	}
	if !o.activity || !o.scheduled {
		t.Fatalf("expected activity and scheduled both true after coalesced burst")
	}
}

func TestRepaintRendersFocusedSpaceViews(t *testing.T) {
	o, loop, _, renderer := newTestOutput(t, false)
	view := &fakeView{geom: Rectangle{Width: 10, Height: 10}, attached: true, created: true, opaque: true}
	o.FocusedSpace().AddView(view)

	o.scheduleRepaint()
	loop.timers[0].Fire()

	if len(renderer.viewsPainted) != 1 || renderer.viewsPainted[0] != view {
		t.Fatalf("expected the attached+created view to be painted exactly once, got %v", renderer.viewsPainted)
	}
	if renderer.swapCount != 1 {
		t.Fatalf("expected swap to be issued once, got %d", renderer.swapCount)
	}
	if !o.pendingFlip {
		t.Fatalf("expected pending_flip to be set after swap")
	}
}

func TestRepaintSkipsUnattachedOrUncreatedViews(t *testing.T) {
	o, loop, _, renderer := newTestOutput(t, false)
	notAttached := &fakeView{created: true}
	notCreated := &fakeView{attached: true}
	o.FocusedSpace().AddView(notAttached)
	o.FocusedSpace().AddView(notCreated)

	o.scheduleRepaint()
	loop.timers[0].Fire()

	if len(renderer.viewsPainted) != 0 {
		t.Fatalf("expected no views painted, got %d", len(renderer.viewsPainted))
	}
}

func TestPageFlipBackpressure(t *testing.T) {
	o, loop, _, renderer := newTestOutput(t, false)
	ft := loop.timers[0]

	o.scheduleRepaint()
	ft.Fire() // repaint #1: issues swap, sets pendingFlip
	if renderer.swapCount != 1 {
		t.Fatalf("expected first repaint to swap")
	}

	// A second schedule while pendingFlip is true arms a new timer, but
	// firing it must short-circuit without another swap: shouldRender is
	// false while pendingFlip holds.
	o.scheduleRepaint()
	ft.Fire()
	if renderer.swapCount != 1 {
		t.Fatalf("expected second repaint to be dropped by pending_flip, swap count = %d", renderer.swapCount)
	}
	if o.activity || o.scheduled {
		t.Fatalf("expected activity and scheduled cleared after a dropped repaint")
	}

	// finish_frame clears pending_flip and re-arms; the next repaint then
	// proceeds normally.
	o.FinishFrame(16)
	if o.pendingFlip {
		t.Fatalf("expected pending_flip cleared after FinishFrame")
	}
	if !o.scheduled {
		t.Fatalf("expected FinishFrame to re-arm since there was prior activity")
	}
	ft.Fire()
	if renderer.swapCount != 2 {
		t.Fatalf("expected the re-armed repaint to swap, count = %d", renderer.swapCount)
	}
}

func TestFrameCallbackDeliveredWithSwapTimestampNotFinishFrameTimestamp(t *testing.T) {
	o, loop, _, _ := newTestOutput(t, false)
	ft := loop.timers[0]
	cb := &fakeFrameCallback{}
	view := &fakeView{attached: true, created: true, callbacks: []FrameCallback{cb}}
	o.FocusedSpace().AddView(view)

	o.frameTimeMs = 16 // the swap happens at t=16ms
	o.scheduleRepaint()
	ft.Fire()

	if len(cb.doneMs) != 1 || cb.doneMs[0] != 16 {
		t.Fatalf("expected callback signaled with swap time 16, got %v", cb.doneMs)
	}

	o.FinishFrame(17) // the flip event arrives one ms later
	if len(cb.doneMs) != 1 {
		t.Fatalf("FinishFrame must not re-signal already-delivered callbacks, got %v", cb.doneMs)
	}
}

func TestIdleIntervalConvergesTowardFloorUnderSustainedActivity(t *testing.T) {
	o, _, _, _ := newTestOutput(t, false)
	for i := 0; i < 100; i++ {
		o.activity = true
		o.FinishFrame(uint32(i))
	}
	if o.idleIntervalMs > 2 {
		t.Fatalf("expected idle_interval_ms <= 2 after 100 active frames, got %v", o.idleIntervalMs)
	}
	if o.idleIntervalMs < idleIntervalFloorMs {
		t.Fatalf("idle_interval_ms must never go below the floor, got %v", o.idleIntervalMs)
	}
}

func TestIdleIntervalSaturatesAtCeilingUnderSustainedIdleBackgroundVisible(t *testing.T) {
	o, _, _, _ := newTestOutput(t, true)
	o.backgroundVisible = true // simulate an always-visible background
	for i := 0; i < 100; i++ {
		o.activity = false
		o.FinishFrame(uint32(i))
	}
	if o.idleIntervalMs != idleIntervalCeilingMs {
		t.Fatalf("expected idle_interval_ms saturated at %v after 100 idle frames, got %v", idleIntervalCeilingMs, o.idleIntervalMs)
	}
}

func TestFinishFrameQuiescesWhenNoActivityAndBackgroundNotVisible(t *testing.T) {
	o, _, _, _ := newTestOutput(t, false)
	o.activity = false
	o.FinishFrame(5)
	if o.scheduled {
		t.Fatalf("expected scheduler to quiesce (scheduled=false) with no activity and backgrounds disabled")
	}
}

func TestTerminateEmitsRemoveExactlyOncePerCall(t *testing.T) {
	events := make(chan OutputEvent, 4)
	loop := &fakeLoop{}
	binding := &fakeBinding{}
	renderer := newFakeRenderer()
	backend := &fakeBackend{}
	newContext := func(b Backend) (Context, error) { return &fakeContext{}, nil }
	newRenderer := func(ctx Context) (Renderer, error) { return renderer, nil }
	info := Information{Modes: []Mode{{Flags: ModeCurrent, Width: 800, Height: 600}}}

	o, err := NewOutput(loop, Signals{Output: events}, binding, newContext, newRenderer, backend, info, nil, false)
	if err != nil {
		t.Fatalf("NewOutput: %v", err)
	}

	o.Terminate()
	loop.timers[0].Fire() // repaint observes terminating, issues swap
	o.FinishFrame(1)      // first finish_frame after terminate: emits remove

	select {
	case ev := <-events:
		if ev.Kind != OutputEventRemove {
			t.Fatalf("expected OutputEventRemove, got %v", ev.Kind)
		}
	default:
		t.Fatalf("expected OUTPUT_EVENT_REMOVE to be emitted")
	}

	// A second finish_frame with terminating already cleared must not
	// re-emit.
	o.FinishFrame(2)
	select {
	case ev := <-events:
		t.Fatalf("expected no second OUTPUT_EVENT_REMOVE, got %v", ev)
	default:
	}
}

func TestSetSurfaceNoOpWhenSameBackend(t *testing.T) {
	o, _, _, renderer := newTestOutput(t, false)
	backend := &fakeBackend{}
	newContext := func(b Backend) (Context, error) { return &fakeContext{}, nil }
	calls := 0
	newRenderer := func(ctx Context) (Renderer, error) { calls++; return renderer, nil }
	o.newContext = newContext
	o.newRenderer = newRenderer

	if !o.SetSurface(backend) {
		t.Fatalf("expected first SetSurface to succeed")
	}
	firstCalls := calls
	if !o.SetSurface(backend) {
		t.Fatalf("expected second SetSurface(same backend) to report success")
	}
	if calls != firstCalls {
		t.Fatalf("expected SetSurface(same backend) to be a no-op, renderer factory called %d extra times", calls-firstCalls)
	}
}

func TestSetSurfaceRollsBackOnRendererFailure(t *testing.T) {
	o, _, _, _ := newTestOutput(t, false)
	backend := &fakeBackend{name: "other"}
	newContext := func(b Backend) (Context, error) { return &fakeContext{}, nil }
	newRenderer := func(ctx Context) (Renderer, error) { return nil, newError(ErrRendererBindFailed, "boom", nil) }
	o.newContext = newContext
	o.newRenderer = newRenderer

	if o.SetSurface(backend) {
		t.Fatalf("expected SetSurface to fail when renderer factory errors")
	}
	if o.ctx != nil || o.renderer != nil || o.backendSurface != nil {
		t.Fatalf("expected null triple after a rolled-back SetSurface, got ctx=%v renderer=%v backend=%v", o.ctx, o.renderer, o.backendSurface)
	}
}

func TestGetPixelsSecondCallWhilePendingIsIgnored(t *testing.T) {
	o, loop, _, renderer := newTestOutput(t, false)
	var calls int
	var gotW, gotH int32
	var swapsAtCallback int
	o.GetPixels(func(w, h int32, rgba []byte) {
		calls++
		gotW, gotH = w, h
		swapsAtCallback = renderer.swapCount
	})
	o.GetPixels(func(w, h int32, rgba []byte) { calls += 100 }) // must be ignored

	loop.timers[0].Fire()

	if calls != 1 {
		t.Fatalf("expected exactly the first GetPixels callback to fire once, calls=%d", calls)
	}
	if gotW != o.Resolution.Width || gotH != o.Resolution.Height {
		t.Fatalf("expected callback to receive the output's resolution, got %dx%d", gotW, gotH)
	}
	if renderer.readPixelsW != o.Resolution.Width {
		t.Fatalf("expected ReadPixels called with output width")
	}
	if swapsAtCallback != 0 {
		t.Fatalf("expected the readback callback to fire before swap, saw %d swaps", swapsAtCallback)
	}
	if renderer.swapCount != 1 {
		t.Fatalf("expected the frame to swap after the readback, got %d", renderer.swapCount)
	}
}

func TestRepaintPaintsPointerWhenOutputCarriesIt(t *testing.T) {
	o, loop, _, renderer := newTestOutput(t, false)
	var pointerPaints int
	var swapsAtPaint int
	o.SetPointerPainter(true, func() {
		pointerPaints++
		swapsAtPaint = renderer.swapCount
	})

	o.scheduleRepaint()
	loop.timers[0].Fire()

	if pointerPaints != 1 {
		t.Fatalf("expected the pointer painted exactly once, got %d", pointerPaints)
	}
	if swapsAtPaint != 0 {
		t.Fatalf("expected the pointer painted before swap")
	}

	o.SetPointerPainter(false, nil)
	o.FinishFrame(1)
	o.scheduleRepaint()
	loop.timers[0].Fire()
	if pointerPaints != 1 {
		t.Fatalf("expected no pointer paint once the output no longer carries it")
	}
}

func TestFocusSpaceNoOpWhenAlreadyFocused(t *testing.T) {
	o, _, binding, _ := newTestOutput(t, false)
	s := o.FocusedSpace()
	o.FocusSpace(s)
	if len(binding.activations) != 0 {
		t.Fatalf("expected no space.activated emission for a no-op focus change")
	}
}

func TestFocusSpaceSwitchesAndEmits(t *testing.T) {
	o, loop, binding, _ := newTestOutput(t, false)
	s2 := o.NewSpace()
	armsBefore := loop.timers[0].armCount

	o.FocusSpace(s2)

	if o.FocusedSpace() != s2 {
		t.Fatalf("expected focused space to switch")
	}
	if len(binding.activations) != 1 || binding.activations[0] != s2 {
		t.Fatalf("expected exactly one space.activated(s2) emission, got %v", binding.activations)
	}
	if loop.timers[0].armCount != armsBefore+1 {
		t.Fatalf("expected focus change to schedule a repaint")
	}
}

func TestRemoveSpaceRefocusesPreviousSibling(t *testing.T) {
	o, _, binding, _ := newTestOutput(t, false)
	s1 := o.FocusedSpace()
	s2 := o.NewSpace()
	s3 := o.NewSpace()
	o.FocusSpace(s3)

	o.RemoveSpace(s3)

	if o.FocusedSpace() != s2 {
		t.Fatalf("expected focus to move to the previous sibling s2, got %v", o.FocusedSpace())
	}
	if len(binding.activations) == 0 || binding.activations[len(binding.activations)-1] != s2 {
		t.Fatalf("expected space.activated(s2) on refocus")
	}

	o.RemoveSpace(s2)
	if o.FocusedSpace() != s1 {
		t.Fatalf("expected focus to move to the previous sibling s1, got %v", o.FocusedSpace())
	}

	o.RemoveSpace(s1)
	if o.FocusedSpace() != nil {
		t.Fatalf("expected focused_space nil once spaces is empty")
	}
}

func TestSetResolutionNoOpWhenUnchanged(t *testing.T) {
	o, loop, binding, _ := newTestOutput(t, false)
	armsBefore := loop.timers[0].armCount
	o.SetResolution(o.Resolution.Width, o.Resolution.Height)
	if len(binding.resolutions) != 0 {
		t.Fatalf("expected no resolution event for an unchanged size")
	}
	if loop.timers[0].armCount != armsBefore {
		t.Fatalf("expected no repaint scheduled for an unchanged size")
	}
}

func TestSetResolutionEmitsAndSchedules(t *testing.T) {
	o, loop, binding, _ := newTestOutput(t, false)
	armsBefore := loop.timers[0].armCount
	o.SetResolution(1024, 768)
	if o.Resolution.Width != 1024 || o.Resolution.Height != 768 {
		t.Fatalf("expected resolution updated")
	}
	if len(binding.resolutions) != 1 {
		t.Fatalf("expected exactly one resolution event, got %d", len(binding.resolutions))
	}
	if loop.timers[0].armCount != armsBefore+1 {
		t.Fatalf("expected a repaint to be scheduled")
	}
}

func TestBindSendsGeometryScaleModeDoneInOrderWithNegotiatedVersion(t *testing.T) {
	o, _, binding, _ := newTestOutput(t, false)
	o.Bind("client-a", 5) // requests version 5, must clamp to 2

	if len(binding.geometry) != 1 || binding.geometry[0].version != outputMaxVersion {
		t.Fatalf("expected one geometry call at negotiated version %d, got %v", outputMaxVersion, binding.geometry)
	}
	if len(binding.scale) != 1 {
		t.Fatalf("expected scale event since negotiated version >= scale version")
	}
	if len(binding.modes) != len(o.Information.Modes) {
		t.Fatalf("expected one mode event per mode, got %d want %d", len(binding.modes), len(o.Information.Modes))
	}
	if len(binding.done) != 1 {
		t.Fatalf("expected one done event since negotiated version >= done version")
	}
}

func TestBindOmitsScaleAndDoneBelowNegotiatedVersionThresholds(t *testing.T) {
	o, _, binding, _ := newTestOutput(t, false)
	o.Bind("client-a", 1) // below scale/done version 2

	if len(binding.scale) != 0 {
		t.Fatalf("expected no scale event for version 1, got %v", binding.scale)
	}
	if len(binding.done) != 0 {
		t.Fatalf("expected no done event for version 1, got %v", binding.done)
	}
}

func TestElectModePrefersCurrentOverPreferred(t *testing.T) {
	idx, err := electMode([]Mode{
		{Flags: ModePreferred, Width: 640, Height: 480},
		{Flags: ModeCurrent, Width: 1920, Height: 1080},
	})
	if err != nil || idx != 1 {
		t.Fatalf("expected the current mode (index 1) to be elected, got idx=%d err=%v", idx, err)
	}
}

func TestElectModeFallsBackToPreferred(t *testing.T) {
	idx, err := electMode([]Mode{
		{Width: 640, Height: 480},
		{Flags: ModePreferred, Width: 1920, Height: 1080},
	})
	if err != nil || idx != 1 {
		t.Fatalf("expected the preferred mode to be elected, got idx=%d err=%v", idx, err)
	}
}

func TestElectModeFailsWithNoCurrentOrPreferred(t *testing.T) {
	_, err := electMode([]Mode{{Width: 640, Height: 480}})
	if err == nil {
		t.Fatalf("expected an error when no mode is current or preferred")
	}
}

func TestDestroyIsInfallibleAndTolerantOfPriorTeardown(t *testing.T) {
	o, _, _, renderer := newTestOutput(t, false)
	o.Destroy()
	if !renderer.freed {
		t.Fatalf("expected renderer freed on Destroy")
	}
	// A second Destroy call must not panic even though everything is
	// already nil/empty: teardown is infallible.
	o.Destroy()
}

func TestShouldRenderRespectsActiveHook(t *testing.T) {
	loop := &fakeLoop{}
	binding := &fakeBinding{}
	renderer := newFakeRenderer()
	backend := &fakeBackend{}
	newContext := func(b Backend) (Context, error) { return &fakeContext{}, nil }
	newRenderer := func(ctx Context) (Renderer, error) { return renderer, nil }
	info := Information{Modes: []Mode{{Flags: ModeCurrent, Width: 800, Height: 600}}}
	active := false

	o, err := NewOutput(loop, Signals{}, binding, newContext, newRenderer, backend, info, func() bool { return active }, false)
	if err != nil {
		t.Fatalf("NewOutput: %v", err)
	}

	o.scheduleRepaint()
	loop.timers[0].Fire()
	if renderer.swapCount != 0 {
		t.Fatalf("expected no swap while inactive, got %d", renderer.swapCount)
	}

	active = true
	o.scheduleRepaint()
	loop.timers[0].Fire()
	if renderer.swapCount != 1 {
		t.Fatalf("expected a swap once active, got %d", renderer.swapCount)
	}
}
