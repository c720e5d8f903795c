// Command wlcompositor wires the render-scheduling core (package
// compositor) to a concrete backend, GL context, renderer, and
// wire-protocol collaborator around one SDL2 window, plus a debug
// HTTP/WebSocket mirror.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"wlcompositor/compositor"
	"wlcompositor/compositor/eventloop"
	"wlcompositor/compositor/glcontext"
	"wlcompositor/compositor/glrenderer"
	"wlcompositor/compositor/sdlbackend"
	"wlcompositor/compositor/wire"
	"wlcompositor/internal/streaming"
)

func init() {
	// OpenGL/EGL and SDL2 both require their calls to stay on one OS
	// thread.
	runtime.LockOSThread()
}

func main() {
	httpAddr := flag.String("http", ":8080", "debug HTTP/WebSocket server address")
	staticDir := flag.String("static", "./static", "static files directory for the debug server")
	displayName := flag.String("display", "", "WAYLAND_DISPLAY name to advertise (empty auto-selects)")
	width := flag.Int("width", 800, "output width in pixels")
	height := flag.Int("height", 600, "output height in pixels")
	backgroundGLB := flag.String("background", "", "optional .glb model painted when the output's background is visible")
	flag.Parse()

	streamSrv := streaming.New(*httpAddr, *staticDir)
	if err := streamSrv.Start(); err != nil {
		log.Fatalf("wlcompositor: start debug server: %v", err)
	}
	defer streamSrv.Stop()

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		log.Fatalf("wlcompositor: sdl init: %v", err)
	}
	defer sdl.Quit()

	binding, err := wire.Open(*displayName, int32(*width), int32(*height), compositorIcon())
	if err != nil {
		log.Fatalf("wlcompositor: open wayland listener: %v", err)
	}
	log.Printf("wlcompositor: WAYLAND_DISPLAY=%s", binding.DisplayName())

	streamSrv.SetKeyboardHandler(func(keycode uint32, pressed bool) { binding.Key(keycode, pressed) })
	streamSrv.SetMouseHandler(func(eventType streaming.MouseEventType, x, y float32, button uint32, pressed bool, scrollDelta float32) {
		switch eventType {
		case streaming.MouseEventMotion:
			binding.PointerMotion(int32(x), int32(y))
		case streaming.MouseEventButton:
			binding.PointerButton(button, pressed)
		case streaming.MouseEventScroll:
			binding.PointerAxis(0, float64(scrollDelta))
		}
	})

	backend, err := sdlbackend.Open("Wayland Compositor", int32(*width), int32(*height), binding)
	if err != nil {
		log.Fatalf("wlcompositor: open sdl backend: %v", err)
	}
	defer backend.Destroy()

	loop := eventloop.New()

	outputEvents := make(chan compositor.OutputEvent, 4)
	signals := compositor.Signals{Output: outputEvents}

	contextFactory := func(b compositor.Backend) (compositor.Context, error) {
		return glcontext.New(b)
	}
	rendererFactory := func(ctx compositor.Context) (compositor.Renderer, error) {
		glctx, ok := ctx.(*glcontext.Context)
		if !ok {
			return nil, fmt.Errorf("wlcompositor: unexpected context type %T", ctx)
		}
		return glrenderer.New(glctx, *backgroundGLB)
	}

	info := compositor.Information{
		Name:             "WL-1",
		Make:             "wlcompositor",
		Model:            "virtual",
		PhysicalWidthMM:  int32(*width) / 3,
		PhysicalHeightMM: int32(*height) / 3,
		Subpixel:         compositor.SubpixelUnknown,
		Transform:        compositor.TransformNormal,
		Scale:            1,
		Modes: []compositor.Mode{{
			Flags:      compositor.ModeCurrent | compositor.ModePreferred,
			Width:      int32(*width),
			Height:     int32(*height),
			RefreshMHz: 60000,
		}},
	}

	// active is nil: this demo has no session/foreground concept of its
	// own, so the output is always considered foreground.
	output, err := compositor.NewOutput(loop, signals, binding, contextFactory, rendererFactory, backend, info, nil, *backgroundGLB != "")
	if err != nil {
		log.Fatalf("wlcompositor: create output: %v", err)
	}

	// Wired after construction: the PageFlip hook fires from inside
	// Context.Swap, so it must close over the output it should report
	// completion to, not the other way around.
	backend.SetPageFlip(func() { output.FinishFrame(nowMs()) })

	surface := compositor.NewSurface(1)
	view := &desktopView{surface: surface, geom: compositor.Rectangle{Width: int32(*width), Height: int32(*height)}}
	output.FocusedSpace().AddView(view)

	var stopOnce sync.Once
	stop := make(chan struct{})
	closeStop := func() { stopOnce.Do(func() { close(stop) }) }

	go func() {
		for ev := range outputEvents {
			if ev.Kind == compositor.OutputEventRemove {
				log.Printf("wlcompositor: output removed")
				closeStop()
				return
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var tick compositor.Timer
	tick = loop.NewTimer(func() {
		select {
		case <-sigCh:
			log.Println("wlcompositor: shutting down...")
			output.Terminate()
		default:
		}

		backend.PollEvents()
		if backend.Quitting() {
			output.Terminate()
		}

		if buf, w, h, _ := binding.DrawDesktop(); len(buf) > 0 {
			view.created = true
			view.attached = true
			compositor.SurfaceAttach(output, surface, &glrenderer.PixelBuffer{Width: w, Height: h, Pixels: buf})
		}

		if streamSrv.WebSocketClientCount() > 0 {
			output.GetPixels(func(w, h int32, rgba []byte) {
				streamSrv.BroadcastFrame(rgba, int(w), int(h))
			})
		}

		select {
		case <-stop:
		default:
			tick.Arm(16 * time.Millisecond)
		}
	})
	tick.Arm(16 * time.Millisecond)

	log.Println("wlcompositor: starting render loop")
	loop.Run(stop)

	output.Destroy()
}

func nowMs() uint32 {
	t := time.Now()
	return uint32(t.Unix()*1000 + int64(t.Nanosecond())/1_000_000)
}

func compositorIcon() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{0, 0, 255, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		log.Fatalf("wlcompositor: encode icon: %v", err)
	}
	return buf.Bytes()
}

// desktopView is the single full-output view standing in for a layout
// stack: the wire collaborator here (term.everything) exposes one
// composited desktop buffer rather than per-surface commits, so this
// demo has exactly one view per output, backed by that buffer, rather
// than one view per client surface. A compositor built on a wire
// library that exposes per-surface commits would have one of these per
// surface instead.
type desktopView struct {
	surface  *compositor.Surface
	geom     compositor.Rectangle
	attached bool
	created  bool
}

func (v *desktopView) Geometry() compositor.Rectangle { return v.geom }
func (v *desktopView) Opaque() bool                   { return true }
func (v *desktopView) Attached() bool                 { return v.attached }
func (v *desktopView) Created() bool                  { return v.created }

// TakeFrameCallbacks always returns nil: term.everything acknowledges
// wl_callback.done itself on its own frame-request channel (see
// wire.Binding.serveFrameCallbacks), so no callback ever reaches this
// view to batch and signal post-swap.
func (v *desktopView) TakeFrameCallbacks() []compositor.FrameCallback { return nil }

// BackingSurface implements glrenderer.SurfaceSource.
func (v *desktopView) BackingSurface() *compositor.Surface { return v.surface }
