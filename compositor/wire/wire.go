// Package wire is the Wayland wire protocol collaborator: it is the
// only package that imports github.com/mmulet/term.everything/wayland,
// and it exists purely to satisfy compositor.OutputBinding by driving
// that library's client/desktop primitives.
//
// term.everything's public surface bundles client accept, per-client
// frame-callback delivery, and a single fixed-size "desktop"
// compositing target behind wayland.MakeDesktop/MakeClient; it does not
// expose hooks for the wl_output protocol's per-client
// geometry/scale/mode negotiation below that Desktop abstraction. This
// adapter therefore drives the parts the library actually exposes
// (frame callbacks, input forwarding, the desktop buffer) and keeps the
// rest of OutputBinding as intentional no-ops.
package wire

import (
	"log"
	"sync"
	"time"

	"github.com/mmulet/term.everything/wayland"
	"github.com/mmulet/term.everything/wayland/protocols"

	"wlcompositor/compositor"
)

// Binding adapts one term.everything desktop/listener pair into
// compositor.OutputBinding.
type Binding struct {
	listener *wayland.SocketListener
	desktop  *wayland.Desktop
	width    int32
	height   int32

	mu      sync.Mutex
	clients []*wayland.Client
}

// Open starts a socket listener under displayName (empty auto-selects
// wayland-N) and a fixed-size desktop, then begins accepting client
// connections in the background.
func Open(displayName string, width, height int32, icon []byte) (*Binding, error) {
	listener, err := wayland.MakeSocketListener(&staticDisplayArgs{name: displayName})
	if err != nil {
		return nil, err
	}
	b := &Binding{
		listener: listener,
		desktop:  wayland.MakeDesktop(wayland.Size{Width: uint32(width), Height: uint32(height)}, false, icon),
		width:    width,
		height:   height,
	}

	go func() {
		if err := listener.MainLoopThenClose(); err != nil {
			log.Printf("wire: listener loop: %v", err)
		}
	}()
	go b.acceptLoop()
	return b, nil
}

// DisplayName returns the negotiated WAYLAND_DISPLAY value.
func (b *Binding) DisplayName() string { return b.listener.WaylandDisplayName }

func (b *Binding) acceptLoop() {
	for conn := range b.listener.OnConnection {
		client := wayland.MakeClient(conn)
		b.mu.Lock()
		b.clients = append(b.clients, client)
		b.mu.Unlock()
		go client.MainLoop()
		go b.serveFrameCallbacks(client)
	}
}

// serveFrameCallbacks acknowledges every frame callback a client
// requests with the current wall-clock time. This package tracks no
// views and hands no callbacks to the core, so none of these reach
// compositor.FrameCallback.Done or carry the scheduler's frame time.
func (b *Binding) serveFrameCallbacks(client *wayland.Client) {
	for callbackID := range client.FrameDrawRequests {
		protocols.WlCallback_done(client, callbackID, uint32(time.Now().UnixMilli()))
		if client.Status != wayland.ClientStatus_Connected {
			return
		}
	}
}

// RegisterGlobal and Unregister have nothing to do below the Desktop
// abstraction: term.everything advertises its single desktop output
// automatically to every connecting client.
func (b *Binding) RegisterGlobal(o *compositor.Output) {}
func (b *Binding) Unregister(o *compositor.Output)      {}

func (b *Binding) Geometry(target compositor.BindTarget, version uint32, o *compositor.Output) {}
func (b *Binding) Scale(target compositor.BindTarget, version uint32, scale int32)              {}
func (b *Binding) Mode(target compositor.BindTarget, version uint32, m compositor.Mode)         {}
func (b *Binding) Done(target compositor.BindTarget, version uint32)                            {}

// Resolution is a no-op today: term.everything's desktop size is fixed
// at MakeDesktop time and the library does not expose a live resize
// call. A future version of this package would reach into whatever
// internal resize hook term.everything grows.
func (b *Binding) Resolution(o *compositor.Output, width, height int32) {}

func (b *Binding) SpaceActivated(s *compositor.Space) {}

// PointerMotion, PointerButton, PointerAxis, and Key implement
// sdlbackend.InputSink, forwarding input to every connected client so
// any Backend can drive the same forwarding path.
func (b *Binding) PointerMotion(x, y int32) {
	wayland.SendPointerMotion(b.activeClients(), float32(x), float32(y))
}

func (b *Binding) PointerButton(button uint32, pressed bool) {
	wayland.SendPointerButton(b.activeClients(), button, pressed)
}

func (b *Binding) PointerAxis(horizontal, vertical float64) {
	wayland.SendPointerAxis(b.activeClients(), protocols.WlPointerAxis_enum_vertical_scroll, float32(vertical))
}

func (b *Binding) Key(linuxKeycode uint32, pressed bool) {
	wayland.SendKeyboardKey(b.activeClients(), linuxKeycode, pressed)
}

// activeClients returns a snapshot of currently-connected clients,
// pruning disconnected ones.
func (b *Binding) activeClients() []*wayland.Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	live := b.clients[:0]
	for _, c := range b.clients {
		if c.Status == wayland.ClientStatus_Connected {
			live = append(live, c)
		}
	}
	b.clients = live
	return append([]*wayland.Client(nil), live...)
}

// DrawDesktop composites every connected client into the desktop buffer
// and returns it. The returned slice is owned by the desktop and is
// only valid until the next DrawDesktop call.
func (b *Binding) DrawDesktop() (buf []byte, width, height int32, stride int) {
	clients := b.activeClients()
	b.desktop.DrawClients(clients)
	return b.desktop.Buffer, b.width, b.height, b.desktop.Stride
}

// staticDisplayArgs implements term.everything's HasDisplayName
// interface over a plain string, since wire has no command-line
// concerns of its own.
type staticDisplayArgs struct{ name string }

func (a *staticDisplayArgs) WaylandDisplayName() string { return a.name }
