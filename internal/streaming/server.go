// Package streaming is the debug WebSocket/HTTP surface: it mirrors
// pixel-readback frames to connected browser clients and routes their
// keyboard/mouse input back into the compositor. BroadcastFrame is
// meant to be called from the callback passed to
// compositor.Output.GetPixels (one readback in, one broadcast out)
// rather than free-running on a fixed tick.
package streaming

import (
	"encoding/binary"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// KeyboardEventHandler receives forwarded keyboard input from a debug
// WebSocket client.
type KeyboardEventHandler func(keycode uint32, pressed bool)

// MouseEventType discriminates the mouse messages on the debug socket.
type MouseEventType uint8

const (
	MouseEventMotion MouseEventType = 0
	MouseEventButton MouseEventType = 1
	MouseEventScroll MouseEventType = 2
)

// MouseEventHandler receives forwarded pointer input.
type MouseEventHandler func(eventType MouseEventType, x, y float32, button uint32, pressed bool, scrollDelta float32)

// WebSocketServer manages WebSocket connections that receive readback
// frames and send back input.
type WebSocketServer struct {
	clients         map[*websocket.Conn]bool
	mu              sync.RWMutex
	upgrader        websocket.Upgrader
	keyboardHandler KeyboardEventHandler
	mouseHandler    MouseEventHandler
}

// NewWebSocketServer creates an empty server. The write buffer is 1 MiB;
// a larger RGBA8 frame is written through it in several fragments.
func NewWebSocketServer() *WebSocketServer {
	return &WebSocketServer{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *WebSocketServer) SetKeyboardHandler(handler KeyboardEventHandler) { s.keyboardHandler = handler }
func (s *WebSocketServer) SetMouseHandler(handler MouseEventHandler)       { s.mouseHandler = handler }

// HandleWebSocket upgrades and registers a client, then services its
// incoming input messages until it disconnects.
func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("streaming: websocket upgrade: %v", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()
	log.Printf("streaming: client connected, total %d", len(s.clients))

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
			log.Printf("streaming: client disconnected, total %d", len(s.clients))
		}()

		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				return
			}
			// type:1 = keyboard [type][keycode:4][pressed:1]
			// type:2 = mouse    [type][eventType:1][x:4][y:4][button:4][pressed:1][scrollDelta:4]
			if messageType != websocket.BinaryMessage || len(message) < 6 {
				continue
			}
			switch message[0] {
			case 1:
				if s.keyboardHandler != nil {
					keycode := binary.LittleEndian.Uint32(message[1:5])
					s.keyboardHandler(keycode, message[5] != 0)
				}
			case 2:
				if s.mouseHandler != nil && len(message) >= 19 {
					eventType := MouseEventType(message[1])
					x := math.Float32frombits(binary.LittleEndian.Uint32(message[2:6]))
					y := math.Float32frombits(binary.LittleEndian.Uint32(message[6:10]))
					button := binary.LittleEndian.Uint32(message[10:14])
					pressed := message[14] != 0
					scrollDelta := math.Float32frombits(binary.LittleEndian.Uint32(message[15:19]))
					s.mouseHandler(eventType, x, y, button, pressed, scrollDelta)
				}
			}
		}
	}()
}

// BroadcastFrame sends one readback result to every connected client.
// Wire format: [width:4][height:4][stride:4][rgba data].
func (s *WebSocketServer) BroadcastFrame(rgba []byte, width, height int) {
	if len(rgba) == 0 {
		return
	}
	stride := width * 4
	header := make([]byte, 12)
	binary.LittleEndian.PutUint32(header[0:4], uint32(width))
	binary.LittleEndian.PutUint32(header[4:8], uint32(height))
	binary.LittleEndian.PutUint32(header[8:12], uint32(stride))
	message := append(header, rgba...)

	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		if err := c.WriteMessage(websocket.BinaryMessage, message); err != nil {
			log.Printf("streaming: send to client: %v", err)
			c.Close()
			s.mu.Lock()
			delete(s.clients, c)
			s.mu.Unlock()
		}
	}
}

func (s *WebSocketServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Server wraps the debug HTTP server: static file serving, the frame
// WebSocket, and a health check.
type Server struct {
	ws     *WebSocketServer
	server *http.Server
}

// New builds a Server listening on addr and serving staticDir at "/".
func New(addr, staticDir string) *Server {
	ws := NewWebSocketServer()
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	mux.HandleFunc("/ws", ws.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &Server{
		ws: ws,
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Start runs the HTTP server in the background.
func (s *Server) Start() error {
	log.Printf("streaming: listening on %s", s.server.Addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("streaming: server: %v", err)
		}
	}()
	return nil
}

// Stop closes the HTTP server immediately.
func (s *Server) Stop() error { return s.server.Close() }

// BroadcastFrame forwards to the underlying WebSocketServer. Intended
// caller: the func(width, height int32, rgba []byte) callback passed to
// compositor.Output.GetPixels.
func (s *Server) BroadcastFrame(rgba []byte, width, height int) { s.ws.BroadcastFrame(rgba, width, height) }

func (s *Server) WebSocketClientCount() int { return s.ws.ClientCount() }

func (s *Server) SetKeyboardHandler(handler KeyboardEventHandler) { s.ws.SetKeyboardHandler(handler) }
func (s *Server) SetMouseHandler(handler MouseEventHandler)       { s.ws.SetMouseHandler(handler) }
