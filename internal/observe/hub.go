// Package observe streams the running simulation to websocket clients as JSON frames.
package observe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tochemey/goakt/v3/log"

	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/flock"
	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/service"
	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

// Frame types.
const (
	FrameSnapshot = "snapshot"
	FrameCourse   = "course"
)

const (
	clientBuffer = 256
	writeTimeout = 5 * time.Second
)

// Entity is the wire form of one entity state.
type Entity struct {
	ID       int               `json:"id"`
	Role     string            `json:"role,omitempty"`
	Position geometry.Vector3D `json:"position"`
	Velocity geometry.Vector3D `json:"velocity"`
}

// Frame is one message sent to clients.
type Frame struct {
	Type     string   `json:"type"`
	Time     float64  `json:"t"`
	Done     bool     `json:"done,omitempty"`
	Entities []Entity `json:"entities,omitempty"`
}

// Hub fans frames out to every connected client. A client whose buffer is full loses frames
// instead of slowing the simulation down.
type Hub struct {
	logger   log.Logger
	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	dropped  atomic.Uint64

	mu      sync.Mutex
	clients map[uint64]chan []byte
	last    []byte
}

// NewHub returns a hub without clients.
func NewHub(logger log.Logger) *Hub {
	if logger == nil {
		logger = log.DiscardLogger
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[uint64]chan []byte),
	}
}

// Run publishes every snapshot received on ch until ctx is done or ch is closed.
func (h *Hub) Run(ctx context.Context, ch <-chan *service.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-ch:
			if !ok {
				return
			}
			h.Publish(s.At, s.States, s.Done)
		}
	}
}

// Publish sends a snapshot frame. New clients receive the latest one on connection.
func (h *Hub) Publish(at time.Duration, states []flock.State, done bool) {
	f := Frame{Type: FrameSnapshot, Time: at.Seconds(), Done: done, Entities: make([]Entity, 0, len(states))}
	for _, s := range states {
		f.Entities = append(f.Entities, Entity{ID: s.ID, Role: s.Role.String(), Position: s.Position, Velocity: s.Velocity})
	}
	b, err := json.Marshal(f)
	if err != nil {
		h.logger.Errorf("encode snapshot: %v", err)
		return
	}
	h.mu.Lock()
	h.last = b
	h.mu.Unlock()
	h.broadcast(b)
}

// CourseChanged sends a course frame holding the one agent that changed. Its role is left out.
func (h *Hub) CourseChanged(c flock.CourseChange) {
	b, err := json.Marshal(Frame{
		Type:     FrameCourse,
		Time:     c.At.Seconds(),
		Entities: []Entity{{ID: c.ID, Position: c.Position, Velocity: c.Velocity}},
	})
	if err != nil {
		h.logger.Errorf("encode course change: %v", err)
		return
	}
	h.broadcast(b)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns the number of frames lost to slow clients.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func (h *Hub) broadcast(b []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, out := range h.clients {
		select {
		case out <- b:
		default:
			h.dropped.Add(1)
		}
	}
}

func (h *Hub) join() (uint64, chan []byte) {
	id := h.nextID.Add(1)
	out := make(chan []byte, clientBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last != nil {
		out <- h.last
	}
	h.clients[id] = out
	return id, out
}

func (h *Hub) leave(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

// Handler upgrades the request and streams frames until the client goes away. Client messages
// are read and discarded.
func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			h.logger.Debugf("websocket upgrade from %s: %v", r.RemoteAddr, err)
			return
		}
		defer conn.Close()

		id, out := h.join()
		defer h.leave(id)
		h.logger.Infof("observer %d connected from %s", id, r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- fmt.Errorf("observer %d: %w", id, err)
						// unblocks the reader below
						_ = conn.Close()
						return
					}
				}
			}
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		select {
		case err := <-writeErr:
			h.logger.Debugf("observer %d writer stopped: %v", id, err)
		case <-time.After(500 * time.Millisecond):
		}
		h.logger.Infof("observer %d disconnected", id)
	}
}
