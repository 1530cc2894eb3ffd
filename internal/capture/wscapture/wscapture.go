// Package wscapture lets a remote camera, typically a phone browser, act as
// the capture device. The client connects to /capture, sends a JSON hello
// of {"type":"grant"} or {"type":"deny"}, then streams encoded image frames
// as binary messages.
package wscapture

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/codescan/internal/capture"
	"github.com/MeKo-Tech/codescan/internal/codec"
	"github.com/MeKo-Tech/codescan/internal/metrics"
)

// Hello message types.
const (
	HelloGrant = "grant"
	HelloDeny  = "deny"
)

// Hello is the first message a client sends.
type Hello struct {
	Type       string `json:"type"`
	FacingMode string `json:"facing_mode,omitempty"`
}

// Reply acknowledges the hello.
type Reply struct {
	Type       string `json:"type"` // "streaming" or "rejected"
	FacingMode string `json:"facing_mode,omitempty"`
	Error      string `json:"error,omitempty"`
}

const (
	helloTimeout = 30 * time.Second
	readTimeout  = 60 * time.Second
	maxFrameSize = 16 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type offer struct {
	conn  *websocket.Conn
	hello Hello
	taken chan *track
}

// Server hands incoming camera connections to Acquire callers.
type Server struct {
	offers chan offer
}

// NewServer returns a server with no pending connections.
func NewServer() *Server {
	return &Server{offers: make(chan offer)}
}

// Router returns a router serving the /capture websocket endpoint.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/capture", s.handleCapture).Methods(http.MethodGet)
	return r
}

// Acquire waits for the next client. A client that sends "deny" yields
// ErrNoPermission.
func (s *Server) Acquire(ctx context.Context, c capture.Constraints) (capture.Resource, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-s.offers:
		if o.hello.Type != HelloGrant {
			o.taken <- nil
			return nil, capture.ErrNoPermission
		}
		t := newTrack(o.conn)
		o.taken <- t
		slog.Info("Remote camera connected", "remote_addr", o.conn.RemoteAddr().String(), "facing_mode", c.FacingMode)
		return &resource{video: t}, nil
	}
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()
	conn.SetReadLimit(maxFrameSize)

	_ = conn.SetReadDeadline(time.Now().Add(helloTimeout))
	var hello Hello
	if err := conn.ReadJSON(&hello); err != nil {
		slog.Warn("Invalid capture hello", "error", err)
		return
	}
	if hello.Type != HelloGrant && hello.Type != HelloDeny {
		_ = conn.WriteJSON(Reply{Type: "rejected", Error: fmt.Sprintf("unknown hello type %q", hello.Type)})
		return
	}

	o := offer{conn: conn, hello: hello, taken: make(chan *track, 1)}
	select {
	case s.offers <- o:
	case <-r.Context().Done():
		return
	}

	t := <-o.taken
	if t == nil {
		_ = conn.WriteJSON(Reply{Type: "rejected", Error: "permission denied"})
		return
	}
	_ = conn.WriteJSON(Reply{Type: "streaming", FacingMode: hello.FacingMode})
	t.readLoop()
}

type resource struct{ video *track }

func (r *resource) Tracks() []capture.Track { return []capture.Track{r.video} }

type track struct {
	conn     *websocket.Conn
	slot     capture.Latest
	stopOnce sync.Once
	stopped  chan struct{}
}

func newTrack(conn *websocket.Conn) *track {
	return &track{conn: conn, stopped: make(chan struct{})}
}

func (t *track) Kind() capture.TrackKind    { return capture.KindVideo }
func (t *track) Frame() (image.Image, bool) { return t.slot.Get() }

// Stop closes the connection, which ends the read loop.
func (t *track) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopped)
		deadline := time.Now().Add(time.Second)
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "capture stopped"), deadline)
		_ = t.conn.Close()
	})
}

func (t *track) readLoop() {
	for {
		_ = t.conn.SetReadDeadline(time.Now().Add(readTimeout))
		mt, data, err := t.conn.ReadMessage()
		if err != nil {
			select {
			case <-t.stopped:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Warn("Remote camera disconnected", "error", err)
				}
			}
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		img, _, err := codec.DecodeBytes(data)
		if err != nil {
			metrics.CaptureFrame("invalid")
			slog.Debug("Dropping undecodable frame", "error", err)
			continue
		}
		if t.slot.Put(img) {
			metrics.CaptureFrame("replaced")
		} else {
			metrics.CaptureFrame("accepted")
		}
	}
}
