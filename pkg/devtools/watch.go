package devtools

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/vstore/pkg/binding"
	"github.com/vango-dev/vstore/pkg/middleware"
	"github.com/vango-dev/vstore/pkg/patch"
	"github.com/vango-dev/vstore/pkg/track"
	"github.com/vango-dev/vstore/pkg/tree"
)

// FrameType is the type of a watch frame.
type FrameType string

const (
	// FrameSnapshot carries every watched value.
	FrameSnapshot FrameType = "snapshot"
	// FrameChange carries a merge patch against the previous values.
	FrameChange FrameType = "change"
	// FrameError reports a bad watch request before the socket closes.
	FrameError FrameType = "error"
)

// Frame is sent to watch clients. Values and Patch are objects keyed by
// the watched path.
type Frame struct {
	Type    FrameType       `json:"type"`
	Client  string          `json:"client"`
	Version uint64          `json:"version"`
	Values  *tree.Node      `json:"values,omitempty"`
	Patch   json.RawMessage `json:"patch,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// hub tracks connected watch clients.
type hub struct {
	mu      sync.RWMutex
	clients map[*watcher]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[*watcher]struct{})}
}

func (h *hub) add(w *watcher) {
	h.mu.Lock()
	h.clients[w] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(w *watcher) {
	h.mu.Lock()
	delete(h.clients, w)
	h.mu.Unlock()
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) closeAll() {
	h.mu.RLock()
	clients := make([]*watcher, 0, len(h.clients))
	for w := range h.clients {
		clients = append(clients, w)
	}
	h.mu.RUnlock()

	for _, w := range clients {
		w.stop()
	}
}

// watcher is one websocket client. Its binding wakes the write loop, which
// is the only goroutine writing to conn.
type watcher struct {
	id      string
	conn    *websocket.Conn
	paths   []tree.Path
	binding *binding.Immediate
	timeout time.Duration

	wake chan struct{}
	done chan struct{}
	once sync.Once

	last *tree.Node
}

func (w *watcher) notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *watcher) stop() {
	w.once.Do(func() { close(w.done) })
}

// read opens a session on the binding, reads every watched path and
// returns the values keyed by path.
func (w *watcher) read() (*tree.Node, uint64) {
	var values *tree.Node
	w.binding.Render(func(v *track.View, _ binding.UpdateFunc) {
		fields := make([]tree.Field, 0, len(w.paths))
		for _, p := range w.paths {
			n := v.At(p).Node()
			if n == nil {
				n = tree.Null()
			}
			fields = append(fields, tree.Field{Key: p.String(), Value: n})
		}
		values = tree.Object(fields...)
	})
	return values, w.binding.Seen().Version
}

// frame builds the next frame, or returns false when nothing watched
// changed since the last one.
func (w *watcher) frame() (Frame, bool, error) {
	values, version := w.read()
	if w.last == nil {
		w.last = values
		return Frame{Type: FrameSnapshot, Client: w.id, Version: version, Values: values}, true, nil
	}
	if tree.Equal(w.last, values) {
		return Frame{}, false, nil
	}
	diff, err := patch.Diff(w.last, values)
	if err != nil {
		return Frame{}, false, err
	}
	w.last = values
	return Frame{Type: FrameChange, Client: w.id, Version: version, Patch: diff}, true, nil
}

func (w *watcher) send(f Frame) error {
	if err := w.conn.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil {
		return err
	}
	return w.conn.WriteJSON(f)
}

// sendError reports cause to the client before the connection is closed.
func (s *Server) sendError(w *watcher, cause error) {
	if err := w.send(Frame{Type: FrameError, Client: w.id, Error: cause.Error()}); err != nil {
		s.logger.Debug("watch error frame failed", "client", w.id, "cause", cause, "error", err)
	}
}

func (s *Server) handleWatch(rw http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()["path"]
	if len(query) == 0 {
		query = []string{"$"}
	}
	paths := make([]tree.Path, 0, len(query))
	for _, q := range query {
		p, err := tree.ParsePath(q)
		if err != nil {
			s.writeError(rw, http.StatusBadRequest, err)
			return
		}
		paths = append(paths, p)
	}

	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		s.logger.Debug("watch upgrade failed", "error", err)
		return
	}

	w := &watcher{
		id:      uuid.NewString(),
		conn:    conn,
		paths:   paths,
		timeout: s.writeTimeout,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	w.binding = binding.NewImmediate(s.store, w.notify)
	s.hub.add(w)
	middleware.RecordWatcherConnect(s.store.Name())
	s.logger.Info("watch client connected", "client", w.id, "paths", len(paths))

	defer func() {
		w.binding.Close()
		s.hub.remove(w)
		middleware.RecordWatcherDisconnect(s.store.Name())
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		conn.Close()
		s.logger.Info("watch client disconnected", "client", w.id)
	}()

	// Reads only detect the client going away.
	go func() {
		defer w.stop()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	w.notify()
	for {
		select {
		case <-w.done:
			return
		case <-w.wake:
			f, ok, err := w.frame()
			if err != nil {
				s.sendError(w, err)
				return
			}
			if !ok {
				continue
			}
			if err := w.send(f); err != nil {
				s.logger.Debug("watch write failed", "client", w.id, "error", err)
				return
			}
		}
	}
}
