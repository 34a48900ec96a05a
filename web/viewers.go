package web

import (
	"bytes"
	"encoding/json"
	"image/jpeg"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/mogaika/gamestop/app"
	"github.com/mogaika/gamestop/utils"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 2
)

type viewer struct {
	name string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans rendered frames out to every connected viewer.
// A viewer that falls behind loses frames instead of stalling the loop.
type Hub struct {
	Quality int

	mu      sync.Mutex
	viewers map[*viewer]struct{}
	names   utils.RandomNameGenerator

	encoded uint64
	dropped uint64
}

func NewHub(quality int) *Hub {
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	return &Hub{Quality: quality, viewers: make(map[*viewer]struct{})}
}

func (h *Hub) register(conn *websocket.Conn) *viewer {
	v := &viewer{name: h.names.RandomName(), conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.viewers[v] = struct{}{}
	n := len(h.viewers)
	h.mu.Unlock()
	log.Infof("[web] Viewer %s connected from %s (%d watching)", v.name, conn.RemoteAddr(), n)
	return v
}

func (h *Hub) unregister(v *viewer) {
	h.mu.Lock()
	_, ok := h.viewers[v]
	if ok {
		delete(h.viewers, v)
		close(v.send)
	}
	n := len(h.viewers)
	h.mu.Unlock()
	if ok {
		h.names.Release(v.name)
		log.Infof("[web] Viewer %s left (%d watching)", v.name, n)
	}
}

func (h *Hub) Viewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}

// Stats returns encoded and dropped frame counts.
func (h *Hub) Stats() (encoded, dropped uint64) {
	return atomic.LoadUint64(&h.encoded), atomic.LoadUint64(&h.dropped)
}

// Publish encodes f once and queues it for every viewer. It runs on the loop goroutine.
func (h *Hub) Publish(f app.Frame) {
	if h.Viewers() == 0 {
		return
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.Image, &jpeg.Options{Quality: h.Quality}); err != nil {
		log.Errorf("[web] Failed to encode frame %d: %v", f.Index, err)
		return
	}
	atomic.AddUint64(&h.encoded, 1)
	data := buf.Bytes()

	h.mu.Lock()
	defer h.mu.Unlock()
	for v := range h.viewers {
		select {
		case v.send <- data:
		default:
			atomic.AddUint64(&h.dropped, 1)
		}
	}
}

func (v *viewer) hello() []byte {
	data, _ := json.Marshal(struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}{"hello", v.name})
	return data
}

func (h *Hub) writePump(v *viewer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.unregister(v)
		v.conn.Close()
	}()

	v.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := v.conn.WriteMessage(websocket.TextMessage, v.hello()); err != nil {
		return
	}
	for {
		select {
		case frame, ok := <-v.send:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				v.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := v.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				log.Debugf("[web] Viewer %s write error: %v", v.name, err)
				return
			}
		case <-ticker.C:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debugf("[web] Viewer %s ping error: %v", v.name, err)
				return
			}
		}
	}
}

// inputMessage is a browser event: resize, drag, pan or wheel.
type inputMessage struct {
	Type   string  `json:"type"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	DPR    float64 `json:"dpr"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Delta  float64 `json:"delta"`
}

// readPump turns viewer messages into closures on the loop queue.
func (s *Server) readPump(v *viewer) {
	defer func() {
		s.hub.unregister(v)
		v.conn.Close()
	}()
	for {
		_, data, err := v.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debugf("[web] Viewer %s read error: %v", v.name, err)
			}
			return
		}
		var msg inputMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warnf("[web] Viewer %s sent bad message: %v", v.name, err)
			continue
		}
		s.dispatch(msg)
	}
}

func (s *Server) dispatch(msg inputMessage) {
	a := s.app
	switch msg.Type {
	case "resize":
		s.queue.Post(func() { a.Resize(msg.Width, msg.Height, msg.DPR) })
	case "drag":
		s.queue.Post(func() { a.Drag(msg.DX, msg.DY) })
	case "pan":
		s.queue.Post(func() { a.Pan(msg.DX, msg.DY) })
	case "wheel":
		s.queue.Post(func() { a.Wheel(msg.Delta) })
	default:
		log.Debugf("[web] Unknown input %q", msg.Type)
	}
}
