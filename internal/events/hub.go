// Package events broadcasts collection-changed notifications to websocket subscribers.
package events

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/backtest-vault/internal/metrics"
)

// Collections
const (
	CollectionBacktest   = "backtest"
	CollectionStrategies = "strategies"
)

// Actions
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	sendBuffer   = 16
)

// Event tells subscribers that a collection changed and should be refetched.
type Event struct {
	Collection string `json:"collection"`
	Action     string `json:"action"`
	ID         int64  `json:"id"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan Event
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// Hub fans events out to every connected subscriber. Slow subscribers are
// dropped rather than blocking publishers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	upgrader    websocket.Upgrader
	logger      *logrus.Logger
	closed      bool
}

// NewHub creates a hub accepting upgrades from the given origins ("*" allows any).
func NewHub(logger *logrus.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		subscribers: make(map[*subscriber]struct{}),
		logger:      logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Publish delivers ev to all current subscribers without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	var slow []*subscriber
	for s := range h.subscribers {
		select {
		case s.send <- ev:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	metrics.RecordEventPublished(ev.Collection, ev.Action)

	for _, s := range slow {
		h.logger.WithField("remote", s.conn.RemoteAddr().String()).Warn("Dropping slow event subscriber")
		h.remove(s)
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// ServeHTTP upgrades the request and streams events until the peer goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}

	s := &subscriber{conn: conn, send: make(chan Event, sendBuffer)}
	if !h.add(s) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	h.logger.WithField("remote", conn.RemoteAddr().String()).Debug("Event subscriber connected")

	go h.writeLoop(s)
	h.readLoop(s)
}

func (h *Hub) add(s *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.subscribers[s] = struct{}{}
	metrics.UpdateEventSubscribers(len(h.subscribers))
	return true
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[s]; ok {
		delete(h.subscribers, s)
		metrics.UpdateEventSubscribers(len(h.subscribers))
	}
	h.mu.Unlock()
	s.close()
}

// readLoop discards inbound frames; it exists to process control frames and
// notice disconnects.
func (h *Hub) readLoop(s *subscriber) {
	defer h.remove(s)

	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(s *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteJSON(ev); err != nil {
				h.logger.WithError(err).Debug("Event write failed")
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		subs = append(subs, s)
	}
	h.subscribers = make(map[*subscriber]struct{})
	metrics.UpdateEventSubscribers(0)
	h.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
}
