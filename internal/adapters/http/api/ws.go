// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/slate/internal/domain/model"
	"github.com/okian/slate/pkg/logger"
)

const (
	// writeWait is how long a single frame write may take before the
	// connection is considered dead.
	writeWait = 10 * time.Second
	// pongWait bounds how long we wait for a pong before dropping the client.
	pongWait = 60 * time.Second
	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// maxDirectiveSize bounds inbound client frames.
	maxDirectiveSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The dashboard is served from the same process, but operators also
	// attach external tooling to the feed, so any origin is accepted.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// directive is a control message sent by a connected client. "subscribe"
// narrows the feed to the listed task ids (an empty list resets the filter);
// "ping" requests an application-level pong.
type directive struct {
	Action string   `json:"action"`
	Tasks  []string `json:"tasks,omitempty"`
}

// control frames sent to the client alongside feed messages.
type controlMessage struct {
	Kind       string    `json:"kind"`
	ObserverID string    `json:"observer_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// feedObserver is the slice of broadcast.Observer the feed client needs.
type feedObserver interface {
	ID() string
	C() <-chan model.Message
	Close()
}

// FeedHandler upgrades HTTP connections to WebSocket and streams feed
// messages to each client through its own observer.
type FeedHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewFeedHandler creates a feed handler backed by the given dependencies.
func NewFeedHandler(deps Dependencies) *FeedHandler {
	return &FeedHandler{
		deps: deps,
		log:  logger.Get().Named("feed"),
	}
}

// HandleFeed handles GET /ws requests.
func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	obs := h.deps.Subscribe()
	client := &feedClient{
		conn:       conn,
		obs:        obs,
		directives: make(chan directive, 4),
		log:        h.log,
	}

	go client.writeLoop()
	client.readLoop()
}

// feedClient pumps messages between one WebSocket connection and an
// observer. The read loop owns the connection lifetime: when it returns the
// observer is closed, which in turn terminates the write loop.
type feedClient struct {
	conn       *websocket.Conn
	obs        feedObserver
	directives chan directive
	log        logger.Logger
}

func (c *feedClient) readLoop() {
	defer func() {
		c.obs.Close()
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxDirectiveSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug(context.Background(), "websocket read ended", logger.Error(err))
			}
			return
		}
		// Any inbound traffic counts as liveness.
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var d directive
		if err := json.Unmarshal(data, &d); err != nil {
			continue
		}
		switch d.Action {
		case "subscribe", "ping":
			select {
			case c.directives <- d:
			default:
				// The client is flooding directives; drop this one.
			}
		}
	}
}

func (c *feedClient) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	if err := c.writeJSON(controlMessage{
		Kind:       "welcome",
		ObserverID: c.obs.ID(),
		Timestamp:  time.Now().UTC(),
	}); err != nil {
		return
	}

	var tasks map[string]struct{}
	for {
		select {
		case msg, ok := <-c.obs.C():
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if tasks != nil {
				if _, ok := tasks[msg.TaskID]; !ok {
					continue
				}
			}
			if err := c.writeJSON(msg); err != nil {
				return
			}
		case d := <-c.directives:
			switch d.Action {
			case "ping":
				if err := c.writeJSON(controlMessage{Kind: "pong", Timestamp: time.Now().UTC()}); err != nil {
					return
				}
			case "subscribe":
				if len(d.Tasks) == 0 {
					tasks = nil
					continue
				}
				tasks = make(map[string]struct{}, len(d.Tasks))
				for _, id := range d.Tasks {
					tasks[id] = struct{}{}
				}
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *feedClient) writeJSON(v any) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}
