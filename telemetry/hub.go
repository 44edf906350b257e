package telemetry

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/milk9111/platformkit/ecs/system"
)

const (
	writeWait      = time.Second
	commandBacklog = 32
)

// Command is a client request to drive a platform: start, stop or reset.
type Command struct {
	Type     string `json:"type"`
	Platform string `json:"platform"`
}

// Apply runs cmd against sim. It reports false for unknown commands and
// platforms.
func Apply(sim *system.Simulation, cmd Command) bool {
	switch cmd.Type {
	case "start":
		return sim.Start(cmd.Platform)
	case "stop":
		return sim.Stop(cmd.Platform)
	case "reset":
		return sim.Reset(cmd.Platform)
	}
	return false
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub upgrades HTTP requests to websocket clients, broadcasts JSON to all
// of them and queues the commands they send. Commands are consumed on the
// simulation goroutine through Commands.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	clients  map[*client]struct{}
	closed   bool
	commands chan Command
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients:  make(map[*client]struct{}),
		commands: make(chan Command, commandBacklog),
	}
}

// Commands delivers client commands in arrival order.
func (h *Hub) Commands() <-chan Command { return h.commands }

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("telemetry: upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Info("telemetry: client connected", zap.String("remote", r.RemoteAddr))

	go h.read(c)
}

func (h *Hub) read(c *client) {
	defer h.drop(c)
	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !errors.Is(err, websocket.ErrCloseSent) {
				h.log.Debug("telemetry: read ended", zap.Error(err))
			}
			return
		}
		select {
		case h.commands <- cmd:
		default:
			h.log.Warn("telemetry: command dropped", zap.String("type", cmd.Type), zap.String("platform", cmd.Platform))
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		_ = c.conn.Close()
		h.log.Info("telemetry: client disconnected")
	}
}

// Broadcast sends v as JSON to every client. Clients whose write fails are
// disconnected.
func (h *Hub) Broadcast(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			h.log.Debug("telemetry: write failed", zap.Error(err))
			h.drop(c)
		}
	}
	return nil
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.mu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(writeWait))
		c.mu.Unlock()
		_ = c.conn.Close()
	}
}
