package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Client is one connected WebSocket. All writes go through its send queue
// and a single WritePump goroutine.
type Client struct {
	ChannelID string
	UserID    string

	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewClient wraps an upgraded connection.
func NewClient(conn *websocket.Conn, channelID, userID string) *Client {
	return &Client{
		ChannelID: channelID,
		UserID:    userID,
		conn:      conn,
		send:      make(chan []byte, 64),
	}
}

// Send queues v for the client. It fails instead of blocking when the
// client is not keeping up.
func (c *Client) Send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

func (c *Client) enqueue(data []byte) (err error) {
	defer func() {
		// send is closed once the client is gone.
		if recover() != nil {
			err = fmt.Errorf("client %s disconnected", c.UserID)
		}
	}()
	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("client %s send queue full", c.UserID)
	}
}

func (c *Client) close() {
	c.once.Do(func() { close(c.send) })
}

// WritePump drains the send queue onto the connection and keeps it alive
// with pings. It returns when the queue is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub tracks connected clients per chat channel and broadcasts feed events
// to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	log     zerolog.Logger
}

// NewHub creates an empty Hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		log:     log.With().Str("component", "ws_hub").Logger(),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.ChannelID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.ChannelID] = set
	}
	set[c] = struct{}{}
}

// Unregister removes c and closes its send queue.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.ChannelID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.ChannelID)
		}
	}
	h.mu.Unlock()
	c.close()
}

// Count is the number of clients watching channelID.
func (h *Hub) Count(channelID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[channelID])
}

// Publish broadcasts ev to every client of the channel. Clients that cannot
// keep up miss the event.
func (h *Hub) Publish(_ context.Context, channelID string, ev FeedEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal feed event: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[channelID] {
		if err := c.enqueue(data); err != nil {
			h.log.Warn().Err(err).Str("channel_id", channelID).Msg("Dropping feed event for client")
		}
	}
	return nil
}
