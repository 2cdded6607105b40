// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/noldarim/pipewatch/internal/dashboard"
	"github.com/noldarim/pipewatch/internal/pipeline"
	"github.com/samber/lo"
)

const (
	// WebSocket limits
	maxMessageSize = 4096
	maxFilters     = 50
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	writeWait      = 10 * time.Second
	maxClients     = 1000
)

// newUpgrader accepts any origin when allowedOrigins is empty, otherwise only
// the listed ones.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, r.Header.Get("Origin"))
		},
	}
}

// wsClient represents a single connected WebSocket client. A client with no
// pipeline filters receives every row.
type wsClient struct {
	conn      *websocket.Conn
	send      chan []byte
	pipelines []string
	mu        sync.RWMutex
}

// ClientRegistry manages all connected WebSocket clients.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// NewClientRegistry creates a new client registry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{
		clients: make(map[*wsClient]struct{}),
	}
}

// Len returns the number of connected clients.
func (r *ClientRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Broadcast sends the cycle to every client, restricted to its filters.
func (r *ClientRegistry) Broadcast(c *pipeline.Cycle) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for client := range r.clients {
		data, err := client.encode(c)
		if err != nil {
			getLog().Error().Err(err).Msg("Failed to marshal cycle for WebSocket broadcast")
			continue
		}
		select {
		case client.send <- data:
		default:
			getLog().Warn().Msg("Dropping cycle for slow WebSocket client")
		}
	}
}

func (r *ClientRegistry) add(c *wsClient) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.clients) >= maxClients {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

func (r *ClientRegistry) remove(c *wsClient) {
	r.mu.Lock()
	delete(r.clients, c)
	r.mu.Unlock()
}

// wsMessage is the envelope for client → server messages.
type wsMessage struct {
	Type     string `json:"type"` // "subscribe" or "unsubscribe"
	Pipeline string `json:"pipeline"`
}

// wsOutMessage is the envelope for server → client messages.
type wsOutMessage struct {
	Type       string                  `json:"type"` // "cycle"
	Cycle      string                  `json:"cycle"`
	FinishedAt time.Time               `json:"finished_at"`
	Pipelines  []pipeline.Row          `json:"pipelines"`
	Failures   []pipeline.FetchFailure `json:"failures,omitempty"`
}

func (c *wsClient) encode(cycle *pipeline.Cycle) ([]byte, error) {
	c.mu.RLock()
	filters := slices.Clone(c.pipelines)
	c.mu.RUnlock()

	rows := cycle.Rows()
	if len(filters) > 0 {
		rows = lo.Filter(rows, func(r pipeline.Row, _ int) bool {
			return slices.Contains(filters, r.Name)
		})
	}
	if rows == nil {
		rows = []pipeline.Row{}
	}
	return json.Marshal(wsOutMessage{
		Type:       "cycle",
		Cycle:      cycle.ID,
		FinishedAt: cycle.FinishedAt,
		Pipelines:  rows,
		Failures:   cycle.Failures,
	})
}

// HandleWebSocket upgrades the connection, sends the latest cycle if there is
// one, and then streams every new cycle.
func HandleWebSocket(registry *ClientRegistry, state *dashboard.State, allowedOrigins []string) http.HandlerFunc {
	upgrader := newUpgrader(allowedOrigins)

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			getLog().Error().Err(err).Msg("WebSocket upgrade failed")
			return
		}

		client := &wsClient{
			conn: conn,
			send: make(chan []byte, 16),
		}
		if !registry.add(client) {
			getLog().Warn().Msg("WebSocket connection limit reached")
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many connections"))
			conn.Close()
			return
		}
		getLog().Info().Str("remote", r.RemoteAddr).Msg("WebSocket client connected")

		if latest := state.Latest(); latest != nil {
			if data, err := client.encode(latest); err == nil {
				select {
				case client.send <- data:
				default:
				}
			}
		}

		go client.writePump()
		client.readPump(registry)
	}
}

func (c *wsClient) readPump(registry *ClientRegistry) {
	defer func() {
		registry.remove(c)
		close(c.send) // signals writePump to exit
		c.conn.Close()
		getLog().Info().Msg("WebSocket client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				getLog().Error().Err(err).Msg("WebSocket read error")
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil || msg.Pipeline == "" {
			getLog().Warn().Err(err).Msg("Invalid WebSocket message")
			continue
		}

		c.mu.Lock()
		switch msg.Type {
		case "subscribe":
			if len(c.pipelines) >= maxFilters {
				getLog().Warn().Msg("WebSocket client hit max filter limit")
			} else if !slices.Contains(c.pipelines, msg.Pipeline) {
				c.pipelines = append(c.pipelines, msg.Pipeline)
				getLog().Debug().Str("pipeline", msg.Pipeline).Msg("WebSocket client subscribed")
			}
		case "unsubscribe":
			c.pipelines = lo.Without(c.pipelines, msg.Pipeline)
			getLog().Debug().Str("pipeline", msg.Pipeline).Msg("WebSocket client unsubscribed")
		}
		c.mu.Unlock()
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed by readPump, send close frame.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				getLog().Error().Err(err).Msg("WebSocket write error")
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
