// Package kds pushes ledger events to connected kitchen displays, cashier
// screens and order trackers over websockets.
package kds

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Subscription selects what a client receives: every event of its company,
// or with OrderID set only the events of that order.
type Subscription struct {
	CompanyID uint
	OrderID   uint
	Role      string
}

func (s Subscription) matches(e events.Event) bool {
	if s.CompanyID != e.CompanyID {
		return false
	}
	return s.OrderID == 0 || s.OrderID == e.OrderID
}

type client struct {
	conn *websocket.Conn
	sub  Subscription
	send chan []byte
}

// Hub is an events.Emitter; it never blocks on a slow client, which is
// disconnected once its buffer fills up.
type Hub struct {
	clients map[*client]struct{}
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Serve registers conn and blocks until the peer goes away.
func (h *Hub) Serve(conn *websocket.Conn, sub Subscription) {
	c := &client{conn: conn, sub: sub, send: make(chan []byte, sendBuffer)}
	h.register(c)
	go h.writePump(c)
	h.readPump(c)
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

func (h *Hub) Emit(e events.Event) {
	data, err := json.Marshal(Message{Event: e.Name, Data: e})
	if err != nil {
		utils.ErrorLogger.Errorf("kds: marshal %s: %v", e.Name, err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	sent := 0
	for c := range h.clients {
		if !c.sub.matches(e) {
			continue
		}
		select {
		case c.send <- data:
			sent++
		default:
			utils.ErrorLogger.WithFields(logrus.Fields{
				"company_id": c.sub.CompanyID,
				"role":       c.sub.Role,
			}).Error("kds: client too slow, disconnecting")
			h.removeLocked(c)
		}
	}
	utils.InfoLogger.WithFields(logrus.Fields{
		"event":      e.Name,
		"company_id": e.CompanyID,
		"clients":    sent,
	}).Debug("kds: broadcast")
}

func (h *Hub) register(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[c] = struct{}{}
	utils.InfoLogger.WithFields(logrus.Fields{
		"company_id": c.sub.CompanyID,
		"order_id":   c.sub.OrderID,
		"role":       c.sub.Role,
	}).Info("kds: client connected")
}

func (h *Hub) unregister(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// readPump only drains control frames; clients never send commands.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
