/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

// Client is one live WebSocket connection. Once bound it speaks for a single
// participant in a single room; the binding is replaced wholesale on
// reconnect.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan any

	room string
	name string

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan any, 8),
	}
}

// push queues msg without blocking. A false return means the client is gone
// or its buffer is full and it should be dropped.
func (c *Client) push(msg any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (c *Client) readPump(ct *Controller) {
	defer func() {
		ct.Disconnect(c)
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		ct.dispatch(c, msg)
	}
}

// Broadcaster tracks which connection currently speaks for each participant,
// and fans room events out to them. Clients are always removed from the maps
// before their send channel is closed, so a push can never hit a closed
// channel.
type Broadcaster struct {
	mu    sync.Mutex
	rooms map[string]map[string]*Client
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		rooms: make(map[string]map[string]*Client),
	}
}

// Bind associates c with a room and participant name, replacing any previous
// connection for the same identity. The replaced connection is closed.
func (b *Broadcaster) Bind(c *Client, code, name string) {
	b.mu.Lock()

	clients, ok := b.rooms[code]
	if !ok {
		clients = make(map[string]*Client)
		b.rooms[code] = clients
	}

	prev := clients[name]
	clients[name] = c
	c.room = code
	c.name = name

	b.mu.Unlock()

	if prev != nil && prev != c {
		prev.close()
	}
}

// Unbind clears c's binding if it is still the live connection for its
// identity. A newer connection for the same name is left alone.
func (b *Broadcaster) Unbind(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clients, ok := b.rooms[c.room]
	if !ok || clients[c.name] != c {
		return
	}

	delete(clients, c.name)
	if len(clients) == 0 {
		delete(b.rooms, c.room)
	}
}

// BroadcastToRoom delivers msg to every bound connection in the room,
// dropping clients that cannot keep up.
func (b *Broadcaster) BroadcastToRoom(code string, msg any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for name, c := range b.rooms[code] {
		if !c.push(msg) {
			delete(b.rooms[code], name)
			c.close()
		}
	}
}

// SendToParticipant delivers msg to the named participant if they currently
// have a live connection, and silently drops it otherwise.
func (b *Broadcaster) SendToParticipant(code, name string, msg any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.rooms[code][name]
	if !ok {
		return
	}

	if !c.push(msg) {
		delete(b.rooms[code], name)
		c.close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveWS upgrades the connection for a room page and hands it to the
// controller's dispatch loop.
func serveWS(ct *Controller) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := ps.ByName("code")
		if code == "" {
			http.Error(w, "missing room code", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug().Err(err).Str("from", realIP(r)).Msg("Websocket upgrade failed")
			return
		}

		c := newClient(conn)
		c.room = code

		go c.writePump()
		c.readPump(ct)
	}
}
