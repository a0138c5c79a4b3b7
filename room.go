package main

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client is one live connection. conn is nil for test doubles; only the
// pumps touch it.
type client struct {
	conn      *websocket.Conn
	send      chan any
	done      chan struct{}
	closeOnce sync.Once
	playerID  string
	isHost    bool
	name      string
}

func newClient(conn *websocket.Conn, name string, isHost bool) *client {
	return &client{
		conn:   conn,
		send:   make(chan any, 32),
		done:   make(chan struct{}),
		name:   name,
		isHost: isHost,
	}
}

// close releases the connection exactly once. The send channel is never
// closed: the session goroutine and the client's own read pump both send on
// it, so closing would turn a late message into a process-wide panic. Pumps
// and senders watch done instead.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *client) trySend(msg any) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// room tracks the live connections of one session. It is owned by the
// session actor and only ever touched from the session loop, so it needs no
// lock of its own.
type room struct {
	code    string
	clients map[*client]bool
	host    *client
}

func newRoom(code string) *room {
	return &room{
		code:    code,
		clients: make(map[*client]bool),
	}
}

func (r *room) add(c *client) {
	r.clients[c] = true
	if c.isHost && r.host == nil {
		r.host = c
	}
}

// remove drops a client if still present. Safe to call twice; the second
// call is a no-op so pump-exit and eviction paths can race harmlessly.
func (r *room) remove(c *client) bool {
	if !r.clients[c] {
		return false
	}
	delete(r.clients, c)
	c.close()
	if r.host == c {
		r.host = nil
	}
	return true
}

// evict removes a client that can no longer keep up; closing it also closes
// the socket so the read pump notices.
func (r *room) evict(c *client) {
	if r.remove(c) {
		log.Warn().Str("code", r.code).Str("player_id", c.playerID).Msg("send buffer full, evicting client")
	}
}

// broadcast delivers to every connection in the room.
func (r *room) broadcast(msg any) {
	for c := range r.clients {
		if !c.trySend(msg) {
			r.evict(c)
		}
	}
}

// broadcastExcept delivers to everyone but one client, for events the sender
// receives in a different shape (e.g. its own buzzer ack).
func (r *room) broadcastExcept(skip *client, msg any) {
	for c := range r.clients {
		if c == skip {
			continue
		}
		if !c.trySend(msg) {
			r.evict(c)
		}
	}
}

// unicast delivers to a single connection.
func (r *room) unicast(c *client, msg any) {
	if !r.clients[c] {
		return
	}
	if !c.trySend(msg) {
		r.evict(c)
	}
}

// toHost delivers only to the host connection, for host-panel-only events.
func (r *room) toHost(msg any) {
	if r.host != nil {
		r.unicast(r.host, msg)
	}
}

// closeAll disconnects every client. Used on session teardown.
func (r *room) closeAll() {
	for c := range r.clients {
		delete(r.clients, c)
		c.close()
	}
	r.host = nil
}

// serveWS handles the WebSocket handshake for /game/:code/ws. The handshake
// carries the player name and role as query parameters; a host handshake
// against an unused code creates the session, anyone else must match a live
// one.
func serveWS(cfg *Config, reg *Registry, bank *QuestionBank) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := normalizeCode(ps.ByName("code"))
		name := r.URL.Query().Get("name")
		isHost := r.URL.Query().Get("host") == "1" || r.URL.Query().Get("host") == "true"

		if code == "" || name == "" {
			http.Error(w, "game code and player name are required", http.StatusBadRequest)
			return
		}

		var s *Session
		if isHost {
			if reg.Exists(code) {
				http.Error(w, "game already has a host", http.StatusConflict)
				return
			}
			s = newSession(cfg, code, bank, reg)
			if err := reg.Create(s); err != nil {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			go s.run()
		} else {
			var ok bool
			s, ok = reg.Lookup(code)
			if !ok {
				http.Error(w, errRoomNotFound.Error(), http.StatusNotFound)
				return
			}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Str("code", code).Msg("websocket upgrade failed")
			return
		}

		c := newClient(conn, name, isHost)

		go c.writePump()

		if !s.join(c) {
			// Session shut down between lookup and join.
			c.trySend(RejectedMessage{Type: "rejected", Event: "join", Reason: errRoomNotFound.Error()})
			c.close()
			return
		}

		c.readPump(s)
	}
}

func (c *client) readPump(s *Session) {
	defer func() {
		s.leave(c)
		c.close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		if !s.dispatch(c, msg) {
			// Session is gone; tell the client why before hanging up.
			c.trySend(RejectedMessage{Type: "rejected", Event: msg.Type, Reason: errRoomNotFound.Error()})
			return
		}
	}
}

func (c *client) writePump() {
	defer c.close()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
