package main

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	authWait          = 5 * time.Second
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 80
)

// Client represents one WebSocket connection to a match room
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
	roomID     string

	// Set after a successful auth frame
	authed   bool
	userID   int64
	username string
	binary   bool
	room     *Room
	slot     int // 0 = spectator

	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a new Client bound to a room id
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr, roomID string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
		roomID:     roomID,
	}
}

// ReadPump reads messages from the WebSocket connection. The first frame
// must be an auth frame within authWait; anything else closes the
// connection with the auth close code.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(authWait))
	c.conn.SetPongHandler(func(string) error {
		if c.authed {
			c.conn.SetReadDeadline(time.Now().Add(pongWait))
		}
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if !c.authed {
				c.closeWith(CloseAuthFailed, "auth timeout")
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		if !c.authed {
			if !c.handleAuth(message) {
				return
			}
			continue
		}
		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
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

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client.
// Drops the message when the client's buffer is full.
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message.
// Prefixes with 0xFF marker byte so WritePump can distinguish from text.
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

// WantsBinary reports whether the client asked for msgpack snapshots
func (c *Client) WantsBinary() bool {
	return c.binary
}

// handleAuth processes the mandatory first frame. Returns false when the
// connection must close.
func (c *Client) handleAuth(raw []byte) bool {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.T != MsgAuth {
		c.closeWith(CloseAuthFailed, "auth frame required")
		return false
	}
	var msg AuthMsg
	if err := json.Unmarshal(env.D, &msg); err != nil {
		c.closeWith(CloseAuthFailed, "malformed auth frame")
		return false
	}
	userID, username, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.closeWith(CloseAuthFailed, "invalid token")
		return false
	}

	room := c.hub.rooms.GetRoom(c.roomID)
	if room == nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "match not found"}})
		return false
	}

	c.authed = true
	c.userID = userID
	c.username = username
	c.binary = msg.Binary
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.hub.SetOnline(userID, c)

	c.room = room
	c.slot = room.Attach(c, userID)
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{UserID: userID, Username: username, Slot: c.slot}})
	return true
}

// handleMessage routes post-auth frames. Malformed frames are logged and
// dropped; the connection stays open.
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error from %s: %v", c.remoteAddr, err)
		return
	}

	switch env.T {
	case MsgPaddleMove:
		var msg PaddleMoveMsg
		if err := json.Unmarshal(env.D, &msg); err != nil {
			log.Printf("bad paddle_move from %s: %v", c.remoteAddr, err)
			return
		}
		if c.room != nil {
			c.room.ApplyMove(c.slot, msg)
		}
	case MsgLeave:
		if c.room != nil {
			c.room.Detach(c)
			c.room = nil
			c.slot = 0
		}
	default:
		log.Printf("unknown message type %q from %s", env.T, c.remoteAddr)
	}
}

// closeWith sends a close frame with the given code before dropping the
// connection
func (c *Client) closeWith(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, msg)
}
