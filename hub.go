package main

import "sync"

const (
	maxConnsPerIP = 8
	maxTotalConns = 2000
)

// Hub manages all connected clients and routes them to match rooms
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client

	rooms       *RoomManager
	matchmaker  *Matchmaker
	tournaments *TournamentManager

	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int

	db        *DB
	auth      *Auth
	analytics *Analytics

	// Online auth users: userID -> *Client
	onlineMu    sync.RWMutex
	onlineUsers map[int64]*Client
}

// NewHub wires the hub and the services it owns
func NewHub(db *DB, auth *Auth, analytics *Analytics) *Hub {
	h := &Hub{
		clients:     make(map[*Client]bool),
		register:    make(chan *Client, 64),
		unregister:  make(chan *Client, 64),
		ipConns:     make(map[string]int),
		db:          db,
		auth:        auth,
		analytics:   analytics,
		onlineUsers: make(map[int64]*Client),
	}
	var store ResultStore
	if db != nil {
		store = db
	}
	h.rooms = NewRoomManager(store, analytics)
	h.matchmaker = NewMatchmaker(h.rooms, h, analytics)
	h.tournaments = NewTournamentManager(h.rooms, h, store, analytics)
	return h
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

			if client.room != nil {
				client.room.Detach(client)
			}
			if client.userID != 0 {
				h.SetOffline(client.userID, client)
			}
		}
	}
}

// SetOnline marks an authenticated user as online
func (h *Hub) SetOnline(userID int64, client *Client) {
	h.onlineMu.Lock()
	defer h.onlineMu.Unlock()
	h.onlineUsers[userID] = client
}

// SetOffline removes an authenticated user, but only if this client still
// owns the entry (a reconnect may have replaced it)
func (h *Hub) SetOffline(userID int64, client *Client) {
	h.onlineMu.Lock()
	defer h.onlineMu.Unlock()
	if h.onlineUsers[userID] == client {
		delete(h.onlineUsers, userID)
	}
}

// NotifyUser delivers a message to a user's live session. Returns false
// when the user has no connection.
func (h *Hub) NotifyUser(userID int64, msg Envelope) bool {
	h.onlineMu.RLock()
	client := h.onlineUsers[userID]
	h.onlineMu.RUnlock()
	if client == nil {
		return false
	}
	client.SendJSON(msg)
	return true
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
