package main

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	qrcode "github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// authHandler resolves the Bearer token before calling the handler
type authHandler func(w http.ResponseWriter, r *http.Request, userID int64, username string)

func requireAuth(auth *Auth, next authHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, username, err := auth.ValidateToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r, userID, username)
	}
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub, cfg Config) *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket endpoint: one connection per match
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("room")
		if roomID == "" {
			http.Error(w, "missing room", http.StatusBadRequest)
			return
		}
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade error: %v", err)
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip, roomID)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("POST /api/match", requireAuth(hub.auth, func(w http.ResponseWriter, r *http.Request, userID int64, username string) {
		var cfgReq RoomConfig
		if err := json.NewDecoder(r.Body).Decode(&cfgReq); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request")
			return
		}
		room, err := hub.rooms.CreateRoom(cfgReq)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, err := room.AddPlayer(userID, username); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"match_id": room.ID})
	}))

	mux.HandleFunc("POST /api/match/{id}/join", requireAuth(hub.auth, func(w http.ResponseWriter, r *http.Request, userID int64, username string) {
		room := hub.rooms.GetRoom(r.PathValue("id"))
		if room == nil {
			writeError(w, http.StatusNotFound, "match not found")
			return
		}
		slot, err := room.AddPlayer(userID, username)
		if err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"match_id": room.ID, "slot": slot})
	}))

	mux.HandleFunc("POST /api/queue", requireAuth(hub.auth, func(w http.ResponseWriter, r *http.Request, userID int64, username string) {
		var req struct {
			GameType    string `json:"game_type"`
			SkillBucket int    `json:"skill_bucket"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request")
			return
		}
		if err := hub.matchmaker.Enqueue(userID, username, req.GameType, req.SkillBucket); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		hub.analytics.Track(EvtQueueJoin, userID, "", req.GameType)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	}))

	mux.HandleFunc("DELETE /api/queue", requireAuth(hub.auth, func(w http.ResponseWriter, r *http.Request, userID int64, username string) {
		hub.matchmaker.Remove(userID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	}))

	mux.HandleFunc("POST /api/tournaments", requireAuth(hub.auth, func(w http.ResponseWriter, r *http.Request, userID int64, username string) {
		var req TournamentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request")
			return
		}
		t, err := hub.tournaments.Create(req, userID, username)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"tournament_id": t.ID})
	}))

	mux.HandleFunc("POST /api/tournaments/{id}/join", requireAuth(hub.auth, func(w http.ResponseWriter, r *http.Request, userID int64, username string) {
		t := hub.tournaments.Get(r.PathValue("id"))
		if t == nil {
			writeError(w, http.StatusNotFound, "tournament not found")
			return
		}
		if err := t.AddParticipant(userID, username); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "joined"})
	}))

	mux.HandleFunc("POST /api/tournaments/{id}/start", requireAuth(hub.auth, func(w http.ResponseWriter, r *http.Request, userID int64, username string) {
		t := hub.tournaments.Get(r.PathValue("id"))
		if t == nil {
			writeError(w, http.StatusNotFound, "tournament not found")
			return
		}
		if err := t.Start(userID); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
	}))

	mux.HandleFunc("POST /api/tournaments/{id}/matches/{matchId}/result", requireAuth(hub.auth, func(w http.ResponseWriter, r *http.Request, userID int64, username string) {
		t := hub.tournaments.Get(r.PathValue("id"))
		if t == nil {
			writeError(w, http.StatusNotFound, "tournament not found")
			return
		}
		var req struct {
			WinnerID int64 `json:"winner_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request")
			return
		}
		if err := t.ReportMatchResult(r.PathValue("matchId"), userID, req.WinnerID); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
	}))

	mux.HandleFunc("GET /api/tournaments", func(w http.ResponseWriter, r *http.Request) {
		open := []TournamentInfo{}
		if hub.db != nil {
			rows, err := hub.db.QueryOpenTournaments()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "storage error")
				return
			}
			open = append(open, rows...)
		}
		joined := hub.tournaments.JoinedCount()
		for i := range open {
			open[i].Joined = joined[open[i].ID]
		}
		writeJSON(w, http.StatusOK, open)
	})

	mux.HandleFunc("GET /api/tournaments/{id}/bracket", func(w http.ResponseWriter, r *http.Request) {
		t := hub.tournaments.Get(r.PathValue("id"))
		if t == nil {
			writeError(w, http.StatusNotFound, "tournament not found")
			return
		}
		writeJSON(w, http.StatusOK, t.Bracket())
	})

	mux.HandleFunc("GET /api/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{
			"connections": hub.ClientCount(),
			"matches":     hub.rooms.Count(),
			"queued":      hub.matchmaker.Len(),
		})
	})

	// Invite QR for a match: scan on a second device to join
	mux.HandleFunc("GET /qr/{id}", func(w http.ResponseWriter, r *http.Request) {
		roomID := r.PathValue("id")
		if hub.rooms.GetRoom(roomID) == nil {
			http.Error(w, "match not found", http.StatusNotFound)
			return
		}
		joinURL := strings.TrimSuffix(cfg.PublicURL, "/") + "/match/" + roomID
		png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
		if err != nil {
			http.Error(w, "qr encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	})

	return mux
}
